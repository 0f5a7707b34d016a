package repository

import (
	"vacation-sync/internal/models"

	"gorm.io/gorm"
)

// SyncStore replaces the current dataset with the result of one sync run.
type SyncStore interface {
	ReplaceAll(records []models.VacationRecord, tabs []models.TabSummary) (int, error)
}

// GormSyncStore applies a full sync result as one unit of work.
type GormSyncStore struct {
	db        *gorm.DB
	vacations *GormVacationRepository
	tabs      *GormTabSummaryRepository
}

func NewGormSyncStore(db *gorm.DB, vacations *GormVacationRepository, tabs *GormTabSummaryRepository) *GormSyncStore {
	return &GormSyncStore{db: db, vacations: vacations, tabs: tabs}
}

// ReplaceAll clears the current dataset, upserts records and appends tab
// summaries inside a single transaction. On error nothing is changed.
func (s *GormSyncStore) ReplaceAll(records []models.VacationRecord, tabs []models.TabSummary) (int, error) {
	total := 0
	err := s.db.Transaction(func(tx *gorm.DB) error {
		vacations := s.vacations.withDB(tx)
		if err := vacations.ResetAll(); err != nil {
			return err
		}

		n, err := vacations.Upsert(records)
		if err != nil {
			return err
		}
		total = n

		return s.tabs.withDB(tx).Append(tabs)
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}
