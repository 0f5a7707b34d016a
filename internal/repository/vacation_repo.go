package repository

import (
	"errors"
	"time"
	"vacation-sync/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type VacationRepository interface {
	Upsert(records []models.VacationRecord) (int, error)
	ResetAll() error
	GetByKey(name string, departure time.Time) (*models.VacationRecord, error)
	Count() (int64, error)
	List() ([]models.VacationRecord, error)
	DepartingOn(day time.Time) ([]models.VacationRecord, error)
	DepartingBetween(from, to time.Time) ([]models.VacationRecord, error)
	ReturningOn(days ...time.Time) ([]models.VacationRecord, error)
	OnVacation(day time.Time) ([]models.VacationRecord, error)
	PendingOnVacation(day time.Time) ([]models.VacationRecord, error)
	AccessSummary() (map[string]map[models.AccessState]int64, error)
}

type GormVacationRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewGormVacationRepository(db *gorm.DB) (*GormVacationRepository, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	if err := db.AutoMigrate(&models.VacationRecord{}, &models.AccessStatus{}); err != nil {
		logger.WithError(err).Error("Failed to auto-migrate vacation tables")
		return nil, err
	}

	return &GormVacationRepository{db: db, logger: logger}, nil
}

// withDB returns a copy bound to tx, used inside transactions.
func (r *GormVacationRepository) withDB(tx *gorm.DB) *GormVacationRepository {
	return &GormVacationRepository{db: tx, logger: r.logger}
}

// Upsert writes records keyed by (name, departure_date). An existing record
// has every other field overwritten and its access rows replaced. Returns the
// number of records inserted plus updated.
func (r *GormVacationRepository) Upsert(records []models.VacationRecord) (int, error) {
	inserted, updated := 0, 0

	for i := range records {
		rec := records[i]
		accesses := rec.Accesses
		rec.Accesses = nil

		var existing models.VacationRecord
		err := r.db.Where("name = ? AND departure_date = ?", rec.Name, rec.DepartureDate).
			First(&existing).Error

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			rec.ID = 0
			if err := r.db.Omit("Accesses").Create(&rec).Error; err != nil {
				r.logger.WithError(err).WithField("name", rec.Name).Error("Failed to insert vacation record")
				return inserted + updated, err
			}
			inserted++

		case err != nil:
			r.logger.WithError(err).Error("Failed to look up vacation record")
			return inserted + updated, err

		default:
			rec.ID = existing.ID
			err := r.db.Model(&existing).Updates(map[string]interface{}{
				"requesting_unit": rec.RequestingUnit,
				"reason":          rec.Reason,
				"return_date":     rec.ReturnDate,
				"manager":         rec.Manager,
				"source_tab":      rec.SourceTab,
				"report_month":    rec.ReportMonth,
				"report_year":     rec.ReportYear,
			}).Error
			if err != nil {
				r.logger.WithError(err).WithField("id", existing.ID).Error("Failed to update vacation record")
				return inserted + updated, err
			}

			if err := r.db.Where("vacation_record_id = ?", existing.ID).Delete(&models.AccessStatus{}).Error; err != nil {
				return inserted + updated, err
			}
			updated++
		}

		if len(accesses) == 0 {
			continue
		}
		children := make([]models.AccessStatus, 0, len(accesses))
		for _, a := range accesses {
			children = append(children, models.AccessStatus{
				VacationRecordID: rec.ID,
				SystemName:       a.SystemName,
				Status:           a.Status,
			})
		}
		if err := r.db.Create(&children).Error; err != nil {
			r.logger.WithError(err).WithField("id", rec.ID).Error("Failed to insert access statuses")
			return inserted + updated, err
		}
	}

	r.logger.WithFields(logrus.Fields{
		"inserted": inserted,
		"updated":  updated,
	}).Info("Vacation records saved")

	return inserted + updated, nil
}

// ResetAll removes every vacation record, access status and tab summary.
// Sync audit history is kept.
func (r *GormVacationRepository) ResetAll() error {
	for _, table := range []string{"access_statuses", "vacation_records", "tab_summaries"} {
		if err := r.db.Exec("DELETE FROM " + table).Error; err != nil {
			r.logger.WithError(err).WithField("table", table).Error("Failed to clear table")
			return err
		}
	}
	return nil
}

func (r *GormVacationRepository) GetByKey(name string, departure time.Time) (*models.VacationRecord, error) {
	var rec models.VacationRecord
	err := r.db.Preload("Accesses").
		Where("name = ? AND departure_date = ?", name, departure).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *GormVacationRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.VacationRecord{}).Count(&count).Error
	return count, err
}

func (r *GormVacationRepository) List() ([]models.VacationRecord, error) {
	var records []models.VacationRecord
	err := r.db.Preload("Accesses").
		Order("departure_date ASC, name ASC").
		Find(&records).Error
	return records, err
}

func (r *GormVacationRepository) DepartingOn(day time.Time) ([]models.VacationRecord, error) {
	var records []models.VacationRecord
	err := r.db.Preload("Accesses").
		Where("departure_date = ?", day).
		Order("name ASC").
		Find(&records).Error
	return records, err
}

// DepartingBetween returns departures after from and up to and including to.
func (r *GormVacationRepository) DepartingBetween(from, to time.Time) ([]models.VacationRecord, error) {
	var records []models.VacationRecord
	err := r.db.Preload("Accesses").
		Where("departure_date > ? AND departure_date <= ?", from, to).
		Order("departure_date ASC").
		Find(&records).Error
	return records, err
}

func (r *GormVacationRepository) ReturningOn(days ...time.Time) ([]models.VacationRecord, error) {
	var records []models.VacationRecord
	if len(days) == 0 {
		return records, nil
	}
	err := r.db.Preload("Accesses").
		Where("return_date IN ?", days).
		Order("return_date ASC, name ASC").
		Find(&records).Error
	return records, err
}

func (r *GormVacationRepository) OnVacation(day time.Time) ([]models.VacationRecord, error) {
	var records []models.VacationRecord
	err := r.db.Preload("Accesses").
		Where("departure_date <= ? AND return_date >= ?", day, day).
		Order("return_date ASC").
		Find(&records).Error
	return records, err
}

// PendingOnVacation returns people away on day with at least one PENDING access.
func (r *GormVacationRepository) PendingOnVacation(day time.Time) ([]models.VacationRecord, error) {
	pending := r.db.Model(&models.AccessStatus{}).
		Select("vacation_record_id").
		Where("status = ?", models.AccessPending)

	var records []models.VacationRecord
	err := r.db.Preload("Accesses").
		Where("id IN (?)", pending).
		Where("departure_date <= ? AND return_date >= ?", day, day).
		Order("return_date ASC").
		Find(&records).Error
	return records, err
}

// AccessSummary counts access rows per system and status.
func (r *GormVacationRepository) AccessSummary() (map[string]map[models.AccessState]int64, error) {
	var rows []struct {
		SystemName string
		Status     models.AccessState
		Total      int64
	}
	err := r.db.Model(&models.AccessStatus{}).
		Select("system_name, status, COUNT(*) AS total").
		Group("system_name, status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	summary := make(map[string]map[models.AccessState]int64)
	for _, row := range rows {
		if summary[row.SystemName] == nil {
			summary[row.SystemName] = make(map[models.AccessState]int64)
		}
		summary[row.SystemName][row.Status] = row.Total
	}
	return summary, nil
}
