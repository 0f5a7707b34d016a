package repository

import (
	"errors"
	"time"
	"vacation-sync/internal/models"

	"gorm.io/gorm"
)

type SyncAuditRepository interface {
	Record(entry *models.SyncAuditEntry) error
	Last() (*models.SyncAuditEntry, error)
	List(limit int) ([]models.SyncAuditEntry, error)
	PurgeOlderThan(cutoff time.Time) (int64, error)
}

type GormSyncAuditRepository struct {
	db *gorm.DB
}

func NewGormSyncAuditRepository(db *gorm.DB) (*GormSyncAuditRepository, error) {
	if err := db.AutoMigrate(&models.SyncAuditEntry{}); err != nil {
		return nil, err
	}
	return &GormSyncAuditRepository{db: db}, nil
}

func (r *GormSyncAuditRepository) Record(entry *models.SyncAuditEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	// stored as UTC so range filters compare consistently on SQLite
	entry.Timestamp = entry.Timestamp.UTC()
	return r.db.Create(entry).Error
}

func (r *GormSyncAuditRepository) Last() (*models.SyncAuditEntry, error) {
	var entry models.SyncAuditEntry
	err := r.db.Order("id DESC").First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *GormSyncAuditRepository) List(limit int) ([]models.SyncAuditEntry, error) {
	var entries []models.SyncAuditEntry
	q := r.db.Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&entries).Error
	return entries, err
}

func (r *GormSyncAuditRepository) PurgeOlderThan(cutoff time.Time) (int64, error) {
	result := r.db.Where("timestamp < ?", cutoff.UTC()).Delete(&models.SyncAuditEntry{})
	return result.RowsAffected, result.Error
}
