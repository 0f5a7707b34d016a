package repository

import (
	"time"
	"vacation-sync/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SyncLockRepository interface {
	TryAcquire(holder string, ttl time.Duration, now time.Time) (bool, error)
	Release(holder string) error
	Current() (*models.SyncLock, error)
}

type GormSyncLockRepository struct {
	db *gorm.DB
}

func NewGormSyncLockRepository(db *gorm.DB) (*GormSyncLockRepository, error) {
	if err := db.AutoMigrate(&models.SyncLock{}); err != nil {
		return nil, err
	}
	err := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.SyncLock{ID: models.SyncLockID}).Error
	if err != nil {
		return nil, err
	}
	return &GormSyncLockRepository{db: db}, nil
}

// TryAcquire takes the lock when it is free or its previous holder let it
// expire. The check and the write are a single UPDATE.
func (r *GormSyncLockRepository) TryAcquire(holder string, ttl time.Duration, now time.Time) (bool, error) {
	now = now.UTC()
	result := r.db.Model(&models.SyncLock{}).
		Where("id = ? AND (holder = '' OR holder IS NULL OR expires_at < ?)", models.SyncLockID, now).
		Updates(map[string]interface{}{
			"holder":      holder,
			"acquired_at": now,
			"expires_at":  now.Add(ttl),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// Release frees the lock if holder still owns it.
func (r *GormSyncLockRepository) Release(holder string) error {
	return r.db.Model(&models.SyncLock{}).
		Where("id = ? AND holder = ?", models.SyncLockID, holder).
		Updates(map[string]interface{}{
			"holder":     "",
			"expires_at": time.Time{},
		}).Error
}

func (r *GormSyncLockRepository) Current() (*models.SyncLock, error) {
	var lock models.SyncLock
	if err := r.db.First(&lock, models.SyncLockID).Error; err != nil {
		return nil, err
	}
	return &lock, nil
}
