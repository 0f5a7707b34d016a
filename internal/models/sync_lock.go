package models

import "time"

// SyncLockID is the primary key of the only row in sync_locks.
const SyncLockID = 1

// SyncLock is an advisory lock row. An empty Holder means the lock is free.
type SyncLock struct {
	ID         uint      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Holder     string    `gorm:"type:varchar(36)" json:"holder"`
	AcquiredAt time.Time `json:"acquired_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

func (SyncLock) TableName() string {
	return "sync_locks"
}

func (l *SyncLock) IsHeld(now time.Time) bool {
	return l.Holder != "" && now.Before(l.ExpiresAt)
}
