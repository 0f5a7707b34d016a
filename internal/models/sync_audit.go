package models

import (
	"time"

	"gorm.io/datatypes"
)

type SyncOutcome string

const (
	SyncSuccess SyncOutcome = "SUCCESS"
	SyncSkipped SyncOutcome = "SKIPPED"
	SyncError   SyncOutcome = "ERROR"
)

// Who asked for a run.
const (
	TriggerCLI      = "cli"
	TriggerCron     = "cron"
	TriggerTelegram = "telegram"
	TriggerHTTP     = "http"
)

type SyncAuditEntry struct {
	ID                uint              `gorm:"primaryKey" json:"id"`
	RunID             string            `gorm:"type:varchar(36);index" json:"run_id"`
	Timestamp         time.Time         `gorm:"not null;index" json:"timestamp"`
	RecordsSynced     int               `gorm:"not null;default:0" json:"records_synced"`
	TabsSynced        int               `gorm:"not null;default:0" json:"tabs_synced"`
	Status            SyncOutcome       `gorm:"type:varchar(10);not null;index" json:"status"`
	Message           string            `json:"message"`
	SourceContentHash string            `gorm:"type:varchar(64)" json:"source_content_hash"`
	TabCounts         datatypes.JSONMap `json:"tab_counts"`
	DurationMS        int64             `json:"duration_ms"`
	Trigger           string            `gorm:"type:varchar(16)" json:"trigger"`
}

func (SyncAuditEntry) TableName() string {
	return "sync_audit"
}
