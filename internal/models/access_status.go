package models

type AccessState string

// Closed vocabulary for access_statuses.status.
const (
	AccessBlocked       AccessState = "BLOCKED"
	AccessReleased      AccessState = "RELEASED"
	AccessPending       AccessState = "PENDING"
	AccessNotApplicable AccessState = "NOT_APPLICABLE"
)

// AccessStates lists the vocabulary in display order.
var AccessStates = []AccessState{AccessBlocked, AccessReleased, AccessPending, AccessNotApplicable}

func (s AccessState) IsValid() bool {
	switch s {
	case AccessBlocked, AccessReleased, AccessPending, AccessNotApplicable:
		return true
	}
	return false
}

type AccessStatus struct {
	ID               uint        `gorm:"primaryKey" json:"id"`
	VacationRecordID uint        `gorm:"not null;index;uniqueIndex:idx_access_record_system,priority:1" json:"vacation_record_id"`
	SystemName       string      `gorm:"type:varchar(64);not null;uniqueIndex:idx_access_record_system,priority:2" json:"system_name"`
	Status           AccessState `gorm:"type:varchar(20);not null;index" json:"status"`
}

func (AccessStatus) TableName() string {
	return "access_statuses"
}
