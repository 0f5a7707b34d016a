package models

import "time"

// TabSummary is appended once per worksheet per sync run, empty tabs included.
type TabSummary struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	TabName       string    `gorm:"not null" json:"tab_name"`
	ReportMonth   int       `gorm:"not null;index" json:"report_month"`
	ReportYear    int       `gorm:"not null;index" json:"report_year"`
	EmployeeCount int       `gorm:"not null;default:0" json:"employee_count"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (TabSummary) TableName() string {
	return "tab_summaries"
}
