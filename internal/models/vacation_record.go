package models

import "time"

type VacationRecord struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Name           string    `gorm:"not null;uniqueIndex:idx_vacation_key,priority:1" json:"name"`
	RequestingUnit string    `json:"requesting_unit"`
	Reason         string    `json:"reason"`
	DepartureDate  time.Time `gorm:"type:date;not null;index;uniqueIndex:idx_vacation_key,priority:2" json:"departure_date"`
	ReturnDate     time.Time `gorm:"type:date;not null;index" json:"return_date"`
	Manager        string    `json:"manager"`
	SourceTab      string    `gorm:"index" json:"source_tab"`
	ReportMonth    int       `gorm:"not null;check:report_month >= 1 AND report_month <= 12" json:"report_month"`
	ReportYear     int       `gorm:"not null" json:"report_year"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`

	Accesses []AccessStatus `gorm:"foreignKey:VacationRecordID;constraint:OnDelete:CASCADE" json:"accesses"`
}

func (VacationRecord) TableName() string {
	return "vacation_records"
}

// IsAway reports whether day falls inside the vacation window, both ends inclusive.
func (v *VacationRecord) IsAway(day time.Time) bool {
	return !day.Before(v.DepartureDate) && !day.After(v.ReturnDate)
}

// DaysAway returns the length of the window in calendar days.
func (v *VacationRecord) DaysAway() int {
	return int(v.ReturnDate.Sub(v.DepartureDate).Hours()/24) + 1
}

// SystemsIn returns the names of the systems currently in the given state,
// in the order they were stored.
func (v *VacationRecord) SystemsIn(state AccessState) []string {
	var systems []string
	for _, a := range v.Accesses {
		if a.Status == state {
			systems = append(systems, a.SystemName)
		}
	}
	return systems
}

// AllReleased is true when every tracked system that applies has been released.
func (v *VacationRecord) AllReleased() bool {
	applicable := 0
	for _, a := range v.Accesses {
		if a.Status == AccessNotApplicable {
			continue
		}
		applicable++
		if a.Status != AccessReleased {
			return false
		}
	}
	return applicable > 0
}
