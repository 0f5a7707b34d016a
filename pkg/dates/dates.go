// Package dates turns spreadsheet cells into calendar dates and repairs
// day/month transpositions using the reporting month of the tab they came from.
//
// All dates are calendar days represented as time.Time at midnight UTC.
package dates

import (
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Accepted textual layouts, tried in order. Any time-of-day suffix is
// stripped before matching.
var layouts = []string{
	"02/01/2006",
	"2/1/2006",
	"2006-01-02",
	"02-01-2006",
	"2-1-2006",
}

// Day builds a calendar date, normalizing out-of-range values the way time.Date does.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Truncate drops the time-of-day and location of t, keeping its wall-clock date.
func Truncate(t time.Time) time.Time {
	return Day(t.Year(), t.Month(), t.Day())
}

// IsBlank reports whether a raw cell carries no value for our purposes.
func IsBlank(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "-", "nan", "none", "nat", "null":
		return true
	}
	return false
}

// Parse converts a textual cell into a date. The second result is false for
// blank cells and for text that matches none of the accepted layouts.
func Parse(raw string) (time.Time, bool) {
	if IsBlank(raw) {
		return time.Time{}, false
	}

	value := strings.TrimSpace(raw)
	// "2025-12-20 00:00:00" and "2025-12-20T00:00:00" both keep only the date part
	if i := strings.IndexAny(value, " T"); i > 0 {
		value = value[:i]
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return Truncate(t), true
		}
	}
	return time.Time{}, false
}

// FromSerial converts a native spreadsheet date serial to a date. date1904
// selects the workbook's 1904 date system instead of the 1900 one.
func FromSerial(serial float64, date1904 bool) (time.Time, bool) {
	if serial < 1 || serial > 2958465 {
		return time.Time{}, false
	}
	t, err := excelize.ExcelDateToTime(serial, date1904)
	if err != nil {
		return time.Time{}, false
	}
	return Truncate(t), true
}

// Format renders a date the way the HR team writes it.
func Format(t time.Time) string {
	return t.Format("02/01/2006")
}
