package service

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"vacation-sync/pkg/dates"
)

var (
	fullYearPattern  = regexp.MustCompile(`(20\d{2})`)
	shortYearPattern = regexp.MustCompile(`\.(\d{2})$`)
)

// ParseTabName reads the reporting month and year from a tab name such as
// "DEZEMBRO 2025", "Março.26" or "JANEIRO". A name without a month falls back
// to now's month and year; a month without a year uses now's year.
func ParseTabName(name string, now time.Time) (month, year int) {
	folded := fold(name)

	for _, m := range dates.MonthNames {
		if strings.Contains(folded, m.Name) {
			month = m.Number
			break
		}
	}
	if month == 0 {
		return int(now.Month()), now.Year()
	}

	if match := fullYearPattern.FindString(folded); match != "" {
		year, _ = strconv.Atoi(match)
		return month, year
	}
	if match := shortYearPattern.FindStringSubmatch(strings.TrimSpace(name)); match != nil {
		yy, _ := strconv.Atoi(match[1])
		return month, 2000 + yy
	}

	return month, now.Year()
}
