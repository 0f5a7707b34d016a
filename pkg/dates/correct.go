package dates

import "time"

// NextMonth returns the month after (month, year), rolling December into
// January of the following year.
func NextMonth(month, year int) (int, int) {
	if month >= 12 {
		return 1, year + 1
	}
	return month + 1, year
}

// swap exchanges day and month. Only meaningful when day <= 12, which every
// caller checks first, so the result is always a real calendar date.
func swap(t time.Time) time.Time {
	return Day(t.Year(), time.Month(t.Day()), int(t.Month()))
}

// CorrectDeparture repairs a departure date whose day and month were swapped,
// using the tab's reporting month as the anchor. A date whose day is above 12
// is never touched. When neither reading lands on the tab month the one in the
// tab year wins, and with no such evidence the original is kept.
func CorrectDeparture(d time.Time, tabMonth, tabYear int) time.Time {
	if d.IsZero() || tabMonth == 0 {
		return d
	}
	if int(d.Month()) == tabMonth {
		return d
	}
	if d.Day() > 12 {
		return d
	}

	swapped := swap(d)
	if int(swapped.Month()) == tabMonth {
		return swapped
	}

	if d.Year() == tabYear && swapped.Year() != tabYear {
		return d
	}
	if swapped.Year() == tabYear && d.Year() != tabYear {
		return swapped
	}
	return d
}

// returnWindow reports whether a return date is plausible for a tab: the tab
// month itself, or no later than the month after it in either the tab year
// or the rolled-over year.
func returnWindow(t time.Time, tabMonth, tabYear int) bool {
	maxMonth, maxYear := NextMonth(tabMonth, tabYear)
	month := int(t.Month())

	switch {
	case month == tabMonth:
		return true
	case t.Year() == tabYear && month <= maxMonth:
		return true
	case t.Year() == maxYear && month <= maxMonth:
		return true
	}
	return false
}

// CorrectReturn repairs a return date. Returns may spill into the month after
// the tab, so the accepted window is wider than for departures, and a swapped
// candidate that would fall before departure is always rejected.
func CorrectReturn(ret, departure time.Time, tabMonth, tabYear int) time.Time {
	if ret.IsZero() || tabMonth == 0 {
		return ret
	}
	if ret.Day() > 12 || ret.Day() == int(ret.Month()) {
		return ret
	}
	if returnWindow(ret, tabMonth, tabYear) {
		return ret
	}

	swapped := swap(ret)
	if !departure.IsZero() && swapped.Before(departure) {
		return ret
	}
	if returnWindow(swapped, tabMonth, tabYear) {
		return swapped
	}
	return ret
}

// ReconcileNativeReturn handles return dates that arrived as native
// spreadsheet dates, where the spreadsheet itself may have read d/m as m/d.
// It compares both readings against the departure date.
func ReconcileNativeReturn(ret, departure time.Time) time.Time {
	if ret.IsZero() || ret.Day() > 12 {
		return ret
	}

	swapped := swap(ret)

	if !departure.IsZero() {
		if ret.Before(departure) && swapped.After(departure) {
			return swapped
		}
		if ret.After(departure) && swapped.After(departure) {
			origGap := ret.Sub(departure).Hours() / 24
			swapGap := swapped.Sub(departure).Hours() / 24
			if origGap > 60 && swapGap < 45 {
				return swapped
			}
		}
	}

	// the first of a month rarely survives data entry intact
	if ret.Day() == 1 && ret.Month() > time.January {
		return swapped
	}
	return ret
}
