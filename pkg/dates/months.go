package dates

// MonthNames maps folded (upper-case, accent-free) Portuguese month names to
// their number. Tab names and reports share this table.
var MonthNames = []struct {
	Name   string
	Number int
}{
	{"JANEIRO", 1},
	{"FEVEREIRO", 2},
	{"MARCO", 3},
	{"ABRIL", 4},
	{"MAIO", 5},
	{"JUNHO", 6},
	{"JULHO", 7},
	{"AGOSTO", 8},
	{"SETEMBRO", 9},
	{"OUTUBRO", 10},
	{"NOVEMBRO", 11},
	{"DEZEMBRO", 12},
}

// MonthName returns the display name for a month number, or "" when out of range.
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return MonthNames[month-1].Name
}
