package service

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"vacation-sync/internal/models"
	"vacation-sync/pkg/dates"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

var (
	// ErrParseFailure means the downloaded file could not be opened as a workbook.
	ErrParseFailure = errors.New("workbook could not be opened")
	// ErrNoRows means the workbook opened but no tab yielded a usable row.
	ErrNoRows = errors.New("no vacation rows found in workbook")
)

// RawRow is one retained data row, dates already normalized.
type RawRow struct {
	Name           string
	RequestingUnit string
	Reason         string
	Manager        string
	Departure      time.Time
	Return         time.Time
	// Accesses has one entry per configured system, in configuration order.
	Accesses    []models.AccessStatus
	SourceTab   string
	ReportMonth int
	ReportYear  int
}

// Record converts the row into a persistable VacationRecord.
func (r RawRow) Record() models.VacationRecord {
	accesses := make([]models.AccessStatus, len(r.Accesses))
	copy(accesses, r.Accesses)

	return models.VacationRecord{
		Name:           r.Name,
		RequestingUnit: r.RequestingUnit,
		Reason:         r.Reason,
		DepartureDate:  r.Departure,
		ReturnDate:     r.Return,
		Manager:        r.Manager,
		SourceTab:      r.SourceTab,
		ReportMonth:    r.ReportMonth,
		ReportYear:     r.ReportYear,
		Accesses:       accesses,
	}
}

type ParseResult struct {
	Rows []RawRow
	// Tabs has one summary per worksheet in workbook order, empty ones included.
	Tabs []models.TabSummary
}

func (p *ParseResult) Records() []models.VacationRecord {
	records := make([]models.VacationRecord, 0, len(p.Rows))
	for _, row := range p.Rows {
		records = append(records, row.Record())
	}
	return records
}

// SheetParser reads every tab of a vacation workbook.
type SheetParser struct {
	systems []string
	mapper  *StatusMapper
	now     func() time.Time
	logger  *logrus.Logger
}

func NewSheetParser(systems []string, mapper *StatusMapper) *SheetParser {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	return &SheetParser{
		systems: systems,
		mapper:  mapper,
		now:     time.Now,
		logger:  logger,
	}
}

// Parse opens the workbook at path and extracts rows from every tab in file
// order. Only a workbook that cannot be opened is an error; bad rows are
// skipped and a tab that cannot be read yields an empty summary.
func (p *SheetParser) Parse(path string) (*ParseResult, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		p.logger.WithError(err).WithField("path", path).Error("Failed to open workbook")
		return &ParseResult{}, fmt.Errorf("%w: %w", ErrParseFailure, err)
	}
	defer f.Close()

	book := newWorkbookDates(f)
	result := &ParseResult{}
	for _, sheet := range f.GetSheetList() {
		month, year := ParseTabName(sheet, p.now())

		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			p.logger.WithError(err).WithField("tab", sheet).Warn("Failed to read tab")
			rows = nil
		}

		parsed := p.parseTab(book, sheet, month, year, rows)
		result.Rows = append(result.Rows, parsed...)
		result.Tabs = append(result.Tabs, models.TabSummary{
			TabName:       sheet,
			ReportMonth:   month,
			ReportYear:    year,
			EmployeeCount: len(parsed),
		})

		p.logger.WithFields(logrus.Fields{
			"tab":       sheet,
			"month":     month,
			"year":      year,
			"employees": len(parsed),
		}).Info("Tab parsed")
	}

	return result, nil
}

func (p *SheetParser) parseTab(book *workbookDates, tab string, month, year int, rows [][]string) []RawRow {
	if len(rows) == 0 {
		return nil
	}

	columns := ResolveColumns(rows[0], p.systems)
	var out []RawRow
	skipped := 0

	for i, cells := range rows[1:] {
		line := i + 2
		readDate := func(col int) (time.Time, bool, bool) {
			return book.read(tab, line, col, cell(cells, col))
		}

		row, err := p.parseRow(columns, cells, month, year, readDate)
		if errors.Is(err, errBlankName) {
			continue
		}
		if err != nil {
			skipped++
			p.logger.WithFields(logrus.Fields{
				"tab": tab,
				"row": line,
			}).WithError(err).Debug("Row skipped")
			continue
		}
		row.SourceTab = tab
		row.ReportMonth = month
		row.ReportYear = year
		out = append(out, row)
	}

	if skipped > 0 {
		p.logger.WithFields(logrus.Fields{
			"tab":     tab,
			"skipped": skipped,
		}).Debug("Rows without usable dates skipped")
	}
	return out
}

var (
	errBlankName   = errors.New("blank name")
	errNoDeparture = errors.New("departure date missing or unparseable")
	errNoReturn    = errors.New("return date missing or unparseable")
	errReturnFirst = errors.New("return date before departure date")
)

// dateReader parses the date in column col of the current row. native reports
// whether the value was a spreadsheet date serial.
type dateReader func(col int) (t time.Time, native bool, ok bool)

// parseRow extracts one data row and repairs its dates against the tab's
// reporting month and year.
func (p *SheetParser) parseRow(columns ColumnMap, cells []string, month, year int, readDate dateReader) (RawRow, error) {
	name := cell(cells, columns.Index(RoleName))
	if name == "" || isNullText(name) {
		return RawRow{}, errBlankName
	}

	departure, _, ok := readDate(columns.Index(RoleDeparture))
	if !ok {
		return RawRow{}, errNoDeparture
	}
	departure = dates.CorrectDeparture(departure, month, year)

	ret, native, ok := readDate(columns.Index(RoleReturn))
	if !ok {
		return RawRow{}, errNoReturn
	}
	if native {
		ret = dates.ReconcileNativeReturn(ret, departure)
	}
	ret = dates.CorrectReturn(ret, departure, month, year)
	if ret.Before(departure) {
		return RawRow{}, errReturnFirst
	}

	return RawRow{
		Name:           name,
		RequestingUnit: textCell(cells, columns.Index(RoleUnit)),
		Reason:         textCell(cells, columns.Index(RoleReason)),
		Manager:        textCell(cells, columns.Index(RoleManager)),
		Departure:      departure,
		Return:         ret,
		Accesses:       p.accesses(columns, cells),
	}, nil
}

// accesses yields one status per configured system. A system with no column
// in this tab is NOT_APPLICABLE; a row too short to reach its column is PENDING.
func (p *SheetParser) accesses(columns ColumnMap, cells []string) []models.AccessStatus {
	out := make([]models.AccessStatus, 0, len(p.systems))
	for _, system := range p.systems {
		state := models.AccessNotApplicable
		if idx, ok := columns.Systems[system]; ok {
			if idx < len(cells) {
				state = p.mapper.Map(cells[idx])
			} else {
				state = models.AccessPending
			}
		}
		out = append(out, models.AccessStatus{SystemName: system, Status: state})
	}
	return out
}

// workbookDates tells native date cells apart from plain numbers. Raw cell
// values carry no type, so the cell's number format decides.
type workbookDates struct {
	f        *excelize.File
	date1904 bool
	// dateStyles caches whether a style ID formats its cells as dates.
	dateStyles map[int]bool
}

func newWorkbookDates(f *excelize.File) *workbookDates {
	book := &workbookDates{f: f, dateStyles: make(map[int]bool)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		book.date1904 = *props.Date1904
	}
	return book
}

// read accepts text dates in the known layouts and numbers in date-formatted
// cells. Any other number is unparseable. line is 1-based, col 0-based.
func (b *workbookDates) read(sheet string, line, col int, raw string) (time.Time, bool, bool) {
	if dates.IsBlank(raw) {
		return time.Time{}, false, false
	}
	if t, ok := dates.Parse(raw); ok {
		return t, false, true
	}
	serial, err := strconv.ParseFloat(raw, 64)
	if err != nil || !b.isDateCell(sheet, line, col) {
		return time.Time{}, false, false
	}
	t, ok := dates.FromSerial(serial, b.date1904)
	return t, ok, ok
}

func (b *workbookDates) isDateCell(sheet string, line, col int) bool {
	axis, err := excelize.CoordinatesToCellName(col+1, line)
	if err != nil {
		return false
	}
	id, err := b.f.GetCellStyle(sheet, axis)
	if err != nil {
		return false
	}
	if isDate, ok := b.dateStyles[id]; ok {
		return isDate
	}

	style, err := b.f.GetStyle(id)
	isDate := err == nil && isDateStyle(style)
	b.dateStyles[id] = isDate
	return isDate
}

// isDateStyle covers the built-in date formats, the locale-specific date
// formats and custom format codes with day or year tokens.
func isDateStyle(style *excelize.Style) bool {
	if style.CustomNumFmt != nil {
		return isDateFormatCode(*style.CustomNumFmt)
	}
	switch n := style.NumFmt; {
	case n >= 14 && n <= 17, n == 22:
		return true
	case n >= 27 && n <= 36, n >= 50 && n <= 58:
		return true
	}
	return false
}

// Quoted literals, bracketed modifiers such as [Red] or [$-416] and escaped
// characters never carry date tokens.
var formatLiterals = regexp.MustCompile(`"[^"]*"|\[[^\]]*\]|\\.`)

func isDateFormatCode(code string) bool {
	if i := strings.Index(code, ";"); i >= 0 {
		code = code[:i]
	}
	code = strings.ToLower(formatLiterals.ReplaceAllString(code, ""))
	return strings.ContainsAny(code, "dy")
}

func cell(cells []string, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[idx])
}

// textCell is cell with null-like text cleared.
func textCell(cells []string, idx int) string {
	v := cell(cells, idx)
	if isNullText(v) {
		return ""
	}
	return v
}

func isNullText(v string) bool {
	switch strings.ToLower(v) {
	case "nan", "none":
		return true
	}
	return false
}
