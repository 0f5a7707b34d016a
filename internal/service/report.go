package service

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"vacation-sync/internal/models"
	"vacation-sync/internal/repository"
	"vacation-sync/pkg/dates"

	"github.com/sirupsen/logrus"
)

const separator = "----------------------------------------"

// ReportService composes the chat texts sent by the scheduler and returned
// by the bot commands. All texts are Portuguese, as read by the HR team.
type ReportService struct {
	vacationRepo repository.VacationRepository
	auditRepo    repository.SyncAuditRepository
	now          func() time.Time
	logger       *logrus.Logger
}

func NewReportService(vacationRepo repository.VacationRepository, auditRepo repository.SyncAuditRepository) *ReportService {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	return &ReportService{
		vacationRepo: vacationRepo,
		auditRepo:    auditRepo,
		now:          time.Now,
		logger:       logger,
	}
}

func (s *ReportService) today() time.Time {
	return dates.Truncate(s.now())
}

// NextBusinessDays returns the days whose returns are announced on day:
// the following day, or Saturday through Monday when day is a Friday.
func NextBusinessDays(day time.Time) []time.Time {
	switch day.Weekday() {
	case time.Friday:
		return []time.Time{day.AddDate(0, 0, 1), day.AddDate(0, 0, 2), day.AddDate(0, 0, 3)}
	case time.Saturday:
		return []time.Time{day.AddDate(0, 0, 1), day.AddDate(0, 0, 2)}
	default:
		return []time.Time{day.AddDate(0, 0, 1)}
	}
}

// MorningReport lists who leaves today and who is back today with accesses
// still blocked.
func (s *ReportService) MorningReport() (string, error) {
	today := s.today()

	departing, err := s.vacationRepo.DepartingOn(today)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load departures")
		return "", err
	}
	returning, err := s.vacationRepo.ReturningOn(today)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load returns")
		return "", err
	}

	var stillBlocked []models.VacationRecord
	for _, r := range returning {
		if len(r.SystemsIn(models.AccessBlocked)) > 0 {
			stillBlocked = append(stillBlocked, r)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "☀️ Relatório da manhã - %s\n\n", dates.Format(today))
	b.WriteString(formatDepartures(departing, "Saindo de férias hoje"))
	b.WriteString("\n")
	if len(stillBlocked) == 0 {
		b.WriteString("✅ Nenhum retorno de hoje com acessos bloqueados.\n")
	} else {
		fmt.Fprintf(&b, "🔒 Retornando hoje com acessos bloqueados (%d)\n%s\n", len(stillBlocked), separator)
		for i, r := range stillBlocked {
			fmt.Fprintf(&b, "%d. %s\n   Bloqueados: %s\n", i+1, r.Name, strings.Join(r.SystemsIn(models.AccessBlocked), ", "))
			if r.Manager != "" {
				fmt.Fprintf(&b, "   Gestor: %s\n", r.Manager)
			}
		}
	}

	return b.String(), nil
}

// AfternoonReport lists who returns on the next business day(s) and who is
// away with accesses still pending.
func (s *ReportService) AfternoonReport() (string, error) {
	today := s.today()
	days := NextBusinessDays(today)

	returning, err := s.vacationRepo.ReturningOn(days...)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load returns")
		return "", err
	}
	pending, err := s.vacationRepo.PendingOnVacation(today)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load pending accesses")
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🌇 Relatório da tarde - %s\n\n", dates.Format(today))

	if len(returning) == 0 {
		fmt.Fprintf(&b, "✅ Nenhum retorno previsto até %s.\n", dates.Format(days[len(days)-1]))
	} else {
		fmt.Fprintf(&b, "🔙 Retornando até %s (%d)\n%s\n", dates.Format(days[len(days)-1]), len(returning), separator)
		for i, r := range returning {
			fmt.Fprintf(&b, "%d. %s - retorno %s (%d dias fora)\n", i+1, r.Name, dates.Format(r.ReturnDate), r.DaysAway())
			writeSystems(&b, "Liberar", r.SystemsIn(models.AccessBlocked))
			writeSystems(&b, "Pendentes", r.SystemsIn(models.AccessPending))
		}
	}

	b.WriteString("\n")
	b.WriteString(formatPending(pending))
	return b.String(), nil
}

// TodayReport answers /hoje.
func (s *ReportService) TodayReport() (string, error) {
	today := s.today()

	departing, err := s.vacationRepo.DepartingOn(today)
	if err != nil {
		return "", err
	}
	returning, err := s.vacationRepo.ReturningOn(today)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📅 Hoje - %s\n\n", dates.Format(today))
	b.WriteString(formatDepartures(departing, "Saindo de férias"))
	b.WriteString("\n")
	if len(returning) == 0 {
		b.WriteString("✅ Nenhum retorno hoje.\n")
	} else {
		fmt.Fprintf(&b, "🔙 Retornando (%d)\n%s\n", len(returning), separator)
		for i, r := range returning {
			fmt.Fprintf(&b, "%d. %s\n", i+1, r.Name)
			writeSystems(&b, "Bloqueados", r.SystemsIn(models.AccessBlocked))
		}
	}
	return b.String(), nil
}

// OnVacationReport answers /ferias.
func (s *ReportService) OnVacationReport() (string, error) {
	today := s.today()

	away, err := s.vacationRepo.OnVacation(today)
	if err != nil {
		return "", err
	}
	if len(away) == 0 {
		return "✅ Ninguém de férias hoje.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🏖️ De férias em %s (%d)\n%s\n", dates.Format(today), len(away), separator)
	for i, r := range away {
		fmt.Fprintf(&b, "%d. %s - %s a %s\n", i+1, r.Name, dates.Format(r.DepartureDate), dates.Format(r.ReturnDate))
	}
	return b.String(), nil
}

// PendingReport answers /pendentes.
func (s *ReportService) PendingReport() (string, error) {
	pending, err := s.vacationRepo.PendingOnVacation(s.today())
	if err != nil {
		return "", err
	}
	return formatPending(pending), nil
}

// SummaryReport answers /resumo: totals, access states per system and the
// departures of the coming week.
func (s *ReportService) SummaryReport() (string, error) {
	today := s.today()

	total, err := s.vacationRepo.Count()
	if err != nil {
		return "", err
	}
	summary, err := s.vacationRepo.AccessSummary()
	if err != nil {
		return "", err
	}
	upcoming, err := s.vacationRepo.DepartingBetween(today, today.AddDate(0, 0, 7))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 Resumo - %s\n%s\n", dates.Format(today), separator)
	fmt.Fprintf(&b, "Registros de férias: %d\n\n", total)

	systems := make([]string, 0, len(summary))
	for system := range summary {
		systems = append(systems, system)
	}
	sort.Strings(systems)
	for _, system := range systems {
		counts := summary[system]
		fmt.Fprintf(&b, "%s: 🔒 %d  🔓 %d  ⏳ %d  ➖ %d\n", system,
			counts[models.AccessBlocked], counts[models.AccessReleased],
			counts[models.AccessPending], counts[models.AccessNotApplicable])
	}

	b.WriteString("\n")
	if len(upcoming) == 0 {
		b.WriteString("Nenhuma saída nos próximos 7 dias.\n")
	} else {
		fmt.Fprintf(&b, "Saídas nos próximos 7 dias (%d):\n", len(upcoming))
		for _, r := range upcoming {
			fmt.Fprintf(&b, "• %s - %s\n", dates.Format(r.DepartureDate), r.Name)
		}
	}
	return b.String(), nil
}

// StatusReport answers /status with the last audit entry.
func (s *ReportService) StatusReport() (string, error) {
	last, err := s.auditRepo.Last()
	if err != nil {
		return "", err
	}
	if last == nil {
		return "ℹ️ Nenhuma sincronização registrada ainda.", nil
	}

	return fmt.Sprintf("%s Última sincronização: %s\nStatus: %s\n%s\nRegistros: %d | Abas: %d",
		outcomeIcon(last.Status),
		last.Timestamp.Local().Format("02/01/2006 15:04"),
		last.Status,
		last.Message,
		last.RecordsSynced,
		last.TabsSynced,
	), nil
}

// FormatSyncResult renders a run outcome for the operators' chat.
func FormatSyncResult(res Result) string {
	switch res.Outcome {
	case models.SyncSuccess:
		var b strings.Builder
		fmt.Fprintf(&b, "✅ Sincronização concluída\n%d registros de %d abas\n", res.Records, res.Tabs)
		tabs := make([]string, 0, len(res.TabCounts))
		for tab := range res.TabCounts {
			tabs = append(tabs, tab)
		}
		sort.Strings(tabs)
		for _, tab := range tabs {
			fmt.Fprintf(&b, "• %s: %d\n", tab, res.TabCounts[tab])
		}
		return b.String()
	case models.SyncSkipped:
		return "⏭️ Sincronização ignorada: planilha sem alterações."
	default:
		return "❌ Falha na sincronização: " + res.Message
	}
}

func outcomeIcon(outcome models.SyncOutcome) string {
	switch outcome {
	case models.SyncSuccess:
		return "✅"
	case models.SyncSkipped:
		return "⏭️"
	}
	return "❌"
}

func formatDepartures(records []models.VacationRecord, title string) string {
	if len(records) == 0 {
		return "✅ Nenhum funcionário saindo de férias hoje.\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🏖️ %s (%d)\n%s\n", title, len(records), separator)
	for i, r := range records {
		fmt.Fprintf(&b, "%d. %s\n   Retorno: %s\n", i+1, r.Name, dates.Format(r.ReturnDate))
		if r.Manager != "" {
			fmt.Fprintf(&b, "   Gestor: %s\n", r.Manager)
		}
		if r.Reason != "" {
			fmt.Fprintf(&b, "   Motivo: %s\n", r.Reason)
		}
		writeSystems(&b, "Bloquear", append(r.SystemsIn(models.AccessPending), r.SystemsIn(models.AccessReleased)...))
	}
	return b.String()
}

func formatPending(records []models.VacationRecord) string {
	if len(records) == 0 {
		return "✅ Nenhum acesso pendente entre os funcionários de férias.\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "⏳ De férias com acessos pendentes (%d)\n%s\n", len(records), separator)
	for i, r := range records {
		fmt.Fprintf(&b, "%d. %s (até %s)\n", i+1, r.Name, dates.Format(r.ReturnDate))
		writeSystems(&b, "Pendentes", r.SystemsIn(models.AccessPending))
	}
	return b.String()
}

func writeSystems(b *strings.Builder, label string, systems []string) {
	if len(systems) == 0 {
		return
	}
	fmt.Fprintf(b, "   %s: %s\n", label, strings.Join(systems, ", "))
}
