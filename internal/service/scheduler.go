package service

import (
	"context"
	"fmt"
	"time"
	"vacation-sync/internal/config"
	"vacation-sync/internal/models"
	"vacation-sync/internal/repository"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const auditPurgeSpec = "30 3 * * *"

// Scheduler runs syncs, chat reports and audit retention on cron
// expressions taken from the config.
type Scheduler struct {
	cron      *cron.Cron
	sync      *SyncService
	reports   *ReportService
	auditRepo repository.SyncAuditRepository
	notifier  Notifier
	logger    *logrus.Logger
}

// NewScheduler registers the jobs enabled in cfg. notifier may be nil, in
// which case no reports are scheduled.
func NewScheduler(
	cfg *config.Config,
	sync *SyncService,
	reports *ReportService,
	auditRepo repository.SyncAuditRepository,
	notifier Notifier,
) (*Scheduler, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(cfg.Level())

	s := &Scheduler{
		cron:      cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		sync:      sync,
		reports:   reports,
		auditRepo: auditRepo,
		notifier:  notifier,
		logger:    logger,
	}

	if cfg.SyncEnabled {
		if err := s.add("sync", cfg.SyncCron, func() { s.runSync(models.TriggerCron) }); err != nil {
			return nil, err
		}
	}

	if cfg.ReportsEnabled && notifier != nil {
		morning := func() { s.sendReport("morning", cfg.SyncEnabled, reports.MorningReport) }
		afternoon := func() { s.sendReport("afternoon", cfg.SyncEnabled, reports.AfternoonReport) }
		if err := s.add("morning report", cfg.MorningReportCron, morning); err != nil {
			return nil, err
		}
		if err := s.add("afternoon report", cfg.AfternoonReportCron, afternoon); err != nil {
			return nil, err
		}
	}

	if cfg.AuditRetentionDays > 0 {
		retention := cfg.AuditRetentionDays
		if err := s.add("audit purge", auditPurgeSpec, func() { s.purgeAudit(retention) }); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (s *Scheduler) add(name, spec string, job func()) error {
	if _, err := s.cron.AddFunc(spec, job); err != nil {
		return fmt.Errorf("schedule %s %q: %w", name, spec, err)
	}
	s.logger.WithFields(logrus.Fields{
		"job":      name,
		"schedule": spec,
	}).Info("Job scheduled")
	return nil
}

// Jobs returns the number of registered jobs.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and returns a context that is done once running
// jobs have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) runSync(trigger string) Result {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()
	return s.sync.Run(ctx, RunOptions{Trigger: trigger})
}

// sendReport refreshes the data first when syncing is enabled, so the text
// reflects the latest spreadsheet.
func (s *Scheduler) sendReport(name string, syncFirst bool, build func() (string, error)) {
	log := s.logger.WithField("report", name)

	if syncFirst {
		if res := s.runSync(models.TriggerCron); !res.OK() {
			log.WithField("message", res.Message).Warn("Sync before report failed, using stored data")
		}
	}

	text, err := build()
	if err != nil {
		log.WithError(err).Error("Failed to build report")
		return
	}
	if err := s.notifier.Send(text); err != nil {
		log.WithError(err).Error("Failed to send report")
		return
	}
	log.Info("Report sent")
}

func (s *Scheduler) purgeAudit(retentionDays int) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	n, err := s.auditRepo.PurgeOlderThan(cutoff)
	if err != nil {
		s.logger.WithError(err).Error("Failed to purge sync audit")
		return
	}
	s.logger.WithField("purged", n).Info("Sync audit purged")
}
