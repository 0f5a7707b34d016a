package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
	"vacation-sync/internal/config"
	"vacation-sync/internal/models"
	"vacation-sync/internal/repository"
	"vacation-sync/pkg/hashstore"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

var (
	syncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vacation_sync_runs_total",
			Help: "Sync runs by outcome.",
		},
		[]string{"outcome"},
	)
	syncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vacation_sync_duration_seconds",
		Help:    "Duration of sync runs in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	syncRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vacation_sync_records",
		Help: "Vacation records written by the last successful sync.",
	})
)

// ErrLockBusy is returned when another run holds the sync lock past LockWait.
var ErrLockBusy = errors.New("sync already in progress")

type syncState string

const (
	stateIdle       syncState = "IDLE"
	stateFetching   syncState = "FETCHING"
	stateHashCheck  syncState = "HASH_CHECK"
	stateParsing    syncState = "PARSING"
	statePersisting syncState = "PERSISTING"
	stateDone       syncState = "DONE"
	stateSkipped    syncState = "SKIPPED"
	stateError      syncState = "ERROR"
)

type RunOptions struct {
	Force   bool
	Trigger string
}

// Result is what callers render; it never needs an error check to tell the
// three outcomes apart.
type Result struct {
	RunID     string
	Outcome   models.SyncOutcome
	Message   string
	Records   int
	Tabs      int
	TabCounts map[string]int
	Hash      string
	Trigger   string
	Duration  time.Duration
	Err       error
}

func (r Result) OK() bool {
	return r.Outcome != models.SyncError
}

// Notifier delivers a plain-text message to the operators' chat.
type Notifier interface {
	Send(text string) error
}

type SyncService struct {
	provider   config.Provider
	store      repository.SyncStore
	auditRepo  repository.SyncAuditRepository
	lockRepo   repository.SyncLockRepository
	httpClient *http.Client
	notifier   Notifier
	lockPoll   time.Duration
	now        func() time.Time
	logger     *logrus.Logger
}

func NewSyncService(
	provider config.Provider,
	store repository.SyncStore,
	auditRepo repository.SyncAuditRepository,
	lockRepo repository.SyncLockRepository,
	httpClient *http.Client,
) *SyncService {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	return &SyncService{
		provider:   provider,
		store:      store,
		auditRepo:  auditRepo,
		lockRepo:   lockRepo,
		httpClient: httpClient,
		lockPoll:   time.Second,
		now:        time.Now,
		logger:     logger,
	}
}

// SetNotifier enables post-run chat messages when NOTIFY_ON_SYNC is on.
func (s *SyncService) SetNotifier(n Notifier) {
	s.notifier = n
}

// Run executes one fetch, hash check, parse and persist cycle. Every call
// records exactly one audit entry, whatever the outcome.
func (s *SyncService) Run(ctx context.Context, opts RunOptions) Result {
	start := s.now()
	res := Result{
		RunID:   uuid.NewString(),
		Trigger: opts.Trigger,
	}
	log := s.logger.WithFields(logrus.Fields{
		"run_id":  res.RunID,
		"trigger": opts.Trigger,
		"force":   opts.Force,
	})
	s.enter(log, stateIdle)

	cfg, err := s.provider.Current()
	if err != nil {
		return s.finish(log, nil, start, s.fail(res, "config error", err))
	}
	s.logger.SetLevel(cfg.Level())

	if err := s.acquire(ctx, res.RunID, cfg); err != nil {
		return s.finish(log, cfg, start, s.fail(res, "lock", err))
	}
	defer func() {
		if err := s.lockRepo.Release(res.RunID); err != nil {
			log.WithError(err).Warn("Failed to release sync lock")
		}
	}()

	s.enter(log, stateFetching)
	path, err := NewFetcher(cfg, s.httpClient).Fetch(ctx, opts.Force)
	if err != nil {
		return s.finish(log, cfg, start, s.fail(res, "download failed", err))
	}

	s.enter(log, stateHashCheck)
	hash, err := fileHash(path)
	if err != nil {
		return s.finish(log, cfg, start, s.fail(res, "hash failed", err))
	}
	res.Hash = hash

	hashes := hashstore.NewFileStore(cfg.HashFile)
	previous, err := hashes.Load()
	if err != nil {
		log.WithError(err).Warn("Failed to read stored content hash")
	}
	if !opts.Force && previous != "" && previous == hash {
		s.enter(log, stateSkipped)
		res.Outcome = models.SyncSkipped
		res.Message = "spreadsheet unchanged since last sync"
		return s.finish(log, cfg, start, res)
	}

	s.enter(log, stateParsing)
	parser := NewSheetParser(cfg.AccessSystems, NewStatusMapper(cfg.NoAccessTokens))
	parser.logger.SetLevel(cfg.Level())
	parsed, err := parser.Parse(path)
	if err != nil {
		return s.finish(log, cfg, start, s.fail(res, "parse failed", err))
	}

	res.Tabs = len(parsed.Tabs)
	res.TabCounts = make(map[string]int, len(parsed.Tabs))
	for _, tab := range parsed.Tabs {
		res.TabCounts[tab.TabName] = tab.EmployeeCount
	}
	if len(parsed.Rows) == 0 {
		// an empty parse never replaces the stored dataset
		return s.finish(log, cfg, start, s.fail(res, "parse failed", fmt.Errorf("%w (%d tabs read)", ErrNoRows, res.Tabs)))
	}

	s.enter(log, statePersisting)
	n, err := s.store.ReplaceAll(parsed.Records(), parsed.Tabs)
	if err != nil {
		return s.finish(log, cfg, start, s.fail(res, "persist failed", err))
	}
	res.Records = n

	if err := hashes.Save(hash); err != nil {
		log.WithError(err).Warn("Failed to store content hash")
	}

	s.enter(log, stateDone)
	res.Outcome = models.SyncSuccess
	res.Message = fmt.Sprintf("%d records synced from %d tabs", res.Records, res.Tabs)
	syncRecords.Set(float64(res.Records))
	return s.finish(log, cfg, start, res)
}

func (s *SyncService) enter(log *logrus.Entry, state syncState) {
	log.WithField("state", state).Debug("Sync state")
}

func (s *SyncService) fail(res Result, stage string, err error) Result {
	res.Outcome = models.SyncError
	res.Err = err
	if errors.Is(err, ErrLockBusy) {
		res.Message = err.Error()
	} else {
		res.Message = fmt.Sprintf("%s: %v", stage, err)
	}
	return res
}

// finish writes the audit entry, updates metrics and sends the optional
// notification. cfg is nil when configuration could not be loaded.
func (s *SyncService) finish(log *logrus.Entry, cfg *config.Config, start time.Time, res Result) Result {
	res.Duration = s.now().Sub(start)

	if res.Outcome == models.SyncError {
		s.enter(log, stateError)
		log.WithError(res.Err).Error("Sync failed")
	} else {
		log.WithFields(logrus.Fields{
			"outcome": res.Outcome,
			"records": res.Records,
			"tabs":    res.Tabs,
		}).Info(res.Message)
	}

	entry := &models.SyncAuditEntry{
		RunID:             res.RunID,
		Timestamp:         s.now(),
		RecordsSynced:     res.Records,
		TabsSynced:        res.Tabs,
		Status:            res.Outcome,
		Message:           res.Message,
		SourceContentHash: res.Hash,
		DurationMS:        res.Duration.Milliseconds(),
		Trigger:           res.Trigger,
	}
	if len(res.TabCounts) > 0 {
		entry.TabCounts = make(map[string]interface{}, len(res.TabCounts))
		for tab, count := range res.TabCounts {
			entry.TabCounts[tab] = count
		}
	}
	if err := s.auditRepo.Record(entry); err != nil {
		log.WithError(err).Error("Failed to record sync audit entry")
	}

	syncRunsTotal.WithLabelValues(string(res.Outcome)).Inc()
	syncDuration.Observe(res.Duration.Seconds())

	if cfg != nil && cfg.NotifyOnSync && s.notifier != nil {
		if err := s.notifier.Send(FormatSyncResult(res)); err != nil {
			log.WithError(err).Warn("Failed to send sync notification")
		}
	}

	return res
}

// acquire polls the advisory lock until it is free or LockWait elapses.
func (s *SyncService) acquire(ctx context.Context, holder string, cfg *config.Config) error {
	deadline := s.now().Add(cfg.LockWait)

	for {
		ok, err := s.lockRepo.TryAcquire(holder, cfg.LockTTL, s.now())
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if !s.now().Before(deadline) {
			return ErrLockBusy
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.lockPoll):
		}
	}
}

func fileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
