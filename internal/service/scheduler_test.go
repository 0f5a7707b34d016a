package service

import (
	"strings"
	"testing"
)

func TestNewScheduler_Jobs(t *testing.T) {
	tests := []struct {
		name     string
		sync     bool
		reports  bool
		notifier Notifier
		purge    int
		want     int
	}{
		{"nothing enabled", false, false, nil, 0, 0},
		{"sync only", true, false, nil, 0, 1},
		{"reports need a notifier", true, true, nil, 0, 1},
		{"everything", true, true, &recordingNotifier{}, 90, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newTestConfig(t, "http://localhost")
			cfg.SyncEnabled = tt.sync
			cfg.SyncCron = "0 6 * * 1-5"
			cfg.ReportsEnabled = tt.reports
			cfg.MorningReportCron = "0 8 * * 1-5"
			cfg.AfternoonReportCron = "0 17 * * 1-5"
			cfg.AuditRetentionDays = tt.purge

			s, err := NewScheduler(cfg, nil, nil, nil, tt.notifier)
			if err != nil {
				t.Fatalf("NewScheduler: %v", err)
			}
			if got := s.Jobs(); got != tt.want {
				t.Errorf("Jobs() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNewScheduler_InvalidSpec(t *testing.T) {
	cfg := newTestConfig(t, "http://localhost")
	cfg.SyncEnabled = true
	cfg.SyncCron = "every morning"

	_, err := NewScheduler(cfg, nil, nil, nil, nil)
	if err == nil || !strings.Contains(err.Error(), "every morning") {
		t.Fatalf("err = %v, want schedule error naming the expression", err)
	}
}

func TestScheduler_SendReport(t *testing.T) {
	n := &recordingNotifier{}
	cfg := newTestConfig(t, "http://localhost")

	s, err := NewScheduler(cfg, nil, nil, nil, n)
	if err != nil {
		t.Fatal(err)
	}
	s.sendReport("test", false, func() (string, error) { return "relatório", nil })

	if len(n.messages) != 1 || n.messages[0] != "relatório" {
		t.Errorf("messages = %v", n.messages)
	}
}
