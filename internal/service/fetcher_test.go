package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
	"vacation-sync/internal/config"
)

func newTestConfig(t *testing.T, exportBaseURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()

	return &config.Config{
		SourceURL:      "https://docs.google.com/spreadsheets/d/abc123XYZ/edit#gid=0",
		ExportBaseURL:  exportBaseURL,
		CacheMinutes:   0,
		KeepDownloads:  3,
		FetchTimeout:   5 * time.Second,
		DownloadDir:    filepath.Join(dir, "download"),
		HashFile:       filepath.Join(dir, "cache", ".last_hash"),
		AccessSystems:  testSystems,
		NoAccessTokens: []string{"N/A", "NA", "-"},
		DBDriver:       "sqlite",
		DatabaseURL:    filepath.Join(dir, "test.sqlite"),
		LockWait:       0,
		LockTTL:        time.Minute,
		LogLevel:       "error",
	}
}

type workbookServer struct {
	*httptest.Server
	hits   atomic.Int32
	status atomic.Int32
	body   atomic.Value
}

func newWorkbookServer(t *testing.T, body []byte) *workbookServer {
	t.Helper()

	s := &workbookServer{}
	s.status.Store(http.StatusOK)
	s.body.Store(body)
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		if r.URL.Path != "/spreadsheets/d/abc123XYZ/export" || r.URL.Query().Get("format") != "xlsx" {
			http.NotFound(w, r)
			return
		}
		if code := int(s.status.Load()); code != http.StatusOK {
			w.WriteHeader(code)
			return
		}
		w.Write(s.body.Load().([]byte))
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *workbookServer) setBody(body []byte) {
	s.body.Store(body)
}

func TestFetcher_Download(t *testing.T) {
	srv := newWorkbookServer(t, []byte("workbook-bytes"))
	cfg := newTestConfig(t, srv.URL)

	path, err := NewFetcher(cfg, srv.Client()).Fetch(context.Background(), false)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if filepath.Dir(path) != cfg.DownloadDir {
		t.Errorf("path %s not in %s", path, cfg.DownloadDir)
	}
	if matched, _ := filepath.Match("planilha_*_*.xlsx", filepath.Base(path)); !matched {
		t.Errorf("unexpected file name %s", filepath.Base(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "workbook-bytes" {
		t.Errorf("content = %q", data)
	}

	leftovers, _ := filepath.Glob(filepath.Join(cfg.DownloadDir, "*.part"))
	if len(leftovers) != 0 {
		t.Errorf("temporary files left behind: %v", leftovers)
	}
}

func TestFetcher_UsesFreshCache(t *testing.T) {
	srv := newWorkbookServer(t, []byte("new"))
	cfg := newTestConfig(t, srv.URL)
	cfg.CacheMinutes = 60

	if err := os.MkdirAll(cfg.DownloadDir, 0o755); err != nil {
		t.Fatal(err)
	}
	cached := filepath.Join(cfg.DownloadDir, "planilha_20260101_080000.xlsx")
	if err := os.WriteFile(cached, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	path, err := NewFetcher(cfg, srv.Client()).Fetch(context.Background(), false)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if path != cached {
		t.Errorf("path = %s, want cached %s", path, cached)
	}
	if srv.hits.Load() != 0 {
		t.Errorf("server hit %d times, want 0", srv.hits.Load())
	}

	// forcing always downloads
	path, err = NewFetcher(cfg, srv.Client()).Fetch(context.Background(), true)
	if err != nil {
		t.Fatalf("forced Fetch: %v", err)
	}
	if path == cached || srv.hits.Load() != 1 {
		t.Errorf("forced fetch returned %s after %d hits", path, srv.hits.Load())
	}
}

func TestFetcher_StaleCacheDownloads(t *testing.T) {
	srv := newWorkbookServer(t, []byte("new"))
	cfg := newTestConfig(t, srv.URL)
	cfg.CacheMinutes = 30

	if err := os.MkdirAll(cfg.DownloadDir, 0o755); err != nil {
		t.Fatal(err)
	}
	stale := filepath.Join(cfg.DownloadDir, "planilha_20260101_080000.xlsx")
	if err := os.WriteFile(stale, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatal(err)
	}

	path, err := NewFetcher(cfg, srv.Client()).Fetch(context.Background(), false)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if path == stale || srv.hits.Load() != 1 {
		t.Errorf("stale cache reused: path=%s hits=%d", path, srv.hits.Load())
	}
}

func TestFetcher_Retention(t *testing.T) {
	srv := newWorkbookServer(t, []byte("new"))
	cfg := newTestConfig(t, srv.URL)
	cfg.KeepDownloads = 2

	if err := os.MkdirAll(cfg.DownloadDir, 0o755); err != nil {
		t.Fatal(err)
	}
	for i, name := range []string{"planilha_20250101_000000.xlsx", "planilha_20250102_000000.xlsx", "planilha_20250103_000000.xlsx"} {
		p := filepath.Join(cfg.DownloadDir, name)
		if err := os.WriteFile(p, []byte("old"), 0o644); err != nil {
			t.Fatal(err)
		}
		mtime := time.Now().Add(-time.Duration(10-i) * time.Hour)
		if err := os.Chtimes(p, mtime, mtime); err != nil {
			t.Fatal(err)
		}
	}

	path, err := NewFetcher(cfg, srv.Client()).Fetch(context.Background(), false)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	remaining, _ := filepath.Glob(filepath.Join(cfg.DownloadDir, "planilha_*.xlsx"))
	if len(remaining) != 2 {
		t.Fatalf("remaining = %v, want 2 files", remaining)
	}
	want := map[string]bool{
		path: true,
		filepath.Join(cfg.DownloadDir, "planilha_20250103_000000.xlsx"): true,
	}
	for _, p := range remaining {
		if !want[p] {
			t.Errorf("unexpected file kept: %s", p)
		}
	}
}

func TestFetcher_InvalidSource(t *testing.T) {
	srv := newWorkbookServer(t, nil)
	cfg := newTestConfig(t, srv.URL)
	cfg.SourceURL = "https://example.com/some/page"

	_, err := NewFetcher(cfg, srv.Client()).Fetch(context.Background(), true)
	if !errors.Is(err, ErrInvalidSource) {
		t.Fatalf("err = %v, want ErrInvalidSource", err)
	}
	if errors.Is(err, ErrDownloadFailed) {
		t.Error("invalid source also matched ErrDownloadFailed")
	}

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) || fetchErr.Kind != InvalidSource {
		t.Errorf("err = %#v, want *FetchError{Kind: InvalidSource}", err)
	}
	if srv.hits.Load() != 0 {
		t.Errorf("server hit %d times", srv.hits.Load())
	}
}

func TestFetcher_IDQueryParameter(t *testing.T) {
	srv := newWorkbookServer(t, []byte("ok"))
	cfg := newTestConfig(t, srv.URL)
	cfg.SourceURL = "https://drive.google.com/open?id=abc123XYZ"

	if _, err := NewFetcher(cfg, srv.Client()).Fetch(context.Background(), true); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
}

func TestFetcher_HTTPError(t *testing.T) {
	srv := newWorkbookServer(t, nil)
	srv.status.Store(http.StatusInternalServerError)
	cfg := newTestConfig(t, srv.URL)

	_, err := NewFetcher(cfg, srv.Client()).Fetch(context.Background(), true)
	if !errors.Is(err, ErrDownloadFailed) {
		t.Fatalf("err = %v, want ErrDownloadFailed", err)
	}

	files, _ := filepath.Glob(filepath.Join(cfg.DownloadDir, "*"))
	if len(files) != 0 {
		t.Errorf("files written on failure: %v", files)
	}
}

func TestFetcher_ConnectionRefused(t *testing.T) {
	srv := newWorkbookServer(t, nil)
	cfg := newTestConfig(t, srv.URL)
	srv.Close()

	_, err := NewFetcher(cfg, nil).Fetch(context.Background(), true)
	if !errors.Is(err, ErrDownloadFailed) {
		t.Fatalf("err = %v, want ErrDownloadFailed", err)
	}
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) || fetchErr.Err == nil {
		t.Errorf("cause not carried: %#v", err)
	}
}
