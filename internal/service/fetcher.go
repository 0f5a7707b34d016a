package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"
	"vacation-sync/internal/config"
	"vacation-sync/pkg/gsheets"

	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidSource  = errors.New("invalid source")
	ErrDownloadFailed = errors.New("download failed")
)

type FetchErrorKind int

const (
	InvalidSource FetchErrorKind = iota + 1
	DownloadFailed
)

// FetchError is returned by Fetch. It matches ErrInvalidSource or
// ErrDownloadFailed under errors.Is, depending on Kind.
type FetchError struct {
	Kind FetchErrorKind
	Err  error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return e.sentinel().Error()
	}
	return e.Err.Error()
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func (e *FetchError) Is(target error) bool {
	return target == e.sentinel()
}

func (e *FetchError) sentinel() error {
	if e.Kind == InvalidSource {
		return ErrInvalidSource
	}
	return ErrDownloadFailed
}

const (
	downloadPrefix = "planilha_"
	downloadExt    = ".xlsx"
	downloadLayout = "20060102_150405"
)

// Fetcher downloads the source workbook, reusing a recent download when one
// is fresh enough.
type Fetcher struct {
	cfg    *config.Config
	client *http.Client
	now    func() time.Time
	logger *logrus.Logger
}

func NewFetcher(cfg *config.Config, client *http.Client) *Fetcher {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(cfg.Level())

	if client == nil {
		client = http.DefaultClient
	}

	return &Fetcher{
		cfg:    cfg,
		client: client,
		now:    time.Now,
		logger: logger,
	}
}

// Fetch returns the path of a local copy of the workbook. Unless force is
// set, a download younger than CacheMinutes is returned without any request.
func (f *Fetcher) Fetch(ctx context.Context, force bool) (string, error) {
	if !force {
		if path, ok := f.cached(); ok {
			f.logger.WithField("path", path).Info("Using cached spreadsheet")
			return path, nil
		}
	}

	id, ok := gsheets.ExtractID(f.cfg.SourceURL)
	if !ok {
		return "", &FetchError{
			Kind: InvalidSource,
			Err:  fmt.Errorf("cannot resolve a document id from %q", f.cfg.SourceURL),
		}
	}

	path, err := f.download(ctx, gsheets.ExportURL(f.cfg.ExportBaseURL, id, "xlsx"))
	if err != nil {
		f.logger.WithError(err).Error("Failed to download spreadsheet")
		return "", &FetchError{Kind: DownloadFailed, Err: err}
	}

	f.prune()
	f.logger.WithField("path", path).Info("Spreadsheet downloaded")
	return path, nil
}

func (f *Fetcher) download(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("GET %s: unexpected status %s", url, resp.Status)
	}

	if err := os.MkdirAll(f.cfg.DownloadDir, 0o755); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(f.cfg.DownloadDir, downloadPrefix+"*.part")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("read body: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	path := filepath.Join(f.cfg.DownloadDir, downloadPrefix+f.now().Format(downloadLayout)+downloadExt)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", err
	}
	return path, nil
}

type download struct {
	path    string
	modTime time.Time
}

// downloads lists previous downloads, newest first.
func (f *Fetcher) downloads() []download {
	matches, err := filepath.Glob(filepath.Join(f.cfg.DownloadDir, downloadPrefix+"*"+downloadExt))
	if err != nil {
		return nil
	}

	out := make([]download, 0, len(matches))
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		out = append(out, download{path: path, modTime: info.ModTime()})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].modTime.Equal(out[j].modTime) {
			return out[i].path > out[j].path
		}
		return out[i].modTime.After(out[j].modTime)
	})
	return out
}

func (f *Fetcher) cached() (string, bool) {
	if f.cfg.CacheMinutes <= 0 {
		return "", false
	}
	files := f.downloads()
	if len(files) == 0 {
		return "", false
	}

	age := f.now().Sub(files[0].modTime)
	if age < time.Duration(f.cfg.CacheMinutes)*time.Minute {
		return files[0].path, true
	}
	return "", false
}

// prune keeps the KeepDownloads newest files. Failures are only logged.
func (f *Fetcher) prune() {
	files := f.downloads()
	if len(files) <= f.cfg.KeepDownloads {
		return
	}

	for _, old := range files[f.cfg.KeepDownloads:] {
		if err := os.Remove(old.path); err != nil {
			f.logger.WithError(err).WithField("path", old.path).Debug("Failed to remove old download")
		}
	}
}
