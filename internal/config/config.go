package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	// Source spreadsheet
	SourceURL     string        `validate:"required"`
	ExportBaseURL string        `validate:"required,url"`
	CacheMinutes  int           `validate:"gte=0"`
	KeepDownloads int           `validate:"gte=1"`
	FetchTimeout  time.Duration `validate:"gt=0"`
	DownloadDir   string        `validate:"required"`
	HashFile      string        `validate:"required"`

	// Parsing
	AccessSystems  []string `validate:"min=1,unique,dive,required"`
	NoAccessTokens []string

	// Storage
	DBDriver    string `validate:"oneof=sqlite postgres"`
	DatabaseURL string `validate:"required"`

	// Sync lock
	LockWait time.Duration `validate:"gte=0"`
	LockTTL  time.Duration `validate:"gt=0"`

	// Scheduler
	SyncEnabled         bool
	SyncCron            string
	ReportsEnabled      bool
	MorningReportCron   string
	AfternoonReportCron string
	AuditRetentionDays  int `validate:"gte=0"`

	// Telegram
	TelegramToken  string
	TelegramChatID int64
	NotifyOnSync   bool

	HTTPAddr string
	LogLevel string `validate:"oneof=trace debug info warn warning error"`
}

const (
	DefaultSourceURL      = "https://docs.google.com/spreadsheets/d/1oIgONGE3W7E1sFFNWun3bUY6Ys3JVSK1/edit"
	DefaultAccessSystems  = "AD PRIN,VPN,Gmail,Admin,Metrics,TOTVS"
	DefaultNoAccessTokens = `N/P,N\A,NA,N/A,NP,-,NB`
)

var validate = validator.New()

// Load builds a Config from envFile (when present) layered under the process
// environment. A missing envFile is not an error.
func Load(envFile string) (*Config, error) {
	values := map[string]string{}
	if envFile != "" {
		fileValues, err := godotenv.Read(envFile)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", envFile, err)
		}
		for k, v := range fileValues {
			values[k] = v
		}
	}

	env := source{file: values}
	cfg := &Config{
		SourceURL:     env.get("SOURCE_URL", env.get("GOOGLE_SHEETS_URL", DefaultSourceURL)),
		ExportBaseURL: env.get("EXPORT_BASE_URL", "https://docs.google.com"),
		CacheMinutes:  env.getInt("CACHE_MINUTES", 60),
		KeepDownloads: env.getInt("KEEP_DOWNLOADS", 3),
		FetchTimeout:  time.Duration(env.getInt("FETCH_TIMEOUT_SECONDS", 60)) * time.Second,
		DownloadDir:   env.get("DOWNLOAD_DIR", "download"),
		HashFile:      env.get("HASH_FILE", "data/cache/.last_hash"),

		AccessSystems:  env.getList("ACCESS_SYSTEMS", DefaultAccessSystems),
		NoAccessTokens: env.getList("NO_ACCESS_TOKENS", DefaultNoAccessTokens),

		DBDriver:    strings.ToLower(env.get("DB_DRIVER", "sqlite")),
		DatabaseURL: env.get("DATABASE_URL", "data/database.sqlite"),

		LockWait: time.Duration(env.getInt("LOCK_WAIT_SECONDS", 300)) * time.Second,
		LockTTL:  time.Duration(env.getInt("LOCK_TTL_SECONDS", 900)) * time.Second,

		SyncEnabled:         env.getBool("SYNC_ENABLED", true),
		SyncCron:            env.get("SYNC_CRON", "0 6 * * 1-5"),
		ReportsEnabled:      env.getBool("REPORTS_ENABLED", false),
		MorningReportCron:   env.get("MORNING_REPORT_CRON", "0 8 * * 1-5"),
		AfternoonReportCron: env.get("AFTERNOON_REPORT_CRON", "0 17 * * 1-5"),
		AuditRetentionDays:  env.getInt("AUDIT_RETENTION_DAYS", 90),

		TelegramToken:  env.get("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID: int64(env.getInt("TELEGRAM_CHAT_ID", 0)),
		NotifyOnSync:   env.getBool("NOTIFY_ON_SYNC", false),

		HTTPAddr: env.get("HTTP_ADDR", ""),
		LogLevel: strings.ToLower(env.get("LOG_LEVEL", "info")),
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// TelegramEnabled is true when both a token and a destination chat are set.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}

// Level returns the logrus level for LogLevel, defaulting to info.
func (c *Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// source resolves keys from the process environment first, then the .env file.
type source struct {
	file map[string]string
}

func (s source) get(key string, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	if value, exists := s.file[key]; exists {
		return value
	}

	return defaultVal
}

func (s source) getBool(name string, defaultVal bool) bool {
	valStr := s.get(name, "")
	if val, err := strconv.ParseBool(valStr); err == nil {
		return val
	}

	return defaultVal
}

func (s source) getInt(name string, defaultVal int) int {
	valStr := s.get(name, "")
	if val, err := strconv.Atoi(strings.TrimSpace(valStr)); err == nil {
		return val
	}

	return defaultVal
}

func (s source) getList(name string, defaultVal string) []string {
	var out []string
	for _, item := range strings.Split(s.get(name, defaultVal), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
