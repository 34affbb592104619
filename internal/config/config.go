package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/titanous/json5"
)

const (
	BackendFile     = "file"
	BackendCalendar = "calendar"
	BackendSQLite   = "sqlite"
)

// 環境変数による上書き
const (
	EnvTelegramToken  = "EBAYBOT_TELEGRAM_TOKEN"
	EnvTelegramChatID = "EBAYBOT_TELEGRAM_CHAT_ID"
)

type Store struct {
	Backend string `json:"backend"`
	Path    string `json:"path"`
}

type Calendar struct {
	CalendarID      string `json:"calendar_id"`
	CredentialsFile string `json:"credentials_file"`
	TokenFile       string `json:"token_file"`
}

type Tracker struct {
	AlertDelta      string `json:"alert_delta"`
	RefreshInterval string `json:"refresh_interval"`
	CheckSchedule   string `json:"check_schedule"`
	// nil のときはバックエンドに応じて決まります
	RequireEndDate *bool `json:"require_end_date"`
}

type HTTP struct {
	Timeout           string  `json:"timeout"`
	UserAgent         string  `json:"user_agent"`
	RequestsPerSecond float64 `json:"requests_per_second"`
}

type Translate struct {
	Enabled    *bool  `json:"enabled"`
	TargetLang string `json:"target_lang"`
}

type Status struct {
	// 空のときステータスAPIは起動しません
	Addr string `json:"addr"`
}

// Config はボットの設定ファイルの内容です
type Config struct {
	TelegramToken  string    `json:"telegram_token"`
	TelegramChatID int64     `json:"telegram_chat_id"`
	Store          Store     `json:"store"`
	Calendar       Calendar  `json:"calendar"`
	Tracker        Tracker   `json:"tracker"`
	HTTP           HTTP      `json:"http"`
	Translate      Translate `json:"translate"`
	Status         Status    `json:"status"`
}

func boolPtr(b bool) *bool { return &b }

// Default は設定ファイルで指定されなかった項目の値です
func Default() Config {
	return Config{
		Store: Store{
			Backend: BackendFile,
			Path:    "data.json",
		},
		Calendar: Calendar{
			CalendarID:      "primary",
			CredentialsFile: "credentials.json",
			TokenFile:       "token.json",
		},
		Tracker: Tracker{
			AlertDelta:      "10m",
			RefreshInterval: "60m",
			CheckSchedule:   "@every 2m",
		},
		HTTP: HTTP{
			Timeout:           "30s",
			UserAgent:         "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
			RequestsPerSecond: 1,
		},
		Translate: Translate{
			Enabled:    boolPtr(true),
			TargetLang: "it",
		},
	}
}

func splitExt(f string) (string, string) {
	ext := filepath.Ext(f)
	if ext == "" {
		return f, ""
	}
	return f[:len(f)-len(ext)], ext[1:]
}

// readConfig は <name>.<ext> と <name>.local.<ext> の順に base の上へ読み込みます
// ファイルに書かれた項目だけが上書きされるので、false や 0 も明示的に指定できます
// どちらも存在しない場合は os.ErrNotExist を返します
func readConfig(name string, base Config) (Config, error) {
	out := base
	found := false

	prefix, ext := splitExt(name)
	localName := fmt.Sprintf("%s.local.%s", prefix, ext)

	for _, path := range []string{name, localName} {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return out, err
		}
		if len(data) == 0 {
			continue
		}
		if err := json5.Unmarshal(data, &out); err != nil {
			return out, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if path == localName {
			slog.Info("merging config with local overrides", "local", localName)
		}
		found = true
	}

	if !found {
		return out, os.ErrNotExist
	}
	return out, nil
}

// Load は .env と設定ファイルを読み込み、既定値と環境変数を適用します
// 設定ファイルがなくても既定値と環境変数だけで動作します
func Load(name string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := readConfig(name, Default())
	switch {
	case errors.Is(err, os.ErrNotExist):
		slog.Warn("config file not found, using defaults", "path", name)
	case err != nil:
		return Config{}, err
	}

	if cfg.Tracker.RequireEndDate == nil {
		cfg.Tracker.RequireEndDate = boolPtr(cfg.Store.Backend == BackendCalendar)
	}

	if token := os.Getenv(EnvTelegramToken); token != "" {
		cfg.TelegramToken = token
	}
	if raw := os.Getenv(EnvTelegramChatID); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", EnvTelegramChatID, err)
		}
		cfg.TelegramChatID = id
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate は値の形式を検査します。Telegramの認証情報は RequireTelegram で検査します
func (c Config) Validate() error {
	switch c.Store.Backend {
	case BackendFile, BackendSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the %s backend", c.Store.Backend)
		}
	case BackendCalendar:
		if c.Calendar.CalendarID == "" {
			return errors.New("calendar.calendar_id is required for the calendar backend")
		}
	default:
		return fmt.Errorf("unknown store.backend %q", c.Store.Backend)
	}

	for key, raw := range map[string]string{
		"tracker.alert_delta":      c.Tracker.AlertDelta,
		"tracker.refresh_interval": c.Tracker.RefreshInterval,
		"http.timeout":             c.HTTP.Timeout,
	} {
		if _, err := parsePositive(raw); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}
	if c.HTTP.RequestsPerSecond < 0 {
		return errors.New("http.requests_per_second must not be negative")
	}
	return nil
}

// RequireTelegram はボットの起動に必要な値がそろっているか検査します
func (c Config) RequireTelegram() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("telegram_token is not set (or %s)", EnvTelegramToken)
	}
	if c.TelegramChatID == 0 {
		return fmt.Errorf("telegram_chat_id is not set (or %s)", EnvTelegramChatID)
	}
	return nil
}

func parsePositive(raw string) (time.Duration, error) {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %s", raw)
	}
	return d, nil
}

// Validate を通過した設定では失敗しません
func mustDuration(raw string) time.Duration {
	d, err := parsePositive(raw)
	if err != nil {
		panic(err)
	}
	return d
}

func (c Config) AlertDelta() time.Duration      { return mustDuration(c.Tracker.AlertDelta) }
func (c Config) RefreshInterval() time.Duration { return mustDuration(c.Tracker.RefreshInterval) }
func (c Config) HTTPTimeout() time.Duration     { return mustDuration(c.HTTP.Timeout) }

func (c Config) RequireEndDate() bool {
	return c.Tracker.RequireEndDate != nil && *c.Tracker.RequireEndDate
}

func (c Config) TranslateEnabled() bool {
	return c.Translate.Enabled != nil && *c.Translate.Enabled
}
