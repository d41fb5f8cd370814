package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config holds everything the process needs, resolved once at startup.
// Components receive it (or a sub-struct) explicitly; nothing reads the
// environment after Load returns.
type Config struct {
	Bitrix  BitrixConfig  `yaml:"bitrix"`
	Digest  DigestConfig  `yaml:"digest"`
	Logging LoggingConfig `yaml:"logging"`
}

// BitrixConfig describes the portal's inbound webhook endpoint.
type BitrixConfig struct {
	// BaseURL is the portal REST root including the webhook user segment,
	// e.g. "https://example.bitrix24.kz/rest/1".
	BaseURL string `yaml:"base_url"`
	// Secret is the webhook code appended as a path segment. Never logged.
	Secret string `yaml:"secret"`
	// RatePerSec caps outgoing calls (the portal throttles around 2 req/s).
	RatePerSec int `yaml:"rate_per_sec"`
}

type DigestConfig struct {
	// Timezone is the IANA zone the "today" window and cron trigger use.
	Timezone string `yaml:"timezone"`
	// Cron is a 5-field spec for scheduled runs.
	Cron string `yaml:"cron"`
	// WindowHours is the event window span anchored at start of today.
	WindowHours int `yaml:"window_hours"`
	// ExcludeCompleted drops completed tasks server-side when true.
	ExcludeCompleted bool `yaml:"exclude_completed"`
	// CheckPermissions asks the calendar endpoint to apply permission checks.
	CheckPermissions bool `yaml:"check_permissions"`
	// TestUserID, when > 0, narrows delivery to that single user.
	TestUserID int64 `yaml:"test_user_id"`
	// Locale selects digest wording; "ru" or "en".
	Locale string `yaml:"locale"`
	// Workers bounds the number of simultaneous per-user pipelines.
	Workers int `yaml:"workers"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

const (
	DefaultTimezone   = "Asia/Almaty"
	DefaultCron       = "0 9 * * *"
	DefaultLocale     = "ru"
	DefaultWorkers    = 4
	DefaultRatePerSec = 2
	DefaultWindow     = 24
)

// ErrMissingEndpoint is returned when the mandatory webhook endpoint
// settings are absent. main treats it as fatal before any run attempt.
var ErrMissingEndpoint = errors.New("config: BITRIX_BASE_URL and BITRIX_SECRET are required")

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Digest.Timezone) == "" {
		cfg.Digest.Timezone = DefaultTimezone
	}
	if strings.TrimSpace(cfg.Digest.Cron) == "" {
		cfg.Digest.Cron = DefaultCron
	}
	if cfg.Digest.WindowHours <= 0 {
		cfg.Digest.WindowHours = DefaultWindow
	}
	if strings.TrimSpace(cfg.Digest.Locale) == "" {
		cfg.Digest.Locale = DefaultLocale
	}
	if cfg.Digest.Workers <= 0 {
		cfg.Digest.Workers = DefaultWorkers
	}
	if cfg.Bitrix.RatePerSec <= 0 {
		cfg.Bitrix.RatePerSec = DefaultRatePerSec
	}
	if strings.TrimSpace(cfg.Logging.Level) == "" {
		cfg.Logging.Level = "info"
	}
}

// Validate checks the resolved config. Endpoint settings are the only
// mandatory ones; everything else has a default.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Bitrix.BaseURL) == "" || strings.TrimSpace(c.Bitrix.Secret) == "" {
		return ErrMissingEndpoint
	}
	if _, err := time.LoadLocation(c.Digest.Timezone); err != nil {
		return fmt.Errorf("config: invalid timezone %q: %w", c.Digest.Timezone, err)
	}
	switch c.Digest.Locale {
	case "ru", "en":
	default:
		return fmt.Errorf("config: unsupported locale %q (want ru or en)", c.Digest.Locale)
	}
	return nil
}

// Location resolves the configured timezone. Validate must have passed.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Digest.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Window returns the event window span.
func (c *Config) Window() time.Duration {
	return time.Duration(c.Digest.WindowHours) * time.Hour
}
