package config

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	yaml "go.yaml.in/yaml/v3"
)

// Load resolves the config in two layers: an optional YAML file (path may be
// empty), then environment variables on top. Env always wins so deployments
// can override a checked-in file without editing it.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Digest: DigestConfig{
			// The flags default to true; the file/env can switch them off.
			ExcludeCompleted: true,
			CheckPermissions: true,
		},
	}

	if strings.TrimSpace(path) != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}
	if err := loadEnv(cfg); err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	// Reject unknown keys so typos are caught at startup, not silently ignored.
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func loadEnv(cfg *Config) error {
	setStr(&cfg.Bitrix.BaseURL, "BITRIX_BASE_URL")
	setStr(&cfg.Bitrix.Secret, "BITRIX_SECRET")
	if err := setInt(&cfg.Bitrix.RatePerSec, "BITRIX_RATE_PER_SEC"); err != nil {
		return err
	}

	setStr(&cfg.Digest.Timezone, "DIGEST_TIMEZONE")
	setStr(&cfg.Digest.Cron, "DIGEST_CRON")
	setStr(&cfg.Digest.Locale, "DIGEST_LOCALE")
	if err := setInt(&cfg.Digest.WindowHours, "DIGEST_WINDOW_HOURS"); err != nil {
		return err
	}
	if err := setInt(&cfg.Digest.Workers, "DIGEST_WORKERS"); err != nil {
		return err
	}
	if err := setInt64(&cfg.Digest.TestUserID, "DIGEST_TEST_USER_ID"); err != nil {
		return err
	}
	if err := setBool(&cfg.Digest.ExcludeCompleted, "DIGEST_EXCLUDE_COMPLETED"); err != nil {
		return err
	}
	if err := setBool(&cfg.Digest.CheckPermissions, "DIGEST_CHECK_PERMISSIONS"); err != nil {
		return err
	}

	setStr(&cfg.Logging.Level, "LOG_LEVEL")
	setStr(&cfg.Logging.File, "LOG_FILE")
	return nil
}

func setStr(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func setInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("config: %s: invalid integer %q", key, v)
	}
	*dst = n
	return nil
}

func setInt64(dst *int64, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return fmt.Errorf("config: %s: invalid integer %q", key, v)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("config: %s: invalid boolean %q", key, v)
	}
	*dst = b
	return nil
}
