package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/nimbus/internal/weather"
)

// Config holds everything nimbus needs at startup.
type Config struct {
	APIKey            string        `validate:"required"`
	BaseURL           string        `validate:"required,url"`
	Units             weather.Unit  `validate:"oneof=metric imperial"`
	RequestTimeout    time.Duration `validate:"gt=0"`
	RefreshInterval   time.Duration `validate:"gt=0"`
	StalenessWindow   time.Duration `validate:"gt=0"`
	RequestsPerMinute int           `validate:"gte=1,lte=6000"`
	LogFile           string        `validate:"required"`
	PrefsPath         string        `validate:"required"`
}

const (
	defaultConfigPath        = "~/.config/nimbus/config.toml"
	defaultBaseURL           = "https://api.openweathermap.org"
	defaultRequestTimeout    = 10 * time.Second
	defaultRefreshInterval   = 5 * time.Minute
	defaultStalenessWindow   = 60 * time.Second
	defaultRequestsPerMinute = 60
	defaultLogFile           = "~/.local/state/nimbus/nimbus.log"
	defaultPrefsPath         = "~/.config/nimbus/prefs.toml"
)

// Environment variables that override the file.
const (
	EnvAPIKey  = "OPENWEATHER_API_KEY"
	EnvUnits   = "NIMBUS_UNITS"
	EnvBaseURL = "NIMBUS_BASE_URL"
)

var validate = validator.New()

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		BaseURL:           defaultBaseURL,
		Units:             weather.Metric,
		RequestTimeout:    defaultRequestTimeout,
		RefreshInterval:   defaultRefreshInterval,
		StalenessWindow:   defaultStalenessWindow,
		RequestsPerMinute: defaultRequestsPerMinute,
		LogFile:           mustExpand(defaultLogFile),
		PrefsPath:         mustExpand(defaultPrefsPath),
	}
}

// LoadDotEnv loads KEY=value pairs from the given files into the process
// environment. Missing files are skipped and variables that are already set
// win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load parses the config file, falling back to defaults when it is missing,
// then applies environment overrides. The result is not validated; call
// Validate before talking to the weather service.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("open config: %w", err)
	default:
		defer file.Close()
		bytes, err := io.ReadAll(file)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := applyFile(&cfg, bytes); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, bytes []byte) error {
	var raw struct {
		APIKey            string `toml:"api_key"`
		BaseURL           string `toml:"base_url"`
		Units             string `toml:"units"`
		RequestTimeout    string `toml:"request_timeout"`
		RefreshInterval   string `toml:"refresh_interval"`
		StalenessWindow   string `toml:"staleness_window"`
		RequestsPerMinute int    `toml:"requests_per_minute"`
		LogFile           string `toml:"log_file"`
		PrefsPath         string `toml:"prefs_path"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	cfg.APIKey = strings.TrimSpace(raw.APIKey)
	if v := strings.TrimSpace(raw.BaseURL); v != "" {
		cfg.BaseURL = v
	}
	if strings.TrimSpace(raw.Units) != "" {
		unit, err := weather.ParseUnit(raw.Units)
		if err != nil {
			return fmt.Errorf("parse config: units: %w", err)
		}
		cfg.Units = unit
	}

	durations := []struct {
		key  string
		raw  string
		dest *time.Duration
	}{
		{"request_timeout", raw.RequestTimeout, &cfg.RequestTimeout},
		{"refresh_interval", raw.RefreshInterval, &cfg.RefreshInterval},
		{"staleness_window", raw.StalenessWindow, &cfg.StalenessWindow},
	}
	for _, d := range durations {
		if strings.TrimSpace(d.raw) == "" {
			continue
		}
		parsed, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return fmt.Errorf("parse config: %s: %w", d.key, err)
		}
		*d.dest = parsed
	}

	if raw.RequestsPerMinute != 0 {
		cfg.RequestsPerMinute = raw.RequestsPerMinute
	}
	if v := strings.TrimSpace(raw.LogFile); v != "" {
		cfg.LogFile = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.PrefsPath); v != "" {
		cfg.PrefsPath = mustExpand(v)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := strings.TrimSpace(os.Getenv(EnvAPIKey)); v != "" {
		cfg.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBaseURL)); v != "" {
		cfg.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvUnits)); v != "" {
		unit, err := weather.ParseUnit(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvUnits, err)
		}
		cfg.Units = unit
	}
	return nil
}

// Validate checks that the configuration can be used to reach the weather
// service.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			if fe.Field() == "APIKey" {
				return fmt.Errorf("invalid config: api key missing (set api_key or %s)", EnvAPIKey)
			}
			return fmt.Errorf("invalid config: %s failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Summary renders the effective settings without the api key, for logs.
func (c Config) Summary() string {
	key := "unset"
	if c.APIKey != "" {
		key = "set (" + strconv.Itoa(len(c.APIKey)) + " chars)"
	}
	return fmt.Sprintf("base_url=%s units=%s timeout=%s refresh=%s staleness=%s rpm=%d api_key=%s",
		c.BaseURL, c.Units, c.RequestTimeout, c.RefreshInterval, c.StalenessWindow, c.RequestsPerMinute, key)
}

// ExpandPath resolves a leading ~ and makes path absolute.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
