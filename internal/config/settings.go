package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	yaml "go.yaml.in/yaml/v3"
)

// DefaultEndpoint is the homework status API polled each cycle.
const DefaultEndpoint = "https://practicum.yandex.ru/api/user_api/homework_statuses/"

// Settings are the non-secret tunables, loaded from an optional YAML file.
// A missing file means all defaults; an unreadable or malformed file is an
// error so typos don't silently fall back to defaults.
//
// All durations are Go duration strings (e.g. "30s", "10m").
type Settings struct {
	Endpoint     string `yaml:"endpoint"`
	PollInterval string `yaml:"poll_interval"`
	HTTPTimeout  string `yaml:"http_timeout"`

	Logging LoggingSettings `yaml:"logging"`

	Notifier NotifierSettings `yaml:"notifier"`

	// Storage.Path enables the sqlite notification history when non-empty.
	Storage StorageSettings `yaml:"storage"`

	// Digest is a cron expression (robfig/cron, standard 5-field or @daily
	// style descriptors). Empty disables the digest.
	Digest string `yaml:"digest"`

	// MetricsAddr enables the Prometheus /metrics listener when non-empty,
	// e.g. "127.0.0.1:9090".
	MetricsAddr string `yaml:"metrics_addr"`

	// Watchdog enables systemd watchdog pings when running under systemd.
	Watchdog bool `yaml:"watchdog"`
}

type LoggingSettings struct {
	Level   string          `yaml:"level"`
	Console *bool           `yaml:"console"`
	File    LoggingFileYAML `yaml:"file"`
}

type LoggingFileYAML struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type NotifierSettings struct {
	RatePerSec int `yaml:"rate_per_sec"`
}

type StorageSettings struct {
	Path        string `yaml:"path"`
	BusyTimeout string `yaml:"busy_timeout"`
}

// LoadSettings reads the settings file at path.
// A non-existent file yields pure defaults and no error.
func LoadSettings(path string) (Settings, error) {
	s := defaultSettings()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		// An empty file is an empty document: same contract as a missing file.
		if errors.Is(err, io.EOF) {
			return s, nil
		}
		return Settings{}, fmt.Errorf("parse settings %s: %w", path, err)
	}

	if err := s.validate(); err != nil {
		return Settings{}, fmt.Errorf("settings %s: %w", path, err)
	}
	return s, nil
}

func defaultSettings() Settings {
	return Settings{
		Endpoint:     DefaultEndpoint,
		PollInterval: "10m",
		HTTPTimeout:  "30s",
		Logging: LoggingSettings{
			Level: "info",
		},
		Notifier: NotifierSettings{RatePerSec: 3},
	}
}

func (s *Settings) validate() error {
	if s.Endpoint == "" {
		s.Endpoint = DefaultEndpoint
	}
	if _, err := s.Interval(); err != nil {
		return fmt.Errorf("poll_interval: %w", err)
	}
	if _, err := s.Timeout(); err != nil {
		return fmt.Errorf("http_timeout: %w", err)
	}
	if s.Storage.BusyTimeout != "" {
		if _, err := time.ParseDuration(s.Storage.BusyTimeout); err != nil {
			return fmt.Errorf("storage.busy_timeout: %w", err)
		}
	}
	if s.Notifier.RatePerSec <= 0 {
		s.Notifier.RatePerSec = 3
	}
	return nil
}

// Interval returns the poll period. Zero or empty falls back to 10 minutes.
func (s Settings) Interval() (time.Duration, error) {
	return parseDurationDefault(s.PollInterval, 10*time.Minute)
}

// Timeout returns the outbound HTTP timeout. Zero disables it (library default).
func (s Settings) Timeout() (time.Duration, error) {
	return parseDurationDefault(s.HTTPTimeout, 30*time.Second)
}

// BusyTimeout returns the sqlite busy timeout; 0 means driver default.
func (s Settings) BusyTimeout() time.Duration {
	d, err := time.ParseDuration(s.Storage.BusyTimeout)
	if err != nil {
		return 0
	}
	return d
}

// ConsoleEnabled defaults to true when the settings file leaves it unset.
func (s Settings) ConsoleEnabled() bool {
	if s.Logging.Console == nil {
		return true
	}
	return *s.Logging.Console
}

func parseDurationDefault(raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}
