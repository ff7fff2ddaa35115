package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/ftahirops/smartdash/collector"
)

// EnvPrefix prefixes every environment override, e.g. SMARTDASH_OUTPUT_DIR.
const EnvPrefix = "SMARTDASH"

// Duration is a time.Duration that reads and writes as "90s" in both JSON
// and the environment.
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Config holds the collector defaults. Flags override every field.
type Config struct {
	OutputDir string   `json:"output_dir" split_words:"true"`
	LogFile   string   `json:"log_file" split_words:"true"`
	Devices   string   `json:"devices"`
	Exclude   string   `json:"exclude"`
	Format    string   `json:"format"`
	Verbose   bool     `json:"verbose"`
	Jobs      int      `json:"jobs"`
	Timeout   Duration `json:"timeout"`
	Interval  Duration `json:"interval"`
	HistoryDB string   `json:"history_db" split_words:"true"`
	ServeAddr string   `json:"serve_addr" split_words:"true"`
	PIDFile   string   `json:"pid_file" split_words:"true"`

	NVMeTempC       int `json:"nvme_temperature_c" envconfig:"NVME_TEMP_C"`
	NVMePercentUsed int `json:"nvme_percentage_used" envconfig:"NVME_PERCENT_USED"`

	// DryRun applies to one invocation and is never persisted.
	DryRun bool `json:"-" split_words:"true"`
}

// Default returns a config with sensible defaults.
func Default() Config {
	return Config{
		OutputDir:       "/var/lib/smartdash",
		LogFile:         "/var/log/smartdash.log",
		Devices:         collector.DefaultDevicePatterns,
		Format:          string(collector.FormatPretty),
		Jobs:            1,
		Timeout:         Duration(60 * time.Second),
		Interval:        Duration(time.Hour),
		ServeAddr:       "127.0.0.1:9477",
		NVMeTempC:       70,
		NVMePercentUsed: 80,
	}
}

// Path returns ~/.config/smartdash/config.json (or XDG_CONFIG_HOME).
// Returns empty string if home directory cannot be determined.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "smartdash", "config.json")
}

// LoadFile reads path over the defaults. A missing file is not an error;
// existed reports whether one was found.
func LoadFile(path string) (cfg Config, existed bool, err error) {
	cfg = Default()
	if path == "" {
		return cfg, false, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, false, nil
	}
	if err != nil {
		return cfg, false, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Default(), true, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, true, nil
}

// ApplyEnv overlays SMARTDASH_* environment variables; unset variables leave
// the field untouched.
func ApplyEnv(cfg *Config) error {
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return fmt.Errorf("environment overrides: %w", err)
	}
	return nil
}

// Load returns defaults < file < environment. An empty path means Path().
func Load(path string) (Config, bool, error) {
	if path == "" {
		path = Path()
	}
	cfg, existed, err := LoadFile(path)
	if err != nil {
		return cfg, existed, err
	}
	if err := ApplyEnv(&cfg); err != nil {
		return cfg, existed, err
	}
	return cfg, existed, nil
}

// Validate checks values that flags, file and environment can all set.
func (c Config) Validate() error {
	if _, err := collector.ParseFormat(c.Format); err != nil {
		return err
	}
	if c.Jobs < 1 {
		return fmt.Errorf("jobs must be at least 1, got %d", c.Jobs)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	return nil
}

// Save writes the config to path (Path() when empty).
func Save(path string, cfg Config) error {
	if path == "" {
		path = Path()
	}
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0600)
}
