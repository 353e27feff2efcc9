package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const homeEnv = "GHOSTNOTE_HOME"

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type DaemonConfig struct {
	SocketPath  string        `yaml:"socket_path"`
	PIDPath     string        `yaml:"pid_path"`
	CallTimeout time.Duration `yaml:"call_timeout"`
}

type EntitlementConfig struct {
	Enabled         bool          `yaml:"enabled"`
	InboxDir        string        `yaml:"inbox_dir"`
	DebounceWindow  time.Duration `yaml:"debounce_window"`
	MaxBatchSize    int           `yaml:"max_batch_size"`
	ReceiptPatterns []string      `yaml:"receipt_patterns"`
	IgnorePatterns  []string      `yaml:"ignore_patterns"`
}

type Config struct {
	BaseDir      string            `yaml:"-"`
	DatabasePath string            `yaml:"database_path"`
	Log          LogConfig         `yaml:"log"`
	Daemon       DaemonConfig      `yaml:"daemon"`
	Entitlement  EntitlementConfig `yaml:"entitlement"`
}

// BaseDir is $GHOSTNOTE_HOME, or ~/.ghostnote when unset.
func BaseDir() string {
	if dir := os.Getenv(homeEnv); dir != "" {
		return dir
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = os.TempDir()
	}
	return filepath.Join(homeDir, ".ghostnote")
}

func DefaultPath() string {
	return filepath.Join(BaseDir(), "config.yaml")
}

func Default() *Config {
	return defaultsFor(BaseDir())
}

func defaultsFor(baseDir string) *Config {
	return &Config{
		BaseDir:      baseDir,
		DatabasePath: filepath.Join(baseDir, "ghostnote.db"),
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Daemon: DaemonConfig{
			SocketPath:  filepath.Join(baseDir, "daemon.sock"),
			PIDPath:     filepath.Join(baseDir, "daemon.pid"),
			CallTimeout: 30 * time.Second,
		},
		Entitlement: EntitlementConfig{
			Enabled:        true,
			InboxDir:       filepath.Join(baseDir, "receipts"),
			DebounceWindow: 300 * time.Millisecond,
			MaxBatchSize:   50,
			ReceiptPatterns: []string{
				"**/*.json",
			},
			IgnorePatterns: []string{
				"**/*.done",
				"**/*.tmp",
				"**/*.part",
			},
		},
	}
}

// Load overlays the YAML file at path onto the defaults. An empty path means
// DefaultPath. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path must not be empty")
	}
	if c.Daemon.SocketPath == "" {
		return fmt.Errorf("daemon.socket_path must not be empty")
	}
	if c.Daemon.CallTimeout < 0 {
		return fmt.Errorf("daemon.call_timeout must not be negative")
	}
	if c.Entitlement.Enabled {
		if c.Entitlement.InboxDir == "" {
			return fmt.Errorf("entitlement.inbox_dir must not be empty when enabled")
		}
		if c.Entitlement.MaxBatchSize <= 0 {
			return fmt.Errorf("entitlement.max_batch_size must be positive")
		}
	}
	return nil
}

func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.BaseDir,
		filepath.Dir(c.DatabasePath),
		filepath.Dir(c.Daemon.SocketPath),
	}
	if c.Entitlement.Enabled {
		dirs = append(dirs, c.Entitlement.InboxDir)
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
