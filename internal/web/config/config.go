package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Backend BackendConfig `yaml:"backend"`
	Journal JournalConfig `yaml:"journal"`
	Logging LoggingConfig `yaml:"logging"`
	UI      UIConfig      `yaml:"ui"`
}

type ServerConfig struct {
	ListenAddr string    `yaml:"listen_addr"`
	TLS        TLSConfig `yaml:"tls"`
}

type TLSConfig struct {
	Enabled  bool       `yaml:"enabled"`
	CertFile string     `yaml:"cert_file"`
	KeyFile  string     `yaml:"key_file"`
	ACME     ACMEConfig `yaml:"acme"`
}

// ACMEConfig enables automatic certificates from Let's Encrypt
// instead of manual PEM files.
type ACMEConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Email    string   `yaml:"email"`
	Domains  []string `yaml:"domains"`
	CacheDir string   `yaml:"cache_dir"`
}

// BackendConfig points at the template management API.
type BackendConfig struct {
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`
	RetryMax int           `yaml:"retry_max"`
}

type JournalConfig struct {
	Path       string `yaml:"path"`
	MaxEntries int    `yaml:"max_entries"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// UIConfig tunes list behavior served to the browser.
type UIConfig struct {
	SearchDebounce     time.Duration `yaml:"search_debounce"`
	DefaultSort        string        `yaml:"default_sort"`
	HealthPollInterval time.Duration `yaml:"health_poll_interval"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	SetDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	SetDefaults(cfg)
	return cfg
}

func SetDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8088"
	}
	if cfg.Backend.BaseURL == "" {
		cfg.Backend.BaseURL = "http://localhost:8000"
	}
	if cfg.Backend.Timeout == 0 {
		cfg.Backend.Timeout = 10 * time.Second
	}
	if cfg.Backend.RetryMax == 0 {
		cfg.Backend.RetryMax = 2
	}
	if cfg.Server.TLS.ACME.CacheDir == "" {
		cfg.Server.TLS.ACME.CacheDir = "/var/lib/templar/acme"
	}
	if cfg.Journal.Path == "" {
		cfg.Journal.Path = "/var/lib/templar/journal.db"
	}
	if cfg.Journal.MaxEntries == 0 {
		cfg.Journal.MaxEntries = 500
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.UI.SearchDebounce == 0 {
		cfg.UI.SearchDebounce = 300 * time.Millisecond
	}
	if cfg.UI.DefaultSort == "" {
		cfg.UI.DefaultSort = "date"
	}
	if cfg.UI.HealthPollInterval == 0 {
		cfg.UI.HealthPollInterval = 30 * time.Second
	}
}

func validate(cfg *Config) error {
	u, err := url.Parse(cfg.Backend.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("backend.base_url must be an absolute URL: %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.Timeout < 0 {
		return fmt.Errorf("backend.timeout must not be negative")
	}
	if cfg.Server.TLS.Enabled {
		if cfg.Server.TLS.ACME.Enabled {
			if len(cfg.Server.TLS.ACME.Domains) == 0 {
				return fmt.Errorf("server.tls.acme.domains is required when ACME is enabled")
			}
		} else if cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "" {
			return fmt.Errorf("server.tls.cert_file and key_file are required when TLS is enabled")
		}
	}
	switch cfg.UI.DefaultSort {
	case "date", "name":
	default:
		return fmt.Errorf("ui.default_sort must be \"date\" or \"name\", got %q", cfg.UI.DefaultSort)
	}
	return nil
}
