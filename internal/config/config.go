package config

import (
	"embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

//go:embed default_config.yaml
var defaultConfigFS embed.FS

type PricesConfig struct {
	APIURL     string   `yaml:"api_url"`
	VsCurrency string   `yaml:"vs_currency"`
	Coins      []string `yaml:"coins"`
}

type NewsConfig struct {
	Source    string `yaml:"source"` // "cryptocompare" or "rss"
	APIURL    string `yaml:"api_url"`
	RSSURL    string `yaml:"rss_url"`
	ImageHost string `yaml:"image_host"`
	MaxItems  int    `yaml:"max_items"`
}

type ImagesConfig struct {
	MinBytes     int64    `yaml:"min_bytes"`
	MaxBytes     int64    `yaml:"max_bytes"`
	FetchTimeout string   `yaml:"fetch_timeout"`
	Concurrency  int      `yaml:"concurrency"`
	AllowedHosts []string `yaml:"allowed_hosts"`
}

type LocalStorageConfig struct {
	Dir          string `yaml:"dir"`
	PublicPrefix string `yaml:"public_prefix"`
}

type S3StorageConfig struct {
	Bucket        string `yaml:"bucket"`
	Region        string `yaml:"region"`
	KeyPrefix     string `yaml:"key_prefix"`
	PublishPrefix string `yaml:"publish_prefix"`
	PublicBaseURL string `yaml:"public_base_url"`
}

type StorageConfig struct {
	Backend string             `yaml:"backend"` // "local" or "s3"
	Local   LocalStorageConfig `yaml:"local"`
	S3      S3StorageConfig    `yaml:"s3"`
}

type Config struct {
	ListenAddr      string        `yaml:"listen_addr"`
	RefreshInterval string        `yaml:"refresh_interval"`
	Prices          PricesConfig  `yaml:"prices"`
	News            NewsConfig    `yaml:"news"`
	Images          ImagesConfig  `yaml:"images"`
	Storage         StorageConfig `yaml:"storage"`
}

func (c *Config) RefreshDuration() time.Duration {
	d, err := time.ParseDuration(c.RefreshInterval)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

func (c *Config) ImageFetchTimeout() time.Duration {
	d, err := time.ParseDuration(c.Images.FetchTimeout)
	if err != nil || d <= 0 {
		return 12 * time.Second
	}
	return d
}

// MaxNewsItems returns the news item cap, defaulting to 24.
func (c *Config) MaxNewsItems() int {
	if c.News.MaxItems <= 0 {
		return 24
	}
	return c.News.MaxItems
}

// ImageConcurrency returns how many images may be resolved at once per run.
func (c *Config) ImageConcurrency() int {
	if c.Images.Concurrency <= 0 {
		return 4
	}
	return c.Images.Concurrency
}

func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "coinfly", "config.yaml")
}

// DefaultDataDir is the static-serving root used when storage.local.dir is unset.
func DefaultDataDir() string {
	return filepath.Join(xdg.DataHome, "coinfly", "public")
}

func loadDefaults() (*Config, error) {
	data, err := defaultConfigFS.ReadFile("default_config.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading embedded config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded config: %w", err)
	}
	return &cfg, nil
}

func Load(path string) (*Config, error) {
	defaults, err := loadDefaults()
	if err != nil {
		return nil, err
	}

	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Write defaults to config path on first run
			if err := writeDefaults(path); err != nil {
				// Non-fatal: just use embedded defaults
				return finalize(defaults)
			}
			return finalize(defaults)
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return finalize(&cfg)
}

func finalize(cfg *Config) (*Config, error) {
	if cfg.Storage.Local.Dir == "" {
		cfg.Storage.Local.Dir = DefaultDataDir()
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func writeDefaults(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, _ := defaultConfigFS.ReadFile("default_config.yaml")
	return os.WriteFile(path, data, 0o644)
}

func validate(cfg *Config) error {
	if cfg.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}

	for name, raw := range map[string]string{
		"prices.api_url": cfg.Prices.APIURL,
		"news.api_url":   cfg.News.APIURL,
		"news.rss_url":   cfg.News.RSSURL,
	} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("%s: invalid url: %w", name, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("%s: url scheme must be http or https, got %q", name, u.Scheme)
		}
	}

	switch cfg.News.Source {
	case "cryptocompare":
		if cfg.News.APIURL == "" {
			return fmt.Errorf("news.api_url is required when news.source is cryptocompare")
		}
	case "rss":
		if cfg.News.RSSURL == "" {
			return fmt.Errorf("news.rss_url is required when news.source is rss")
		}
	default:
		return fmt.Errorf("news.source: unknown source %q (valid: cryptocompare, rss)", cfg.News.Source)
	}

	if cfg.Images.MinBytes <= 0 {
		return fmt.Errorf("images.min_bytes must be positive")
	}
	if cfg.Images.MaxBytes <= cfg.Images.MinBytes {
		return fmt.Errorf("images.max_bytes (%d) must exceed images.min_bytes (%d)",
			cfg.Images.MaxBytes, cfg.Images.MinBytes)
	}

	switch cfg.Storage.Backend {
	case "local":
		if cfg.Storage.Local.PublicPrefix == "" {
			return fmt.Errorf("storage.local.public_prefix is required")
		}
	case "s3":
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when backend is s3")
		}
		if cfg.Storage.S3.PublicBaseURL == "" {
			return fmt.Errorf("storage.s3.public_base_url is required when backend is s3")
		}
	default:
		return fmt.Errorf("storage.backend: unknown backend %q (valid: local, s3)", cfg.Storage.Backend)
	}

	return nil
}
