package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the application's configuration model.
// Session credentials are deliberately absent: they are never written to disk.
type Config struct {
	Remote   RemoteConfig   `yaml:"remote"`
	Deletion DeletionConfig `yaml:"deletion"`
	Quota    QuotaConfig    `yaml:"quota"`
	Storage  StorageConfig  `yaml:"storage"`
	Server   ServerConfig   `yaml:"server"`
	Billing  BillingConfig  `yaml:"billing"`
	Log      LogConfig      `yaml:"log"`
}

type RemoteConfig struct {
	// GraphQL endpoint root of the X web client
	BaseURL string `yaml:"baseURL"`
	// Public bearer token shipped with the X web client. If empty, read X_WEB_BEARER
	WebBearer         string `yaml:"webBearer"`
	ViewerQueryID     string `yaml:"viewerQueryID"`
	UserTweetsQueryID string `yaml:"userTweetsQueryID"`
	DeleteQueryID     string `yaml:"deleteQueryID"`
	PageSize          int    `yaml:"pageSize"`
	UserAgent         string `yaml:"userAgent"`
	// Client-side limiter applied to every remote call
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
	// Read calls retry on 429/5xx; deletes never retry
	MaxAttempts   int `yaml:"maxAttempts"`
	BaseBackoffMS int `yaml:"baseBackoffMs"`
	TimeoutSec    int `yaml:"timeoutSec"`
}

type DeletionConfig struct {
	// Pause after every delete call, success or failure
	PacingMS int `yaml:"pacingMs"`
	// Hard ceiling on one batch regardless of tier
	MaxBatch int `yaml:"maxBatch"`
}

type QuotaConfig struct {
	DailyLimit int `yaml:"dailyLimit"`
}

type StorageConfig struct {
	DBPath string `yaml:"dbPath"`
}

type ServerConfig struct {
	Addr        string `yaml:"addr"`
	MetricsAddr string `yaml:"metricsAddr"`
}

type BillingConfig struct {
	// If empty, read GUMROAD_WEBHOOK_SECRET
	WebhookSecret     string `yaml:"webhookSecret"`
	SellerID          string `yaml:"sellerID"`
	ProPermalink      string `yaml:"proPermalink"`
	LifetimePermalink string `yaml:"lifetimePermalink"`
}

type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Pacing returns the inter-call delay of the deletion engine.
func (d DeletionConfig) Pacing() time.Duration { return time.Duration(d.PacingMS) * time.Millisecond }

// Default returns a sensible default configuration.
func Default() Config {
	return Config{
		Remote: RemoteConfig{
			BaseURL:           "https://x.com/i/api/graphql",
			WebBearer:         "AAAAAAAAAAAAAAAAAAAAANRILgAAAAAAnNwIzUejRCOuH5E6I8xnZz4puTs%3D1Zv7ttfk8LF81IUq16cHjhLTvJu4FA33AGWWjCpTnA",
			ViewerQueryID:     "okNaf-6AQWu2DD2H_MAoVw",
			UserTweetsQueryID: "HuTx74BxAnezK1gWvYY7zg",
			DeleteQueryID:     "VaenaVgh5q5ih7kvyVjgtg",
			PageSize:          100,
			UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			RPS:               2,
			Burst:             10,
			MaxAttempts:       3,
			BaseBackoffMS:     500,
			TimeoutSec:        15,
		},
		Deletion: DeletionConfig{PacingMS: 500, MaxBatch: 25},
		Quota:    QuotaConfig{DailyLimit: 50},
		Storage:  StorageConfig{DBPath: "./xpurge.db"},
		Server:   ServerConfig{Addr: ":8080", MetricsAddr: ""},
		Log:      LogConfig{Level: "info"},
	}
}

// ResolveEnv fills in config fields from environment variables if not set.
func (c *Config) ResolveEnv() {
	if c.Remote.WebBearer == "" {
		c.Remote.WebBearer = os.Getenv("X_WEB_BEARER")
	}
	if c.Billing.WebhookSecret == "" {
		c.Billing.WebhookSecret = os.Getenv("GUMROAD_WEBHOOK_SECRET")
	}
	if c.Billing.SellerID == "" {
		c.Billing.SellerID = os.Getenv("GUMROAD_SELLER_ID")
	}
	if v := os.Getenv("XPURGE_DB"); v != "" {
		c.Storage.DBPath = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" && c.Server.MetricsAddr == "" {
		c.Server.MetricsAddr = v
	}
	if v := os.Getenv("XPURGE_PACING_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Deletion.PacingMS = n
		}
	}
}

// Validate checks the fields the deletion flow cannot run without.
func (c *Config) Validate() error {
	if c.Remote.BaseURL == "" {
		return errors.New("remote.baseURL cannot be empty")
	}
	if c.Remote.ViewerQueryID == "" || c.Remote.UserTweetsQueryID == "" || c.Remote.DeleteQueryID == "" {
		return errors.New("remote query ids cannot be empty")
	}
	if c.Deletion.MaxBatch <= 0 {
		return fmt.Errorf("deletion.maxBatch must be > 0, got %d", c.Deletion.MaxBatch)
	}
	if c.Deletion.PacingMS < 0 {
		return fmt.Errorf("deletion.pacingMs must be >= 0, got %d", c.Deletion.PacingMS)
	}
	if c.Quota.DailyLimit <= 0 {
		return fmt.Errorf("quota.dailyLimit must be > 0, got %d", c.Quota.DailyLimit)
	}
	if c.Storage.DBPath == "" {
		return errors.New("storage.dbPath cannot be empty")
	}
	return nil
}

// Load reads YAML config from path on top of Default.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	cfg.ResolveEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault behaves like Load but falls back to Default when path does not exist.
func LoadOrDefault(path string) (Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg = Default()
		cfg.ResolveEnv()
		return cfg, cfg.Validate()
	}
	return cfg, err
}

// Save writes YAML config to path, creating directories as needed.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
