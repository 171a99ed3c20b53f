// Package app wires the scraper, catalog store, package state oracle and
// installer together behind the surfaces the CLI uses.
package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"kalitools/internal/domain"
)

// Config is the resolved runtime configuration. Durations are already
// converted from the second and millisecond fields of the config file.
type Config struct {
	BaseURL       string
	IndexPath     string
	UserAgent     string
	RequestDelay  time.Duration
	FetchTimeout  time.Duration
	RetryAttempts int
	RetryBase     time.Duration
	RetryMax      time.Duration
	StateTTL      time.Duration
	LinkCacheTTL  time.Duration
	QueryTimeout  time.Duration
	CatalogPath   string
	LinkCachePath string
	MetaPackages  []string
}

type rawConfig struct {
	BaseURL             string   `mapstructure:"baseURL"`
	IndexPath           string   `mapstructure:"indexPath"`
	UserAgent           string   `mapstructure:"userAgent"`
	RequestDelayMillis  int      `mapstructure:"requestDelayMillis"`
	FetchTimeoutSeconds int      `mapstructure:"fetchTimeoutSeconds"`
	RetryAttempts       int      `mapstructure:"retryAttempts"`
	RetryBaseMillis     int      `mapstructure:"retryBaseMillis"`
	RetryMaxMillis      int      `mapstructure:"retryMaxMillis"`
	StateTTLSeconds     int      `mapstructure:"stateTTLSeconds"`
	LinkCacheTTLHours   int      `mapstructure:"linkCacheTTLHours"`
	QueryTimeoutSeconds int      `mapstructure:"queryTimeoutSeconds"`
	CatalogPath         string   `mapstructure:"catalogPath"`
	LinkCachePath       string   `mapstructure:"linkCachePath"`
	MetaPackages        []string `mapstructure:"metaPackages"`
}

func newConfigViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	setConfigDefaults(v)
	v.SetEnvPrefix("KALITOOLS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setConfigDefaults(v *viper.Viper) {
	v.SetDefault("baseURL", domain.DefaultBaseURL)
	v.SetDefault("indexPath", domain.DefaultIndexPath)
	v.SetDefault("userAgent", domain.DefaultUserAgent)
	v.SetDefault("requestDelayMillis", domain.DefaultRequestDelayMillis)
	v.SetDefault("fetchTimeoutSeconds", domain.DefaultFetchTimeoutSecs)
	v.SetDefault("retryAttempts", domain.DefaultRetryAttempts)
	v.SetDefault("retryBaseMillis", domain.DefaultRetryBaseMillis)
	v.SetDefault("retryMaxMillis", domain.DefaultRetryMaxMillis)
	v.SetDefault("stateTTLSeconds", domain.DefaultStateTTLSeconds)
	v.SetDefault("linkCacheTTLHours", domain.DefaultLinkCacheTTLHours)
	v.SetDefault("queryTimeoutSeconds", domain.DefaultQueryTimeoutSecs)
	v.SetDefault("metaPackages", domain.MetaPackageRoots)
}

// LoadConfig reads the YAML config at path, falling back to defaults for
// anything unset. An empty path means defaults only; a path that does not
// exist is an error so typos are not silently ignored.
func LoadConfig(path string) (Config, error) {
	v := newConfigViper()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := v.ReadConfig(strings.NewReader(string(data))); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	var raw rawConfig
	if err := v.Unmarshal(&raw); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return normalizeConfig(raw)
}

func normalizeConfig(raw rawConfig) (Config, error) {
	cfg := Config{
		BaseURL:       strings.TrimRight(strings.TrimSpace(raw.BaseURL), "/"),
		IndexPath:     strings.TrimSpace(raw.IndexPath),
		UserAgent:     strings.TrimSpace(raw.UserAgent),
		RequestDelay:  time.Duration(raw.RequestDelayMillis) * time.Millisecond,
		FetchTimeout:  time.Duration(raw.FetchTimeoutSeconds) * time.Second,
		RetryAttempts: raw.RetryAttempts,
		RetryBase:     time.Duration(raw.RetryBaseMillis) * time.Millisecond,
		RetryMax:      time.Duration(raw.RetryMaxMillis) * time.Millisecond,
		StateTTL:      time.Duration(raw.StateTTLSeconds) * time.Second,
		LinkCacheTTL:  time.Duration(raw.LinkCacheTTLHours) * time.Hour,
		QueryTimeout:  time.Duration(raw.QueryTimeoutSeconds) * time.Second,
		CatalogPath:   strings.TrimSpace(raw.CatalogPath),
		LinkCachePath: strings.TrimSpace(raw.LinkCachePath),
		MetaPackages:  raw.MetaPackages,
	}
	if cfg.BaseURL == "" {
		return Config{}, fmt.Errorf("baseURL must not be empty")
	}
	if !strings.HasPrefix(cfg.IndexPath, "/") {
		return Config{}, fmt.Errorf("indexPath must start with /: %q", cfg.IndexPath)
	}
	if cfg.RetryAttempts < 1 {
		return Config{}, fmt.Errorf("retryAttempts must be at least 1")
	}
	if cfg.RequestDelay < 0 || cfg.FetchTimeout <= 0 || cfg.QueryTimeout <= 0 {
		return Config{}, fmt.Errorf("timeouts and delays must be positive")
	}

	if cfg.CatalogPath == "" || cfg.LinkCachePath == "" {
		dataDir, err := defaultDataDir()
		if err != nil {
			return Config{}, err
		}
		if cfg.CatalogPath == "" {
			cfg.CatalogPath = filepath.Join(dataDir, "catalog.json")
		}
		if cfg.LinkCachePath == "" {
			cfg.LinkCachePath = filepath.Join(dataDir, "linkcache.db")
		}
	}
	return cfg, nil
}

func defaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".kalitools"), nil
}
