package config

import (
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML overlay schema. Only fields present in the file
// override the environment; durations are Go duration strings ("30s").
type fileConfig struct {
	Server struct {
		Host         string `yaml:"host"`
		Port         string `yaml:"port"`
		HealthPort   string `yaml:"health_port"`
		CookieSecure *bool  `yaml:"cookie_secure"`
	} `yaml:"server"`
	Database struct {
		URL          string `yaml:"url"`
		MaxOpenConns int    `yaml:"max_open_conns"`
		MaxIdleConns int    `yaml:"max_idle_conns"`
	} `yaml:"database"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       *int   `yaml:"db"`
		CacheTTL string `yaml:"cache_ttl"`
	} `yaml:"redis"`
	Auth struct {
		OIDCIssuerURL string `yaml:"oidc_issuer_url"`
		OIDCClientID  string `yaml:"oidc_client_id"`
	} `yaml:"auth"`
	Audit struct {
		FilePath        string `yaml:"file_path"`
		Retention       string `yaml:"retention"`
		JanitorSchedule string `yaml:"janitor_schedule"`
	} `yaml:"audit"`
}

// applyFile overlays YAML file values onto the config
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if fc.Server.Host != "" {
		c.Server.Host = fc.Server.Host
	}
	if fc.Server.Port != "" {
		c.Server.Port = fc.Server.Port
	}
	if fc.Server.HealthPort != "" {
		c.Server.HealthPort = fc.Server.HealthPort
	}
	if fc.Server.CookieSecure != nil {
		c.Server.CookieSecure = *fc.Server.CookieSecure
	}

	if fc.Database.URL != "" {
		c.Database.URL = fc.Database.URL
	}
	if fc.Database.MaxOpenConns > 0 {
		c.Database.MaxOpenConns = fc.Database.MaxOpenConns
	}
	if fc.Database.MaxIdleConns > 0 {
		c.Database.MaxIdleConns = fc.Database.MaxIdleConns
	}

	if fc.Redis.Addr != "" {
		c.Redis.Addr = fc.Redis.Addr
	}
	if fc.Redis.Password != "" {
		c.Redis.Password = fc.Redis.Password
	}
	if fc.Redis.DB != nil {
		c.Redis.DB = *fc.Redis.DB
	}
	if fc.Redis.CacheTTL != "" {
		ttl, err := time.ParseDuration(fc.Redis.CacheTTL)
		if err != nil {
			return fmt.Errorf("invalid redis cache_ttl: %w", err)
		}
		c.Redis.CacheTTL = ttl
	}

	if fc.Auth.OIDCIssuerURL != "" {
		c.Auth.OIDCIssuerURL = fc.Auth.OIDCIssuerURL
	}
	if fc.Auth.OIDCClientID != "" {
		c.Auth.OIDCClientID = fc.Auth.OIDCClientID
	}

	if fc.Audit.FilePath != "" {
		c.Audit.FilePath = fc.Audit.FilePath
	}
	if fc.Audit.Retention != "" {
		retention, err := time.ParseDuration(fc.Audit.Retention)
		if err != nil {
			return fmt.Errorf("invalid audit retention: %w", err)
		}
		c.Audit.Retention = retention
	}
	if fc.Audit.JanitorSchedule != "" {
		c.Audit.JanitorSchedule = fc.Audit.JanitorSchedule
	}

	return nil
}

// Watch reloads the configuration when the file at path changes and calls
// onChange with each successfully reloaded and validated config. Parse and
// validation failures keep the previous config and are reported through
// onError. Watch blocks until the watcher fails or stop is closed.
func Watch(path string, stop <-chan struct{}, onChange func(*Config), onError func(error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := LoadConfig()
			if err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			onChange(cfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if onError != nil {
				onError(err)
			}
		case <-stop:
			return nil
		}
	}
}
