// Package config provides the app's configuration.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	dbPathDefault   = "."
	logLevelDefault = slog.LevelInfo
	timeoutDefault  = 30
)

type Config struct {
	App      ConfigApp
	Feeds    []ConfigFeed
	Webhooks []ConfigWebhook
}

// Webhook returns the webhook with the given name.
func (c Config) Webhook(name string) (ConfigWebhook, bool) {
	for _, w := range c.Webhooks {
		if w.Name == name {
			return w, true
		}
	}
	return ConfigWebhook{}, false
}

// Feed returns the feed with the given name.
func (c Config) Feed(name string) (ConfigFeed, bool) {
	for _, f := range c.Feeds {
		if f.Name == name {
			return f, true
		}
	}
	return ConfigFeed{}, false
}

type ConfigApp struct {
	BrandingDisabled bool   `toml:"branding_disabled"`
	DBPath           string `toml:"db_path"`
	LogLevel         string `toml:"loglevel"`
	Timeout          int    `toml:"timeout"`
}

func (ca ConfigApp) LoggerLevel() slog.Level {
	m := map[string]slog.Level{"DEBUG": slog.LevelDebug, "INFO": slog.LevelInfo, "WARN": slog.LevelWarn, "ERROR": slog.LevelError}
	v, ok := m[strings.ToUpper(ca.LogLevel)]
	if !ok {
		return logLevelDefault
	}
	return v
}

type ConfigFeed struct {
	Name     string   `toml:"name"`
	URL      string   `toml:"url"`
	Webhooks []string `toml:"webhooks"`
}

type ConfigWebhook struct {
	Name string `toml:"name"`
	URL  string `toml:"url"`
}

// FromFile reads the configuration from a TOML file.
func FromFile(path string) (Config, error) {
	var config Config
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return config, err
	}
	if err := parseConfig(&config); err != nil {
		return config, err
	}
	return config, nil
}

// Default returns a configuration with defaults only.
func Default() Config {
	var config Config
	setDefaults(&config)
	return config
}

func parseConfig(config *Config) error {
	webhookNames := make(map[string]bool)
	webhookURLs := make(map[string]bool)
	for _, x := range config.Webhooks {
		if x.Name == "" {
			return fmt.Errorf("one webhook has no name")
		}
		if x.URL == "" {
			return fmt.Errorf("webhook %s has no url", x.Name)
		}
		if _, err := url.ParseRequestURI(x.URL); err != nil {
			return fmt.Errorf("webhook %s has invalid url: %w", x.Name, err)
		}
		if webhookNames[x.Name] {
			return fmt.Errorf("webhook name %s not unique", x.Name)
		}
		webhookNames[x.Name] = true
		if webhookURLs[x.URL] {
			return fmt.Errorf("webhook url of %s not unique", x.Name)
		}
		webhookURLs[x.URL] = true
	}
	feedNames := make(map[string]bool)
	for _, x := range config.Feeds {
		if x.Name == "" {
			return fmt.Errorf("feed has no name")
		}
		if len(x.Webhooks) == 0 {
			return fmt.Errorf("feed %s has no webhooks", x.Name)
		}
		if x.URL == "" {
			return fmt.Errorf("feed %s has no url", x.Name)
		}
		if feedNames[x.Name] {
			return fmt.Errorf("feed name %s not unique", x.Name)
		}
		feedNames[x.Name] = true
		if _, err := url.ParseRequestURI(x.URL); err != nil {
			return fmt.Errorf("feed %s has invalid url: %w", x.Name, err)
		}
		feedWebhooks := make(map[string]bool)
		for _, wh := range x.Webhooks {
			if !webhookNames[wh] {
				return fmt.Errorf("feed \"%s\": invalid webhook \"%s\"", x.Name, wh)
			}
			if feedWebhooks[wh] {
				return fmt.Errorf("feed \"%s\": webhook \"%s\" used more then once", x.Name, wh)
			}
			feedWebhooks[wh] = true
		}
	}
	setDefaults(config)
	return nil
}

func setDefaults(config *Config) {
	if config.App.Timeout <= 0 {
		config.App.Timeout = timeoutDefault
	}
	if config.App.DBPath == "" {
		config.App.DBPath = dbPathDefault
	}
}
