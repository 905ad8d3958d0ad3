// Package config loads engine configuration from a YAML file with
// LEASENOTIFY_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration
type Config struct {
	ListenAddr   string          `mapstructure:"listen_addr"`
	DatabasePath string          `mapstructure:"database_path"`
	Dispatch     DispatchConfig  `mapstructure:"dispatch"`
	Sender       SenderConfig    `mapstructure:"sender"`
	Scheduler    SchedulerConfig `mapstructure:"scheduler"`
}

// DispatchConfig bounds the dispatch worker
type DispatchConfig struct {
	Concurrency       int           `mapstructure:"concurrency"`
	SendTimeout       time.Duration `mapstructure:"send_timeout"`
	MaxSendsPerMinute int           `mapstructure:"max_sends_per_minute"`
}

// SenderConfig selects and configures the delivery channel.
// Kind is one of "log", "shoutrrr", "webhook".
type SenderConfig struct {
	Kind         string   `mapstructure:"kind"`
	ShoutrrrURLs []string `mapstructure:"shoutrrr_urls"`
	WebhookURL   string   `mapstructure:"webhook_url"`
	WebhookToken string   `mapstructure:"webhook_token"`
}

// SchedulerConfig controls the periodic generate-then-process sweep
type SchedulerConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// Load reads configuration from the given file, or from the default search
// paths when path is empty. Missing default config files are fine; an
// explicitly named file must exist.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("database_path", "leasenotify.db")
	v.SetDefault("dispatch.concurrency", 4)
	v.SetDefault("dispatch.send_timeout", "30s")
	v.SetDefault("dispatch.max_sends_per_minute", 0)
	v.SetDefault("sender.kind", "log")
	v.SetDefault("scheduler.interval", "24h")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("leasenotify")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/leasenotify")
	}

	v.SetEnvPrefix("LEASENOTIFY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Sender.Kind {
	case "log":
	case "shoutrrr":
		if len(c.Sender.ShoutrrrURLs) == 0 {
			return errors.New("sender.shoutrrr_urls is required for the shoutrrr sender")
		}
	case "webhook":
		if c.Sender.WebhookURL == "" {
			return errors.New("sender.webhook_url is required for the webhook sender")
		}
	default:
		return fmt.Errorf("unknown sender kind %q", c.Sender.Kind)
	}

	if c.Dispatch.Concurrency < 1 {
		return errors.New("dispatch.concurrency must be at least 1")
	}
	if c.Dispatch.SendTimeout <= 0 {
		return errors.New("dispatch.send_timeout must be positive")
	}

	return nil
}
