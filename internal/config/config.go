package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"recurring/internal/core"
	"recurring/internal/log"
)

// EnvPrefix namespaces environment variables; unprefixed names are accepted
// as a fallback.
const EnvPrefix = "RECURRING"

type Config struct {
	// Database
	SQLiteDBPath string

	// AMQP, empty URL disables event publishing
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Worker
	ProcessorInterval time.Duration
	LookaheadMonths   int
	WorkerConcurrency int
	DefaultAccountID  string

	// Materializer
	ClampPolicy     string
	MaxStepsPerPass int

	// Logging
	LogLevel  string
	LogFormat string
}

var defaults = map[string]any{
	"sqlite_db_path":     "./data/recurring.db",
	"amqp_url":           "",
	"amqp_exchange":      "recurring",
	"amqp_queue":         "occurrences_generated",
	"processor_interval": time.Hour,
	"lookahead_months":   1,
	"worker_concurrency": 4,
	"default_account_id": "",
	"clamp_policy":       "anchor",
	"max_steps_per_pass": 10000,
	"log_level":          "info",
	"log_format":         "text",
}

// Load reads configuration from the environment only.
func Load() *Config {
	cfg, err := LoadFile("")
	if err != nil {
		// Only file reads can fail.
		panic(err)
	}
	return cfg
}

// LoadFile reads an optional YAML file and lets environment variables
// override it.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
		env := strings.ToUpper(key)
		if err := v.BindEnv(key, EnvPrefix+"_"+env, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	return &Config{
		SQLiteDBPath: v.GetString("sqlite_db_path"),

		AMQPURL:      v.GetString("amqp_url"),
		AMQPExchange: v.GetString("amqp_exchange"),
		AMQPQueue:    v.GetString("amqp_queue"),

		ProcessorInterval: v.GetDuration("processor_interval"),
		LookaheadMonths:   v.GetInt("lookahead_months"),
		WorkerConcurrency: v.GetInt("worker_concurrency"),
		DefaultAccountID:  v.GetString("default_account_id"),

		ClampPolicy:     v.GetString("clamp_policy"),
		MaxStepsPerPass: v.GetInt("max_steps_per_pass"),

		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),
	}, nil
}

// Policy returns the parsed clamp policy, defaulting to anchoring.
func (c *Config) Policy() core.ClampPolicy {
	p, err := core.ParseClampPolicy(c.ClampPolicy)
	if err != nil {
		return core.AnchorToStartDay
	}
	return p
}

// AMQPEnabled reports whether an AMQP URL is configured.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var problems []string

	if c.SQLiteDBPath == "" {
		problems = append(problems, "SQLite database path cannot be empty")
	} else {
		// Check if directory exists or can be created
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					problems = append(problems, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			problems = append(problems, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.ProcessorInterval < time.Second {
		problems = append(problems, fmt.Sprintf("invalid processor interval %v: must be at least 1 second", c.ProcessorInterval))
	} else if c.ProcessorInterval > 24*time.Hour {
		problems = append(problems, fmt.Sprintf("invalid processor interval %v: must be at most 24 hours", c.ProcessorInterval))
	}

	if c.LookaheadMonths < 0 || c.LookaheadMonths > 120 {
		problems = append(problems, fmt.Sprintf("invalid lookahead %d: must be between 0 and 120 months", c.LookaheadMonths))
	}

	if c.WorkerConcurrency < 1 || c.WorkerConcurrency > 64 {
		problems = append(problems, fmt.Sprintf("invalid worker concurrency %d: must be between 1 and 64", c.WorkerConcurrency))
	}

	if _, err := core.ParseClampPolicy(c.ClampPolicy); err != nil {
		problems = append(problems, err.Error())
	}

	if c.MaxStepsPerPass < 1 {
		problems = append(problems, fmt.Sprintf("invalid max steps per pass %d: must be at least 1", c.MaxStepsPerPass))
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, err.Error())
	}

	if c.LogFormat != "text" && c.LogFormat != "json" {
		problems = append(problems, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	// Return combined errors
	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}

	return nil
}
