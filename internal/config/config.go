package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"expensetracker/internal/log"
)

type Config struct {
	// HTTP Server
	Port string `yaml:"port"`

	// Storage
	DataBackend  string `yaml:"data_backend"`
	DataDir      string `yaml:"data_dir"`
	LedgerFile   string `yaml:"ledger_file"`
	SummaryFile  string `yaml:"summary_file"`
	SQLiteDBPath string `yaml:"sqlite_db_path"`
	PostgresDSN  string `yaml:"postgres_dsn"`

	// AMQP change notifications, disabled when AMQPURL is empty
	AMQPURL        string `yaml:"amqp_url"`
	AMQPExchange   string `yaml:"amqp_exchange"`
	AMQPRoutingKey string `yaml:"amqp_routing_key"`

	LogLevel string `yaml:"log_level"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Port:           "8081",
		DataBackend:    "file",
		DataDir:        "data",
		LedgerFile:     "expenses.json",
		SummaryFile:    "category_total.txt",
		SQLiteDBPath:   "ledger.db",
		AMQPExchange:   "expenses",
		AMQPRoutingKey: "ledger.events",
		LogLevel:       "info",
	}
}

// Load reads an optional YAML file, applies environment overrides and then
// fills every unset field from Defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	applyEnv(cfg)

	if err := mergo.Merge(cfg, Defaults()); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setFromEnv(&cfg.Port, "PORT")
	setFromEnv(&cfg.DataBackend, "DATA_BACKEND")
	setFromEnv(&cfg.DataDir, "DATA_DIR")
	setFromEnv(&cfg.LedgerFile, "LEDGER_FILE")
	setFromEnv(&cfg.SummaryFile, "SUMMARY_FILE")
	setFromEnv(&cfg.SQLiteDBPath, "SQLITE_DB_PATH")
	setFromEnv(&cfg.PostgresDSN, "POSTGRES_DSN")
	setFromEnv(&cfg.AMQPURL, "AMQP_URL")
	setFromEnv(&cfg.AMQPExchange, "AMQP_EXCHANGE")
	setFromEnv(&cfg.AMQPRoutingKey, "AMQP_ROUTING_KEY")
	setFromEnv(&cfg.LogLevel, "LOG_LEVEL")
}

// LedgerPath resolves the ledger file against DataDir unless it is absolute.
func (c *Config) LedgerPath() string {
	return c.resolve(c.LedgerFile)
}

// SummaryPath resolves the summary file against DataDir unless it is absolute.
func (c *Config) SummaryPath() string {
	return c.resolve(c.SummaryFile)
}

// SQLitePath resolves the SQLite database against DataDir unless it is absolute.
func (c *Config) SQLitePath() string {
	return c.resolve(c.SQLiteDBPath)
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) || c.DataDir == "" {
		return p
	}
	return filepath.Join(c.DataDir, p)
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"file", "memory", "sqlite", "postgres"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "file":
		if c.LedgerFile == "" {
			errors = append(errors, "ledger file cannot be empty when using file backend")
		}
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		}
	case "postgres":
		if c.PostgresDSN == "" {
			errors = append(errors, "Postgres DSN is required when using postgres backend")
		}
	}

	if c.SummaryFile == "" {
		errors = append(errors, "summary file cannot be empty")
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPRoutingKey == "" {
			errors = append(errors, "AMQP routing key cannot be empty when AMQP URL is provided")
		}
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func setFromEnv(dst *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}
