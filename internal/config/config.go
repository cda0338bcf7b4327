package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// Database
	DBDriver string
	DBDSN    string

	// Servers
	GRPCAddr string
	HTTPAddr string
	APIToken string

	// Logging
	LogLevel  string
	LogFormat string

	// AMQP, disabled when the URL is empty
	AMQPURL      string
	AMQPExchange string

	// Reports and commission engine
	ReportLimit   int
	RuleCacheSize int
}

// Load reads configuration from the environment.
// A .env file in the working directory is applied first when present; real environment
// variables win over it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return fromViper(v), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DB_DSN", "file:fundledger.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	v.SetDefault("GRPC_ADDR", ":50051")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("AMQP_EXCHANGE", "fundledger")
	v.SetDefault("REPORT_LIMIT", 100)
	v.SetDefault("RULE_CACHE_SIZE", 128)
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		DBDriver:      strings.ToLower(v.GetString("DB_DRIVER")),
		DBDSN:         v.GetString("DB_DSN"),
		GRPCAddr:      v.GetString("GRPC_ADDR"),
		HTTPAddr:      v.GetString("HTTP_ADDR"),
		APIToken:      v.GetString("API_TOKEN"),
		LogLevel:      v.GetString("LOG_LEVEL"),
		LogFormat:     v.GetString("LOG_FORMAT"),
		AMQPURL:       v.GetString("AMQP_URL"),
		AMQPExchange:  v.GetString("AMQP_EXCHANGE"),
		ReportLimit:   v.GetInt("REPORT_LIMIT"),
		RuleCacheSize: v.GetInt("RULE_CACHE_SIZE"),
	}
}

// Validate validates the configuration and returns every problem found
func (c *Config) Validate() error {
	var errors []string

	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		errors = append(errors, fmt.Sprintf("invalid database driver '%s': must be one of [sqlite postgres]", c.DBDriver))
	}
	if strings.TrimSpace(c.DBDSN) == "" {
		errors = append(errors, "database DSN cannot be empty")
	}

	for name, addr := range map[string]string{"gRPC": c.GRPCAddr, "HTTP": c.HTTPAddr} {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid %s address '%s': %v", name, addr, err))
		}
	}
	if c.GRPCAddr != "" && c.GRPCAddr == c.HTTPAddr {
		errors = append(errors, fmt.Sprintf("gRPC and HTTP cannot share address '%s'", c.GRPCAddr))
	}

	switch strings.ToLower(c.LogFormat) {
	case "json", "console":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'json' or 'console'", c.LogFormat))
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
	}

	if c.ReportLimit < 1 || c.ReportLimit > 200 {
		errors = append(errors, fmt.Sprintf("invalid report limit %d: must be between 1 and 200", c.ReportLimit))
	}
	if c.RuleCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid rule cache size %d: must be at least 1", c.RuleCacheSize))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}
