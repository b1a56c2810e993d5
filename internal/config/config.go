// Package config loads runtime configuration via viper, binding the exact
// environment variable names the external interface contract fixes (spec
// section 6) rather than a CODR_-prefixed scheme.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config holds every knob named in the external interface's Configuration
// section, plus the handful of process-local defaults (bind address,
// log level) that are ambient rather than part of the wire contract.
type Config struct {
	Env         string `mapstructure:"env"`
	APIKey      string `mapstructure:"api_key"`
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	CORSOrigins string `mapstructure:"cors_origins"`

	JWTSecret             string        `mapstructure:"jwt_secret"`
	JWTAlgorithm          string        `mapstructure:"jwt_algorithm"`
	JWTExpirationMinutes  int           `mapstructure:"jwt_expiration_minutes"`

	ExecutionTimeout  time.Duration `mapstructure:"-"`
	ExecutionTimeoutS int           `mapstructure:"execution_timeout"`
	MaxMemoryMB       int           `mapstructure:"max_memory_mb"`
	MaxFileSizeMB     int           `mapstructure:"max_file_size_mb"`
	CompilationTimeoutS int         `mapstructure:"compilation_timeout"`
	MaxInputKB        int           `mapstructure:"max_input_kb"`

	RedisURL string `mapstructure:"redis_url"`
	RedisTTL int    `mapstructure:"redis_ttl"`

	RateLimitSubmit string `mapstructure:"rate_limit_submit"`
	RateLimitStream string `mapstructure:"rate_limit_stream"`

	JobQueueName       string `mapstructure:"job_queue_name"`
	WorkerPollTimeout  int    `mapstructure:"worker_poll_timeout"`
	WorkerID           string `mapstructure:"worker_id"`

	LogLevel string `mapstructure:"log_level"`
}

// Load reads configuration from environment variables (and an optional
// local config file), matching spec.md section 6's literal env var names.
func Load() (*Config, error) {
	viper.SetDefault("env", "production")
	viper.SetDefault("api_key", "")
	viper.SetDefault("host", "0.0.0.0")
	viper.SetDefault("port", 8000)
	viper.SetDefault("cors_origins", "*")
	viper.SetDefault("jwt_algorithm", "HS256")
	viper.SetDefault("jwt_expiration_minutes", 15)
	viper.SetDefault("execution_timeout", 7)
	viper.SetDefault("max_memory_mb", 300)
	viper.SetDefault("max_file_size_mb", 1)
	viper.SetDefault("compilation_timeout", 10)
	viper.SetDefault("max_input_kb", 100)
	viper.SetDefault("redis_url", "redis://localhost:6379/0")
	viper.SetDefault("redis_ttl", 3600)
	viper.SetDefault("rate_limit_submit", "10/minute")
	viper.SetDefault("rate_limit_stream", "30/minute")
	viper.SetDefault("job_queue_name", "codr:job_queue")
	viper.SetDefault("worker_poll_timeout", 5)
	viper.SetDefault("worker_id", "")
	viper.SetDefault("log_level", "INFO")

	binds := map[string]string{
		"env":                    "ENV",
		"api_key":                "API_KEY",
		"host":                   "HOST",
		"port":                   "PORT",
		"cors_origins":           "CORS_ORIGINS",
		"jwt_secret":             "JWT_SECRET",
		"jwt_algorithm":          "JWT_ALGORITHM",
		"jwt_expiration_minutes": "JWT_EXPIRATION_MINUTES",
		"execution_timeout":      "EXECUTION_TIMEOUT",
		"max_memory_mb":          "MAX_MEMORY_MB",
		"max_file_size_mb":       "MAX_FILE_SIZE_MB",
		"compilation_timeout":    "COMPILATION_TIMEOUT",
		"max_input_kb":           "MAX_INPUT_KB",
		"redis_url":              "REDIS_URL",
		"redis_ttl":              "REDIS_TTL",
		"rate_limit_submit":      "RATE_LIMIT_SUBMIT",
		"rate_limit_stream":      "RATE_LIMIT_STREAM",
		"job_queue_name":         "JOB_QUEUE_NAME",
		"worker_poll_timeout":    "WORKER_POLL_TIMEOUT",
		"worker_id":              "WORKER_ID",
		"log_level":              "LOG_LEVEL",
	}
	for field, env := range binds {
		if err := viper.BindEnv(field, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/codr/")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.ExecutionTimeout = time.Duration(cfg.ExecutionTimeoutS) * time.Second

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.JWTSecret == "" {
		return fmt.Errorf("jwt_secret must be set")
	}
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}
	if cfg.MaxInputKB <= 0 {
		return fmt.Errorf("max_input_kb must be positive")
	}
	if cfg.ExecutionTimeoutS <= 0 {
		return fmt.Errorf("execution_timeout must be positive")
	}
	return nil
}

// BindAddress returns the complete listen address.
func (c *Config) BindAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetLogLevel returns the parsed log level, defaulting to Info on error.
func (c *Config) GetLogLevel() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// IsDevelopment reports whether error detail should be exposed to clients,
// per spec section 7's "env != development" rule.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// CORSOriginList parses the comma-separated CORS origins config value.
func (c *Config) CORSOriginList() []string {
	if c.CORSOrigins == "*" || c.CORSOrigins == "" {
		return []string{"*"}
	}
	parts := strings.Split(c.CORSOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
