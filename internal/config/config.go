package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	DB         DBConfig         `yaml:"db"`
	Log        LogConfig        `yaml:"log"`
	Auth       AuthConfig       `yaml:"auth"`
	Transport  TransportConfig  `yaml:"transport"`
	Lifecycle  LifecycleConfig  `yaml:"lifecycle"`
	Ledger     LedgerConfig     `yaml:"ledger"`
	Sweep      SweepConfig      `yaml:"sweep"`
	Acceptance AcceptanceConfig `yaml:"acceptance"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DBConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver          string        `yaml:"driver"`
	Path            string        `yaml:"path"`
	URL             string        `yaml:"url"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	PingTimeout     time.Duration `yaml:"ping_timeout"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

type AuthConfig struct {
	Enabled bool `yaml:"enabled"`
}

type TransportConfig struct {
	// Mode is "http" or "stdio".
	Mode string `yaml:"mode"`
}

type LifecycleConfig struct {
	InitialStatus   string `yaml:"initial_status"`
	MinReasonLength int    `yaml:"min_reason_length"`
	// TablePath optionally replaces the built-in state table.
	TablePath string `yaml:"table_path"`
}

type LedgerConfig struct {
	MinReasonLength int           `yaml:"min_reason_length"`
	LockTimeout     time.Duration `yaml:"lock_timeout"`
}

type SweepConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

type AcceptanceConfig struct {
	// ExhaustedHours is "warn" or "block".
	ExhaustedHours string `yaml:"exhausted_hours"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ShutdownTimeout: 5 * time.Second,
		},
		DB: DBConfig{
			Driver:          "sqlite",
			Path:            "hourbank.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			PingTimeout:     2 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
		Transport: TransportConfig{
			Mode: "http",
		},
		Lifecycle: LifecycleConfig{
			InitialStatus:   "Active",
			MinReasonLength: 3,
		},
		Ledger: LedgerConfig{
			MinReasonLength: 3,
			LockTimeout:     5 * time.Second,
		},
		Sweep: SweepConfig{
			Enabled:  true,
			Interval: time.Hour,
		},
		Acceptance: AcceptanceConfig{
			ExhaustedHours: "warn",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("HOURBANK_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) error {
		v := os.Getenv(key)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = n
		return nil
	}
	setBool := func(key string, dst *bool) error {
		v := os.Getenv(key)
		if v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = b
		return nil
	}
	setDuration := func(key string, dst *time.Duration) error {
		v := os.Getenv(key)
		if v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = d
		return nil
	}

	setString("HOURBANK_SERVER_HOST", &cfg.Server.Host)
	setString("HOURBANK_DB_DRIVER", &cfg.DB.Driver)
	setString("HOURBANK_DB_PATH", &cfg.DB.Path)
	setString("HOURBANK_DB_URL", &cfg.DB.URL)
	setString("HOURBANK_LOG_LEVEL", &cfg.Log.Level)
	setString("HOURBANK_LOG_PATH", &cfg.Log.Path)
	setString("HOURBANK_TRANSPORT_MODE", &cfg.Transport.Mode)
	setString("HOURBANK_LIFECYCLE_TABLE_PATH", &cfg.Lifecycle.TablePath)
	setString("HOURBANK_INITIAL_STATUS", &cfg.Lifecycle.InitialStatus)
	setString("HOURBANK_EXHAUSTED_HOURS", &cfg.Acceptance.ExhaustedHours)
	setString("HOURBANK_METRICS_PATH", &cfg.Metrics.Path)

	return errors.Join(
		setInt("HOURBANK_SERVER_PORT", &cfg.Server.Port),
		setBool("HOURBANK_AUTH_ENABLED", &cfg.Auth.Enabled),
		setBool("HOURBANK_SWEEP_ENABLED", &cfg.Sweep.Enabled),
		setBool("HOURBANK_METRICS_ENABLED", &cfg.Metrics.Enabled),
		setDuration("HOURBANK_SWEEP_INTERVAL", &cfg.Sweep.Interval),
		setDuration("HOURBANK_LOCK_TIMEOUT", &cfg.Ledger.LockTimeout),
	)
}

// Validate checks ranges and enumerations.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server port %d out of range", c.Server.Port))
	}
	switch strings.ToLower(c.DB.Driver) {
	case "sqlite":
		if c.DB.Path == "" {
			errs = append(errs, errors.New("db path is required for sqlite"))
		}
	case "postgres":
		if c.DB.URL == "" {
			errs = append(errs, errors.New("db url is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown db driver %q (want sqlite or postgres)", c.DB.Driver))
	}
	switch c.Transport.Mode {
	case "http", "stdio":
	default:
		errs = append(errs, fmt.Errorf("unknown transport mode %q (want http or stdio)", c.Transport.Mode))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.Log.Level))
	}
	if c.Lifecycle.InitialStatus == "" {
		errs = append(errs, errors.New("lifecycle initial status is required"))
	}
	if c.Lifecycle.MinReasonLength < 1 || c.Ledger.MinReasonLength < 1 {
		errs = append(errs, errors.New("minimum reason length must be at least 1"))
	}
	if c.Ledger.LockTimeout <= 0 {
		errs = append(errs, errors.New("lock timeout must be positive"))
	}
	if c.Sweep.Enabled && c.Sweep.Interval <= 0 {
		errs = append(errs, errors.New("sweep interval must be positive"))
	}
	switch strings.ToLower(c.Acceptance.ExhaustedHours) {
	case "warn", "block":
	default:
		errs = append(errs, fmt.Errorf("unknown exhausted hours policy %q (want warn or block)", c.Acceptance.ExhaustedHours))
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		errs = append(errs, fmt.Errorf("metrics path %q must start with /", c.Metrics.Path))
	}
	return errors.Join(errs...)
}
