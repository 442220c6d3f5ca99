// Package config loads server settings from config.toml and BKO_ prefixed
// environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Log       LogConfig       `mapstructure:"log"`
	Event     EventConfig     `mapstructure:"event"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
	Output string `mapstructure:"output"` // stdout, stderr or a file path
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Port string `mapstructure:"port"`
}

func (a AppConfig) IsProduction() bool { return a.Env == "production" }

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // minutes
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // minutes
	// LockTimeout bounds how long a ledger write waits for a cash box row lock
	LockTimeout      time.Duration `mapstructure:"lock_timeout"`
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig verifies access tokens issued by the identity service
type JWTConfig struct {
	Secret                string        `mapstructure:"secret"`
	Issuer                string        `mapstructure:"issuer"`
	AccessTokenExpiration time.Duration `mapstructure:"access_token_expiration"`
}

type EventConfig struct {
	ProcessorEnabled bool          `mapstructure:"processor_enabled"`
	BatchSize        int           `mapstructure:"batch_size"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	MaxRetries       int           `mapstructure:"max_retries"`
	CleanupEnabled   bool          `mapstructure:"cleanup_enabled"`
	CleanupRetention time.Duration `mapstructure:"cleanup_retention"`
	// IdempotencyBackend is "memory" or "redis"
	IdempotencyBackend string        `mapstructure:"idempotency_backend"`
	IdempotencyTTL     time.Duration `mapstructure:"idempotency_ttl"`
}

type HTTPConfig struct {
	ReadTimeout      time.Duration `mapstructure:"read_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	IdleTimeout      time.Duration `mapstructure:"idle_timeout"`
	MaxHeaderBytes   int           `mapstructure:"max_header_bytes"`
	MaxBodySize      int64         `mapstructure:"max_body_size"`
	CORSAllowOrigins []string      `mapstructure:"cors_allow_origins"`
	CORSAllowMethods []string      `mapstructure:"cors_allow_methods"`
	CORSAllowHeaders []string      `mapstructure:"cors_allow_headers"`
	TrustedProxies   []string      `mapstructure:"trusted_proxies"`
	// RateLimitRPS is the per-client request rate; zero disables limiting
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// SchedulerConfig drives the nightly cashflow rebuild
type SchedulerConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	DailyCronSchedule string        `mapstructure:"daily_cron_schedule"`
	MaxConcurrentJobs int           `mapstructure:"max_concurrent_jobs"`
	JobTimeout        time.Duration `mapstructure:"job_timeout"`
	RetryAttempts     int           `mapstructure:"retry_attempts"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"`
}

type LedgerConfig struct {
	Currency               string     `mapstructure:"currency"`
	DirectorFundID         *uuid.UUID `mapstructure:"-"`
	DirectorSpendingItemID *uuid.UUID `mapstructure:"-"`
	// AllocationEpsilon is the tolerance between a split's lines and the
	// transaction sum
	AllocationEpsilon decimal.Decimal `mapstructure:"allocation_epsilon"`
}

type TelemetryConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	CollectorEndpoint string        `mapstructure:"collector_endpoint"` // OTLP gRPC, host:port
	SamplingRatio     float64       `mapstructure:"sampling_ratio"`
	ServiceName       string        `mapstructure:"service_name"`
	Insecure          bool          `mapstructure:"insecure"`
	MetricsEnabled    bool          `mapstructure:"metrics_enabled"`
	MetricsInterval   time.Duration `mapstructure:"metrics_interval"`
	LogsEnabled       bool          `mapstructure:"logs_enabled"`
	DBTraceEnabled    bool          `mapstructure:"db_trace_enabled"`
	DBLogFullSQL      bool          `mapstructure:"db_log_full_sql"`
	DBSlowQueryThresh time.Duration `mapstructure:"db_slow_query_threshold"`
	ProfilingEnabled  bool          `mapstructure:"profiling_enabled"`
	PyroscopeEndpoint string        `mapstructure:"pyroscope_endpoint"`
}

// defaults lists every key. Viper only maps environment variables onto keys
// it knows, so secrets without a default are listed with an empty value.
var defaults = map[string]any{
	"app.name": "backoffice",
	"app.env":  "development",
	"app.port": "8080",

	"database.host":               "localhost",
	"database.port":               5432,
	"database.user":               "postgres",
	"database.password":           "",
	"database.dbname":             "backoffice",
	"database.sslmode":            "disable",
	"database.max_open_conns":     25,
	"database.max_idle_conns":     5,
	"database.conn_max_lifetime":  60,
	"database.conn_max_idle_time": 30,
	"database.lock_timeout":       "5s",
	"database.statement_timeout":  "30s",

	"redis.host":     "localhost",
	"redis.port":     6379,
	"redis.password": "",
	"redis.db":       0,

	"jwt.secret":                  "",
	"jwt.issuer":                  "backoffice",
	"jwt.access_token_expiration": "15m",

	"log.level":  "info",
	"log.format": "console",
	"log.output": "stdout",

	"event.processor_enabled":   true,
	"event.batch_size":          100,
	"event.poll_interval":       "5s",
	"event.max_retries":         5,
	"event.cleanup_enabled":     true,
	"event.cleanup_retention":   "168h",
	"event.idempotency_backend": "memory",
	"event.idempotency_ttl":     "24h",

	"http.read_timeout":       "15s",
	"http.write_timeout":      "15s",
	"http.idle_timeout":       "60s",
	"http.max_header_bytes":   1 << 20,
	"http.max_body_size":      1 << 20,
	"http.cors_allow_origins": []string{},
	"http.cors_allow_methods": []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
	"http.cors_allow_headers": []string{"Content-Type", "Authorization", "X-Request-ID", "X-Company-ID"},
	"http.trusted_proxies":    []string{},
	"http.rate_limit_rps":     0.0,
	"http.rate_limit_burst":   0,

	"scheduler.enabled":             true,
	"scheduler.daily_cron_schedule": "0 2 * * *",
	"scheduler.max_concurrent_jobs": 3,
	"scheduler.job_timeout":         "30m",
	"scheduler.retry_attempts":      3,
	"scheduler.retry_delay":         "5m",

	"ledger.currency":                  "RUB",
	"ledger.director_fund_id":          "",
	"ledger.director_spending_item_id": "",
	"ledger.allocation_epsilon":        "0.01",

	"telemetry.enabled":                 false,
	"telemetry.collector_endpoint":      "localhost:4317",
	"telemetry.sampling_ratio":          1.0,
	"telemetry.service_name":            "backoffice",
	"telemetry.insecure":                false,
	"telemetry.metrics_enabled":         false,
	"telemetry.metrics_interval":        "60s",
	"telemetry.logs_enabled":            false,
	"telemetry.db_trace_enabled":        false,
	"telemetry.db_log_full_sql":         false,
	"telemetry.db_slow_query_threshold": "200ms",
	"telemetry.profiling_enabled":       false,
	"telemetry.pyroscope_endpoint":      "http://localhost:4040",
}

// Load reads config.toml from ., ./config or /etc/backoffice, if present,
// and lets BKO_<SECTION>_<KEY> variables override it
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/backoffice")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("BKO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.TextUnmarshallerHookFunc(),
	)))
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.Ledger.DirectorFundID, err = optionalUUID(v, "ledger.director_fund_id"); err != nil {
		return nil, err
	}
	if cfg.Ledger.DirectorSpendingItemID, err = optionalUUID(v, "ledger.director_spending_item_id"); err != nil {
		return nil, err
	}
	if cfg.HTTP.RateLimitRPS > 0 && cfg.HTTP.RateLimitBurst == 0 {
		cfg.HTTP.RateLimitBurst = max(1, int(cfg.HTTP.RateLimitRPS)*2)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func optionalUUID(v *viper.Viper, key string) (*uuid.UUID, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return &id, nil
}

// validate reports every problem at once
func (c *Config) validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	db := c.Database
	check(db.MaxOpenConns > 0, "database.max_open_conns must be positive")
	check(db.MaxIdleConns >= 0, "database.max_idle_conns cannot be negative")
	check(db.MaxIdleConns <= db.MaxOpenConns,
		"database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)", db.MaxIdleConns, db.MaxOpenConns)
	check(db.LockTimeout >= 0 && db.StatementTimeout >= 0, "database timeouts cannot be negative")

	check(len(c.Ledger.Currency) == 3, "ledger.currency must be a 3-letter code, got %q", c.Ledger.Currency)
	check(!c.Ledger.AllocationEpsilon.IsNegative(), "ledger.allocation_epsilon cannot be negative")
	check(c.Event.IdempotencyBackend == "memory" || c.Event.IdempotencyBackend == "redis",
		"event.idempotency_backend must be memory or redis, got %q", c.Event.IdempotencyBackend)
	check(c.Telemetry.SamplingRatio >= 0 && c.Telemetry.SamplingRatio <= 1,
		"telemetry.sampling_ratio must be between 0 and 1, got %g", c.Telemetry.SamplingRatio)

	if c.App.IsProduction() {
		check(len(c.JWT.Secret) >= 32, "jwt.secret must be at least 32 characters in production")
		check(db.Password != "", "database.password is required in production")
		check(db.SSLMode != "disable", "database.sslmode cannot be disable in production")
		check(!slices.Contains(c.HTTP.CORSAllowOrigins, "*"), "http.cors_allow_origins cannot contain * in production")
		check(!c.Telemetry.DBLogFullSQL, "telemetry.db_log_full_sql must be false in production")
	}
	return errors.Join(errs...)
}

// DSN is the postgres URL for d. Lock and statement timeouts travel as
// startup options so every pooled session inherits them.
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := url.Values{"sslmode": {d.SSLMode}}
	var opts []string
	if d.LockTimeout > 0 {
		opts = append(opts, fmt.Sprintf("-c lock_timeout=%d", d.LockTimeout.Milliseconds()))
	}
	if d.StatementTimeout > 0 {
		opts = append(opts, fmt.Sprintf("-c statement_timeout=%d", d.StatementTimeout.Milliseconds()))
	}
	if len(opts) > 0 {
		q.Set("options", strings.Join(opts, " "))
	}
	u.RawQuery = q.Encode()
	return u.String()
}
