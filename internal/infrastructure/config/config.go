package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Cache     CacheConfig
	Analytics AnalyticsConfig
	Scheduler SchedulerConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	TrustedProxies []string
}

// CacheConfig holds two-tier cache settings.
// Backend selects the durable tier: "database" keeps cache rows in
// Postgres, "redis" shares them across instances.
type CacheConfig struct {
	Backend         string
	KeyPrefix       string
	FastMaxEntries  int
	CleanupInterval time.Duration
}

// AnalyticsConfig holds scorer staleness windows and cache TTLs.
// Churn carries no staleness window: it is always recomputed fresh.
type AnalyticsConfig struct {
	RFMStaleness            time.Duration
	CLVStaleness            time.Duration
	RFMCacheTTLHours        int
	CLVCacheTTLHours        int
	SegmentOverviewTTLHours int
	TopCLVTTLHours          int
	RecommendationTTLHours  int
	CollaborativeSampleSize int
}

// SchedulerConfig holds batch recomputation intervals, in hours per job
type SchedulerConfig struct {
	Enabled                     bool
	RFMIntervalHours            int
	CLVIntervalHours            int
	ChurnIntervalHours          int
	RecommendationIntervalHours int
}

// Load loads configuration from TOML file and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with ANALYTICS_ prefix (e.g. ANALYTICS_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("ANALYTICS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
		},
		Cache: CacheConfig{
			Backend:         v.GetString("cache.backend"),
			KeyPrefix:       v.GetString("cache.key_prefix"),
			FastMaxEntries:  v.GetInt("cache.fast_max_entries"),
			CleanupInterval: v.GetDuration("cache.cleanup_interval"),
		},
		Analytics: AnalyticsConfig{
			RFMStaleness:            v.GetDuration("analytics.rfm_staleness"),
			CLVStaleness:            v.GetDuration("analytics.clv_staleness"),
			RFMCacheTTLHours:        v.GetInt("analytics.rfm_cache_ttl_hours"),
			CLVCacheTTLHours:        v.GetInt("analytics.clv_cache_ttl_hours"),
			SegmentOverviewTTLHours: v.GetInt("analytics.segment_overview_ttl_hours"),
			TopCLVTTLHours:          v.GetInt("analytics.top_clv_ttl_hours"),
			RecommendationTTLHours:  v.GetInt("analytics.recommendation_ttl_hours"),
			CollaborativeSampleSize: v.GetInt("analytics.collaborative_sample_size"),
		},
		Scheduler: SchedulerConfig{
			Enabled:                     v.GetBool("scheduler.enabled"),
			RFMIntervalHours:            v.GetInt("scheduler.rfm_interval_hours"),
			CLVIntervalHours:            v.GetInt("scheduler.clv_interval_hours"),
			ChurnIntervalHours:          v.GetInt("scheduler.churn_interval_hours"),
			RecommendationIntervalHours: v.GetInt("scheduler.recommendation_interval_hours"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "customer-analytics"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "analytics"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "database"
	}
	if cfg.Cache.KeyPrefix == "" {
		cfg.Cache.KeyPrefix = "analytics:"
	}
	if cfg.Cache.FastMaxEntries == 0 {
		cfg.Cache.FastMaxEntries = 10000
	}
	if cfg.Cache.CleanupInterval == 0 {
		cfg.Cache.CleanupInterval = 5 * time.Minute
	}
	if cfg.Analytics.RFMStaleness == 0 {
		cfg.Analytics.RFMStaleness = 24 * time.Hour
	}
	if cfg.Analytics.CLVStaleness == 0 {
		cfg.Analytics.CLVStaleness = 7 * 24 * time.Hour
	}
	if cfg.Analytics.RFMCacheTTLHours == 0 {
		cfg.Analytics.RFMCacheTTLHours = 24
	}
	if cfg.Analytics.CLVCacheTTLHours == 0 {
		cfg.Analytics.CLVCacheTTLHours = 7 * 24
	}
	if cfg.Analytics.SegmentOverviewTTLHours == 0 {
		cfg.Analytics.SegmentOverviewTTLHours = 6
	}
	if cfg.Analytics.TopCLVTTLHours == 0 {
		cfg.Analytics.TopCLVTTLHours = 12
	}
	if cfg.Analytics.RecommendationTTLHours == 0 {
		cfg.Analytics.RecommendationTTLHours = 12
	}
	if cfg.Analytics.CollaborativeSampleSize == 0 {
		cfg.Analytics.CollaborativeSampleSize = 50
	}
	if cfg.Scheduler.RFMIntervalHours == 0 {
		cfg.Scheduler.RFMIntervalHours = 24
	}
	if cfg.Scheduler.CLVIntervalHours == 0 {
		cfg.Scheduler.CLVIntervalHours = 7 * 24
	}
	if cfg.Scheduler.ChurnIntervalHours == 0 {
		cfg.Scheduler.ChurnIntervalHours = 24
	}
	if cfg.Scheduler.RecommendationIntervalHours == 0 {
		cfg.Scheduler.RecommendationIntervalHours = 12
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	switch c.Cache.Backend {
	case "database", "redis":
	default:
		return fmt.Errorf("cache.backend must be \"database\" or \"redis\", got %q", c.Cache.Backend)
	}

	if c.Analytics.CollaborativeSampleSize < 0 {
		return fmt.Errorf("analytics.collaborative_sample_size cannot be negative")
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
