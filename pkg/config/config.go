package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	CheckIn       CheckInConfig
	Engagement    EngagementConfig
	Notifications NotificationsConfig
	Mail          MailConfig
	Insights      InsightsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CheckInConfig tunes the admission pipeline.
type CheckInConfig struct {
	Timeout               time.Duration
	AtomicCreditDecrement bool
	FeedbackEnabled       bool
	FlashDuration         time.Duration
}

// EngagementConfig tunes the scoring engine and its cache.
type EngagementConfig struct {
	Timeout        time.Duration
	MaxConcurrency int
	CacheEnabled   bool
	CacheTTL       time.Duration
	AtRiskScore    int
}

// NotificationsConfig sizes the staff alert worker pool.
type NotificationsConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

// MailConfig enables urgent staff emails through Resend. Empty APIKey disables email.
type MailConfig struct {
	APIKey string
	From   string
}

// InsightsConfig points at the summarisation endpoint. Empty URL means fallback insights only.
type InsightsConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.CheckIn = CheckInConfig{
		Timeout:               parseDuration(v.GetString("CHECKIN_TIMEOUT"), 5*time.Second),
		AtomicCreditDecrement: v.GetBool("CHECKIN_ATOMIC_CREDIT_DECREMENT"),
		FeedbackEnabled:       v.GetBool("CHECKIN_FEEDBACK_ENABLED"),
		FlashDuration:         parseDuration(v.GetString("CHECKIN_FLASH_DURATION"), time.Second),
	}

	cfg.Engagement = EngagementConfig{
		Timeout:        parseDuration(v.GetString("ENGAGEMENT_TIMEOUT"), 10*time.Second),
		MaxConcurrency: v.GetInt("ENGAGEMENT_MAX_CONCURRENCY"),
		CacheEnabled:   v.GetBool("ENGAGEMENT_CACHE_ENABLED"),
		CacheTTL:       parseDuration(v.GetString("ENGAGEMENT_CACHE_TTL"), 5*time.Minute),
		AtRiskScore:    v.GetInt("ENGAGEMENT_AT_RISK_SCORE"),
	}

	cfg.Notifications = NotificationsConfig{
		Workers:    v.GetInt("NOTIFICATIONS_WORKERS"),
		BufferSize: v.GetInt("NOTIFICATIONS_BUFFER_SIZE"),
		MaxRetries: v.GetInt("NOTIFICATIONS_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("NOTIFICATIONS_RETRY_DELAY"), time.Second),
	}

	cfg.Mail = MailConfig{
		APIKey: v.GetString("RESEND_API_KEY"),
		From:   v.GetString("MAIL_FROM"),
	}

	cfg.Insights = InsightsConfig{
		URL:     v.GetString("INSIGHTS_URL"),
		APIKey:  v.GetString("INSIGHTS_API_KEY"),
		Timeout: parseDuration(v.GetString("INSIGHTS_TIMEOUT"), 15*time.Second),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "fitcoach")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "fitcoach-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("CHECKIN_TIMEOUT", "5s")
	v.SetDefault("CHECKIN_ATOMIC_CREDIT_DECREMENT", false)
	v.SetDefault("CHECKIN_FEEDBACK_ENABLED", true)
	v.SetDefault("CHECKIN_FLASH_DURATION", "1s")

	v.SetDefault("ENGAGEMENT_TIMEOUT", "10s")
	v.SetDefault("ENGAGEMENT_MAX_CONCURRENCY", 8)
	v.SetDefault("ENGAGEMENT_CACHE_ENABLED", true)
	v.SetDefault("ENGAGEMENT_CACHE_TTL", "5m")
	v.SetDefault("ENGAGEMENT_AT_RISK_SCORE", 40)

	v.SetDefault("NOTIFICATIONS_WORKERS", 2)
	v.SetDefault("NOTIFICATIONS_BUFFER_SIZE", 64)
	v.SetDefault("NOTIFICATIONS_MAX_RETRIES", 3)
	v.SetDefault("NOTIFICATIONS_RETRY_DELAY", "1s")

	v.SetDefault("RESEND_API_KEY", "")
	v.SetDefault("MAIL_FROM", "alerts@fitcoach.local")

	v.SetDefault("INSIGHTS_URL", "")
	v.SetDefault("INSIGHTS_API_KEY", "")
	v.SetDefault("INSIGHTS_TIMEOUT", "15s")
}

// viper reports a missing explicit config file as a path error rather than ConfigFileNotFoundError.
func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
