package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Proposal store backends.
const (
	ProposalCacheMemory = "memory"
	ProposalCacheRedis  = "redis"
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
	Scheduler     SchedulerConfig
	Notifications NotificationConfig
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
	Secret string
	Issuer string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SchedulerConfig tunes the program autoscheduler.
type SchedulerConfig struct {
	Enabled       bool
	ProposalTTL   time.Duration
	ProposalCache string
	SolveTimeout  time.Duration
	MaxNodes      int
	AllowPartial  bool
}

// NotificationConfig sizes the queue that fans out placement notifications after apply.
type NotificationConfig struct {
	Workers int
	Retries int
	Buffer  int
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
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
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
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	proposalCache := strings.ToLower(strings.TrimSpace(v.GetString("SCHEDULER_PROPOSAL_CACHE")))
	if proposalCache != ProposalCacheRedis {
		proposalCache = ProposalCacheMemory
	}
	maxNodes := v.GetInt("SCHEDULER_MAX_NODES")
	if maxNodes <= 0 {
		maxNodes = 2_000_000
	}
	cfg.Scheduler = SchedulerConfig{
		Enabled:       v.GetBool("ENABLE_SCHEDULER"),
		ProposalTTL:   parseDuration(v.GetString("SCHEDULER_PROPOSAL_TTL"), 30*time.Minute),
		ProposalCache: proposalCache,
		SolveTimeout:  parseDuration(v.GetString("SCHEDULER_SOLVE_TIMEOUT"), 30*time.Second),
		MaxNodes:      maxNodes,
		AllowPartial:  v.GetBool("SCHEDULER_ALLOW_PARTIAL"),
	}

	cfg.Notifications = NotificationConfig{
		Workers: positive(v.GetInt("NOTIFY_WORKERS"), 1),
		Retries: v.GetInt("NOTIFY_RETRIES"),
		Buffer:  positive(v.GetInt("NOTIFY_BUFFER"), 64),
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
	v.SetDefault("DB_NAME", "camp")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_SCHEDULER", true)
	v.SetDefault("SCHEDULER_PROPOSAL_TTL", "30m")
	v.SetDefault("SCHEDULER_PROPOSAL_CACHE", ProposalCacheMemory)
	v.SetDefault("SCHEDULER_SOLVE_TIMEOUT", "30s")
	v.SetDefault("SCHEDULER_MAX_NODES", 2_000_000)
	v.SetDefault("SCHEDULER_ALLOW_PARTIAL", false)

	v.SetDefault("NOTIFY_WORKERS", 1)
	v.SetDefault("NOTIFY_RETRIES", 3)
	v.SetDefault("NOTIFY_BUFFER", 64)
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

func positive(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
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
