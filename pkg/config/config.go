package config

import (
	"errors"
	"io/fs"
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

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	NATS     NATSConfig
	Bulletin BulletinConfig
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
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

// LogConfig selects level and encoding. File, when set, also receives the
// log stream through a rotating writer.
type LogConfig struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// NATSConfig points at the broker receiving bulletin lifecycle events.
type NATSConfig struct {
	URL     string
	Subject string
}

// BulletinConfig tunes the generation pipeline and its document side effects.
type BulletinConfig struct {
	Workers         int
	PeriodCount     int
	TiePolicy       string
	MinEvaluations  int
	LockTTL         time.Duration
	LockWait        time.Duration
	PreviewCacheTTL time.Duration
	RulesFile       string

	SchoolName      string
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	RenderEnabled   bool
	RenderWorkers   int
	RenderRetries   int
	JobWorkers      int
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
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
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
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{Secret: v.GetString("JWT_SECRET")}
	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:      v.GetString("LOG_LEVEL"),
		Format:     v.GetString("LOG_FORMAT"),
		File:       v.GetString("LOG_FILE"),
		MaxSizeMB:  v.GetInt("LOG_FILE_MAX_SIZE_MB"),
		MaxBackups: v.GetInt("LOG_FILE_MAX_BACKUPS"),
	}

	cfg.NATS = NATSConfig{
		URL:     v.GetString("NATS_URL"),
		Subject: v.GetString("NATS_SUBJECT"),
	}

	cfg.Bulletin = BulletinConfig{
		Workers:         v.GetInt("BULLETIN_WORKERS"),
		PeriodCount:     v.GetInt("BULLETIN_PERIOD_COUNT"),
		TiePolicy:       v.GetString("BULLETIN_TIE_POLICY"),
		MinEvaluations:  v.GetInt("BULLETIN_MIN_EVALUATIONS"),
		LockTTL:         parseDuration(v.GetString("BULLETIN_LOCK_TTL"), 2*time.Minute),
		LockWait:        parseDuration(v.GetString("BULLETIN_LOCK_WAIT"), 5*time.Second),
		PreviewCacheTTL: parseDuration(v.GetString("BULLETIN_PREVIEW_CACHE_TTL"), 5*time.Minute),
		RulesFile:       v.GetString("BULLETIN_RULES_FILE"),
		SchoolName:      v.GetString("BULLETIN_SCHOOL_NAME"),
		StorageDir:      v.GetString("BULLETIN_STORAGE_DIR"),
		SignedURLSecret: v.GetString("BULLETIN_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("BULLETIN_SIGNED_URL_TTL"), 24*time.Hour),
		RenderEnabled:   v.GetBool("BULLETIN_RENDER_ENABLED"),
		RenderWorkers:   v.GetInt("BULLETIN_RENDER_WORKERS"),
		RenderRetries:   v.GetInt("BULLETIN_RENDER_RETRIES"),
		JobWorkers:      v.GetInt("BULLETIN_JOB_WORKERS"),
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
	v.SetDefault("DB_NAME", "sma_bulletins")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("ALLOWED_ORIGINS", "")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("LOG_FILE_MAX_SIZE_MB", 50)
	v.SetDefault("LOG_FILE_MAX_BACKUPS", 5)

	v.SetDefault("NATS_URL", "")
	v.SetDefault("NATS_SUBJECT", "bulletins.events")

	v.SetDefault("BULLETIN_WORKERS", 8)
	v.SetDefault("BULLETIN_PERIOD_COUNT", 3)
	v.SetDefault("BULLETIN_TIE_POLICY", "SEQUENTIAL")
	v.SetDefault("BULLETIN_MIN_EVALUATIONS", 0)
	v.SetDefault("BULLETIN_LOCK_TTL", "2m")
	v.SetDefault("BULLETIN_LOCK_WAIT", "5s")
	v.SetDefault("BULLETIN_PREVIEW_CACHE_TTL", "5m")
	v.SetDefault("BULLETIN_RULES_FILE", "")
	v.SetDefault("BULLETIN_SCHOOL_NAME", "")
	v.SetDefault("BULLETIN_STORAGE_DIR", "./bulletins")
	v.SetDefault("BULLETIN_SIGNED_URL_SECRET", "dev_bulletins_secret")
	v.SetDefault("BULLETIN_SIGNED_URL_TTL", "24h")
	v.SetDefault("BULLETIN_RENDER_ENABLED", true)
	v.SetDefault("BULLETIN_RENDER_WORKERS", 2)
	v.SetDefault("BULLETIN_RENDER_RETRIES", 3)
	v.SetDefault("BULLETIN_JOB_WORKERS", 1)
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
