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
	Env           string
	Port          int
	APIPrefix     string
	PublicBaseURL string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Directory DirectoryConfig
	Dashboard DashboardConfig
	Queries   QueriesConfig
	Avatars   AvatarConfig
	Exports   ExportsConfig
	Feedback  FeedbackConfig
	Scheduler SchedulerConfig
	Realtime  RealtimeConfig
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

type RedisConfig struct {
	Enabled   bool
	Host      string
	Port      int
	Password  string
	DB        int
	Namespace string
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// DirectoryConfig tunes the mentor directory cache.
type DirectoryConfig struct {
	CacheTTL time.Duration
}

// DashboardConfig governs dashboard cache tuning.
type DashboardConfig struct {
	CacheTTL time.Duration
}

// QueriesConfig controls share links handed out for mentee queries.
// A zero ShareTTL means links never expire.
type QueriesConfig struct {
	ShareTTL         time.Duration
	ShareExposeEmail bool
}

// AvatarConfig controls avatar uploads.
type AvatarConfig struct {
	StorageDir   string
	MaxBytes     int64
	AllowedMIMEs []string
}

// ExportsConfig configures asynchronous roster exports.
type ExportsConfig struct {
	Enabled           bool
	StorageDir        string
	SignedURLSecret   string
	SignedURLTTL      time.Duration
	RetainFor         time.Duration
	WorkerConcurrency int
	WorkerRetries     int
}

// FeedbackConfig holds outbound mail settings for the feedback form.
type FeedbackConfig struct {
	SendGridAPIKey string
	FromEmail      string
	FromName       string
	ToEmail        string
}

// SchedulerConfig holds cron specs (seconds precision, UTC).
type SchedulerConfig struct {
	Enabled           bool
	CapacityReconcile string
	ExportCleanup     string
}

// RealtimeConfig tunes the change feed.
type RealtimeConfig struct {
	Channel   string
	Heartbeat time.Duration
	Buffer    int
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

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.PublicBaseURL = strings.TrimRight(v.GetString("PUBLIC_BASE_URL"), "/")

	cfg.Database = DatabaseConfig{
		Host:            v.GetString("DB_HOST"),
		Port:            v.GetInt("DB_PORT"),
		User:            v.GetString("DB_USER"),
		Password:        v.GetString("DB_PASSWORD"),
		Name:            v.GetString("DB_NAME"),
		SSLMode:         v.GetString("DB_SSL_MODE"),
		MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
		ConnMaxLifetime: parseDuration(v.GetString("DB_CONN_MAX_LIFETIME"), time.Hour),
		AutoMigrate:     v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Enabled:   v.GetBool("REDIS_ENABLED"),
		Host:      v.GetString("REDIS_HOST"),
		Port:      v.GetInt("REDIS_PORT"),
		Password:  v.GetString("REDIS_PASSWORD"),
		DB:        v.GetInt("REDIS_DB"),
		Namespace: v.GetString("REDIS_NAMESPACE"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Directory = DirectoryConfig{
		CacheTTL: parseDuration(v.GetString("DIRECTORY_CACHE_TTL"), 2*time.Minute),
	}

	cfg.Dashboard = DashboardConfig{
		CacheTTL: parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Queries = QueriesConfig{
		ShareTTL:         parseDuration(v.GetString("QUERY_SHARE_TTL"), 0),
		ShareExposeEmail: v.GetBool("QUERY_SHARE_EXPOSE_EMAIL"),
	}

	maxAvatar := v.GetInt64("AVATAR_MAX_BYTES")
	if maxAvatar <= 0 {
		maxAvatar = 5 * 1024 * 1024
	}
	cfg.Avatars = AvatarConfig{
		StorageDir:   v.GetString("AVATAR_STORAGE_DIR"),
		MaxBytes:     maxAvatar,
		AllowedMIMEs: splitAndTrim(v.GetString("AVATAR_ALLOWED_MIME_TYPES")),
	}

	cfg.Exports = ExportsConfig{
		Enabled:           v.GetBool("ENABLE_EXPORTS"),
		StorageDir:        v.GetString("EXPORTS_STORAGE_DIR"),
		SignedURLSecret:   v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:      parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), 24*time.Hour),
		RetainFor:         parseDuration(v.GetString("EXPORTS_RETAIN_FOR"), 72*time.Hour),
		WorkerConcurrency: v.GetInt("EXPORTS_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("EXPORTS_WORKER_RETRIES"),
	}

	cfg.Feedback = FeedbackConfig{
		SendGridAPIKey: v.GetString("SENDGRID_API_KEY"),
		FromEmail:      v.GetString("FEEDBACK_FROM_EMAIL"),
		FromName:       v.GetString("FEEDBACK_FROM_NAME"),
		ToEmail:        v.GetString("FEEDBACK_TO_EMAIL"),
	}

	cfg.Scheduler = SchedulerConfig{
		Enabled:           v.GetBool("ENABLE_SCHEDULER"),
		CapacityReconcile: v.GetString("CAPACITY_RECONCILE_CRON"),
		ExportCleanup:     v.GetString("EXPORT_CLEANUP_CRON"),
	}

	buffer := v.GetInt("REALTIME_BUFFER")
	if buffer <= 0 {
		buffer = 16
	}
	cfg.Realtime = RealtimeConfig{
		Channel:   v.GetString("REALTIME_CHANNEL"),
		Heartbeat: parseDuration(v.GetString("REALTIME_HEARTBEAT"), 25*time.Second),
		Buffer:    buffer,
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:8080")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "mentorship")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "1h")
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("REDIS_ENABLED", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_NAMESPACE", "mentorship")

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("DIRECTORY_CACHE_TTL", "2m")
	v.SetDefault("DASHBOARD_CACHE_TTL", "5m")

	v.SetDefault("QUERY_SHARE_TTL", "")
	v.SetDefault("QUERY_SHARE_EXPOSE_EMAIL", true)

	v.SetDefault("AVATAR_STORAGE_DIR", "./uploads")
	v.SetDefault("AVATAR_MAX_BYTES", 5*1024*1024)
	v.SetDefault("AVATAR_ALLOWED_MIME_TYPES", "image/jpeg,image/png,image/webp,image/gif")

	v.SetDefault("ENABLE_EXPORTS", true)
	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "24h")
	v.SetDefault("EXPORTS_RETAIN_FOR", "72h")
	v.SetDefault("EXPORTS_WORKER_CONCURRENCY", 1)
	v.SetDefault("EXPORTS_WORKER_RETRIES", 3)

	v.SetDefault("SENDGRID_API_KEY", "")
	v.SetDefault("FEEDBACK_FROM_EMAIL", "no-reply@mentorship.local")
	v.SetDefault("FEEDBACK_FROM_NAME", "Mentorship Platform")
	v.SetDefault("FEEDBACK_TO_EMAIL", "")

	v.SetDefault("ENABLE_SCHEDULER", true)
	v.SetDefault("CAPACITY_RECONCILE_CRON", "0 0 3 * * *")
	v.SetDefault("EXPORT_CLEANUP_CRON", "0 30 * * * *")

	v.SetDefault("REALTIME_CHANNEL", "mentorship:events")
	v.SetDefault("REALTIME_HEARTBEAT", "25s")
	v.SetDefault("REALTIME_BUFFER", 16)
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
