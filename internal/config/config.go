package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewAutosaveConfigHolder),
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	NodeID      int64

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBPath            string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	// Realtime change notifications via postgres LISTEN/NOTIFY.
	DBNotifyChannel string
	DBNotifyEnabled bool

	DraftStore     string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisKeyPrefix string

	AutosaveConfigPath string
	AutosaveDelay      time.Duration

	PDFLogoPath string

	// DraftRetention > 0 enables the scheduled purge of drafts idle for longer.
	DraftRetention    time.Duration
	SchedulerInterval time.Duration
	// EditorSessionIdle closes server-held editor sessions untouched for longer.
	EditorSessionIdle time.Duration
}

const (
	DraftStoreDB    = "db"
	DraftStoreRedis = "redis"
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:            getenv("APP_SERVICE", "quotedesk"),
		AppVersion:         getenv("APP_VERSION", "0.1.0"),
		Environment:        getenv("ENVIRONMENT", "development"),
		HTTPAddr:           getenv("HTTP_ADDR", ":8080"),
		NodeID:             getenvInt64("NODE_ID", 1),
		OTLPEndpoint:       getenv("OTLP_ENDPOINT", "localhost:4317"),
		DBType:             getenv("DATABASE_TYPE", "postgres"),
		DBHost:             getenv("DATABASE_HOST", "localhost"),
		DBPort:             getenv("DATABASE_PORT", "5432"),
		DBName:             getenv("DATABASE_NAME", "quotedesk"),
		DBUser:             getenv("DATABASE_USER", "postgres"),
		DBPassword:         getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:          getenv("DATABASE_SSLMODE", "disable"),
		DBPath:             getenv("DATABASE_PATH", "quotedesk.db"),
		DBMaxIdleConn:      int(getenvInt64("DATABASE_MAX_IDLE_CONN", 5)),
		DBMaxOpenConn:      int(getenvInt64("DATABASE_MAX_OPEN_CONN", 20)),
		DBConnMaxLifetime:  int(getenvInt64("DATABASE_CONN_MAX_LIFETIME", 300)),
		DBConnMaxIdleTime:  int(getenvInt64("DATABASE_CONN_MAX_IDLE_TIME", 60)),
		DBNotifyChannel:    getenv("DATABASE_NOTIFY_CHANNEL", "quotedesk_changes"),
		DBNotifyEnabled:    getenvBool("DATABASE_NOTIFY_ENABLED", false),
		DraftStore:         normalizeDraftStore(getenv("DRAFT_STORE", DraftStoreDB)),
		RedisAddr:          getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getenv("REDIS_PASSWORD", ""),
		RedisDB:            int(getenvInt64("REDIS_DB", 0)),
		RedisKeyPrefix:     getenv("REDIS_KEY_PREFIX", "quotedesk"),
		AutosaveConfigPath: getenv("AUTOSAVE_CONFIG_PATH", ""),
		AutosaveDelay:      getenvDuration("DRAFT_AUTOSAVE_DELAY", 2*time.Second),
		PDFLogoPath:        getenv("PDF_LOGO_PATH", ""),
		DraftRetention:     getenvDuration("DRAFT_RETENTION", 0),
		SchedulerInterval:  getenvDuration("SCHEDULER_INTERVAL", time.Hour),
		EditorSessionIdle:  getenvDuration("EDITOR_SESSION_IDLE", 30*time.Minute),
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func normalizeDraftStore(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case DraftStoreRedis:
		return DraftStoreRedis
	default:
		return DraftStoreDB
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
