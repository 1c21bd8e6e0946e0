package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // SLA_TIMEZONE must resolve in minimal containers

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	SLA          SLAConfig
	Escalation   EscalationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr                 string
	Password             string
	DB                   int
	HolidayCacheTTLSec   int
	NotificationQueueKey string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int

	// BootstrapAdminEmail, when set, ensures an admin account exists at startup.
	BootstrapAdminEmail    string
	BootstrapAdminPassword string
}

// NotificationConfig holds notification delivery settings.
type NotificationConfig struct {
	EmailFrom      string
	SMSSender      string
	DefaultChannel string
}

// SLAConfig holds working-day thresholds per category.
type SLAConfig struct {
	InquiryDays        int
	ComplaintMinorDays int
	ComplaintMajorDays int
	SuggestionDays     int
	ComplimentDays     int
	Timezone           string
}

// EscalationConfig controls the escalation sweep scheduler.
type EscalationConfig struct {
	Enabled              bool
	RunAt                string
	Workers              int
	CrossSectionFallback bool
	SystemActorID        string
	LockTTLSeconds       int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "servicedesk"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:                 os.Getenv("REDIS_ADDR"),
			Password:             os.Getenv("REDIS_PASSWORD"),
			DB:                   redisDB,
			HolidayCacheTTLSec:   getEnvAsInt("HOLIDAY_CACHE_TTL_SECONDS", 3600),
			NotificationQueueKey: getEnv("NOTIFY_QUEUE_KEY", "servicedesk:notifications"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),

			BootstrapAdminEmail:    os.Getenv("BOOTSTRAP_ADMIN_EMAIL"),
			BootstrapAdminPassword: os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
		},
		Notification: NotificationConfig{
			EmailFrom:      getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			SMSSender:      getEnv("NOTIFY_SMS_SENDER", ""),
			DefaultChannel: getEnv("NOTIFY_DEFAULT_CHANNEL", "email"),
		},
		SLA: SLAConfig{
			InquiryDays:        getEnvAsInt("SLA_INQUIRY_DAYS", 3),
			ComplaintMinorDays: getEnvAsInt("SLA_COMPLAINT_MINOR_DAYS", 7),
			ComplaintMajorDays: getEnvAsInt("SLA_COMPLAINT_MAJOR_DAYS", 15),
			SuggestionDays:     getEnvAsInt("SLA_SUGGESTION_DAYS", 0),
			ComplimentDays:     getEnvAsInt("SLA_COMPLIMENT_DAYS", 0),
			Timezone:           getEnv("SLA_TIMEZONE", "UTC"),
		},
		Escalation: EscalationConfig{
			Enabled:              getEnvAsBool("ESCALATION_ENABLED", true),
			RunAt:                getEnv("ESCALATION_RUN_AT", "02:00"),
			Workers:              getEnvAsInt("ESCALATION_WORKERS", 4),
			CrossSectionFallback: getEnvAsBool("ESCALATION_CROSS_SECTION_FALLBACK", true),
			SystemActorID:        getEnv("ESCALATION_SYSTEM_ACTOR_ID", "system"),
			LockTTLSeconds:       getEnvAsInt("ESCALATION_LOCK_TTL_SECONDS", 900),
		},
	}

	if _, _, err := cfg.Escalation.RunAtClock(); err != nil {
		return nil, err
	}
	if _, err := cfg.SLA.Location(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// HolidayCacheTTL returns how long the holiday calendar stays cached.
func (r RedisConfig) HolidayCacheTTL() time.Duration {
	return time.Duration(r.HolidayCacheTTLSec) * time.Second
}

// Location resolves the SLA timezone.
func (s SLAConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid SLA_TIMEZONE %q: %w", s.Timezone, err)
	}
	return loc, nil
}

// RunAtClock parses RunAt as hour and minute.
func (e EscalationConfig) RunAtClock() (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(e.RunAt), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid ESCALATION_RUN_AT %q: want HH:MM", e.RunAt)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid ESCALATION_RUN_AT hour %q", parts[0])
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid ESCALATION_RUN_AT minute %q", parts[1])
	}
	return hour, minute, nil
}

// LockTTL returns the lifetime of the cross-instance sweep lock.
func (e EscalationConfig) LockTTL() time.Duration {
	if e.LockTTLSeconds <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(e.LockTTLSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
