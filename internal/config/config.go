package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage drivers for the client-local session storage.
const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

// Config aggregates runtime configuration for the portal.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Backend  BackendConfig
	Session  SessionConfig
	Storage  StorageConfig
	Recovery RecoveryConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	SweepIntervalSeconds  int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// BackendConfig locates the task service the portal talks to.
type BackendConfig struct {
	AuthURL        string
	UserURL        string
	AdminURL       string
	TimeoutSeconds int
}

// SessionConfig controls the client cookie and in-memory sessions.
type SessionConfig struct {
	CookieName           string
	CookieSecret         string
	CookieTTLHours       int
	CookieSecure         bool
	IdleMinutes          int
	LogoutOnUnauthorized bool
}

// StorageConfig selects where sessions are persisted between restarts.
type StorageConfig struct {
	Driver    string
	KeyPrefix string
	TTLHours  int
	SealKey   string
}

// RecoveryConfig holds the password recovery timings, in units.
type RecoveryConfig struct {
	OTPWindow      int
	ResendCooldown int
	RedirectDelay  int
	UnitMillis     int
	IdleMinutes    int
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
			Name:                  getEnv("APP_NAME", "task-portal"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "3000"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			SweepIntervalSeconds:  getEnvAsInt("SWEEP_INTERVAL_SECONDS", 60),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
			PoolSize: getEnvAsInt("REDIS_POOL_SIZE", 10),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Backend: BackendConfig{
			AuthURL:        strings.TrimRight(getEnv("AUTH_API_URL", "http://localhost:5000/api/auth"), "/"),
			UserURL:        strings.TrimRight(getEnv("USER_API_URL", "http://localhost:5000/api/user"), "/"),
			AdminURL:       strings.TrimRight(getEnv("ADMIN_API_URL", "http://localhost:5000/api/admin"), "/"),
			TimeoutSeconds: getEnvAsInt("BACKEND_TIMEOUT_SECONDS", 15),
		},
		Session: SessionConfig{
			CookieName:           getEnv("SESSION_COOKIE_NAME", "tp_client"),
			CookieSecret:         getEnv("SESSION_COOKIE_SECRET", "dev-secret"),
			CookieTTLHours:       getEnvAsInt("SESSION_COOKIE_TTL_HOURS", 24*30),
			CookieSecure:         getEnvAsBool("SESSION_COOKIE_SECURE", false),
			IdleMinutes:          getEnvAsInt("SESSION_IDLE_MINUTES", 60),
			LogoutOnUnauthorized: getEnvAsBool("SESSION_LOGOUT_ON_UNAUTHORIZED", true),
		},
		Storage: StorageConfig{
			Driver:    strings.ToLower(getEnv("STORAGE_DRIVER", StorageRedis)),
			KeyPrefix: getEnv("STORAGE_KEY_PREFIX", "tp"),
			TTLHours:  getEnvAsInt("STORAGE_TTL_HOURS", 0),
			SealKey:   os.Getenv("STORAGE_SEAL_KEY"),
		},
		Recovery: RecoveryConfig{
			OTPWindow:      getEnvAsInt("RECOVERY_OTP_WINDOW", 300),
			ResendCooldown: getEnvAsInt("RECOVERY_RESEND_COOLDOWN", 60),
			RedirectDelay:  getEnvAsInt("RECOVERY_REDIRECT_DELAY", 3),
			UnitMillis:     getEnvAsInt("RECOVERY_UNIT_MILLIS", 1000),
			IdleMinutes:    getEnvAsInt("RECOVERY_IDLE_MINUTES", 30),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case StorageMemory, StorageRedis:
	case StoragePostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("STORAGE_DRIVER=postgres requires POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}
	if c.Recovery.UnitMillis <= 0 {
		return fmt.Errorf("RECOVERY_UNIT_MILLIS must be positive")
	}
	if c.Session.CookieName == "" {
		return fmt.Errorf("SESSION_COOKIE_NAME must not be empty")
	}
	return nil
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

// SweepInterval returns how often idle client state is collected.
func (a AppConfig) SweepInterval() time.Duration {
	if a.SweepIntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(a.SweepIntervalSeconds) * time.Second
}

// Timeout returns the per-call backend timeout.
func (b BackendConfig) Timeout() time.Duration {
	if b.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// CookieTTL returns the lifetime of the client cookie.
func (s SessionConfig) CookieTTL() time.Duration {
	return time.Duration(s.CookieTTLHours) * time.Hour
}

// IdleTimeout returns after how long an unused in-memory session is dropped.
func (s SessionConfig) IdleTimeout() time.Duration {
	return time.Duration(s.IdleMinutes) * time.Minute
}

// TTL returns the expiry of persisted session keys, zero meaning none.
func (s StorageConfig) TTL() time.Duration {
	return time.Duration(s.TTLHours) * time.Hour
}

// Unit returns the duration of one countdown tick.
func (r RecoveryConfig) Unit() time.Duration {
	return time.Duration(r.UnitMillis) * time.Millisecond
}

// IdleTimeout returns after how long an abandoned recovery flow is dropped.
func (r RecoveryConfig) IdleTimeout() time.Duration {
	return time.Duration(r.IdleMinutes) * time.Minute
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
