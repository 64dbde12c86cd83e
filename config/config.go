package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Env holds every runtime setting of the service.
type Env struct {
	AppEnv     string `toml:"app_env"`
	ServerAddr string `toml:"server_addr"`

	DBDriver   string `toml:"db_driver"`
	DBHost     string `toml:"db_host"`
	DBUser     string `toml:"db_user"`
	DBPassword string `toml:"db_password"`
	DBName     string `toml:"db_name"`
	DBPort     string `toml:"db_port"`
	SQLitePath string `toml:"sqlite_path"`

	RedisAddr string `toml:"redis_addr"`
	RedisPass string `toml:"redis_password"`
	RedisDB   int    `toml:"redis_db"`

	SessionSecret  string        `toml:"session_secret"`
	SessionTTL     time.Duration `toml:"-"`
	SessionBackend string        `toml:"session_backend"`
	CookieSecure   bool          `toml:"cookie_secure"`

	LockoutThreshold int           `toml:"lockout_threshold"`
	LockoutDuration  time.Duration `toml:"-"`

	RateLimitEnabled bool   `toml:"rate_limit_enabled"`
	RateLimitBackend string `toml:"rate_limit_backend"`

	Timezone      string         `toml:"timezone"`
	Location      *time.Location `toml:"-"`
	LoginRedirect string         `toml:"login_redirect"`
	GeoIPEnabled  bool           `toml:"geoip_enabled"`

	// TrustedProxies may set X-Forwarded-For. Empty means none.
	TrustedProxies []string `toml:"trusted_proxies"`
}

// Defaults returns the development configuration.
func Defaults() Env {
	return Env{
		AppEnv:           "development",
		ServerAddr:       ":5000",
		DBDriver:         DriverSQLite,
		DBHost:           "localhost",
		DBUser:           "postgres",
		DBName:           "aurora",
		DBPort:           "5432",
		SQLitePath:       "database.db",
		RedisAddr:        "localhost:6379",
		SessionTTL:       time.Hour,
		SessionBackend:   "memory",
		LockoutThreshold: 5,
		LockoutDuration:  15 * time.Minute,
		RateLimitEnabled: true,
		RateLimitBackend: "memory",
		Timezone:         "Local",
		LoginRedirect:    "/mulher",
	}
}

// LoadEnv reads .env (when present), the optional TOML file named by
// CONFIG_FILE, and finally the process environment, in increasing priority.
func LoadEnv() (*Env, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	env := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if _, err := toml.DecodeFile(path, &env); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	if err := env.applyEnvironment(); err != nil {
		return nil, err
	}
	if err := env.validate(); err != nil {
		return nil, err
	}
	return &env, nil
}

func (e *Env) applyEnvironment() error {
	e.AppEnv = getEnv("APP_ENV", e.AppEnv)
	e.ServerAddr = getEnv("SERVER_ADDR", e.ServerAddr)
	if port, ok := os.LookupEnv("PORT"); ok && port != "" {
		e.ServerAddr = ":" + port
	}

	e.DBDriver = strings.ToLower(getEnv("DB_DRIVER", e.DBDriver))
	e.DBHost = getEnv("DB_HOST", e.DBHost)
	e.DBUser = getEnv("DB_USER", e.DBUser)
	e.DBPassword = getEnv("DB_PASSWORD", e.DBPassword)
	e.DBName = getEnv("DB_NAME", e.DBName)
	e.DBPort = getEnv("DB_PORT", e.DBPort)
	e.SQLitePath = getEnv("SQLITE_PATH", e.SQLitePath)

	e.RedisAddr = getEnv("REDIS_ADDR", e.RedisAddr)
	e.RedisPass = getEnv("REDIS_PASSWORD", e.RedisPass)

	e.SessionSecret = getEnv("SESSION_SECRET", e.SessionSecret)
	e.SessionBackend = strings.ToLower(getEnv("SESSION_BACKEND", e.SessionBackend))

	e.RateLimitBackend = strings.ToLower(getEnv("RATE_LIMIT_BACKEND", e.RateLimitBackend))

	e.Timezone = getEnv("TIMEZONE", e.Timezone)
	e.LoginRedirect = getEnv("LOGIN_REDIRECT", e.LoginRedirect)
	e.TrustedProxies = getList("TRUSTED_PROXIES", e.TrustedProxies)

	var err error
	if e.RedisDB, err = getInt("REDIS_DB", e.RedisDB); err != nil {
		return err
	}
	if e.LockoutThreshold, err = getInt("LOCKOUT_THRESHOLD", e.LockoutThreshold); err != nil {
		return err
	}
	if e.CookieSecure, err = getBool("COOKIE_SECURE", e.CookieSecure); err != nil {
		return err
	}
	if e.RateLimitEnabled, err = getBool("RATE_LIMIT_ENABLED", e.RateLimitEnabled); err != nil {
		return err
	}
	if e.GeoIPEnabled, err = getBool("GEOIP_ENABLED", e.GeoIPEnabled); err != nil {
		return err
	}
	if e.SessionTTL, err = getDuration("SESSION_TTL", e.SessionTTL); err != nil {
		return err
	}
	if e.LockoutDuration, err = getDuration("LOCKOUT_DURATION", e.LockoutDuration); err != nil {
		return err
	}
	return nil
}

func (e *Env) validate() error {
	switch e.DBDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", e.DBDriver)
	}

	for name, backend := range map[string]string{
		"SESSION_BACKEND":    e.SessionBackend,
		"RATE_LIMIT_BACKEND": e.RateLimitBackend,
	} {
		if backend != "memory" && backend != "redis" {
			return fmt.Errorf("unsupported %s %q", name, backend)
		}
	}

	if e.SessionSecret == "" {
		if !e.IsDevelopment() {
			return errors.New("SESSION_SECRET is required outside development")
		}
		e.SessionSecret = "aurora-shield-development-secret"
	}

	if e.LockoutThreshold < 1 {
		return fmt.Errorf("LOCKOUT_THRESHOLD must be positive, got %d", e.LockoutThreshold)
	}
	if e.LockoutDuration <= 0 || e.SessionTTL <= 0 {
		return errors.New("LOCKOUT_DURATION and SESSION_TTL must be positive")
	}

	loc, err := time.LoadLocation(e.Timezone)
	if err != nil {
		return fmt.Errorf("load timezone %q: %w", e.Timezone, err)
	}
	e.Location = loc
	return nil
}

func (e *Env) IsDevelopment() bool {
	return e.AppEnv == "development"
}

// PostgresDSN builds the connection string for the client-server backend.
func (e *Env) PostgresDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		e.DBHost, e.DBUser, e.DBPassword, e.DBName, e.DBPort)
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

func getBool(key string, def bool) (bool, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	switch strings.ToLower(v) {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	}
	return false, fmt.Errorf("parse %s: invalid boolean %q", key, v)
}

func getList(key string, def []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}
