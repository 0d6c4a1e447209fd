package config

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AcumidataConfig struct {
	Env      string
	BaseURL  string
	APIKey   string
	Username string
	Password string
	Timeout  time.Duration
	RetryMax int
}

type CompsConfig struct {
	SoldLimit    int
	PendingLimit int
	ActiveLimit  int
}

type SessionConfig struct {
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	TTL            time.Duration
	LoginRateLimit int // attempts per IP per minute
}

type LogConfig struct {
	Level string
	JSON  bool
}

type FluentConfig struct {
	Enabled bool
	Host    string
	Port    int
}

// Config holds everything the server and the CLIs read from the environment.
type Config struct {
	AppName        string
	Port           string
	PGDSN          string
	AllowedOrigins []string
	BatchTimeout   time.Duration

	Acumidata AcumidataConfig
	Comps     CompsConfig
	Session   SessionConfig
	Log       LogConfig
	Fluent    FluentConfig
}

// Load reads the given dotenv files (default .env.local then .env) and then
// the process environment. Missing files are not an error; variables already
// set in the environment win over file values.
func Load(files ...string) *Config {
	if len(files) == 0 {
		files = []string{".env.local", ".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("config: could not read env file", "file", f, "err", err)
		}
	}

	env := getEnv("ACUMIDATA_ENV", "uat")
	return &Config{
		AppName:        getEnv("APP_NAME", "comps-api"),
		Port:           getEnv("PORT", "8080"),
		PGDSN:          getEnv("PG_DSN", ""),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"*"}),
		BatchTimeout:   getEnvDuration("BATCH_REQUEST_TIMEOUT", 30*time.Second),

		Acumidata: AcumidataConfig{
			Env:      env,
			BaseURL:  getEnv("ACUMIDATA_BASE_URL", ""),
			APIKey:   apiKeyFor(env),
			Username: getEnv("ACUMIDATA_USERNAME", ""),
			Password: getEnv("ACUMIDATA_PASSWORD", ""),
			Timeout:  getEnvDuration("ACUMIDATA_TIMEOUT", 30*time.Second),
			RetryMax: getEnvInt("ACUMIDATA_RETRY_MAX", 3),
		},
		Comps: CompsConfig{
			SoldLimit:    getEnvInt("COMPS_SOLD_LIMIT", 10),
			PendingLimit: getEnvInt("COMPS_PENDING_LIMIT", 5),
			ActiveLimit:  getEnvInt("COMPS_ACTIVE_LIMIT", 10),
		},
		Session: SessionConfig{
			RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword:  getEnv("REDIS_PASSWORD", ""),
			RedisDB:        getEnvInt("REDIS_DB", 0),
			TTL:            getEnvDuration("SESSION_TTL", 12*time.Hour),
			LoginRateLimit: getEnvInt("LOGIN_RATE_LIMIT", 10),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			JSON:  getEnvBool("LOG_JSON", false),
		},
		Fluent: FluentConfig{
			Enabled: getEnvBool("FLUENT_ENABLED", false),
			Host:    getEnv("FLUENT_HOST", "localhost"),
			Port:    getEnvInt("FLUENT_PORT", 24224),
		},
	}
}

// apiKeyFor prefers the generic key, then the per-environment one.
func apiKeyFor(env string) string {
	if k := getEnv("ACUMIDATA_API_KEY", ""); k != "" {
		return k
	}
	if strings.EqualFold(env, "prod") {
		return getEnv("ACUMIDATA_PROD_KEY", "")
	}
	return getEnv("ACUMIDATA_UAT_KEY", "")
}

// HasCredentials reports whether the API can be called at all.
func (a AcumidataConfig) HasCredentials() bool {
	return a.APIKey != "" || (a.Username != "" && a.Password != "")
}

// ValidateClient checks what the CLIs need.
func (c *Config) ValidateClient() error {
	if !c.Acumidata.HasCredentials() {
		return errors.New("missing required env ACUMIDATA_API_KEY or ACUMIDATA_USERNAME/ACUMIDATA_PASSWORD")
	}
	return nil
}

// Validate checks what the HTTP server needs and names every missing value.
func (c *Config) Validate() error {
	var errs []error
	if err := c.ValidateClient(); err != nil {
		errs = append(errs, err)
	}
	if c.PGDSN == "" {
		errs = append(errs, errors.New("missing required env PG_DSN"))
	}
	if c.Session.RedisAddr == "" {
		errs = append(errs, errors.New("missing required env REDIS_ADDR"))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

// getEnvDuration accepts Go durations ("45s") or a plain number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if n, err := strconv.Atoi(val); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if strings.TrimSpace(val) == "" {
		return fallback
	}
	var out []string
	for _, p := range strings.Split(val, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
