package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sosodev/duration"
)

// DefaultSupportEmail is shown whenever the backend does not name a support contact.
const DefaultSupportEmail = "support@haulgate.app"

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	Email    EmailConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type ServerConfig struct {
	Port            string
	Env             string
	LogLevel        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	LoginRateLimit  int // requests per minute per IP
	TrustedProxies  []string
}

type AuthConfig struct {
	JWTSecret          string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	DeviceTrustTTL     time.Duration
	OTPTTL             time.Duration
	OTPMaxAttempts     int
	ResendLimit        int
	ResendWindow       time.Duration
	BcryptCost         int
	CleanupInterval    time.Duration
	SupportEmail       string
	SeedDemoUsers      bool
}

type EmailConfig struct {
	Provider  string // "log" or "ses"
	SESRegion string
	From      string
}

// ClientConfig configures the login client and the terminal front-end.
type ClientConfig struct {
	APIBaseURL       string
	SupportEmail     string
	MaxLoginAttempts int
	ResendCooldown   time.Duration
	InitialCooldown  time.Duration
	ClearOnReject    bool
	RedirectDelay    time.Duration
	DeviceStorePath  string
	TokenStorePath   string
	RequestTimeout   time.Duration // zero leaves the transport default in place
	LogLevel         string
	AppName          string
	MetricsAddr      string // empty keeps client metrics off the network
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", ""),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "haulgate"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Env:             env,
			LogLevel:        getEnv("LOG_LEVEL", "info"),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			LoginRateLimit:  getEnvAsInt("LOGIN_RATE_LIMIT", 20),
			TrustedProxies:  getEnvAsSlice("TRUSTED_PROXIES"),
		},
		Auth: AuthConfig{
			JWTSecret:          jwtSecret,
			AccessTokenExpiry:  getEnvAsDuration("ACCESS_TOKEN_EXPIRY", 15*time.Minute),
			RefreshTokenExpiry: getEnvAsDuration("REFRESH_TOKEN_EXPIRY", 7*24*time.Hour),
			DeviceTrustTTL:     getEnvAsDuration("DEVICE_TRUST_TTL", 30*24*time.Hour),
			OTPTTL:             getEnvAsDuration("OTP_TTL", 10*time.Minute),
			OTPMaxAttempts:     getEnvAsInt("OTP_MAX_ATTEMPTS", 5),
			ResendLimit:        getEnvAsInt("RESEND_LIMIT", 3),
			ResendWindow:       getEnvAsDuration("RESEND_WINDOW", 15*time.Minute),
			BcryptCost:         getEnvAsInt("BCRYPT_COST", 12),
			CleanupInterval:    getEnvAsDuration("CLEANUP_INTERVAL", 1*time.Hour),
			SupportEmail:       getEnv("SUPPORT_EMAIL", DefaultSupportEmail),
			SeedDemoUsers:      getEnvAsBool("SEED_DEMO_USERS", env != "production"),
		},
		Email: EmailConfig{
			Provider:  getEnv("EMAIL_PROVIDER", "log"),
			SESRegion: getEnv("SES_REGION", "us-east-1"),
			From:      getEnv("EMAIL_FROM", "no-reply@haulgate.app"),
		},
	}

	if cfg.Database.Enabled() && cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required when DB_HOST is set")
	}

	if err := validateJWTSecret(jwtSecret, env); err != nil {
		return nil, err
	}

	if cfg.Email.Provider != "log" && cfg.Email.Provider != "ses" {
		return nil, fmt.Errorf("EMAIL_PROVIDER must be \"log\" or \"ses\" (got %q)", cfg.Email.Provider)
	}

	return cfg, nil
}

// LoadClient reads the login client settings.
func LoadClient() (*ClientConfig, error) {
	_ = godotenv.Load()

	stateDir := defaultStateDir()

	cfg := &ClientConfig{
		APIBaseURL:       strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:8080"), "/"),
		SupportEmail:     getEnv("SUPPORT_EMAIL", DefaultSupportEmail),
		MaxLoginAttempts: getEnvAsInt("LOGIN_MAX_ATTEMPTS", 5),
		ResendCooldown:   getEnvAsDuration("OTP_RESEND_COOLDOWN", 60*time.Second),
		InitialCooldown:  getEnvAsDuration("OTP_INITIAL_COOLDOWN", 60*time.Second),
		ClearOnReject:    getEnvAsBool("OTP_CLEAR_ON_REJECT", false),
		RedirectDelay:    getEnvAsDuration("REDIRECT_DELAY", 1500*time.Millisecond),
		DeviceStorePath:  getEnv("DEVICE_STORE_PATH", filepath.Join(stateDir, "device.json")),
		TokenStorePath:   getEnv("TOKEN_STORE_PATH", filepath.Join(stateDir, "session.json")),
		RequestTimeout:   getEnvAsDuration("REQUEST_TIMEOUT", 0),
		LogLevel:         getEnv("LOG_LEVEL", "warn"),
		AppName:          getEnv("APP_NAME", "haulgate-cli"),
		MetricsAddr:      getEnv("CLIENT_METRICS_ADDR", ""),
	}

	u, err := url.Parse(cfg.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("API_BASE_URL must be an absolute URL (got %q)", cfg.APIBaseURL)
	}
	if cfg.MaxLoginAttempts <= 0 {
		return nil, fmt.Errorf("LOGIN_MAX_ATTEMPTS must be positive")
	}

	return cfg, nil
}

// validateJWTSecret enforces minimum security standards for JWT secret
func validateJWTSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

// Enabled reports whether a postgres database was configured.
func (c *DatabaseConfig) Enabled() bool {
	return c.Host != ""
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func defaultStateDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "haulgate")
	}
	return ".haulgate"
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsSlice(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := parseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// parseDuration accepts Go durations ("90s") and ISO 8601 durations ("PT90S", "P30D").
func parseDuration(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	isoDuration, err := duration.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return isoDuration.ToTimeDuration(), nil
}
