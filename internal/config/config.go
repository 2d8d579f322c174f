package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewLifecyclePolicyHolder),
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPPort    string

	Telemetry TelemetryConfig

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
	DBSlowQueryMS     int64
	DBLogQueries      bool

	AuthJWTSecret          string
	AccessTokenTTLSeconds  int64
	RefreshTokenTTLSeconds int64

	SMTP     SMTPConfig
	Storage  StorageConfig
	Razorpay RazorpayConfig
	Redis    RedisConfig

	Bootstrap BootstrapConfig

	CORSAllowedOrigins []string

	// Credits granted to a new entity at signup.
	SignupWelcomeCredits int64
	// Credits bought per unit of currency on top-up.
	CreditsPerCurrencyUnit int64
}

// TelemetryConfig drives structured logging and OTLP export.
type TelemetryConfig struct {
	LogLevel  string
	LogFormat string

	OTLPEnabled   bool
	OTLPEndpoint  string
	OTLPProtocol  string
	SamplingRatio float64
}

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

type StorageConfig struct {
	Bucket          string
	CredentialsJSON string
	CredentialsFile string
}

type RazorpayConfig struct {
	KeyID     string
	KeySecret string
	BaseURL   string
	Currency  string
}

// BootstrapConfig seeds a staff admin on startup when AdminEmail is set.
type BootstrapConfig struct {
	AdminEmail    string
	AdminPassword string
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int

	OTPRatePerMinute int64
	OTPBurst         int64
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")
	cfg := Config{
		AppName:     getenv("APP_SERVICE", "credmatrix"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: environment,
		HTTPPort:    getenv("HTTP_PORT", "8080"),

		Telemetry: TelemetryConfig{
			LogLevel:  getenv("LOG_LEVEL", "info"),
			LogFormat: getenv("LOG_FORMAT", "json"),
			// Export is opt-in outside production.
			OTLPEnabled:   getenvBool("OTEL_ENABLED", strings.EqualFold(environment, "production")),
			OTLPEndpoint:  getenv("OTEL_EXPORTER_OTLP_ENDPOINT", getenv("OTLP_ENDPOINT", "localhost:4317")),
			OTLPProtocol:  getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"),
			SamplingRatio: getenvFloat("OTEL_TRACES_SAMPLER_ARG", 0.1),
		},

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "credmatrix"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     int(getenvInt64("DATABASE_MAX_IDLE_CONN", 10)),
		DBMaxOpenConn:     int(getenvInt64("DATABASE_MAX_OPEN_CONN", 50)),
		DBConnMaxLifetime: int(getenvInt64("DATABASE_CONN_MAX_LIFETIME", 300)),
		DBConnMaxIdleTime: int(getenvInt64("DATABASE_CONN_MAX_IDLE_TIME", 60)),
		DBSlowQueryMS:     getenvInt64("DATABASE_SLOW_QUERY_MS", 200),
		DBLogQueries:      getenvBool("DATABASE_LOG_QUERIES", false),

		AuthJWTSecret:          strings.TrimSpace(getenv("AUTH_JWT_SECRET", "")),
		AccessTokenTTLSeconds:  getenvInt64("AUTH_ACCESS_TOKEN_TTL", 15*60),
		RefreshTokenTTLSeconds: getenvInt64("AUTH_REFRESH_TOKEN_TTL", 7*24*60*60),

		SMTP: SMTPConfig{
			Host:     strings.TrimSpace(getenv("SMTP_HOST", "")),
			Port:     getenv("SMTP_PORT", "587"),
			Username: strings.TrimSpace(getenv("SMTP_USERNAME", "")),
			Password: getenv("SMTP_PASSWORD", ""),
			From:     strings.TrimSpace(getenv("SMTP_FROM", "no-reply@credmatrix.local")),
		},
		Storage: StorageConfig{
			Bucket:          strings.TrimSpace(getenv("GCS_BUCKET", "")),
			CredentialsJSON: getenv("GCS_CREDENTIALS_JSON", ""),
			CredentialsFile: strings.TrimSpace(getenv("GCS_CREDENTIALS_FILE", "")),
		},
		Razorpay: RazorpayConfig{
			KeyID:     strings.TrimSpace(getenv("RAZORPAY_KEY_ID", "")),
			KeySecret: strings.TrimSpace(getenv("RAZORPAY_KEY_SECRET", "")),
			BaseURL:   strings.TrimSpace(getenv("RAZORPAY_BASE_URL", "https://api.razorpay.com")),
			Currency:  strings.ToUpper(getenv("RAZORPAY_CURRENCY", "INR")),
		},
		Redis: RedisConfig{
			Enabled:          getenvBool("REDIS_ENABLED", false),
			Addr:             getenv("REDIS_ADDR", "localhost:6379"),
			Password:         getenv("REDIS_PASSWORD", ""),
			DB:               int(getenvInt64("REDIS_DB", 0)),
			OTPRatePerMinute: getenvInt64("OTP_RATE_PER_MINUTE", 3),
			OTPBurst:         getenvInt64("OTP_BURST", 3),
		},
		Bootstrap: BootstrapConfig{
			AdminEmail:    strings.TrimSpace(getenv("BOOTSTRAP_ADMIN_EMAIL", "")),
			AdminPassword: getenv("BOOTSTRAP_ADMIN_PASSWORD", ""),
		},

		CORSAllowedOrigins: splitList(getenv("CORS_ALLOWED_ORIGINS", "*")),

		SignupWelcomeCredits:   getenvInt64("SIGNUP_WELCOME_CREDITS", 0),
		CreditsPerCurrencyUnit: getenvInt64("CREDITS_PER_CURRENCY_UNIT", 1),
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
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

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
