package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	Env               string
	HTTPPort          int
	ShutdownTimeout   time.Duration
	ReadHeaderTimeout time.Duration
	AllowedOrigins    []string

	DataBackend string

	DatabaseDriver    string
	DatabaseURL       string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBConnMaxIdleTime time.Duration
	DBPingTimeout     time.Duration

	AdminTokenSecret string
	AdminTokenTTL    time.Duration

	StoreName   string
	SMSSenderID string

	OTPTTL            time.Duration
	OTPResendCooldown time.Duration
	OTPMaxAttempts    int
	OTPVerifiedWindow time.Duration

	ShippingFeeCents           int64
	FreeShippingThresholdCents int64

	PayHereMerchantID     string
	PayHereMerchantSecret string
	PayHereCurrency       string
	PayHereSandbox        bool
	PayHereReturnURL      string
	PayHereCancelURL      string
	PayHereNotifyURL      string

	BulkConcurrency int
}

const (
	defaultEnv               = "development"
	defaultHTTPPort          = 8080
	defaultShutdownTimeout   = 10 * time.Second
	defaultReadHeaderTimeout = 5 * time.Second

	defaultDataBackend = "memory"

	defaultDatabaseDriver    = "pgx"
	defaultDBMaxOpenConns    = 10
	defaultDBMaxIdleConns    = 5
	defaultDBConnMaxLifetime = time.Hour
	defaultDBConnMaxIdleTime = 30 * time.Minute
	defaultDBPingTimeout     = 5 * time.Second

	defaultAdminTokenTTL = 12 * time.Hour

	defaultStoreName   = "Jersey House"
	defaultSMSSenderID = "JerseyHouse"

	defaultOTPTTL            = 5 * time.Minute
	defaultOTPResendCooldown = time.Minute
	defaultOTPMaxAttempts    = 5
	defaultOTPVerifiedWindow = 30 * time.Minute

	defaultShippingFeeCents           = 40000
	defaultFreeShippingThresholdCents = 1500000

	defaultPayHereCurrency = "LKR"

	defaultBulkConcurrency = 8
)

// Load reads configuration values from the environment, applying defaults where necessary.
func Load() (Config, error) {
	cfg := Config{
		Env:               getEnv("APP_ENV", defaultEnv),
		HTTPPort:          getInt("HTTP_PORT", defaultHTTPPort),
		ShutdownTimeout:   getDuration("SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		ReadHeaderTimeout: getDuration("READ_HEADER_TIMEOUT", defaultReadHeaderTimeout),
		AllowedOrigins:    getList("CORS_ALLOWED_ORIGINS"),

		DataBackend: getEnv("DATA_BACKEND", defaultDataBackend),

		DatabaseDriver:    getEnv("DATABASE_DRIVER", defaultDatabaseDriver),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		DBMaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", defaultDBMaxOpenConns),
		DBMaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", defaultDBMaxIdleConns),
		DBConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", defaultDBConnMaxLifetime),
		DBConnMaxIdleTime: getDuration("DB_CONN_MAX_IDLE_TIME", defaultDBConnMaxIdleTime),
		DBPingTimeout:     getDuration("DB_PING_TIMEOUT", defaultDBPingTimeout),

		AdminTokenSecret: os.Getenv("ADMIN_TOKEN_SECRET"),
		AdminTokenTTL:    getDuration("ADMIN_TOKEN_TTL", defaultAdminTokenTTL),

		StoreName:   getEnv("STORE_NAME", defaultStoreName),
		SMSSenderID: getEnv("SMS_SENDER_ID", defaultSMSSenderID),

		OTPTTL:            getDuration("OTP_TTL", defaultOTPTTL),
		OTPResendCooldown: getDuration("OTP_RESEND_COOLDOWN", defaultOTPResendCooldown),
		OTPMaxAttempts:    getInt("OTP_MAX_ATTEMPTS", defaultOTPMaxAttempts),
		OTPVerifiedWindow: getDuration("OTP_VERIFIED_WINDOW", defaultOTPVerifiedWindow),

		ShippingFeeCents:           getInt64("SHIPPING_FEE_CENTS", defaultShippingFeeCents),
		FreeShippingThresholdCents: getInt64("FREE_SHIPPING_THRESHOLD_CENTS", defaultFreeShippingThresholdCents),

		PayHereMerchantID:     os.Getenv("PAYHERE_MERCHANT_ID"),
		PayHereMerchantSecret: os.Getenv("PAYHERE_MERCHANT_SECRET"),
		PayHereCurrency:       getEnv("PAYHERE_CURRENCY", defaultPayHereCurrency),
		PayHereSandbox:        getBool("PAYHERE_SANDBOX", true),
		PayHereReturnURL:      os.Getenv("PAYHERE_RETURN_URL"),
		PayHereCancelURL:      os.Getenv("PAYHERE_CANCEL_URL"),
		PayHereNotifyURL:      os.Getenv("PAYHERE_NOTIFY_URL"),

		BulkConcurrency: getInt("BULK_CONCURRENCY", defaultBulkConcurrency),
	}

	if cfg.AdminTokenSecret == "" {
		return Config{}, fmt.Errorf("ADMIN_TOKEN_SECRET is required")
	}

	switch cfg.DataBackend {
	case "memory":
		// no-op
	case "postgres":
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL is required when DATA_BACKEND=postgres")
		}
	default:
		return Config{}, fmt.Errorf("unknown DATA_BACKEND value: %s", cfg.DataBackend)
	}

	if cfg.ShippingFeeCents < 0 || cfg.FreeShippingThresholdCents < 0 {
		return Config{}, fmt.Errorf("shipping amounts must not be negative")
	}
	if (cfg.PayHereMerchantID == "") != (cfg.PayHereMerchantSecret == "") {
		return Config{}, fmt.Errorf("PAYHERE_MERCHANT_ID and PAYHERE_MERCHANT_SECRET must be set together")
	}

	return cfg, nil
}

func getEnv(key string, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func getInt64(key string, defaultValue int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

// getList splits a comma separated value, dropping blanks.
func getList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}
