package config

import (
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// Config holds application configuration. It is loaded once by the binaries
// under cmd/ and passed into constructors; business packages never read the
// environment themselves.
type Config struct {
	Port     string
	Env      string
	LogLevel string
	Timezone string

	StoreBackend string
	DatabaseURL  string

	CMSEndpoint string
	CMSToken    string
	CMSTimeout  time.Duration

	EmailProvider  string
	SendGridAPIKey string
	SenderEmail    string
	SenderName     string
	StaffEmail     string
	NotifyTimeout  time.Duration

	ClinicPhone string
	ClinicEmail string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	EventsQueueURL      string
	ExportBucket        string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	RateLimitRPS   float64
	RateLimitBurst int

	AdminJWTSecret     string
	CORSAllowedOrigins []string
}

// Store backends accepted by STORE_BACKEND.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreCMS      = "cms"
)

// Email providers accepted by EMAIL_PROVIDER.
const (
	EmailSendGrid = "sendgrid"
	EmailSES      = "ses"
	EmailStub     = "stub"
)

// Load reads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Timezone: getEnv("TIMEZONE", "Africa/Nairobi"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		CMSEndpoint: getEnv("CMS_ENDPOINT", ""),
		CMSToken:    getEnv("CMS_TOKEN", ""),
		CMSTimeout:  getEnvAsDuration("CMS_TIMEOUT", 10*time.Second),

		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
		SenderEmail:    getEnv("SENDER_EMAIL", "noreply@dohanimedicare.com"),
		SenderName:     getEnv("SENDER_NAME", "Dohani Medicare"),
		StaffEmail:     getEnv("STAFF_EMAIL", "dohanimedicare@gmail.com"),
		NotifyTimeout:  getEnvAsDuration("NOTIFY_TIMEOUT", 5*time.Second),

		ClinicPhone: getEnv("CLINIC_PHONE", "0798057622"),
		ClinicEmail: getEnv("CLINIC_EMAIL", "dohanimedicare@gmail.com"),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		EventsQueueURL:      getEnv("EVENTS_QUEUE_URL", ""),
		ExportBucket:        getEnv("EXPORT_BUCKET", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		RateLimitRPS:   getEnvAsFloat("RATE_LIMIT_RPS", 2),
		RateLimitBurst: getEnvAsInt("RATE_LIMIT_BURST", 10),

		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
	}

	cfg.StoreBackend = strings.ToLower(getEnv("STORE_BACKEND", defaultStoreBackend(cfg)))
	cfg.EmailProvider = strings.ToLower(getEnv("EMAIL_PROVIDER", defaultEmailProvider(cfg)))
	return cfg
}

// Location resolves Timezone, falling back to UTC when the zone is unknown.
func (c *Config) Location() *time.Location {
	loc, _ := c.ResolveLocation()
	return loc
}

// ResolveLocation is Location with the lookup error kept so callers can
// report a misconfigured TIMEZONE. The returned location is never nil.
func (c *Config) ResolveLocation() (*time.Location, error) {
	if c == nil || c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC, err
	}
	return loc, nil
}

func defaultStoreBackend(cfg *Config) string {
	switch {
	case cfg.CMSEndpoint != "":
		return StoreCMS
	case cfg.DatabaseURL != "":
		return StorePostgres
	default:
		return StoreMemory
	}
}

func defaultEmailProvider(cfg *Config) string {
	if cfg.SendGridAPIKey != "" {
		return EmailSendGrid
	}
	return EmailStub
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
