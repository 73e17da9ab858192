package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates runtime configuration for the PicShare API.
type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	MinIO    MinIOConfig
	Upload   UploadConfig
	Image    ImageConfig
	Auth     AuthConfig
	Mail     MailConfig
	Stats    StatsConfig
	Metrics  MetricsConfig
}

// ServerConfig parameterizes the HTTP server.
type ServerConfig struct {
	Host         string
	Port         int
	PublicURL    string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Address returns the listen address in host:port form.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// PostgresConfig contains PostgreSQL connection details.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// DSN returns the PostgreSQL DSN string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// MinIOConfig carries MinIO connection and bucket information.
type MinIOConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
	Region          string
}

// UploadConfig bounds the chunked upload coordinator.
type UploadConfig struct {
	PartSize      int64
	MaxParts      int
	SessionTTL    time.Duration
	SweepInterval time.Duration
}

// ImageConfig parameterizes the processing pipeline applied at publication.
type ImageConfig struct {
	MaxWidth      int
	MaxHeight     int
	JPEGQuality   int
	WatermarkText string
	URLExpiry     time.Duration
}

// AuthConfig groups authentication-related settings.
type AuthConfig struct {
	TokenSecret string
	TokenTTL    time.Duration
	CodeTTL     time.Duration
	BcryptCost  int
}

// MailConfig holds the SMTP transport used for sign-in codes.
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// StatsConfig groups visit analytics settings.
type StatsConfig struct {
	GeoIPDatabasePath string
}

// MetricsConfig groups observability settings.
type MetricsConfig struct {
	PrometheusPath string
}

// Load reads configuration values from environment variables, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host:         getString("PICSHARE_API_HOST", "0.0.0.0"),
			Port:         getInt("PICSHARE_API_PORT", 8080),
			PublicURL:    getString("PICSHARE_PUBLIC_URL", "http://localhost:8080"),
			ReadTimeout:  getDuration("PICSHARE_API_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getDuration("PICSHARE_API_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getDuration("PICSHARE_API_IDLE_TIMEOUT", 60*time.Second),
		},
		Postgres: PostgresConfig{
			Host:     getString("POSTGRES_HOST", "localhost"),
			Port:     getInt("POSTGRES_PORT", 5432),
			User:     getString("POSTGRES_USER", "picshare_app"),
			Password: getString("POSTGRES_PASSWORD", "change-me"),
			Database: getString("POSTGRES_DB", "picshare"),
			SSLMode:  strings.ToLower(getString("POSTGRES_SSL_MODE", "disable")),
		},
		MinIO: MinIOConfig{
			Endpoint:        getString("MINIO_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getString("MINIO_ROOT_USER", "picshare"),
			SecretAccessKey: getString("MINIO_ROOT_PASSWORD", "change-me-strong-password"),
			Bucket:          getString("MINIO_BUCKET", "picshare"),
			UseSSL:          getBool("MINIO_USE_SSL", false),
			Region:          getString("MINIO_REGION", ""),
		},
		Upload: loadUploadConfig(),
		Image:  loadImageConfig(),
		Auth:   loadAuthConfig(),
		Mail: MailConfig{
			Host:     getString("PICSHARE_SMTP_HOST", "localhost"),
			Port:     getInt("PICSHARE_SMTP_PORT", 587),
			Username: getString("PICSHARE_SMTP_USER", ""),
			Password: getString("PICSHARE_SMTP_PASSWORD", ""),
			From:     getString("PICSHARE_SMTP_FROM", "no-reply@picshare.local"),
		},
		Stats: StatsConfig{
			GeoIPDatabasePath: getString("PICSHARE_GEOIP_DB", ""),
		},
		Metrics: MetricsConfig{
			PrometheusPath: getString("PICSHARE_METRICS_PATH", "/metrics"),
		},
	}

	return cfg, nil
}

func loadUploadConfig() UploadConfig {
	partSize := int64(getInt("PICSHARE_UPLOAD_PART_SIZE", 5*1024*1024))
	if partSize <= 0 {
		partSize = 5 * 1024 * 1024
	}
	maxParts := getInt("PICSHARE_UPLOAD_MAX_PARTS", 100)
	if maxParts < 1 {
		maxParts = 100
	}

	return UploadConfig{
		PartSize:      partSize,
		MaxParts:      maxParts,
		SessionTTL:    getDuration("PICSHARE_UPLOAD_SESSION_TTL", 24*time.Hour),
		SweepInterval: getDuration("PICSHARE_UPLOAD_SWEEP_INTERVAL", time.Minute),
	}
}

func loadImageConfig() ImageConfig {
	quality := getInt("PICSHARE_IMAGE_JPEG_QUALITY", 80)
	if quality < 1 || quality > 100 {
		quality = 80
	}

	return ImageConfig{
		MaxWidth:      getInt("PICSHARE_IMAGE_MAX_WIDTH", 1920),
		MaxHeight:     getInt("PICSHARE_IMAGE_MAX_HEIGHT", 1080),
		JPEGQuality:   quality,
		WatermarkText: getString("PICSHARE_IMAGE_WATERMARK", ""),
		URLExpiry:     getDuration("PICSHARE_IMAGE_URL_EXPIRY", time.Hour),
	}
}

func loadAuthConfig() AuthConfig {
	cost := getInt("PICSHARE_AUTH_BCRYPT_COST", 10)
	if cost < 4 || cost > 31 {
		cost = 10
	}

	return AuthConfig{
		TokenSecret: getString("PICSHARE_JWT_SECRET", "change-me-to-a-32-byte-secret"),
		TokenTTL:    getDuration("PICSHARE_AUTH_TOKEN_TTL", 720*time.Hour),
		CodeTTL:     getDuration("PICSHARE_AUTH_CODE_TTL", 10*time.Minute),
		BcryptCost:  cost,
	}
}

func getString(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.ToLower(strings.TrimSpace(val))
		switch val {
		case "1", "true", "t", "yes", "y":
			return true
		case "0", "false", "f", "no", "n":
			return false
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return fallback
}
