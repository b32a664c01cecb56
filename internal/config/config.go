package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/abduss/transmute/internal/sqlident"
)

// Supported metadata database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config aggregates runtime configuration for the Transmute API.
type Config struct {
	App       AppConfig
	Server    ServerConfig
	Database  DatabaseConfig
	Postgres  PostgresConfig
	Storage   StorageConfig
	MinIO     MinIOConfig
	Converter ConverterConfig
	Cache     CacheConfig
	Metrics   MetricsConfig
}

// AppConfig carries the identity reported by /health/info.
type AppConfig struct {
	Name    string
	Version string
}

// ServerConfig parameterizes the HTTP server.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Address returns the listen address in host:port form.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig selects the metadata backend and its table names.
type DatabaseConfig struct {
	Driver           string
	SQLitePath       string
	FilesTable       string
	ConversionsTable string
	RelationsTable   string
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

// StorageConfig describes the on-disk layout.
type StorageConfig struct {
	UploadDir      string
	TmpDir         string
	OutputDir      string
	MaxUploadBytes int64
}

// MinIOConfig carries the optional mirror bucket settings.
type MinIOConfig struct {
	Enabled         bool
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
	Region          string
}

// ConverterConfig names the external tools and bounds their runtime.
type ConverterConfig struct {
	Timeout        time.Duration
	DrawioBinary   string
	InkscapeBinary string
	MagickBinary   string
}

// CacheConfig sizes the metadata cache. Size 0 disables it.
type CacheConfig struct {
	Size int
	TTL  time.Duration
}

// MetricsConfig groups observability settings.
type MetricsConfig struct {
	PrometheusPath string
}

// Load reads configuration values from environment variables, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		App: AppConfig{
			Name:    getString("TRANSMUTE_APP_NAME", "Transmute"),
			Version: getString("TRANSMUTE_APP_VERSION", "v1.0.0"),
		},
		Server: ServerConfig{
			Host:         getString("TRANSMUTE_API_HOST", "0.0.0.0"),
			Port:         getInt("TRANSMUTE_API_PORT", 8080),
			ReadTimeout:  getDuration("TRANSMUTE_API_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDuration("TRANSMUTE_API_WRITE_TIMEOUT", 5*time.Minute),
			IdleTimeout:  getDuration("TRANSMUTE_API_IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			Driver:           strings.ToLower(getString("TRANSMUTE_DB_DRIVER", DriverPostgres)),
			SQLitePath:       getString("TRANSMUTE_SQLITE_PATH", "data/db/app.db"),
			FilesTable:       getString("TRANSMUTE_FILES_TABLE", "files"),
			ConversionsTable: getString("TRANSMUTE_CONVERSIONS_TABLE", "conversions"),
			RelationsTable:   getString("TRANSMUTE_RELATIONS_TABLE", "conversion_relations"),
		},
		Postgres: PostgresConfig{
			Host:     getString("POSTGRES_HOST", "localhost"),
			Port:     getInt("POSTGRES_PORT", 5432),
			User:     getString("POSTGRES_USER", "transmute"),
			Password: getString("POSTGRES_PASSWORD", "change-me"),
			Database: getString("POSTGRES_DB", "transmute"),
			SSLMode:  strings.ToLower(getString("POSTGRES_SSL_MODE", "disable")),
		},
		Storage: StorageConfig{
			UploadDir:      getString("TRANSMUTE_UPLOAD_DIR", "data/uploads"),
			TmpDir:         getString("TRANSMUTE_TMP_DIR", "data/tmp"),
			OutputDir:      getString("TRANSMUTE_OUTPUT_DIR", "data/converted"),
			MaxUploadBytes: getInt64("TRANSMUTE_MAX_UPLOAD_BYTES", 100*1024*1024),
		},
		MinIO: MinIOConfig{
			Enabled:         getBool("TRANSMUTE_MIRROR_ENABLED", false),
			Endpoint:        getString("MINIO_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getString("MINIO_ROOT_USER", "transmute"),
			SecretAccessKey: getString("MINIO_ROOT_PASSWORD", "change-me-strong-password"),
			Bucket:          getString("MINIO_BUCKET", "transmute"),
			UseSSL:          getBool("MINIO_USE_SSL", false),
			Region:          getString("MINIO_REGION", ""),
		},
		Converter: ConverterConfig{
			Timeout:        getDuration("TRANSMUTE_CONVERTER_TIMEOUT", 2*time.Minute),
			DrawioBinary:   getString("TRANSMUTE_DRAWIO_BIN", "drawio-export"),
			InkscapeBinary: getString("TRANSMUTE_INKSCAPE_BIN", "inkscape"),
			MagickBinary:   getString("TRANSMUTE_MAGICK_BIN", "magick"),
		},
		Cache: CacheConfig{
			Size: getInt("TRANSMUTE_CACHE_SIZE", 1024),
			TTL:  getDuration("TRANSMUTE_CACHE_TTL", 10*time.Minute),
		},
		Metrics: MetricsConfig{
			PrometheusPath: getString("TRANSMUTE_METRICS_PATH", "/metrics"),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	tables := []string{c.Database.FilesTable, c.Database.ConversionsTable, c.Database.RelationsTable}
	seen := make(map[string]struct{}, len(tables))
	for _, name := range tables {
		if _, err := sqlident.Validate(name); err != nil {
			return fmt.Errorf("table name: %w", err)
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("table name %q configured more than once", name)
		}
		seen[key] = struct{}{}
	}

	if c.Storage.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive, got %d", c.Storage.MaxUploadBytes)
	}
	return nil
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

func getInt64(key string, fallback int64) int64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
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
