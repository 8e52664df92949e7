package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	GCP       GCPConfig
	OCR       OCRConfig
	Model     ModelConfig
	Queue     QueueConfig
	Dashboard DashboardConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port               string
	RateLimitPerSecond int
	RateLimitBurst     int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	MaxUploadBytes     int64
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
}

type GCPConfig struct {
	ProjectID       string
	Bucket          string
	CredentialsFile string
	BigQueryDataset string
	ArchiveEnabled  bool
}

type OCRConfig struct {
	// Provider is "documentai", "vision" or "none".
	Provider            string
	DocumentAILocation  string
	DocumentAIProcessor string
	VisionMaxPages      int
}

type ModelConfig struct {
	APIKey    string
	Name      string
	ChatName  string
	MaxTokens int
}

type QueueConfig struct {
	// Backend is "memory" or "redis".
	Backend    string
	RedisAddr  string
	RedisQueue string
	BufferSize int
	Workers    int
}

type DashboardConfig struct {
	Prefix    string
	URLExpiry time.Duration
	ListLimit int
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables, after loading a .env
// file from the working directory when one exists.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: loading .env: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			RateLimitPerSecond: getEnvAsInt("RATE_LIMIT_PER_SECOND", 20),
			RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 40),
			ReadTimeout:        getEnvAsDuration("HTTP_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:       getEnvAsDuration("HTTP_WRITE_TIMEOUT", 5*time.Minute),
			MaxUploadBytes:     int64(getEnvAsInt("MAX_UPLOAD_MB", 25)) << 20,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Database: getEnv("DB_NAME", "bankapp"),
			SSLMode:  getEnv("DB_SSLMODE", "require"),
			MaxConns: getEnvAsInt("DB_MAX_CONNS", 10),
		},
		GCP: GCPConfig{
			ProjectID:       getEnv("GOOGLE_CLOUD_PROJECT", ""),
			Bucket:          getEnv("GCS_BUCKET", ""),
			CredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
			BigQueryDataset: getEnv("BIGQUERY_DATASET", "statements"),
			ArchiveEnabled:  getEnvAsBool("ARCHIVE_ENABLED", true),
		},
		OCR: OCRConfig{
			Provider:            strings.ToLower(getEnv("OCR_PROVIDER", "documentai")),
			DocumentAILocation:  getEnv("DOCUMENTAI_LOCATION", "us"),
			DocumentAIProcessor: getEnv("DOCUMENTAI_PROCESSOR_ID", ""),
			VisionMaxPages:      getEnvAsInt("VISION_MAX_PAGES", 5),
		},
		Model: ModelConfig{
			APIKey:    getEnv("GEMINI_API_KEY", ""),
			Name:      getEnv("MODEL_NAME", "gemini-2.5-flash"),
			ChatName:  getEnv("CHAT_MODEL_NAME", "gemini-2.5-flash"),
			MaxTokens: getEnvAsInt("MODEL_MAX_TOKENS", 4096),
		},
		Queue: QueueConfig{
			Backend:    strings.ToLower(getEnv("QUEUE_BACKEND", "memory")),
			RedisAddr:  getEnv("REDIS_ADDR", "localhost:6379"),
			RedisQueue: getEnv("REDIS_QUEUE", "statement-jobs"),
			BufferSize: getEnvAsInt("QUEUE_BUFFER_SIZE", 100),
			Workers:    getEnvAsInt("QUEUE_WORKERS", 5),
		},
		Dashboard: DashboardConfig{
			Prefix:    getEnv("DASHBOARD_PREFIX", "dashboard/"),
			URLExpiry: getEnvAsDuration("DASHBOARD_URL_EXPIRY", time.Hour),
			ListLimit: getEnvAsInt("DASHBOARD_LIST_LIMIT", 20),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
	}

	return cfg, nil
}

// Validate reports settings every long-running service needs.
func (c *Config) Validate() error {
	var errs []error
	if c.GCP.Bucket == "" {
		errs = append(errs, errors.New("GCS_BUCKET is required"))
	}
	if c.Database.Host == "" || c.Database.Database == "" {
		errs = append(errs, errors.New("DB_HOST and DB_NAME are required"))
	}
	switch c.OCR.Provider {
	case "documentai":
		if c.OCR.DocumentAIProcessor == "" || c.GCP.ProjectID == "" {
			errs = append(errs, errors.New("DOCUMENTAI_PROCESSOR_ID and GOOGLE_CLOUD_PROJECT are required for documentai OCR"))
		}
	case "vision", "none":
	default:
		errs = append(errs, fmt.Errorf("unknown OCR_PROVIDER %q", c.OCR.Provider))
	}
	switch c.Queue.Backend {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("unknown QUEUE_BACKEND %q", c.Queue.Backend))
	}
	if c.GCP.ArchiveEnabled && c.GCP.ProjectID == "" {
		errs = append(errs, errors.New("GOOGLE_CLOUD_PROJECT is required when ARCHIVE_ENABLED"))
	}
	return errors.Join(errs...)
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode, c.MaxConns,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
