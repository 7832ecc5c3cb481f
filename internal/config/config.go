package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// CSV import configuration
	Import ImportConfig

	// Authorization configuration
	Authz AuthzConfig

	// Logging configuration
	Log LogConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// ImportConfig holds CSV import settings
type ImportConfig struct {
	MaxFileSize       int64 // in bytes
	MaxInputArraySize int   // rows handed to a batch processor at once
	MaxConcurrent     int   // imports allowed to hold a transaction at once
	AgeRangeLowMin    int
	AgeRangeHighMax   int
	Limits            Limits
}

// Limits holds the maximum lengths enforced by the row schemas
type Limits struct {
	OrganizationName int
	SchoolName       int
	ClassName        int
	EntityName       int
	GivenName        int
	FamilyName       int
	Shortcode        int
	Email            int
	Phone            int
	Gender           int
	RoleName         int
}

// AuthzConfig holds casbin model and policy locations
type AuthzConfig struct {
	ModelPath  string
	PolicyPath string
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string
	Format string // "json" or "pretty"
}

// DefaultLimits returns the column length limits used when nothing is configured
func DefaultLimits() Limits {
	return Limits{
		OrganizationName: 35,
		SchoolName:       120,
		ClassName:        45,
		EntityName:       35,
		GivenName:        100,
		FamilyName:       100,
		Shortcode:        16,
		Email:            250,
		Phone:            15,
		Gender:           16,
		RoleName:         20,
	}
}

// DefaultImportConfig returns the import settings used by tests and the CLI
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		MaxFileSize:       50 * 1024 * 1024,
		MaxInputArraySize: 50,
		MaxConcurrent:     8,
		AgeRangeLowMin:    0,
		AgeRangeHighMax:   99,
		Limits:            DefaultLimits(),
	}
}

// Load reads configuration from environment variables.
// .env and .env.local are loaded first when present.
func Load() (*Config, error) {
	if err := loadEnvFiles(".env", ".env.local"); err != nil {
		return nil, err
	}

	defaults := DefaultImportConfig()
	limits := defaults.Limits

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 300*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Name:         getEnv("DB_NAME", "roster_import"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getIntEnv("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getDurationEnv("DB_MAX_LIFETIME", 5*time.Minute),
		},
		Import: ImportConfig{
			MaxFileSize:       getInt64Env("CSV_MAX_FILESIZE", defaults.MaxFileSize),
			MaxInputArraySize: getIntEnv("MUTATION_MAX_INPUT_ARRAY_SIZE", defaults.MaxInputArraySize),
			MaxConcurrent:     getIntEnv("IMPORT_MAX_CONCURRENT", defaults.MaxConcurrent),
			AgeRangeLowMin:    getIntEnv("AGE_RANGE_MIN", defaults.AgeRangeLowMin),
			AgeRangeHighMax:   getIntEnv("AGE_RANGE_MAX", defaults.AgeRangeHighMax),
			Limits: Limits{
				OrganizationName: getIntEnv("ORGANIZATION_NAME_MAX_LENGTH", limits.OrganizationName),
				SchoolName:       getIntEnv("SCHOOL_NAME_MAX_LENGTH", limits.SchoolName),
				ClassName:        getIntEnv("CLASS_NAME_MAX_LENGTH", limits.ClassName),
				EntityName:       getIntEnv("ENTITY_NAME_MAX_LENGTH", limits.EntityName),
				GivenName:        getIntEnv("USER_GIVEN_NAME_MAX_LENGTH", limits.GivenName),
				FamilyName:       getIntEnv("USER_FAMILY_NAME_MAX_LENGTH", limits.FamilyName),
				Shortcode:        getIntEnv("SHORTCODE_MAX_LENGTH", limits.Shortcode),
				Email:            getIntEnv("EMAIL_MAX_LENGTH", limits.Email),
				Phone:            getIntEnv("PHONE_MAX_LENGTH", limits.Phone),
				Gender:           getIntEnv("GENDER_MAX_LENGTH", limits.Gender),
				RoleName:         getIntEnv("ROLE_NAME_MAX_LENGTH", limits.RoleName),
			},
		},
		Authz: AuthzConfig{
			ModelPath:  getEnv("AUTHZ_MODEL_PATH", "./authz/model.conf"),
			PolicyPath: getEnv("AUTHZ_POLICY_PATH", "./authz/policy.csv"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	return c.Import.Validate()
}

// Validate checks the import settings
func (c *ImportConfig) Validate() error {
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("CSV_MAX_FILESIZE must be positive")
	}
	if c.MaxInputArraySize <= 0 {
		return fmt.Errorf("MUTATION_MAX_INPUT_ARRAY_SIZE must be positive")
	}
	if c.MaxConcurrent <= 0 {
		return fmt.Errorf("IMPORT_MAX_CONCURRENT must be positive")
	}
	if c.AgeRangeLowMin >= c.AgeRangeHighMax {
		return fmt.Errorf("AGE_RANGE_MIN must be less than AGE_RANGE_MAX")
	}
	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func loadEnvFiles(files ...string) error {
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load env files: %w", err)
	}
	return nil
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
