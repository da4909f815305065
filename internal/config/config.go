package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

type Config struct {
	Database   DatabaseConfig
	JWT        JWTConfig
	App        AppConfig
	Attendance AttendanceConfig
	Cron       CronConfig
}

type DatabaseConfig struct {
	Driver     string
	Host       string
	Port       int
	User       string
	Password   string
	Name       string
	SSLMode    string
	SQLitePath string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration string
}

// AppConfig holds application configuration
type AppConfig struct {
	Name           string
	Version        string
	Port           int
	Env            string
	LogLevel       string
	AllowedOrigins []string
}

// AttendanceConfig holds the working-hours policy
type AttendanceConfig struct {
	WorkStartTime         string
	WorkEndTime           string
	GracePeriodMinutes    int
	HalfDayThresholdHours float64
	Timezone              string
}

type CronConfig struct {
	MarkAbsentEnabled  bool
	MarkAbsentInterval time.Duration
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if getEnv("APP_ENV", "development") == "production" {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
		slog.Debug("No .env file loaded, using environment", "error", err)
	}

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	config.Database = DatabaseConfig{
		Driver:     strings.ToLower(getEnv("DB_DRIVER", DriverPostgres)),
		Host:       getEnv("DB_HOST", "localhost"),
		Port:       dbPort,
		User:       getEnv("DB_USER", "postgres"),
		Password:   getEnv("DB_PASSWORD", ""),
		Name:       getEnv("DB_NAME", "attendance"),
		SSLMode:    getEnv("DB_SSL_MODE", "disable"),
		SQLitePath: getEnv("SQLITE_PATH", "./data/attendance.db"),
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Name:           getEnv("APP_NAME", "attendance-tracker"),
		Version:        getEnv("APP_VERSION", "v1.0.0"),
		Port:           appPort,
		Env:            getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
	}

	// JWT configuration
	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnv("JWT_ACCESS_EXPIRATION_TIME", "1h"),
	}

	// Attendance policy
	grace, err := strconv.Atoi(getEnv("GRACE_PERIOD_MINUTES", "15"))
	if err != nil {
		return nil, fmt.Errorf("invalid GRACE_PERIOD_MINUTES: %w", err)
	}
	halfDay, err := strconv.ParseFloat(getEnv("HALF_DAY_THRESHOLD_HOURS", "4"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid HALF_DAY_THRESHOLD_HOURS: %w", err)
	}

	config.Attendance = AttendanceConfig{
		WorkStartTime:         getEnv("WORK_START_TIME", "09:30"),
		WorkEndTime:           getEnv("WORK_END_TIME", "17:30"),
		GracePeriodMinutes:    grace,
		HalfDayThresholdHours: halfDay,
		Timezone:              getEnv("TIMEZONE", "UTC"),
	}

	// Background jobs
	markAbsent, err := strconv.ParseBool(getEnv("CRON_MARK_ABSENT_ENABLED", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid CRON_MARK_ABSENT_ENABLED: %w", err)
	}
	interval, err := time.ParseDuration(getEnv("CRON_MARK_ABSENT_INTERVAL", "15m"))
	if err != nil {
		return nil, fmt.Errorf("invalid CRON_MARK_ABSENT_INTERVAL: %w", err)
	}

	config.Cron = CronConfig{
		MarkAbsentEnabled:  markAbsent,
		MarkAbsentInterval: interval,
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Password == "" {
			return errors.New("DB_PASSWORD is required")
		}
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			return errors.New("SQLITE_PATH is required")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("DB_DRIVER must be one of: postgres, sqlite, memory (got %q)", c.Database.Driver)
	}

	if c.JWT.Secret == "" {
		return errors.New("JWT_SECRET_KEY is required")
	}
	if c.Attendance.GracePeriodMinutes < 0 {
		return errors.New("GRACE_PERIOD_MINUTES must not be negative")
	}
	if c.Attendance.HalfDayThresholdHours <= 0 {
		return errors.New("HALF_DAY_THRESHOLD_HOURS must be positive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Cron.MarkAbsentEnabled && c.Cron.MarkAbsentInterval <= 0 {
		return errors.New("CRON_MARK_ABSENT_INTERVAL must be positive")
	}
	return nil
}

// Location resolves the configured attendance time zone
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Attendance.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Attendance.Timezone, err)
	}
	return loc, nil
}

// SlogLevel maps LOG_LEVEL to a slog level; unknown values fall back to info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.App.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(key, fallback string) []string {
	value := getEnv(key, fallback)
	if value == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
