package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("JWT_SECRET_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, "09:30", cfg.Attendance.WorkStartTime)
	assert.Equal(t, "17:30", cfg.Attendance.WorkEndTime)
	assert.Equal(t, 15, cfg.Attendance.GracePeriodMinutes)
	assert.Equal(t, 4.0, cfg.Attendance.HalfDayThresholdHours)
	assert.False(t, cfg.Cron.MarkAbsentEnabled)
	assert.Equal(t, 15*time.Minute, cfg.Cron.MarkAbsentInterval)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.App.AllowedOrigins)
}

func TestLoad_InvalidNumbers(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("JWT_SECRET_KEY", "secret")
	t.Setenv("GRACE_PERIOD_MINUTES", "fifteen")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Database:   DatabaseConfig{Driver: DriverPostgres, Password: "pw"},
			JWT:        JWTConfig{Secret: "secret"},
			Attendance: AttendanceConfig{GracePeriodMinutes: 15, HalfDayThresholdHours: 4, Timezone: "Asia/Jakarta"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "postgres without password", mutate: func(c *Config) { c.Database.Password = "" }, wantErr: true},
		{name: "sqlite without password", mutate: func(c *Config) {
			c.Database.Driver = DriverSQLite
			c.Database.Password = ""
			c.Database.SQLitePath = "./data/test.db"
		}},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, wantErr: true},
		{name: "missing secret", mutate: func(c *Config) { c.JWT.Secret = "" }, wantErr: true},
		{name: "negative grace", mutate: func(c *Config) { c.Attendance.GracePeriodMinutes = -1 }, wantErr: true},
		{name: "unknown timezone", mutate: func(c *Config) { c.Attendance.Timezone = "Mars/Olympus" }, wantErr: true},
		{name: "cron without interval", mutate: func(c *Config) { c.Cron.MarkAbsentEnabled = true }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSlogLevel(t *testing.T) {
	c := &Config{App: AppConfig{LogLevel: "debug"}}
	assert.Equal(t, slog.LevelDebug, c.SlogLevel())

	c.App.LogLevel = "loud"
	assert.Equal(t, slog.LevelInfo, c.SlogLevel())
}

func TestGetEnvSlice(t *testing.T) {
	t.Setenv("TEST_ORIGINS", " https://a.example, ,https://b.example ")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, getEnvSlice("TEST_ORIGINS", ""))
}
