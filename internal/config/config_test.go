package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("TOKEN_EXPIRY", "")
	t.Setenv("CONVERTER_COMMAND", "")
	t.Setenv("SWEEP_INTERVAL", "")

	cfg := LoadConfig()
	assert.Equal(t, DriverMySQL, cfg.Database.Driver)
	assert.Equal(t, 4*time.Hour, cfg.JWT.TokenExpiry)
	assert.Equal(t, []string{"xlsx2json"}, cfg.Converter.Command)
	assert.Equal(t, 10*time.Minute, cfg.Sweeper.Interval)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("CONVERTER_COMMAND", "python3 convert.py")
	t.Setenv("CONVERTER_TIMEOUT", "5s")
	t.Setenv("SWEEP_INTERVAL", "0s")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("MAX_UPLOAD_BYTES", "bogus")

	cfg := LoadConfig()
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, []string{"python3", "convert.py"}, cfg.Converter.Command)
	assert.Equal(t, 5*time.Second, cfg.Converter.Timeout)
	assert.Zero(t, cfg.Sweeper.Interval)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, int64(20<<20), cfg.Server.MaxUploadBytes)
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{User: "u", Password: "p", Host: "h", Port: "3306", Database: "db"}
	assert.Equal(t, "u:p@tcp(h:3306)/db?charset=utf8mb4&parseTime=True&loc=UTC", d.DSN())

	d.URL = "x:y@tcp(z)/w"
	assert.Equal(t, "x:y@tcp(z)/w", d.DSN())
}
