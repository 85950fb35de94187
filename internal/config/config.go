package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers
const (
	DriverMySQL  = "mysql"
	DriverMemory = "memory"
)

type Config struct {
	Database  DatabaseConfig
	JWT       JWTConfig
	Server    ServerConfig
	CORS      CORSConfig
	Blob      BlobConfig
	Converter ConverterConfig
	Sweeper   SweeperConfig
	Admin     AdminConfig
	Log       LogConfig
}

type DatabaseConfig struct {
	Driver   string
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	Database string
}

// DSN returns DATABASE_URL when set, otherwise a MySQL DSN built from the
// individual settings.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		d.User, d.Password, d.Host, d.Port, d.Database)
}

type JWTConfig struct {
	Secret      string
	TokenExpiry time.Duration
}

type ServerConfig struct {
	Port           string
	GinMode        string
	MaxUploadBytes int64
}

type CORSConfig struct {
	AllowedOrigins []string
}

type BlobConfig struct {
	Root string
}

type ConverterConfig struct {
	Command     []string
	Timeout     time.Duration
	MaxParallel int
}

type SweeperConfig struct {
	// Interval of zero disables the sweeper.
	Interval time.Duration
}

// AdminConfig seeds the first token user.
type AdminConfig struct {
	Username string
	Password string
}

type LogConfig struct {
	Level  string
	Format string
}

func LoadConfig() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	config := &Config{
		Database: DatabaseConfig{
			Driver:   getEnv("STORE_DRIVER", DriverMySQL),
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "3306"),
			User:     getEnv("DB_USER", "root"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "commissioning"),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me"),
			TokenExpiry: parseDuration(getEnv("TOKEN_EXPIRY", "4h"), 4*time.Hour),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			GinMode:        getEnv("GIN_MODE", "debug"),
			MaxUploadBytes: parseInt64(getEnv("MAX_UPLOAD_BYTES", "20971520"), 20<<20),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173"), ","),
		},
		Blob: BlobConfig{
			Root: getEnv("BLOB_ROOT", "./json_lists"),
		},
		Converter: ConverterConfig{
			Command:     strings.Fields(getEnv("CONVERTER_COMMAND", "xlsx2json")),
			Timeout:     parseDuration(getEnv("CONVERTER_TIMEOUT", "60s"), time.Minute),
			MaxParallel: int(parseInt64(getEnv("CONVERTER_MAX_PARALLEL", "4"), 4)),
		},
		Sweeper: SweeperConfig{
			Interval: parseDuration(getEnv("SWEEP_INTERVAL", "10m"), 10*time.Minute),
		},
		Admin: AdminConfig{
			Username: getEnv("ADMIN_USERNAME", ""),
			Password: getEnv("ADMIN_PASSWORD", ""),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return config
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil || duration < 0 {
		fmt.Printf("Warning: Invalid duration format '%s', using %s\n", s, fallback)
		return fallback
	}
	return duration
}

func parseInt64(s string, fallback int64) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		fmt.Printf("Warning: Invalid number '%s', using %d\n", s, fallback)
		return fallback
	}
	return n
}

func parseList(s, sep string) []string {
	items := []string{}
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}
