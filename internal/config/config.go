package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// ReservedPaths are the routes registered by the server. The metrics endpoint may
// not reuse one of them.
var ReservedPaths = []string{
	"/",
	"/health",
	"/admin/stats",
	"/api/summary",
	"/api/kpis",
	"/api/monthly-sales",
	"/api/product-lines",
	"/api/countries",
	"/api/orders",
	"/api/filters",
	"/export/csv",
	"/export/xlsx",
	"/charts/monthly.svg",
	"/charts/product-lines.svg",
	"/charts/countries.svg",
	"/sse/dashboard",
}

type Config struct {
	Server    ServerConfig
	Data      DataConfig
	Dashboard DashboardConfig
	Logger    LoggerConfig
	Security  SecurityConfig
	Metrics   MetricsConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DataConfig describes the sales export read at startup.
type DataConfig struct {
	CSVFile     string
	Encoding    string
	Delimiter   rune
	LoadTimeout time.Duration
}

type DashboardConfig struct {
	TopCountries int
	TableRows    int
}

type LoggerConfig struct {
	Level  string
	Format string
}

type SecurityConfig struct {
	EnableRateLimit bool
	RateLimitRPS    int
	RateLimitBurst  int
	AllowedOrigins  []string
	TrustedProxies  []string
}

type MetricsConfig struct {
	Enabled bool
	Path    string
}

var (
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"json", "text"}
	validEncodings  = []string{"latin1", "utf-8"}
)

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "localhost"),
			Port:            getEnvInt("SERVER_PORT", 8084),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Data: DataConfig{
			CSVFile:     getEnvString("CSV_FILE", "sales_data_sample.csv"),
			Encoding:    strings.ToLower(getEnvString("CSV_ENCODING", "latin1")),
			Delimiter:   getEnvRune("CSV_DELIMITER", ','),
			LoadTimeout: getEnvDuration("DATA_LOAD_TIMEOUT", 30*time.Second),
		},
		Dashboard: DashboardConfig{
			TopCountries: getEnvInt("DASHBOARD_TOP_COUNTRIES", 10),
			TableRows:    getEnvInt("DASHBOARD_TABLE_ROWS", 100),
		},
		Logger: LoggerConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "json"),
		},
		Security: SecurityConfig{
			EnableRateLimit: getEnvBool("SECURITY_RATE_LIMIT_ENABLED", true),
			RateLimitRPS:    getEnvInt("SECURITY_RATE_LIMIT_RPS", 100),
			RateLimitBurst:  getEnvInt("SECURITY_RATE_LIMIT_BURST", 10),
			AllowedOrigins:  getEnvStringSlice("SECURITY_ALLOWED_ORIGINS", []string{"http://localhost:8084"}),
			TrustedProxies:  getEnvStringSlice("SECURITY_TRUSTED_PROXIES", []string{"127.0.0.1"}),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnvString("METRICS_PATH", "/metrics"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Data.CSVFile == "" {
		return fmt.Errorf("CSV file path cannot be empty")
	}

	if !slices.Contains(validEncodings, c.Data.Encoding) {
		return fmt.Errorf("invalid CSV encoding %q, must be one of: %s", c.Data.Encoding, strings.Join(validEncodings, ", "))
	}

	if c.Data.Delimiter == 0 || c.Data.Delimiter == '"' || c.Data.Delimiter == '\n' || c.Data.Delimiter == '\r' {
		return fmt.Errorf("invalid CSV delimiter %q", c.Data.Delimiter)
	}

	if c.Data.LoadTimeout <= 0 {
		return fmt.Errorf("data load timeout must be positive")
	}

	if c.Dashboard.TopCountries <= 0 {
		return fmt.Errorf("top countries must be positive, got %d", c.Dashboard.TopCountries)
	}

	if c.Dashboard.TableRows <= 0 {
		return fmt.Errorf("table rows must be positive, got %d", c.Dashboard.TableRows)
	}

	if !slices.Contains(validLogLevels, c.Logger.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	}

	if !slices.Contains(validLogFormats, c.Logger.Format) {
		return fmt.Errorf("invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))
	}

	if c.Security.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit RPS must be positive")
	}

	if c.Security.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit burst must be positive")
	}

	if c.Metrics.Enabled {
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			return fmt.Errorf("metrics path must start with '/', got %q", c.Metrics.Path)
		}
		if strings.ContainsAny(c.Metrics.Path, "{} \t") {
			return fmt.Errorf("metrics path must be a literal path, got %q", c.Metrics.Path)
		}
		if slices.Contains(ReservedPaths, c.Metrics.Path) {
			return fmt.Errorf("metrics path %q is already served by the dashboard", c.Metrics.Path)
		}
	}

	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvRune accepts a single character, or "\t" for tab-separated files.
func getEnvRune(key string, defaultValue rune) rune {
	value := os.Getenv(key)
	if value == `\t` {
		return '\t'
	}
	if utf8.RuneCountInString(value) == 1 {
		r, _ := utf8.DecodeRuneInString(value)
		return r
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
