package common

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	LLM     LLMConfig     `yaml:"llm"`
	Session SessionConfig `yaml:"session"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
	GRPCAddr string `yaml:"grpc_addr"` // empty disables the health endpoint
	// MaxUploadMB is the size guidance printed on the upload surface. It is
	// never enforced.
	MaxUploadMB int `yaml:"max_upload_mb"`
	// UploadLimitMB refuses request bodies above it.
	UploadLimitMB int `yaml:"upload_limit_mb"`
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	// APIKey only comes from the config file. API_KEY and GEMINI_API_KEY are
	// read by the client on every extraction.
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"` // 0 = wait for the provider
}

// SessionConfig holds per-tab state configuration
type SessionConfig struct {
	TTL       time.Duration `yaml:"ttl"`
	CopyReset time.Duration `yaml:"copy_reset"`
}

// LogConfig selects the slog handler
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json | text
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr:      getEnv("HTTP_ADDR", ":8080"),
			GRPCAddr:      getEnv("GRPC_ADDR", ":9090"),
			MaxUploadMB:   getEnvAsInt("MAX_UPLOAD_MB", 10),
			UploadLimitMB: getEnvAsInt("UPLOAD_LIMIT_MB", 64),
		},
		LLM: LLMConfig{
			Model:   getEnv("GEMINI_MODEL", "gemini-3-flash-preview"),
			BaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
			Timeout: getEnvAsDuration("GEMINI_TIMEOUT", 0),
		},
		Session: SessionConfig{
			TTL:       getEnvAsDuration("SESSION_TTL", 2*time.Hour),
			CopyReset: getEnvAsDuration("COPY_RESET", 2*time.Second),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
}

// LoadConfigFile overlays a YAML file on the environment-derived config.
// Keys absent from the file keep their env/default values.
func LoadConfigFile(path string) (*Config, error) {
	cfg := LoadConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	return cfg, nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration.
// A missing API key is deliberately not checked here: it surfaces per extraction.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return NewKindError(KindConfiguration, "HTTP_ADDR is required", ErrInvalidInput)
	}
	if _, _, err := net.SplitHostPort(c.Server.HTTPAddr); err != nil {
		return NewKindError(KindConfiguration, "HTTP_ADDR must be host:port", err)
	}
	if c.Server.GRPCAddr != "" {
		if _, _, err := net.SplitHostPort(c.Server.GRPCAddr); err != nil {
			return NewKindError(KindConfiguration, "GRPC_ADDR must be host:port", err)
		}
	}
	if c.Server.MaxUploadMB <= 0 {
		return NewKindError(KindConfiguration, "MAX_UPLOAD_MB must be positive", ErrInvalidInput)
	}
	if c.Server.UploadLimitMB < c.Server.MaxUploadMB {
		return NewKindError(KindConfiguration, "UPLOAD_LIMIT_MB must not be below MAX_UPLOAD_MB", ErrInvalidInput)
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		return NewKindError(KindConfiguration, "GEMINI_MODEL is required", ErrInvalidInput)
	}
	if c.LLM.Timeout < 0 {
		return NewKindError(KindConfiguration, "GEMINI_TIMEOUT must not be negative", ErrInvalidInput)
	}
	if c.Session.CopyReset <= 0 {
		return NewKindError(KindConfiguration, "COPY_RESET must be positive", ErrInvalidInput)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return NewKindError(KindConfiguration, "LOG_FORMAT must be json or text", ErrInvalidInput)
	}
	return nil
}

// UploadLimitBytes is UploadLimitMB in bytes.
func (c *Config) UploadLimitBytes() int64 {
	return int64(c.Server.UploadLimitMB) * 1024 * 1024
}
