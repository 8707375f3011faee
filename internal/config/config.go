// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Server   ServerConfig
	Store    StoreConfig
	Assets   AssetsConfig
	Model    ModelConfig
	Matching MatchingConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Name         string
	Port         string        // Server port (default: 8080)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
}

// StoreConfig holds catalog database configuration.
type StoreConfig struct {
	// BasePath is the directory holding the Badger database.
	BasePath string
}

// AssetsConfig holds object storage configuration.
type AssetsConfig struct {
	// Root is the local directory backing the asset store.
	Root string
	// JobBuffer is the in-memory image job queue depth (default: 64).
	JobBuffer int
}

// ModelConfig holds generative model provider configuration.
type ModelConfig struct {
	// APIKey authenticates against the Gemini API. Empty disables
	// semantic matching and category inference.
	APIKey string
	// Model is the Gemini model identifier (default: gemini-2.0-flash).
	Model string
	// RequestsPerSecond throttles outbound model calls (default: 1).
	RequestsPerSecond float64
	// Burst is the rate limiter burst size (default: 3).
	Burst int
	// Timeout bounds a single model call (default: 30s).
	Timeout time.Duration
}

// MatchingConfig holds semantic matching configuration.
type MatchingConfig struct {
	// Threshold is the minimum confidence accepted as a match (default: 0.75).
	Threshold float64
	// MaxRetries is the number of retries after a failed model call (default: 1).
	MaxRetries int
	// RetryBackoff is the pause before a retry (default: 500ms).
	RetryBackoff time.Duration
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	serverName := flag.String("server-name", "", "Name for the server")
	serverPort := flag.String("port", "", "Server port (default: 8080)")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")

	storePath := flag.String("store-path", "", "Directory for the catalog database")
	assetsRoot := flag.String("assets-root", "", "Root directory of the asset store")
	jobBuffer := flag.String("job-buffer", "", "Image job queue depth (default: 64)")

	modelName := flag.String("model", "", "Gemini model identifier (default: gemini-2.0-flash)")
	modelRPS := flag.String("model-rps", "", "Model requests per second (default: 1)")
	modelTimeout := flag.String("model-timeout", "", "Per-call model timeout (default: 30s)")

	matchThreshold := flag.String("match-threshold", "", "Minimum match confidence 0..1 (default: 0.75)")
	matchRetries := flag.String("match-retries", "", "Model call retries (default: 1)")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = godotenv.Load(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Name: getConfigValue(*serverName, "SERVER_NAME", "Atelier Server"),
			Port: getConfigValue(*serverPort, "SERVER_PORT", "8080"),
		},
		Store: StoreConfig{
			BasePath: getConfigValue(*storePath, "STORE_PATH", ""),
		},
		Assets: AssetsConfig{
			Root:      getConfigValue(*assetsRoot, "ASSETS_ROOT", ""),
			JobBuffer: getIntConfigValue(*jobBuffer, "JOB_BUFFER", 64),
		},
		Model: ModelConfig{
			APIKey:            getConfigValue("", "GEMINI_API_KEY", ""),
			Model:             getConfigValue(*modelName, "GEMINI_MODEL", "gemini-2.0-flash"),
			RequestsPerSecond: getFloatConfigValue(*modelRPS, "GEMINI_RPS", 1),
			Burst:             getIntConfigValue("", "GEMINI_BURST", 3),
		},
		Matching: MatchingConfig{
			Threshold:  getFloatConfigValue(*matchThreshold, "MATCH_THRESHOLD", 0.75),
			MaxRetries: getIntConfigValue(*matchRetries, "MATCH_RETRIES", 1),
		},
	}

	var err error
	cfg.Server.ReadTimeout, err = parseDurationValue(*readTimeout, "SERVER_READ_TIMEOUT", "15s")
	if err != nil {
		return nil, fmt.Errorf("invalid read timeout: %w", err)
	}
	cfg.Server.WriteTimeout, err = parseDurationValue(*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s")
	if err != nil {
		return nil, fmt.Errorf("invalid write timeout: %w", err)
	}
	cfg.Server.IdleTimeout, err = parseDurationValue(*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s")
	if err != nil {
		return nil, fmt.Errorf("invalid idle timeout: %w", err)
	}
	cfg.Model.Timeout, err = parseDurationValue(*modelTimeout, "GEMINI_TIMEOUT", "30s")
	if err != nil {
		return nil, fmt.Errorf("invalid model timeout: %w", err)
	}
	cfg.Matching.RetryBackoff, err = parseDurationValue("", "MATCH_RETRY_BACKOFF", "500ms")
	if err != nil {
		return nil, fmt.Errorf("invalid retry backoff: %w", err)
	}

	if err := cfg.expandStorePath(); err != nil {
		return nil, fmt.Errorf("invalid store path: %w", err)
	}
	if err := cfg.expandAssetsRoot(); err != nil {
		return nil, fmt.Errorf("invalid assets root: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Store.BasePath == "" {
		return errors.New("store path cannot be empty after expansion")
	}
	if c.Assets.Root == "" {
		return errors.New("assets root cannot be empty after expansion")
	}

	if c.Matching.Threshold < 0 || c.Matching.Threshold > 1 {
		return fmt.Errorf("match threshold must be within [0, 1], got %g", c.Matching.Threshold)
	}
	if c.Matching.MaxRetries < 0 {
		return fmt.Errorf("match retries must not be negative, got %d", c.Matching.MaxRetries)
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandStorePath expands ~ and makes the path absolute.
// Defaults to ~/Atelier/store.
func (c *Config) expandStorePath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "Atelier", "store")

	expanded, err := expandPath(c.Store.BasePath, defaultPath)
	if err != nil {
		return err
	}
	c.Store.BasePath = expanded
	return nil
}

// expandAssetsRoot expands ~ and makes the path absolute.
// Defaults to ~/Atelier/assets.
func (c *Config) expandAssetsRoot() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "Atelier", "assets")

	expanded, err := expandPath(c.Assets.Root, defaultPath)
	if err != nil {
		return err
	}
	c.Assets.Root = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// getFloatConfigValue returns a float64 from flag, env var, or default.
func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result float64
	if _, err := fmt.Sscanf(strValue, "%g", &result); err != nil {
		return defaultValue
	}
	return result
}

// parseDurationValue resolves a duration with the usual precedence then parses it.
func parseDurationValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	strValue := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(strValue)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", strValue, err)
	}
	return d, nil
}
