// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Data      DataConfig
	Store     StoreConfig
	Server    ServerConfig
	Search    SearchConfig
	Display   DisplayConfig
	Import    ImportConfig
	Export    ExportConfig
	RateLimit RateLimitConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DataConfig holds data storage configuration.
type DataConfig struct {
	BasePath string
}

// StoreConfig selects and configures the record store backend.
type StoreConfig struct {
	// Backend is the persistence engine: badger or sqlite.
	Backend string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Name         string
	Port         string        // Server port (default: 8080)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
}

// SearchConfig holds search behavior configuration.
type SearchConfig struct {
	// DebounceDelay is the quiet period after a keystroke before the
	// query hits the search index.
	DebounceDelay time.Duration
}

// DisplayConfig holds list/cloud mode thresholds.
type DisplayConfig struct {
	// ListToCloudThreshold is the record count above which results
	// render as a tag cloud (default: 20).
	ListToCloudThreshold int
	// CloudToListThreshold is carried for symmetric hysteresis; mode
	// detection is currently stateless and does not read it.
	CloudToListThreshold int
}

// ImportConfig holds drop-directory import configuration.
type ImportConfig struct {
	Enabled     bool
	Dir         string        // Defaults to {data}/import
	SettleDelay time.Duration // Quiet period before a dropped file is read
}

// ExportConfig holds snapshot export configuration.
type ExportConfig struct {
	Dir string // Defaults to {data}/export
}

// RateLimitConfig holds per-client request limiting configuration.
type RateLimitConfig struct {
	Enabled bool
	RPS     float64
	Burst   int
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	// Define command-line flags.
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := flag.String("data-path", "", "Base path for data storage")
	storeBackend := flag.String("store-backend", "", "Record store backend (badger, sqlite)")
	serverName := flag.String("server-name", "", "Name for the server")

	// Server flags
	serverPort := flag.String("port", "", "Server port (default: 8080)")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")

	// Search and display flags
	debounceDelay := flag.String("debounce-delay", "", "Search debounce delay (default: 300ms)")
	listToCloud := flag.String("list-to-cloud", "", "Record count above which results render as a cloud (default: 20)")
	cloudToList := flag.String("cloud-to-list", "", "Record count below which results render as a list (default: 20)")

	// Import/export flags
	importEnabled := flag.String("import-enabled", "", "Watch the import directory for dropped files (default: true)")
	importDir := flag.String("import-dir", "", "Drop directory for record imports")
	settleDelay := flag.String("import-settle-delay", "", "Quiet period before a dropped file is read (default: 500ms)")
	exportDir := flag.String("export-dir", "", "Directory for snapshot exports")

	// Rate limit flags
	rateLimitEnabled := flag.String("rate-limit-enabled", "", "Enable per-client rate limiting (default: true)")
	rateLimitRPS := flag.String("rate-limit-rps", "", "Allowed requests per second per client (default: 50)")
	rateLimitBurst := flag.String("rate-limit-burst", "", "Burst size per client (default: 100)")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	// Build config with proper precedence.
	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Data: DataConfig{
			BasePath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Store: StoreConfig{
			Backend: strings.ToLower(getConfigValue(*storeBackend, "STORE_BACKEND", "badger")),
		},
		Server: ServerConfig{
			Name: getConfigValue(*serverName, "SERVER_NAME", "Recall Server"),
			Port: getConfigValue(*serverPort, "SERVER_PORT", "8080"),
		},
		Display: DisplayConfig{
			ListToCloudThreshold: getIntConfigValue(*listToCloud, "LIST_TO_CLOUD_THRESHOLD", 20),
			CloudToListThreshold: getIntConfigValue(*cloudToList, "CLOUD_TO_LIST_THRESHOLD", 20),
		},
		Import: ImportConfig{
			Enabled: getBoolConfigValue(*importEnabled, "IMPORT_ENABLED", true),
			Dir:     getConfigValue(*importDir, "IMPORT_DIR", ""),
		},
		Export: ExportConfig{
			Dir: getConfigValue(*exportDir, "EXPORT_DIR", ""),
		},
		RateLimit: RateLimitConfig{
			Enabled: getBoolConfigValue(*rateLimitEnabled, "RATE_LIMIT_ENABLED", true),
			RPS:     float64(getIntConfigValue(*rateLimitRPS, "RATE_LIMIT_RPS", 50)),
			Burst:   getIntConfigValue(*rateLimitBurst, "RATE_LIMIT_BURST", 100),
		},
	}

	// Parse durations.
	var err error
	if cfg.Server.ReadTimeout, err = parseDurationValue(*readTimeout, "SERVER_READ_TIMEOUT", "15s"); err != nil {
		return nil, fmt.Errorf("invalid read timeout: %w", err)
	}
	if cfg.Server.WriteTimeout, err = parseDurationValue(*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s"); err != nil {
		return nil, fmt.Errorf("invalid write timeout: %w", err)
	}
	if cfg.Server.IdleTimeout, err = parseDurationValue(*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"); err != nil {
		return nil, fmt.Errorf("invalid idle timeout: %w", err)
	}
	if cfg.Search.DebounceDelay, err = parseDurationValue(*debounceDelay, "SEARCH_DEBOUNCE_DELAY", "300ms"); err != nil {
		return nil, fmt.Errorf("invalid debounce delay: %w", err)
	}
	if cfg.Import.SettleDelay, err = parseDurationValue(*settleDelay, "IMPORT_SETTLE_DELAY", "500ms"); err != nil {
		return nil, fmt.Errorf("invalid import settle delay: %w", err)
	}

	// Expand data-relative paths.
	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}
	if err := cfg.expandImportDir(); err != nil {
		return nil, fmt.Errorf("invalid import dir: %w", err)
	}
	if err := cfg.expandExportDir(); err != nil {
		return nil, fmt.Errorf("invalid export dir: %w", err)
	}

	// Validate configuration.
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

	validBackends := map[string]bool{
		"badger": true,
		"sqlite": true,
	}
	if !validBackends[c.Store.Backend] {
		return fmt.Errorf("invalid store backend: %s (must be badger or sqlite)", c.Store.Backend)
	}

	if c.Data.BasePath == "" {
		return errors.New("data base path cannot be empty after expansion")
	}

	if c.Display.ListToCloudThreshold < 0 {
		return fmt.Errorf("list-to-cloud threshold must not be negative: %d", c.Display.ListToCloudThreshold)
	}

	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit rps and burst must be positive when enabled (rps=%v, burst=%d)",
			c.RateLimit.RPS, c.RateLimit.Burst)
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPath expands ~ and makes the path absolute.
// Defaults to ~/Recall/data when unset.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "Recall", "data")

	expanded, err := expandPath(c.Data.BasePath, defaultPath)
	if err != nil {
		return err
	}
	c.Data.BasePath = expanded
	return nil
}

// expandImportDir expands ~ and makes the path absolute.
// Defaults to {data}/import if not specified.
func (c *Config) expandImportDir() error {
	expanded, err := expandPath(c.Import.Dir, filepath.Join(c.Data.BasePath, "import"))
	if err != nil {
		return err
	}
	c.Import.Dir = expanded
	return nil
}

// expandExportDir expands ~ and makes the path absolute.
// Defaults to {data}/export if not specified.
func (c *Config) expandExportDir() error {
	expanded, err := expandPath(c.Export.Dir, filepath.Join(c.Data.BasePath, "export"))
	if err != nil {
		return err
	}
	c.Export.Dir = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
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

// parseDurationValue resolves a duration with flag/env/default precedence.
func parseDurationValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	strValue := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(strValue)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", strValue, err)
	}
	return d, nil
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=value.
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present.
		value = strings.Trim(value, `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
