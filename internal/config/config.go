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
	App     AppConfig
	Logger  LoggerConfig
	Library LibraryConfig
	Server  ServerConfig
	Sync    SyncConfig
	Search  SearchConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
	// MachineName identifies this machine in event metadata (default: hostname).
	MachineName string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// LibraryConfig holds library storage configuration.
type LibraryConfig struct {
	// DatabasePath is the SQLite event log file (default: {data}/reitunes.db).
	DatabasePath string
	// MusicPath is the directory watched for new audio files (optional).
	MusicPath string
	// StorageBaseURL is prepended to item file paths to build download URLs (optional).
	StorageBaseURL string
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Name          string
	Port          string        // Server port (default: 8080)
	APIKey        string        // Inbound API key; empty disables auth (default: empty)
	ReadTimeout   time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout  time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout   time.Duration // HTTP idle timeout (default: 60s)
	AdvertiseMDNS bool          // Advertise via mDNS/Zeroconf (default: true)
}

// SyncConfig holds replication configuration.
type SyncConfig struct {
	// RemoteURL is the base URL of the peer server; empty disables sync.
	RemoteURL string
	// RemoteAPIKey is sent as X-API-Key when talking to the peer.
	RemoteAPIKey string
	// Interval between background sync runs (default: 5m).
	Interval time.Duration
	// Push controls whether local events are pushed after pulling (default: true).
	Push bool
}

// SearchConfig holds full-text search configuration.
type SearchConfig struct {
	// IndexPath is the Bleve index directory; empty keeps the index in memory.
	IndexPath string
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
	machineName := flag.String("machine-name", "", "Machine name recorded in event metadata")
	databasePath := flag.String("db-path", "", "Path to the SQLite event log")
	musicPath := flag.String("music-path", "", "Directory watched for new audio files")
	storageBaseURL := flag.String("storage-base-url", "", "Base URL for item downloads")
	serverName := flag.String("server-name", "", "Name for the server")

	// Server flags
	serverPort := flag.String("port", "", "Server port (default: 8080)")
	apiKey := flag.String("api-key", "", "API key required on incoming requests")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	advertiseMDNS := flag.String("advertise-mdns", "", "Advertise via mDNS/Zeroconf (default: true)")

	// Sync flags
	remoteURL := flag.String("remote-url", "", "Base URL of the peer server to sync with")
	remoteAPIKey := flag.String("remote-api-key", "", "API key sent to the peer server")
	syncInterval := flag.String("sync-interval", "", "Interval between sync runs (default: 5m)")
	syncPush := flag.String("sync-push", "", "Push local events after pulling (default: true)")

	// Search flags
	searchIndexPath := flag.String("search-index-path", "", "Bleve index directory (default: in memory)")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	// Parse flags but don't exit on error - we want to handle it gracefully.
	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	// Build config with proper precedence.
	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
			MachineName: getConfigValue(*machineName, "MACHINE_NAME", ""),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Library: LibraryConfig{
			DatabasePath:   getConfigValue(*databasePath, "DATABASE_PATH", ""),
			MusicPath:      getConfigValue(*musicPath, "MUSIC_PATH", ""),
			StorageBaseURL: getConfigValue(*storageBaseURL, "STORAGE_BASE_URL", ""),
		},
		Server: ServerConfig{
			Name:          getConfigValue(*serverName, "SERVER_NAME", "ReiTunes Server"),
			Port:          getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			APIKey:        getConfigValue(*apiKey, "API_KEY", ""),
			AdvertiseMDNS: getBoolConfigValue(*advertiseMDNS, "ADVERTISE_MDNS", true),
		},
		Sync: SyncConfig{
			RemoteURL:    getConfigValue(*remoteURL, "REMOTE_URL", ""),
			RemoteAPIKey: getConfigValue(*remoteAPIKey, "REMOTE_API_KEY", ""),
			Push:         getBoolConfigValue(*syncPush, "SYNC_PUSH", true),
		},
		Search: SearchConfig{
			IndexPath: getConfigValue(*searchIndexPath, "SEARCH_INDEX_PATH", ""),
		},
	}

	// Default the machine name to the hostname.
	if cfg.App.MachineName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("failed to determine hostname: %w", err)
		}
		cfg.App.MachineName = hostname
	}

	// Parse server timeouts.
	readTimeoutStr := getConfigValue(*readTimeout, "SERVER_READ_TIMEOUT", "15s")
	readTimeoutDuration, err := time.ParseDuration(readTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid read timeout %q: %w", readTimeoutStr, err)
	}
	cfg.Server.ReadTimeout = readTimeoutDuration

	writeTimeoutStr := getConfigValue(*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s")
	writeTimeoutDuration, err := time.ParseDuration(writeTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid write timeout %q: %w", writeTimeoutStr, err)
	}
	cfg.Server.WriteTimeout = writeTimeoutDuration

	idleTimeoutStr := getConfigValue(*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s")
	idleTimeoutDuration, err := time.ParseDuration(idleTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid idle timeout %q: %w", idleTimeoutStr, err)
	}
	cfg.Server.IdleTimeout = idleTimeoutDuration

	// Parse sync interval.
	syncIntervalStr := getConfigValue(*syncInterval, "SYNC_INTERVAL", "5m")
	syncIntervalDuration, err := time.ParseDuration(syncIntervalStr)
	if err != nil {
		return nil, fmt.Errorf("invalid sync interval %q: %w", syncIntervalStr, err)
	}
	cfg.Sync.Interval = syncIntervalDuration

	// Expand and validate the database path.
	if err := cfg.expandDatabasePath(); err != nil {
		return nil, fmt.Errorf("invalid database path: %w", err)
	}

	// Expand the music path.
	if err := cfg.expandMusicPath(); err != nil {
		return nil, fmt.Errorf("invalid music path: %w", err)
	}

	// Expand the search index path.
	if err := cfg.expandSearchIndexPath(); err != nil {
		return nil, fmt.Errorf("invalid search index path: %w", err)
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

	if c.App.MachineName == "" {
		return errors.New("machine name cannot be empty")
	}

	if c.Library.DatabasePath == "" {
		return errors.New("database path cannot be empty after expansion")
	}

	if c.Sync.RemoteURL != "" && !strings.HasPrefix(c.Sync.RemoteURL, "http://") && !strings.HasPrefix(c.Sync.RemoteURL, "https://") {
		return fmt.Errorf("remote URL must start with http:// or https://: %s", c.Sync.RemoteURL)
	}

	if c.Sync.Interval < time.Second {
		return fmt.Errorf("sync interval too short: %s (must be at least 1s)", c.Sync.Interval)
	}

	// MusicPath can be empty - the watcher and importer are simply disabled.

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

// expandDatabasePath expands ~ and makes the path absolute.
// Defaults to ~/ReiTunes/reitunes.db if not specified.
func (c *Config) expandDatabasePath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "ReiTunes", "reitunes.db")

	expanded, err := expandPath(c.Library.DatabasePath, defaultPath)
	if err != nil {
		return err
	}
	c.Library.DatabasePath = expanded
	return nil
}

// expandMusicPath expands ~ and makes the path absolute.
// If empty, leaves it empty so the watcher stays disabled.
func (c *Config) expandMusicPath() error {
	if c.Library.MusicPath == "" {
		return nil
	}

	expanded, err := expandPath(c.Library.MusicPath, "")
	if err != nil {
		return err
	}
	c.Library.MusicPath = expanded
	return nil
}

// expandSearchIndexPath expands ~ and makes the path absolute.
// If empty, leaves it empty so the index is kept in memory.
func (c *Config) expandSearchIndexPath() error {
	if c.Search.IndexPath == "" {
		return nil
	}

	expanded, err := expandPath(c.Search.IndexPath, "")
	if err != nil {
		return err
	}
	c.Search.IndexPath = expanded
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
