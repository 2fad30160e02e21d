// Package config provides configuration management for the inventory server.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Default configuration values.
const (
	DefaultServerPort      = 8080
	DefaultLogLevel        = "info"
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMetricsEnabled  = true
	DefaultStoreBackend    = "memory"
	DefaultRedisAddr       = "localhost:6379"
	DefaultStorageBucket   = "inventory-images"
	DefaultGeminiModel     = "gemini-2.0-flash"
	DefaultPlaceholderURL  = "https://placehold.co/400x400?text=No+Image"
	DefaultLongPressDelay  = time.Second
)

// Environment variable names.
const (
	EnvServerPort      = "APP_SERVER_PORT"
	EnvLogLevel        = "APP_LOG_LEVEL"
	EnvShutdownTimeout = "APP_SHUTDOWN_TIMEOUT"
	EnvMetricsEnabled  = "APP_METRICS_ENABLED"
	EnvStoreBackend    = "APP_STORE_BACKEND"
	EnvRedisAddr       = "APP_REDIS_ADDR"
	EnvRedisPassword   = "APP_REDIS_PASSWORD" //nolint:gosec // env var name, not a credential
	EnvRedisDB         = "APP_REDIS_DB"
	EnvStorageEndpoint = "APP_STORAGE_ENDPOINT"
	EnvStorageAccess   = "APP_STORAGE_ACCESS_KEY"
	EnvStorageSecret   = "APP_STORAGE_SECRET_KEY" //nolint:gosec // env var name, not a credential
	EnvStorageBucket   = "APP_STORAGE_BUCKET"
	EnvStoragePrefix   = "APP_STORAGE_PREFIX"
	EnvStorageUseSSL   = "APP_STORAGE_USE_SSL"
	EnvStoragePublic   = "APP_STORAGE_PUBLIC_URL"
	EnvGeminiAPIKey    = "APP_GEMINI_API_KEY" //nolint:gosec // env var name, not a credential
	EnvGeminiModel     = "APP_GEMINI_MODEL"
	EnvPlaceholderURL  = "APP_PLACEHOLDER_IMAGE_URL"
	EnvLongPressDelay  = "APP_LONG_PRESS_DELAY"
)

// Config holds the application configuration.
type Config struct {
	// Server settings.
	ServerPort      int
	LogLevel        string
	ShutdownTimeout time.Duration
	MetricsEnabled  bool

	// Inventory store backend: memory or redis.
	StoreBackend  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Object storage for item images. Images fall back to an in-memory
	// uploader when no endpoint is configured.
	StorageEndpoint  string
	StorageAccessKey string
	StorageSecretKey string
	StorageBucket    string
	StoragePrefix    string
	StorageUseSSL    bool
	StoragePublicURL string

	// Assistant model settings. Classification and recipe generation are
	// disabled when the API key is empty.
	GeminiAPIKey string
	GeminiModel  string

	// Placeholder image URL for items added without a photo.
	PlaceholderImageURL string

	// Gesture long-press threshold for WebSocket clients.
	LongPressDelay time.Duration
}

// Validation errors.
var (
	ErrInvalidServerPort      = errors.New("server port must be between 1 and 65535")
	ErrInvalidLogLevel        = errors.New("log level must be one of: debug, info, warn, error")
	ErrInvalidShutdownTimeout = errors.New("shutdown timeout must be positive")
	ErrInvalidStoreBackend    = errors.New("store backend must be one of: memory, redis")
	ErrMissingRedisAddr       = errors.New(
		"redis address must be set when store backend is redis",
	)
	ErrIncompleteStorage = errors.New(
		"storage access key, secret key, and bucket must be set when a storage endpoint is configured",
	)
	ErrInvalidLongPressDelay = errors.New("long press delay must be positive")
)

// Load reads configuration from environment variables with defaults.
// Environment variables have priority over default values.
func Load() (*Config, error) {
	cfg := &Config{
		ServerPort:          DefaultServerPort,
		LogLevel:            DefaultLogLevel,
		ShutdownTimeout:     DefaultShutdownTimeout,
		MetricsEnabled:      DefaultMetricsEnabled,
		StoreBackend:        DefaultStoreBackend,
		RedisAddr:           DefaultRedisAddr,
		StorageBucket:       DefaultStorageBucket,
		GeminiModel:         DefaultGeminiModel,
		PlaceholderImageURL: DefaultPlaceholderURL,
		LongPressDelay:      DefaultLongPressDelay,
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("loading config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadFromEnv loads configuration values from environment variables.
func (c *Config) loadFromEnv() error {
	if err := c.loadServerEnv(); err != nil {
		return err
	}

	if err := c.loadStoreEnv(); err != nil {
		return err
	}

	if err := c.loadStorageEnv(); err != nil {
		return err
	}

	return c.loadAssistEnv()
}

// loadServerEnv loads server-related environment variables.
func (c *Config) loadServerEnv() error {
	if val := os.Getenv(EnvServerPort); val != "" {
		port, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvServerPort, err)
		}
		c.ServerPort = port
	}

	if val := os.Getenv(EnvLogLevel); val != "" {
		c.LogLevel = val
	}

	if val := os.Getenv(EnvShutdownTimeout); val != "" {
		timeout, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvShutdownTimeout, err)
		}
		c.ShutdownTimeout = timeout
	}

	if val := os.Getenv(EnvMetricsEnabled); val != "" {
		enabled, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvMetricsEnabled, err)
		}
		c.MetricsEnabled = enabled
	}

	return nil
}

// loadStoreEnv loads inventory store environment variables.
func (c *Config) loadStoreEnv() error {
	if val := os.Getenv(EnvStoreBackend); val != "" {
		c.StoreBackend = val
	}

	if val := os.Getenv(EnvRedisAddr); val != "" {
		c.RedisAddr = val
	}

	if val := os.Getenv(EnvRedisPassword); val != "" {
		c.RedisPassword = val
	}

	if val := os.Getenv(EnvRedisDB); val != "" {
		db, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvRedisDB, err)
		}
		c.RedisDB = db
	}

	return nil
}

// loadStorageEnv loads object storage environment variables.
func (c *Config) loadStorageEnv() error {
	if val := os.Getenv(EnvStorageEndpoint); val != "" {
		c.StorageEndpoint = val
	}

	if val := os.Getenv(EnvStorageAccess); val != "" {
		c.StorageAccessKey = val
	}

	if val := os.Getenv(EnvStorageSecret); val != "" {
		c.StorageSecretKey = val
	}

	if val := os.Getenv(EnvStorageBucket); val != "" {
		c.StorageBucket = val
	}

	if val := os.Getenv(EnvStoragePrefix); val != "" {
		c.StoragePrefix = val
	}

	if val := os.Getenv(EnvStorageUseSSL); val != "" {
		useSSL, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvStorageUseSSL, err)
		}
		c.StorageUseSSL = useSSL
	}

	if val := os.Getenv(EnvStoragePublic); val != "" {
		c.StoragePublicURL = val
	}

	return nil
}

// loadAssistEnv loads assistant and gesture environment variables.
func (c *Config) loadAssistEnv() error {
	if val := os.Getenv(EnvGeminiAPIKey); val != "" {
		c.GeminiAPIKey = val
	}

	if val := os.Getenv(EnvGeminiModel); val != "" {
		c.GeminiModel = val
	}

	if val := os.Getenv(EnvPlaceholderURL); val != "" {
		c.PlaceholderImageURL = val
	}

	if val := os.Getenv(EnvLongPressDelay); val != "" {
		delay, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvLongPressDelay, err)
		}
		c.LongPressDelay = delay
	}

	return nil
}

// Validate checks if the configuration values are valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateStore(); err != nil {
		return err
	}

	if err := c.validateStorage(); err != nil {
		return err
	}

	if c.LongPressDelay <= 0 {
		return ErrInvalidLongPressDelay
	}

	return nil
}

// validateServer validates server-related configuration.
func (c *Config) validateServer() error {
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return ErrInvalidServerPort
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return ErrInvalidLogLevel
	}

	if c.ShutdownTimeout <= 0 {
		return ErrInvalidShutdownTimeout
	}

	return nil
}

// validateStore validates inventory store configuration.
func (c *Config) validateStore() error {
	validBackends := map[string]bool{
		"memory": true,
		"redis":  true,
	}
	if !validBackends[c.StoreBackend] {
		return ErrInvalidStoreBackend
	}

	if c.StoreBackend == "redis" && c.RedisAddr == "" {
		return ErrMissingRedisAddr
	}

	return nil
}

// validateStorage validates object storage configuration.
func (c *Config) validateStorage() error {
	if !c.StorageEnabled() {
		return nil
	}

	if c.StorageAccessKey == "" || c.StorageSecretKey == "" || c.StorageBucket == "" {
		return ErrIncompleteStorage
	}

	return nil
}

// StorageEnabled reports whether an object storage endpoint is configured.
func (c *Config) StorageEnabled() bool {
	return c.StorageEndpoint != ""
}

// AssistEnabled reports whether the assistant model is configured.
func (c *Config) AssistEnabled() bool {
	return c.GeminiAPIKey != ""
}

// Address returns the server address in host:port format.
func (c *Config) Address() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}
