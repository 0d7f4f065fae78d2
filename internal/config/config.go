package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Storage  StorageConfig  `toml:"storage"`
	Mirror   MirrorConfig   `toml:"mirror"`
	Users    UsersConfig    `toml:"users"`
	Logging  LoggingConfig  `toml:"logging"`
	Metrics  MetricsConfig  `toml:"metrics"`
	Ngrok    NgrokConfig    `toml:"ngrok"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Port           string `toml:"port"`
	Host           string `toml:"host"`
	EnableCORS     bool   `toml:"enable_cors"`
	ReadTimeout    int    `toml:"read_timeout_seconds"`
	WriteTimeout   int    `toml:"write_timeout_seconds"`
	RequestLogging bool   `toml:"request_logging"`
}

// DatabaseConfig contains database-related configuration. DSN is a file path
// for sqlite3 and a go-sql-driver DSN for mysql.
type DatabaseConfig struct {
	Driver         string `toml:"driver"`
	DSN            string `toml:"dsn"`
	MaxConnections int    `toml:"max_connections"`
	QueryTimeout   int    `toml:"query_timeout_seconds"`
}

// StorageConfig contains media storage and upload configuration
type StorageConfig struct {
	AudioDir         string  `toml:"audio_dir"`
	ImageDir         string  `toml:"image_dir"`
	ImageBaseURL     string  `toml:"image_base_url"`
	MaxUploadSizeMB  int64   `toml:"max_upload_size_mb"`
	GenerateNames    bool    `toml:"generate_names"`
	WatchForChanges  bool    `toml:"watch_for_changes"`
	UploadsPerSecond float64 `toml:"uploads_per_second"`
	UploadBurst      int     `toml:"upload_burst"`
	ServeMedia       bool    `toml:"serve_media"`
}

// MirrorConfig contains the optional S3-compatible media mirror configuration
type MirrorConfig struct {
	Enabled   bool   `toml:"enabled"`
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Bucket    string `toml:"bucket"`
	Region    string `toml:"region"`
	UseSSL    bool   `toml:"use_ssl"`
}

// UsersConfig controls how account passwords are stored
type UsersConfig struct {
	PasswordMode string `toml:"password_mode"`
	BcryptCost   int    `toml:"bcrypt_cost"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

// MetricsConfig contains prometheus endpoint configuration
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// NgrokConfig contains ngrok tunnel configuration
type NgrokConfig struct {
	Enabled   bool   `toml:"enabled"`
	AuthToken string `toml:"auth_token"`
	Domain    string `toml:"domain"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8080",
			Host:           "0.0.0.0",
			EnableCORS:     true,
			ReadTimeout:    60,
			WriteTimeout:   60,
			RequestLogging: true,
		},
		Database: DatabaseConfig{
			Driver:         "sqlite3",
			DSN:            "./soundshelf.db",
			MaxConnections: 5,
			QueryTimeout:   5,
		},
		Storage: StorageConfig{
			AudioDir:         "./media/audio",
			ImageDir:         "./media/images",
			ImageBaseURL:     "/media/images",
			MaxUploadSizeMB:  200,
			GenerateNames:    false,
			WatchForChanges:  false,
			UploadsPerSecond: 2,
			UploadBurst:      4,
			ServeMedia:       true,
		},
		Mirror: MirrorConfig{
			Enabled: false,
			Bucket:  "soundshelf",
			UseSSL:  true,
		},
		Users: UsersConfig{
			PasswordMode: "plain",
			BcryptCost:   12,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			File:       "",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
			Compress:   true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Ngrok: NgrokConfig{
			Enabled: false,
		},
	}
}

// LoadConfig loads configuration from a TOML file, then applies .env and
// environment overrides
func LoadConfig(configPath string) (*Config, error) {
	// Start with defaults
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// Config file doesn't exist, create it with defaults
		if err := cfg.SaveToFile(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config file: %w", err)
		}
		fmt.Printf("Created default configuration file at: %s\n", configPath)
	} else if _, err := toml.DecodeFile(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// .env never overrides variables already present in the environment
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	}
	cfg.ApplyEnv(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides configuration values from environment variables looked
// up through lookup
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	setString := func(dst *string, keys ...string) {
		for _, key := range keys {
			if v, ok := lookup(key); ok && v != "" {
				*dst = v
				return
			}
		}
	}

	setString(&c.Server.Host, "SOUNDSHELF_HOST")
	setString(&c.Server.Port, "SOUNDSHELF_PORT", "PORT")
	setString(&c.Database.Driver, "DATABASE_DRIVER")
	setString(&c.Database.DSN, "DATABASE_URL", "URL_DB")
	setString(&c.Storage.ImageBaseURL, "IMAGE_BASE_URL")
	setString(&c.Mirror.AccessKey, "MINIO_ACCESS_KEY")
	setString(&c.Mirror.SecretKey, "MINIO_SECRET_KEY")
	setString(&c.Ngrok.AuthToken, "NGROK_AUTHTOKEN")

	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := lookup("MAX_UPLOAD_SIZE_MB"); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Storage.MaxUploadSizeMB = n
		}
	}
}

// SaveToFile saves the configuration to a TOML file
func (c *Config) SaveToFile(configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	header := `# Soundshelf Catalog Server Configuration
# Values set here can be overridden by environment variables or a .env file
# (SOUNDSHELF_PORT, DATABASE_DRIVER, DATABASE_URL, IMAGE_BASE_URL, ...).

`
	if _, err := file.WriteString(header); err != nil {
		return fmt.Errorf("failed to write config header: %w", err)
	}

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config to TOML: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port cannot be empty")
	}
	if c.Server.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 {
		return fmt.Errorf("server timeouts cannot be negative")
	}

	switch c.Database.Driver {
	case "sqlite3", "mysql":
	default:
		return fmt.Errorf("unsupported database driver: %s (must be sqlite3 or mysql)", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database dsn cannot be empty")
	}
	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}
	if c.Database.QueryTimeout < 1 {
		return fmt.Errorf("database query timeout must be at least 1 second")
	}

	if c.Storage.AudioDir == "" || c.Storage.ImageDir == "" {
		return fmt.Errorf("storage audio and image directories cannot be empty")
	}
	if c.Storage.MaxUploadSizeMB < 1 {
		return fmt.Errorf("max upload size must be at least 1 MB")
	}
	if c.Storage.UploadsPerSecond < 0 {
		return fmt.Errorf("uploads per second cannot be negative")
	}
	if c.Storage.UploadsPerSecond > 0 && c.Storage.UploadBurst < 1 {
		return fmt.Errorf("upload burst must be at least 1 when rate limiting is on")
	}

	if c.Mirror.Enabled && (c.Mirror.Endpoint == "" || c.Mirror.Bucket == "") {
		return fmt.Errorf("mirror endpoint and bucket are required when the mirror is enabled")
	}

	switch c.Users.PasswordMode {
	case "plain":
	case "bcrypt":
		if c.Users.BcryptCost < 4 || c.Users.BcryptCost > 31 {
			return fmt.Errorf("bcrypt cost must be between 4 and 31")
		}
	default:
		return fmt.Errorf("invalid password mode: %s (must be plain or bcrypt)", c.Users.PasswordMode)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Logging.Format)
	}

	if c.Metrics.Enabled && c.Metrics.Path == "" {
		return fmt.Errorf("metrics path cannot be empty when metrics are enabled")
	}

	return nil
}

// GetAddress returns the full server address
func (c *Config) GetAddress() string {
	return c.Server.Host + ":" + c.Server.Port
}

// Timeout returns the per-statement database timeout
func (c DatabaseConfig) Timeout() time.Duration {
	return time.Duration(c.QueryTimeout) * time.Second
}

// MaxUploadBytes returns the upload body limit in bytes
func (c *Config) MaxUploadBytes() int64 {
	return c.Storage.MaxUploadSizeMB * 1024 * 1024
}
