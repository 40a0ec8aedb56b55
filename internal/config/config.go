// Package config provides configuration management for dashgate using Viper.
// It supports configuration from files, environment variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	defaultServerPort           = 8080
	defaultServerTimeout        = 30 * time.Second
	defaultShutdownTimeout      = 10 * time.Second
	defaultMaxOpenConns         = 25
	defaultMaxIdleConns         = 10
	defaultConnMaxIdleTime      = 30 * time.Minute
	defaultHTTPTimeout          = 30 * time.Second
	defaultRetryAttempts        = 3
	defaultRetryDelay           = 2 * time.Second
	defaultIdleTimeout          = 120 * time.Second
	defaultEvictionInterval     = 15 * time.Second
	defaultManifestPollInterval = 1 * time.Second
	defaultSegmentDuration      = 4 * time.Second
	defaultMaxSegments          = 40
	defaultPreferredVideoIdx    = 6
	defaultPreferredAudioIdx    = 9
	defaultTokenExpiry          = 24 * time.Hour
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	FFmpeg   FFmpegConfig   `mapstructure:"ffmpeg"`
	Gateway  GatewayConfig  `mapstructure:"gateway"`
	Auth     AuthConfig     `mapstructure:"auth"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite, postgres, mysql
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	LogLevel        string        `mapstructure:"log_level"` // silent, error, warn, info
}

// StorageConfig holds file storage configuration.
type StorageConfig struct {
	BaseDir string `mapstructure:"base_dir"`
	// OutputDir is where each active stream's playlist and segment files live,
	// one subdirectory per stream ID.
	OutputDir string `mapstructure:"output_dir"`
	TempDir   string `mapstructure:"temp_dir"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// FFmpegConfig holds FFmpeg binary and subprocess configuration.
type FFmpegConfig struct {
	BinaryPath string `mapstructure:"binary_path"` // Path to ffmpeg binary (empty = auto-detect)
	ProbePath  string `mapstructure:"probe_path"`  // Path to ffprobe binary (empty = auto-detect)
}

// GatewayConfig holds the DASH-to-HLS gateway's pipeline and stream
// manager behavior.
type GatewayConfig struct {
	// ManifestPollInterval is how often a stream pipeline re-fetches the
	// live manifest while active.
	ManifestPollInterval time.Duration `mapstructure:"manifest_poll_interval"`
	// HTTPTimeout bounds manifest and segment fetches.
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
	// RetryAttempts/RetryDelay govern manifest and segment fetch retries.
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
	// PreferredVideoIndex/PreferredAudioIndex are the default representation
	// selection indices used for channels that don't override them.
	PreferredVideoIndex int `mapstructure:"preferred_video_index"`
	PreferredAudioIndex int `mapstructure:"preferred_audio_index"`
	// SegmentDuration is the target HLS segment duration passed to the
	// playlist-writer subprocess.
	SegmentDuration time.Duration `mapstructure:"segment_duration"`
	// MaxSegments is the rolling playlist window size.
	MaxSegments int `mapstructure:"max_segments"`
	// IdleTimeout is how long a stream may go untouched before the
	// stream manager evicts it.
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	// EvictionInterval is how often the stream manager sweeps for idle streams.
	EvictionInterval time.Duration `mapstructure:"eviction_interval"`
	// ChannelsFile and UsersFile are declarative YAML files holding the
	// channel catalog and the user/password table.
	ChannelsFile string `mapstructure:"channels_file"`
	UsersFile    string `mapstructure:"users_file"`
}

// AuthConfig holds JWT authentication configuration.
type AuthConfig struct {
	// Secret signs and verifies session tokens (HS256). Required.
	Secret string `mapstructure:"secret"`
	// TokenExpiry is how long an issued session token remains valid.
	TokenExpiry time.Duration `mapstructure:"token_expiry"`
	// CookieName is the name of the cookie carrying the session token.
	CookieName string `mapstructure:"cookie_name"`
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration.
// Environment variables are prefixed with DASHGATE_ and use underscores for nesting.
// Example: DASHGATE_SERVER_PORT=8080.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	SetDefaults(v)

	// Config file settings
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/dashgate")
		v.AddConfigPath("$HOME/.dashgate")
	}

	// Environment variable settings
	v.SetEnvPrefix("DASHGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Config file not found is OK - we'll use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults configures default values for all configuration options.
// This should be called before reading the config file to ensure defaults are in place.
func SetDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.read_timeout", defaultServerTimeout)
	v.SetDefault("server.write_timeout", defaultServerTimeout)
	v.SetDefault("server.shutdown_timeout", defaultShutdownTimeout)
	v.SetDefault("server.cors_origins", []string{"*"})

	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "dashgate.db")
	v.SetDefault("database.max_open_conns", defaultMaxOpenConns)
	v.SetDefault("database.max_idle_conns", defaultMaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", defaultConnMaxIdleTime)
	v.SetDefault("database.log_level", "warn")

	// Storage defaults
	v.SetDefault("storage.base_dir", "./data")
	v.SetDefault("storage.output_dir", "streams")
	v.SetDefault("storage.temp_dir", "temp")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// FFmpeg defaults
	v.SetDefault("ffmpeg.binary_path", "")
	v.SetDefault("ffmpeg.probe_path", "")

	// Gateway defaults
	v.SetDefault("gateway.manifest_poll_interval", defaultManifestPollInterval)
	v.SetDefault("gateway.http_timeout", defaultHTTPTimeout)
	v.SetDefault("gateway.retry_attempts", defaultRetryAttempts)
	v.SetDefault("gateway.retry_delay", defaultRetryDelay)
	v.SetDefault("gateway.preferred_video_index", defaultPreferredVideoIdx)
	v.SetDefault("gateway.preferred_audio_index", defaultPreferredAudioIdx)
	v.SetDefault("gateway.segment_duration", defaultSegmentDuration)
	v.SetDefault("gateway.max_segments", defaultMaxSegments)
	v.SetDefault("gateway.idle_timeout", defaultIdleTimeout)
	v.SetDefault("gateway.eviction_interval", defaultEvictionInterval)
	v.SetDefault("gateway.channels_file", "./configs/channels.yaml")
	v.SetDefault("gateway.users_file", "./configs/users.yaml")

	// Auth defaults
	v.SetDefault("auth.token_expiry", defaultTokenExpiry)
	v.SetDefault("auth.cookie_name", "auth")
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Server validation
	const maxPort = 65535
	if c.Server.Port < 1 || c.Server.Port > maxPort {
		return fmt.Errorf("server.port must be between 1 and %d", maxPort)
	}

	// Database validation
	validDrivers := map[string]bool{"sqlite": true, "postgres": true, "mysql": true}
	if !validDrivers[c.Database.Driver] {
		return fmt.Errorf("database.driver must be one of: sqlite, postgres, mysql")
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}

	// Storage validation
	if c.Storage.BaseDir == "" {
		return fmt.Errorf("storage.base_dir is required")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	// Gateway validation
	if c.Gateway.MaxSegments < 1 {
		return fmt.Errorf("gateway.max_segments must be at least 1")
	}
	if c.Gateway.PreferredVideoIndex < 0 || c.Gateway.PreferredAudioIndex < 0 {
		return fmt.Errorf("gateway.preferred_video_index and preferred_audio_index must not be negative")
	}

	// Auth validation
	if c.Auth.Secret == "" {
		return fmt.Errorf("auth.secret is required")
	}

	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// OutputPath returns the full path to the per-stream output directory.
func (c *StorageConfig) OutputPath() string {
	return fmt.Sprintf("%s/%s", c.BaseDir, c.OutputDir)
}

// TempPath returns the full path to the temp directory.
func (c *StorageConfig) TempPath() string {
	return fmt.Sprintf("%s/%s", c.BaseDir, c.TempDir)
}
