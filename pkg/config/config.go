package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds the remote service endpoint and credentials
type ServerConfig struct {
	URL   string `mapstructure:"url"`   // e.g. https://app.example.dev
	Token string `mapstructure:"token"` // session token appended to the socket URL
}

// SocketConfig holds websocket channel behavior
type SocketConfig struct {
	OpenTimeout  time.Duration `mapstructure:"open_timeout"`
	PingInterval time.Duration `mapstructure:"ping_interval"`
}

// UploadsConfig holds attachment pipeline configuration
type UploadsConfig struct {
	Concurrency int           `mapstructure:"concurrency"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	LogFile string `mapstructure:"log_file"`
	Persist bool   `mapstructure:"persist"`
	Level   string `mapstructure:"level"`
}

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Socket  SocketConfig  `mapstructure:"socket"`
	Uploads UploadsConfig `mapstructure:"uploads"`
	Logging LoggingConfig `mapstructure:"logging"`
}

var global *Config

// SetDefaults registers default values on the given viper instance
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.url", "http://localhost:8000")
	v.SetDefault("server.token", "")
	v.SetDefault("socket.open_timeout", 5*time.Second)
	v.SetDefault("socket.ping_interval", 30*time.Second)
	v.SetDefault("uploads.concurrency", 4)
	v.SetDefault("uploads.timeout", 60*time.Second)
	v.SetDefault("logging.log_file", "stackpad.log")
	v.SetDefault("logging.persist", false)
	v.SetDefault("logging.level", "info")
}

// Init loads configuration from the optional config file and environment,
// populating the global Config. Environment variables use the STACKPAD_
// prefix with underscores (STACKPAD_SERVER_URL, STACKPAD_SERVER_TOKEN, ...).
func Init(cfgFile string) error {
	SetDefaults(viper.GetViper())

	viper.SetEnvPrefix("STACKPAD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("settings")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(DefaultSettingsDir())
		viper.AddConfigPath(".")
	}

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults and env still apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			return fmt.Errorf("failed to read config file %s: %w", cfgFile, err)
		}
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	global = cfg
	return nil
}

// Get returns the global configuration, falling back to defaults when Init
// was never called (tests mostly)
func Get() *Config {
	if global == nil {
		SetDefaults(viper.GetViper())
		cfg := &Config{}
		if err := viper.Unmarshal(cfg); err != nil {
			return &Config{}
		}
		global = cfg
	}
	return global
}

// Reset clears the global configuration (useful for testing)
func Reset() {
	global = nil
}

// DefaultSettingsDir returns the directory holding the settings file and logs
func DefaultSettingsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".stackpad"
	}
	return filepath.Join(home, ".stackpad")
}

// BuildSettingsPath resolves a filename relative to the settings directory
func BuildSettingsPath(filename string) string {
	return filepath.Join(DefaultSettingsDir(), filename)
}
