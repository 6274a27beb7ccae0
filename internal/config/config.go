package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Serial  SerialConfig  `mapstructure:"serial"`
	Logging LoggingConfig `mapstructure:"logging"`
	App     AppConfig     `mapstructure:"app"`
}

// SerialConfig represents the serial line and read-loop settings
type SerialConfig struct {
	// Device is the default device path; an explicit command line argument
	// overrides it.
	Device string `mapstructure:"device"`

	// BaudRate may be any positive rate. The controller runs at 10416 bps,
	// which has no fixed code and exercises the custom-rate path.
	BaudRate int `mapstructure:"baud_rate"`

	// Format is the 3-character frame code: data bits, parity, stop bits.
	Format string `mapstructure:"format"`

	// FlowControl enables RTS/CTS hardware handshake.
	FlowControl bool `mapstructure:"flow_control"`

	// CommandTimeout bounds each wait for a command byte, in milliseconds.
	CommandTimeout int `mapstructure:"command_timeout_ms"`

	// PayloadTimeout bounds each pedal payload read, in milliseconds;
	// 0 means non-blocking.
	PayloadTimeout int `mapstructure:"payload_timeout_ms"`

	// RetryDelay is the pause after a failed command read before the loop
	// tries again.
	RetryDelay time.Duration `mapstructure:"retry_delay"`

	// IdleDelay paces the read loop between decode cycles.
	IdleDelay time.Duration `mapstructure:"idle_delay"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// AppConfig represents application metadata
type AppConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// Load loads configuration from an optional config file and environment
// variables. A missing config file is not an error; defaults cover a stock
// controller on /dev/ttyUSB1.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("footctl")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/footctl")
	v.AddConfigPath("/etc/footctl")

	// Environment variable support
	v.SetEnvPrefix("FOOTCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Serial defaults
	v.SetDefault("serial.device", "/dev/ttyUSB1")
	v.SetDefault("serial.baud_rate", 10416)
	v.SetDefault("serial.format", "8N1")
	v.SetDefault("serial.flow_control", false)
	v.SetDefault("serial.command_timeout_ms", 1)
	v.SetDefault("serial.payload_timeout_ms", 0)
	v.SetDefault("serial.retry_delay", "1s")
	v.SetDefault("serial.idle_delay", "10ms")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", true)

	// App defaults
	v.SetDefault("app.name", "footctl")
	v.SetDefault("app.version", "1.0.0")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Serial.Device == "" {
		return fmt.Errorf("serial.device is required")
	}
	if config.Serial.BaudRate <= 0 {
		return fmt.Errorf("serial.baud_rate must be positive, got %d", config.Serial.BaudRate)
	}
	if len(config.Serial.Format) != 3 {
		return fmt.Errorf("serial.format must be a 3-character code, got %q", config.Serial.Format)
	}
	if config.Serial.RetryDelay < 0 {
		return fmt.Errorf("serial.retry_delay must not be negative")
	}
	if config.Serial.IdleDelay < 0 {
		return fmt.Errorf("serial.idle_delay must not be negative")
	}

	return nil
}
