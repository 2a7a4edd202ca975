// Package config loads grievance CLI settings with Viper.
//
// Precedence, highest first: command-line flags, GRIEVANCE_* environment
// variables, the .grievance.yaml file, built-in defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable
const EnvPrefix = "GRIEVANCE"

// DefaultPassphrase protects the credential file when none is configured.
// It only keeps the token out of plain sight; set credentials.passphrase
// for real protection.
const DefaultPassphrase = "grievance-cli-local"

// Config is the complete CLI configuration
type Config struct {
	API         APIConfig         `mapstructure:"api"`
	Credentials CredentialsConfig `mapstructure:"credentials"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Output      OutputConfig      `mapstructure:"output"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`

	// File is the config file that was read, if any
	File string `mapstructure:"-"`
}

// APIConfig locates the grievance service
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// CredentialsConfig locates the encrypted token file
type CredentialsConfig struct {
	Path       string `mapstructure:"path"`
	Passphrase string `mapstructure:"passphrase"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// OutputConfig contains output formatting settings
type OutputConfig struct {
	Format string `mapstructure:"format"`
}

// TelemetryConfig controls tracing and the metrics textfile
type TelemetryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	MetricsFile string  `mapstructure:"metrics_file"`
}

// flagKeys maps persistent flag names to config keys
var flagKeys = map[string]string{
	"api-url": "api.base_url",
	"output":  "output.format",
}

// Load reads configuration from cfgFile (or the default search path),
// the environment and any changed flags in flags. flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(".grievance")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/grievance")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// GRIEVANCE_API_URL is the documented name; the derived one still works
	if err := v.BindEnv("api.base_url", EnvPrefix+"_API_URL", EnvPrefix+"_API_BASE_URL"); err != nil {
		return nil, fmt.Errorf("binding environment: %w", err)
	}

	setDefaults(v)

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values
func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "/api")
	v.SetDefault("api.timeout", 30*time.Second)

	v.SetDefault("credentials.path", DefaultCredentialsPath())
	v.SetDefault("credentials.passphrase", DefaultPassphrase)

	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "text")

	v.SetDefault("output.format", "text")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "")
	v.SetDefault("telemetry.sample_rate", 1.0)
	v.SetDefault("telemetry.metrics_file", "")
}

// DefaultCredentialsPath is <user config dir>/grievance/credentials.json
func DefaultCredentialsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return filepath.Join(".grievance", "credentials.json")
	}
	return filepath.Join(dir, "grievance", "credentials.json")
}

var (
	validLogLevels     = []string{"debug", "info", "warn", "warning", "error"}
	validLogFormats    = []string{"text", "json"}
	validOutputFormats = []string{"text", "json", "yaml"}
)

// validate checks the configuration for errors
func validate(cfg *Config) error {
	if strings.TrimSpace(cfg.API.BaseURL) == "" {
		return fmt.Errorf("api.base_url must not be empty")
	}
	if cfg.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive, got %s", cfg.API.Timeout)
	}
	if cfg.Credentials.Path == "" {
		return fmt.Errorf("credentials.path must not be empty")
	}
	if !oneOf(cfg.Logging.Level, validLogLevels) {
		return fmt.Errorf("invalid logging.level %q (valid: %s)", cfg.Logging.Level, strings.Join(validLogLevels, ", "))
	}
	if !oneOf(cfg.Logging.Format, validLogFormats) {
		return fmt.Errorf("invalid logging.format %q (valid: %s)", cfg.Logging.Format, strings.Join(validLogFormats, ", "))
	}
	if !oneOf(cfg.Output.Format, validOutputFormats) {
		return fmt.Errorf("invalid output.format %q (valid: %s)", cfg.Output.Format, strings.Join(validOutputFormats, ", "))
	}
	if cfg.Telemetry.SampleRate < 0 || cfg.Telemetry.SampleRate > 1 {
		return fmt.Errorf("telemetry.sample_rate must be between 0 and 1, got %v", cfg.Telemetry.SampleRate)
	}
	return nil
}

func oneOf(value string, valid []string) bool {
	value = strings.ToLower(strings.TrimSpace(value))
	for _, v := range valid {
		if v == value {
			return true
		}
	}
	return false
}
