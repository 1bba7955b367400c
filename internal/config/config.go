package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	TimeoutSeconds       int               `mapstructure:"timeout_seconds"`
	UserAgent            string            `mapstructure:"user_agent"`
	ProxyURL             string            `mapstructure:"proxy_url"`
	DisableCookies       bool              `mapstructure:"disable_cookies"`
	ContinueInBackground bool              `mapstructure:"continue_in_background"`
	RateLimitKBps        int64             `mapstructure:"rate_limit_kbps"`
	HTTP3                bool              `mapstructure:"http3"`
	TrustAllCertificates bool              `mapstructure:"trust_all_certificates"`
	LogLevel             string            `mapstructure:"log_level"`
	LogFile              string            `mapstructure:"log_file"`
	ActivityAddr         string            `mapstructure:"activity_addr"`
	GlobalHeaders        map[string]string `mapstructure:"global_headers"`
	Credentials          []HostCredential  `mapstructure:"credentials"`
}

// HostCredential is a basic-auth login sent to Host, or to every host when
// Host is empty.
type HostCredential struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		TimeoutSeconds:       60,
		UserAgent:            "courier/1.0",
		ProxyURL:             "",
		DisableCookies:       false,
		ContinueInBackground: true,
		RateLimitKBps:        0,
		HTTP3:                false,
		TrustAllCertificates: false,
		LogLevel:             "warn",
		LogFile:              "",
		ActivityAddr:         "",
		GlobalHeaders:        map[string]string{},
	}
}

// Timeout returns the per-request timeout as a duration
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Validate checks values that the library cannot recover from
func (c *Config) Validate() error {
	if c.TimeoutSeconds <= 0 {
		return fmt.Errorf("invalid timeout_seconds: %d (must be > 0)", c.TimeoutSeconds)
	}
	if c.RateLimitKBps < 0 {
		return fmt.Errorf("invalid rate_limit_kbps: %d (must be >= 0)", c.RateLimitKBps)
	}
	for i, cred := range c.Credentials {
		if cred.Username == "" {
			return fmt.Errorf("invalid credentials[%d]: username is required", i)
		}
	}
	return nil
}

// LoadConfig loads configuration from file or creates default config
func LoadConfig() (*Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	config := DefaultConfig()

	// Set config file name and type
	v.SetConfigName("courier")
	v.SetConfigType("yaml")

	// Add config paths in order of priority
	if homeDir, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(homeDir, ".config", "courier"))
		v.AddConfigPath(homeDir)
	}
	v.AddConfigPath("/etc/courier")
	v.AddConfigPath(".")

	// Environment overrides, e.g. COURIER_TIMEOUT_SECONDS
	v.SetEnvPrefix("COURIER")
	v.AutomaticEnv()
	for _, key := range []string{
		"timeout_seconds", "user_agent", "proxy_url", "disable_cookies",
		"continue_in_background", "rate_limit_kbps", "http3",
		"trust_all_certificates", "log_level", "log_file", "activity_addr",
	} {
		_ = v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file was found but another error occurred (parse error, permission, etc.)
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	if config.GlobalHeaders == nil {
		config.GlobalHeaders = map[string]string{}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// SaveConfig saves the configuration to the user config directory
func SaveConfig(config *Config) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("cannot get home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".config", "courier")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	v := viper.New()
	v.Set("timeout_seconds", config.TimeoutSeconds)
	v.Set("user_agent", config.UserAgent)
	v.Set("proxy_url", config.ProxyURL)
	v.Set("disable_cookies", config.DisableCookies)
	v.Set("continue_in_background", config.ContinueInBackground)
	v.Set("rate_limit_kbps", config.RateLimitKBps)
	v.Set("http3", config.HTTP3)
	v.Set("trust_all_certificates", config.TrustAllCertificates)
	v.Set("log_level", config.LogLevel)
	v.Set("log_file", config.LogFile)
	v.Set("activity_addr", config.ActivityAddr)
	v.Set("global_headers", config.GlobalHeaders)
	if len(config.Credentials) > 0 {
		v.Set("credentials", config.Credentials)
	}

	if err := v.WriteConfigAs(filepath.Join(configDir, "courier.yaml")); err != nil {
		return fmt.Errorf("cannot write config file: %w", err)
	}

	return nil
}

// GetConfigPath returns the path to the user config file
func GetConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "~/.config/courier/courier.yaml"
	}

	return filepath.Join(homeDir, ".config", "courier", "courier.yaml")
}
