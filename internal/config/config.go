// Package config loads tool configuration from a JSON file, environment
// variables, and command-line flags.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// Source is one widget-to-calendar mapping: a public page hosting the
// calendar widget and the Google Calendar it syncs into.
type Source struct {
	Name       string `json:"name"`
	URL        string `json:"url"`
	CalendarID string `json:"calendar_id"`
	Location   string `json:"location,omitempty"`
}

// Config holds the configuration for the sync tool.
type Config struct {
	GoogleCredentialsPath string   `json:"google_credentials_path,omitempty"`
	TokenPath             string   `json:"token_path,omitempty"`
	DefaultLocation       string   `json:"default_location,omitempty"`
	UpdateOnMatch         bool     `json:"update_on_match,omitempty"`
	MaxMonths             int      `json:"max_months,omitempty"`
	MaxEmptyMonths        int      `json:"max_empty_months,omitempty"`
	BrowserTimeoutSeconds int      `json:"browser_timeout_seconds,omitempty"`
	ListenAddr            string   `json:"listen_addr,omitempty"`
	Sources               []Source `json:"sources"`
}

// Flags carries the command-line overrides accepted by LoadConfig. Empty
// (or zero) values mean "not set".
type Flags struct {
	GoogleCredentialsPath string
	TokenPath             string
	DefaultLocation       string
	ListenAddr            string
}

// LoadConfigFromFile loads configuration from a JSON file.
func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// LoadConfig loads configuration with the following precedence (highest to
// lowest):
// 1. Command-line flags
// 2. Environment variables
// 3. Config file
// 4. Defaults
// Returns an error if any required value is missing.
func LoadConfig(configFile string, flags Flags) (*Config, error) {
	var config Config

	// Step 1: Load from config file if provided
	if configFile != "" {
		fileConfig, err := LoadConfigFromFile(configFile)
		if err != nil {
			return nil, err
		}
		config = *fileConfig
	}

	// Step 2: Override with environment variables
	if v := os.Getenv("GOOGLE_CREDENTIALS_PATH"); v != "" {
		config.GoogleCredentialsPath = v
	}
	if v := os.Getenv("GOOGLE_TOKEN_PATH"); v != "" {
		config.TokenPath = v
	}
	if v := os.Getenv("DEFAULT_LOCATION"); v != "" {
		config.DefaultLocation = v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		config.ListenAddr = v
	}
	if v := os.Getenv("MAX_MONTHS_TO_CHECK"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid MAX_MONTHS_TO_CHECK %q: %w", v, err)
		}
		config.MaxMonths = n
	}

	// Step 3: Override with command-line flags (highest priority)
	if flags.GoogleCredentialsPath != "" {
		config.GoogleCredentialsPath = flags.GoogleCredentialsPath
	}
	if flags.TokenPath != "" {
		config.TokenPath = flags.TokenPath
	}
	if flags.DefaultLocation != "" {
		config.DefaultLocation = flags.DefaultLocation
	}
	if flags.ListenAddr != "" {
		config.ListenAddr = flags.ListenAddr
	}

	// Step 4: Apply defaults and validate required fields
	if config.GoogleCredentialsPath == "" {
		return nil, fmt.Errorf("google_credentials_path must be provided via --google-credentials-path flag, GOOGLE_CREDENTIALS_PATH environment variable, or config file")
	}

	if config.TokenPath == "" {
		return nil, fmt.Errorf("token_path must be provided via --token-path flag, GOOGLE_TOKEN_PATH environment variable, or config file")
	}

	if len(config.Sources) == 0 {
		return nil, fmt.Errorf("at least one source must be configured in the config file")
	}
	for i, src := range config.Sources {
		if src.Name == "" {
			return nil, fmt.Errorf("sources[%d]: name is required", i)
		}
		if src.URL == "" {
			return nil, fmt.Errorf("source %q: url is required", src.Name)
		}
		if src.CalendarID == "" {
			return nil, fmt.Errorf("source %q: calendar_id is required", src.Name)
		}
	}

	if config.MaxMonths == 0 {
		config.MaxMonths = 6
	}
	if config.MaxEmptyMonths == 0 {
		config.MaxEmptyMonths = 3
	}
	if config.BrowserTimeoutSeconds == 0 {
		config.BrowserTimeoutSeconds = 30
	}
	if config.ListenAddr == "" {
		config.ListenAddr = ":8080"
	}

	return &config, nil
}

// SourceByName returns the configured source with the given name.
func (c *Config) SourceByName(name string) (Source, bool) {
	for _, src := range c.Sources {
		if src.Name == name {
			return src, true
		}
	}
	return Source{}, false
}

// LocationFor returns the source's location, falling back to the global
// default.
func (c *Config) LocationFor(src Source) string {
	if src.Location != "" {
		return src.Location
	}
	return c.DefaultLocation
}
