package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"authrelay/pkg/logging"

	"gopkg.in/yaml.v3"
)

const configFileName = "config.yaml"

// LoadConfig loads configuration from the specified directory. The directory
// should contain config.yaml; missing files fall back to defaults so that
// local development works without any configuration.
func LoadConfig(configPath string) (Config, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	config := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
			return config, nil
		}
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("error loading config from %s: %w", configFilePath, err)
	}

	logging.Info("ConfigLoader", "Loaded configuration from %s", configFilePath)
	return config, nil
}

// Validate checks that the configuration is complete enough to serve.
func (c *Config) Validate() error {
	if c.Provider.Type != ProviderGoogle && c.Provider.Type != ProviderGitHub {
		return fmt.Errorf("unsupported provider type: %s (supported: %s, %s)",
			c.Provider.Type, ProviderGoogle, ProviderGitHub)
	}
	if c.Provider.ClientID == "" {
		return fmt.Errorf("provider.clientId is required")
	}
	if c.Provider.ClientSecret == "" {
		return fmt.Errorf("provider.clientSecret is required")
	}
	if c.Server.BaseURL != "" {
		u, err := url.Parse(c.Server.BaseURL)
		if err != nil {
			return fmt.Errorf("invalid server.baseUrl: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("invalid server.baseUrl scheme: %s", u.Scheme)
		}
	}
	return nil
}

// CallbackURL returns the redirect URI registered with the upstream provider.
func (c *Config) CallbackURL() string {
	base := c.Server.BaseURL
	if base == "" {
		base = fmt.Sprintf("http://%s:%d", c.Server.Host, c.Server.Port)
	}
	return base + "/callback"
}
