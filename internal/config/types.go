package config

import "time"

// Config is the top-level configuration structure for authrelay.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Provider   ProviderConfig   `yaml:"provider"`
	Consent    ConsentConfig    `yaml:"consent"`
	Downstream DownstreamConfig `yaml:"downstream"`
	Gateway    GatewayConfig    `yaml:"gateway"`
}

// Upstream provider types selectable via provider.type.
const (
	ProviderGoogle = "google"
	ProviderGitHub = "github"
)

// ServerConfig defines how the HTTP server binds and how it is reached
// from the outside. BaseURL is the externally visible origin used to
// derive the upstream callback redirect URI.
type ServerConfig struct {
	Host    string `yaml:"host,omitempty"`    // Host to bind to (default: localhost)
	Port    int    `yaml:"port,omitempty"`    // Port for the relay endpoints (default: 8484)
	BaseURL string `yaml:"baseUrl,omitempty"` // External origin, e.g. https://relay.example.com
}

// ProviderConfig selects and configures the upstream identity provider.
type ProviderConfig struct {
	Type         string `yaml:"type,omitempty"`         // google or github (default: google)
	ClientID     string `yaml:"clientId"`               // Upstream OAuth client ID
	ClientSecret string `yaml:"clientSecret"`           // Upstream OAuth client secret
	Scope        string `yaml:"scope,omitempty"`        // Space-separated upstream scope
	HostedDomain string `yaml:"hostedDomain,omitempty"` // Optional Google hd restriction
}

// ConsentConfig configures the signed consent-shortcut cookie.
type ConsentConfig struct {
	// SigningKey signs the consent cookie (HS256). Required in production;
	// tests and local runs may rely on the generated ephemeral key.
	SigningKey string `yaml:"signingKey,omitempty"`

	// CookieTTL bounds how long a prior approval is remembered.
	CookieTTL time.Duration `yaml:"cookieTtl,omitempty"` // default: 30 days
}

// DownstreamConfig configures the downstream OAuth engine.
type DownstreamConfig struct {
	ClientsFile    string        `yaml:"clientsFile,omitempty"`    // clients.yaml path (default: clients.yaml)
	CodeTTL        time.Duration `yaml:"codeTtl,omitempty"`        // authorization code lifetime (default: 5m)
	AccessTokenTTL time.Duration `yaml:"accessTokenTtl,omitempty"` // downstream token lifetime (default: 1h)
}

// GatewayConfig configures the MCP tool gateway.
type GatewayConfig struct {
	// ValidateIdentifier is the fixed text returned by the validate tool,
	// used by callers as a connectivity and ownership check.
	ValidateIdentifier string `yaml:"validateIdentifier,omitempty"`
}

// GetDefaultConfig returns the default configuration for authrelay.
func GetDefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8484,
		},
		Provider: ProviderConfig{
			Type:  ProviderGoogle,
			Scope: "email profile",
		},
		Consent: ConsentConfig{
			CookieTTL: 30 * 24 * time.Hour,
		},
		Downstream: DownstreamConfig{
			ClientsFile:    "clients.yaml",
			CodeTTL:        5 * time.Minute,
			AccessTokenTTL: time.Hour,
		},
	}
}
