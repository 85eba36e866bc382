// Package config provides unified configuration for the nbgate service.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (NBGATE_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for the nbgate service.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Jupyter       JupyterConfig       `yaml:"jupyter"`
	Images        ImagesConfig        `yaml:"images"`
	Auth          AuthConfig          `yaml:"auth"`
	Observability ObservabilityConfig `yaml:"observability"`
	Debug         DebugConfig         `yaml:"debug"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`          // default: 8080
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"` // default: 300s
}

// JupyterConfig holds coding backend settings. URL and SandboxTemplate
// are mutually exclusive: a static backend URL for development, or a
// SandboxTemplate CRD name to provision the backend at startup.
type JupyterConfig struct {
	URL              string        `yaml:"url"`
	Token            string        `yaml:"token"`
	TokenFile        string        `yaml:"token_file"` // _file variant for token
	KernelName       string        `yaml:"kernel_name"`
	SandboxTemplate  string        `yaml:"sandbox_template"`
	SandboxNamespace string        `yaml:"sandbox_namespace"`
	ClaimTimeout     time.Duration `yaml:"claim_timeout"` // default: 30s
}

// ImagesConfig holds image artifact settings.
type ImagesConfig struct {
	Dir        string `yaml:"dir"`         // default: "./images"
	PublicPath string `yaml:"public_path"` // default: "/images"
}

// AuthConfig holds authentication settings for the tool surface.
type AuthConfig struct {
	Type          string         `yaml:"type"` // "none", "apikey", "jwt", default: "none"
	APIKeys       []APIKeyConfig `yaml:"api_keys"`
	JWTSecret     string         `yaml:"jwt_secret"`
	JWTSecretFile string         `yaml:"jwt_secret_file"` // _file variant for jwt_secret
	JWTIssuer     string         `yaml:"jwt_issuer"`
}

// APIKeyConfig describes a single API key entry.
type APIKeyConfig struct {
	Key     string `yaml:"key"`
	KeyFile string `yaml:"key_file"` // _file variant for key
	Subject string `yaml:"subject"`
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// DebugConfig holds debug logging settings.
type DebugConfig struct {
	Categories string `yaml:"categories"`
	Level      string `yaml:"level"`
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 300 * time.Second,
		},
		Jupyter: JupyterConfig{
			KernelName:   "python3",
			ClaimTimeout: 30 * time.Second,
		},
		Images: ImagesConfig{
			Dir:        "./images",
			PublicPath: "/images",
		},
		Auth: AuthConfig{
			Type: "none",
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}
