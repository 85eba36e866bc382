package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, NBGATE_CONFIG env, ./config.yaml, /etc/nbgate/config.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. NBGATE_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/nbgate/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv("NBGATE_CONFIG"); envPath != "" {
		return envPath
	}

	candidates := []string{
		"config.yaml",
		"/etc/nbgate/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps NBGATE_* environment variables to config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("NBGATE_JUPYTER_URL"); v != "" {
		cfg.Jupyter.URL = v
	}
	if v := os.Getenv("NBGATE_JUPYTER_TOKEN"); v != "" {
		cfg.Jupyter.Token = v
	}
	if v := os.Getenv("NBGATE_KERNEL_NAME"); v != "" {
		cfg.Jupyter.KernelName = v
	}
	if v := os.Getenv("NBGATE_SANDBOX_TEMPLATE"); v != "" {
		cfg.Jupyter.SandboxTemplate = v
	}
	if v := os.Getenv("NBGATE_SANDBOX_NAMESPACE"); v != "" {
		cfg.Jupyter.SandboxNamespace = v
	}
	if v := os.Getenv("NBGATE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("NBGATE_IMAGES_DIR"); v != "" {
		cfg.Images.Dir = v
	}
	if v := os.Getenv("NBGATE_AUTH_TYPE"); v != "" {
		cfg.Auth.Type = v
	}
	if v := os.Getenv("NBGATE_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
}

// resolveFileReferences reads _file fields and populates the corresponding
// value fields. For each field ending in _file, if the value field is
// empty and the file field is set, the file is read, whitespace is
// trimmed, and the value field is populated.
func resolveFileReferences(cfg *Config) error {
	// jupyter.token_file -> jupyter.token
	if cfg.Jupyter.TokenFile != "" && cfg.Jupyter.Token == "" {
		val, err := readSecretFile(cfg.Jupyter.TokenFile)
		if err != nil {
			return fmt.Errorf("jupyter.token_file: %w", err)
		}
		cfg.Jupyter.Token = val
	}

	// auth.jwt_secret_file -> auth.jwt_secret
	if cfg.Auth.JWTSecretFile != "" && cfg.Auth.JWTSecret == "" {
		val, err := readSecretFile(cfg.Auth.JWTSecretFile)
		if err != nil {
			return fmt.Errorf("auth.jwt_secret_file: %w", err)
		}
		cfg.Auth.JWTSecret = val
	}

	// auth.api_keys[*].key_file -> auth.api_keys[*].key
	for i := range cfg.Auth.APIKeys {
		if cfg.Auth.APIKeys[i].KeyFile != "" && cfg.Auth.APIKeys[i].Key == "" {
			val, err := readSecretFile(cfg.Auth.APIKeys[i].KeyFile)
			if err != nil {
				return fmt.Errorf("auth.api_keys[%d].key_file: %w", i, err)
			}
			cfg.Auth.APIKeys[i].Key = val
		}
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding
// whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
