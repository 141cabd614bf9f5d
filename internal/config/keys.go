package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNoAPIKey is returned when neither the environment nor the config
// file carries an Anthropic API key.
var ErrNoAPIKey = errors.New("no Anthropic API key configured")

// GetAPIKey resolves the Anthropic API key. ANTHROPIC_API_KEY wins
// over the config file; a ${VAR} reference in the file that expands to
// nothing counts as unset. Bedrock deployments authenticate through
// AWS and never need this.
func GetAPIKey(cfg *Config) (string, error) {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		return key, nil
	}
	if cfg == nil {
		return "", ErrNoAPIKey
	}
	key := os.ExpandEnv(cfg.Anthropic.APIKey)
	if key == "" || strings.HasPrefix(key, "${") {
		return "", ErrNoAPIKey
	}
	return key, nil
}

// ValidateAPIKey checks the key's shape. It never contacts the API, so
// a well-formed but revoked key still passes.
func ValidateAPIKey(key string) error {
	switch {
	case key == "":
		return ErrNoAPIKey
	case !strings.HasPrefix(key, "sk-ant-"):
		return fmt.Errorf("invalid API key format: expected 'sk-ant-' prefix")
	case len(key) < 20:
		return fmt.Errorf("invalid API key format: key too short")
	}
	return nil
}

// MaskAPIKey shortens a key to its prefix and last four characters so
// it is safe to echo in config output.
func MaskAPIKey(key string) string {
	switch {
	case key == "":
		return "(not set)"
	case len(key) <= 15:
		return "***"
	}
	return key[:7] + "..." + key[len(key)-4:]
}
