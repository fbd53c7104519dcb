package config

import (
	"fmt"
	"os"
	"strings"
)

// ResolveSecret reads a secret value using the *_FILE convention.
// If envName+"_FILE" is set, the secret is read from that path and trimmed.
// Otherwise the value of envName is returned, or "" when neither is set.
func ResolveSecret(envName string) (string, error) {
	fileEnv := envName + "_FILE"
	if filePath := os.Getenv(fileEnv); filePath != "" {
		content, err := os.ReadFile(filePath)
		if err != nil {
			return "", fmt.Errorf("failed to read secret from %s=%s: %w", fileEnv, filePath, err)
		}
		return strings.TrimSpace(string(content)), nil
	}
	return os.Getenv(envName), nil
}

// PostgresDSN returns the connection string named by storage.dsn_env, or ""
// when no variable is configured.
func (c *Config) PostgresDSN() (string, error) {
	if c.Storage.DSNEnv == "" {
		return "", nil
	}
	return ResolveSecret(c.Storage.DSNEnv)
}
