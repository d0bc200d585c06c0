package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Load reads the optional env files (default ".env") without overriding variables that are
// already set, then populates spec from the environment using envconfig struct tags.
func Load(spec any, envFiles ...string) error {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	if err := envconfig.Process("", spec); err != nil {
		return fmt.Errorf("process env: %w", err)
	}
	return nil
}

func String(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

// Port validates a TCP port given either as "8080" or ":8080".
func Port(name, v string) (string, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(v), ":")
	p, err := strconv.Atoi(raw)
	if err != nil || p < 1 || p > 65535 {
		return "", fmt.Errorf("%s must be a valid TCP port (got %q)", name, v)
	}
	return raw, nil
}

// List splits a comma separated value, dropping blanks.
func List(raw string) []string {
	items := strings.Split(raw, ",")
	out := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
