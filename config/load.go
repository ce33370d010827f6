package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// envWithDefault matches ${VAR:-default}; envBraced matches ${VAR}. Grounded
// on the teacher's config/env.go expandEnvVars, trimmed to the two forms
// this module's configs actually need (no godotenv dependency: crewcore
// configs read already-exported process environment variables only).
var (
	envWithDefault = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*):-(.*?)\}`)
	envBraced      = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)
)

func expandEnvVars(raw []byte) []byte {
	s := string(raw)
	s = envWithDefault.ReplaceAllStringFunc(s, func(match string) string {
		parts := envWithDefault.FindStringSubmatch(match)
		if val := os.Getenv(parts[1]); val != "" {
			return val
		}
		return parts[2]
	})
	s = envBraced.ReplaceAllStringFunc(s, func(match string) string {
		parts := envBraced.FindStringSubmatch(match)
		return os.Getenv(parts[1])
	})
	return []byte(s)
}

// LoadConfig reads, env-expands, and unmarshals a crew definition from
// path, then applies SetDefaults. Validate is left to the caller so it can
// decide whether to surface partial configs (e.g. `crewcore validate`).
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return LoadConfigFromBytes(raw)
}

// LoadConfigFromBytes is LoadConfig without the filesystem read, useful for
// tests and for configs assembled in memory.
func LoadConfigFromBytes(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(expandEnvVars(raw), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.SetDefaults()
	return &cfg, nil
}
