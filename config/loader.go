package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// DefaultFiles are probed in order when no explicit path is given.
var DefaultFiles = []string{"quire.toml", "quire.yaml", "quire.yml"}

// Load reads one configuration file, picking the parser by extension.
func Load(path string) (File, error) {
	var f File
	data, err := os.ReadFile(path)
	if err != nil {
		return f, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &f)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &f)
	default:
		return f, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	if err != nil {
		return f, fmt.Errorf("parse %s: %w", path, err)
	}
	return f, nil
}

// Resolve builds the effective configuration: defaults, then the config
// file (the explicit path, or the first default file present), then the
// environment.
func Resolve(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		f, err := Load(path)
		if err != nil {
			return cfg, err
		}
		cfg.Apply(f)
	} else {
		for _, candidate := range DefaultFiles {
			f, err := Load(candidate)
			if err != nil {
				if os.IsNotExist(err) {
					continue
				}
				return cfg, err
			}
			cfg.Apply(f)
			break
		}
	}
	cfg.ApplyEnv(os.Getenv)
	return cfg, nil
}

// ApplyEnv overlays QUIRE_* variables. The lookup function is a
// parameter so tests can inject an environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	setString := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setString("QUIRE_ADDR", &c.Addr)
	setInt("QUIRE_HISTORY_LIMIT", &c.HistoryLimit)
	setInt("QUIRE_VERBOSE", &c.Verbose)
	setString("QUIRE_PROMPT", &c.Prompt)
	setString("QUIRE_MORE_PROMPT", &c.MorePrompt)
	setString("QUIRE_COLOR", &c.Color)
}
