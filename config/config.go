// Package config resolves quire's runtime settings from defaults, an
// optional config file and QUIRE_* environment variables, in that order.
package config

// File mirrors the on-disk configuration. Pointer fields distinguish
// absent from zero, so a file only overrides what it actually sets.
type File struct {
	Addr         *string `toml:"addr" yaml:"addr"`
	HistoryLimit *int    `toml:"history_limit" yaml:"history_limit"`
	Verbose      *int    `toml:"verbose" yaml:"verbose"`
	Prompt       *string `toml:"prompt" yaml:"prompt"`
	MorePrompt   *string `toml:"more_prompt" yaml:"more_prompt"`
	Color        *string `toml:"color" yaml:"color"`
}

// Config is the resolved runtime configuration.
type Config struct {
	// Addr is the HTTP listen address for serve.
	Addr string

	// HistoryLimit bounds the cells a notebook retains.
	HistoryLimit int

	// Verbose raises log verbosity; each step adds detail.
	Verbose int

	// Prompt and MorePrompt are the first-line and continuation prompts
	// of the interactive shell.
	Prompt     string
	MorePrompt string

	// Color is auto, always or never.
	Color string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:         ":8080",
		HistoryLimit: 200,
		Prompt:       "js> ",
		MorePrompt:   "... ",
		Color:        "auto",
	}
}

// Apply overlays the file's set fields onto c.
func (c *Config) Apply(f File) {
	if f.Addr != nil {
		c.Addr = *f.Addr
	}
	if f.HistoryLimit != nil {
		c.HistoryLimit = *f.HistoryLimit
	}
	if f.Verbose != nil {
		c.Verbose = *f.Verbose
	}
	if f.Prompt != nil {
		c.Prompt = *f.Prompt
	}
	if f.MorePrompt != nil {
		c.MorePrompt = *f.MorePrompt
	}
	if f.Color != nil {
		c.Color = *f.Color
	}
}
