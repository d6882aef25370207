package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q, want %q", cfg.Addr, ":8080")
	}
	if cfg.HistoryLimit != 200 {
		t.Errorf("HistoryLimit = %d, want 200", cfg.HistoryLimit)
	}
	if cfg.Prompt != "js> " || cfg.MorePrompt != "... " {
		t.Errorf("prompts = %q %q, want js> and ...", cfg.Prompt, cfg.MorePrompt)
	}
	if cfg.Color != "auto" {
		t.Errorf("Color = %q, want auto", cfg.Color)
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "quire.toml", "addr = \":9000\"\nhistory_limit = 50\n")
	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if f.Addr == nil || *f.Addr != ":9000" {
		t.Errorf("Addr = %v, want :9000", f.Addr)
	}
	if f.HistoryLimit == nil || *f.HistoryLimit != 50 {
		t.Errorf("HistoryLimit = %v, want 50", f.HistoryLimit)
	}
	if f.Prompt != nil {
		t.Errorf("Prompt = %v, want unset", f.Prompt)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "quire.yaml", "prompt: \"node> \"\ncolor: never\n")
	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if f.Prompt == nil || *f.Prompt != "node> " {
		t.Errorf("Prompt = %v, want node> ", f.Prompt)
	}
	if f.Color == nil || *f.Color != "never" {
		t.Errorf("Color = %v, want never", f.Color)
	}
}

func TestLoadUnsupportedExtension(t *testing.T) {
	path := writeFile(t, "quire.ini", "addr=:9000\n")
	if _, err := Load(path); err == nil {
		t.Error("Load(.ini) should fail")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); !os.IsNotExist(err) {
		t.Errorf("Load(absent) error = %v, want not-exist", err)
	}
}

func TestApplyOverlaysOnlySetFields(t *testing.T) {
	cfg := Default()
	addr := ":7070"
	cfg.Apply(File{Addr: &addr})
	if cfg.Addr != ":7070" {
		t.Errorf("Addr = %q, want :7070", cfg.Addr)
	}
	if cfg.HistoryLimit != 200 {
		t.Errorf("HistoryLimit = %d, want default kept", cfg.HistoryLimit)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"QUIRE_ADDR":          ":6060",
		"QUIRE_HISTORY_LIMIT": "25",
		"QUIRE_VERBOSE":       "2",
		"QUIRE_COLOR":         "always",
	}
	cfg := Default()
	cfg.ApplyEnv(func(key string) string { return env[key] })
	if cfg.Addr != ":6060" {
		t.Errorf("Addr = %q, want :6060", cfg.Addr)
	}
	if cfg.HistoryLimit != 25 {
		t.Errorf("HistoryLimit = %d, want 25", cfg.HistoryLimit)
	}
	if cfg.Verbose != 2 {
		t.Errorf("Verbose = %d, want 2", cfg.Verbose)
	}
	if cfg.Color != "always" {
		t.Errorf("Color = %q, want always", cfg.Color)
	}
	if cfg.Prompt != "js> " {
		t.Errorf("Prompt = %q, want default kept", cfg.Prompt)
	}
}

func TestApplyEnvIgnoresBadInt(t *testing.T) {
	cfg := Default()
	cfg.ApplyEnv(func(key string) string {
		if key == "QUIRE_HISTORY_LIMIT" {
			return "many"
		}
		return ""
	})
	if cfg.HistoryLimit != 200 {
		t.Errorf("HistoryLimit = %d, want default kept on parse failure", cfg.HistoryLimit)
	}
}

func TestResolveExplicitPath(t *testing.T) {
	path := writeFile(t, "custom.toml", "addr = \":5000\"\n")
	cfg, err := Resolve(path)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if cfg.Addr != ":5000" {
		t.Errorf("Addr = %q, want :5000", cfg.Addr)
	}
}

func TestResolveMissingExplicitPathFails(t *testing.T) {
	if _, err := Resolve(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("Resolve(absent explicit path) should fail")
	}
}
