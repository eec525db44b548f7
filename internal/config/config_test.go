package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadFileMissingReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if !cfg.AutoLoader() {
		t.Fatal("auto loader should default to on")
	}
	if cfg.AdvanceThreshold() != 60 || cfg.MaxDisplayed() != 3 {
		t.Fatalf("threshold = %v, max = %d", cfg.AdvanceThreshold(), cfg.MaxDisplayed())
	}
	if cfg.DebounceWindow() != 300*time.Millisecond {
		t.Fatalf("debounce = %v", cfg.DebounceWindow())
	}
	if cfg.API() != "https://kolbook.xyz/wp-json/wp/v2" {
		t.Fatalf("API() = %s", cfg.API())
	}
	if cfg.Database() != filepath.Join(filepath.Dir(path), "library.db") {
		t.Fatalf("Database() = %s", cfg.Database())
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if err := cfg.SetAutoLoader(false); err != nil {
		t.Fatalf("SetAutoLoader: %v", err)
	}
	if err := cfg.Set("max_displayed_chapters", "5"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Fatalf("mode = %v, want 0600", info.Mode().Perm())
	}

	again, err := LoadFile(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.AutoLoader() || again.MaxDisplayed() != 5 {
		t.Fatalf("reloaded auto_loader = %v, max = %d", again.AutoLoader(), again.MaxDisplayed())
	}
}

func TestNormalizeRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "base_url: https://mirror.test/\nadvance_threshold_pct: 150\nmax_displayed_chapters: 0\n"
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.BaseURL != "https://mirror.test" {
		t.Fatalf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.AdvanceThreshold() != 60 || cfg.MaxDisplayed() != 3 {
		t.Fatalf("threshold = %v, max = %d", cfg.AdvanceThreshold(), cfg.MaxDisplayed())
	}
}

func TestSetValidation(t *testing.T) {
	cfg, _ := LoadFile(filepath.Join(t.TempDir(), "config.yaml"))

	for _, tc := range []struct{ key, value string }{
		{"auto_loader", "maybe"},
		{"advance_threshold_pct", "100"},
		{"max_displayed_chapters", "0"},
		{"theme", "neon"},
		{"nope", "1"},
	} {
		if err := cfg.Set(tc.key, tc.value); err == nil {
			t.Errorf("Set(%q, %q) should fail", tc.key, tc.value)
		}
	}
}

func TestSetTheme(t *testing.T) {
	cfg, _ := LoadFile(filepath.Join(t.TempDir(), "config.yaml"))

	err := cfg.Set("theme", "neon")
	if err == nil || !strings.Contains(err.Error(), "gruvbox") {
		t.Fatalf("expected an error listing the themes, got %v", err)
	}
	if cfg.Theme != DefaultTheme {
		t.Fatalf("theme changed to %q", cfg.Theme)
	}
	if err := cfg.SetTheme("nope"); err == nil {
		t.Fatal("SetTheme accepted an unknown theme")
	}
	if err := cfg.Set("theme", "nord"); err != nil {
		t.Fatalf("Set theme: %v", err)
	}
	if cfg.Theme != "nord" {
		t.Fatalf("theme = %q, want nord", cfg.Theme)
	}
}

func TestLoadMergedOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg, err := LoadMerged(Options{Path: path, BaseURL: "http://localhost:8080/", Debug: true})
	if err != nil {
		t.Fatalf("LoadMerged: %v", err)
	}
	if cfg.API() != "http://localhost:8080/wp-json/wp/v2" {
		t.Fatalf("API() = %s", cfg.API())
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel = %s", cfg.LogLevel)
	}

	var b strings.Builder
	cfg.Print(&b)
	if !strings.Contains(b.String(), "localhost:8080") {
		t.Fatalf("Print output missing base url:\n%s", b.String())
	}
}
