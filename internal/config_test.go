package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/sefs/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.App.HTTP.Address() != ":5000" {
		t.Errorf("address = %q", cfg.App.HTTP.Address())
	}
}

func TestFullConfig_SectionValidationCalled(t *testing.T) {
	cases := map[string]func(*Config){
		"auth":      func(c *Config) { c.Auth.Mode, c.Auth.Token = "token", "" },
		"root":      func(c *Config) { c.Root.Path = "" },
		"workers":   func(c *Config) { c.Pipeline.Workers = 0 },
		"debounce":  func(c *Config) { c.Pipeline.Debounce = -time.Second },
		"ocr":       func(c *Config) { c.Extract.OCR.Command = "" },
		"provider":  func(c *Config) { c.Embedding.Provider = "magic" },
		"dimension": func(c *Config) { c.Embedding.Dimension = 4 },
		"threshold": func(c *Config) { c.Cluster.SimilarityThreshold = 1.5 },
		"min size":  func(c *Config) { c.Cluster.MinClusterSize = 1 },
		"graph":     func(c *Config) { c.Graph.Path = "" },
		"registry":  func(c *Config) { c.Registry.Backend = "redis" },
		"json path": func(c *Config) { c.Registry.Backend, c.Registry.Path = "json", "" },
		"sqlite":    func(c *Config) { c.SQLite.Path = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("validation should fail")
			}
		})
	}
}

func TestOCRDisabledNeedsNoCommand(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Extract.OCR = OCRConfig{Enabled: false}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled OCR should pass: %v", err)
	}
}

func TestOpenAIProviderSkipsDimension(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Embedding.Provider = "openai"
	cfg.Embedding.Dimension = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("openai provider should not require a dimension: %v", err)
	}
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	t.Setenv("SEFS_TEST_TOKEN", "from-env")
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
app:
  http:
    port: 8090
root:
  path: /tmp/sefs-root
pipeline:
  debounce: 500ms
cluster:
  similarity_threshold: 0.5
auth:
  mode: token
  token: ${SEFS_TEST_TOKEN}
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.HTTP.Port != 8090 || cfg.Root.Path != "/tmp/sefs-root" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.Pipeline.Debounce != 500*time.Millisecond {
		t.Errorf("debounce = %v", cfg.Pipeline.Debounce)
	}
	if cfg.Pipeline.Workers != 4 {
		t.Errorf("workers default lost: %d", cfg.Pipeline.Workers)
	}
	if cfg.Cluster.SimilarityThreshold != 0.5 || cfg.Cluster.MinClusterSize != 2 {
		t.Errorf("cluster = %+v", cfg.Cluster)
	}
	if cfg.Auth.Token != "from-env" {
		t.Errorf("token = %q, want env expansion", cfg.Auth.Token)
	}
}

func TestLoadOptionalMissingFileUsesDefaults(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := pkgconfig.LoadOptional(filepath.Join(t.TempDir(), "missing.yaml"), cfg); err != nil {
		t.Fatalf("LoadOptional: %v", err)
	}
	if cfg.Root.Path != "./root_folder" {
		t.Errorf("root = %q", cfg.Root.Path)
	}
}

func TestLoadOptionalMalformedFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("app: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := pkgconfig.LoadOptional(path, NewDefaultConfig()); err == nil {
		t.Fatal("malformed config should fail")
	}
}
