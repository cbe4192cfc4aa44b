package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/sefs/internal/embed"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Registry backends.
const (
	RegistryBackendSQLite = "sqlite"
	RegistryBackendJSON   = "json"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Root      RootConfig        `yaml:"root"`
	Pipeline  PipelineConfig    `yaml:"pipeline"`
	Extract   ExtractConfig     `yaml:"extract"`
	Embedding EmbeddingConfig   `yaml:"embedding"`
	Cluster   ClusterConfig     `yaml:"cluster"`
	Graph     GraphConfig       `yaml:"graph"`
	Registry  RegistryConfig    `yaml:"registry"`
	SQLite    SQLiteConfig      `yaml:"sqlite"`
	Auth      AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []interface{ Validate() error }{
		&c.App, &c.Root, &c.Pipeline, &c.Extract, &c.Embedding,
		&c.Cluster, &c.Graph, &c.Registry, &c.SQLite, &c.Auth,
	} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// RootConfig describes the managed root folder.
type RootConfig struct {
	Path    string   `yaml:"path"`
	Exclude []string `yaml:"exclude"`
}

// Validate validates the root configuration.
func (c *RootConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// PipelineConfig tunes cycle scheduling.
type PipelineConfig struct {
	Debounce      time.Duration `yaml:"debounce"`
	CycleTimeout  time.Duration `yaml:"cycle_timeout"`
	Workers       int           `yaml:"workers"`
	MinTextLength int           `yaml:"min_text_length"`
}

// Validate validates the pipeline configuration.
func (c *PipelineConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Debounce, validation.Min(time.Duration(0))),
		validation.Field(&c.CycleTimeout, validation.Min(time.Duration(0))),
		validation.Field(&c.Workers, validation.Required, validation.Min(1), validation.Max(64)),
		validation.Field(&c.MinTextLength, validation.Min(0)),
	)
}

// ExtractConfig configures content extraction.
type ExtractConfig struct {
	OCR OCRConfig `yaml:"ocr"`
}

// Validate validates the extract configuration.
func (c *ExtractConfig) Validate() error {
	return c.OCR.Validate()
}

// OCRConfig configures the external OCR command used for images.
type OCRConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Command  string `yaml:"command"`
	Language string `yaml:"language"`
}

// Validate validates the OCR configuration.
func (c *OCRConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Command, validation.When(c.Enabled, validation.Required)),
		validation.Field(&c.Language, validation.When(c.Enabled, validation.Required)),
	)
}

// EmbeddingConfig selects the embedding provider.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`
	Dimension int    `yaml:"dimension"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"api_key"`
	CacheSize int    `yaml:"cache_size"`
}

// Validate validates the embedding configuration.
func (c *EmbeddingConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Provider, validation.Required, validation.In(embed.ProviderLocal, embed.ProviderOpenAI)),
		validation.Field(&c.Dimension, validation.When(c.Provider == embed.ProviderLocal, validation.Required, validation.Min(8))),
		validation.Field(&c.CacheSize, validation.Min(0)),
	)
}

// Options converts the section into provider options.
func (c *EmbeddingConfig) Options() embed.Options {
	return embed.Options{
		Provider:  c.Provider,
		Dimension: c.Dimension,
		Model:     c.Model,
		BaseURL:   c.BaseURL,
		APIKey:    c.APIKey,
		CacheSize: c.CacheSize,
	}
}

// ClusterConfig tunes semantic grouping.
type ClusterConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	MinClusterSize      int     `yaml:"min_cluster_size"`
}

// Validate validates the cluster configuration.
func (c *ClusterConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.SimilarityThreshold, validation.Required, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&c.MinClusterSize, validation.Required, validation.Min(2)),
	)
}

// GraphConfig locates the graph artifact.
type GraphConfig struct {
	Path          string `yaml:"path"`
	ExposeSecrets bool   `yaml:"expose_secrets"`
}

// Validate validates the graph configuration.
func (c *GraphConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// RegistryConfig selects where lock secrets are stored.
type RegistryConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// Validate validates the registry configuration.
func (c *RegistryConfig) Validate() error {
	if c.Backend == "" {
		c.Backend = RegistryBackendSQLite
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.In(RegistryBackendSQLite, RegistryBackendJSON)),
		validation.Field(&c.Path, validation.When(c.Backend == RegistryBackendJSON, validation.Required)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 5000,
			},
		},
		Root: RootConfig{
			Path:    "./root_folder",
			Exclude: []string{"**/.git/**", "**/node_modules/**"},
		},
		Pipeline: PipelineConfig{
			Debounce:      2 * time.Second,
			CycleTimeout:  10 * time.Minute,
			Workers:       4,
			MinTextLength: 10,
		},
		Extract: ExtractConfig{
			OCR: OCRConfig{Enabled: true, Command: "tesseract", Language: "eng"},
		},
		Embedding: EmbeddingConfig{
			Provider:  embed.ProviderLocal,
			Dimension: embed.DefaultLocalDimension,
			CacheSize: 1024,
		},
		Cluster: ClusterConfig{
			SimilarityThreshold: 0.35,
			MinClusterSize:      2,
		},
		Graph: GraphConfig{
			Path: "./data/graph_data.json",
		},
		Registry: RegistryConfig{
			Backend: RegistryBackendSQLite,
			Path:    "./security_registry.json",
		},
		SQLite: SQLiteConfig{
			Path: "./data/sefs.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
