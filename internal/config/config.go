// Package config provides configuration management.
// It loads configuration from environment variables and blogsmith.yaml using Viper.
package config

import (
	"fmt"
	"time"

	"github.com/hpn/hpn-blog-pipeline/internal/domain"
)

// Configuration holds all application configuration values.
type Configuration struct {
	// Providers groups the settings of every supported LLM backend.
	Providers ProvidersConfig `json:"providers" mapstructure:"providers"`

	// Generation holds optional sampling controls applied to every stage.
	Generation GenerationConfig `json:"generation" mapstructure:"generation"`

	// Pipeline tunes stage post-processing and result extraction.
	Pipeline PipelineConfig `json:"pipeline" mapstructure:"pipeline"`

	// Defaults is the request used when no other source provides one.
	Defaults domain.BlogRequest `json:"defaults" mapstructure:"defaults"`

	// Output configures where and how posts are written.
	Output OutputConfig `json:"output" mapstructure:"output"`

	// Server configures the optional HTTP surface.
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Logging configuration
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// ProvidersConfig holds one section per provider.
type ProvidersConfig struct {
	Local  LocalConfig  `json:"local" mapstructure:"local"`
	Gemini GeminiConfig `json:"gemini" mapstructure:"gemini"`
	Azure  AzureConfig  `json:"azure" mapstructure:"azure"`
	OpenAI OpenAIConfig `json:"openai" mapstructure:"openai"`
}

// LocalConfig configures an OpenAI-compatible local inference server.
type LocalConfig struct {
	Enabled        bool   `json:"enabled" mapstructure:"enabled"`
	Endpoint       string `json:"endpoint" mapstructure:"endpoint"`
	Model          string `json:"model" mapstructure:"model"`
	APIKey         string `json:"-" mapstructure:"api_key"`
	TimeoutSeconds int    `json:"timeout_seconds" mapstructure:"timeout_seconds"`
}

// GeminiConfig configures the Gemini API.
type GeminiConfig struct {
	APIKey         string `json:"-" mapstructure:"api_key"`
	Model          string `json:"model" mapstructure:"model"`
	BaseURL        string `json:"base_url" mapstructure:"base_url"`
	TimeoutSeconds int    `json:"timeout_seconds" mapstructure:"timeout_seconds"`
}

// AzureConfig configures Azure OpenAI.
type AzureConfig struct {
	Endpoint       string `json:"endpoint" mapstructure:"endpoint"`
	Deployment     string `json:"deployment" mapstructure:"deployment"`
	APIKey         string `json:"-" mapstructure:"api_key"`
	APIVersion     string `json:"api_version" mapstructure:"api_version"`
	TimeoutSeconds int    `json:"timeout_seconds" mapstructure:"timeout_seconds"`
}

// OpenAIConfig configures the last-resort fallback.
type OpenAIConfig struct {
	APIKey         string `json:"-" mapstructure:"api_key"`
	TimeoutSeconds int    `json:"timeout_seconds" mapstructure:"timeout_seconds"`
}

// GenerationConfig holds optional sampling controls. Nil means provider default.
type GenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty" mapstructure:"temperature"`
	MaxOutputTokens *int     `json:"max_output_tokens,omitempty" mapstructure:"max_output_tokens"`
	TopP            *float64 `json:"top_p,omitempty" mapstructure:"top_p"`
	TopK            *int     `json:"top_k,omitempty" mapstructure:"top_k"`
}

// PipelineConfig tunes how stage output is post-processed.
type PipelineConfig struct {
	// StripEditorNotes removes the editor notes section from the Edit output
	// before it is forwarded to Lint.
	StripEditorNotes bool `json:"strip_editor_notes" mapstructure:"strip_editor_notes"`

	// EditorNotesMarker starts the section that is stripped.
	EditorNotesMarker string `json:"editor_notes_marker" mapstructure:"editor_notes_marker"`

	// TagKeys is the priority order of JSON keys holding tags.
	TagKeys []string `json:"tag_keys" mapstructure:"tag_keys"`

	// SynthesizeSummary derives a summary from the content when the SEO output has none.
	SynthesizeSummary bool `json:"synthesize_summary" mapstructure:"synthesize_summary"`

	// FallbackTitle is used when the SEO output yields no title.
	FallbackTitle string `json:"fallback_title" mapstructure:"fallback_title"`
}

// OutputConfig configures the markdown writer.
type OutputConfig struct {
	Dir         string `json:"dir" mapstructure:"dir"`
	Layout      string `json:"layout" mapstructure:"layout"`
	Image       string `json:"image" mapstructure:"image"`
	Draft       bool   `json:"draft" mapstructure:"draft"`
	SEOSidecar  string `json:"seo_sidecar" mapstructure:"seo_sidecar"`
	HTMLPreview bool   `json:"html_preview" mapstructure:"html_preview"`
}

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	// Host is the server bind address.
	Host string `json:"host" mapstructure:"host"`

	// Port is the server port number.
	Port int `json:"port" mapstructure:"port"`

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeoutSeconds int `json:"read_timeout_seconds" mapstructure:"read_timeout_seconds"`

	// WriteTimeout must cover a full pipeline run on the slowest provider.
	WriteTimeoutSeconds int `json:"write_timeout_seconds" mapstructure:"write_timeout_seconds"`

	// ShutdownTimeout is the maximum duration to wait for active connections to finish.
	ShutdownTimeoutSeconds int `json:"shutdown_timeout_seconds" mapstructure:"shutdown_timeout_seconds"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `json:"level" mapstructure:"level"`

	// Format is the log format (json, text).
	Format string `json:"format" mapstructure:"format"`
}

// Unset clears the count limits set to zero. Zero temperature and top_p are
// real sampling values and are kept.
func (g GenerationConfig) Unset() GenerationConfig {
	if g.MaxOutputTokens != nil && *g.MaxOutputTokens == 0 {
		g.MaxOutputTokens = nil
	}
	if g.TopK != nil && *g.TopK == 0 {
		g.TopK = nil
	}
	return g
}

// Seconds converts a seconds setting to a duration.
func Seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// Validate validates the configuration and returns an error if values are out of range.
// Provider completeness is checked when a provider is selected, not here.
func (c *Configuration) Validate() error {
	var validationErrors []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		validationErrors = append(validationErrors, "server.port must be between 1 and 65535")
	}

	if t := c.Generation.Temperature; t != nil && (*t < 0 || *t > 2) {
		validationErrors = append(validationErrors, fmt.Sprintf("generation.temperature %.2f must be between 0.0 and 2.0", *t))
	}
	if p := c.Generation.TopP; p != nil && (*p < 0 || *p > 1) {
		validationErrors = append(validationErrors, fmt.Sprintf("generation.top_p %.2f must be between 0.0 and 1.0", *p))
	}
	if m := c.Generation.MaxOutputTokens; m != nil && *m < 0 {
		validationErrors = append(validationErrors, "generation.max_output_tokens must not be negative")
	}
	if k := c.Generation.TopK; k != nil && *k < 0 {
		validationErrors = append(validationErrors, "generation.top_k must not be negative")
	}

	if c.Pipeline.StripEditorNotes && c.Pipeline.EditorNotesMarker == "" {
		validationErrors = append(validationErrors, "pipeline.editor_notes_marker is required when strip_editor_notes is set")
	}
	if len(c.Pipeline.TagKeys) == 0 {
		validationErrors = append(validationErrors, "pipeline.tag_keys cannot be empty")
	}

	if c.Output.Dir == "" {
		validationErrors = append(validationErrors, "output.dir is required")
	}

	if c.Logging.Level != "" && !isValidLogLevel(c.Logging.Level) {
		validationErrors = append(validationErrors, fmt.Sprintf(
			"logging.level '%s' is invalid, must be one of: debug, info, warn, error",
			c.Logging.Level,
		))
	}
	if c.Logging.Format != "" && c.Logging.Format != "json" && c.Logging.Format != "text" {
		validationErrors = append(validationErrors, fmt.Sprintf(
			"logging.format '%s' is invalid, must be one of: json, text",
			c.Logging.Format,
		))
	}

	if len(validationErrors) > 0 {
		return &ValidationError{Errors: validationErrors}
	}

	return nil
}

// isValidLogLevel checks if the log level is valid.
func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}
