package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearProviderEnv blanks every provider variable so the host environment
// cannot leak into a test.
func clearProviderEnv(t *testing.T) {
	t.Helper()
	for key, aliases := range providerEnvAliases {
		t.Setenv(envName(key), "")
		for _, a := range aliases {
			t.Setenv(a, "")
		}
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blogsmith.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearProviderEnv(t)
	path := writeConfig(t, "logging:\n  level: info\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Providers.Local.Enabled {
		t.Error("local provider should be disabled by default")
	}
	if cfg.Providers.Gemini.Model != "gemini-1.5-flash" {
		t.Errorf("gemini model = %s", cfg.Providers.Gemini.Model)
	}
	if cfg.Providers.Azure.APIVersion != "2024-06-01" {
		t.Errorf("azure api_version = %s", cfg.Providers.Azure.APIVersion)
	}
	if Seconds(cfg.Providers.Local.TimeoutSeconds) != 10*time.Minute {
		t.Errorf("local timeout = %d", cfg.Providers.Local.TimeoutSeconds)
	}
	if !cfg.Pipeline.StripEditorNotes || cfg.Pipeline.EditorNotesMarker != "## Editor Notes" {
		t.Errorf("pipeline = %+v", cfg.Pipeline)
	}
	if len(cfg.Pipeline.TagKeys) != 3 || cfg.Pipeline.TagKeys[0] != "tags" {
		t.Errorf("tag_keys = %v", cfg.Pipeline.TagKeys)
	}
	if cfg.Defaults.TargetAudience != "General" || cfg.Defaults.WordCount != 800 || cfg.Defaults.Tone != "Professional" {
		t.Errorf("defaults = %+v", cfg.Defaults)
	}
	if cfg.Output.Dir != "_posts" || !cfg.Output.Draft || cfg.Output.SEOSidecar != "seo-output.json" {
		t.Errorf("output = %+v", cfg.Output)
	}
	if cfg.Generation.Temperature != nil || cfg.Generation.TopK != nil {
		t.Errorf("generation should be unset, got %+v", cfg.Generation)
	}
}

func TestLoad_File(t *testing.T) {
	clearProviderEnv(t)
	path := writeConfig(t, `
providers:
  local:
    enabled: true
    endpoint: http://localhost:1234
    model: llama3
generation:
  temperature: 0.4
  max_output_tokens: 2048
pipeline:
  tag_keys: [keywords]
defaults:
  topic: Go generics
  audience: Developers
  word_count: 1200
output:
  dir: out
  html_preview: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !cfg.Providers.Local.Enabled || cfg.Providers.Local.Endpoint != "http://localhost:1234" || cfg.Providers.Local.Model != "llama3" {
		t.Errorf("local = %+v", cfg.Providers.Local)
	}
	if cfg.Generation.Temperature == nil || *cfg.Generation.Temperature != 0.4 {
		t.Errorf("temperature = %v", cfg.Generation.Temperature)
	}
	if cfg.Generation.MaxOutputTokens == nil || *cfg.Generation.MaxOutputTokens != 2048 {
		t.Errorf("max_output_tokens = %v", cfg.Generation.MaxOutputTokens)
	}
	if len(cfg.Pipeline.TagKeys) != 1 || cfg.Pipeline.TagKeys[0] != "keywords" {
		t.Errorf("tag_keys = %v", cfg.Pipeline.TagKeys)
	}
	if cfg.Defaults.Topic != "Go generics" || cfg.Defaults.TargetAudience != "Developers" || cfg.Defaults.WordCount != 1200 {
		t.Errorf("defaults = %+v", cfg.Defaults)
	}
	if cfg.Defaults.Tone != "Professional" {
		t.Errorf("tone default = %s", cfg.Defaults.Tone)
	}
	if cfg.Output.Dir != "out" || !cfg.Output.HTMLPreview {
		t.Errorf("output = %+v", cfg.Output)
	}
}

func TestLoad_ZeroGenerationLimitsAreUnset(t *testing.T) {
	clearProviderEnv(t)
	path := writeConfig(t, `
providers:
  local:
    enabled: true
    endpoint: http://localhost:1234
    model: llama3
generation:
  temperature: 0
  max_output_tokens: 0
  top_p: 0
  top_k: 0
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Generation.MaxOutputTokens != nil {
		t.Errorf("max_output_tokens = %d, want unset", *cfg.Generation.MaxOutputTokens)
	}
	if cfg.Generation.TopK != nil {
		t.Errorf("top_k = %d, want unset", *cfg.Generation.TopK)
	}
	if cfg.Generation.Temperature == nil || *cfg.Generation.Temperature != 0 {
		t.Errorf("temperature = %v, want explicit 0", cfg.Generation.Temperature)
	}
	if cfg.Generation.TopP == nil || *cfg.Generation.TopP != 0 {
		t.Errorf("top_p = %v, want explicit 0", cfg.Generation.TopP)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("GEMINI_API_KEY", "from-alias")
	t.Setenv("AZURE_OPENAI_ENDPOINT", "https://blog.openai.azure.com")
	t.Setenv("BLOGSMITH_PROVIDERS_OPENAI_API_KEY", "sk-prefixed")
	t.Setenv("OPENAI_API_KEY", "sk-alias")
	t.Setenv("BLOGSMITH_LOGGING_LEVEL", "debug")
	t.Setenv("BLOGSMITH_GENERATION_TOP_K", "32")

	cfg, err := Load(writeConfig(t, "server:\n  port: 9000\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Providers.Gemini.APIKey != "from-alias" {
		t.Errorf("gemini api_key = %q, want alias value", cfg.Providers.Gemini.APIKey)
	}
	if cfg.Providers.Azure.Endpoint != "https://blog.openai.azure.com" {
		t.Errorf("azure endpoint = %q", cfg.Providers.Azure.Endpoint)
	}
	if cfg.Providers.OpenAI.APIKey != "sk-prefixed" {
		t.Errorf("openai api_key = %q, want prefixed value to win", cfg.Providers.OpenAI.APIKey)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("logging.level = %s", cfg.Logging.Level)
	}
	if cfg.Generation.TopK == nil || *cfg.Generation.TopK != 32 {
		t.Errorf("top_k = %v", cfg.Generation.TopK)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
}

func TestLoad_UseLocalAlias(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("USE_LOCAL_LLM", "true")
	t.Setenv("LOCAL_LLM_ENDPOINT", "http://localhost:11434")
	t.Setenv("LOCAL_LLM_MODEL", "mistral")

	cfg, err := Load(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.Providers.Local.Enabled || cfg.Providers.Local.Model != "mistral" {
		t.Errorf("local = %+v", cfg.Providers.Local)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !IsConfigError(err) {
		t.Errorf("err = %v, want ConfigError", err)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	clearProviderEnv(t)
	path := writeConfig(t, `
server:
  port: 70000
generation:
  temperature: 3.5
logging:
  format: xml
`)

	_, err := Load(path)
	if !IsValidationError(err) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	ve := err.(*ValidationError)
	for _, field := range []string{"server.port", "generation.temperature", "logging.format"} {
		if !ve.HasError(field) {
			t.Errorf("missing validation error for %s in %v", field, ve.Errors)
		}
	}
}

func TestValidate(t *testing.T) {
	zero, negative := 0, -1
	tests := []struct {
		name    string
		mutate  func(*Configuration)
		wantErr string
	}{
		{"valid", func(c *Configuration) {}, ""},
		{"marker required", func(c *Configuration) { c.Pipeline.EditorNotesMarker = "" }, "pipeline.editor_notes_marker"},
		{"marker optional when not stripping", func(c *Configuration) {
			c.Pipeline.StripEditorNotes = false
			c.Pipeline.EditorNotesMarker = ""
		}, ""},
		{"empty tag keys", func(c *Configuration) { c.Pipeline.TagKeys = nil }, "pipeline.tag_keys"},
		{"zero max tokens", func(c *Configuration) { c.Generation.MaxOutputTokens = &zero }, ""},
		{"negative max tokens", func(c *Configuration) { c.Generation.MaxOutputTokens = &negative }, "generation.max_output_tokens"},
		{"negative top_k", func(c *Configuration) { c.Generation.TopK = &negative }, "generation.top_k"},
		{"bad level", func(c *Configuration) { c.Logging.Level = "trace" }, "logging.level"},
		{"no output dir", func(c *Configuration) { c.Output.Dir = "" }, "output.dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			ve, ok := err.(*ValidationError)
			if !ok {
				t.Fatalf("err = %v, want *ValidationError", err)
			}
			if !ve.HasError(tt.wantErr) {
				t.Errorf("errors %v do not mention %s", ve.Errors, tt.wantErr)
			}
		})
	}
}

func TestConfigurationError_Messages(t *testing.T) {
	tests := []struct {
		name string
		err  *ConfigurationError
		want string
	}{
		{
			name: "missing fields",
			err:  &ConfigurationError{Provider: "local", Missing: []string{"endpoint", "model name"}},
			want: "provider local is selected but missing required settings: endpoint, model name",
		},
		{
			name: "nothing configured",
			err:  &ConfigurationError{Checked: []string{"local", "gemini"}},
			want: "no LLM provider configured; checked: local; gemini",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func validConfig() *Configuration {
	return &Configuration{
		Pipeline: PipelineConfig{
			StripEditorNotes:  true,
			EditorNotesMarker: "## Editor Notes",
			TagKeys:           []string{"tags"},
		},
		Output:  OutputConfig{Dir: "_posts"},
		Server:  ServerConfig{Port: 8080},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}
