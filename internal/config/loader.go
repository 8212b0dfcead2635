// Package config provides configuration management.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	defaultConfigName = "blogsmith"
	defaultConfigType = "yaml"
	envPrefix         = "BLOGSMITH"
)

// providerEnvAliases binds the conventional variable names of each provider
// alongside the prefixed ones. The prefixed name wins when both are set.
var providerEnvAliases = map[string][]string{
	"providers.local.enabled":    {"USE_LOCAL_LLM"},
	"providers.local.endpoint":   {"LOCAL_LLM_ENDPOINT"},
	"providers.local.model":      {"LOCAL_LLM_MODEL"},
	"providers.local.api_key":    {"LOCAL_LLM_API_KEY"},
	"providers.gemini.api_key":   {"GEMINI_API_KEY"},
	"providers.gemini.model":     {"GEMINI_MODEL"},
	"providers.azure.endpoint":   {"AZURE_OPENAI_ENDPOINT"},
	"providers.azure.deployment": {"AZURE_OPENAI_DEPLOYMENT"},
	"providers.azure.api_key":    {"AZURE_OPENAI_API_KEY"},
	"providers.openai.api_key":   {"OPENAI_API_KEY"},
}

// optionalKeys have no default but must still be visible to env overrides.
var optionalKeys = []string{
	"generation.temperature",
	"generation.max_output_tokens",
	"generation.top_p",
	"generation.top_k",
}

// Load reads configuration from, lowest to highest priority: defaults,
// blogsmith.yaml (or configPath), and environment variables prefixed BLOGSMITH_.
// A missing config file is not an error.
func Load(configPath string) (*Configuration, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName(defaultConfigName)
	v.SetConfigType(defaultConfigType)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.blogsmith")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := bindEnv(v); err != nil {
		return nil, &ConfigError{Op: "bind_env", Err: err}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configPath != "" {
			return nil, &ConfigError{
				Op:  "read",
				Err: fmt.Errorf("failed to read config file: %w", err),
			}
		}
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ConfigError{
			Op:  "unmarshal",
			Err: fmt.Errorf("failed to unmarshal config: %w", err),
		}
	}

	cfg.Generation = cfg.Generation.Unset()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func bindEnv(v *viper.Viper) error {
	for key, aliases := range providerEnvAliases {
		names := append([]string{key, envName(key)}, aliases...)
		if err := v.BindEnv(names...); err != nil {
			return err
		}
	}
	for _, key := range optionalKeys {
		if err := v.BindEnv(key); err != nil {
			return err
		}
	}
	return nil
}

func envName(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Provider defaults
	v.SetDefault("providers.local.enabled", false)
	v.SetDefault("providers.local.endpoint", "")
	v.SetDefault("providers.local.model", "")
	v.SetDefault("providers.local.api_key", "")
	v.SetDefault("providers.local.timeout_seconds", 600)
	v.SetDefault("providers.gemini.api_key", "")
	v.SetDefault("providers.gemini.model", "gemini-1.5-flash")
	v.SetDefault("providers.gemini.base_url", "")
	v.SetDefault("providers.gemini.timeout_seconds", 60)
	v.SetDefault("providers.azure.endpoint", "")
	v.SetDefault("providers.azure.deployment", "")
	v.SetDefault("providers.azure.api_key", "")
	v.SetDefault("providers.azure.api_version", "2024-06-01")
	v.SetDefault("providers.azure.timeout_seconds", 60)
	v.SetDefault("providers.openai.api_key", "")
	v.SetDefault("providers.openai.timeout_seconds", 60)

	// Pipeline defaults
	v.SetDefault("pipeline.strip_editor_notes", true)
	v.SetDefault("pipeline.editor_notes_marker", "## Editor Notes")
	v.SetDefault("pipeline.tag_keys", []string{"tags", "primaryKeywords", "keywords"})
	v.SetDefault("pipeline.synthesize_summary", true)
	v.SetDefault("pipeline.fallback_title", "Untitled Post")

	// Request defaults
	v.SetDefault("defaults.topic", "")
	v.SetDefault("defaults.description", "")
	v.SetDefault("defaults.audience", "General")
	v.SetDefault("defaults.word_count", 800)
	v.SetDefault("defaults.tone", "Professional")
	v.SetDefault("defaults.author", "")

	// Output defaults
	v.SetDefault("output.dir", "_posts")
	v.SetDefault("output.layout", "post")
	v.SetDefault("output.image", "/assets/images/placeholder.jpg")
	v.SetDefault("output.draft", true)
	v.SetDefault("output.seo_sidecar", "seo-output.json")
	v.SetDefault("output.html_preview", false)

	// Server defaults
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout_seconds", 30)
	v.SetDefault("server.write_timeout_seconds", 3600)
	v.SetDefault("server.shutdown_timeout_seconds", 15)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}
