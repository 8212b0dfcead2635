package adapter

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/hpn/hpn-blog-pipeline/internal/config"
	"github.com/hpn/hpn-blog-pipeline/internal/domain"
)

// selectionKeys names the setting that selects each provider.
var selectionKeys = map[domain.ProviderType]string{
	domain.ProviderLocal:  "providers.local.enabled",
	domain.ProviderGemini: "providers.gemini.api_key",
	domain.ProviderAzure:  "providers.azure.endpoint",
	domain.ProviderOpenAI: "providers.openai.api_key",
}

// checkedProviders describes what SelectProvider looks at, in order.
func checkedProviders() []string {
	checked := make([]string, 0, len(domain.SelectionOrder))
	for _, p := range domain.SelectionOrder {
		checked = append(checked, fmt.Sprintf("%s (%s)", p, selectionKeys[p]))
	}
	return checked
}

// SelectProvider resolves exactly one ChatProvider from configuration. The
// first match wins: local flag, Gemini key, Azure endpoint, OpenAI key.
// Every failure is a *config.ConfigurationError and must stop the process
// before any stage runs.
func SelectProvider(cfg config.ProvidersConfig, logger *slog.Logger) (ChatProvider, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch {
	case cfg.Local.Enabled:
		var missing []string
		if strings.TrimSpace(cfg.Local.Endpoint) == "" {
			missing = append(missing, "endpoint")
		}
		if strings.TrimSpace(cfg.Local.Model) == "" {
			missing = append(missing, "model name")
		}
		if len(missing) > 0 {
			return nil, &config.ConfigurationError{Provider: domain.ProviderLocal.String(), Missing: missing}
		}
		p := NewLocalAdapter(cfg.Local.Endpoint, cfg.Local.Model,
			WithLocalAPIKey(cfg.Local.APIKey),
			WithLocalTimeout(config.Seconds(cfg.Local.TimeoutSeconds)),
			WithLocalLogger(logger),
		)
		logSelected(logger, domain.ProviderLocal, p.Model(), slog.Duration("timeout", p.Timeout()))
		return p, nil

	case strings.TrimSpace(cfg.Gemini.APIKey) != "":
		p := NewGeminiAdapter(strings.TrimSpace(cfg.Gemini.APIKey), cfg.Gemini.Model,
			WithBaseURL(cfg.Gemini.BaseURL),
			WithTimeout(config.Seconds(cfg.Gemini.TimeoutSeconds)),
			WithGeminiLogger(logger),
		)
		logSelected(logger, domain.ProviderGemini, p.Model())
		return p, nil

	case strings.TrimSpace(cfg.Azure.Endpoint) != "":
		if strings.TrimSpace(cfg.Azure.Deployment) == "" {
			return nil, &config.ConfigurationError{Provider: domain.ProviderAzure.String(), Missing: []string{"deployment"}}
		}
		p, err := NewAzureAdapter(AzureSettings{
			Endpoint:   cfg.Azure.Endpoint,
			Deployment: cfg.Azure.Deployment,
			APIKey:     cfg.Azure.APIKey,
			APIVersion: cfg.Azure.APIVersion,
			Timeout:    config.Seconds(cfg.Azure.TimeoutSeconds),
			Logger:     logger,
		})
		if err != nil {
			return nil, &config.ConfigurationError{Provider: domain.ProviderAzure.String(), Err: err}
		}
		logSelected(logger, domain.ProviderAzure, p.Model(), slog.String("auth", string(p.AuthMode())))
		return p, nil

	case strings.TrimSpace(cfg.OpenAI.APIKey) != "":
		p, err := NewOpenAIAdapter(cfg.OpenAI.APIKey, config.Seconds(cfg.OpenAI.TimeoutSeconds), logger)
		if err != nil {
			return nil, &config.ConfigurationError{Provider: domain.ProviderOpenAI.String(), Err: err}
		}
		logSelected(logger, domain.ProviderOpenAI, p.Model())
		return p, nil
	}

	return nil, &config.ConfigurationError{Checked: checkedProviders()}
}

func logSelected(logger *slog.Logger, provider domain.ProviderType, model string, extra ...any) {
	args := append([]any{
		slog.String("provider", provider.String()),
		slog.String("model", model),
	}, extra...)
	logger.Info("llm provider selected", args...)
}
