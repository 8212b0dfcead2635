package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"
)

// DefaultAzureAPIVersion is the Azure OpenAI REST API version used when none is configured.
const DefaultAzureAPIVersion = "2024-06-01"

// AuthMode is how an adapter authenticates, fixed at construction.
type AuthMode string

const (
	AuthAPIKey  AuthMode = "api-key"
	AuthAmbient AuthMode = "default-credential"
)

// AzureSettings configures an AzureAdapter.
type AzureSettings struct {
	Endpoint   string
	Deployment string
	APIKey     string
	APIVersion string
	Timeout    time.Duration
	Logger     *slog.Logger

	// Extra request options, applied last. Used by tests to swap the transport.
	RequestOptions []option.RequestOption
}

// AzureAdapter implements ChatProvider for Azure OpenAI through the native SDK.
// The deployment name is the model id.
type AzureAdapter struct {
	sdkChat
	authMode AuthMode
}

// NewAzureAdapter creates an AzureAdapter. With an API key it uses key auth,
// otherwise the default Azure credential chain (env, managed identity, CLI).
func NewAzureAdapter(s AzureSettings) (*AzureAdapter, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(s.Endpoint), "/")
	if endpoint == "" {
		return nil, errors.New("azure: endpoint is required")
	}
	if strings.TrimSpace(s.Deployment) == "" {
		return nil, errors.New("azure: deployment is required")
	}
	apiVersion := s.APIVersion
	if apiVersion == "" {
		apiVersion = DefaultAzureAPIVersion
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := baseSDKOptions(s.Timeout)
	opts = append(opts, azure.WithEndpoint(endpoint, apiVersion))

	mode := AuthAPIKey
	if key := strings.TrimSpace(s.APIKey); key != "" {
		opts = append(opts, azure.WithAPIKey(key))
	} else {
		cred, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("azure: default credential: %w", err)
		}
		opts = append(opts, azure.WithTokenCredential(cred))
		mode = AuthAmbient
	}
	opts = append(opts, s.RequestOptions...)

	return &AzureAdapter{
		sdkChat: sdkChat{
			name:   "azure",
			model:  strings.TrimSpace(s.Deployment),
			client: openai.NewClient(opts...),
			logger: logger,
		},
		authMode: mode,
	}, nil
}

// Name returns the provider identifier.
func (a *AzureAdapter) Name() string {
	return a.name
}

// Model returns the deployment name.
func (a *AzureAdapter) Model() string {
	return a.model
}

// AuthMode returns the authentication mode chosen at construction.
func (a *AzureAdapter) AuthMode() AuthMode {
	return a.authMode
}

// Complete performs one chat completion.
func (a *AzureAdapter) Complete(ctx context.Context, messages []ChatMessage, opts *GenerationOptions) (CompletionResult, error) {
	return a.complete(ctx, messages, opts)
}

// Stream replays Complete as a single update.
func (a *AzureAdapter) Stream(ctx context.Context, messages []ChatMessage, opts *GenerationOptions) (<-chan StreamUpdate, error) {
	return streamOnce(ctx, a.Complete, messages, opts)
}
