package adapter

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultOpenAIModel is the fixed model of the last-resort fallback adapter.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIAdapter is the minimal fallback: the public OpenAI API with a fixed model.
type OpenAIAdapter struct {
	sdkChat
}

// NewOpenAIAdapter creates an OpenAIAdapter. Extra request options are applied
// after the defaults.
func NewOpenAIAdapter(apiKey string, timeout time.Duration, logger *slog.Logger, extra ...option.RequestOption) (*OpenAIAdapter, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("openai: api key is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	opts := baseSDKOptions(timeout)
	opts = append(opts, option.WithAPIKey(apiKey))
	opts = append(opts, extra...)

	return &OpenAIAdapter{
		sdkChat: sdkChat{
			name:   "openai",
			model:  DefaultOpenAIModel,
			client: openai.NewClient(opts...),
			logger: logger,
		},
	}, nil
}

// Name returns the provider identifier.
func (o *OpenAIAdapter) Name() string {
	return o.name
}

// Model returns the fixed model id.
func (o *OpenAIAdapter) Model() string {
	return o.model
}

// Complete performs one chat completion.
func (o *OpenAIAdapter) Complete(ctx context.Context, messages []ChatMessage, opts *GenerationOptions) (CompletionResult, error) {
	return o.complete(ctx, messages, opts)
}

// Stream replays Complete as a single update.
func (o *OpenAIAdapter) Stream(ctx context.Context, messages []ChatMessage, opts *GenerationOptions) (<-chan StreamUpdate, error) {
	return streamOnce(ctx, o.Complete, messages, opts)
}
