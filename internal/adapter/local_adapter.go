package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// LocalMinTimeout is the floor for the local adapter's timeout. Local
// inference on consumer hardware routinely takes minutes per stage.
const LocalMinTimeout = 10 * time.Minute

// LocalAdapter implements ChatProvider against an OpenAI-compatible server on
// a user-specified endpoint.
type LocalAdapter struct {
	endpoint   string
	model      string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

// LocalAdapterOption is a functional option for configuring LocalAdapter.
type LocalAdapterOption func(*LocalAdapter)

// WithLocalAPIKey sends a Bearer token; most local servers ignore it.
func WithLocalAPIKey(key string) LocalAdapterOption {
	return func(l *LocalAdapter) {
		l.apiKey = strings.TrimSpace(key)
	}
}

// WithLocalTimeout sets the timeout, never below LocalMinTimeout.
func WithLocalTimeout(timeout time.Duration) LocalAdapterOption {
	return func(l *LocalAdapter) {
		l.timeout = timeout
	}
}

// WithLocalHTTPClient sets a custom HTTP client. Its Timeout is raised to
// LocalMinTimeout on a copy; client itself is never modified.
func WithLocalHTTPClient(client *http.Client) LocalAdapterOption {
	return func(l *LocalAdapter) {
		l.httpClient = client
	}
}

// WithLocalLogger sets a custom logger.
func WithLocalLogger(logger *slog.Logger) LocalAdapterOption {
	return func(l *LocalAdapter) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLocalAdapter creates a LocalAdapter for endpoint and model.
func NewLocalAdapter(endpoint, model string, opts ...LocalAdapterOption) *LocalAdapter {
	l := &LocalAdapter{
		endpoint: strings.TrimSpace(endpoint),
		model:    strings.TrimSpace(model),
		httpClient: &http.Client{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.applyTimeoutFloor()
	return l
}

// applyTimeoutFloor settles the client timeout once every option has run:
// an explicit WithLocalTimeout wins over the client's own, and neither may
// go below LocalMinTimeout.
func (l *LocalAdapter) applyTimeoutFloor() {
	if l.httpClient == nil {
		l.httpClient = &http.Client{}
	}
	timeout := l.timeout
	if timeout == 0 {
		timeout = l.httpClient.Timeout
	}
	if timeout < LocalMinTimeout {
		timeout = LocalMinTimeout
	}
	if l.httpClient.Timeout != timeout {
		client := *l.httpClient
		client.Timeout = timeout
		l.httpClient = &client
	}
}

// Name returns the provider identifier.
func (l *LocalAdapter) Name() string {
	return "local"
}

// Model returns the configured model id.
func (l *LocalAdapter) Model() string {
	return l.model
}

// Timeout returns the per-call timeout in effect.
func (l *LocalAdapter) Timeout() time.Duration {
	return l.httpClient.Timeout
}

func localChatURL(endpoint string) string {
	base := strings.TrimRight(endpoint, "/")
	base = strings.TrimSuffix(base, "/chat/completions")
	if strings.HasSuffix(base, "/v1") {
		return base + "/chat/completions"
	}
	return base + "/v1/chat/completions"
}

// Complete performs one /v1/chat/completions call.
func (l *LocalAdapter) Complete(ctx context.Context, messages []ChatMessage, opts *GenerationOptions) (CompletionResult, error) {
	if err := checkMessages(messages); err != nil {
		return CompletionResult{}, err
	}

	body, err := json.Marshal(l.mapToRequest(messages, opts))
	if err != nil {
		return CompletionResult{}, fmt.Errorf("failed to marshal local request: %w", err)
	}

	url := localChatURL(l.endpoint)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return CompletionResult{}, fmt.Errorf("failed to create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if l.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+l.apiKey)
	}

	l.logger.Debug("local request",
		slog.String("url", url),
		slog.String("model", l.model),
		slog.Duration("timeout", l.httpClient.Timeout),
	)

	resp, err := l.httpClient.Do(httpReq)
	if err != nil {
		return CompletionResult{}, &TransportError{Provider: l.Name(), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := strings.TrimSpace(string(errBody))
		var apiErr ChatCompletionError
		if err := json.Unmarshal(errBody, &apiErr); err == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		return CompletionResult{}, &TransportError{Provider: l.Name(), StatusCode: resp.StatusCode, Err: errors.New(msg)}
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return CompletionResult{}, &TransportError{Provider: l.Name(), StatusCode: resp.StatusCode, Err: err}
	}

	var payload ChatCompletionResponse
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return CompletionResult{}, &MalformedResponseError{Provider: l.Name(), Reason: "decode body", Err: err}
	}

	return l.mapFromResponse(payload)
}

// Stream replays Complete as a single update.
func (l *LocalAdapter) Stream(ctx context.Context, messages []ChatMessage, opts *GenerationOptions) (<-chan StreamUpdate, error) {
	return streamOnce(ctx, l.Complete, messages, opts)
}

func (l *LocalAdapter) mapToRequest(messages []ChatMessage, opts *GenerationOptions) ChatCompletionRequest {
	req := ChatCompletionRequest{
		Model:    l.model,
		Messages: make([]ChatCompletionMessage, 0, len(messages)),
	}
	for _, msg := range messages {
		role := msg.Role
		if role == "" {
			role = RoleUser
		}
		req.Messages = append(req.Messages, ChatCompletionMessage{
			Role:    string(role),
			Content: msg.Content(),
		})
	}
	if opts != nil {
		req.Temperature = opts.Temperature
		req.MaxTokens = opts.MaxOutputTokens
		req.TopP = opts.TopP
		req.TopK = opts.TopK
	}
	return req
}

func (l *LocalAdapter) mapFromResponse(payload ChatCompletionResponse) (CompletionResult, error) {
	if len(payload.Choices) == 0 {
		return CompletionResult{}, &MalformedResponseError{Provider: l.Name(), Reason: "no choices"}
	}
	choice := payload.Choices[0]
	if choice.Message == nil {
		return CompletionResult{}, &MalformedResponseError{Provider: l.Name(), Reason: "choice has no message"}
	}
	text, err := choice.Message.Text()
	if err != nil {
		return CompletionResult{}, &MalformedResponseError{Provider: l.Name(), Reason: "decode message content", Err: err}
	}

	model := payload.Model
	if model == "" {
		model = l.model
	}

	result := CompletionResult{
		AssistantText: text,
		ModelID:       model,
		FinishReason:  mapOpenAIFinishReason(choice.FinishReason),
	}
	if payload.Usage != nil {
		result.Usage = &Usage{
			PromptTokens:     payload.Usage.PromptTokens,
			CompletionTokens: payload.Usage.CompletionTokens,
			TotalTokens:      payload.Usage.TotalTokens,
		}
	}
	return result, nil
}

// mapOpenAIFinishReason maps OpenAI-style finish reasons; unrecognized values
// and null default to stop.
func mapOpenAIFinishReason(reason *string) FinishReason {
	if reason == nil {
		return FinishStop
	}
	switch strings.ToLower(*reason) {
	case "length":
		return FinishLength
	case "content_filter":
		return FinishContentFilter
	case "tool_calls", "function_call":
		return FinishToolCalls
	default:
		return FinishStop
	}
}
