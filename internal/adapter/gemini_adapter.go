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

const (
	// DefaultGeminiBaseURL is the default Gemini API endpoint.
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// DefaultGeminiModel is used when no model is configured.
	DefaultGeminiModel = "gemini-1.5-flash"

	// DefaultTimeout is the default HTTP client timeout for cloud providers.
	DefaultTimeout = 60 * time.Second

	geminiAPIKeyHeader = "x-goog-api-key"
	maxErrorBody       = 4096
	maxResponseBody    = 8 << 20
)

// GeminiAdapter implements ChatProvider for the Google Gemini generateContent API.
// The request tree is built by hand from the message list.
type GeminiAdapter struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// GeminiAdapterOption is a functional option for configuring GeminiAdapter.
type GeminiAdapterOption func(*GeminiAdapter)

// WithBaseURL sets a custom base URL for the Gemini API.
func WithBaseURL(url string) GeminiAdapterOption {
	return func(g *GeminiAdapter) {
		if url != "" {
			g.baseURL = strings.TrimSuffix(url, "/")
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) GeminiAdapterOption {
	return func(g *GeminiAdapter) {
		g.httpClient = client
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) GeminiAdapterOption {
	return func(g *GeminiAdapter) {
		if timeout > 0 {
			g.httpClient.Timeout = timeout
		}
	}
}

// WithGeminiLogger sets a custom logger.
func WithGeminiLogger(logger *slog.Logger) GeminiAdapterOption {
	return func(g *GeminiAdapter) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGeminiAdapter creates a new GeminiAdapter with the given API key and model.
// An empty model selects DefaultGeminiModel.
func NewGeminiAdapter(apiKey, model string, opts ...GeminiAdapterOption) *GeminiAdapter {
	model = strings.TrimPrefix(strings.TrimSpace(model), "models/")
	if model == "" {
		model = DefaultGeminiModel
	}

	g := &GeminiAdapter{
		apiKey:  apiKey,
		model:   model,
		baseURL: DefaultGeminiBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Name returns the provider identifier.
func (g *GeminiAdapter) Name() string {
	return "gemini"
}

// Model returns the configured model id.
func (g *GeminiAdapter) Model() string {
	return g.model
}

// Complete performs one generateContent call.
func (g *GeminiAdapter) Complete(ctx context.Context, messages []ChatMessage, opts *GenerationOptions) (CompletionResult, error) {
	if err := checkMessages(messages); err != nil {
		return CompletionResult{}, err
	}

	body, err := json.Marshal(g.mapToGeminiRequest(messages, opts))
	if err != nil {
		return CompletionResult{}, fmt.Errorf("failed to marshal gemini request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, g.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return CompletionResult{}, fmt.Errorf("failed to create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(geminiAPIKeyHeader, g.apiKey)

	g.logger.Debug("gemini request",
		slog.String("model", g.model),
		slog.Int("messages", len(messages)),
	)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return CompletionResult{}, &TransportError{Provider: g.Name(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var geminiErr GeminiErrorResponse
		if err := json.Unmarshal(errBody, &geminiErr); err == nil && geminiErr.Error.Message != "" {
			return CompletionResult{}, &TransportError{
				Provider:   g.Name(),
				StatusCode: resp.StatusCode,
				Err:        errors.New(geminiErr.Error.Message),
			}
		}
		return CompletionResult{}, &TransportError{
			Provider:   g.Name(),
			StatusCode: resp.StatusCode,
			Err:        errors.New(strings.TrimSpace(string(errBody))),
		}
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return CompletionResult{}, &TransportError{Provider: g.Name(), StatusCode: resp.StatusCode, Err: err}
	}

	var geminiResp GeminiResponse
	if err := json.Unmarshal(respBody, &geminiResp); err != nil {
		return CompletionResult{}, &MalformedResponseError{Provider: g.Name(), Reason: "decode body", Err: err}
	}

	return g.mapFromGeminiResponse(geminiResp)
}

// Stream replays Complete as a single update; Gemini streaming is not used.
func (g *GeminiAdapter) Stream(ctx context.Context, messages []ChatMessage, opts *GenerationOptions) (<-chan StreamUpdate, error) {
	return streamOnce(ctx, g.Complete, messages, opts)
}

// mapToGeminiRequest converts the message list to the contents/parts tree.
// Every system message is folded into a single systemInstruction.
func (g *GeminiAdapter) mapToGeminiRequest(messages []ChatMessage, opts *GenerationOptions) GeminiRequest {
	geminiReq := GeminiRequest{
		Contents: make([]GeminiContent, 0, len(messages)),
	}

	var system []string
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			if text := msg.Content(); text != "" {
				system = append(system, text)
			}
		case RoleAssistant:
			geminiReq.Contents = append(geminiReq.Contents, GeminiContent{
				Role:  "model",
				Parts: toGeminiParts(msg),
			})
		default:
			geminiReq.Contents = append(geminiReq.Contents, GeminiContent{
				Role:  "user",
				Parts: toGeminiParts(msg),
			})
		}
	}

	if len(system) > 0 {
		geminiReq.SystemInstruction = &GeminiContent{
			Parts: []GeminiPart{{Text: strings.Join(system, "\n\n")}},
		}
	}

	if opts != nil {
		cfg := &GeminiGenerationConfig{
			Temperature:     opts.Temperature,
			TopP:            opts.TopP,
			TopK:            opts.TopK,
			MaxOutputTokens: opts.MaxOutputTokens,
		}
		if cfg.Temperature != nil || cfg.TopP != nil || cfg.TopK != nil || cfg.MaxOutputTokens != nil {
			geminiReq.GenerationConfig = cfg
		}
	}

	return geminiReq
}

func toGeminiParts(msg ChatMessage) []GeminiPart {
	parts := make([]GeminiPart, 0, len(msg.Parts)+1)
	if msg.Text != "" || len(msg.Parts) == 0 {
		parts = append(parts, GeminiPart{Text: msg.Text})
	}
	for _, p := range msg.Parts {
		parts = append(parts, GeminiPart{Text: p})
	}
	return parts
}

// mapFromGeminiResponse takes the first candidate's first part. A missing
// level anywhere in that path is a malformed response.
func (g *GeminiAdapter) mapFromGeminiResponse(resp GeminiResponse) (CompletionResult, error) {
	if len(resp.Candidates) == 0 {
		reason := "no candidates"
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			reason = "prompt blocked: " + resp.PromptFeedback.BlockReason
		}
		return CompletionResult{}, &MalformedResponseError{Provider: g.Name(), Reason: reason}
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return CompletionResult{}, &MalformedResponseError{Provider: g.Name(), Reason: "candidate has no content parts"}
	}

	model := resp.ModelVersion
	if model == "" {
		model = g.model
	}

	result := CompletionResult{
		AssistantText: candidate.Content.Parts[0].Text,
		ModelID:       model,
		FinishReason:  g.mapFinishReason(candidate.FinishReason),
	}

	if resp.UsageMetadata != nil {
		result.Usage = &Usage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.TotalTokenCount,
		}
	}

	return result, nil
}

// mapFinishReason converts Gemini finish reasons to the shared enum.
func (g *GeminiAdapter) mapFinishReason(reason string) FinishReason {
	switch reason {
	case "STOP":
		return FinishStop
	case "MAX_TOKENS":
		return FinishLength
	case "SAFETY", "RECITATION", "BLOCKLIST", "PROHIBITED_CONTENT", "SPII":
		return FinishContentFilter
	case "MALFORMED_FUNCTION_CALL":
		return FinishToolCalls
	default:
		return FinishUnknown
	}
}

// ============================================================================
// Gemini API Types
// ============================================================================

// GeminiRequest represents a Gemini generateContent request.
type GeminiRequest struct {
	Contents          []GeminiContent         `json:"contents"`
	SystemInstruction *GeminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *GeminiGenerationConfig `json:"generationConfig,omitempty"`
}

// GeminiContent represents a content block in Gemini format.
type GeminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []GeminiPart `json:"parts"`
}

// GeminiPart represents a part of a content block.
type GeminiPart struct {
	Text string `json:"text"`
}

// GeminiGenerationConfig contains generation parameters using Gemini's names.
type GeminiGenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	TopP            *float64 `json:"topP,omitempty"`
	TopK            *int     `json:"topK,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
}

// GeminiResponse represents a Gemini generateContent response.
type GeminiResponse struct {
	Candidates     []GeminiCandidate     `json:"candidates"`
	UsageMetadata  *GeminiUsageMetadata  `json:"usageMetadata,omitempty"`
	PromptFeedback *GeminiPromptFeedback `json:"promptFeedback,omitempty"`
	ModelVersion   string                `json:"modelVersion,omitempty"`
}

// GeminiCandidate represents a single generated candidate.
type GeminiCandidate struct {
	Content      *GeminiContent `json:"content"`
	FinishReason string         `json:"finishReason"`
	Index        int            `json:"index"`
}

// GeminiPromptFeedback is set when the prompt itself was blocked.
type GeminiPromptFeedback struct {
	BlockReason string `json:"blockReason"`
}

// GeminiUsageMetadata contains token usage information.
type GeminiUsageMetadata struct {
	PromptTokenCount     *int `json:"promptTokenCount"`
	CandidatesTokenCount *int `json:"candidatesTokenCount"`
	TotalTokenCount      *int `json:"totalTokenCount"`
}

// GeminiErrorResponse represents an error response from Gemini API.
type GeminiErrorResponse struct {
	Error GeminiErrorDetail `json:"error"`
}

// GeminiErrorDetail contains error details.
type GeminiErrorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}
