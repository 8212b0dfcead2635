package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// sdkChat is the shared chat-completions call for adapters built on the
// official openai-go SDK. The SDK already speaks roles and sampling options,
// so translation is mostly pass-through.
type sdkChat struct {
	name   string
	model  string
	client openai.Client
	logger *slog.Logger
}

// baseSDKOptions disables SDK retries so each call is exactly one request.
func baseSDKOptions(timeout time.Duration) []option.RequestOption {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return []option.RequestOption{
		option.WithMaxRetries(0),
		option.WithRequestTimeout(timeout),
	}
}

func (s *sdkChat) complete(ctx context.Context, messages []ChatMessage, opts *GenerationOptions) (CompletionResult, error) {
	if err := checkMessages(messages); err != nil {
		return CompletionResult{}, err
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(s.model),
		Messages: toSDKMessages(messages),
	}
	if opts != nil {
		if opts.Temperature != nil {
			params.Temperature = openai.Float(*opts.Temperature)
		}
		if opts.MaxOutputTokens != nil {
			params.MaxTokens = openai.Int(int64(*opts.MaxOutputTokens))
		}
		if opts.TopP != nil {
			params.TopP = openai.Float(*opts.TopP)
		}
		// TopK has no chat-completions equivalent and is dropped.
	}

	s.logger.Debug("sdk request",
		slog.String("provider", s.name),
		slog.String("model", s.model),
		slog.Int("messages", len(messages)),
	)

	resp, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return CompletionResult{}, s.classify(err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return CompletionResult{}, &MalformedResponseError{Provider: s.name, Reason: "empty choices"}
	}

	choice := resp.Choices[0]
	model := resp.Model
	if model == "" {
		model = s.model
	}
	result := CompletionResult{
		AssistantText: choice.Message.Content,
		ModelID:       model,
		FinishReason:  mapOpenAIFinishReason(&choice.FinishReason),
	}
	if resp.JSON.Usage.Valid() {
		result.Usage = &Usage{
			PromptTokens:     intPtr(int(resp.Usage.PromptTokens)),
			CompletionTokens: intPtr(int(resp.Usage.CompletionTokens)),
			TotalTokens:      intPtr(int(resp.Usage.TotalTokens)),
		}
	}
	return result, nil
}

// classify turns SDK failures into the port's error taxonomy. Non-2xx answers
// and network failures are transport errors; a 2xx body the SDK cannot
// decode is malformed.
func (s *sdkChat) classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &TransportError{Provider: s.name, StatusCode: apiErr.StatusCode, Err: err}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &TransportError{Provider: s.name, Err: err}
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return &MalformedResponseError{Provider: s.name, Reason: "decode body", Err: err}
	}
	return &TransportError{Provider: s.name, Err: fmt.Errorf("request failed: %w", err)}
}

func toSDKMessages(messages []ChatMessage) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			msgs = append(msgs, openai.SystemMessage(m.Content()))
		case RoleAssistant:
			msgs = append(msgs, openai.ChatCompletionMessageParamOfAssistant(m.Content()))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content()))
		}
	}
	return msgs
}
