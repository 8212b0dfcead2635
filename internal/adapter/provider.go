// Package adapter provides implementations for external AI provider integrations.
// It uses the Adapter pattern to abstract provider-specific APIs behind a common interface.
package adapter

import (
	"context"
	"strings"
)

// ChatProvider is the uniform chat-completion contract every backend satisfies.
// Implementations hold no per-call mutable state and perform exactly one
// outbound call per invocation. They never retry.
type ChatProvider interface {
	// Complete sends an ordered, non-empty message list and returns one assistant reply.
	Complete(ctx context.Context, messages []ChatMessage, opts *GenerationOptions) (CompletionResult, error)

	// Stream has the same contract as Complete but delivers the result over a
	// channel. Providers without native streaming emit a single terminal update.
	Stream(ctx context.Context, messages []ChatMessage, opts *GenerationOptions) (<-chan StreamUpdate, error)

	// Name returns the provider's identifier string.
	Name() string
}

// Role tags a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is a single role-tagged turn.
type ChatMessage struct {
	Role Role
	Text string

	// Parts holds extra text segments. Backends with structured content send
	// them as separate parts, the others flatten them into Text.
	Parts []string
}

// Content returns Text and Parts flattened into one string.
func (m ChatMessage) Content() string {
	if len(m.Parts) == 0 {
		return m.Text
	}
	segments := make([]string, 0, len(m.Parts)+1)
	if m.Text != "" {
		segments = append(segments, m.Text)
	}
	for _, p := range m.Parts {
		if p != "" {
			segments = append(segments, p)
		}
	}
	return strings.Join(segments, "\n")
}

// GenerationOptions are optional sampling controls. A nil field is left to the
// provider default. Options a provider does not support are silently dropped.
type GenerationOptions struct {
	// Temperature controls randomness (0.0-2.0).
	Temperature *float64

	// MaxOutputTokens caps the generated length.
	MaxOutputTokens *int

	// TopP is the nucleus sampling threshold.
	TopP *float64

	// TopK is the candidate pool size. Not every provider honours it.
	TopK *int
}

// FinishReason says why generation stopped.
type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishLength        FinishReason = "length"
	FinishContentFilter FinishReason = "content_filter"
	FinishToolCalls     FinishReason = "tool_calls"
	FinishUnknown       FinishReason = "unknown"
)

// Usage reports token counts. A nil field means the provider did not report it,
// which is different from zero.
type Usage struct {
	PromptTokens     *int
	CompletionTokens *int
	TotalTokens      *int
}

// CompletionResult is the outcome of one Complete call.
type CompletionResult struct {
	AssistantText string
	ModelID       string
	FinishReason  FinishReason
	Usage         *Usage
}

// StreamUpdate is one event on a Stream channel. The final update has Done set
// and carries the full Result.
type StreamUpdate struct {
	Delta  string
	Done   bool
	Result *CompletionResult
}

func intPtr(v int) *int {
	return &v
}
