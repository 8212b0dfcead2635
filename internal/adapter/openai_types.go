package adapter

import (
	"encoding/json"
	"strings"
)

// OpenAI-compatible wire types spoken by local inference servers
// (LM Studio, Ollama, llama.cpp, vLLM). Field names are snake_case.

// ChatCompletionRequest represents an OpenAI-style chat completion request.
type ChatCompletionRequest struct {
	// Model specifies which loaded model to use.
	Model string `json:"model"`

	// Messages contains the conversation, one string per message.
	Messages []ChatCompletionMessage `json:"messages"`

	// Temperature controls randomness (0.0-2.0). Optional.
	Temperature *float64 `json:"temperature,omitempty"`

	// MaxTokens limits the response length. Optional.
	MaxTokens *int `json:"max_tokens,omitempty"`

	// TopP is nucleus sampling parameter. Optional.
	TopP *float64 `json:"top_p,omitempty"`

	// TopK is honoured by most local servers even though OpenAI lacks it. Optional.
	TopK *int `json:"top_k,omitempty"`

	// Stream must stay false; responses are read whole.
	Stream bool `json:"stream"`
}

// ChatCompletionMessage is a request message. Content is always a flat string.
type ChatCompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionResponse represents an OpenAI-style chat completion response.
type ChatCompletionResponse struct {
	ID      string                 `json:"id"`
	Object  string                 `json:"object"`
	Created int64                  `json:"created"`
	Model   string                 `json:"model"`
	Choices []ChatCompletionChoice `json:"choices"`
	Usage   *ChatCompletionUsage   `json:"usage,omitempty"`
}

// ChatCompletionChoice represents a single completion choice.
type ChatCompletionChoice struct {
	Index int `json:"index"`

	// Message may be absent on some servers' error paths.
	Message *ChatCompletionResponseMessage `json:"message"`

	// FinishReason is "stop", "length", "content_filter", "tool_calls" or null.
	FinishReason *string `json:"finish_reason"`
}

// ChatCompletionResponseMessage holds content as raw JSON because servers
// return either a string, null, or an array of {type,text} parts.
type ChatCompletionResponseMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// Text flattens the content into one string.
func (m *ChatCompletionResponseMessage) Text() (string, error) {
	raw := strings.TrimSpace(string(m.Content))
	if raw == "" || raw == "null" {
		return "", nil
	}

	var s string
	if err := json.Unmarshal(m.Content, &s); err == nil {
		return s, nil
	}

	var parts []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(m.Content, &parts); err != nil {
		return "", err
	}
	var b strings.Builder
	for _, p := range parts {
		if p.Text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(p.Text)
	}
	return b.String(), nil
}

// ChatCompletionUsage contains token usage statistics. Fields stay nil when omitted.
type ChatCompletionUsage struct {
	PromptTokens     *int `json:"prompt_tokens"`
	CompletionTokens *int `json:"completion_tokens"`
	TotalTokens      *int `json:"total_tokens"`
}

// ChatCompletionError represents an error response from OpenAI-compatible APIs.
type ChatCompletionError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}
