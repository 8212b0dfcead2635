package pipeline

import (
	"unicode"

	"github.com/hpn/hpn-blog-pipeline/internal/domain"
)

// TokensPerWord is the approximation ratio (1 word ≈ 1.3 tokens).
const TokensPerWord = 1.3

// UsageSummary aggregates token counts over a run. Only counts a provider
// reported are summed; stages without usage are listed and estimated apart.
type UsageSummary struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`

	// Unreported lists the stages whose provider returned no usage.
	Unreported []domain.StageName `json:"unreported,omitempty"`

	// EstimatedTokens is a word-based estimate for the unreported stages.
	EstimatedTokens int `json:"estimated_tokens,omitempty"`
}

// Complete reports whether every stage had usage.
func (u UsageSummary) Complete() bool {
	return len(u.Unreported) == 0
}

// EstimateTokens estimates the number of tokens in a text string.
// Uses a lightweight approximation: 1 word ≈ 1.3 tokens.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}

	wordCount := 0
	inWord := false

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			if !inWord {
				wordCount++
				inWord = true
			}
		} else {
			inWord = false
		}
	}

	tokens := int(float64(wordCount) * TokensPerWord)
	if tokens == 0 && wordCount > 0 {
		tokens = 1
	}

	return tokens
}

// summarizeUsage folds stage records. raw holds each stage's unstripped output
// so the estimate counts what the provider actually generated.
func summarizeUsage(records []domain.StageRecord, raw []string) UsageSummary {
	var u UsageSummary
	for i, rec := range records {
		if rec.PromptTokens == nil && rec.CompletionTokens == nil && rec.TotalTokens == nil {
			u.Unreported = append(u.Unreported, rec.Name)
			out := rec.OutputText
			if i < len(raw) {
				out = raw[i]
			}
			u.EstimatedTokens += EstimateTokens(rec.InputText) + EstimateTokens(out)
			continue
		}

		prompt, completion := deref(rec.PromptTokens), deref(rec.CompletionTokens)
		u.PromptTokens += prompt
		u.CompletionTokens += completion
		if rec.TotalTokens != nil {
			u.TotalTokens += *rec.TotalTokens
		} else {
			u.TotalTokens += prompt + completion
		}
	}
	return u
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
