package domain

import (
	"strings"
)

// Request defaults applied when a source leaves a field empty.
const (
	DefaultAudience  = "General"
	DefaultWordCount = 800
	DefaultTone      = "Professional"
)

// BlogRequest describes the post to generate. It is built once by a request
// source and treated as read-only afterwards.
type BlogRequest struct {
	Topic          string `json:"topic" yaml:"topic" mapstructure:"topic"`
	Description    string `json:"description" yaml:"description" mapstructure:"description"`
	TargetAudience string `json:"targetAudience" yaml:"audience" mapstructure:"audience"`
	WordCount      int    `json:"wordCount" yaml:"word_count" mapstructure:"word_count"`
	Tone           string `json:"tone" yaml:"tone" mapstructure:"tone"`
	Author         string `json:"author,omitempty" yaml:"author" mapstructure:"author"`
}

// WithDefaults returns a copy with empty optional fields filled in.
func (r BlogRequest) WithDefaults() BlogRequest {
	r.Topic = strings.TrimSpace(r.Topic)
	r.Description = strings.TrimSpace(r.Description)
	if strings.TrimSpace(r.TargetAudience) == "" {
		r.TargetAudience = DefaultAudience
	}
	if r.WordCount == 0 {
		r.WordCount = DefaultWordCount
	}
	if strings.TrimSpace(r.Tone) == "" {
		r.Tone = DefaultTone
	}
	r.Author = strings.TrimSpace(r.Author)
	return r
}

// Validate checks the request after defaults have been applied.
func (r BlogRequest) Validate() error {
	var problems []string
	if strings.TrimSpace(r.Topic) == "" {
		problems = append(problems, "topic is required")
	}
	if r.WordCount <= 0 {
		problems = append(problems, "word count must be positive")
	}
	if len(problems) > 0 {
		return &ValidationError{Errors: problems}
	}
	return nil
}

// BlogResult is the finished post handed to an output sink.
type BlogResult struct {
	Title           string   `json:"title"`
	Content         string   `json:"content"`
	Tags            []string `json:"tags"`
	MetaDescription string   `json:"metaDescription"`
	Summary         string   `json:"summary"`
}
