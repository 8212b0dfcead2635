// Package security keeps provider credentials out of log output.
package security

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strings"
)

// RedactedPlaceholder replaces every secret in log output.
const RedactedPlaceholder = "[REDACTED]"

// minSecretLen is the shortest configured secret replaced literally. Shorter
// values would match ordinary words.
const minSecretLen = 8

// sensitivePatterns match credential formats of the supported providers.
var sensitivePatterns = []*regexp.Regexp{
	// OpenAI keys: sk-..., sk-proj-...
	regexp.MustCompile(`sk-[a-zA-Z0-9_-]{20,}`),
	// Google AI (Gemini) keys: AIza...
	regexp.MustCompile(`AIza[a-zA-Z0-9_-]{30,}`),
	// Bearer tokens in header dumps
	regexp.MustCompile(`(Bearer\s+)[a-zA-Z0-9._~+/=-]{16,}`),
	// Header style credentials: api-key: ..., x-goog-api-key: ...
	regexp.MustCompile(`(?i)((?:x-goog-)?api-key["']?\s*[:=]\s*["']?)[^\s"',}]+`),
	// API keys in query params: key=...
	regexp.MustCompile(`([?&]key=)[a-zA-Z0-9_-]{16,}`),
}

// Redact scans a string for credential patterns and replaces them.
func Redact(s string) string {
	result := s
	for _, pattern := range sensitivePatterns {
		if pattern.NumSubexp() > 0 {
			result = pattern.ReplaceAllString(result, "${1}"+RedactedPlaceholder)
			continue
		}
		result = pattern.ReplaceAllString(result, RedactedPlaceholder)
	}
	return result
}

// RedactedHandler wraps an slog.Handler and redacts sensitive data from log
// records: known credential formats, attributes with credential-like keys,
// and any configured secret value verbatim.
type RedactedHandler struct {
	inner   slog.Handler
	secrets []string
}

// NewRedactedHandler wraps inner. secrets are literal values (the configured
// API keys) that must never appear in output; empty and short ones are ignored.
func NewRedactedHandler(inner slog.Handler, secrets ...string) *RedactedHandler {
	kept := make([]string, 0, len(secrets))
	for _, s := range secrets {
		if s = strings.TrimSpace(s); len(s) >= minSecretLen {
			kept = append(kept, s)
		}
	}
	// Longest first so a secret containing another is replaced whole.
	sort.Slice(kept, func(i, j int) bool { return len(kept[i]) > len(kept[j]) })
	return &RedactedHandler{inner: inner, secrets: kept}
}

// Enabled reports whether the handler handles records at the given level.
func (h *RedactedHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle processes a log record, redacting sensitive data.
func (h *RedactedHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, h.redact(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.redactAttr(a))
		return true
	})
	return h.inner.Handle(ctx, out)
}

// WithAttrs returns a new handler with the given attributes added.
func (h *RedactedHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = h.redactAttr(a)
	}
	return &RedactedHandler{inner: h.inner.WithAttrs(redacted), secrets: h.secrets}
}

// WithGroup returns a new handler with the given group name.
func (h *RedactedHandler) WithGroup(name string) slog.Handler {
	return &RedactedHandler{inner: h.inner.WithGroup(name), secrets: h.secrets}
}

func (h *RedactedHandler) redact(s string) string {
	for _, secret := range h.secrets {
		s = strings.ReplaceAll(s, secret, RedactedPlaceholder)
	}
	return Redact(s)
}

// redactAttr redacts sensitive data from a single attribute, descending into groups.
func (h *RedactedHandler) redactAttr(a slog.Attr) slog.Attr {
	if isSensitiveKey(strings.ToLower(a.Key)) {
		return slog.String(a.Key, RedactedPlaceholder)
	}

	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return slog.String(a.Key, h.redact(v.String()))
	case slog.KindGroup:
		group := v.Group()
		redacted := make([]any, len(group))
		for i, ga := range group {
			redacted[i] = h.redactAttr(ga)
		}
		return slog.Group(a.Key, redacted...)
	case slog.KindAny:
		switch val := v.Any().(type) {
		case []string:
			redacted := make([]string, len(val))
			for i, s := range val {
				redacted[i] = h.redact(s)
			}
			return slog.Any(a.Key, redacted)
		case error:
			return slog.String(a.Key, h.redact(val.Error()))
		}
	}

	return slog.Attr{Key: a.Key, Value: v}
}

// sensitiveKeyParts mark an attribute key as holding a credential.
var sensitiveKeyParts = []string{
	"authorization",
	"api_key",
	"apikey",
	"api-key",
	"secret",
	"password",
	"bearer",
	"credential",
}

// isSensitiveKey checks if an attribute key is known to contain sensitive
// data. Token counters such as total_tokens are not credentials.
func isSensitiveKey(key string) bool {
	if key == "token" || strings.HasSuffix(key, "_token") || strings.HasSuffix(key, "-token") {
		return true
	}
	for _, k := range sensitiveKeyParts {
		if strings.Contains(key, k) {
			return true
		}
	}
	return false
}
