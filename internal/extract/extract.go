// Package extract turns the SEO stage's free-form reply into a BlogResult.
// Model output is never trusted to be well formed: every failure resolves to
// fallback values and nothing here returns an error.
package extract

import (
	"encoding/json"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/hpn/hpn-blog-pipeline/internal/domain"
)

// DefaultTitle is used when neither the SEO output nor the caller supplies a title.
const DefaultTitle = "Untitled Post"

// DefaultTagKeys is the default lookup order for the tag list.
var DefaultTagKeys = []string{"tags", "primaryKeywords", "keywords"}

const (
	summaryMinRunes = 50
	summaryMaxRunes = 200
)

// Outcome tells whether the SEO text parsed as a JSON object.
type Outcome int

const (
	// Parsed means fields were read from a JSON object.
	Parsed Outcome = iota
	// Fallback means the text held no usable object and defaults were returned.
	Fallback
)

func (o Outcome) String() string {
	if o == Parsed {
		return "parsed"
	}
	return "fallback"
}

// Extractor holds the lookup settings. The zero value is not useful; build
// one with New or use ExtractBlogResult.
type Extractor struct {
	tagKeys           []string
	synthesizeSummary bool
}

// New creates an Extractor. An empty tagKeys selects DefaultTagKeys.
func New(tagKeys []string, synthesizeSummary bool) *Extractor {
	keys := make([]string, 0, len(tagKeys))
	for _, k := range tagKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		keys = append(keys, DefaultTagKeys...)
	}
	return &Extractor{tagKeys: keys, synthesizeSummary: synthesizeSummary}
}

var defaultExtractor = New(DefaultTagKeys, true)

// ExtractBlogResult extracts with the default tag keys and summary synthesis on.
func ExtractBlogResult(lintedContent, seoRawText, fallbackTitle string) domain.BlogResult {
	return defaultExtractor.Extract(lintedContent, seoRawText, fallbackTitle)
}

// Extract builds a BlogResult. Content is always lintedContent verbatim.
func (e *Extractor) Extract(lintedContent, seoRawText, fallbackTitle string) domain.BlogResult {
	result, _ := e.ExtractWithOutcome(lintedContent, seoRawText, fallbackTitle)
	return result
}

// ExtractWithOutcome is Extract plus whether the JSON branch was taken.
func (e *Extractor) ExtractWithOutcome(lintedContent, seoRawText, fallbackTitle string) (domain.BlogResult, Outcome) {
	fallbackTitle = strings.TrimSpace(fallbackTitle)
	if fallbackTitle == "" {
		fallbackTitle = DefaultTitle
	}

	obj, ok := parseObject(seoRawText)
	if !ok {
		return domain.BlogResult{
			Title:   fallbackTitle,
			Content: lintedContent,
			Tags:    []string{},
		}, Fallback
	}

	result := domain.BlogResult{
		Title:           stringField(obj, "title"),
		Content:         lintedContent,
		Tags:            e.tags(obj),
		MetaDescription: stringField(obj, "metaDescription", "meta_description"),
	}
	if result.Title == "" {
		result.Title = fallbackTitle
	}

	if summary, found := lookup(obj, "summary"); found {
		if s, isString := summary.(string); isString {
			result.Summary = strings.TrimSpace(s)
		}
	} else if e.synthesizeSummary {
		result.Summary = SynthesizeSummary(lintedContent)
	}

	return result, Parsed
}

// SynthesizeSummary returns the first non-heading line longer than 50
// characters, cut to 200 characters with a trailing ellipsis.
func SynthesizeSummary(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if utf8.RuneCountInString(line) <= summaryMinRunes {
			continue
		}
		if utf8.RuneCountInString(line) > summaryMaxRunes {
			return string([]rune(line)[:summaryMaxRunes]) + "..."
		}
		return line
	}
	return ""
}

// locateJSON slices from the first '{' to the last '}', or returns the whole
// text when there is no such pair.
func locateJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return text
	}
	return text[start : end+1]
}

func parseObject(text string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(locateJSON(text)), &obj); err != nil {
		return nil, false
	}
	if obj == nil {
		return nil, false
	}
	return obj, true
}

// lookup tries each name exactly, then case-insensitively. Keys are scanned
// in sorted order so the same input always yields the same field.
func lookup(obj map[string]any, names ...string) (any, bool) {
	for _, name := range names {
		if v, ok := obj[name]; ok {
			return v, true
		}
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, name := range names {
		for _, k := range keys {
			if strings.EqualFold(k, name) {
				return obj[k], true
			}
		}
	}
	return nil, false
}

func stringField(obj map[string]any, names ...string) string {
	v, ok := lookup(obj, names...)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// tags returns the list under the first configured key holding an array or a
// comma-separated string. It is never nil.
func (e *Extractor) tags(obj map[string]any) []string {
	for _, key := range e.tagKeys {
		v, ok := lookup(obj, key)
		if !ok {
			continue
		}
		switch val := v.(type) {
		case []any:
			out := make([]string, 0, len(val))
			for _, item := range val {
				if s, isString := item.(string); isString {
					if s = strings.TrimSpace(s); s != "" {
						out = append(out, s)
					}
				}
			}
			return out
		case string:
			out := []string{}
			for _, s := range strings.Split(val, ",") {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
			return out
		}
	}
	return []string{}
}
