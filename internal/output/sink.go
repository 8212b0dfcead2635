// Package output writes a finished post to disk as a dated markdown file
// with front matter, next to the raw SEO reply.
package output

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"gopkg.in/yaml.v3"

	"github.com/hpn/hpn-blog-pipeline/internal/config"
	"github.com/hpn/hpn-blog-pipeline/internal/domain"
)

const defaultSlug = "post"

// Meta carries the run data that is not part of the result itself.
type Meta struct {
	Author string
	SEORaw string
}

// Written lists the files produced for one post. HTML is empty unless the
// preview is enabled.
type Written struct {
	Markdown string `json:"markdown"`
	Sidecar  string `json:"sidecar,omitempty"`
	HTML     string `json:"html,omitempty"`
}

// Sink writes posts into a directory.
type Sink struct {
	dir         string
	layout      string
	image       string
	draft       bool
	sidecar     string
	htmlPreview bool
	now         func() time.Time
	logger      *slog.Logger
}

// Option is a functional option for configuring Sink.
type Option func(*Sink)

// WithClock sets the time source used for the file name and date.
func WithClock(now func() time.Time) Option {
	return func(s *Sink) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sink) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSink creates a Sink from the output configuration.
func NewSink(cfg config.OutputConfig, opts ...Option) *Sink {
	s := &Sink{
		dir:         cfg.Dir,
		layout:      cfg.Layout,
		image:       cfg.Image,
		draft:       cfg.Draft,
		sidecar:     cfg.SEOSidecar,
		htmlPreview: cfg.HTMLPreview,
		now:         time.Now,
		logger:      slog.Default(),
	}
	if s.dir == "" {
		s.dir = "."
	}
	if s.layout == "" {
		s.layout = "post"
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WriteResult writes the post and returns the markdown file path.
func (s *Sink) WriteResult(result domain.BlogResult, meta Meta) (string, error) {
	w, err := s.WriteFiles(result, meta)
	if err != nil {
		return "", err
	}
	return w.Markdown, nil
}

// WriteFiles writes the markdown file, the SEO sidecar and the optional HTML preview.
func (s *Sink) WriteFiles(result domain.BlogResult, meta Meta) (Written, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Written{}, fmt.Errorf("failed to create output dir: %w", err)
	}

	now := s.now()
	base := fmt.Sprintf("%s-%s", now.Format("2006-01-02"), Slugify(result.Title))

	doc, err := s.render(result, meta, now)
	if err != nil {
		return Written{}, err
	}

	var w Written
	w.Markdown = filepath.Join(s.dir, base+".md")
	if err := os.WriteFile(w.Markdown, doc, 0o644); err != nil {
		return Written{}, fmt.Errorf("failed to write post: %w", err)
	}

	if s.sidecar != "" {
		w.Sidecar = filepath.Join(s.dir, s.sidecar)
		if err := os.WriteFile(w.Sidecar, []byte(meta.SEORaw), 0o644); err != nil {
			return Written{}, fmt.Errorf("failed to write seo sidecar: %w", err)
		}
	}

	if s.htmlPreview {
		var buf bytes.Buffer
		if err := goldmark.Convert([]byte(result.Content), &buf); err != nil {
			return Written{}, fmt.Errorf("failed to render html preview: %w", err)
		}
		w.HTML = filepath.Join(s.dir, base+".html")
		if err := os.WriteFile(w.HTML, buf.Bytes(), 0o644); err != nil {
			return Written{}, fmt.Errorf("failed to write html preview: %w", err)
		}
	}

	s.logger.Info("post written",
		slog.String("path", w.Markdown),
		slog.String("sidecar", w.Sidecar),
		slog.String("html", w.HTML),
	)
	return w, nil
}

func (s *Sink) render(result domain.BlogResult, meta Meta, now time.Time) ([]byte, error) {
	title, err := quote(result.Title)
	if err != nil {
		return nil, err
	}
	author, err := quote(meta.Author)
	if err != nil {
		return nil, err
	}
	tags := make([]string, 0, len(result.Tags))
	for _, tag := range result.Tags {
		q, err := quote(tag)
		if err != nil {
			return nil, err
		}
		tags = append(tags, q)
	}

	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "layout: %s\n", s.layout)
	fmt.Fprintf(&b, "title: %s\n", title)
	fmt.Fprintf(&b, "image: %s\n", s.image)
	fmt.Fprintf(&b, "author: %s\n", author)
	fmt.Fprintf(&b, "date: %s\n", now.Format(time.RFC3339))
	fmt.Fprintf(&b, "tags: [%s]\n", strings.Join(tags, ", "))
	fmt.Fprintf(&b, "draft: %t\n", s.draft)
	b.WriteString("---\n\n")
	b.WriteString(result.Content)
	if !strings.HasSuffix(result.Content, "\n") {
		b.WriteString("\n")
	}
	return []byte(b.String()), nil
}

// quote renders s as a double-quoted YAML scalar.
func quote(s string) (string, error) {
	out, err := yaml.Marshal(&yaml.Node{Kind: yaml.ScalarNode, Style: yaml.DoubleQuotedStyle, Value: s})
	if err != nil {
		return "", fmt.Errorf("failed to quote front matter value: %w", err)
	}
	return strings.TrimRight(string(out), "\n"), nil
}

var (
	slugStrip   = regexp.MustCompile(`[:?/\\"*<>|]`)
	slugHyphens = regexp.MustCompile(`-{2,}`)
)

// Slugify lowercases title, turns spaces into hyphens and strips characters
// that are unsafe in file names. An empty result becomes "post".
func Slugify(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = slugStrip.ReplaceAllString(slug, "")
	slug = slugHyphens.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return defaultSlug
	}
	return slug
}
