// Package request resolves the BlogRequest for a run from files, flags,
// configuration or interactive prompts.
package request

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hpn/hpn-blog-pipeline/internal/domain"
)

// Origin names where a request came from.
type Origin string

const (
	OriginFile        Origin = "file"
	OriginFlags       Origin = "flags"
	OriginDiscovered  Origin = "discovered"
	OriginConfig      Origin = "config"
	OriginInteractive Origin = "interactive"
	OriginBody        Origin = "body"
)

// DiscoveryFiles are looked up in the working directory, in this order.
var DiscoveryFiles = []string{
	"blog-request.json",
	"blog.json",
	"request.json",
	"blog-request.yaml",
}

// FlagValues holds the request flags of the command line.
type FlagValues struct {
	Topic       string
	Description string
	Audience    string
	WordCount   int
	Tone        string
	Author      string

	// Set is true when at least one request flag was given.
	Set bool
}

// Source resolves a BlogRequest. The resolution order is fixed: an explicit
// file argument, flags, a discovered file, the configured default, then
// interactive prompts.
type Source struct {
	defaults    domain.BlogRequest
	dir         string
	in          io.Reader
	out         io.Writer
	interactive bool
	logger      *slog.Logger
}

// Option is a functional option for configuring Source.
type Option func(*Source)

// WithDefaults sets the configured default request. It is used as a whole
// when its topic is set, and fills empty fields of any other request.
func WithDefaults(d domain.BlogRequest) Option {
	return func(s *Source) {
		s.defaults = d
	}
}

// WithDir sets the directory searched for request files.
func WithDir(dir string) Option {
	return func(s *Source) {
		s.dir = dir
	}
}

// WithPrompter enables interactive prompts on in and out.
func WithPrompter(in io.Reader, out io.Writer) Option {
	return func(s *Source) {
		s.in = in
		s.out = out
		s.interactive = in != nil && out != nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSource creates a Source for the current directory with prompts disabled.
func NewSource(opts ...Option) *Source {
	s := &Source{
		dir:    ".",
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetRequest resolves, defaults and validates a request. args are the
// positional command-line arguments.
func (s *Source) GetRequest(args []string, flags FlagValues) (domain.BlogRequest, Origin, error) {
	req, origin, err := s.resolve(args, flags)
	if err != nil {
		return domain.BlogRequest{}, origin, err
	}

	req, err = s.finish(req, origin)
	return req, origin, err
}

// FromJSON decodes a request body, then defaults and validates it like any
// other source.
func (s *Source) FromJSON(data []byte) (domain.BlogRequest, error) {
	var f fileRequest
	if err := json.Unmarshal(data, &f); err != nil {
		return domain.BlogRequest{}, &domain.ValidationError{Errors: []string{"invalid request body: " + err.Error()}}
	}
	return s.finish(f.toDomain(), OriginBody)
}

func (s *Source) finish(req domain.BlogRequest, origin Origin) (domain.BlogRequest, error) {
	req = s.fillFromDefaults(req).WithDefaults()
	if err := req.Validate(); err != nil {
		return domain.BlogRequest{}, err
	}

	s.logger.Info("blog request resolved",
		slog.String("origin", string(origin)),
		slog.String("topic", req.Topic),
		slog.Int("word_count", req.WordCount),
	)
	return req, nil
}

func (s *Source) resolve(args []string, flags FlagValues) (domain.BlogRequest, Origin, error) {
	if len(args) > 0 && isRequestFile(args[0]) {
		req, err := LoadFile(args[0])
		return req, OriginFile, err
	}

	if flags.Set {
		return domain.BlogRequest{
			Topic:          flags.Topic,
			Description:    flags.Description,
			TargetAudience: flags.Audience,
			WordCount:      flags.WordCount,
			Tone:           flags.Tone,
			Author:         flags.Author,
		}, OriginFlags, nil
	}

	for _, name := range DiscoveryFiles {
		path := filepath.Join(s.dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		s.logger.Debug("request file discovered", slog.String("path", path))
		req, err := LoadFile(path)
		return req, OriginDiscovered, err
	}

	if strings.TrimSpace(s.defaults.Topic) != "" {
		return s.defaults, OriginConfig, nil
	}

	if s.interactive {
		req, err := s.prompt()
		return req, OriginInteractive, err
	}

	return domain.BlogRequest{}, "", &domain.ValidationError{Errors: []string{
		"topic is required: pass a request file, --topic, or set defaults.topic in the config",
	}}
}

func (s *Source) fillFromDefaults(req domain.BlogRequest) domain.BlogRequest {
	if strings.TrimSpace(req.TargetAudience) == "" {
		req.TargetAudience = s.defaults.TargetAudience
	}
	if req.WordCount == 0 {
		req.WordCount = s.defaults.WordCount
	}
	if strings.TrimSpace(req.Tone) == "" {
		req.Tone = s.defaults.Tone
	}
	if strings.TrimSpace(req.Author) == "" {
		req.Author = s.defaults.Author
	}
	return req
}

func isRequestFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// fileRequest accepts both camelCase and snake_case spellings.
type fileRequest struct {
	Topic               string `json:"topic" yaml:"topic"`
	Description         string `json:"description" yaml:"description"`
	TargetAudience      string `json:"targetAudience" yaml:"targetAudience"`
	TargetAudienceSnake string `json:"target_audience" yaml:"target_audience"`
	Audience            string `json:"audience" yaml:"audience"`
	WordCount           int    `json:"wordCount" yaml:"wordCount"`
	WordCountSnake      int    `json:"word_count" yaml:"word_count"`
	Tone                string `json:"tone" yaml:"tone"`
	Author              string `json:"author" yaml:"author"`
}

func (f fileRequest) toDomain() domain.BlogRequest {
	req := domain.BlogRequest{
		Topic:          f.Topic,
		Description:    f.Description,
		TargetAudience: firstNonEmpty(f.TargetAudience, f.TargetAudienceSnake, f.Audience),
		WordCount:      f.WordCount,
		Tone:           f.Tone,
		Author:         f.Author,
	}
	if req.WordCount == 0 {
		req.WordCount = f.WordCountSnake
	}
	return req
}

// LoadFile reads a JSON or YAML request file, chosen by extension.
func LoadFile(path string) (domain.BlogRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.BlogRequest{}, fmt.Errorf("failed to read request file: %w", err)
	}

	var f fileRequest
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &f)
	default:
		err = json.Unmarshal(data, &f)
	}
	if err != nil {
		return domain.BlogRequest{}, fmt.Errorf("failed to parse request file %s: %w", path, err)
	}
	return f.toDomain(), nil
}

func (s *Source) prompt() (domain.BlogRequest, error) {
	scanner := bufio.NewScanner(s.in)
	ask := func(label string) (string, error) {
		fmt.Fprint(s.out, label)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", err
			}
			return "", io.EOF
		}
		return strings.TrimSpace(scanner.Text()), nil
	}

	var req domain.BlogRequest
	var err error

	if req.Topic, err = ask("Topic: "); err != nil {
		return req, promptError(err)
	}
	if req.Description, err = ask("Description (optional): "); err != nil {
		return req, promptError(err)
	}
	if req.TargetAudience, err = ask(fmt.Sprintf("Target audience [%s]: ", orDefault(s.defaults.TargetAudience, domain.DefaultAudience))); err != nil {
		return req, promptError(err)
	}
	wc, err := ask(fmt.Sprintf("Word count [%d]: ", orDefaultInt(s.defaults.WordCount, domain.DefaultWordCount)))
	if err != nil {
		return req, promptError(err)
	}
	if wc != "" {
		n, convErr := strconv.Atoi(wc)
		if convErr != nil {
			return req, &domain.ValidationError{Errors: []string{fmt.Sprintf("word count %q is not a number", wc)}}
		}
		req.WordCount = n
	}
	if req.Tone, err = ask(fmt.Sprintf("Tone [%s]: ", orDefault(s.defaults.Tone, domain.DefaultTone))); err != nil {
		return req, promptError(err)
	}
	if req.Author, err = ask("Author (optional): "); err != nil {
		return req, promptError(err)
	}
	return req, nil
}

// promptError keeps a partially answered prompt usable: running out of input
// after the topic still yields a request.
func promptError(err error) error {
	if errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("failed to read prompt answer: %w", err)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func orDefault(v, d string) string {
	if strings.TrimSpace(v) != "" {
		return v
	}
	return d
}

func orDefaultInt(v, d int) int {
	if v > 0 {
		return v
	}
	return d
}
