// Package pipeline runs the five-stage blog generation over one ChatProvider.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hpn/hpn-blog-pipeline/internal/adapter"
	"github.com/hpn/hpn-blog-pipeline/internal/domain"
	"github.com/hpn/hpn-blog-pipeline/internal/extract"
)

// Observer is notified as stages start and finish. Calls happen on the run's
// goroutine, in stage order.
type Observer interface {
	StageStarted(name domain.StageName, index, total int)
	StageFinished(record domain.StageRecord)
}

// Report is the outcome of a successful run.
type Report struct {
	RunID    string               `json:"run_id"`
	Provider string               `json:"provider"`
	Stages   []domain.StageRecord `json:"stages"`
	Total    time.Duration        `json:"total"`
	Result   domain.BlogResult    `json:"result"`
	Usage    UsageSummary         `json:"usage"`

	// EditorNotes is what the Edit stage set aside before Lint.
	EditorNotes string `json:"editor_notes,omitempty"`

	// SEORaw is the SEO stage's reply exactly as received.
	SEORaw string `json:"-"`

	// Extraction tells whether SEORaw parsed as JSON.
	Extraction extract.Outcome `json:"-"`
}

// Orchestrator runs the stages sequentially. It holds no per-run state, so
// one instance may serve independent runs.
type Orchestrator struct {
	provider      adapter.ChatProvider
	stages        []Stage
	genOpts       *adapter.GenerationOptions
	extractor     *extract.Extractor
	fallbackTitle string
	observer      Observer
	logger        *slog.Logger
}

// Option is a functional option for configuring Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithGenerationOptions sets the options sent with every stage call.
func WithGenerationOptions(opts *adapter.GenerationOptions) Option {
	return func(o *Orchestrator) {
		o.genOpts = opts
	}
}

// WithExtractor sets the SEO result extractor and the title used when the
// SEO output carries none.
func WithExtractor(e *extract.Extractor, fallbackTitle string) Option {
	return func(o *Orchestrator) {
		if e != nil {
			o.extractor = e
		}
		o.fallbackTitle = fallbackTitle
	}
}

// WithEditorNotes strips the Edit stage output from marker onward. An empty
// marker forwards the full edited text.
func WithEditorNotes(marker string) Option {
	return func(o *Orchestrator) {
		o.stages = DefaultStages(marker)
	}
}

// WithStages replaces the stage list.
func WithStages(stages []Stage) Option {
	return func(o *Orchestrator) {
		o.stages = stages
	}
}

// WithObserver sets a progress observer.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) {
		o.observer = obs
	}
}

// NewOrchestrator creates an Orchestrator over provider. By default editor
// notes are not stripped.
func NewOrchestrator(provider adapter.ChatProvider, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		provider:      provider,
		stages:        DefaultStages(""),
		extractor:     extract.New(nil, true),
		fallbackTitle: extract.DefaultTitle,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ProviderName returns the name of the provider every stage talks to.
func (o *Orchestrator) ProviderName() string {
	return o.provider.Name()
}

// Run executes every stage in order. The first failure stops the run and is
// returned as a *StageError; there is no retry. A cancelled ctx is observed
// before each stage and inside each provider call.
func (o *Orchestrator) Run(ctx context.Context, req domain.BlogRequest) (*Report, error) {
	runID := uuid.NewString()
	logger := o.logger.With(
		slog.String("run_id", runID),
		slog.String("provider", o.provider.Name()),
	)

	report := &Report{
		RunID:    runID,
		Provider: o.provider.Name(),
		Stages:   make([]domain.StageRecord, 0, len(o.stages)),
	}
	raw := make([]string, 0, len(o.stages))

	logger.Info("pipeline started",
		slog.String("topic", req.Topic),
		slog.Int("stages", len(o.stages)),
	)

	start := time.Now()
	prev := ""

	for i, stage := range o.stages {
		if err := ctx.Err(); err != nil {
			return nil, o.fail(logger, stage.Name, start, err)
		}

		if o.observer != nil {
			o.observer.StageStarted(stage.Name, i+1, len(o.stages))
		}
		logger.Info("stage started", slog.String("stage", string(stage.Name)))

		userText := stage.BuildUser(prev, req)
		messages := []adapter.ChatMessage{
			{Role: adapter.RoleSystem, Text: stage.System},
			{Role: adapter.RoleUser, Text: userText},
		}
		genOpts := o.genOpts
		if stage.Options != nil {
			genOpts = stage.Options
		}

		stageStart := time.Now()
		result, err := o.provider.Complete(ctx, messages, genOpts)
		elapsed := time.Since(stageStart)
		if err != nil {
			return nil, o.fail(logger, stage.Name, start, err)
		}

		output := result.AssistantText
		raw = append(raw, output)
		if stage.Forward != nil {
			var aside string
			output, aside = stage.Forward(output)
			if aside != "" {
				report.EditorNotes = aside
				logger.Debug("stage output trimmed",
					slog.String("stage", string(stage.Name)),
					slog.Int("aside_chars", len(aside)),
				)
			}
		}

		record := domain.StageRecord{
			Name:         stage.Name,
			InputText:    userText,
			OutputText:   output,
			Elapsed:      elapsed,
			Model:        result.ModelID,
			FinishReason: string(result.FinishReason),
		}
		if result.Usage != nil {
			record.PromptTokens = result.Usage.PromptTokens
			record.CompletionTokens = result.Usage.CompletionTokens
			record.TotalTokens = result.Usage.TotalTokens
		}
		report.Stages = append(report.Stages, record)

		logger.Info("stage completed", stageAttrs(record)...)
		if result.FinishReason == adapter.FinishLength || result.FinishReason == adapter.FinishContentFilter {
			logger.Warn("stage output may be incomplete",
				slog.String("stage", string(stage.Name)),
				slog.String("finish_reason", string(result.FinishReason)),
			)
		}
		if o.observer != nil {
			o.observer.StageFinished(record)
		}

		prev = output
	}

	report.Total = time.Since(start)
	report.Usage = summarizeUsage(report.Stages, raw)

	if n := len(report.Stages); n > 0 {
		linted := prev
		if n >= 2 {
			linted = report.Stages[n-2].OutputText
		}
		report.SEORaw = report.Stages[n-1].OutputText
		report.Result, report.Extraction = o.extractor.ExtractWithOutcome(linted, report.SEORaw, o.fallbackTitle)
		if report.Extraction == extract.Fallback {
			logger.Warn("seo output was not a JSON object; using fallback metadata")
		}
	}

	logger.Info("pipeline completed",
		slog.Duration("total", report.Total),
		slog.String("title", report.Result.Title),
		slog.Int("total_tokens", report.Usage.TotalTokens),
		slog.Bool("usage_complete", report.Usage.Complete()),
	)

	return report, nil
}

func (o *Orchestrator) fail(logger *slog.Logger, stage domain.StageName, start time.Time, err error) error {
	se := &StageError{Stage: stage, Elapsed: time.Since(start), Err: err}
	if se.Cancelled() {
		logger.Warn("pipeline cancelled",
			slog.String("stage", string(stage)),
			slog.Duration("elapsed", se.Elapsed),
		)
	} else {
		logger.Error("stage failed",
			slog.String("stage", string(stage)),
			slog.Duration("elapsed", se.Elapsed),
			slog.String("error", err.Error()),
		)
	}
	return se
}

func stageAttrs(rec domain.StageRecord) []any {
	attrs := []any{
		slog.String("stage", string(rec.Name)),
		slog.Duration("elapsed", rec.Elapsed),
		slog.String("model", rec.Model),
		slog.String("finish_reason", rec.FinishReason),
	}
	if rec.PromptTokens != nil {
		attrs = append(attrs, slog.Int("prompt_tokens", *rec.PromptTokens))
	}
	if rec.CompletionTokens != nil {
		attrs = append(attrs, slog.Int("completion_tokens", *rec.CompletionTokens))
	}
	if rec.TotalTokens != nil {
		attrs = append(attrs, slog.Int("total_tokens", *rec.TotalTokens))
	}
	return attrs
}
