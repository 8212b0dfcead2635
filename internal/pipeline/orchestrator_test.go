package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpn/hpn-blog-pipeline/internal/adapter"
	"github.com/hpn/hpn-blog-pipeline/internal/domain"
	"github.com/hpn/hpn-blog-pipeline/internal/extract"
)

// scriptedProvider answers each call with the next scripted reply and
// records every message list it receives.
type scriptedProvider struct {
	mu      sync.Mutex
	replies []adapter.CompletionResult
	calls   [][]adapter.ChatMessage
	opts    []*adapter.GenerationOptions

	// failAt makes the call with this index (0-based) fail.
	failAt  int
	failErr error

	// blockAt makes the call with this index wait for cancellation.
	blockAt int
	blocked chan struct{}
}

func newScriptedProvider(replies ...string) *scriptedProvider {
	p := &scriptedProvider{failAt: -1, blockAt: -1, blocked: make(chan struct{})}
	for i, r := range replies {
		p.replies = append(p.replies, adapter.CompletionResult{
			AssistantText: r,
			ModelID:       fmt.Sprintf("model-%d", i),
			FinishReason:  adapter.FinishStop,
		})
	}
	return p
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Complete(ctx context.Context, messages []adapter.ChatMessage, opts *adapter.GenerationOptions) (adapter.CompletionResult, error) {
	p.mu.Lock()
	idx := len(p.calls)
	p.calls = append(p.calls, messages)
	p.opts = append(p.opts, opts)
	p.mu.Unlock()

	if idx == p.blockAt {
		close(p.blocked)
		<-ctx.Done()
		return adapter.CompletionResult{}, &adapter.TransportError{Provider: p.Name(), Err: ctx.Err()}
	}
	if idx == p.failAt {
		return adapter.CompletionResult{}, p.failErr
	}
	time.Sleep(time.Millisecond)
	if idx < len(p.replies) {
		return p.replies[idx], nil
	}
	return adapter.CompletionResult{AssistantText: "", ModelID: "m", FinishReason: adapter.FinishStop}, nil
}

func (p *scriptedProvider) Stream(ctx context.Context, messages []adapter.ChatMessage, opts *adapter.GenerationOptions) (<-chan adapter.StreamUpdate, error) {
	return nil, errors.New("not used")
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRequest() domain.BlogRequest {
	return domain.BlogRequest{Topic: "Go error handling", Description: "wrapping and sentinel errors"}.WithDefaults()
}

const seoReply = `{"title":"Errors in Go","metaDescription":"How to wrap errors","tags":["go","errors"],"summary":"A tour."}`

func TestRun_StageOrderAndChaining(t *testing.T) {
	p := newScriptedProvider("OUTLINE-1", "DRAFT-2", "EDITED-3", "LINTED-4", seoReply)
	o := NewOrchestrator(p, WithLogger(quietLogger()))

	report, err := o.Run(context.Background(), testRequest())
	require.NoError(t, err)

	require.Len(t, p.calls, 5)
	require.Len(t, report.Stages, 5)
	for i, name := range domain.StageOrder {
		require.Equal(t, name, report.Stages[i].Name)
		require.Len(t, p.calls[i], 2)
		require.Equal(t, adapter.RoleSystem, p.calls[i][0].Role)
		require.Equal(t, adapter.RoleUser, p.calls[i][1].Role)
		require.Equal(t, fmt.Sprintf("model-%d", i), report.Stages[i].Model)
	}

	require.Contains(t, p.calls[0][1].Text, "Go error handling")
	require.Contains(t, p.calls[0][1].Text, "wrapping and sentinel errors")
	require.Contains(t, p.calls[0][1].Text, domain.DefaultAudience)
	require.Contains(t, p.calls[1][1].Text, "OUTLINE-1")
	require.Contains(t, p.calls[1][1].Text, domain.DefaultTone)
	require.Contains(t, p.calls[1][1].Text, "800")
	require.Contains(t, p.calls[2][1].Text, "DRAFT-2")
	require.Contains(t, p.calls[3][1].Text, "EDITED-3")
	require.Contains(t, p.calls[4][1].Text, "LINTED-4")
	require.Contains(t, p.calls[4][1].Text, "Go error handling")

	for i := 1; i < len(report.Stages); i++ {
		require.Contains(t, report.Stages[i].InputText, report.Stages[i-1].OutputText)
	}

	require.Equal(t, "LINTED-4", report.Result.Content)
	require.Equal(t, "Errors in Go", report.Result.Title)
	require.Equal(t, []string{"go", "errors"}, report.Result.Tags)
	require.Equal(t, seoReply, report.SEORaw)
	require.Equal(t, extract.Parsed, report.Extraction)
	require.NotEmpty(t, report.RunID)
	require.Equal(t, "scripted", report.Provider)
}

func TestRun_TimingMonotonic(t *testing.T) {
	p := newScriptedProvider("a", "b", "c", "d", "{}")
	report, err := NewOrchestrator(p, WithLogger(quietLogger())).Run(context.Background(), testRequest())
	require.NoError(t, err)

	var sum time.Duration
	for _, s := range report.Stages {
		require.Greater(t, s.Elapsed, time.Duration(0))
		sum += s.Elapsed
	}
	require.GreaterOrEqual(t, report.Total, sum)
}

func TestRun_CancelledDuringWrite(t *testing.T) {
	p := newScriptedProvider("outline")
	p.blockAt = 1

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-p.blocked
		cancel()
	}()

	report, err := NewOrchestrator(p, WithLogger(quietLogger())).Run(ctx, testRequest())
	require.Nil(t, report)
	require.Error(t, err)

	se, ok := AsStageError(err)
	require.True(t, ok)
	require.Equal(t, domain.StageWrite, se.Stage)
	require.True(t, se.Cancelled())
	require.True(t, strings.HasPrefix(err.Error(), "cancelled at Write"))
	require.True(t, errors.Is(err, context.Canceled))
	require.Len(t, p.calls, 2, "no stage after Write may run")
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	p := newScriptedProvider()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewOrchestrator(p, WithLogger(quietLogger())).Run(ctx, testRequest())
	se, ok := AsStageError(err)
	require.True(t, ok)
	require.Equal(t, domain.StageResearch, se.Stage)
	require.True(t, se.Cancelled())
	require.Empty(t, p.calls)
}

func TestRun_FailurePropagates(t *testing.T) {
	upstream := &adapter.MalformedResponseError{Provider: "scripted", Reason: "no candidates"}
	p := newScriptedProvider("a", "b", "c")
	p.failAt = 2
	p.failErr = upstream

	report, err := NewOrchestrator(p, WithLogger(quietLogger())).Run(context.Background(), testRequest())
	require.Nil(t, report)

	se, ok := AsStageError(err)
	require.True(t, ok)
	require.Equal(t, domain.StageEdit, se.Stage)
	require.False(t, se.Cancelled())
	require.Greater(t, se.Elapsed, time.Duration(0))
	require.True(t, adapter.IsMalformedResponseError(err))
	require.Contains(t, err.Error(), "stage Edit failed")
	require.Len(t, p.calls, 3)
}

func TestRun_EditorNotesStripped(t *testing.T) {
	edited := "# Post\n\nBody text.\n\n## Editor Notes\n- tightened intro\n"
	p := newScriptedProvider("outline", "draft", edited, "linted", "{}")

	report, err := NewOrchestrator(p,
		WithLogger(quietLogger()),
		WithEditorNotes("## Editor Notes"),
	).Run(context.Background(), testRequest())
	require.NoError(t, err)

	require.Equal(t, "# Post\n\nBody text.", report.Stages[2].OutputText)
	require.NotContains(t, p.calls[3][1].Text, "Editor Notes")
	require.Contains(t, p.calls[3][1].Text, "# Post\n\nBody text.")
	require.Equal(t, "## Editor Notes\n- tightened intro", report.EditorNotes)
	require.Contains(t, p.calls[2][0].Text, "## Editor Notes")
}

func TestRun_EditorNotesKeptWhenDisabled(t *testing.T) {
	edited := "Body.\n## Editor Notes\nnote"
	p := newScriptedProvider("outline", "draft", edited, "linted", "{}")

	report, err := NewOrchestrator(p, WithLogger(quietLogger())).Run(context.Background(), testRequest())
	require.NoError(t, err)
	require.Equal(t, edited, report.Stages[2].OutputText)
	require.Contains(t, p.calls[3][1].Text, edited)
	require.Empty(t, report.EditorNotes)
}

func TestRun_GenerationOptions(t *testing.T) {
	temp := 0.7
	low := 0.1
	run := &adapter.GenerationOptions{Temperature: &temp}
	stages := DefaultStages("")
	stages[4].Options = &adapter.GenerationOptions{Temperature: &low}

	p := newScriptedProvider("a", "b", "c", "d", "{}")
	_, err := NewOrchestrator(p,
		WithLogger(quietLogger()),
		WithGenerationOptions(run),
		WithStages(stages),
	).Run(context.Background(), testRequest())
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		require.Same(t, run, p.opts[i])
	}
	require.Equal(t, 0.1, *p.opts[4].Temperature)
}

func TestRun_FallbackExtraction(t *testing.T) {
	p := newScriptedProvider("a", "b", "c", "linted body", "sorry, no JSON today")
	report, err := NewOrchestrator(p,
		WithLogger(quietLogger()),
		WithExtractor(extract.New(nil, true), "My Fallback"),
	).Run(context.Background(), testRequest())
	require.NoError(t, err)

	require.Equal(t, extract.Fallback, report.Extraction)
	require.Equal(t, "My Fallback", report.Result.Title)
	require.Equal(t, "linted body", report.Result.Content)
	require.Equal(t, []string{}, report.Result.Tags)
}

type recordingObserver struct {
	started  []domain.StageName
	finished []domain.StageName
}

func (r *recordingObserver) StageStarted(name domain.StageName, index, total int) {
	r.started = append(r.started, name)
}

func (r *recordingObserver) StageFinished(rec domain.StageRecord) {
	r.finished = append(r.finished, rec.Name)
}

func TestRun_Observer(t *testing.T) {
	obs := &recordingObserver{}
	p := newScriptedProvider("a", "b", "c", "d", "{}")
	_, err := NewOrchestrator(p, WithLogger(quietLogger()), WithObserver(obs)).Run(context.Background(), testRequest())
	require.NoError(t, err)
	require.Equal(t, domain.StageOrder, obs.started)
	require.Equal(t, domain.StageOrder, obs.finished)
}

func TestRun_Usage(t *testing.T) {
	p := newScriptedProvider("a", "b", "c", "d", "{}")
	p.replies[0].Usage = &adapter.Usage{PromptTokens: ptr(10), CompletionTokens: ptr(5), TotalTokens: ptr(15)}
	p.replies[1].Usage = &adapter.Usage{PromptTokens: ptr(3), CompletionTokens: ptr(4)}

	report, err := NewOrchestrator(p, WithLogger(quietLogger())).Run(context.Background(), testRequest())
	require.NoError(t, err)

	require.Equal(t, 13, report.Usage.PromptTokens)
	require.Equal(t, 9, report.Usage.CompletionTokens)
	require.Equal(t, 22, report.Usage.TotalTokens)
	require.Equal(t, []domain.StageName{domain.StageEdit, domain.StageLint, domain.StageSEO}, report.Usage.Unreported)
	require.Greater(t, report.Usage.EstimatedTokens, 0)
	require.False(t, report.Usage.Complete())
	require.Nil(t, report.Stages[2].TotalTokens)
	require.Equal(t, 15, *report.Stages[0].TotalTokens)
}

func ptr(v int) *int { return &v }
