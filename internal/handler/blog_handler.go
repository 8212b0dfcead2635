// Package handler exposes the blog pipeline over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/hpn/hpn-blog-pipeline/internal/domain"
	"github.com/hpn/hpn-blog-pipeline/internal/output"
	"github.com/hpn/hpn-blog-pipeline/internal/pipeline"
)

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context, req domain.BlogRequest) (*pipeline.Report, error)
	ProviderName() string
}

// RequestDecoder turns a request body into a validated BlogRequest.
type RequestDecoder interface {
	FromJSON(data []byte) (domain.BlogRequest, error)
}

// ResultWriter persists a finished post.
type ResultWriter interface {
	WriteFiles(result domain.BlogResult, meta output.Meta) (output.Written, error)
}

// BlogHandler serves pipeline runs. Only one run is in flight at a time; the
// provider is a single upstream and runs are long.
type BlogHandler struct {
	runner  Runner
	decoder RequestDecoder
	sink    ResultWriter
	logger  *slog.Logger

	mu   sync.Mutex
	busy bool
}

// BlogHandlerOption is a functional option for configuring BlogHandler.
type BlogHandlerOption func(*BlogHandler)

// WithSink writes every finished post through w. Without a sink the post is
// only returned in the response.
func WithSink(w ResultWriter) BlogHandlerOption {
	return func(h *BlogHandler) {
		h.sink = w
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) BlogHandlerOption {
	return func(h *BlogHandler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewBlogHandler creates a new BlogHandler.
func NewBlogHandler(runner Runner, decoder RequestDecoder, opts ...BlogHandlerOption) *BlogHandler {
	h := &BlogHandler{
		runner:  runner,
		decoder: decoder,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// StageTiming is the per-stage part of a response.
type StageTiming struct {
	Name             domain.StageName `json:"name"`
	ElapsedMS        int64            `json:"elapsed_ms"`
	Model            string           `json:"model,omitempty"`
	FinishReason     string           `json:"finish_reason,omitempty"`
	PromptTokens     *int             `json:"prompt_tokens,omitempty"`
	CompletionTokens *int             `json:"completion_tokens,omitempty"`
	TotalTokens      *int             `json:"total_tokens,omitempty"`
}

// BlogResponse is returned by POST /v1/blogs.
type BlogResponse struct {
	RunID       string                `json:"run_id"`
	Provider    string                `json:"provider"`
	Result      domain.BlogResult     `json:"result"`
	Stages      []StageTiming         `json:"stages"`
	TotalMS     int64                 `json:"total_ms"`
	Usage       pipeline.UsageSummary `json:"usage"`
	EditorNotes string                `json:"editor_notes,omitempty"`
	Output      *output.Written       `json:"output,omitempty"`
}

// HandleGenerate handles POST /v1/blogs.
func (h *BlogHandler) HandleGenerate(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		sendError(c, http.StatusBadRequest, "failed to read request body: "+err.Error())
		return
	}

	req, err := h.decoder.FromJSON(body)
	if err != nil {
		sendError(c, http.StatusBadRequest, err.Error())
		return
	}

	if !h.acquire() {
		h.logger.Warn("run rejected, pipeline busy", slog.String("topic", req.Topic))
		sendError(c, http.StatusConflict, "a pipeline run is already in progress")
		return
	}
	defer h.release()

	report, err := h.runner.Run(c.Request.Context(), req)
	if err != nil {
		if se, ok := pipeline.AsStageError(err); ok {
			c.Set("stage", string(se.Stage))
			c.JSON(http.StatusBadGateway, gin.H{
				"error":      se.Error(),
				"stage":      se.Stage,
				"elapsed_ms": se.Elapsed.Milliseconds(),
			})
			return
		}
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.Set("run_id", report.RunID)

	resp := newBlogResponse(report)
	if h.sink != nil {
		written, err := h.sink.WriteFiles(report.Result, output.Meta{Author: req.Author, SEORaw: report.SEORaw})
		if err != nil {
			h.logger.Error("failed to write post",
				slog.String("run_id", report.RunID),
				slog.String("error", err.Error()),
			)
			sendError(c, http.StatusInternalServerError, err.Error())
			return
		}
		resp.Output = &written
	}

	c.JSON(http.StatusOK, resp)
}

// HandleHealth handles GET /health
func (h *BlogHandler) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"provider": h.runner.ProviderName(),
		"busy":     h.Busy(),
	})
}

// Busy reports whether a run is in flight.
func (h *BlogHandler) Busy() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.busy
}

func (h *BlogHandler) acquire() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.busy {
		return false
	}
	h.busy = true
	return true
}

func (h *BlogHandler) release() {
	h.mu.Lock()
	h.busy = false
	h.mu.Unlock()
}

func newBlogResponse(report *pipeline.Report) BlogResponse {
	stages := make([]StageTiming, len(report.Stages))
	for i, rec := range report.Stages {
		stages[i] = StageTiming{
			Name:             rec.Name,
			ElapsedMS:        rec.Elapsed.Milliseconds(),
			Model:            rec.Model,
			FinishReason:     rec.FinishReason,
			PromptTokens:     rec.PromptTokens,
			CompletionTokens: rec.CompletionTokens,
			TotalTokens:      rec.TotalTokens,
		}
	}
	return BlogResponse{
		RunID:       report.RunID,
		Provider:    report.Provider,
		Result:      report.Result,
		Stages:      stages,
		TotalMS:     report.Total.Milliseconds(),
		Usage:       report.Usage,
		EditorNotes: report.EditorNotes,
	}
}

func sendError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}
