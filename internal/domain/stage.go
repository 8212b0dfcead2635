package domain

import "time"

// StageName identifies one step of the pipeline.
type StageName string

const (
	StageResearch StageName = "Research"
	StageWrite    StageName = "Write"
	StageEdit     StageName = "Edit"
	StageLint     StageName = "Lint"
	StageSEO      StageName = "SEO"
)

// StageOrder is the only order in which stages run.
var StageOrder = []StageName{
	StageResearch,
	StageWrite,
	StageEdit,
	StageLint,
	StageSEO,
}

// StageRecord is the telemetry kept for one stage of a run. It lives only as
// long as the run report.
type StageRecord struct {
	Name         StageName     `json:"name"`
	InputText    string        `json:"-"`
	OutputText   string        `json:"-"`
	Elapsed      time.Duration `json:"elapsed"`
	Model        string        `json:"model,omitempty"`
	FinishReason string        `json:"finish_reason,omitempty"`

	// Token counts; nil means the provider did not report them.
	PromptTokens     *int `json:"prompt_tokens,omitempty"`
	CompletionTokens *int `json:"completion_tokens,omitempty"`
	TotalTokens      *int `json:"total_tokens,omitempty"`
}
