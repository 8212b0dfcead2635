package pipeline

import (
	"strings"

	"github.com/hpn/hpn-blog-pipeline/internal/adapter"
	"github.com/hpn/hpn-blog-pipeline/internal/domain"
)

// Stage describes one step: fixed role instructions, a user template fed
// with the previous stage's output, and an optional post-processing hook.
type Stage struct {
	Name   domain.StageName
	System string

	// BuildUser renders the user message. prev is the previous stage's
	// forwarded output and must appear in the message verbatim.
	BuildUser func(prev string, req domain.BlogRequest) string

	// Options overrides the run's generation options when non-nil.
	Options *adapter.GenerationOptions

	// Forward splits the stage output into the text passed on and a part set
	// aside for the report. Nil forwards everything.
	Forward func(output string) (forward, aside string)
}

// DefaultStages returns the five stages in their only valid order. A non-empty
// notesMarker makes the Edit stage strip its editor notes before Lint.
func DefaultStages(notesMarker string) []Stage {
	edit := Stage{
		Name:      domain.StageEdit,
		System:    editSystemPrompt(notesMarker),
		BuildUser: editUserPrompt,
	}
	if notesMarker != "" {
		edit.Forward = func(output string) (string, string) {
			return SplitEditorNotes(output, notesMarker)
		}
	}

	return []Stage{
		{Name: domain.StageResearch, System: researchSystemPrompt, BuildUser: researchUserPrompt},
		{Name: domain.StageWrite, System: writeSystemPrompt, BuildUser: writeUserPrompt},
		edit,
		{Name: domain.StageLint, System: lintSystemPrompt, BuildUser: lintUserPrompt},
		{Name: domain.StageSEO, System: seoSystemPrompt, BuildUser: seoUserPrompt},
	}
}

// SplitEditorNotes cuts text at the first occurrence of marker. The post is
// returned with trailing whitespace removed; notes start at the marker.
// Without the marker the text is returned unchanged.
func SplitEditorNotes(text, marker string) (post, notes string) {
	if marker == "" {
		return text, ""
	}
	idx := strings.Index(text, marker)
	if idx < 0 {
		return text, ""
	}
	return strings.TrimRight(text[:idx], " \t\r\n"), strings.TrimSpace(text[idx:])
}
