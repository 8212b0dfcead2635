package pipeline

import (
	"testing"

	"github.com/hpn/hpn-blog-pipeline/internal/domain"
)

func TestSplitEditorNotes(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		marker    string
		wantPost  string
		wantNotes string
	}{
		{"no marker configured", "a\n## Editor Notes\nb", "", "a\n## Editor Notes\nb", ""},
		{"marker absent", "just a post", "## Editor Notes", "just a post", ""},
		{"marker present", "post\n\n## Editor Notes\n- one\n", "## Editor Notes", "post", "## Editor Notes\n- one"},
		{"first occurrence wins", "p\n## Editor Notes\nx\n## Editor Notes\ny", "## Editor Notes", "p", "## Editor Notes\nx\n## Editor Notes\ny"},
		{"custom marker", "p\n---NOTES---\nx", "---NOTES---", "p", "---NOTES---\nx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			post, notes := SplitEditorNotes(tt.text, tt.marker)
			if post != tt.wantPost {
				t.Errorf("post = %q, want %q", post, tt.wantPost)
			}
			if notes != tt.wantNotes {
				t.Errorf("notes = %q, want %q", notes, tt.wantNotes)
			}
		})
	}
}

func TestDefaultStages(t *testing.T) {
	stages := DefaultStages("## Editor Notes")
	if len(stages) != len(domain.StageOrder) {
		t.Fatalf("len(stages) = %d, want %d", len(stages), len(domain.StageOrder))
	}
	for i, s := range stages {
		if s.Name != domain.StageOrder[i] {
			t.Errorf("stages[%d] = %s, want %s", i, s.Name, domain.StageOrder[i])
		}
		if s.System == "" || s.BuildUser == nil {
			t.Errorf("stage %s is incomplete", s.Name)
		}
		if s.Name != domain.StageEdit && s.Forward != nil {
			t.Errorf("stage %s should forward its full output", s.Name)
		}
	}
	if stages[2].Forward == nil {
		t.Error("Edit stage should strip notes when a marker is set")
	}
	if DefaultStages("")[2].Forward != nil {
		t.Error("Edit stage should not strip without a marker")
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"one", 1},
		{"hello, world", 2},
		{"ten words in this sentence for the token estimate test", 13},
	}
	for _, tt := range tests {
		if got := EstimateTokens(tt.text); got != tt.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}
