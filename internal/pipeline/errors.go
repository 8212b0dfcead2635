package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hpn/hpn-blog-pipeline/internal/domain"
)

// StageError reports the stage that halted a run and the time spent up to
// that point. No partial result exists when it is returned.
type StageError struct {
	Stage domain.StageName

	// Elapsed is cumulative from the start of the run.
	Elapsed time.Duration

	Err error
}

func (e *StageError) Error() string {
	if e.Cancelled() {
		return fmt.Sprintf("cancelled at %s after %s: %v", e.Stage, e.Elapsed.Round(time.Millisecond), e.Err)
	}
	return fmt.Sprintf("stage %s failed after %s: %v", e.Stage, e.Elapsed.Round(time.Millisecond), e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Cancelled reports whether the run stopped because its context was cancelled.
func (e *StageError) Cancelled() bool {
	return errors.Is(e.Err, context.Canceled)
}

// AsStageError extracts a StageError from err.
func AsStageError(err error) (*StageError, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
