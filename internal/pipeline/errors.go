package pipeline

import (
	"fmt"

	"github.com/jonathan/jobs-newsroom/internal/types"
)

// AbortReason classifies why a run stopped before Done
type AbortReason string

// Abort reasons
const (
	ReasonRateLimited       AbortReason = "RateLimited"
	ReasonNoCandidates      AbortReason = "NoCandidates"
	ReasonStateConflict     AbortReason = "StateConflict"
	ReasonGenerationFailed  AbortReason = "GenerationFailed"
	ReasonPersistenceFailed AbortReason = "PersistenceFailed"
	ReasonBookkeepingFailed AbortReason = "BookkeepingFailed"
	ReasonStoreFailed       AbortReason = "StoreFailed"
)

// Soft reports whether the abort is an expected outcome rather than a failure.
// Soft aborts are answered with success=false and logged at info.
func (r AbortReason) Soft() bool {
	switch r {
	case ReasonRateLimited, ReasonNoCandidates, ReasonStateConflict:
		return true
	}
	return false
}

// AbortError is returned by Orchestrator.Run for every run that does not reach Done
type AbortError struct {
	Reason AbortReason
	// Stage is the last stage the run completed
	Stage   Stage
	Message string
	Err     error
	// Article is set only for BookkeepingFailed: it was published without matching bookkeeping
	Article *types.Article
}

func (e *AbortError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Reason, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

func (e *AbortError) Unwrap() error {
	return e.Err
}

func abort(reason AbortReason, stage Stage, message string, err error) *AbortError {
	return &AbortError{Reason: reason, Stage: stage, Message: message, Err: err}
}
