package rotation

import (
	"time"

	"github.com/jonathan/jobs-newsroom/internal/types"
)

// DefaultMinInterval is the minimum gap between successful runs. It sits below the
// two-hour cron cadence so a duplicate trigger cannot produce back-to-back articles.
const DefaultMinInterval = time.Hour

// Cadence gates runs on the time since the last successful generation
type Cadence struct {
	MinInterval time.Duration
}

// NewCadence returns a Cadence, falling back to DefaultMinInterval for non-positive values
func NewCadence(minInterval time.Duration) Cadence {
	if minInterval <= 0 {
		minInterval = DefaultMinInterval
	}
	return Cadence{MinInterval: minInterval}
}

// ShouldRun reports whether a run may start at now given the state snapshot.
func (c Cadence) ShouldRun(state types.GenerationState, now time.Time) bool {
	if state.LastGeneratedAt == nil {
		return true
	}
	return !now.Before(state.LastGeneratedAt.Add(c.MinInterval))
}

// NextAllowedAt returns the earliest time a run may start. Zero when no run is recorded.
func (c Cadence) NextAllowedAt(state types.GenerationState) time.Time {
	if state.LastGeneratedAt == nil {
		return time.Time{}
	}
	return state.LastGeneratedAt.Add(c.MinInterval)
}
