package engine

import (
	"context"
	"time"

	"github.com/atoll-cloud/atoll/resources"
	"github.com/atoll-cloud/atoll/types"
)

// Adapters resolves a resource kind to its adapter. *resources.Registry
// satisfies it.
type Adapters interface {
	Get(kind string) (resources.Adapter, bool)
}

// Gate approves or blocks a decision before it executes.
type Gate interface {
	Allow(ctx context.Context, decision types.Decision) (allowed bool, reason string, err error)
}

// Options control how a run executes.
type Options struct {
	// Check plans and classifies but issues no mutations. Results
	// report what a real run would have changed.
	Check bool

	// AllowDestructive permits delete decisions to execute.
	AllowDestructive bool

	// ContinueOnFailure keeps executing remaining decisions after one
	// fails.
	ContinueOnFailure bool
}

// PlannedChange pairs a declared spec with the decision resolved for it.
type PlannedChange struct {
	Spec     types.ResourceSpec
	Decision types.Decision
	// Current is the matched resource when exactly one candidate
	// matched, nil otherwise.
	Current *types.Resource
}

// RunResult is the outcome of executing one planned change.
type RunResult struct {
	Decision types.Decision `json:"decision"`
	Outcome  types.OpResult `json:"outcome"`
	Skipped  bool           `json:"skipped,omitempty"`
	SkipMsg  string         `json:"skip_msg,omitempty"`
}

// Summary aggregates one run.
type Summary struct {
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`
	Total     int           `json:"total"`
	Changed   int           `json:"changed"`
	Unchanged int           `json:"unchanged"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Results   []RunResult   `json:"results"`
}

func (s *Summary) record(r RunResult) {
	s.Results = append(s.Results, r)
	switch {
	case r.Skipped:
		s.Skipped++
	case r.Outcome.Failed():
		s.Failed++
		if r.Outcome.Changed {
			s.Changed++
		}
	case r.Outcome.Changed:
		s.Changed++
	default:
		s.Unchanged++
	}
}
