// Package await polls an asynchronous DigitalOcean operation at a fixed
// interval until it reaches a terminal status or the deadline elapses.
//
// There is no cancellation primitive: once submitted, an action cannot
// be retracted. A timed-out wait therefore means "submitted but
// unconfirmed", never "nothing happened".
package await

import (
	"context"
	"fmt"
	"time"
)

// Statuses the backend reports. The set is open in practice; anything
// other than completed/errored is treated as still in progress.
const (
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
	StatusErrored    = "errored"
)

// Defaults applied when Config fields are zero.
const (
	DefaultTimeout  = 300 * time.Second
	DefaultInterval = 10 * time.Second
)

// FetchFunc re-fetches the current status of the submitted operation.
// Each call performs exactly one network read.
type FetchFunc func(ctx context.Context) (string, error)

// Config controls one wait. Now and Sleep exist so tests can drive the
// clock deterministically; zero values use the real clock.
type Config struct {
	Timeout  time.Duration
	Interval time.Duration

	// OnPoll, when set, is invoked once per re-fetch.
	OnPoll func(ctx context.Context)

	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Sleep == nil {
		c.Sleep = sleepCtx
	}
	return c
}

// Result is the outcome of one wait.
type Result struct {
	// Status is the last observed status.
	Status string
	// Polls counts re-fetches performed (the initial status is free).
	Polls int
	// TimedOut is set when the deadline passed with Status still
	// non-terminal.
	TimedOut bool
}

// Completed reports a confirmed successful terminal status.
func (r Result) Completed() bool { return r.Status == StatusCompleted }

// Errored reports a confirmed failed terminal status.
func (r Result) Errored() bool { return r.Status == StatusErrored }

// Terminal is reports whether a status stops polling.
func Terminal(status string) bool {
	return status == StatusCompleted || status == StatusErrored
}

// Until polls fetch at a fixed interval until the status is terminal or
// the wall-clock deadline passes. initial is the status the submit call
// returned; if it is already terminal no fetch is performed. The
// deadline is computed once at entry.
//
// An error is returned only for fetch failures. A backend-reported
// errored status and a timeout are both reported through Result, since
// the mutation has already been accepted either way.
func Until(ctx context.Context, fetch FetchFunc, initial string, cfg Config) (Result, error) {
	cfg = cfg.withDefaults()

	res := Result{Status: initial}
	deadline := cfg.Now().Add(cfg.Timeout)

	for !Terminal(res.Status) {
		if !cfg.Now().Before(deadline) {
			res.TimedOut = true
			return res, nil
		}
		if err := cfg.Sleep(ctx, cfg.Interval); err != nil {
			return res, err
		}

		status, err := fetch(ctx)
		if err != nil {
			return res, err
		}
		res.Status = status
		res.Polls++
		if cfg.OnPoll != nil {
			cfg.OnPoll(ctx)
		}
	}

	return res, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// UnconfirmedError marks a mutation the backend accepted but whose
// completion was not confirmed within the timeout budget. Callers must
// report it with changed=true.
type UnconfirmedError struct {
	Kind   string
	ID     string
	Status string
}

func (e *UnconfirmedError) Error() string {
	return fmt.Sprintf("%s %s not completed within timeout, status is %s", e.Kind, e.ID, e.Status)
}
