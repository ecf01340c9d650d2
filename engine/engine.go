// Package engine turns declared resource specs into decisions and
// executes them: look up candidates, classify the match, decide
// create/update/delete/noop, then run the mutation and wait for it to
// settle.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/atoll-cloud/atoll/await"
	"github.com/atoll-cloud/atoll/doapi"
	"github.com/atoll-cloud/atoll/journal"
	"github.com/atoll-cloud/atoll/resolve"
	"github.com/atoll-cloud/atoll/resources"
	"github.com/atoll-cloud/atoll/store"
	"github.com/atoll-cloud/atoll/telemetry"
	"github.com/atoll-cloud/atoll/types"
)

// Engine drives reconcile runs over a set of adapters.
type Engine struct {
	adapters     Adapters
	gate         Gate               // optional
	journal      *journal.Journal   // optional
	metrics      *telemetry.Metrics // optional
	observations *store.Store       // optional
	log          zerolog.Logger
	opts         Options
}

// New creates an engine. gate, jrnl and metrics may be nil.
func New(adapters Adapters, gate Gate, jrnl *journal.Journal, metrics *telemetry.Metrics, log zerolog.Logger, opts Options) *Engine {
	return &Engine{
		adapters: adapters,
		gate:     gate,
		journal:  jrnl,
		metrics:  metrics,
		log:      log.With().Str("component", "engine").Logger(),
		opts:     opts,
	}
}

// WithStore makes the engine record everything a run observes.
func (e *Engine) WithStore(s *store.Store) *Engine {
	e.observations = s
	return e
}

// Plan resolves every declared spec to a decision without mutating
// anything. An ambiguous match halts the whole plan: acting on any spec
// while another is unresolvable risks compounding the ambiguity.
func (e *Engine) Plan(ctx context.Context, specs []types.ResourceSpec) ([]PlannedChange, error) {
	ctx, span := telemetry.Tracer.Start(ctx, "atoll.plan")
	defer span.End()

	planned := make([]PlannedChange, 0, len(specs))
	var observed []types.Resource
	seen := map[string]bool{}
	kinds := map[string]bool{}

	for _, spec := range specs {
		change, candidates, err := e.planOne(ctx, spec)
		if err != nil {
			return nil, err
		}
		planned = append(planned, change)
		kinds[spec.Kind] = true

		for _, r := range candidates {
			key := store.ResourceKey(r)
			if !seen[key] {
				seen[key] = true
				observed = append(observed, r)
			}
		}
	}

	if e.observations != nil {
		e.recordObservations(ctx, observed, seen, kinds)
	}
	e.journalObserved(ctx, observed)

	return planned, nil
}

// recordObservations writes the fresh listing as one revision and
// tombstones every live resource of a listed kind that no listing
// produced this run.
func (e *Engine) recordObservations(ctx context.Context, observed []types.Resource, seen map[string]bool, kinds map[string]bool) {
	if len(observed) > 0 {
		if _, err := e.observations.RecordRun(observed); err != nil {
			e.log.Warn().Ctx(ctx).Err(err).Msg("recording observations failed")
			return
		}
	}

	for kind := range kinds {
		for _, state := range e.observations.StatesByKind(kind) {
			if !state.Exists || seen[state.Key] {
				continue
			}
			if _, err := e.observations.RecordDisappearance(state.Key); err != nil {
				e.log.Warn().Ctx(ctx).Err(err).Str("key", state.Key).Msg("recording disappearance failed")
			}
		}
	}
}

func (e *Engine) journalObserved(ctx context.Context, observed []types.Resource) {
	if e.journal == nil || len(observed) == 0 {
		return
	}
	counts := make(map[string]int)
	for _, r := range observed {
		counts[r.Kind]++
	}
	if err := e.journal.Append(journal.EntryObserved, "", "", counts); err != nil {
		e.log.Warn().Ctx(ctx).Err(err).Msg("journaling observations failed")
	}
}

func (e *Engine) planOne(ctx context.Context, spec types.ResourceSpec) (PlannedChange, []types.Resource, error) {
	adapter, ok := e.adapters.Get(spec.Kind)
	if !ok {
		return PlannedChange{}, nil, fmt.Errorf("no adapter for kind %q", spec.Kind)
	}

	intent := spec.State
	if intent == "" {
		intent = types.IntentPresent
	}
	if !intent.Valid() {
		return PlannedChange{}, nil, fmt.Errorf("resource %q: invalid state %q", spec.Name, spec.State)
	}

	filter := spec.Filter()
	if filter.IsZero() {
		// A zero filter matches the whole account; under absent intent
		// that is a delete of everything of the kind.
		return PlannedChange{}, nil, fmt.Errorf("%s spec matches the whole account: declare a name or id", spec.Kind)
	}

	candidates, err := e.findCandidates(ctx, adapter, spec)
	if err != nil {
		return PlannedChange{}, nil, fmt.Errorf("looking up %s %q: %w", spec.Kind, spec.Name, doapi.Normalize(err))
	}

	outcome := resolve.Classify(candidates, filter)
	e.metrics.RecordManaged(ctx, spec.Kind, int64(len(outcome.Matches)))

	decision, err := resolve.Decide(outcome, spec.Kind, filter, intent, func(r types.Resource) bool {
		return adapter.Drifted(r, spec)
	})
	if err != nil {
		var ambiguous *resolve.AmbiguousError
		if errors.As(err, &ambiguous) {
			e.metrics.RecordAmbiguous(ctx, spec.Kind)
			e.log.Error().
				Ctx(ctx).
				Str("kind", spec.Kind).
				Str("filter", filter.Describe()).
				Strs("ids", ambiguous.IDs).
				Msg("ambiguous match, halting")
		}
		return PlannedChange{}, nil, err
	}

	e.log.Debug().
		Str("kind", spec.Kind).
		Str("op", decision.Op).
		Str("reason", decision.Reason).
		Msg("planned")

	if e.journal != nil && decision.Mutates() {
		if err := e.journal.Append(journal.EntryPlanned, spec.Kind, decision.ResourceID, decision); err != nil {
			return PlannedChange{}, nil, fmt.Errorf("journaling plan: %w", err)
		}
	}

	var current *types.Resource
	if outcome.Cardinality == resolve.MatchOne {
		m := outcome.Match
		current = &m
	}
	return PlannedChange{Spec: spec, Decision: decision, Current: current}, candidates, nil
}

// findCandidates prefers spec-scoped lookup for kinds whose candidates
// live under a parent resource.
func (e *Engine) findCandidates(ctx context.Context, adapter resources.Adapter, spec types.ResourceSpec) ([]types.Resource, error) {
	if sf, ok := adapter.(resources.SpecFinder); ok {
		return sf.FindForSpec(ctx, spec)
	}
	return adapter.Find(ctx, spec.Filter())
}

// Apply plans and then executes. In check mode nothing is mutated but
// the summary still reports what would have changed.
func (e *Engine) Apply(ctx context.Context, specs []types.ResourceSpec) (*Summary, error) {
	ctx, span := telemetry.Tracer.Start(ctx, "atoll.apply")
	defer span.End()

	start := time.Now()
	summary := &Summary{StartTime: start}

	planned, err := e.Plan(ctx, specs)
	if err != nil {
		return nil, err
	}
	summary.Total = len(planned)

	for _, change := range planned {
		result := e.executeOne(ctx, change)
		summary.record(result)

		if result.Outcome.Failed() && !e.opts.ContinueOnFailure {
			break
		}
	}

	summary.Duration = time.Since(start)
	e.metrics.RecordReconcileDuration(ctx, e.opts.Check, summary.Duration.Seconds())
	e.log.Info().
		Ctx(ctx).
		Int("total", summary.Total).
		Int("changed", summary.Changed).
		Int("failed", summary.Failed).
		Int("skipped", summary.Skipped).
		Bool("check", e.opts.Check).
		Dur("duration", summary.Duration).
		Msg("run finished")

	return summary, nil
}

func (e *Engine) executeOne(ctx context.Context, change PlannedChange) RunResult {
	decision := change.Decision
	result := RunResult{Decision: decision}

	if !decision.Mutates() {
		result.Outcome = types.OpResult{Msg: decision.Reason}
		return result
	}

	// The guard and gate run in check mode too, so the reported
	// changed and skipped counts match what a real run would produce.
	if skip, reason := e.shouldSkip(ctx, decision); skip {
		result.Skipped = true
		result.SkipMsg = reason
		result.Outcome = types.OpResult{Msg: reason}
		if e.opts.Check {
			result.Outcome.Msg = "would skip: " + reason
			return result
		}
		e.journalSkip(decision, reason)
		return result
	}

	if e.opts.Check {
		// Report the mutation as if it ran; nothing goes upstream.
		result.Outcome = types.OpResult{Changed: true, Msg: fmt.Sprintf("would %s: %s", decision.Op, decision.Reason)}
		return result
	}

	if e.journal != nil {
		if err := e.journal.Append(journal.EntrySubmitted, decision.ResourceKind, decision.ResourceID, decision); err != nil {
			result.Outcome = types.OpResult{Err: &types.APIError{Message: fmt.Sprintf("journaling submission: %v", err)}}
			return result
		}
	}

	result.Outcome = e.dispatch(ctx, change)
	e.journalOutcome(decision, result.Outcome)
	e.metrics.RecordMutation(ctx, decision.ResourceKind, decision.Op, mutationStatus(result.Outcome))
	return result
}

func (e *Engine) shouldSkip(ctx context.Context, decision types.Decision) (bool, string) {
	if decision.IsDestructive() && !e.opts.AllowDestructive {
		return true, "destructive operations disabled"
	}

	if e.gate != nil {
		allowed, reason, err := e.gate.Allow(ctx, decision)
		if err != nil {
			return true, fmt.Sprintf("policy check error: %v", err)
		}
		if !allowed {
			return true, fmt.Sprintf("blocked by policy: %s", reason)
		}
	}

	return false, ""
}

// dispatch runs the mutation and folds the error cases into OpResult.
// A timeout after submission reports changed: the mutation happened,
// it just never confirmed terminal.
func (e *Engine) dispatch(ctx context.Context, change PlannedChange) types.OpResult {
	adapter, _ := e.adapters.Get(change.Decision.ResourceKind)

	switch change.Decision.Op {
	case types.OpCreate:
		out, err := adapter.Create(ctx, change.Spec)
		if err != nil {
			return failedOutcome(err)
		}
		if out.Rescued {
			e.metrics.RecordRescue(ctx, change.Decision.ResourceKind)
			return types.OpResult{Changed: false, Msg: "already exists", Resource: out.Resource}
		}
		return types.OpResult{Changed: true, Msg: "created", Resource: out.Resource}

	case types.OpUpdate:
		updated, err := adapter.Update(ctx, *change.Current, change.Spec)
		if err != nil {
			return failedOutcome(err)
		}
		return types.OpResult{Changed: true, Msg: "updated", Resource: updated}

	case types.OpDelete:
		if err := adapter.Delete(ctx, *change.Current); err != nil {
			return failedOutcome(err)
		}
		return types.OpResult{Changed: true, Msg: "deleted"}

	default:
		return types.OpResult{Err: &types.APIError{Message: fmt.Sprintf("unexpected op %q", change.Decision.Op)}}
	}
}

func failedOutcome(err error) types.OpResult {
	var unconfirmed *await.UnconfirmedError
	if errors.As(err, &unconfirmed) {
		return types.OpResult{Changed: true, Err: doapi.Normalize(err)}
	}
	return types.OpResult{Err: doapi.Normalize(err)}
}

func (e *Engine) journalSkip(decision types.Decision, reason string) {
	if e.journal == nil {
		return
	}
	if err := e.journal.Append(journal.EntrySkipped, decision.ResourceKind, decision.ResourceID, map[string]string{"reason": reason}); err != nil {
		e.log.Warn().Err(err).Msg("journaling skip failed")
	}
}

func (e *Engine) journalOutcome(decision types.Decision, outcome types.OpResult) {
	if e.journal == nil {
		return
	}

	var err error
	switch {
	case outcome.Failed() && outcome.Changed:
		err = e.journal.AppendError(journal.EntryUnconfirmed, decision.ResourceKind, decision.ResourceID, decision, outcome.Err)
	case outcome.Failed():
		err = e.journal.AppendError(journal.EntryFailed, decision.ResourceKind, decision.ResourceID, decision, outcome.Err)
	default:
		err = e.journal.Append(journal.EntryConfirmed, decision.ResourceKind, decision.ResourceID, outcome)
	}
	if err != nil {
		e.log.Warn().Err(err).Msg("journaling outcome failed")
	}
}

func mutationStatus(outcome types.OpResult) string {
	switch {
	case outcome.Failed() && outcome.Changed:
		return "unconfirmed"
	case outcome.Failed():
		return "failed"
	default:
		return "confirmed"
	}
}
