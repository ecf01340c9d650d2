// Package resolve classifies fetched candidates against a lookup filter
// and turns the classification into a present/absent decision.
//
// DigitalOcean does not enforce name uniqueness for most resource
// types, so more-than-one match is a hard stop requiring the caller to
// disambiguate (typically via an explicit ID) rather than a guess at
// which resource was intended.
package resolve

import (
	"fmt"
	"strings"
	"time"

	"github.com/atoll-cloud/atoll/types"
)

// Cardinality of a classification.
type Cardinality int

const (
	MatchNone Cardinality = iota
	MatchOne
	MatchMany
)

// Outcome is the result of classifying candidates against a filter.
// It is computed freshly on every resolution; nothing is cached across
// calls.
type Outcome struct {
	Cardinality Cardinality
	// Match is set only for MatchOne.
	Match types.Resource
	// Matches holds every match, in candidate order.
	Matches []types.Resource
}

// IDs lists the matched resource identifiers in order.
func (o Outcome) IDs() []string {
	ids := make([]string, 0, len(o.Matches))
	for _, r := range o.Matches {
		ids = append(ids, r.ID)
	}
	return ids
}

// Classify filters candidates by exact equality on the filter's set
// fields and reports the cardinality of the result.
func Classify(candidates []types.Resource, filter types.LookupFilter) Outcome {
	var out Outcome
	for _, r := range candidates {
		if filter.Matches(r) {
			out.Matches = append(out.Matches, r)
		}
	}
	switch len(out.Matches) {
	case 0:
		out.Cardinality = MatchNone
	case 1:
		out.Cardinality = MatchOne
		out.Match = out.Matches[0]
	default:
		out.Cardinality = MatchMany
	}
	return out
}

// AmbiguousError reports a lookup that matched more than one resource.
type AmbiguousError struct {
	Kind   string
	Filter types.LookupFilter
	IDs    []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("There are currently %d %ss %s: %s",
		len(e.IDs), e.Kind, e.Filter.Describe(), strings.Join(e.IDs, ", "))
}

// Decide maps a classification and a declared intent to an operation.
// drifted reports whether the single match differs from the declared
// spec on some mutable field; it is only consulted under present intent
// with exactly one match.
func Decide(o Outcome, kind string, filter types.LookupFilter, intent types.Intent, drifted func(types.Resource) bool) (types.Decision, error) {
	d := types.Decision{
		ResourceKind: kind,
		Filter:       filter,
		CreatedAt:    time.Now(),
	}

	if o.Cardinality == MatchMany {
		return d, &AmbiguousError{Kind: kind, Filter: filter, IDs: o.IDs()}
	}

	switch intent {
	case types.IntentPresent:
		switch o.Cardinality {
		case MatchNone:
			d.Op = types.OpCreate
			d.Reason = "no matching resource exists"
		case MatchOne:
			d.ResourceID = o.Match.ID
			if drifted != nil && drifted(o.Match) {
				d.Op = types.OpUpdate
				d.Reason = "resource exists but differs from declared configuration"
			} else {
				d.Op = types.OpNoop
				d.Reason = "resource already matches declared configuration"
			}
		}
	case types.IntentAbsent:
		switch o.Cardinality {
		case MatchNone:
			d.Op = types.OpNoop
			d.Reason = "no matching resource exists"
		case MatchOne:
			d.Op = types.OpDelete
			d.ResourceID = o.Match.ID
			d.Reason = "resource exists and is declared absent"
		}
	default:
		return d, fmt.Errorf("invalid intent %q", intent)
	}

	return d, nil
}
