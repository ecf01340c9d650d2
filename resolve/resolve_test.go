package resolve

import (
	"errors"
	"testing"

	"github.com/atoll-cloud/atoll/types"
)

func candidates() []types.Resource {
	return []types.Resource{
		{ID: "111", Kind: "droplet", Name: "web-1", Region: "nyc3"},
		{ID: "222", Kind: "droplet", Name: "web-1", Region: "nyc3"},
		{ID: "333", Kind: "droplet", Name: "db-1", Region: "ams3"},
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		filter  types.LookupFilter
		want    Cardinality
		wantIDs []string
	}{
		{"zero matches", types.LookupFilter{Name: "cache-1"}, MatchNone, nil},
		{"single match", types.LookupFilter{Name: "db-1", Region: "ams3"}, MatchOne, []string{"333"}},
		{"multiple matches", types.LookupFilter{Name: "web-1", Region: "nyc3"}, MatchMany, []string{"111", "222"}},
		{"id disambiguates", types.LookupFilter{ID: "222"}, MatchOne, []string{"222"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(candidates(), tt.filter)
			if got.Cardinality != tt.want {
				t.Fatalf("Cardinality = %v, want %v", got.Cardinality, tt.want)
			}
			ids := got.IDs()
			if len(ids) != len(tt.wantIDs) {
				t.Fatalf("IDs = %v, want %v", ids, tt.wantIDs)
			}
			for i := range ids {
				if ids[i] != tt.wantIDs[i] {
					t.Errorf("IDs = %v, want %v", ids, tt.wantIDs)
				}
			}
		})
	}
}

func TestDecideMatrix(t *testing.T) {
	drifted := func(types.Resource) bool { return true }
	clean := func(types.Resource) bool { return false }

	tests := []struct {
		name    string
		filter  types.LookupFilter
		intent  types.Intent
		drift   func(types.Resource) bool
		wantOp  string
		wantErr bool
	}{
		{"present zero -> create", types.LookupFilter{Name: "cache-1"}, types.IntentPresent, clean, types.OpCreate, false},
		{"present one clean -> noop", types.LookupFilter{ID: "333"}, types.IntentPresent, clean, types.OpNoop, false},
		{"present one drifted -> update", types.LookupFilter{ID: "333"}, types.IntentPresent, drifted, types.OpUpdate, false},
		{"absent zero -> noop", types.LookupFilter{Name: "cache-1"}, types.IntentAbsent, nil, types.OpNoop, false},
		{"absent one -> delete", types.LookupFilter{ID: "333"}, types.IntentAbsent, nil, types.OpDelete, false},
		{"present many -> ambiguous", types.LookupFilter{Name: "web-1"}, types.IntentPresent, clean, "", true},
		{"absent many -> ambiguous", types.LookupFilter{Name: "web-1"}, types.IntentAbsent, nil, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := Classify(candidates(), tt.filter)
			d, err := Decide(outcome, "droplet", tt.filter, tt.intent, tt.drift)
			if tt.wantErr {
				var ambiguous *AmbiguousError
				if !errors.As(err, &ambiguous) {
					t.Fatalf("error = %v, want AmbiguousError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decide() error = %v", err)
			}
			if d.Op != tt.wantOp {
				t.Errorf("Op = %q, want %q", d.Op, tt.wantOp)
			}
			if d.Op == types.OpDelete || d.Op == types.OpUpdate {
				if d.ResourceID == "" {
					t.Error("mutating decision must carry the matched resource ID")
				}
			}
		})
	}
}

func TestAmbiguousErrorEnumeratesIDs(t *testing.T) {
	filter := types.LookupFilter{Name: "web-1", Region: "nyc3"}
	outcome := Classify(candidates(), filter)
	_, err := Decide(outcome, "droplet", filter, types.IntentPresent, nil)

	want := `There are currently 2 droplets named "web-1" in nyc3: 111, 222`
	if err == nil || err.Error() != want {
		t.Errorf("error = %v, want %q", err, want)
	}
}

func TestClassifyIsFresh(t *testing.T) {
	filter := types.LookupFilter{Name: "db-1"}
	first := Classify(candidates(), filter)

	// A second resolution over changed candidates must not see stale state.
	second := Classify(nil, filter)
	if second.Cardinality != MatchNone {
		t.Errorf("second classification = %v, want MatchNone", second.Cardinality)
	}
	if first.Cardinality != MatchOne {
		t.Errorf("first classification mutated: %v", first.Cardinality)
	}
}
