package types

import "testing"

func TestLookupFilterMatches(t *testing.T) {
	droplet := Resource{
		ID:     "111",
		Kind:   "droplet",
		Region: "nyc3",
		Name:   "web-1",
		Status: "active",
		Tags:   []string{"web", "prod"},
	}

	tests := []struct {
		name   string
		filter LookupFilter
		want   bool
	}{
		{"empty filter matches", LookupFilter{}, true},
		{"name and region match", LookupFilter{Name: "web-1", Region: "nyc3"}, true},
		{"name matches region differs", LookupFilter{Name: "web-1", Region: "sfo2"}, false},
		{"id alone", LookupFilter{ID: "111"}, true},
		{"wrong id", LookupFilter{ID: "222"}, false},
		{"tag match", LookupFilter{Tag: "prod"}, true},
		{"tag miss", LookupFilter{Tag: "staging"}, false},
		{"no prefix matching", LookupFilter{Name: "web"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(droplet); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLookupFilterDescribe(t *testing.T) {
	f := LookupFilter{Name: "web-1", Region: "nyc3"}
	got := f.Describe()
	want := `named "web-1" in nyc3`
	if got != want {
		t.Errorf("Describe() = %q, want %q", got, want)
	}
}

func TestResourceSpecFilter(t *testing.T) {
	spec := ResourceSpec{Kind: "droplet", Name: "web-1", Region: "nyc3"}
	if got := spec.Filter(); got != (LookupFilter{Name: "web-1", Region: "nyc3"}) {
		t.Errorf("Filter() = %+v", got)
	}

	spec.Attrs = map[string]string{"id": "42"}
	if got := spec.Filter(); got != (LookupFilter{ID: "42"}) {
		t.Errorf("id filter wins: got %+v", got)
	}
}

func TestDecisionValidate(t *testing.T) {
	tests := []struct {
		name    string
		d       Decision
		wantErr bool
	}{
		{"valid create", Decision{Op: OpCreate, ResourceKind: "droplet"}, false},
		{"valid delete", Decision{Op: OpDelete, ResourceKind: "droplet", ResourceID: "1"}, false},
		{"delete without id", Decision{Op: OpDelete, ResourceKind: "droplet"}, true},
		{"unknown op", Decision{Op: "retire", ResourceKind: "droplet"}, true},
		{"missing kind", Decision{Op: OpCreate}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.d.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
