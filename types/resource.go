package types

import (
	"fmt"
	"strings"
	"time"
)

// Resource is the normalized view of a DigitalOcean resource
// (droplet, ssh_key, vpc, volume, database, ...)
type Resource struct {
	ID        string            `json:"id"`
	Kind      string            `json:"kind"`
	Region    string            `json:"region"`
	Name      string            `json:"name"`
	Status    string            `json:"status"`
	Tags      []string          `json:"tags,omitempty"`
	Attrs     map[string]string `json:"attrs,omitempty"`
	CreatedAt time.Time         `json:"created_at,omitempty"`
}

// HasTag reports whether the resource carries the given tag.
func (r *Resource) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Attr returns a named attribute or "".
func (r *Resource) Attr(key string) string {
	if r.Attrs == nil {
		return ""
	}
	return r.Attrs[key]
}

// LookupFilter is the matching criteria one resolution runs against.
// Matching is exact equality on every set field; empty fields are
// ignored. Immutable for the duration of a resolution.
type LookupFilter struct {
	ID     string `json:"id,omitempty"`
	Name   string `json:"name,omitempty"`
	Region string `json:"region,omitempty"`
	Tag    string `json:"tag,omitempty"`
}

// Matches reports whether the resource satisfies every set field.
func (f LookupFilter) Matches(r Resource) bool {
	if f.ID != "" && r.ID != f.ID {
		return false
	}
	if f.Name != "" && r.Name != f.Name {
		return false
	}
	if f.Region != "" && r.Region != f.Region {
		return false
	}
	if f.Tag != "" && !r.HasTag(f.Tag) {
		return false
	}
	return true
}

// IsZero reports whether no field is set.
func (f LookupFilter) IsZero() bool {
	return f == LookupFilter{}
}

// Describe renders the filter for error messages, e.g.
// `named "web-1" in nyc3`.
func (f LookupFilter) Describe() string {
	var parts []string
	if f.ID != "" {
		parts = append(parts, fmt.Sprintf("with ID %s", f.ID))
	}
	if f.Name != "" {
		parts = append(parts, fmt.Sprintf("named %q", f.Name))
	}
	if f.Region != "" {
		parts = append(parts, fmt.Sprintf("in %s", f.Region))
	}
	if f.Tag != "" {
		parts = append(parts, fmt.Sprintf("tagged %q", f.Tag))
	}
	if len(parts) == 0 {
		return "matching everything"
	}
	return strings.Join(parts, " ")
}

// ResourceSpec declares one desired resource in a manifest.
type ResourceSpec struct {
	Kind   string            `yaml:"kind" json:"kind"`
	Name   string            `yaml:"name" json:"name"`
	State  Intent            `yaml:"state,omitempty" json:"state,omitempty"`
	Region string            `yaml:"region,omitempty" json:"region,omitempty"`
	Size   string            `yaml:"size,omitempty" json:"size,omitempty"`
	Image  string            `yaml:"image,omitempty" json:"image,omitempty"`
	Tags   []string          `yaml:"tags,omitempty" json:"tags,omitempty"`
	Attrs  map[string]string `yaml:"attrs,omitempty" json:"attrs,omitempty"`
}

// Filter derives the lookup filter a resolution of this spec uses.
func (s ResourceSpec) Filter() LookupFilter {
	if id := s.Attrs["id"]; id != "" {
		return LookupFilter{ID: id}
	}
	return LookupFilter{Name: s.Name, Region: s.Region}
}

// Intent is the declared target state of a resource.
type Intent string

const (
	IntentPresent Intent = "present"
	IntentAbsent  Intent = "absent"
)

// Valid reports whether the intent is one of the two declared states.
func (i Intent) Valid() bool {
	return i == IntentPresent || i == IntentAbsent
}
