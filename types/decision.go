package types

import (
	"fmt"
	"time"
)

// Operations a resolution can decide on.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
	OpNoop   = "noop"
)

// Decision is one resolved action on one declared resource.
type Decision struct {
	Op           string       `json:"op"`
	ResourceKind string       `json:"resource_kind"`
	ResourceID   string       `json:"resource_id,omitempty"`
	Filter       LookupFilter `json:"filter"`
	Reason       string       `json:"reason"`
	CreatedAt    time.Time    `json:"created_at"`
}

// Validate ensures the decision has required fields.
func (d *Decision) Validate() error {
	switch d.Op {
	case OpCreate, OpUpdate, OpDelete, OpNoop:
	default:
		return fmt.Errorf("unknown op %q", d.Op)
	}
	if d.ResourceKind == "" {
		return fmt.Errorf("decision resource kind cannot be empty")
	}
	// Create targets a resource that does not exist yet.
	if d.Op != OpCreate && d.Op != OpNoop && d.ResourceID == "" {
		return fmt.Errorf("decision resource ID cannot be empty")
	}
	return nil
}

// IsDestructive reports whether executing the decision removes a resource.
func (d *Decision) IsDestructive() bool {
	return d.Op == OpDelete
}

// Mutates reports whether executing the decision issues a write.
func (d *Decision) Mutates() bool {
	return d.Op != OpNoop
}
