package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atoll-cloud/atoll/types"
)

const protectDatabases = `package atoll.protect

import rego.v1

decision := "deny" if {
	input.decision.op == "delete"
	input.decision.resource_kind == "database"
}

reason := "databases may not be deleted by automation" if {
	decision == "deny"
}
`

func TestGateDeniesMatchingDecision(t *testing.T) {
	ctx := context.Background()
	gate := NewGate(zerolog.Nop())

	require.NoError(t, gate.LoadPolicy(ctx, "protect", protectDatabases))

	allowed, reason, err := gate.Allow(ctx, types.Decision{
		Op:           types.OpDelete,
		ResourceKind: "database",
		ResourceID:   "db-1",
	})
	require.NoError(t, err)
	assert.False(t, allowed, "delete of database should be denied")
	assert.Equal(t, "databases may not be deleted by automation", reason)
}

func TestGateAllowsNonMatchingDecision(t *testing.T) {
	ctx := context.Background()
	gate := NewGate(zerolog.Nop())

	require.NoError(t, gate.LoadPolicy(ctx, "protect", protectDatabases))

	tests := []types.Decision{
		{Op: types.OpCreate, ResourceKind: "database"},
		{Op: types.OpDelete, ResourceKind: "droplet", ResourceID: "42"},
	}

	for _, decision := range tests {
		allowed, _, err := gate.Allow(ctx, decision)
		require.NoError(t, err)
		assert.True(t, allowed, "%s %s should be allowed", decision.Op, decision.ResourceKind)
	}
}

func TestGateWithoutPoliciesAllowsEverything(t *testing.T) {
	gate := NewGate(zerolog.Nop())

	allowed, _, err := gate.Allow(context.Background(), types.Decision{
		Op:           types.OpDelete,
		ResourceKind: "database",
		ResourceID:   "db-1",
	})
	require.NoError(t, err)
	assert.True(t, allowed, "empty gate must allow")
}

func TestGateLoadDir(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "protect.rego"), []byte(protectDatabases), 0644))
	// Non-rego files are ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a policy"), 0644))

	gate := NewGate(zerolog.Nop())
	require.NoError(t, gate.LoadDir(ctx, dir))

	allowed, _, err := gate.Allow(ctx, types.Decision{
		Op:           types.OpDelete,
		ResourceKind: "database",
		ResourceID:   "db-1",
	})
	require.NoError(t, err)
	assert.False(t, allowed, "policy from dir should deny")
}

func TestGateRejectsInvalidPolicy(t *testing.T) {
	gate := NewGate(zerolog.Nop())

	err := gate.LoadPolicy(context.Background(), "broken", "package atoll.broken\n\ndecision :=")
	assert.Error(t, err, "invalid rego should fail to compile")
}
