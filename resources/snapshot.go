package resources

import (
	"context"
	"fmt"
	"strings"

	"github.com/digitalocean/godo"
	"github.com/rs/zerolog"

	"github.com/atoll-cloud/atoll/paginate"
	"github.com/atoll-cloud/atoll/types"
)

type snapshotService interface {
	List(ctx context.Context, opt *godo.ListOptions) ([]godo.Snapshot, *godo.Response, error)
	Delete(ctx context.Context, id string) (*godo.Response, error)
}

// snapshotAdapter is absent-only: snapshots come into existence through
// droplet and volume actions, never through a declared create.
type snapshotAdapter struct {
	snapshots snapshotService
	defaults  Defaults
	log       zerolog.Logger
}

func newSnapshotAdapter(snapshots snapshotService, defaults Defaults, log zerolog.Logger) *snapshotAdapter {
	return &snapshotAdapter{snapshots: snapshots, defaults: defaults, log: log.With().Str("kind", "snapshot").Logger()}
}

func (a *snapshotAdapter) Kind() string { return "snapshot" }

func (a *snapshotAdapter) Find(ctx context.Context, filter types.LookupFilter) ([]types.Resource, error) {
	snapshots, err := paginate.All(ctx, a.snapshots.List, a.defaults.Paginate())
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}

	out := make([]types.Resource, 0, len(snapshots))
	for _, s := range snapshots {
		out = append(out, snapshotResource(s))
	}
	return out, nil
}

func (a *snapshotAdapter) Create(ctx context.Context, spec types.ResourceSpec) (CreateOutcome, error) {
	return CreateOutcome{}, fmt.Errorf("snapshots are created through droplet or volume actions, not declared present")
}

func (a *snapshotAdapter) Update(ctx context.Context, current types.Resource, spec types.ResourceSpec) (*types.Resource, error) {
	return nil, fmt.Errorf("snapshots have no mutable fields")
}

func (a *snapshotAdapter) Delete(ctx context.Context, current types.Resource) error {
	if _, err := a.snapshots.Delete(ctx, current.ID); err != nil {
		return fmt.Errorf("deleting snapshot %s: %w", current.ID, err)
	}
	return nil
}

func (a *snapshotAdapter) Drifted(types.Resource, types.ResourceSpec) bool { return false }

func snapshotResource(s godo.Snapshot) types.Resource {
	return types.Resource{
		ID:     s.ID,
		Kind:   "snapshot",
		Region: strings.Join(s.Regions, ","),
		Name:   s.Name,
		Attrs: map[string]string{
			"resource_id":   s.ResourceID,
			"resource_type": s.ResourceType,
		},
		CreatedAt: parseCreated(s.Created),
	}
}
