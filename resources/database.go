package resources

import (
	"context"
	"fmt"

	"github.com/digitalocean/godo"
	"github.com/rs/zerolog"

	"github.com/atoll-cloud/atoll/await"
	"github.com/atoll-cloud/atoll/paginate"
	"github.com/atoll-cloud/atoll/types"
)

type databaseService interface {
	List(ctx context.Context, opt *godo.ListOptions) ([]godo.Database, *godo.Response, error)
	Get(ctx context.Context, id string) (*godo.Database, *godo.Response, error)
	Create(ctx context.Context, req *godo.DatabaseCreateRequest) (*godo.Database, *godo.Response, error)
	Delete(ctx context.Context, id string) (*godo.Response, error)
}

type databaseAdapter struct {
	databases databaseService
	defaults  Defaults
	log       zerolog.Logger
}

func newDatabaseAdapter(databases databaseService, defaults Defaults, log zerolog.Logger) *databaseAdapter {
	return &databaseAdapter{databases: databases, defaults: defaults, log: log.With().Str("kind", "database").Logger()}
}

func (a *databaseAdapter) Kind() string { return "database" }

func (a *databaseAdapter) Find(ctx context.Context, filter types.LookupFilter) ([]types.Resource, error) {
	clusters, err := paginate.All(ctx, a.databases.List, a.defaults.Paginate())
	if err != nil {
		return nil, fmt.Errorf("listing database clusters: %w", err)
	}

	out := make([]types.Resource, 0, len(clusters))
	for _, c := range clusters {
		out = append(out, databaseResource(c))
	}
	return out, nil
}

func (a *databaseAdapter) Create(ctx context.Context, spec types.ResourceSpec) (CreateOutcome, error) {
	req := &godo.DatabaseCreateRequest{
		Name:       spec.Name,
		EngineSlug: spec.Attrs["engine"],
		Version:    spec.Attrs["version"],
		Region:     spec.Region,
		SizeSlug:   spec.Size,
		NumNodes:   intAttr(spec.Attrs, "nodes", 1),
	}
	if req.EngineSlug == "" {
		return CreateOutcome{}, fmt.Errorf("database %q: engine attribute is required", spec.Name)
	}

	created, _, err := a.databases.Create(ctx, req)
	if err != nil {
		return CreateOutcome{}, fmt.Errorf("creating database cluster %q: %w", spec.Name, err)
	}
	a.log.Info().Str("cluster_id", created.ID).Str("engine", req.EngineSlug).Msg("database create submitted")

	// Cluster provisioning takes minutes: status "creating" until the
	// cluster comes "online".
	last := created
	fetch := func(ctx context.Context) (string, error) {
		c, _, err := a.databases.Get(ctx, created.ID)
		if err != nil {
			return "", err
		}
		last = c
		return databasePhase(c.Status), nil
	}

	res, err := await.Until(ctx, fetch, databasePhase(created.Status), a.defaults.Await())
	if err != nil {
		return CreateOutcome{}, fmt.Errorf("awaiting database cluster %s: %w", created.ID, err)
	}
	if res.TimedOut {
		return CreateOutcome{}, &await.UnconfirmedError{Kind: "database", ID: created.ID, Status: last.Status}
	}

	r := databaseResource(*last)
	return CreateOutcome{Resource: &r}, nil
}

func (a *databaseAdapter) Update(ctx context.Context, current types.Resource, spec types.ResourceSpec) (*types.Resource, error) {
	return nil, fmt.Errorf("database cluster changes are not supported; recreate under a new name")
}

func (a *databaseAdapter) Delete(ctx context.Context, current types.Resource) error {
	if _, err := a.databases.Delete(ctx, current.ID); err != nil {
		return fmt.Errorf("deleting database cluster %s: %w", current.ID, err)
	}
	return nil
}

func (a *databaseAdapter) Drifted(types.Resource, types.ResourceSpec) bool { return false }

func databasePhase(status string) string {
	switch status {
	case "online":
		return await.StatusCompleted
	case "error":
		return await.StatusErrored
	default: // "creating", "resizing", "migrating"
		return await.StatusInProgress
	}
}

func databaseResource(d godo.Database) types.Resource {
	return types.Resource{
		ID:     d.ID,
		Kind:   "database",
		Region: d.RegionSlug,
		Name:   d.Name,
		Status: d.Status,
		Tags:   d.Tags,
		Attrs: map[string]string{
			"engine":  d.EngineSlug,
			"version": d.VersionSlug,
			"size":    d.SizeSlug,
		},
		CreatedAt: d.CreatedAt,
	}
}
