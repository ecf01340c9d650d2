// Package resources holds the per-type adapters between declared
// resource specs and the DigitalOcean API: build a lookup, fetch
// candidates, mutate, and wait for asynchronous work to settle.
package resources

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/digitalocean/godo"
	"github.com/rs/zerolog"

	"github.com/atoll-cloud/atoll/await"
	"github.com/atoll-cloud/atoll/paginate"
	"github.com/atoll-cloud/atoll/telemetry"
	"github.com/atoll-cloud/atoll/types"
)

// CreateOutcome reports what a create call actually did. Rescued is set
// when a duplicate-unique-value failure was resolved to the pre-existing
// record, which callers report as unchanged.
type CreateOutcome struct {
	Resource *types.Resource
	Rescued  bool
}

// Adapter manages one DigitalOcean resource kind.
type Adapter interface {
	Kind() string

	// Find fetches every candidate the filter could match. Candidates
	// are returned in listing order; classification happens upstream.
	Find(ctx context.Context, filter types.LookupFilter) ([]types.Resource, error)

	// Create provisions the declared resource and, for asynchronous
	// kinds, waits until it settles or the timeout budget runs out.
	Create(ctx context.Context, spec types.ResourceSpec) (CreateOutcome, error)

	// Update reconciles a drifted resource toward the declared spec.
	Update(ctx context.Context, current types.Resource, spec types.ResourceSpec) (*types.Resource, error)

	// Delete removes the resource.
	Delete(ctx context.Context, current types.Resource) error

	// Drifted reports whether the existing resource differs from the
	// declared spec on a mutable field.
	Drifted(current types.Resource, spec types.ResourceSpec) bool
}

// SpecFinder is implemented by adapters whose candidates are scoped by
// the declared spec beyond the generic filter (DNS records live under
// their domain, node pools under their cluster). The engine prefers it
// over Find when present.
type SpecFinder interface {
	FindForSpec(ctx context.Context, spec types.ResourceSpec) ([]types.Resource, error)
}

// Defaults are the injected timing knobs every adapter shares.
// Metrics may be nil; pages and polls then go uncounted.
type Defaults struct {
	PageSize     int
	Timeout      time.Duration
	PollInterval time.Duration
	Metrics      *telemetry.Metrics
}

// Await derives the poller configuration.
func (d Defaults) Await() await.Config {
	cfg := await.Config{Timeout: d.Timeout, Interval: d.PollInterval}
	if d.Metrics != nil {
		cfg.OnPoll = d.Metrics.RecordPoll
	}
	return cfg
}

// Paginate derives the paginator options.
func (d Defaults) Paginate() paginate.Options {
	opts := paginate.Options{PageSize: d.PageSize}
	if d.Metrics != nil {
		opts.OnPage = d.Metrics.RecordPage
	}
	return opts
}

// Registry resolves adapters by kind.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry wires every adapter against one godo client.
func NewRegistry(client *godo.Client, defaults Defaults, log zerolog.Logger) *Registry {
	r := &Registry{adapters: map[string]Adapter{}}
	r.Register(newDropletAdapter(client.Droplets, client.DropletActions, client.Actions, defaults, log))
	r.Register(newSSHKeyAdapter(client.Keys, defaults, log))
	r.Register(newVPCAdapter(client.VPCs, defaults, log))
	r.Register(newFirewallAdapter(client.Firewalls, defaults, log))
	r.Register(newVolumeAdapter(client.Storage, client.StorageActions, client.Actions, defaults, log))
	r.Register(newDomainAdapter(client.Domains, defaults, log))
	r.Register(newRecordAdapter(client.Domains, defaults, log))
	r.Register(newReservedIPAdapter(client.ReservedIPs, client.ReservedIPActions, client.Actions, defaults, log))
	r.Register(newDatabaseAdapter(client.Databases, defaults, log))
	r.Register(newNodePoolAdapter(client.Kubernetes, defaults, log))
	r.Register(newSnapshotAdapter(client.Snapshots, defaults, log))
	r.Register(newTagAdapter(client.Tags, defaults, log))
	return r
}

// Register adds or replaces an adapter.
func (r *Registry) Register(a Adapter) {
	r.adapters[a.Kind()] = a
}

// Get returns the adapter for a kind.
func (r *Registry) Get(kind string) (Adapter, bool) {
	a, ok := r.adapters[kind]
	return a, ok
}

// Kinds lists registered kinds, sorted.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.adapters))
	for k := range r.adapters {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Shared conversion helpers.

func regionSlug(r *godo.Region) string {
	if r == nil {
		return ""
	}
	return r.Slug
}

func parseCreated(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func intAttr(attrs map[string]string, key string, fallback int) int {
	n, err := strconv.Atoi(attrs[key])
	if err != nil {
		return fallback
	}
	return n
}
