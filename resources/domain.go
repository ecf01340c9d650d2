package resources

import (
	"context"
	"fmt"

	"github.com/digitalocean/godo"
	"github.com/rs/zerolog"

	"github.com/atoll-cloud/atoll/doapi"
	"github.com/atoll-cloud/atoll/paginate"
	"github.com/atoll-cloud/atoll/types"
)

type domainService interface {
	List(ctx context.Context, opt *godo.ListOptions) ([]godo.Domain, *godo.Response, error)
	Get(ctx context.Context, name string) (*godo.Domain, *godo.Response, error)
	Create(ctx context.Context, req *godo.DomainCreateRequest) (*godo.Domain, *godo.Response, error)
	Delete(ctx context.Context, name string) (*godo.Response, error)
}

type domainAdapter struct {
	domains  domainService
	defaults Defaults
	log      zerolog.Logger
}

func newDomainAdapter(domains domainService, defaults Defaults, log zerolog.Logger) *domainAdapter {
	return &domainAdapter{domains: domains, defaults: defaults, log: log.With().Str("kind", "domain").Logger()}
}

func (a *domainAdapter) Kind() string { return "domain" }

func (a *domainAdapter) Find(ctx context.Context, filter types.LookupFilter) ([]types.Resource, error) {
	domains, err := paginate.All(ctx, a.domains.List, a.defaults.Paginate())
	if err != nil {
		return nil, fmt.Errorf("listing domains: %w", err)
	}

	out := make([]types.Resource, 0, len(domains))
	for _, d := range domains {
		out = append(out, domainResource(d))
	}
	return out, nil
}

// Create registers a domain. Domain names are globally unique, so a
// duplicate response resolves to the already-registered domain on this
// account via a single follow-up get.
func (a *domainAdapter) Create(ctx context.Context, spec types.ResourceSpec) (CreateOutcome, error) {
	created, _, err := a.domains.Create(ctx, &godo.DomainCreateRequest{
		Name:      spec.Name,
		IPAddress: spec.Attrs["ip"],
	})
	if err == nil {
		r := domainResource(*created)
		return CreateOutcome{Resource: &r}, nil
	}
	if !doapi.IsDuplicate(err) {
		return CreateOutcome{}, fmt.Errorf("creating domain %q: %w", spec.Name, err)
	}

	a.log.Info().Str("name", spec.Name).Msg("domain already registered, resolving existing record")
	existing, _, lookupErr := a.domains.Get(ctx, spec.Name)
	if lookupErr != nil {
		return CreateOutcome{}, fmt.Errorf("resolving existing domain after duplicate response: %w", lookupErr)
	}
	r := domainResource(*existing)
	return CreateOutcome{Resource: &r, Rescued: true}, nil
}

func (a *domainAdapter) Update(ctx context.Context, current types.Resource, spec types.ResourceSpec) (*types.Resource, error) {
	return nil, fmt.Errorf("domains have no mutable fields")
}

func (a *domainAdapter) Delete(ctx context.Context, current types.Resource) error {
	if _, err := a.domains.Delete(ctx, current.Name); err != nil {
		return fmt.Errorf("deleting domain %s: %w", current.Name, err)
	}
	return nil
}

func (a *domainAdapter) Drifted(types.Resource, types.ResourceSpec) bool { return false }

func domainResource(d godo.Domain) types.Resource {
	return types.Resource{
		ID:   d.Name,
		Kind: "domain",
		Name: d.Name,
	}
}
