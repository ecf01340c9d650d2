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

type tagService interface {
	List(ctx context.Context, opt *godo.ListOptions) ([]godo.Tag, *godo.Response, error)
	Get(ctx context.Context, name string) (*godo.Tag, *godo.Response, error)
	Create(ctx context.Context, req *godo.TagCreateRequest) (*godo.Tag, *godo.Response, error)
	Delete(ctx context.Context, name string) (*godo.Response, error)
}

type tagAdapter struct {
	tags     tagService
	defaults Defaults
	log      zerolog.Logger
}

func newTagAdapter(tags tagService, defaults Defaults, log zerolog.Logger) *tagAdapter {
	return &tagAdapter{tags: tags, defaults: defaults, log: log.With().Str("kind", "tag").Logger()}
}

func (a *tagAdapter) Kind() string { return "tag" }

func (a *tagAdapter) Find(ctx context.Context, filter types.LookupFilter) ([]types.Resource, error) {
	tags, err := paginate.All(ctx, a.tags.List, a.defaults.Paginate())
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}

	out := make([]types.Resource, 0, len(tags))
	for _, t := range tags {
		out = append(out, tagResource(t.Name))
	}
	return out, nil
}

// Create registers a tag name. Tag names are unique per account, so a
// duplicate response resolves to the existing tag.
func (a *tagAdapter) Create(ctx context.Context, spec types.ResourceSpec) (CreateOutcome, error) {
	created, _, err := a.tags.Create(ctx, &godo.TagCreateRequest{Name: spec.Name})
	if err == nil {
		r := tagResource(created.Name)
		return CreateOutcome{Resource: &r}, nil
	}
	if !doapi.IsDuplicate(err) {
		return CreateOutcome{}, fmt.Errorf("creating tag %q: %w", spec.Name, err)
	}

	existing, _, lookupErr := a.tags.Get(ctx, spec.Name)
	if lookupErr != nil {
		return CreateOutcome{}, fmt.Errorf("resolving existing tag after duplicate response: %w", lookupErr)
	}
	r := tagResource(existing.Name)
	return CreateOutcome{Resource: &r, Rescued: true}, nil
}

func (a *tagAdapter) Update(ctx context.Context, current types.Resource, spec types.ResourceSpec) (*types.Resource, error) {
	return nil, fmt.Errorf("tags have no mutable fields")
}

func (a *tagAdapter) Delete(ctx context.Context, current types.Resource) error {
	if _, err := a.tags.Delete(ctx, current.Name); err != nil {
		return fmt.Errorf("deleting tag %s: %w", current.Name, err)
	}
	return nil
}

func (a *tagAdapter) Drifted(types.Resource, types.ResourceSpec) bool { return false }

func tagResource(name string) types.Resource {
	return types.Resource{
		ID:   name,
		Kind: "tag",
		Name: name,
	}
}
