package resources

import (
	"context"
	"fmt"

	"github.com/digitalocean/godo"
	"github.com/rs/zerolog"

	"github.com/atoll-cloud/atoll/paginate"
	"github.com/atoll-cloud/atoll/types"
)

type vpcService interface {
	List(ctx context.Context, opt *godo.ListOptions) ([]*godo.VPC, *godo.Response, error)
	Create(ctx context.Context, req *godo.VPCCreateRequest) (*godo.VPC, *godo.Response, error)
	Update(ctx context.Context, id string, req *godo.VPCUpdateRequest) (*godo.VPC, *godo.Response, error)
	Delete(ctx context.Context, id string) (*godo.Response, error)
}

type vpcAdapter struct {
	vpcs     vpcService
	defaults Defaults
	log      zerolog.Logger
}

func newVPCAdapter(vpcs vpcService, defaults Defaults, log zerolog.Logger) *vpcAdapter {
	return &vpcAdapter{vpcs: vpcs, defaults: defaults, log: log.With().Str("kind", "vpc").Logger()}
}

func (a *vpcAdapter) Kind() string { return "vpc" }

func (a *vpcAdapter) Find(ctx context.Context, filter types.LookupFilter) ([]types.Resource, error) {
	vpcs, err := paginate.All(ctx, a.vpcs.List, a.defaults.Paginate())
	if err != nil {
		return nil, fmt.Errorf("listing vpcs: %w", err)
	}

	out := make([]types.Resource, 0, len(vpcs))
	for _, v := range vpcs {
		out = append(out, vpcResource(v))
	}
	return out, nil
}

func (a *vpcAdapter) Create(ctx context.Context, spec types.ResourceSpec) (CreateOutcome, error) {
	req := &godo.VPCCreateRequest{
		Name:        spec.Name,
		RegionSlug:  spec.Region,
		IPRange:     spec.Attrs["ip_range"],
		Description: spec.Attrs["description"],
	}
	created, _, err := a.vpcs.Create(ctx, req)
	if err != nil {
		return CreateOutcome{}, fmt.Errorf("creating vpc %q: %w", spec.Name, err)
	}
	r := vpcResource(created)
	return CreateOutcome{Resource: &r}, nil
}

func (a *vpcAdapter) Update(ctx context.Context, current types.Resource, spec types.ResourceSpec) (*types.Resource, error) {
	req := &godo.VPCUpdateRequest{
		Name:        spec.Name,
		Description: spec.Attrs["description"],
	}
	updated, _, err := a.vpcs.Update(ctx, current.ID, req)
	if err != nil {
		return nil, fmt.Errorf("updating vpc %s: %w", current.ID, err)
	}
	r := vpcResource(updated)
	return &r, nil
}

func (a *vpcAdapter) Delete(ctx context.Context, current types.Resource) error {
	if _, err := a.vpcs.Delete(ctx, current.ID); err != nil {
		return fmt.Errorf("deleting vpc %s: %w", current.ID, err)
	}
	return nil
}

func (a *vpcAdapter) Drifted(current types.Resource, spec types.ResourceSpec) bool {
	desc, declared := spec.Attrs["description"]
	return declared && desc != current.Attr("description")
}

func vpcResource(v *godo.VPC) types.Resource {
	return types.Resource{
		ID:     v.ID,
		Kind:   "vpc",
		Region: v.RegionSlug,
		Name:   v.Name,
		Attrs: map[string]string{
			"ip_range":    v.IPRange,
			"description": v.Description,
		},
		CreatedAt: v.CreatedAt,
	}
}
