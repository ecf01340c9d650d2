package resources

import (
	"context"
	"fmt"
	"strconv"

	"github.com/digitalocean/godo"
	"github.com/rs/zerolog"

	"github.com/atoll-cloud/atoll/paginate"
	"github.com/atoll-cloud/atoll/types"
)

type nodePoolService interface {
	ListNodePools(ctx context.Context, clusterID string, opt *godo.ListOptions) ([]*godo.KubernetesNodePool, *godo.Response, error)
	CreateNodePool(ctx context.Context, clusterID string, req *godo.KubernetesNodePoolCreateRequest) (*godo.KubernetesNodePool, *godo.Response, error)
	UpdateNodePool(ctx context.Context, clusterID, poolID string, req *godo.KubernetesNodePoolUpdateRequest) (*godo.KubernetesNodePool, *godo.Response, error)
	DeleteNodePool(ctx context.Context, clusterID, poolID string) (*godo.Response, error)
}

// nodePoolAdapter manages node pools of one Kubernetes cluster; the
// cluster comes from the spec's cluster_id attribute.
type nodePoolAdapter struct {
	pools    nodePoolService
	defaults Defaults
	log      zerolog.Logger
}

func newNodePoolAdapter(pools nodePoolService, defaults Defaults, log zerolog.Logger) *nodePoolAdapter {
	return &nodePoolAdapter{pools: pools, defaults: defaults, log: log.With().Str("kind", "k8s_node_pool").Logger()}
}

func (a *nodePoolAdapter) Kind() string { return "k8s_node_pool" }

func (a *nodePoolAdapter) Find(ctx context.Context, filter types.LookupFilter) ([]types.Resource, error) {
	return nil, fmt.Errorf("node pools are scoped by their cluster; resolve through the declared spec")
}

func (a *nodePoolAdapter) FindForSpec(ctx context.Context, spec types.ResourceSpec) ([]types.Resource, error) {
	clusterID := spec.Attrs["cluster_id"]
	if clusterID == "" {
		return nil, fmt.Errorf("k8s_node_pool %q: cluster_id attribute is required", spec.Name)
	}

	list := func(ctx context.Context, opt *godo.ListOptions) ([]*godo.KubernetesNodePool, *godo.Response, error) {
		return a.pools.ListNodePools(ctx, clusterID, opt)
	}
	pools, err := paginate.All(ctx, list, a.defaults.Paginate())
	if err != nil {
		return nil, fmt.Errorf("listing node pools of cluster %s: %w", clusterID, err)
	}

	out := make([]types.Resource, 0, len(pools))
	for _, p := range pools {
		out = append(out, nodePoolResource(clusterID, p))
	}
	return out, nil
}

func (a *nodePoolAdapter) Create(ctx context.Context, spec types.ResourceSpec) (CreateOutcome, error) {
	clusterID := spec.Attrs["cluster_id"]
	created, _, err := a.pools.CreateNodePool(ctx, clusterID, &godo.KubernetesNodePoolCreateRequest{
		Name:  spec.Name,
		Size:  spec.Size,
		Count: intAttr(spec.Attrs, "count", 1),
		Tags:  spec.Tags,
	})
	if err != nil {
		return CreateOutcome{}, fmt.Errorf("creating node pool %q in cluster %s: %w", spec.Name, clusterID, err)
	}
	r := nodePoolResource(clusterID, created)
	return CreateOutcome{Resource: &r}, nil
}

func (a *nodePoolAdapter) Update(ctx context.Context, current types.Resource, spec types.ResourceSpec) (*types.Resource, error) {
	clusterID := current.Attr("cluster_id")
	count := intAttr(spec.Attrs, "count", 1)

	updated, _, err := a.pools.UpdateNodePool(ctx, clusterID, current.ID, &godo.KubernetesNodePoolUpdateRequest{
		Count: &count,
	})
	if err != nil {
		return nil, fmt.Errorf("scaling node pool %s to %d nodes: %w", current.ID, count, err)
	}
	a.log.Info().Str("pool_id", current.ID).Int("count", count).Msg("node pool scaled")
	r := nodePoolResource(clusterID, updated)
	return &r, nil
}

func (a *nodePoolAdapter) Delete(ctx context.Context, current types.Resource) error {
	clusterID := current.Attr("cluster_id")
	if _, err := a.pools.DeleteNodePool(ctx, clusterID, current.ID); err != nil {
		return fmt.Errorf("deleting node pool %s from cluster %s: %w", current.ID, clusterID, err)
	}
	return nil
}

func (a *nodePoolAdapter) Drifted(current types.Resource, spec types.ResourceSpec) bool {
	count, declared := spec.Attrs["count"]
	return declared && count != current.Attr("count")
}

func nodePoolResource(clusterID string, p *godo.KubernetesNodePool) types.Resource {
	return types.Resource{
		ID:   p.ID,
		Kind: "k8s_node_pool",
		Name: p.Name,
		Tags: p.Tags,
		Attrs: map[string]string{
			"cluster_id": clusterID,
			"size":       p.Size,
			"count":      strconv.Itoa(p.Count),
		},
	}
}
