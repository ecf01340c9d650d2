package resources

import (
	"context"
	"fmt"
	"strconv"

	"github.com/digitalocean/godo"
	"github.com/rs/zerolog"

	"github.com/atoll-cloud/atoll/await"
	"github.com/atoll-cloud/atoll/paginate"
	"github.com/atoll-cloud/atoll/types"
)

type reservedIPService interface {
	List(ctx context.Context, opt *godo.ListOptions) ([]godo.ReservedIP, *godo.Response, error)
	Create(ctx context.Context, req *godo.ReservedIPCreateRequest) (*godo.ReservedIP, *godo.Response, error)
	Delete(ctx context.Context, ip string) (*godo.Response, error)
}

type reservedIPActionService interface {
	Assign(ctx context.Context, ip string, dropletID int) (*godo.Action, *godo.Response, error)
	Unassign(ctx context.Context, ip string) (*godo.Action, *godo.Response, error)
}

type reservedIPAdapter struct {
	ips      reservedIPService
	actions  reservedIPActionService
	getter   await.ActionGetter
	defaults Defaults
	log      zerolog.Logger
}

func newReservedIPAdapter(ips reservedIPService, actions reservedIPActionService, getter await.ActionGetter, defaults Defaults, log zerolog.Logger) *reservedIPAdapter {
	return &reservedIPAdapter{
		ips:      ips,
		actions:  actions,
		getter:   getter,
		defaults: defaults,
		log:      log.With().Str("kind", "reserved_ip").Logger(),
	}
}

func (a *reservedIPAdapter) Kind() string { return "reserved_ip" }

func (a *reservedIPAdapter) Find(ctx context.Context, filter types.LookupFilter) ([]types.Resource, error) {
	ips, err := paginate.All(ctx, a.ips.List, a.defaults.Paginate())
	if err != nil {
		return nil, fmt.Errorf("listing reserved IPs: %w", err)
	}

	out := make([]types.Resource, 0, len(ips))
	for _, ip := range ips {
		out = append(out, reservedIPResource(ip))
	}
	return out, nil
}

func (a *reservedIPAdapter) Create(ctx context.Context, spec types.ResourceSpec) (CreateOutcome, error) {
	created, _, err := a.ips.Create(ctx, &godo.ReservedIPCreateRequest{Region: spec.Region})
	if err != nil {
		return CreateOutcome{}, fmt.Errorf("reserving IP in %s: %w", spec.Region, err)
	}

	r := reservedIPResource(*created)
	if droplet := spec.Attrs["droplet_id"]; droplet != "" {
		assigned, err := a.assign(ctx, created.IP, droplet)
		if err != nil {
			return CreateOutcome{}, err
		}
		r = *assigned
	}
	return CreateOutcome{Resource: &r}, nil
}

// Update re-assigns the IP to the declared droplet.
func (a *reservedIPAdapter) Update(ctx context.Context, current types.Resource, spec types.ResourceSpec) (*types.Resource, error) {
	droplet := spec.Attrs["droplet_id"]
	if droplet == "" {
		action, _, err := a.actions.Unassign(ctx, current.ID)
		if err != nil {
			return nil, fmt.Errorf("unassigning reserved IP %s: %w", current.ID, err)
		}
		if err := a.awaitAssignment(ctx, current.ID, action); err != nil {
			return nil, err
		}
		updated := current
		updated.Attrs = map[string]string{}
		return &updated, nil
	}
	return a.assign(ctx, current.ID, droplet)
}

func (a *reservedIPAdapter) assign(ctx context.Context, ip, droplet string) (*types.Resource, error) {
	dropletID, err := strconv.Atoi(droplet)
	if err != nil {
		return nil, fmt.Errorf("bad droplet_id %q: %w", droplet, err)
	}

	action, _, err := a.actions.Assign(ctx, ip, dropletID)
	if err != nil {
		return nil, fmt.Errorf("assigning reserved IP %s to droplet %d: %w", ip, dropletID, err)
	}
	a.log.Info().Str("ip", ip).Int("droplet_id", dropletID).Msg("assign submitted")

	if err := a.awaitAssignment(ctx, ip, action); err != nil {
		return nil, err
	}
	return &types.Resource{
		ID:    ip,
		Kind:  "reserved_ip",
		Name:  ip,
		Attrs: map[string]string{"droplet_id": droplet},
	}, nil
}

func (a *reservedIPAdapter) awaitAssignment(ctx context.Context, ip string, action *godo.Action) error {
	_, res, err := await.Action(ctx, a.getter, action, a.defaults.Await())
	if err != nil {
		return fmt.Errorf("awaiting reserved IP action on %s: %w", ip, err)
	}
	if res.TimedOut {
		return &await.UnconfirmedError{Kind: "reserved_ip", ID: ip, Status: res.Status}
	}
	if res.Errored() {
		return fmt.Errorf("reserved IP action on %s errored", ip)
	}
	return nil
}

func (a *reservedIPAdapter) Delete(ctx context.Context, current types.Resource) error {
	if _, err := a.ips.Delete(ctx, current.ID); err != nil {
		return fmt.Errorf("releasing reserved IP %s: %w", current.ID, err)
	}
	return nil
}

func (a *reservedIPAdapter) Drifted(current types.Resource, spec types.ResourceSpec) bool {
	droplet, declared := spec.Attrs["droplet_id"]
	return declared && droplet != current.Attr("droplet_id")
}

func reservedIPResource(ip godo.ReservedIP) types.Resource {
	attrs := map[string]string{}
	if ip.Droplet != nil {
		attrs["droplet_id"] = strconv.Itoa(ip.Droplet.ID)
	}
	return types.Resource{
		ID:     ip.IP,
		Kind:   "reserved_ip",
		Region: regionSlug(ip.Region),
		Name:   ip.IP,
		Attrs:  attrs,
	}
}
