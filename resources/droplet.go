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

// dropletService is the slice of godo's droplet API the adapter uses.
type dropletService interface {
	List(ctx context.Context, opt *godo.ListOptions) ([]godo.Droplet, *godo.Response, error)
	Create(ctx context.Context, req *godo.DropletCreateRequest) (*godo.Droplet, *godo.Response, error)
	Get(ctx context.Context, id int) (*godo.Droplet, *godo.Response, error)
	Delete(ctx context.Context, id int) (*godo.Response, error)
}

type dropletActionService interface {
	Resize(ctx context.Context, id int, sizeSlug string, resizeDisk bool) (*godo.Action, *godo.Response, error)
}

type dropletAdapter struct {
	droplets dropletService
	actions  dropletActionService
	getter   await.ActionGetter
	defaults Defaults
	log      zerolog.Logger
}

func newDropletAdapter(droplets dropletService, actions dropletActionService, getter await.ActionGetter, defaults Defaults, log zerolog.Logger) *dropletAdapter {
	return &dropletAdapter{
		droplets: droplets,
		actions:  actions,
		getter:   getter,
		defaults: defaults,
		log:      log.With().Str("kind", "droplet").Logger(),
	}
}

func (a *dropletAdapter) Kind() string { return "droplet" }

func (a *dropletAdapter) Find(ctx context.Context, filter types.LookupFilter) ([]types.Resource, error) {
	droplets, err := paginate.All(ctx, a.droplets.List, a.defaults.Paginate())
	if err != nil {
		return nil, fmt.Errorf("listing droplets: %w", err)
	}

	out := make([]types.Resource, 0, len(droplets))
	for _, d := range droplets {
		out = append(out, dropletResource(d))
	}
	return out, nil
}

func (a *dropletAdapter) Create(ctx context.Context, spec types.ResourceSpec) (CreateOutcome, error) {
	req := &godo.DropletCreateRequest{
		Name:   spec.Name,
		Region: spec.Region,
		Size:   spec.Size,
		Image:  godo.DropletCreateImage{Slug: spec.Image},
		Tags:   spec.Tags,
	}
	if vpc := spec.Attrs["vpc_uuid"]; vpc != "" {
		req.VPCUUID = vpc
	}

	created, _, err := a.droplets.Create(ctx, req)
	if err != nil {
		return CreateOutcome{}, fmt.Errorf("creating droplet %q: %w", spec.Name, err)
	}
	a.log.Info().Int("droplet_id", created.ID).Str("name", created.Name).Msg("droplet create submitted")

	// Droplet creation is asynchronous: the response comes back with
	// status "new" and flips to "active" when provisioning finishes.
	last := created
	fetch := func(ctx context.Context) (string, error) {
		d, _, err := a.droplets.Get(ctx, created.ID)
		if err != nil {
			return "", err
		}
		last = d
		return dropletPhase(d.Status), nil
	}

	res, err := await.Until(ctx, fetch, dropletPhase(created.Status), a.defaults.Await())
	if err != nil {
		return CreateOutcome{}, fmt.Errorf("awaiting droplet %d: %w", created.ID, err)
	}
	if res.TimedOut {
		return CreateOutcome{}, &await.UnconfirmedError{Kind: "droplet", ID: strconv.Itoa(created.ID), Status: last.Status}
	}

	r := dropletResource(*last)
	return CreateOutcome{Resource: &r}, nil
}

func (a *dropletAdapter) Update(ctx context.Context, current types.Resource, spec types.ResourceSpec) (*types.Resource, error) {
	id, err := strconv.Atoi(current.ID)
	if err != nil {
		return nil, fmt.Errorf("bad droplet id %q: %w", current.ID, err)
	}

	action, _, err := a.actions.Resize(ctx, id, spec.Size, true)
	if err != nil {
		return nil, fmt.Errorf("resizing droplet %d: %w", id, err)
	}
	a.log.Info().Int("droplet_id", id).Str("size", spec.Size).Msg("resize submitted")

	_, res, err := await.Action(ctx, a.getter, action, a.defaults.Await())
	if err != nil {
		return nil, fmt.Errorf("awaiting resize of droplet %d: %w", id, err)
	}
	if res.TimedOut {
		return nil, &await.UnconfirmedError{Kind: "droplet", ID: current.ID, Status: res.Status}
	}
	if res.Errored() {
		return nil, fmt.Errorf("resize of droplet %d errored", id)
	}

	d, _, err := a.droplets.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("refetching droplet %d: %w", id, err)
	}
	r := dropletResource(*d)
	return &r, nil
}

func (a *dropletAdapter) Delete(ctx context.Context, current types.Resource) error {
	id, err := strconv.Atoi(current.ID)
	if err != nil {
		return fmt.Errorf("bad droplet id %q: %w", current.ID, err)
	}
	if _, err := a.droplets.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting droplet %d: %w", id, err)
	}
	return nil
}

func (a *dropletAdapter) Drifted(current types.Resource, spec types.ResourceSpec) bool {
	return spec.Size != "" && spec.Size != current.Attr("size")
}

// dropletPhase maps droplet provisioning status onto poller statuses.
func dropletPhase(status string) string {
	switch status {
	case "active":
		return await.StatusCompleted
	case "archive":
		return await.StatusErrored
	default: // "new" while provisioning
		return await.StatusInProgress
	}
}

func dropletResource(d godo.Droplet) types.Resource {
	attrs := map[string]string{"size": d.SizeSlug}
	if d.Image != nil && d.Image.Slug != "" {
		attrs["image"] = d.Image.Slug
	}
	return types.Resource{
		ID:        strconv.Itoa(d.ID),
		Kind:      "droplet",
		Region:    regionSlug(d.Region),
		Name:      d.Name,
		Status:    d.Status,
		Tags:      d.Tags,
		Attrs:     attrs,
		CreatedAt: parseCreated(d.Created),
	}
}
