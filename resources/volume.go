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

type volumeService interface {
	ListVolumes(ctx context.Context, params *godo.ListVolumeParams) ([]godo.Volume, *godo.Response, error)
	CreateVolume(ctx context.Context, req *godo.VolumeCreateRequest) (*godo.Volume, *godo.Response, error)
	DeleteVolume(ctx context.Context, id string) (*godo.Response, error)
}

type volumeActionService interface {
	Resize(ctx context.Context, id string, sizeGigabytes int, regionSlug string) (*godo.Action, *godo.Response, error)
}

type volumeAdapter struct {
	volumes  volumeService
	actions  volumeActionService
	getter   await.ActionGetter
	defaults Defaults
	log      zerolog.Logger
}

func newVolumeAdapter(volumes volumeService, actions volumeActionService, getter await.ActionGetter, defaults Defaults, log zerolog.Logger) *volumeAdapter {
	return &volumeAdapter{
		volumes:  volumes,
		actions:  actions,
		getter:   getter,
		defaults: defaults,
		log:      log.With().Str("kind", "volume").Logger(),
	}
}

func (a *volumeAdapter) Kind() string { return "volume" }

func (a *volumeAdapter) Find(ctx context.Context, filter types.LookupFilter) ([]types.Resource, error) {
	// Region and name are supported server-side for volumes; forward
	// them verbatim on every page request.
	list := func(ctx context.Context, opt *godo.ListOptions) ([]godo.Volume, *godo.Response, error) {
		return a.volumes.ListVolumes(ctx, &godo.ListVolumeParams{
			Region:      filter.Region,
			Name:        filter.Name,
			ListOptions: opt,
		})
	}

	volumes, err := paginate.All(ctx, list, a.defaults.Paginate())
	if err != nil {
		return nil, fmt.Errorf("listing volumes: %w", err)
	}

	out := make([]types.Resource, 0, len(volumes))
	for _, v := range volumes {
		out = append(out, volumeResource(v))
	}
	return out, nil
}

func (a *volumeAdapter) Create(ctx context.Context, spec types.ResourceSpec) (CreateOutcome, error) {
	size, err := strconv.ParseInt(spec.Size, 10, 64)
	if err != nil {
		return CreateOutcome{}, fmt.Errorf("volume %q: size must be gigabytes, got %q", spec.Name, spec.Size)
	}

	created, _, err := a.volumes.CreateVolume(ctx, &godo.VolumeCreateRequest{
		Region:        spec.Region,
		Name:          spec.Name,
		SizeGigaBytes: size,
		Description:   spec.Attrs["description"],
		Tags:          spec.Tags,
	})
	if err != nil {
		return CreateOutcome{}, fmt.Errorf("creating volume %q: %w", spec.Name, err)
	}
	r := volumeResource(*created)
	return CreateOutcome{Resource: &r}, nil
}

// Update grows the volume to the declared size. Shrinking is not
// supported by the backend.
func (a *volumeAdapter) Update(ctx context.Context, current types.Resource, spec types.ResourceSpec) (*types.Resource, error) {
	size, err := strconv.Atoi(spec.Size)
	if err != nil {
		return nil, fmt.Errorf("volume %q: size must be gigabytes, got %q", spec.Name, spec.Size)
	}

	action, _, err := a.actions.Resize(ctx, current.ID, size, current.Region)
	if err != nil {
		return nil, fmt.Errorf("resizing volume %s: %w", current.ID, err)
	}
	a.log.Info().Str("volume_id", current.ID).Int("size_gb", size).Msg("volume resize submitted")

	_, res, err := await.Action(ctx, a.getter, action, a.defaults.Await())
	if err != nil {
		return nil, fmt.Errorf("awaiting volume resize %s: %w", current.ID, err)
	}
	if res.TimedOut {
		return nil, &await.UnconfirmedError{Kind: "volume", ID: current.ID, Status: res.Status}
	}
	if res.Errored() {
		return nil, fmt.Errorf("resize of volume %s errored", current.ID)
	}

	updated := current
	updated.Attrs = map[string]string{"size_gb": spec.Size}
	return &updated, nil
}

func (a *volumeAdapter) Delete(ctx context.Context, current types.Resource) error {
	if _, err := a.volumes.DeleteVolume(ctx, current.ID); err != nil {
		return fmt.Errorf("deleting volume %s: %w", current.ID, err)
	}
	return nil
}

func (a *volumeAdapter) Drifted(current types.Resource, spec types.ResourceSpec) bool {
	return spec.Size != "" && spec.Size != current.Attr("size_gb")
}

func volumeResource(v godo.Volume) types.Resource {
	return types.Resource{
		ID:     v.ID,
		Kind:   "volume",
		Region: regionSlug(v.Region),
		Name:   v.Name,
		Tags:   v.Tags,
		Attrs: map[string]string{
			"size_gb":     strconv.FormatInt(v.SizeGigaBytes, 10),
			"description": v.Description,
		},
		CreatedAt: v.CreatedAt,
	}
}
