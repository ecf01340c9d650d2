package resources

import (
	"context"
	"fmt"
	"strconv"

	"github.com/digitalocean/godo"
	"github.com/rs/zerolog"

	"github.com/atoll-cloud/atoll/await"
)

// powerActionService covers the droplet power and snapshot actions.
type powerActionService interface {
	PowerOn(ctx context.Context, id int) (*godo.Action, *godo.Response, error)
	PowerOff(ctx context.Context, id int) (*godo.Action, *godo.Response, error)
	Shutdown(ctx context.Context, id int) (*godo.Action, *godo.Response, error)
	Reboot(ctx context.Context, id int) (*godo.Action, *godo.Response, error)
	Snapshot(ctx context.Context, id int, name string) (*godo.Action, *godo.Response, error)
}

// DropletActioner submits power-state and snapshot actions against an
// existing droplet and waits for each to settle.
type DropletActioner struct {
	actions  powerActionService
	getter   await.ActionGetter
	defaults Defaults
	log      zerolog.Logger
}

// NewDropletActioner wires the actioner against a godo client.
func NewDropletActioner(client *godo.Client, defaults Defaults, log zerolog.Logger) *DropletActioner {
	return &DropletActioner{
		actions:  client.DropletActions,
		getter:   client.Actions,
		defaults: defaults,
		log:      log.With().Str("component", "droplet_action").Logger(),
	}
}

// PowerOn powers the droplet on.
func (d *DropletActioner) PowerOn(ctx context.Context, dropletID int) error {
	return d.run(ctx, "power_on", dropletID, func() (*godo.Action, *godo.Response, error) {
		return d.actions.PowerOn(ctx, dropletID)
	})
}

// Reboot gracefully reboots the droplet.
func (d *DropletActioner) Reboot(ctx context.Context, dropletID int) error {
	return d.run(ctx, "reboot", dropletID, func() (*godo.Action, *godo.Response, error) {
		return d.actions.Reboot(ctx, dropletID)
	})
}

// Snapshot takes a named snapshot of the droplet.
func (d *DropletActioner) Snapshot(ctx context.Context, dropletID int, name string) error {
	return d.run(ctx, "snapshot", dropletID, func() (*godo.Action, *godo.Response, error) {
		return d.actions.Snapshot(ctx, dropletID, name)
	})
}

// PowerOff stops the droplet. With force unset a graceful shutdown is
// issued and its failure surfaces as-is. With force set, a shutdown
// that errors or runs out the budget falls back to a hard power-off,
// an explicit two-step at this call site rather than a cancellation
// of the first action.
func (d *DropletActioner) PowerOff(ctx context.Context, dropletID int, force bool) error {
	err := d.run(ctx, "shutdown", dropletID, func() (*godo.Action, *godo.Response, error) {
		return d.actions.Shutdown(ctx, dropletID)
	})
	if err == nil {
		return nil
	}
	if !force {
		return err
	}

	d.log.Warn().Int("droplet_id", dropletID).Err(err).Msg("graceful shutdown not confirmed, forcing power off")
	return d.run(ctx, "power_off", dropletID, func() (*godo.Action, *godo.Response, error) {
		return d.actions.PowerOff(ctx, dropletID)
	})
}

func (d *DropletActioner) run(ctx context.Context, what string, dropletID int, submit func() (*godo.Action, *godo.Response, error)) error {
	action, _, err := submit()
	if err != nil {
		return fmt.Errorf("submitting %s for droplet %d: %w", what, dropletID, err)
	}
	d.log.Info().Str("action", what).Int("droplet_id", dropletID).Int("action_id", action.ID).Msg("action submitted")

	_, res, err := await.Action(ctx, d.getter, action, d.defaults.Await())
	if err != nil {
		return fmt.Errorf("awaiting %s for droplet %d: %w", what, dropletID, err)
	}
	if res.TimedOut {
		return &await.UnconfirmedError{Kind: "droplet", ID: strconv.Itoa(dropletID), Status: res.Status}
	}
	if res.Errored() {
		return fmt.Errorf("%s for droplet %d errored", what, dropletID)
	}
	return nil
}
