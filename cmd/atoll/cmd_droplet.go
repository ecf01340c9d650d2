package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/atoll-cloud/atoll/engine"
	"github.com/atoll-cloud/atoll/resources"
)

var (
	powerOffForce bool
	snapshotName  string
)

var dropletCmd = &cobra.Command{
	Use:   "droplet",
	Short: "Run power and snapshot actions on a droplet",
}

var powerOnCmd = &cobra.Command{
	Use:   "power-on <droplet-id>",
	Short: "Power a droplet on and wait for the action to complete",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDropletAction(args[0], func(ctx context.Context, actioner *resources.DropletActioner, id int) error {
			return actioner.PowerOn(ctx, id)
		})
	},
}

var powerOffCmd = &cobra.Command{
	Use:   "power-off <droplet-id>",
	Short: "Shut a droplet down gracefully, optionally forcing power-off",
	Long: `Issues a graceful shutdown and waits for it to complete. With --force,
a failed or timed-out shutdown is followed by a hard power-off.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDropletAction(args[0], func(ctx context.Context, actioner *resources.DropletActioner, id int) error {
			return actioner.PowerOff(ctx, id, powerOffForce)
		})
	},
}

var rebootCmd = &cobra.Command{
	Use:   "reboot <droplet-id>",
	Short: "Reboot a droplet and wait for the action to complete",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDropletAction(args[0], func(ctx context.Context, actioner *resources.DropletActioner, id int) error {
			return actioner.Reboot(ctx, id)
		})
	},
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <droplet-id>",
	Short: "Snapshot a droplet and wait for the action to complete",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDropletAction(args[0], func(ctx context.Context, actioner *resources.DropletActioner, id int) error {
			return actioner.Snapshot(ctx, id, snapshotName)
		})
	},
}

func init() {
	rootCmd.AddCommand(dropletCmd)
	dropletCmd.AddCommand(powerOnCmd, powerOffCmd, rebootCmd, snapshotCmd)

	powerOffCmd.Flags().BoolVar(&powerOffForce, "force", false, "Hard power-off if graceful shutdown fails")
	snapshotCmd.Flags().StringVar(&snapshotName, "name", "", "Snapshot name")
}

func runDropletAction(rawID string, action func(context.Context, *resources.DropletActioner, int) error) error {
	id, err := strconv.Atoi(rawID)
	if err != nil {
		return fmt.Errorf("bad droplet id %q", rawID)
	}

	ctx := context.Background()
	rt, err := newRuntime(ctx, engine.Options{})
	if err != nil {
		return err
	}
	defer rt.close(ctx)

	actioner := resources.NewDropletActioner(rt.client, resources.Defaults{
		PageSize:     rt.cfg.Defaults.PageSize,
		Timeout:      rt.cfg.Defaults.Timeout,
		PollInterval: rt.cfg.Defaults.PollInterval,
		Metrics:      rt.metrics,
	}, rt.log)

	if err := action(ctx, actioner, id); err != nil {
		return err
	}

	fmt.Println("done")
	return nil
}
