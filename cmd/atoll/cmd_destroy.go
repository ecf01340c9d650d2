package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atoll-cloud/atoll/engine"
	"github.com/atoll-cloud/atoll/types"
)

var destroyCheck bool

var destroyCmd = &cobra.Command{
	Use:   "destroy",
	Short: "Remove every resource the manifest declares",
	Long: `Flip every declared resource to absent and apply: anything the
manifest matches gets deleted. Resources already declared absent are
unaffected beyond their normal handling.

Examples:
  atoll destroy --check
  atoll destroy`,
	RunE: runDestroy,
}

func init() {
	rootCmd.AddCommand(destroyCmd)

	destroyCmd.Flags().BoolVar(&destroyCheck, "check", false, "Report deletions without executing them")
}

func runDestroy(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	rt, err := newRuntime(ctx, engine.Options{
		Check:            destroyCheck,
		AllowDestructive: true,
	})
	if err != nil {
		return err
	}
	defer rt.close(ctx)

	specs := make([]types.ResourceSpec, len(rt.cfg.Resources))
	copy(specs, rt.cfg.Resources)
	for i := range specs {
		specs[i].State = types.IntentAbsent
	}

	summary, err := rt.engine.Apply(ctx, specs)
	if err != nil {
		return fmt.Errorf("destroy failed: %w", err)
	}

	printSummary(summary, destroyCheck)

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d operations failed", summary.Failed, summary.Total)
	}
	return nil
}
