package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atoll-cloud/atoll/engine"
	"github.com/atoll-cloud/atoll/types"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show what apply would change",
	Long: `Resolve every declared resource against the account and print the
decision for each without mutating anything.

Examples:
  atoll plan
  atoll plan --config infra/atoll.yaml`,
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	rt, err := newRuntime(ctx, engine.Options{Check: true})
	if err != nil {
		return err
	}
	defer rt.close(ctx)

	planned, err := rt.engine.Plan(ctx, rt.cfg.Resources)
	if err != nil {
		return fmt.Errorf("planning failed: %w", err)
	}

	printPlan(planned)
	return nil
}

func printPlan(planned []engine.PlannedChange) {
	changes := 0
	for _, p := range planned {
		marker := " "
		switch p.Decision.Op {
		case types.OpCreate:
			marker = "+"
		case types.OpUpdate:
			marker = "~"
		case types.OpDelete:
			marker = "-"
		}
		if p.Decision.Mutates() {
			changes++
		}

		target := p.Spec.Name
		if target == "" {
			target = p.Decision.ResourceID
		}
		fmt.Printf("%s %-12s %-24s %s\n", marker, p.Spec.Kind, target, p.Decision.Reason)
	}

	fmt.Printf("\nPlan: %d of %d resources would change\n", changes, len(planned))
}
