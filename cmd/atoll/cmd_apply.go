package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/atoll-cloud/atoll/engine"
)

const summaryRounding = 10 * time.Millisecond

var (
	applyCheck            bool
	applyAllowDestructive bool
	applyContinue         bool
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Reconcile the account toward the manifest",
	Long: `Resolve every declared resource and execute the resulting decisions:
create what is missing, update what drifted, delete what is declared
absent.

Deletes only execute with --allow-destructive; without it they are
reported and skipped.

Examples:
  atoll apply
  atoll apply --check
  atoll apply --allow-destructive
  atoll apply --continue-on-failure`,
	RunE: runApply,
}

func init() {
	rootCmd.AddCommand(applyCmd)

	applyCmd.Flags().BoolVar(&applyCheck, "check", false, "Report changes without executing them")
	applyCmd.Flags().BoolVar(&applyAllowDestructive, "allow-destructive", false, "Permit delete operations")
	applyCmd.Flags().BoolVar(&applyContinue, "continue-on-failure", false, "Keep going after a failed operation")
}

func runApply(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	rt, err := newRuntime(ctx, engine.Options{
		Check:             applyCheck,
		AllowDestructive:  applyAllowDestructive,
		ContinueOnFailure: applyContinue,
	})
	if err != nil {
		return err
	}
	defer rt.close(ctx)

	summary, err := rt.engine.Apply(ctx, rt.cfg.Resources)
	if err != nil {
		return fmt.Errorf("apply failed: %w", err)
	}

	printSummary(summary, applyCheck)

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d operations failed", summary.Failed, summary.Total)
	}
	return nil
}

func printSummary(summary *engine.Summary, check bool) {
	for _, r := range summary.Results {
		status := "ok"
		switch {
		case r.Skipped:
			status = "skipped"
		case r.Outcome.Failed() && r.Outcome.Changed:
			status = "unconfirmed"
		case r.Outcome.Failed():
			status = "failed"
		case r.Outcome.Changed:
			status = "changed"
		}

		msg := r.Outcome.Msg
		if r.Outcome.Err != nil {
			msg = r.Outcome.Err.Error()
		}
		fmt.Printf("%-12s %-12s %-10s %s\n", r.Decision.ResourceKind, r.Decision.Op, status, msg)
	}

	mode := "Apply"
	if check {
		mode = "Check"
	}
	fmt.Printf("\n%s: %d changed, %d unchanged, %d skipped, %d failed (%s)\n",
		mode, summary.Changed, summary.Unchanged, summary.Skipped, summary.Failed, summary.Duration.Round(summaryRounding))
}
