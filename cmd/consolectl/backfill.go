package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newBackfillCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Recompute derived ticket fields",
	}
	cmd.AddCommand(newBackfillCategoriesCmd())
	return cmd
}

func newBackfillCategoriesCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Infer categories for tickets still filed as general",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackfillCategories(cmd.Context(), cmd.OutOrStdout(), dryRun)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report the count without writing")
	return cmd
}

func runBackfillCategories(ctx context.Context, out io.Writer, dryRun bool) error {
	rt, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	changed, err := rt.container.Tickets.BackfillCategories(ctx, dryRun)
	if err != nil {
		return fmt.Errorf("backfill categories: %w", err)
	}
	if dryRun {
		fmt.Fprintf(out, "%d ticket(s) would be recategorized\n", changed)
		return nil
	}
	fmt.Fprintf(out, "Recategorized %d ticket(s)\n", changed)
	return nil
}
