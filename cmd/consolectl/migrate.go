package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rideops/callcenter/internal/persistence"
)

func newMigrateCmd() *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the bundled Postgres migrations",
		Long: `Applies the SQL migrations compiled into this binary, in name order.

Every migration is idempotent, so running this repeatedly is safe.
Use --list to print the bundled migrations without connecting.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				return runMigrateList(cmd.OutOrStdout())
			}
			return runMigrate(cmd.Context(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "list bundled migrations and exit")
	return cmd
}

func runMigrateList(out io.Writer) error {
	names, err := persistence.MigrationNames()
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Fprintln(out, name)
	}
	return nil
}

func runMigrate(ctx context.Context, out io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.App.StoreDriver != "postgres" {
		return fmt.Errorf("migrate: STORE_DRIVER=%s has no schema", cfg.App.StoreDriver)
	}

	rt, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := persistence.RunMigrations(ctx, rt.postgres.PoolHandle(), rt.logger); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	names, err := persistence.MigrationNames()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Applied %d migration(s)\n", len(names))
	return nil
}
