package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rideops/callcenter/internal/domain"
)

func newAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage console accounts",
	}
	cmd.AddCommand(newAccountBootstrapCmd())
	return cmd
}

func newAccountBootstrapCmd() *cobra.Command {
	var (
		realm string
		email string
		name  string
	)

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the first top-role account of a realm",
		Long: `Creates the first account of an empty realm with the top role:
admin for call_center, root_admin for dashboard.

Fails once the realm already holds any account; further accounts are
created through the API by an authorized operator.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := parseRealm(realm)
			if err != nil {
				return err
			}
			if email == "" || name == "" {
				return fmt.Errorf("account bootstrap: --email and --name are required")
			}
			return runAccountBootstrap(cmd.Context(), cmd.OutOrStdout(), r, email, name)
		},
	}

	cmd.Flags().StringVar(&realm, "realm", string(domain.RealmCallCenter), "account realm (call_center or dashboard)")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	return cmd
}

func runAccountBootstrap(ctx context.Context, out io.Writer, realm domain.Realm, email, name string) error {
	rt, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	id, err := rt.container.Accounts.BootstrapTopAccount(ctx, realm, email, name)
	if err != nil {
		return fmt.Errorf("account bootstrap: %w", err)
	}
	fmt.Fprintf(out, "Created %s account %s\n", realm, id)
	return nil
}
