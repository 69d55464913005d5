package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/rideops/callcenter/internal/domain"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage console session tokens",
	}
	cmd.AddCommand(newTokenIssueCmd())
	return cmd
}

func newTokenIssueCmd() *cobra.Command {
	var (
		realm     string
		accountID string
	)

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a bearer token for an active account",
		Long: `Signs a session token for an existing, active account.

The realm selects the account population:
  call_center  console agents (agent, supervisor, admin)
  dashboard    admin profiles (operations_staff, supervisor, root_admin)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := parseRealm(realm)
			if err != nil {
				return err
			}
			if accountID == "" {
				return fmt.Errorf("token issue: --account is required")
			}
			return runTokenIssue(cmd.Context(), cmd.OutOrStdout(), r, accountID)
		},
	}

	cmd.Flags().StringVar(&realm, "realm", string(domain.RealmCallCenter), "account realm (call_center or dashboard)")
	cmd.Flags().StringVar(&accountID, "account", "", "account id")
	return cmd
}

func runTokenIssue(ctx context.Context, out io.Writer, realm domain.Realm, accountID string) error {
	rt, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	issued, err := rt.container.Auth.IssueToken(ctx, realm, accountID)
	if err != nil {
		return fmt.Errorf("token issue: %w", err)
	}
	fmt.Fprintf(out, "token:   %s\n", issued.Token)
	fmt.Fprintf(out, "role:    %s\n", issued.Session.RoleName())
	fmt.Fprintf(out, "expires: %s\n", issued.ExpiresAt.UTC().Format(time.RFC3339))
	return nil
}

func parseRealm(value string) (domain.Realm, error) {
	r := domain.Realm(value)
	if !r.Valid() {
		return "", fmt.Errorf("invalid realm %q: want %s or %s", value, domain.RealmCallCenter, domain.RealmDashboard)
	}
	return r, nil
}
