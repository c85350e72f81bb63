package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tgawarplanet/roster/internal/roster"
)

// NewTenantCommand creates the tenant command group.
func NewTenantCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "List and create tenants",
	}

	cmd.AddCommand(&cobra.Command{
		Use:           "list",
		Short:         "List known tenants",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(rootOpts, cmd, func(ctx context.Context, f *OutputFormatter, s *session) error {
				return f.Success(tenantList(s.reg.Tenants()))
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "open",
		Short: "Open the --tenant tenant, creating it when new",
		Long: `Open the tenant selected with --tenant. A new tenant gets a metadata
snapshot and a fresh store holding the Unknown faction and the default user.

Example:
  roster tenant open --tenant 100 --tenant-name Guild100`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTenant(rootOpts, cmd, func(ctx context.Context, f *OutputFormatter, t *roster.Tenant) error {
				return f.Success(tenantResult{Tenant: t.Info(), Created: t.Created()})
			})
		},
	})

	return cmd
}
