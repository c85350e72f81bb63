package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Import snapshots and upgrade tenant stores",
		Long: `Import every snapshot in the data directory whose tenant has no store yet,
and upgrade existing stores to the current layout.

Tenants that already have a store only get their factions loaded; their
snapshot is never imported twice.

Example:
  roster migrate --data-dir ./db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(rootOpts, cmd, func(ctx context.Context, f *OutputFormatter, s *session) error {
				samples, err := s.metrics.Snapshot()
				if err != nil {
					return err
				}
				return f.Success(migrateResult{Tenants: s.reg.Tenants(), Metrics: samples})
			})
		},
	}

	return cmd
}
