package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tgawarplanet/roster/internal/roster"
)

// FactionAddOptions holds flags for the faction add command.
type FactionAddOptions struct {
	*RootOptions
	AllowDuplicate bool
}

// NewFactionCommand creates the faction command group.
func NewFactionCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "faction",
		Short: "Manage the factions of a tenant",
	}

	addOpts := &FactionAddOptions{RootOptions: rootOpts}
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a faction",
		Long: `Add a faction to the tenant. Names are case-sensitive. Adding a name that
already exists returns the existing faction unless --allow-duplicate is set.

Example:
  roster faction add Red --tenant 100`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTenant(rootOpts, cmd, func(ctx context.Context, f *OutputFormatter, t *roster.Tenant) error {
				if addOpts.AllowDuplicate {
					faction, err := t.AddFaction(ctx, args[0])
					if err != nil {
						return err
					}
					return f.Success(factionResult{Faction: faction, Created: true})
				}
				faction, created, err := t.EnsureFaction(ctx, args[0])
				if err != nil {
					return err
				}
				return f.Success(factionResult{Faction: faction, Created: created})
			})
		},
	}
	add.Flags().BoolVar(&addOpts.AllowDuplicate, "allow-duplicate", false, "insert even if a faction with this name exists")
	cmd.AddCommand(add)

	cmd.AddCommand(&cobra.Command{
		Use:           "list",
		Short:         "List factions in id order",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTenant(rootOpts, cmd, func(ctx context.Context, f *OutputFormatter, t *roster.Tenant) error {
				return f.Success(factionList(t.Factions()))
			})
		},
	})

	return cmd
}
