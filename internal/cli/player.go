package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tgawarplanet/roster/internal/model"
	"github.com/tgawarplanet/roster/internal/roster"
)

// PlayerOptions holds the flags shared by player subcommands.
type PlayerOptions struct {
	*RootOptions
	Faction string
	Name    string
	GameID  string
}

// NewPlayerCommand creates the player command group.
func NewPlayerCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "player",
		Short: "Manage the players of a tenant",
	}

	cmd.AddCommand(newPlayerAddCommand(rootOpts))
	cmd.AddCommand(newPlayerListCommand(rootOpts))
	cmd.AddCommand(newPlayerSetCommand(rootOpts))
	cmd.AddCommand(tenantCommand(rootOpts, "show <id>", "Show one player", cobra.ExactArgs(1), showPlayer))
	cmd.AddCommand(tenantCommand(rootOpts, "remove <id>", "Remove a player and its faction links", cobra.ExactArgs(1), removePlayer))
	cmd.AddCommand(tenantCommand(rootOpts, "move <id> <faction>", "Move a player to another faction", cobra.ExactArgs(2), movePlayer))
	cmd.AddCommand(tenantCommand(rootOpts, "connect <id> <user-name> <external-id>", "Link a player to an external identity", cobra.ExactArgs(3), connectPlayer))
	cmd.AddCommand(tenantCommand(rootOpts, "search <term>", "Find players by name, then by game id", cobra.ExactArgs(1), searchPlayers))
	cmd.AddCommand(tenantCommand(rootOpts, "history <id>", "List every faction a player was linked to", cobra.ExactArgs(1), playerHistory))

	return cmd
}

type tenantFunc func(ctx context.Context, f *OutputFormatter, t *roster.Tenant, args []string) error

func tenantCommand(rootOpts *RootOptions, use, short string, args cobra.PositionalArgs, fn tenantFunc) *cobra.Command {
	return &cobra.Command{
		Use:           use,
		Short:         short,
		Args:          args,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, argv []string) error {
			return runTenant(rootOpts, cmd, func(ctx context.Context, f *OutputFormatter, t *roster.Tenant) error {
				return fn(ctx, f, t, argv)
			})
		},
	}
}

func newPlayerAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlayerOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a player",
		Long: `Add a player. Without --faction the player joins Unknown.

Example:
  roster player add Bob --faction Red --game-id B-42 --tenant 100`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTenant(rootOpts, cmd, func(ctx context.Context, f *OutputFormatter, t *roster.Tenant) error {
				var faction *model.Faction
				if cmd.Flags().Changed("faction") {
					found, err := lookupFaction(t, opts.Faction)
					if err != nil {
						return err
					}
					faction = &found
				}
				var gameID *string
				if cmd.Flags().Changed("game-id") {
					gameID = &opts.GameID
				}

				p, err := t.AddPlayer(ctx, args[0], faction, gameID)
				if err != nil {
					return err
				}
				return f.Success(playerView{p})
			})
		},
	}
	cmd.Flags().StringVar(&opts.Faction, "faction", "", "faction name")
	cmd.Flags().StringVar(&opts.GameID, "game-id", "", "in-game account id")
	return cmd
}

func newPlayerListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlayerOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List players",
		Long: `List players in id order with their current faction.

At most one filter is honored: --faction, then --name, then --game-id.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTenant(rootOpts, cmd, func(ctx context.Context, f *OutputFormatter, t *roster.Tenant) error {
				filter := &model.PlayerFilter{}
				if cmd.Flags().Changed("faction") {
					found, err := lookupFaction(t, opts.Faction)
					if err != nil {
						return err
					}
					filter.Faction = &found
				}
				if cmd.Flags().Changed("name") {
					filter.Name = &opts.Name
				}
				if cmd.Flags().Changed("game-id") {
					filter.GameID = &opts.GameID
				}

				players, err := t.FindPlayers(ctx, filter)
				if err != nil {
					return err
				}
				return f.Success(playerList(players))
			})
		},
	}
	cmd.Flags().StringVar(&opts.Faction, "faction", "", "only players linked to this faction")
	cmd.Flags().StringVar(&opts.Name, "name", "", "only players with this exact name")
	cmd.Flags().StringVar(&opts.GameID, "game-id", "", "only players with this game id")
	return cmd
}

func newPlayerSetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlayerOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "set <id>",
		Short: "Change name, game id or faction of a player",
		Long: `Change any of name, game id and faction in one step. Only the given
flags are changed; a faction change appends to the player's history.

Example:
  roster player set 3 --game-id B-43 --faction Blue --tenant 100`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTenant(rootOpts, cmd, func(ctx context.Context, f *OutputFormatter, t *roster.Tenant) error {
				id, err := parseID("player", args[0])
				if err != nil {
					return err
				}
				current, err := t.FindPlayer(ctx, id)
				if err != nil {
					return err
				}

				name, gameID, faction := current.Name, current.GameID, current.Faction
				if cmd.Flags().Changed("name") {
					name = opts.Name
				}
				if cmd.Flags().Changed("game-id") {
					gameID = &opts.GameID
				}
				if cmd.Flags().Changed("faction") {
					if faction, err = lookupFaction(t, opts.Faction); err != nil {
						return err
					}
				}

				p, err := t.SetPlayer(ctx, id, name, gameID, faction)
				if err != nil {
					return err
				}
				return f.Success(playerView{p})
			})
		},
	}
	cmd.Flags().StringVar(&opts.Name, "name", "", "new name")
	cmd.Flags().StringVar(&opts.GameID, "game-id", "", "new game id")
	cmd.Flags().StringVar(&opts.Faction, "faction", "", "new faction name")
	return cmd
}

func showPlayer(ctx context.Context, f *OutputFormatter, t *roster.Tenant, args []string) error {
	id, err := parseID("player", args[0])
	if err != nil {
		return err
	}
	p, err := t.FindPlayer(ctx, id)
	if err != nil {
		return err
	}
	return f.Success(playerView{p})
}

func removePlayer(ctx context.Context, f *OutputFormatter, t *roster.Tenant, args []string) error {
	id, err := parseID("player", args[0])
	if err != nil {
		return err
	}
	p, err := t.FindPlayer(ctx, id)
	if err != nil {
		return err
	}
	if err := t.RemovePlayer(ctx, p); err != nil {
		return err
	}
	return f.Success(message{Message: fmt.Sprintf("Removed player #%d %s.", p.ID, p.Name)})
}

func movePlayer(ctx context.Context, f *OutputFormatter, t *roster.Tenant, args []string) error {
	id, err := parseID("player", args[0])
	if err != nil {
		return err
	}
	faction, err := lookupFaction(t, args[1])
	if err != nil {
		return err
	}
	p, err := t.FindPlayer(ctx, id)
	if err != nil {
		return err
	}
	p.Faction = faction
	if err := t.UpdateFaction(ctx, p); err != nil {
		return err
	}
	return f.Success(playerView{p})
}

func connectPlayer(ctx context.Context, f *OutputFormatter, t *roster.Tenant, args []string) error {
	id, err := parseID("player", args[0])
	if err != nil {
		return err
	}
	externalID, err := strconv.ParseUint(args[2], 10, 64)
	if err != nil || externalID == 0 {
		return NewExitError(ExitCommandError, "invalid external id "+strconv.Quote(args[2]))
	}
	p, err := t.FindPlayer(ctx, id)
	if err != nil {
		return err
	}
	if _, err := t.ConnectPlayer(ctx, &p, args[1], externalID); err != nil {
		return err
	}
	return f.Success(playerView{p})
}

func searchPlayers(ctx context.Context, f *OutputFormatter, t *roster.Tenant, args []string) error {
	players, err := t.SearchPlayers(ctx, args[0])
	if err != nil {
		return err
	}
	return f.Success(playerList(players))
}

func playerHistory(ctx context.Context, f *OutputFormatter, t *roster.Tenant, args []string) error {
	id, err := parseID("player", args[0])
	if err != nil {
		return err
	}
	factions, err := t.History(ctx, id)
	if err != nil {
		return err
	}
	return f.Success(historyResult{PlayerID: id, Factions: factions})
}
