package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tgawarplanet/roster/internal/config"
	"github.com/tgawarplanet/roster/internal/snapshot"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	DataDir    string
	EnvFile    string
	TenantID   uint64
	TenantName string

	// Config is loaded before every command; flags override it.
	Config config.Config

	// IDGenerator overrides export ids (for testing).
	// If nil, defaults to snapshot.UUIDv7Generator.
	IDGenerator snapshot.IDGenerator

	logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the roster CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roster",
		Short: "Guild roster store",
		Long: `Manage per-guild rosters of players, factions and linked users.

Each guild (tenant) lives in its own SQLite file <data-dir>/<id>.db.
Snapshot files <data-dir>/<id>.json are imported on startup for guilds
that have no store yet.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if err := loadConfig(cmd, opts); err != nil {
				return newFormatter(opts, cmd).Fail(err)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.DataDir, "data-dir", "", "directory holding tenant stores and snapshots (default $ROSTER_DATA_DIR or ./db)")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file read before the environment")
	cmd.PersistentFlags().Uint64Var(&opts.TenantID, "tenant", 0, "tenant (guild) id")
	cmd.PersistentFlags().StringVar(&opts.TenantName, "tenant-name", "", "tenant display name, used when the tenant is created")

	// Add subcommands
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewTenantCommand(opts))
	cmd.AddCommand(NewFactionCommand(opts))
	cmd.AddCommand(NewPlayerCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))

	return cmd
}

// loadConfig reads configuration, applies flag overrides and configures
// logging.
func loadConfig(cmd *cobra.Command, opts *RootOptions) error {
	cfg, err := config.Load(opts.EnvFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	if cmd.Flags().Changed("data-dir") {
		cfg.DataDir = opts.DataDir
	}
	opts.Config = cfg

	// Configure logging based on verbose flag
	logLevel := cfg.Level()
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	})
	opts.logger = slog.New(handler)
	slog.SetDefault(opts.logger)
	return nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
