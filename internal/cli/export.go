package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tgawarplanet/roster/internal/backup"
	"github.com/tgawarplanet/roster/internal/config"
	"github.com/tgawarplanet/roster/internal/snapshot"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Output string
	YAML   bool
	Backup bool
}

type exportResult struct {
	ExportID string   `json:"export_id"`
	Digest   string   `json:"digest"`
	Players  int      `json:"players"`
	Output   string   `json:"output,omitempty"`
	Backups  []string `json:"backups,omitempty"`
}

func (r exportResult) String() string {
	s := fmt.Sprintf("Exported %d player(s) as %s (digest %s)", r.Players, r.ExportID, r.Digest)
	if r.Output != "" {
		s += "\n  wrote " + r.Output
	}
	for _, b := range r.Backups {
		s += "\n  backup " + b
	}
	return s
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a tenant's roster as a snapshot",
		Long: `Export the current roster of --tenant as a version 1 snapshot.

Without --output or --backup the document is written to stdout. With
--backup it is stored under roster/<tenant>/<export-id>.json in every
configured target ($ROSTER_BACKUP_DIR, $ROSTER_S3_BUCKET).

Example:
  roster export --tenant 100 --output guild100.json
  roster export --tenant 100 --backup`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(rootOpts, cmd, func(ctx context.Context, f *OutputFormatter, s *session) error {
				return runExport(ctx, opts, cmd, f, s)
			})
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the snapshot to this file")
	cmd.Flags().BoolVar(&opts.YAML, "yaml", false, "encode --output as YAML")
	cmd.Flags().BoolVar(&opts.Backup, "backup", false, "store the snapshot in the configured backup targets")

	return cmd
}

func runExport(ctx context.Context, opts *ExportOptions, cmd *cobra.Command, f *OutputFormatter, s *session) error {
	t, err := s.tenant(ctx)
	if err != nil {
		return err
	}
	doc, err := snapshot.Export(ctx, t, s.idGenerator())
	if err != nil {
		return err
	}
	f.VerboseLog("Exported %d player(s) from tenant %d", len(doc.Players), doc.Tenant.ID)

	if opts.Output == "" && !opts.Backup {
		if f.Format == "json" {
			return f.Success(doc)
		}
		data, err := snapshot.Encode(doc, snapshot.FormatJSON)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}

	result := exportResult{ExportID: doc.ExportID, Digest: doc.Digest, Players: len(doc.Players)}

	if opts.Output != "" {
		format := snapshot.FormatJSON
		if opts.YAML {
			format = snapshot.FormatYAML
		}
		data, err := snapshot.Encode(doc, format)
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.Output, data, 0o644); err != nil {
			return codedError(ErrCodeWriteFailed, "failed to write export", err)
		}
		result.Output = opts.Output
	}

	if opts.Backup {
		sinks, err := backupSinks(ctx, opts.Config)
		if err != nil {
			return err
		}
		for _, sink := range sinks {
			key, err := backup.Save(ctx, sink, doc)
			if err != nil {
				return codedError(ErrCodeBackup, "backup failed", err)
			}
			result.Backups = append(result.Backups, describeSink(sink)+key)
		}
	}

	return f.Success(result)
}

// backupSinks builds one sink per configured target.
func backupSinks(ctx context.Context, cfg config.Config) ([]backup.Sink, error) {
	if !cfg.BackupEnabled() {
		return nil, NewExitError(ExitCommandError, "--backup needs ROSTER_BACKUP_DIR or ROSTER_S3_BUCKET")
	}
	var sinks []backup.Sink
	if cfg.BackupDir != "" {
		sinks = append(sinks, backup.NewFileSink(cfg.BackupDir))
	}
	if cfg.S3Bucket != "" {
		s3Sink, err := backup.NewS3Sink(ctx, backup.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			PathStyle: cfg.S3PathStyle,
		})
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s3Sink)
	}
	return sinks, nil
}

func describeSink(sink backup.Sink) string {
	switch s := sink.(type) {
	case *backup.FileSink:
		return s.Root() + "/"
	case *backup.S3Sink:
		return "s3://" + s.Bucket() + "/"
	default:
		return ""
	}
}
