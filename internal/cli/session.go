package cli

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tgawarplanet/roster/internal/metrics"
	"github.com/tgawarplanet/roster/internal/model"
	"github.com/tgawarplanet/roster/internal/registry"
	"github.com/tgawarplanet/roster/internal/roster"
	"github.com/tgawarplanet/roster/internal/snapshot"
)

// session is one command's view of the data directory: a bootstrapped
// registry and the counters it reports to.
type session struct {
	opts    *RootOptions
	reg     *registry.Registry
	metrics *metrics.Metrics
	log     *slog.Logger
}

func openSession(ctx context.Context, opts *RootOptions) (*session, error) {
	log := opts.logger
	if log == nil {
		log = slog.Default()
	}
	m := metrics.New()
	reg := registry.New(opts.Config.DataDir, registry.WithLogger(log), registry.WithMetrics(m))

	log.Debug("bootstrapping registry", "dir", opts.Config.DataDir)
	if err := reg.Bootstrap(ctx); err != nil {
		reg.Close()
		return nil, err
	}
	return &session{opts: opts, reg: reg, metrics: m, log: log}, nil
}

func (s *session) close() {
	if err := s.reg.Close(); err != nil {
		s.log.Error("error closing stores", "error", err)
	}
}

// tenant resolves the --tenant flag, creating the tenant on first use.
func (s *session) tenant(ctx context.Context) (*roster.Tenant, error) {
	if s.opts.TenantID == 0 {
		return nil, NewExitError(ExitCommandError, "--tenant is required")
	}
	name := s.opts.TenantName
	if name == "" {
		name = strconv.FormatUint(s.opts.TenantID, 10)
	}
	return s.reg.GetTenant(ctx, s.opts.TenantID, name)
}

func (s *session) idGenerator() snapshot.IDGenerator {
	if s.opts.IDGenerator != nil {
		return s.opts.IDGenerator
	}
	return snapshot.UUIDv7Generator{}
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// runSession opens a session for cmd, runs fn and reports its error.
func runSession(opts *RootOptions, cmd *cobra.Command, fn func(ctx context.Context, f *OutputFormatter, s *session) error) error {
	formatter := newFormatter(opts, cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := openSession(ctx, opts)
	if err != nil {
		return formatter.Fail(err)
	}
	defer s.close()

	if err := fn(ctx, formatter, s); err != nil {
		return formatter.Fail(err)
	}
	return nil
}

// runTenant is runSession for commands scoped to the --tenant flag.
func runTenant(opts *RootOptions, cmd *cobra.Command, fn func(ctx context.Context, f *OutputFormatter, t *roster.Tenant) error) error {
	return runSession(opts, cmd, func(ctx context.Context, f *OutputFormatter, s *session) error {
		t, err := s.tenant(ctx)
		if err != nil {
			return err
		}
		return fn(ctx, f, t)
	})
}

func parseID(kind, arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, NewExitError(ExitCommandError, "invalid "+kind+" id "+strconv.Quote(arg))
	}
	return id, nil
}

// lookupFaction resolves a faction by exact name through the cache.
func lookupFaction(t *roster.Tenant, name string) (model.Faction, error) {
	f, ok := t.FindFaction(name)
	if !ok {
		return model.Faction{}, model.NotFound("faction", name)
	}
	return f, nil
}
