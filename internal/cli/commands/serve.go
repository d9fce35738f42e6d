package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/leapstack-labs/schemadoc/internal/server"
	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve rendered remarks over HTTP",
		Long: `Start a read-only JSON API over the catalogue and schema snapshots.

Endpoints:
- /api/versions          releases in canonical order
- /api/elements          elements of a window
- /api/elements/{anchor} one rendered remark (?format=html for a table cell)
- /api/changes           classified changes of a window
- /api/render            every remark of a window
- /api/guide             the expanded notation guide
- /api/lint              catalogue findings
- /api/events            reload notifications (server-sent events)

Every endpoint accepts from and to query parameters. With --watch the
catalogue is reloaded whenever its file changes.`,
		Example: `  # Serve on the default address
  schemadoc serve --schema snapshots.db

  # Custom port, reloading on catalogue edits
  schemadoc serve --catalogue remarks.yaml --port 9000 --watch`,
		RunE: runServe,
	}

	cmd.Flags().String("host", "", "Address to listen on (default: 127.0.0.1)")
	cmd.Flags().Int("port", 0, "Port to serve on (default: 8765)")
	cmd.Flags().Bool("watch", false, "Reload the catalogue when its file changes")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	cfg := cmdCtx.Cfg

	if !cmdCtx.Engine.HasSchema() {
		cmdCtx.Renderer.Warning("no schema snapshots configured: only /api/versions and /api/lint will answer")
	}

	srv := server.New(server.Config{
		Engine:      cmdCtx.Engine,
		Host:        cfg.Serve.Host,
		Port:        cfg.Serve.Port,
		Watch:       cfg.Serve.Watch,
		LintScalars: cfg.Lint.Scalars,
		Logger:      cmdCtx.Logger,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Serving remarks on http://%s\n", cfg.Serve.Addr())
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to stop")

	return srv.Serve(ctx)
}
