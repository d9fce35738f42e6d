package commands

import (
	"fmt"

	"github.com/leapstack-labs/schemadoc/internal/catalogue"
	"github.com/leapstack-labs/schemadoc/internal/cli/output"
	"github.com/leapstack-labs/schemadoc/internal/engine"
	"github.com/leapstack-labs/schemadoc/internal/version"
	"github.com/spf13/cobra"
)

// NewIntrospectCommand creates the introspect command.
func NewIntrospectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "introspect <version>",
		Short: "Capture a live PostgreSQL schema as a snapshot",
		Long: `Read the tables, columns and indexes of a live PostgreSQL database and
save them to the SQLite snapshot store as the schema of one release.

The store is the schema path from schemadoc.yaml (or --schema) and must end
in .db, .sqlite or .sqlite3. A snapshot already stored for the release is
replaced. The DSN may reference environment variables as ${VAR}.`,
		Example: `  # Capture release 5.2 from a local database
  schemadoc introspect 5.2 --dsn postgres://bugs@localhost/bugs --schema snapshots.db

  # Read a non-default PostgreSQL schema
  schemadoc introspect 5.2 --pg-schema bugzilla`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIntrospect(cmd, version.Version(args[0]))
		},
	}

	cmd.Flags().String("dsn", "", "PostgreSQL connection string")
	cmd.Flags().String("pg-schema", "", "PostgreSQL schema to read (default: public)")

	return cmd
}

func runIntrospect(cmd *cobra.Command, v version.Version) error {
	cmdCtx := NewCommandContextWithoutEngine(cmd)
	cfg := cmdCtx.Cfg

	if cfg.Schema == "" {
		return engine.ErrNoSchema
	}

	// The engine is not built here: the store may not exist yet.
	cat, err := catalogue.Load(cfg.Catalogue)
	if err != nil {
		return err
	}

	res, err := engine.Capture(cmd.Context(), engine.CaptureOptions{
		DSN:       cfg.Introspect.DSN,
		Schema:    cfg.Introspect.Schema,
		Version:   v,
		StorePath: cfg.Schema,
		Order:     cat.Order,
		Logger:    cmdCtx.Logger,
	})
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(res)
	}
	r.Success(fmt.Sprintf("saved snapshot %s for %s: %d tables, %d elements",
		res.ID, res.Version, res.Tables, res.Elements))
	return nil
}
