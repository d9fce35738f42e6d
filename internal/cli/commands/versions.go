package commands

import (
	"fmt"

	"github.com/leapstack-labs/schemadoc/internal/cli/output"
	"github.com/spf13/cobra"
)

// NewVersionsCommand creates the versions command.
func NewVersionsCommand() *cobra.Command {
	var windowOnly bool

	cmd := &cobra.Command{
		Use:   "versions",
		Short: "List releases in canonical order",
		Long: `List every release of the catalogue's version order with its date and
release note. Releases inside the selected window (--from/--to, or the
catalogue default) are marked.

A release whose schema was introduced by an earlier release shows that
release in the Schema column.`,
		Example: `  # All releases
  schemadoc versions

  # Only releases in a window
  schemadoc versions --from 2.16 --to 2.18 --window

  # Machine-readable
  schemadoc versions -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVersions(cmd, windowOnly)
		},
	}

	cmd.Flags().BoolVar(&windowOnly, "window", false, "Only list releases inside the window")

	return cmd
}

func runVersions(cmd *cobra.Command, windowOnly bool) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	window, err := cmdCtx.Window()
	if err != nil {
		return err
	}

	infos, err := cmdCtx.Engine.Catalogue().Versions(window, windowOnly)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(infos)
	}

	r.Header(1, fmt.Sprintf("Releases (%d, window %s)", len(infos), window))
	rows := make([][]string, 0, len(infos))
	for _, v := range infos {
		mark := ""
		if v.InWindow {
			mark = "*"
		}
		rows = append(rows, []string{string(v.Version), v.Date, string(v.SchemaVersion), mark, v.Note})
	}
	r.Table([]string{"Version", "Date", "Schema", "Window", "Note"}, rows)
	return nil
}
