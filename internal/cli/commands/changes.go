package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/schemadoc/internal/classify"
	"github.com/leapstack-labs/schemadoc/internal/cli/output"
	"github.com/leapstack-labs/schemadoc/internal/engine"
	"github.com/leapstack-labs/schemadoc/internal/schema"
	"github.com/spf13/cobra"
)

// ChangesOptions holds options for the changes command.
type ChangesOptions struct {
	All  bool   // Include unchanged elements
	Kind string // Only this element kind
}

// NewChangesCommand creates the changes command.
func NewChangesCommand() *cobra.Command {
	opts := &ChangesOptions{}
	cmd := &cobra.Command{
		Use:   "changes",
		Short: "Classify schema elements across a window",
		Long: `Compare every schema element at the two ends of the window and report
whether it was added, removed or changed. An element counts as changed
when its definition or its base remark differs between the two releases.

Requires schema snapshots (schema in schemadoc.yaml or --schema).`,
		Example: `  # What changed between 2.16 and 2.18
  schemadoc changes --from 2.16 --to 2.18

  # Only columns, including unchanged ones
  schemadoc changes --kind column --all`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChanges(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.All, "all", false, "Include unchanged elements")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "Only this element kind: table, column, index")

	_ = cmd.RegisterFlagCompletionFunc("kind", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"table", "column", "index"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runChanges(cmd *cobra.Command, opts *ChangesOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	var kind *schema.Kind
	if opts.Kind != "" {
		k, err := schema.ParseKind(opts.Kind)
		if err != nil {
			return err
		}
		kind = &k
	}

	window, err := cmdCtx.Window()
	if err != nil {
		return err
	}
	out, err := cmdCtx.Engine.Changes(window, engine.ChangesOptions{Kind: kind, All: opts.All})
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}

	r.Header(1, fmt.Sprintf("Changes in %s", window))
	parts := make([]string, 0, len(classify.Categories))
	for _, c := range classify.Categories {
		parts = append(parts, fmt.Sprintf("%s %d", c, out.Summary[c.String()]))
	}
	r.Println(output.FormatKeyValue("Summary", strings.Join(parts, ", ")))
	r.Println("")

	rows := make([][]string, 0, len(out.Changes))
	for _, ch := range out.Changes {
		cat := ch.Category.String()
		if r.EffectiveMode() == output.ModeText {
			cat = r.Styles().Category(ch.Category).Render(output.Title(cat))
		}
		rows = append(rows, []string{ch.Element.Kind.String(), ch.Element.Label(), cat})
	}
	r.Table([]string{"Kind", "Element", "Category"}, rows)
	return nil
}
