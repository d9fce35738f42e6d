package commands

import (
	"fmt"

	"github.com/leapstack-labs/schemadoc/internal/catalogue"
	"github.com/leapstack-labs/schemadoc/internal/cli/output"
	"github.com/leapstack-labs/schemadoc/internal/render"
	"github.com/leapstack-labs/schemadoc/internal/version"
	"github.com/spf13/cobra"
)

// LintOutput is the JSON shape of the lint command.
type LintOutput struct {
	Catalogue string            `json:"catalogue"`
	Window    *version.Range    `json:"window,omitempty"`
	Issues    []catalogue.Issue `json:"issues"`
	Summary   map[string]int    `json:"summary"`
	Stats     catalogue.Stats   `json:"stats"`
}

// NewLintCommand creates the lint command.
func NewLintCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Check the remark catalogue",
		Long: `Check the remark catalogue for problems:

  CV01  range bound outside the version order
  CV02  range lower bound after upper bound
  CV03  release metadata inconsistent with the order
  PH01  malformed placeholder
  PH02  scalar with no value
  PH03  reference to an element that never exists in the window
  RM01  element with no remark yet
  RM02  remark still marked TODO

PH03 needs schema snapshots and is checked over the selected window.
The command fails when any error-level finding is reported.`,
		Example: `  # Lint the built-in catalogue
  schemadoc lint

  # Lint a catalogue, including informational findings
  schemadoc lint --catalogue remarks.yaml --severity info

  # Allow a site-specific scalar
  schemadoc lint --scalar ADMIN_EMAIL`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLint(cmd)
		},
	}

	cmd.Flags().String("severity", "", "Minimum severity: error, warning, info")
	cmd.Flags().StringSlice("scalar", nil, "Extra scalar names remarks may use")

	_ = cmd.RegisterFlagCompletionFunc("severity", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"error", "warning", "info"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runLint(cmd *cobra.Command) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	minSeverity, err := catalogue.ParseSeverity(cmdCtx.Cfg.Lint.Severity)
	if err != nil {
		return err
	}

	cat := cmdCtx.Engine.Catalogue()
	opts := catalogue.LintOptions{
		Scalars:     append(append([]string{}, render.DocumentScalarNames...), cmdCtx.Cfg.Lint.Scalars...),
		MinSeverity: minSeverity,
	}

	out := LintOutput{Catalogue: cat.Source, Summary: make(map[string]int), Stats: cat.Stats()}
	if index, err := cmdCtx.Engine.Index(); err == nil {
		window, err := cmdCtx.Window()
		if err != nil {
			return err
		}
		opts.Index = index
		opts.Window = window
		out.Window = &window
	}

	out.Issues = cat.Lint(opts)
	if out.Issues == nil {
		out.Issues = []catalogue.Issue{}
	}
	for _, i := range out.Issues {
		out.Summary[i.Severity.String()]++
	}
	cmdCtx.Logger.Debug("lint finished", "catalogue", cat.Source, "issues", len(out.Issues))

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		if err := r.JSON(out); err != nil {
			return err
		}
	} else {
		lintDocument(r, out)
	}

	if n := out.Summary[catalogue.SeverityError.String()]; n > 0 {
		return fmt.Errorf("lint found %d error(s)", n)
	}
	return nil
}

func lintDocument(r *output.Renderer, out LintOutput) {
	r.Header(1, "Lint: "+out.Catalogue)
	if out.Window != nil {
		r.Println(output.FormatKeyValue("Window", out.Window.String()))
	}
	r.Println(output.FormatKeyValue("Versions", fmt.Sprintf("%d (%d with release notes)", out.Stats.Versions, out.Stats.Releases)))
	r.Println(output.FormatKeyValue("Missing remarks", fmt.Sprintf("%d", out.Stats.Missing)))
	r.Println(output.FormatKeyValue("TODO remarks", fmt.Sprintf("%d", out.Stats.Todo)))
	for _, k := range out.Stats.StatKeys() {
		if n := out.Stats.Remarks[k]; n > 0 {
			r.Println(output.FormatKeyValue("Entries "+k, fmt.Sprintf("%d", n)))
		}
	}
	r.Println("")

	if len(out.Issues) == 0 {
		r.Success("no issues found")
		return
	}

	rows := make([][]string, 0, len(out.Issues))
	for _, i := range out.Issues {
		sev := i.Severity.String()
		if r.EffectiveMode() == output.ModeText {
			switch i.Severity {
			case catalogue.SeverityError:
				sev = r.Styles().Error.Render(sev)
			case catalogue.SeverityWarning:
				sev = r.Styles().Warning.Render(sev)
			default:
				sev = r.Styles().Info.Render(sev)
			}
		}
		rows = append(rows, []string{sev, i.Rule, i.Element, i.Family, i.Message})
	}
	r.Table([]string{"Severity", "Rule", "Element", "Family", "Message"}, rows)

	r.Warning(fmt.Sprintf("%d issue(s): %d error, %d warning, %d info", len(out.Issues),
		out.Summary["error"], out.Summary["warning"], out.Summary["info"]))
}
