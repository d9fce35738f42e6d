package commands

import (
	"fmt"

	"github.com/leapstack-labs/schemadoc/internal/catalogue"
	"github.com/leapstack-labs/schemadoc/internal/cli/output"
	"github.com/leapstack-labs/schemadoc/internal/placeholder"
	"github.com/leapstack-labs/schemadoc/internal/schema"
	"github.com/leapstack-labs/schemadoc/internal/version"
	"github.com/spf13/cobra"
)

// RemarkNode is one catalogue fragment in remark output.
type RemarkNode struct {
	Text    string         `json:"text"`
	Range   *version.Range `json:"range,omitempty"`
	Applies bool           `json:"applies"`
}

// RemarkFamily is the raw remark of one family.
type RemarkFamily struct {
	Family catalogue.Family `json:"family"`
	Kind   string           `json:"kind"`
	Nodes  []RemarkNode     `json:"nodes,omitempty"`
}

// RemarkOutput is the JSON shape of the remark command.
type RemarkOutput struct {
	Element  schema.Element       `json:"element"`
	Window   version.Range        `json:"window"`
	Renames  []placeholder.Rename `json:"renames,omitempty"`
	Families []RemarkFamily       `json:"families"`
}

// NewRemarkCommand creates the remark command.
func NewRemarkCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remark <element>",
		Short: "Show the catalogue entry of an element",
		Long: `Show the unexpanded catalogue remarks of one schema element, family by
family, and which versioned fragments apply to the selected window.

Elements are named by anchor (table-bugs, column-bugs-bug_id,
index-bugs-PRIMARY) or as kind:table[.name] (column:bugs.bug_id). A bare
name is a table. Old names from the rename history are accepted.`,
		Example: `  # Remark of a column in the default window
  schemadoc remark column-bugs-bug_severity

  # Which fragments apply to an older window
  schemadoc remark column:bugs.bug_severity --from 2.16 --to 2.18`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemark(cmd, args[0])
		},
	}

	return cmd
}

func runRemark(cmd *cobra.Command, anchor string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	el, err := schema.ParseAnchor(anchor)
	if err != nil {
		return err
	}
	window, err := cmdCtx.Window()
	if err != nil {
		return err
	}

	out, err := describeRemark(cmdCtx.Engine.Catalogue(), el, window)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	default:
		return remarkDocument(r, out)
	}
}

func describeRemark(cat *catalogue.Catalogue, el schema.Element, window version.Range) (*RemarkOutput, error) {
	out := &RemarkOutput{
		Element: el,
		Window:  window,
		Renames: cat.Renames.History(el),
	}

	found := false
	for _, f := range catalogue.Families {
		e, ok := cat.Remark(el, f)
		if !ok && f != catalogue.Base {
			continue
		}
		found = found || ok

		fam := RemarkFamily{Family: f, Kind: e.Kind().String()}
		for _, n := range e.Nodes() {
			node := RemarkNode{Text: n.Text, Applies: true}
			if n.Versioned {
				rng := n.Range
				node.Range = &rng
				applies, err := cat.Order.Intersects(n.Range, window)
				if err != nil {
					return nil, err
				}
				node.Applies = applies
			}
			fam.Nodes = append(fam.Nodes, node)
		}
		out.Families = append(out.Families, fam)
	}

	if !found {
		return nil, fmt.Errorf("%s has no entry in catalogue %s", el.Anchor(), cat.Source)
	}
	return out, nil
}

func remarkDocument(r *output.Renderer, out *RemarkOutput) error {
	r.Header(1, out.Element.Label())
	r.Println(output.FormatKeyValue("Kind", out.Element.Kind.String()))
	r.Println(output.FormatKeyValue("Window", out.Window.String()))
	for _, rn := range out.Renames {
		r.Println(output.FormatKeyValue("Renamed", fmt.Sprintf("%s → %s in %s", rn.From, rn.To, rn.Since)))
	}
	r.Println("")

	for _, fam := range out.Families {
		r.Header(2, fmt.Sprintf("%s (%s)", output.Title(fam.Family.String()), fam.Kind))
		if len(fam.Nodes) == 0 {
			r.Println(r.Muted("(empty)"))
			r.Println("")
			continue
		}

		rows := make([][]string, 0, len(fam.Nodes))
		for _, n := range fam.Nodes {
			rng := "always"
			if n.Range != nil {
				rng = n.Range.String()
			}
			applies := "no"
			if n.Applies {
				applies = "yes"
			}
			rows = append(rows, []string{rng, applies, n.Text})
		}
		r.Table([]string{"Range", "Applies", "Text"}, rows)
	}
	return nil
}
