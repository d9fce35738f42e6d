package commands

import (
	"fmt"
	"html"

	"github.com/leapstack-labs/schemadoc/internal/classify"
	"github.com/leapstack-labs/schemadoc/internal/cli/output"
	"github.com/leapstack-labs/schemadoc/internal/render"
	"github.com/leapstack-labs/schemadoc/internal/version"
	"github.com/spf13/cobra"
)

// RenderOptions holds options for the render command.
type RenderOptions struct {
	Guide       bool // Prepend the notation guide
	NeedsRemark bool // Only elements still lacking a remark
}

// RenderOutput is the JSON shape of the render command.
type RenderOutput struct {
	Window    version.Range     `json:"window"`
	Guide     string            `json:"guide,omitempty"`
	Fragments []render.Fragment `json:"fragments"`
}

// NewRenderCommand creates the render command.
func NewRenderCommand() *cobra.Command {
	opts := &RenderOptions{}
	cmd := &cobra.Command{
		Use:   "render [element...]",
		Short: "Render remarks for a version window",
		Long: `Render the finished remark of each element for the selected window:
versioned fragments resolved, placeholders expanded and the change
category attached. Without arguments every element that exists somewhere
in the window is rendered.

HTML output (-o html) emits table rows coloured with the notation guide's
colours. Other modes convert the HTML to Markdown.`,
		Example: `  # Render one column for the default window
  schemadoc render column-fielddefs-id

  # Render everything for a window as HTML with the notation guide
  schemadoc render --from 2.16 --to 2.18 --guide -o html

  # Find elements that still need a remark
  schemadoc render --needs-remark`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Guide, "guide", false, "Prepend the notation guide")
	cmd.Flags().BoolVar(&opts.NeedsRemark, "needs-remark", false, "Only show elements without a remark")

	return cmd
}

func runRender(cmd *cobra.Command, args []string, opts *RenderOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	els, err := Elements(args)
	if err != nil {
		return err
	}
	window, err := cmdCtx.Window()
	if err != nil {
		return err
	}
	rdr, err := cmdCtx.Engine.Renderer()
	if err != nil {
		return err
	}

	var frags []render.Fragment
	if len(els) == 0 {
		frags, err = rdr.RenderWindow(cmd.Context(), window)
	} else {
		frags, err = rdr.RenderAll(cmd.Context(), els, window)
	}
	if err != nil {
		return err
	}
	if opts.NeedsRemark {
		frags = needingRemark(frags)
	}

	out := RenderOutput{Window: window, Fragments: frags}
	if opts.Guide {
		if out.Guide, err = rdr.NotationGuide(window); err != nil {
			return err
		}
	}

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeHTML:
		return renderHTML(r, out)
	default:
		return renderDocument(r, out)
	}
}

func needingRemark(frags []render.Fragment) []render.Fragment {
	out := make([]render.Fragment, 0, len(frags))
	for _, f := range frags {
		if f.NeedsRemark {
			out = append(out, f)
		}
	}
	return out
}

func renderHTML(r *output.Renderer, out RenderOutput) error {
	if out.Guide != "" {
		r.Println(out.Guide)
	}
	r.Println(`<table border="1" cellspacing="0" cellpadding="4">`)
	for _, f := range out.Fragments {
		r.Printf("<tr id=\"%s\">\n  <td%s>%s</td>\n  <td>%s</td>\n</tr>\n",
			f.Element.Anchor(), f.Category.Attr(), html.EscapeString(f.Element.Label()), f.HTML)
	}
	r.Println("</table>")
	return nil
}

func renderDocument(r *output.Renderer, out RenderOutput) error {
	if out.Guide != "" {
		if err := r.HTML(out.Guide); err != nil {
			return err
		}
		r.Println("")
	}

	r.Header(1, fmt.Sprintf("Remarks for %s (%d elements)", out.Window, len(out.Fragments)))
	for _, f := range out.Fragments {
		r.Header(2, f.Element.Label())
		cat := output.Title(f.Category.String())
		if r.EffectiveMode() == output.ModeText && f.Category != classify.Unchanged {
			cat = r.Styles().Category(f.Category).Render(cat)
		}
		r.Println(output.FormatKeyValue("Category", cat))
		if f.NeedsRemark {
			r.Println(output.FormatKeyValue("Needs remark", "yes"))
		}
		r.Println("")
		if err := r.HTML(f.HTML); err != nil {
			return err
		}
		r.Println("")
	}
	return nil
}
