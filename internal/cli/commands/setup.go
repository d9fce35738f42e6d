package commands

import (
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/schemadoc/internal/cli/config"
	"github.com/leapstack-labs/schemadoc/internal/cli/output"
	intconfig "github.com/leapstack-labs/schemadoc/internal/config"
	"github.com/leapstack-labs/schemadoc/internal/engine"
	"github.com/leapstack-labs/schemadoc/internal/schema"
	"github.com/leapstack-labs/schemadoc/internal/version"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *engine.Engine
	Renderer *output.Renderer
}

// NewCommandContext loads the project engine and creates a renderer.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	eng, err := createEngine(cmd, cfg, logger)
	if err != nil {
		return nil, err
	}

	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Engine:   eng,
		Renderer: r,
	}, nil
}

// NewCommandContextWithoutEngine creates a CommandContext without an engine.
// Useful for commands that never read the catalogue.
func NewCommandContextWithoutEngine(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// Window returns the configured window, falling back to the catalogue's
// default, and checks it against the version order.
func (c *CommandContext) Window() (version.Range, error) {
	cat := c.Engine.Catalogue()
	w := c.Cfg.Window(cat.DefaultWindow)
	if err := cat.Order.Validate(w); err != nil {
		return version.Range{}, fmt.Errorf("invalid window: %w", err)
	}
	return cat.Order.Close(w), nil
}

// Elements parses anchors given on the command line.
func Elements(args []string) ([]schema.Element, error) {
	els := make([]schema.Element, 0, len(args))
	for _, a := range args {
		el, err := schema.ParseAnchor(a)
		if err != nil {
			return nil, err
		}
		els = append(els, el)
	}
	return els, nil
}

// getConfig returns the current configuration, or defaults when none was
// loaded.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	cfg := &config.Config{}
	intconfig.ApplyDefaults(cfg)
	return cfg
}

func createEngine(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) (*engine.Engine, error) {
	return engine.New(cmd.Context(), engine.Config{
		CataloguePath: cfg.Catalogue,
		SchemaPath:    cfg.Schema,
		Workers:       cfg.Workers,
		Memoize:       cfg.Memoize,
		Logger:        logger,
	})
}
