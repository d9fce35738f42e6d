// Package cli provides the command-line interface for schemadoc.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/leapstack-labs/schemadoc/internal/cli/commands"
	"github.com/leapstack-labs/schemadoc/internal/cli/config"
	"github.com/leapstack-labs/schemadoc/internal/cli/output"
	intconfig "github.com/leapstack-labs/schemadoc/internal/config"
	"github.com/spf13/cobra"
)

var cfgFile string

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// configKey is used to store config in context.
type configKey struct{}

// rendererKey is used to store renderer in context.
type rendererKey struct{}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "schemadoc",
		Short: "schemadoc - Cross-version schema remarks for Bugzilla",
		Long: `schemadoc renders the remarks of the Bugzilla schema documentation for
any window of releases.

A catalogue holds remarks per table, column and index, each optionally
limited to a version range and full of %(...)s placeholders. Given schema
snapshots of each release, schemadoc classifies every element as added,
removed, changed or unchanged over the window and expands the remarks
that apply.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.LoadConfig(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}

			level := slog.LevelWarn
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			ctx := context.WithValue(cmd.Context(), configKey{}, cfg)
			ctx = context.WithValue(ctx, config.LoggerKey(), logger)

			// Create and store renderer based on output mode
			mode := output.Mode(cfg.OutputFormat)
			renderer := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)
			ctx = context.WithValue(ctx, rendererKey{}, renderer)
			cmd.SetContext(ctx)

			if configFile := config.GetConfigFileUsed(); configFile != "" {
				logger.Debug("using config file", "path", configFile)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
Cross-version schema remarks for the Bugzilla database
`)

	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./schemadoc.yaml)")
	rootCmd.PersistentFlags().String("catalogue", "", "Remark catalogue (default: built-in Bugzilla catalogue)")
	rootCmd.PersistentFlags().String("schema", "", "Schema snapshots: a YAML file or a SQLite store (.db)")
	rootCmd.PersistentFlags().String("from", "", "First version of the window")
	rootCmd.PersistentFlags().String("to", "", "Last version of the window")
	rootCmd.PersistentFlags().Int("workers", 0, fmt.Sprintf("Concurrent remark renderers (default: %d)", intconfig.DefaultWorkers))
	rootCmd.PersistentFlags().Bool("memoize", false, "Cache rendered remarks per element and window")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output format (auto|text|markdown|json|html)")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return intconfig.OutputFormats, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.MarkPersistentFlagFilename("catalogue", "yaml", "yml")
	_ = rootCmd.MarkPersistentFlagFilename("schema", "yaml", "yml", "db", "sqlite", "sqlite3")

	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewVersionsCommand())
	rootCmd.AddCommand(commands.NewRemarkCommand())
	rootCmd.AddCommand(commands.NewChangesCommand())
	rootCmd.AddCommand(commands.NewRenderCommand())
	rootCmd.AddCommand(commands.NewLintCommand())
	rootCmd.AddCommand(commands.NewIntrospectCommand())
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// GetConfig retrieves the config from the command context.
func GetConfig(ctx context.Context) *config.Config {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c
	}
	cfg := &config.Config{}
	intconfig.ApplyDefaults(cfg)
	return cfg
}

// GetRenderer retrieves the renderer from the command context.
func GetRenderer(ctx context.Context) *output.Renderer {
	if r, ok := ctx.Value(rendererKey{}).(*output.Renderer); ok {
		return r
	}
	return output.NewRenderer(os.Stdout, os.Stderr, output.ModeAuto)
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for schemadoc.

To load completions:

Bash:
  $ source <(schemadoc completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ schemadoc completion bash > /etc/bash_completion.d/schemadoc
  # macOS:
  $ schemadoc completion bash > $(brew --prefix)/etc/bash_completion.d/schemadoc

Zsh:
  $ schemadoc completion zsh > "${fpath[1]}/_schemadoc"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ schemadoc completion fish > ~/.config/fish/completions/schemadoc.fish

PowerShell:
  PS> schemadoc completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	return cmd
}
