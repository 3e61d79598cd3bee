package commands

import (
	"context"
	"runtime"

	"github.com/cockroachdb/errors"
	"github.com/conduit-lang/graphmap/internal/cli/ui"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	global := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "graphmap",
		Short: "Inspect and query entity mappings",
		Long: color.CyanString(`graphmap - typed entities over pluggable stores

Loads an entity schema, builds queries from structured conditions or
templates, and runs them against an in-memory, SQL, SPARQL or Redis store.

Configuration is read from graphmap.yaml in the working directory and
GRAPHMAP_* environment variables.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if global.noColor {
				color.NoColor = true
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&global.configPath, "config", "c", "", "config file (default ./graphmap.yaml)")
	flags.StringVar(&global.logLevel, "log-level", "", "override log.level")
	flags.BoolVar(&global.noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(NewExplainCommand(global))
	rootCmd.AddCommand(NewQueryCommand(global))
	rootCmd.AddCommand(NewTypesCommand(global))
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the graphmap version, Git commit, build date, and Go version",
		Run: func(cmd *cobra.Command, args []string) {
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			out := cmd.OutOrStdout()
			titleColor := color.New(color.FgCyan, color.Bold)
			valueColor := color.New(color.FgWhite)

			titleColor.Fprint(out, "graphmap version: ")
			valueColor.Fprintln(out, Version)

			titleColor.Fprint(out, "Git commit: ")
			valueColor.Fprintln(out, GitCommit)

			titleColor.Fprint(out, "Build date: ")
			valueColor.Fprintln(out, BuildDate)

			titleColor.Fprint(out, "Go version: ")
			valueColor.Fprintln(out, goVer)
		},
	}
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	rootCmd := NewRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		ui.WriteError(rootCmd.ErrOrStderr(), describe(err, color.NoColor))
		return err
	}
	return nil
}

func describe(err error, noColor bool) ui.ErrorOptions {
	var unknown *unknownTypeError
	if errors.As(err, &unknown) {
		return ui.UnknownType(unknown.name, unknown.known, noColor)
	}
	return ui.Describe(err, noColor)
}
