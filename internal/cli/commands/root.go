package commands

import (
	"context"
	"runtime"

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

var (
	// Global flags shared by all output-producing commands
	outputFormat string
	verbose      bool
	noColor      bool
)

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "declkit",
		Short: "Declaration metadata registry tooling",
		Long: color.CyanString(`declkit - Declaration Metadata Tooling

declkit inspects, serves, and archives snapshots of a declaration metadata
registry: the classes an application decorated at startup, their members,
attached metadata payloads, and inheritance links.

Commands operate on exported snapshot documents, so they work without
loading the application that produced them:
  • inspect  - browse classes, members, metadata, and the class hierarchy
  • serve    - expose a snapshot over the introspection HTTP API
  • archive  - keep a history of snapshots in SQLite or PostgreSQL
  • diff     - compare two snapshots class by class`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Disable color output if requested
			if noColor {
				color.NoColor = true
			}
		},
	}

	// Add global flags
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "table", "Output format: json or table")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Show all details")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	// Add subcommands
	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(NewInspectCommand())
	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewArchiveCommand())
	rootCmd.AddCommand(NewDiffCommand())

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the declkit version, Git commit, build date, and Go version",
		Run: func(cmd *cobra.Command, args []string) {
			// Set GoVersion to actual runtime if not set at build time
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			titleColor := color.New(color.FgCyan, color.Bold)
			valueColor := color.New(color.FgWhite)

			out := cmd.OutOrStdout()

			titleColor.Fprint(out, "declkit version: ")
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
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		errorColor := color.New(color.FgRed, color.Bold)
		errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}

// cmdContext returns the command's context, falling back to Background
// when RunE is invoked outside Execute
func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
