// Package cmd provides Cobra CLI commands for kiwix-reader.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kiwix/kiwix-reader/internal/cli"
	"github.com/kiwix/kiwix-reader/internal/domain/build"
)

var (
	app       *cli.App
	buildInfo build.Info
	rootCmd   = &cobra.Command{
		Use:   "kiwix-reader",
		Short: "Read ZIM archives offline, in tabs, from the terminal",
		Long: `kiwix-reader - an offline reader for ZIM archives.

Open a Wikipedia (or any other ZIM) dump and read it in tabs. Tabs and their
back/forward history survive restarts and can be brought back after closing.

Use 'kiwix-reader read' to start the interactive reader, or explore the
subcommands to inspect archives, history and saved tabs.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch cmd.Name() {
			case "help", "completion", "version", "config":
				return nil
			}
			if cmd.Parent() != nil && cmd.Parent().Name() == "config" {
				return nil
			}

			var err error
			app, err = cli.NewApp(cli.Options{LogToFile: cmd.Name() == "read"})
			if err != nil {
				return fmt.Errorf("initialize app: %w", err)
			}
			app.BuildInfo = buildInfo
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if app != nil {
				_ = app.Close()
			}
		},
	}
)

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GetApp returns the initialized app (for use by subcommands).
func GetApp() *cli.App {
	return app
}

// SetBuildInfo sets the build information (called from main.go before Execute).
func SetBuildInfo(info build.Info) {
	buildInfo = info
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "kiwix-reader %s\n", buildInfo.Version)
		fmt.Fprintf(out, "  commit:  %s\n", buildInfo.Commit)
		fmt.Fprintf(out, "  built:   %s\n", buildInfo.BuildDate)
		fmt.Fprintf(out, "  go:      %s\n", buildInfo.GoVersion)
		fmt.Fprintf(out, "  source:  %s\n", build.RepoURL())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
