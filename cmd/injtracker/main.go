package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		printError(os.Stderr, false, "%v", err)
		os.Exit(1)
	}
}

// rootFlags are shared by every subcommand.
type rootFlags struct {
	configPath string
	noColor    bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "injtracker",
		Short:         "Track injection sites and recommend where to inject next",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", os.Getenv("INJTRACKER_CONFIG"), "path to a YAML config file")
	root.PersistentFlags().BoolVar(&flags.noColor, "no-color", os.Getenv("NO_COLOR") != "", "disable colored output")

	root.AddCommand(
		newServeCmd(flags),
		newAddCmd(flags),
		newListCmd(flags),
		newRemoveCmd(flags),
		newImportCmd(flags),
		newExportCmd(flags),
		newClearCmd(flags),
		newSummaryCmd(flags),
		newQuadrantsCmd(flags),
		newScoreCmd(flags),
		newWarnCmd(flags),
		newNextCmd(flags),
		newFieldCmd(flags),
	)
	root.SetVersionTemplate(fmt.Sprintf("injtracker version %s\n", version))
	return root
}
