package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/templatestore/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		errors.PrintError(errors.FromError(err, "C101"))
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "templatestore",
		Short: "Fine-grained reactive key-value store",
		Long: `templatestore is a reactive key-value store keyed by scope and property.

Computations that read a key re-run when that key, and only that key,
changes. This command runs a demonstration scenario and serves a
read-only inspector for a live store.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "Path to a config file (default: ./templatestore.yaml if present)")
	root.PersistentFlags().Bool("no-color", false, "Disable colored error output")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
			errors.DisableColors()
		}
	}

	root.AddCommand(
		demoCmd(),
		inspectCmd(),
		versionCmd(),
	)

	return root
}

// info prints an info line.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}
