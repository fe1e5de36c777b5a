// Package cmd is the module's CLI surface (SPEC_FULL.md §2c): a thin shell
// around C4/C6 for local schema development — compiling a query schema to
// SQL and composing a mask against a fixture session — mirroring the
// teacher's own root-command-plus-subpackage layout.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/product-os/autumndb-sub002/internal/logger"
	"github.com/product-os/autumndb-sub002/internal/version"
)

var debug bool

var RootCmd = &cobra.Command{
	Use:   "autumndb-sub002",
	Short: "JSON-Schema to SQL compiler and permission-mask composer",
	Long: fmt.Sprintf(`autumndb-sub002 compiles JSON-Schema query documents against the
contracts/links/strings schema into parameterized SQL, and composes
permission masks from a session's roles, organization markers and scope.

Version: %s@%s %s %s

Commands:
  compile   Compile a JSON-Schema query document to SQL
  mask      Compose the effective mask for a session

Use "autumndb-sub002 [command] --help" for more information about a command.`,
		version.App, version.GitCommit, version.Platform(), version.BuildDate),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogger()
	},
}

func init() {
	RootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	RootCmd.AddCommand(compileCmd)
	RootCmd.AddCommand(maskCmd)
}

func setupLogger() {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger.SetGlobal(slog.New(handler), debug)
}

// Execute runs the root command, exiting non-zero on error.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
