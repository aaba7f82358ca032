// Package cli implements the demopy command line.
package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Module  string // guest .wasm; empty uses the in-process export table
	Config  string // host YAML config
	Format  string // "json" | "text"
	Verbose bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command of the demopy CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "demopy",
		Short: "Call the demopy binding module",
		Long: `Call the demopy binding module.

Without --module the commands use the export table compiled into this
binary. With --module they load a guest built from cmd/demopy-guest and
call it through the wazero host runtime.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.Module, "module", "m", "", "guest .wasm module to load")
	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", "", "host configuration file (YAML)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewManifestCommand(opts))
	cmd.AddCommand(NewCallCommand(opts))

	return cmd
}
