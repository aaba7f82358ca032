package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/demopy-gb-jj/demopy/domain/entities"
)

// NewManifestCommand creates the manifest command.
func NewManifestCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "manifest",
		Short: "Print the export table",
		Long: `Print the module name, version and exports.

Example:
  demopy manifest --module demopy.wasm --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printManifest(cmd, rootOpts)
		},
	}
}

func printManifest(cmd *cobra.Command, opts *RootOptions) (err error) {
	ctx := cmd.Context()
	b, err := openBackend(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := b.Close(ctx); err == nil && cerr != nil {
			err = WrapExitError(ExitCommandError, "failed to shut down", cerr)
		}
	}()

	manifest, err := b.Manifest(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read manifest", err)
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), manifest)
	}
	return writeManifestText(cmd, manifest)
}

func writeManifestText(cmd *cobra.Command, m entities.Manifest) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s (%s)\n", m.Name, m.Version, m.Edition)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, export := range m.Exports {
		fmt.Fprintf(tw, "  %s(%s)\t-> %s\t%s\n",
			export.Name, strings.Join(export.ParamNames(), ", "), export.Returns, export.Description)
	}
	return tw.Flush()
}
