package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/demopy-gb-jj/demopy/domain/entities"
)

// NewCallCommand creates the call command.
func NewCallCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "call <export> [json-args]",
		Short: "Call an export with JSON arguments",
		Long: `Call an export with a JSON argument object and print the result.

Examples:
  demopy call hello
  demopy call add '{"a":2,"b":3}'
  demopy call sum_list '{"numbers":[1,2,3]}' --module demopy.wasm`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw json.RawMessage
			if len(args) == 2 {
				raw = json.RawMessage(args[1])
			}
			return callExport(cmd, rootOpts, args[0], raw)
		},
	}
}

func callExport(cmd *cobra.Command, opts *RootOptions, export string, args json.RawMessage) (err error) {
	if len(args) > 0 && !json.Valid(args) {
		return WrapExitError(ExitCommandError, "invalid JSON arguments", fmt.Errorf("%s", args))
	}

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

	resp := b.Call(ctx, export, args)

	if opts.Format == "json" {
		if werr := writeJSON(cmd.OutOrStdout(), resp); werr != nil {
			return werr
		}
	} else if !resp.Failed() {
		fmt.Fprintln(cmd.OutOrStdout(), string(resp.Value))
	}

	if resp.Failed() {
		return callFailure(resp.Error)
	}
	return nil
}

// callFailure turns an error reported for a call into the command error.
func callFailure(detail *entities.ErrorDetail) error {
	return &ExitError{
		Code:    ExitFailure,
		Message: fmt.Sprintf("%s error", detail.Type),
		Err:     detail,
	}
}
