// Command demopy calls the demopy binding module, either in-process or
// through a guest .wasm loaded into the wazero host runtime.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/demopy-gb-jj/demopy/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := cli.NewRootCommand().ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	stop()
	os.Exit(cli.GetExitCode(err))
}
