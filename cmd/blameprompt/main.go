// Command blameprompt is the provenance engine's external entry point: a
// thin cobra shell over the internal/* packages that implement the
// staging, attachment, remap, and attribution protocols. This package owns
// no provenance logic of its own.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/blameprompt/blameprompt/cmd/blameprompt/cli"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	rootCmd := cli.NewRootCmd()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		var silent *cli.SilentError
		if !errors.As(err, &silent) {
			fmt.Fprintln(rootCmd.OutOrStderr(), err)
		}
		cancel()
		os.Exit(1)
	}
	cancel()
}
