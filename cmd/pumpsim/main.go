// Command pumpsim reconciles Tandem pump event sessions into canonical
// diabetes records.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/pumpsim/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err == nil {
		return
	}

	fmt.Fprintln(os.Stderr, "pumpsim:", err)

	// Errors that are not ExitErrors come from cobra's flag and argument
	// parsing.
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) {
		os.Exit(cli.ExitCommandError)
	}
	os.Exit(exitErr.Code)
}
