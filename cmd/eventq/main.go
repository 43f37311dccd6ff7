// Command eventq drives event queues from the command line: a multi-worker series
// benchmark and a single-threaded series demo.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:   "eventq",
		Usage:  "exercise cooperative event queues",
		Writer: out,
		Commands: []*cli.Command{
			BenchCommand(),
			SeriesCommand(),
		},
	}
}
