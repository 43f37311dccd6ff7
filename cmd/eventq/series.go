package main

import (
	"fmt"
	"io"

	eventqueue "github.com/Swind/go-event-queue"
	"github.com/urfave/cli/v2"
)

func SeriesCommand() *cli.Command {
	return &cli.Command{
		Name:    "series",
		Aliases: []string{"s"},
		Usage:   "Run one series on a single-threaded queue and trace every step",

		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "steps",
				Aliases: []string{"n"},
				Value:   3,
				Usage:   "Number of steps",
			},
			&cli.IntFlag{
				Name:  "fail-at",
				Usage: "Make this step (1-based) fail; 0 never fails",
			},
		},

		Action: SeriesAction,
	}
}

func SeriesAction(c *cli.Context) error {
	steps := c.Int("steps")
	if steps < 0 {
		return cli.Exit("steps can't be negative", 1)
	}

	if err := runSeries(c.App.Writer, steps, c.Int("fail-at")); err != nil {
		return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
	}
	return nil
}

// runSeries drives the series with Run on the calling goroutine and returns the error
// the series ended with.
func runSeries(out io.Writer, n, failAt int) error {
	q := eventqueue.NewQueue(eventqueue.WithName("series"), eventqueue.WithoutLocking())

	steps := make([]eventqueue.SeriesStep, 0, n)
	for i := 1; i <= n; i++ {
		steps = append(steps, func(done eventqueue.Callback) {
			fmt.Fprintf(out, "step %d\n", i)
			if i == failAt {
				done(fmt.Errorf("step %d failed", i))
				return
			}
			done(nil)
		})
	}

	var result error
	ended := false
	eventqueue.SeriesOn(q, steps, func(err error) {
		ended = true
		result = err
		fmt.Fprintf(out, "end: %v\n", err)
	})
	q.Run(0)

	if !ended {
		return fmt.Errorf("series did not complete")
	}
	return result
}
