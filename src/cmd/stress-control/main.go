package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/BAK-ZIM/camstudio/src/singleinstance"
)

type stressOptions struct {
	n        int
	command  string
	deadline time.Duration
}

type tally struct {
	ok         int32
	rejected   int32
	noResident int32
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	opts := &stressOptions{}
	cmd := newRootCmd(opts)
	return cmd.Execute()
}

func newRootCmd(opts *stressOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stress-control",
		Short:         "Stress test the resident remote control port",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := singleinstance.ParseCommand(opts.command)
			if err != nil {
				return err
			}
			newClient := func() singleinstance.Client { return singleinstance.NewClient() }
			t := runWithOptions(*opts, c, newClient)
			report(cmd.OutOrStdout(), opts.n, t)
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.n, "n", 50, "number of concurrent clients")
	cmd.Flags().StringVar(&opts.command, "command", "status", "toggle|stop|cancel|status")
	cmd.Flags().DurationVar(&opts.deadline, "deadline", 5*time.Second, "per-client timeout")

	return cmd
}

func runWithOptions(opts stressOptions, c singleinstance.Command, newClient func() singleinstance.Client) *tally {
	var wg sync.WaitGroup
	t := &tally{}

	for i := 0; i < opts.n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), opts.deadline)
			defer cancel()
			delegated, _, err := newClient().Send(ctx, c)
			switch {
			case !delegated:
				atomic.AddInt32(&t.noResident, 1)
			case err != nil:
				atomic.AddInt32(&t.rejected, 1)
			default:
				atomic.AddInt32(&t.ok, 1)
			}
		}()
	}
	wg.Wait()
	return t
}

func report(w io.Writer, n int, t *tally) {
	fmt.Fprintf(w, "launched=%d ok=%d rejected=%d no_resident=%d\n",
		n, atomic.LoadInt32(&t.ok), atomic.LoadInt32(&t.rejected), atomic.LoadInt32(&t.noResident))
}
