// counter serves a page with one counter whose button adds five per press
// through five batched increments.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/go-via/setstate"
	"github.com/go-via/setstate/internal/counter"
)

func main() {
	if err := run(os.Args[1:]); err != nil && !errors.Is(err, pflag.ErrHelp) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return counter.NewApp(opts).Start(ctx)
}

func parseFlags(args []string) (setstate.Options, error) {
	var opts setstate.Options
	var logLevel string

	flagSet := pflag.NewFlagSet("counter", pflag.ContinueOnError)
	flagSet.StringVar(&opts.ServerAddress, "addr", ":3000", "http listen address")
	flagSet.StringVar(&logLevel, "log-level", "info", "log level: error, warn, info, debug")
	flagSet.StringVar(&opts.DocumentTitle, "title", "Counter", "document title")
	if err := flagSet.Parse(args); err != nil {
		return opts, err
	}

	lvl, err := setstate.ParseLogLevel(logLevel)
	if err != nil {
		return opts, err
	}
	opts.LogLvl = lvl
	return opts, nil
}
