package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/jamoveo/backend/internal/logging"
	"github.com/jamoveo/backend/internal/viewer"
)

const usage = `commands:
  p        pause / resume scrolling
  j, k     scroll down / up
  s <id>   select a song for everyone (admin)
  x        stop the song for everyone (admin)
`

func main() {
	// Logs go to stderr so they don't interleave with the lyrics on stdout.
	logging.InitializeWriter(os.Stderr)

	flags := viewer.Flags()
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	cfg, err := viewer.LoadConfig(flags)
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := viewer.NewClient(*cfg, os.Stdout)
	fmt.Print(usage)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return client.Run(gctx)
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok {
					stop()
					return nil
				}
				if err := client.HandleInput(gctx, line); err != nil {
					fmt.Fprintln(os.Stderr, err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		slog.Error("viewer failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
