package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/DanielHemmis/BggCollections/internal/bootstrap"
	"github.com/DanielHemmis/BggCollections/internal/collections"
	"github.com/DanielHemmis/BggCollections/internal/render"
	"github.com/DanielHemmis/BggCollections/pkg/config"
	"github.com/DanielHemmis/BggCollections/pkg/env"
	"github.com/DanielHemmis/BggCollections/pkg/logger"
)

const (
	flagFormat   = "format"
	flagOut      = "out"
	flagProgress = "progress"
)

type options struct {
	format   string
	out      string
	progress bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "collect [usernames...]",
		Short: "Combine BoardGameGeek collections into one table",
		Long: `Fetch the owned games of every given BoardGameGeek user and print one
row per distinct game with its owners, summed plays and attached expansions.

Usernames may also be passed comma separated or through BGGCOLLECTIONS_USERNAMES.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, args, stdout, stderr)
		},
	}
	cmd.Flags().StringVarP(&opts.format, flagFormat, "f", string(render.FormatTable), "output format: table, json or html")
	cmd.Flags().StringVarP(&opts.out, flagOut, "o", "", "write output to this file instead of stdout")
	cmd.Flags().BoolVar(&opts.progress, flagProgress, false, "print per-user metadata progress to stderr")
	return cmd
}

func run(ctx context.Context, opts *options, args []string, stdout, stderr io.Writer) error {
	format, err := render.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	logg := logger.New(logger.Options{ServiceName: "collect", Output: stderr})
	if err := godotenv.Load(); err != nil {
		logg.Debug(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logg = logger.New(logger.Options{
		ServiceName: "collect",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
		Output:      stderr,
	})

	usernames := args
	if len(usernames) == 0 {
		usernames = env.List(config.EnvDefaultUsernames)
	}

	buildOpts := bootstrap.Options{}
	if opts.progress {
		buildOpts.Progress = func(username string, resolved, total int) {
			fmt.Fprintf(stderr, "Fetching %s: %d / %d games fetched.\n", username, resolved, total)
		}
	}
	app, err := bootstrap.Build(ctx, cfg, logg, buildOpts)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	result, err := app.Collections.Aggregate(ctx, usernames)
	if err != nil {
		return err
	}

	if opts.out == "" {
		if err := render.Write(stdout, format, result); err != nil {
			return fmt.Errorf("render: %w", err)
		}
		return nil
	}
	if err := writeFile(opts.out, format, result); err != nil {
		return err
	}
	fmt.Fprintf(stderr, "Output written to %s\n", opts.out)
	return nil
}

// writeFile renders result into path. The close error is returned since
// buffered data may only hit the disk there.
func writeFile(path string, format render.Format, result collections.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := render.Write(f, format, result); err != nil {
		_ = f.Close()
		return fmt.Errorf("render: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	return nil
}
