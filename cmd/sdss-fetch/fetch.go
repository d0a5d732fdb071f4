package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/handiism/sdss-fetch/internal/download"
	ioutils "github.com/handiism/sdss-fetch/internal/io"
	"github.com/handiism/sdss-fetch/internal/logging"
	"github.com/handiism/sdss-fetch/internal/metrics"
	"github.com/handiism/sdss-fetch/internal/model"
)

func newFetchCommand(opts *globalOptions) *cobra.Command {
	var targetArgs []string

	cmd := &cobra.Command{
		Use:   "fetch [targets-file]",
		Short: "Download every target in a list",
		Long: "Download spectra for the targets in targets-file (one plate, mjd and fiber\n" +
			"per line, \"-\" for stdin) and any --target flags.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var targets []model.Target
			if len(args) == 1 {
				fromFile, err := readTargets(args[0], cmd.InOrStdin())
				if err != nil {
					return err
				}
				targets = append(targets, fromFile...)
			}
			for _, arg := range targetArgs {
				t, err := model.ParseTarget(arg)
				if err != nil {
					return err
				}
				targets = append(targets, t)
			}
			if len(targets) == 0 {
				return errors.New("no targets: pass a targets file or --target")
			}
			return runFetch(cmd.Context(), opts, targets)
		},
	}

	cmd.Flags().StringArrayVarP(&targetArgs, "target", "t", nil, "Target as plate-mjd-fiber (repeatable)")
	return cmd
}

func newRetryCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "retry",
		Short: "Re-run the targets of the failed list",
		Long: "Move the failed list aside to <failed-file>.prev and fetch its targets again.\n" +
			"Targets that still fail are written to a fresh failed list.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			prev, err := ioutils.Rotate(opts.settings.FailedPath())
			if err != nil {
				return err
			}
			if prev == "" {
				logging.Info().Str("path", opts.settings.FailedPath()).Msg("No failed list, nothing to retry")
				return nil
			}

			targets, err := readTargets(prev, nil)
			if err != nil {
				return err
			}
			if len(targets) == 0 {
				logging.Info().Str("path", prev).Msg("Failed list is empty, nothing to retry")
				return nil
			}
			return runFetch(cmd.Context(), opts, targets)
		},
	}
}

// readTargets parses a target list from path, or from stdin when path is
// "-".
func readTargets(path string, stdin io.Reader) ([]model.Target, error) {
	if path == "-" {
		return model.ParseTargets(stdin)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	targets, err := model.ParseTargets(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return targets, nil
}

func runFetch(parent context.Context, opts *globalOptions, targets []model.Target) error {
	if parent == nil {
		parent = context.Background()
	}
	settings := opts.settings

	cat, err := opts.catalog()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	// First interrupt stops dispatching, the second exits at once.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
			return
		}
		logging.Warn().Msg("Interrupted, finishing targets in progress (press Ctrl-C again to quit)")
		cancel()
		<-sigCh
		os.Exit(130)
	}()

	if settings.MetricsAddr != "" {
		metricsCtx, stopMetrics := context.WithCancel(context.Background())
		defer stopMetrics()
		go func() {
			if err := metrics.Serve(metricsCtx, settings.MetricsAddr); err != nil {
				logging.Error().Err(err).Str("addr", settings.MetricsAddr).Msg("Metrics server stopped")
			}
		}()
		logging.Info().Str("addr", settings.MetricsAddr).Msg("Serving metrics")
	}

	manager, err := download.NewManager(settings, cat, logEvent)
	if err != nil {
		return err
	}
	defer manager.Close()

	fmt.Fprintln(os.Stderr, bannerStyle.Render("✦ SDSS Spectrum Fetcher"))
	logging.Info().
		Int("targets", len(targets)).
		Int("workers", settings.Workers).
		Str("output", settings.OutputDir).
		Msg("Starting downloads")

	summary, runErr := manager.Run(ctx, targets)

	received, _, _, _ := manager.GetProgress()
	logging.Info().
		Str("run_id", summary.RunID).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Int("skipped", summary.Skipped).
		Str("duration", summary.Duration().Round(time.Millisecond).String()).
		Float64("mb", float64(received)/1024/1024).
		Msg("Complete")
	if summary.Failed > 0 {
		logging.Warn().Str("path", settings.FailedPath()).Msg("Failed targets listed; run `sdss-fetch retry` to try them again")
	}

	if runErr != nil {
		return runErr
	}
	if parent.Err() == nil && ctx.Err() != nil {
		return &exitError{code: 130, msg: "Download cancelled."}
	}
	return nil
}

// logEvent forwards engine progress to the console logger.
func logEvent(event download.ProgressEvent) {
	switch event.Level {
	case download.LevelVerbose:
		logging.Debug().Msg(event.Message)
	case download.LevelWarning:
		logging.Warn().Msg(event.Message)
	case download.LevelError:
		logging.Error().Msg(event.Message)
	default:
		logging.Info().Msg(event.Message)
	}
}
