package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/handiism/sdss-fetch/internal/catalog"
	"github.com/handiism/sdss-fetch/internal/config"
	"github.com/handiism/sdss-fetch/internal/logging"
)

// exitError carries a process exit code through cobra.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

var bannerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("#7AA2F7"))

func main() {
	if err := newRootCommand().Execute(); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			if exit.msg != "" {
				fmt.Fprintln(os.Stderr, exit.msg)
			}
			os.Exit(exit.code)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// globalOptions are the flags shared by every command.
type globalOptions struct {
	configPath string
	outputDir  string
	workers    int
	verbose    bool
	logFormat  string

	settings *config.Settings
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:           "sdss-fetch",
		Short:         "Download SDSS spectra with fallback across data releases",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "sdss-fetch.yaml", "Path to config file (missing file uses defaults)")
	flags.StringVarP(&opts.outputDir, "output", "o", "", "Output directory (overrides config)")
	flags.IntVarP(&opts.workers, "workers", "w", 0, "Concurrent targets (overrides config)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Show every attempt")
	flags.StringVar(&opts.logFormat, "log-format", "", "Console log format: console or json")

	cmd.AddCommand(newFetchCommand(opts))
	cmd.AddCommand(newRetryCommand(opts))
	cmd.AddCommand(newCandidatesCommand(opts))
	cmd.AddCommand(newConfigCommand(opts))
	return cmd
}

// load reads settings and applies flag overrides.
func (o *globalOptions) load(cmd *cobra.Command) error {
	settings, err := config.Load(o.configPath)
	if err != nil {
		return err
	}

	if o.outputDir != "" {
		settings.OutputDir = o.outputDir
	}
	if cmd.Flags().Changed("workers") {
		settings.Workers = o.workers
	}
	if o.verbose {
		settings.Verbose = true
		settings.Logging.Level = "debug"
	}
	if o.logFormat != "" {
		settings.Logging.Format = o.logFormat
	}

	if err := settings.Validate(); err != nil {
		return err
	}

	logging.Init(logging.Config{
		Level:  settings.Logging.Level,
		Format: settings.Logging.Format,
		Output: os.Stderr,
	})

	o.settings = settings
	return nil
}

// catalog returns the configured catalog, or the built-in one.
func (o *globalOptions) catalog() (*catalog.Catalog, error) {
	if o.settings.CatalogFile == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(o.settings.CatalogFile)
}
