package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/handiism/sdss-fetch/internal/catalog"
	"github.com/handiism/sdss-fetch/internal/config"
	"github.com/handiism/sdss-fetch/internal/logging"
	"github.com/handiism/sdss-fetch/internal/tui"
)

func main() {
	configFlag := flag.String("config", "sdss-fetch.yaml", "Path to config file")
	flag.Parse()

	settings, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	cat := catalog.Default()
	if settings.CatalogFile != "" {
		if cat, err = catalog.Load(settings.CatalogFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading catalog: %v\n", err)
			os.Exit(1)
		}
	}

	// The alternate screen owns the terminal.
	logging.Init(logging.Config{Level: "disabled"})

	if err := tui.Run(settings, cat); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
