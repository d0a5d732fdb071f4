// Package config provides configuration management for sdss-fetch.
//
// This package handles:
//   - Layered loading: defaults, then a YAML file, then environment
//   - Validation of every field
//   - Saving settings back to YAML
//   - Conversion to HTTP client options
//
// # Default Settings
//
// Use DefaultSettings() to get sensible defaults:
//
//	settings := config.DefaultSettings()
//	// Saves to ./spectra with 8 workers
//	// 2 attempts per URL, 5s apart, 10s timeout
//
// # Loading from File
//
//	settings, err := config.Load("sdss-fetch.yaml")
//	if err != nil {
//	    // Uses defaults if file doesn't exist
//	}
//
// Any key can be overridden from the environment:
//
//	SDSS_FETCH_WORKERS=16
//	SDSS_FETCH_RETRY_DELAY=2s
//	SDSS_FETCH_MIRROR__BUCKET=spectra
//
// # Saving Settings
//
//	settings.OutputDir = "/data/sdss"
//	err := settings.Save("sdss-fetch.yaml")
package config
