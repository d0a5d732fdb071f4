// Package ioutils provides file system utilities for sdss-fetch.
//
// # Collision-Safe Creation
//
// CreateUnique opens a new file for writing without ever clobbering an
// existing one. The existence check and the creation are a single atomic
// O_EXCL open, so concurrent workers saving the same target cannot race:
//
//	f, path, err := ioutils.CreateUnique(dir, "spec-0751-52251-00160.fits")
//	// path is .../spec-0751-52251-00160.fits, or ..._2.fits, ..._3.fits if taken
//
// # Append-Only Files
//
//	f, err := ioutils.OpenAppend("/data/spectra/sdss_fetch.log")
//
// # Directories
//
//	err := ioutils.EnsureDir("/data/spectra")
package ioutils
