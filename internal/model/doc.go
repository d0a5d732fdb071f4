// Package model defines the core data structures used throughout
// the sdss-fetch application.
//
// # Target
//
// Target identifies one spectrum in the archive by its plate, MJD and fiber:
//
//	t, err := model.ParseTarget("751-52251-160")
//	fmt.Println(t.FileName("fits")) // spec-0751-52251-00160.fits
//
// Targets can be read in bulk from any line-oriented source, including the
// failed-target list written by a previous run:
//
//	targets, err := model.ParseTargets(file)
//
// # Candidates and Outcomes
//
// A Candidate is one concrete URL plus the tag of the strategy that built it.
// An Outcome is the terminal result of resolving one Target, and a RunSummary
// tallies the outcomes of a batch.
package model
