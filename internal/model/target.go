package model

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Target identifies one observed spectrum.
//
// The triplet is immutable identity: it names exactly one archive object,
// but that object may be reachable under many URLs depending on the data
// release that processed it.
type Target struct {
	Plate int `json:"plate"`
	MJD   int `json:"mjd"`
	Fiber int `json:"fiber"`
}

// ErrInvalidTarget is returned when a target triplet cannot be parsed or
// contains out-of-range values.
var ErrInvalidTarget = errors.New("invalid target")

// Key returns a normalized "plate-mjd-fiber" key for the target.
func (t Target) Key() string {
	return fmt.Sprintf("%d-%d-%d", t.Plate, t.MJD, t.Fiber)
}

// String implements fmt.Stringer.
func (t Target) String() string {
	return fmt.Sprintf("plate=%d mjd=%d fiber=%d", t.Plate, t.MJD, t.Fiber)
}

// FileName returns the local file name for the target's spectrum.
//
// The plate is zero-padded to 4 digits and the fiber to 5, the MJD is not
// padded:
//
//	Target{Plate: 751, MJD: 52251, Fiber: 160}.FileName("fits")
//	// spec-0751-52251-00160.fits
func (t Target) FileName(ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	return fmt.Sprintf("spec-%04d-%d-%05d.%s", t.Plate, t.MJD, t.Fiber, ext)
}

// FailedLine returns the tab-separated representation used by the
// failed-target list.
func (t Target) FailedLine() string {
	return fmt.Sprintf("%d\t%d\t%d", t.Plate, t.MJD, t.Fiber)
}

// Validate reports whether the triplet can address an archive object.
func (t Target) Validate() error {
	if t.Plate <= 0 {
		return fmt.Errorf("%w: plate must be positive, got %d", ErrInvalidTarget, t.Plate)
	}
	if t.MJD <= 0 {
		return fmt.Errorf("%w: mjd must be positive, got %d", ErrInvalidTarget, t.MJD)
	}
	if t.Fiber < 0 {
		return fmt.Errorf("%w: fiber must not be negative, got %d", ErrInvalidTarget, t.Fiber)
	}
	return nil
}

// ParseTarget parses a single target triplet.
//
// The three integers may be separated by dashes, commas, whitespace or tabs:
//
//	ParseTarget("751-52251-160")
//	ParseTarget("751,52251,160")
//	ParseTarget("751\t52251\t160")
func ParseTarget(s string) (Target, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == '-' || r == ',' || r == ';' || r == ' ' || r == '\t'
	})
	if len(fields) != 3 {
		return Target{}, fmt.Errorf("%w: %q: want plate, mjd and fiber", ErrInvalidTarget, s)
	}

	var values [3]int
	for i, field := range fields {
		n, err := strconv.Atoi(field)
		if err != nil {
			return Target{}, fmt.Errorf("%w: %q: %v", ErrInvalidTarget, s, err)
		}
		values[i] = n
	}

	t := Target{Plate: values[0], MJD: values[1], Fiber: values[2]}
	if err := t.Validate(); err != nil {
		return Target{}, err
	}
	return t, nil
}

// ParseTargets reads one target per line from r.
//
// Blank lines and lines starting with '#' are skipped. A line that does not
// parse aborts the read with an error naming its line number.
func ParseTargets(r io.Reader) ([]Target, error) {
	var targets []Target

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		t, err := ParseTarget(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		targets = append(targets, t)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return targets, nil
}
