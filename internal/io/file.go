package ioutils

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// MaxUniqueSuffix bounds the collision suffixes CreateUnique will try.
const MaxUniqueSuffix = 10000

// ErrNoUniqueName is returned when every suffix up to MaxUniqueSuffix is taken.
var ErrNoUniqueName = errors.New("no unique file name available")

// CreateUnique creates a new file named name inside dir.
//
// If the name is taken, an incrementing suffix is inserted before the
// extension, starting at 2:
//
//	spec-0751-52251-00160.fits
//	spec-0751-52251-00160_2.fits
//	spec-0751-52251-00160_3.fits
//
// Each try is an O_CREATE|O_EXCL open, so a name is never handed to two
// callers. The returned path is the file that was created.
func CreateUnique(dir, name string) (*os.File, string, error) {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	for n := 1; n <= MaxUniqueSuffix; n++ {
		candidate := name
		if n > 1 {
			candidate = fmt.Sprintf("%s_%d%s", base, n, ext)
		}
		path := filepath.Join(dir, candidate)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", err
		}
	}

	return nil, "", fmt.Errorf("%w: %s", ErrNoUniqueName, filepath.Join(dir, name))
}

// OpenAppend opens path for appending, creating it and its parent
// directories if needed.
func OpenAppend(path string) (*os.File, error) {
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
}

// Rotate moves path aside to path+".prev", replacing any earlier rotation,
// and returns the new location. A missing path is not an error and returns
// "".
func Rotate(path string) (string, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	dst := path + ".prev"
	if err := os.Rename(path, dst); err != nil {
		return "", err
	}
	return dst, nil
}

// EnsureDir creates a directory and all parent directories if they don't exist.
//
// Directories are created with mode 0755 (rwxr-xr-x).
// If the directory already exists, no error is returned.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}
