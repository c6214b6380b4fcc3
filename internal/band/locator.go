package band

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Naming convention for simulator output: a fixed prefix, a
// zero-padded band number, and a fixed extension.
const (
	filePrefix = "hyperdrive_band"
	fileExt    = ".bin"
)

// DirectoryAccessError means a directory could not be listed at all.
type DirectoryAccessError struct {
	Dir string
	Err error
}

func (e *DirectoryAccessError) Error() string {
	return fmt.Sprintf("cannot read directory %s: %v", e.Dir, e.Err)
}

func (e *DirectoryAccessError) Unwrap() error {
	return e.Err
}

// DuplicateBandError means two files in one directory resolve to the
// same band index (e.g. hyperdrive_band01.bin and
// hyperdrive_band001.bin), so it is ambiguous which one to compare.
type DuplicateBandError struct {
	Band   uint
	First  string
	Second string
}

func (e *DuplicateBandError) Error() string {
	return fmt.Sprintf("band %02d appears twice: %s and %s", e.Band, e.First, e.Second)
}

// FileName returns the conventional file name for a band index.
func FileName(index uint) string {
	return fmt.Sprintf("%s%02d%s", filePrefix, index, fileExt)
}

// ParseIndex extracts the band index from a file name, reporting
// whether the name follows the convention. Leading zeros in the
// numeric part are not significant.
func ParseIndex(name string) (uint, bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileExt) {
		return 0, false
	}
	digits := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileExt)
	if digits == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(digits, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(n), true
}

// Locate scans dir for simulator band files and maps each band index
// to its path. Files that do not follow the naming convention are
// ignored; the directory may hold unrelated output.
func Locate(dir string) (map[uint]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &DirectoryAccessError{Dir: dir, Err: err}
	}

	found := make(map[uint]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		index, ok := ParseIndex(entry.Name())
		if !ok {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if prev, dup := found[index]; dup {
			return nil, &DuplicateBandError{Band: index, First: prev, Second: path}
		}
		found[index] = path
	}
	return found, nil
}
