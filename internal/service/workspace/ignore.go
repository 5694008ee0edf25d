// Package workspace maintains local repository housekeeping around the data directory.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// DataDirEntry is the ignore-file entry that excludes downloaded data.
const DataDirEntry = "data/"

const ignoreComment = "# Data directory"

// EnsureIgnored appends entry to the ignore file at path unless the file
// already contains it anywhere as a substring. A missing file is treated as
// empty and created. It reports whether the file was modified.
func EnsureIgnored(path, entry string) (bool, error) {
	content, err := os.ReadFile(path) //nolint:gosec // path is caller-controlled
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	if strings.Contains(string(content), entry) {
		return false, nil
	}

	block := ignoreComment + "\n" + entry + "\n"
	if len(content) > 0 {
		block = "\n" + block
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec // ignore files are world-readable
	if err != nil {
		return false, fmt.Errorf("open %s: %w", path, err)
	}
	if _, err := f.WriteString(block); err != nil {
		_ = f.Close()
		return false, fmt.Errorf("append to %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return false, fmt.Errorf("close %s: %w", path, err)
	}
	return true, nil
}
