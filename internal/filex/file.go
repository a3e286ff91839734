// Package filex manages the local staging directory for uploaded files.
package filex

import (
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// EnsureDir creates dir (relative paths resolve against the working
// directory) and returns its absolute path.
func EnsureDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("abs %s: %w", dir, err)
	}

	if err := os.MkdirAll(abs, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", abs, err)
	}

	return abs, nil
}

// UniqueName returns "<original>-<unixmillis>-<random>". Only the base name
// of original is kept, so client-supplied paths cannot escape the directory.
func UniqueName(original string, now time.Time) string {
	base := filepath.Base(strings.ReplaceAll(original, `\`, "/"))
	if base == "." || base == "/" || base == ".." {
		base = "upload"
	}
	return base + "-" + strconv.FormatInt(now.UnixMilli(), 10) + "-" + strconv.Itoa(rand.IntN(1e9))
}

// CreateUnique creates a new file for original inside dir. It never
// overwrites an existing file.
func CreateUnique(dir, original string) (*os.File, error) {
	path := filepath.Join(dir, UniqueName(original, time.Now()))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, nil
}
