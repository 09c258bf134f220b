package fsutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExpandHome expands a leading '~' to the user's home directory.
func ExpandHome(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}

// Resolve expands '~' and anchors a relative path at base. An empty path
// stays empty so callers can keep "inherit the working directory".
func Resolve(base, path string) (string, error) {
	p, err := ExpandHome(path)
	if err != nil || p == "" {
		return p, err
	}
	if filepath.IsAbs(p) || base == "" {
		return filepath.Clean(p), nil
	}
	return filepath.Join(base, p), nil
}

// PathExists checks if the given path exists.
func PathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, os.ErrNotExist)
}
