// Package datadir manages the dated output layout shared by every export:
// data/<area>/<date>/ directories holding *-latest files that get rotated to
// *-version-N when a new run starts on the same day.
package datadir

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Today returns the date segment used for run directories.
func Today() string {
	return time.Now().Format("2006-01-02")
}

// EnsureRunDir creates (if needed) the dated directory under root and
// rotates any files left by earlier runs of the same day: each
// <prefix>-latest.<ext> becomes <prefix>-version-N.<ext>. With no prefixes
// the bare latest.<ext> file is rotated instead. It returns the directory
// path.
func EnsureRunDir(root, ext string, prefixes []string) (string, error) {
	location := filepath.Join(root, Today())
	if err := os.MkdirAll(location, 0o755); err != nil {
		return "", fmt.Errorf("create run directory %q: %w", location, err)
	}

	entries, err := os.ReadDir(location)
	if err != nil {
		return "", fmt.Errorf("read run directory %q: %w", location, err)
	}
	files := 0
	for _, e := range entries {
		if !e.IsDir() {
			files++
		}
	}

	divider := 1
	if len(prefixes) > 0 {
		divider = len(prefixes)
	}
	version := files / divider
	if version == 0 {
		return location, nil
	}

	if len(prefixes) > 0 {
		for _, prefix := range prefixes {
			if err := rotate(location, prefix, ext, version); err != nil {
				return "", err
			}
		}
	} else if err := rotate(location, "", ext, version); err != nil {
		return "", err
	}
	return location, nil
}

func rotate(location, prefix, ext string, version int) error {
	oldName := "latest"
	newName := fmt.Sprintf("version-%d", version)
	if prefix != "" {
		oldName = prefix + "-latest"
		newName = fmt.Sprintf("%s-version-%d", prefix, version)
	}

	current := filepath.Join(location, oldName+"."+ext)
	if _, err := os.Stat(current); os.IsNotExist(err) {
		return nil
	}
	renamed := filepath.Join(location, newName+"."+ext)
	if err := os.Rename(current, renamed); err != nil {
		return fmt.Errorf("rotate %q: %w", current, err)
	}
	return nil
}

// Clean removes the data root. With backup set, the root is renamed to a
// timestamped sibling instead of being deleted.
func Clean(root string, backup bool) (string, error) {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return "", nil
	}

	if backup {
		dest := fmt.Sprintf("%s-backup-%s", root, time.Now().Format("20060102-150405"))
		if err := os.Rename(root, dest); err != nil {
			return "", fmt.Errorf("back up data root: %w", err)
		}
		return dest, nil
	}

	if err := os.RemoveAll(root); err != nil {
		return "", fmt.Errorf("remove data root: %w", err)
	}
	return "", nil
}
