// Package pathutil confines caller-supplied file paths to known directories.
package pathutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nvandessel/pedigree/internal/constants"
)

// RedactPath shortens a path to .../<parent>/<base> for error messages.
func RedactPath(path string) string {
	if path == "" {
		return ""
	}
	cleaned := filepath.Clean(path)
	parent := filepath.Base(filepath.Dir(cleaned))
	if parent == "." || parent == string(filepath.Separator) {
		return filepath.Base(cleaned)
	}
	return ".../" + parent + "/" + filepath.Base(cleaned)
}

// ValidatePath reports an error unless path lies inside one of allowedDirs
// once cleaned and with symlinks resolved. Missing trailing components are
// allowed so that files can be validated before they are created.
func ValidatePath(path string, allowedDirs []string) error {
	switch {
	case path == "":
		return errors.New("path validation failed: path is empty")
	case len(allowedDirs) == 0:
		return errors.New("path validation failed: no allowed directories configured")
	case strings.ContainsRune(path, 0):
		return errors.New("path validation failed: path contains null byte")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("path validation failed: cannot resolve absolute path: %w", err)
	}
	dir, err := resolve(filepath.Dir(abs))
	if err != nil {
		return fmt.Errorf("path validation failed: cannot resolve parent directory: %w", err)
	}
	target := filepath.Join(dir, filepath.Base(abs))

	for _, allowed := range allowedDirs {
		allowedAbs, err := filepath.Abs(allowed)
		if err != nil {
			continue
		}
		base, err := resolve(allowedAbs)
		if err != nil {
			continue
		}
		if target == base || strings.HasPrefix(target, base+string(os.PathSeparator)) {
			return nil
		}
	}
	return fmt.Errorf("path validation failed: %q is outside allowed directories", RedactPath(abs))
}

// resolve evaluates symlinks in the longest existing prefix of dir and
// appends the components that do not exist yet.
func resolve(dir string) (string, error) {
	var missing []string
	for {
		resolved, err := filepath.EvalSymlinks(dir)
		if err == nil {
			for i := len(missing) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, missing[i])
			}
			return resolved, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("cannot resolve path: %s", RedactPath(dir))
		}
		missing = append(missing, filepath.Base(dir))
		dir = parent
	}
}

// AllowedBackupDirs returns where run archives may be read or written:
// <dataDir>/backups and ~/.pedigree/backups.
func AllowedBackupDirs(dataDir string) ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return []string{
		filepath.Join(dataDir, "backups"),
		filepath.Join(homeDir, constants.DataDirName, "backups"),
	}, nil
}
