package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nvandessel/pedigree/internal/constants"
)

// GlobalPedigreePath returns the path to the global .pedigree directory.
// On Unix: ~/.pedigree
// On Windows: %USERPROFILE%\.pedigree
func GlobalPedigreePath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, constants.DataDirName), nil
}

// ResolveDataDir makes a configured data directory absolute. Relative
// directories are taken relative to root.
func ResolveDataDir(root, dir string) string {
	if dir == "" {
		dir = constants.DataDirName
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(root, dir)
}
