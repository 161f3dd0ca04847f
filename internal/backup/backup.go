// Package backup archives stored simulation runs to a single checksummed,
// compressed file and restores them into a run store.
package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/nvandessel/pedigree/internal/store"
)

const (
	filePrefix = "pedigree-backup-"
	fileSuffix = ".json.gz"
)

// Dir returns the backup directory inside a data directory.
func Dir(dataDir string) string {
	return filepath.Join(dataDir, "backups")
}

// GeneratePath returns a timestamped archive path in dir. Names sort by age.
func GeneratePath(dir string) string {
	ts := time.Now().UTC().Format("20060102-150405.000")
	return filepath.Join(dir, filePrefix+ts+fileSuffix)
}

// Backup writes every run in s to path and returns the archive.
func Backup(ctx context.Context, s store.RunStore, path string) (*Archive, error) {
	summaries, err := s.ListRuns(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	a := &Archive{
		Version:   FormatVersion,
		CreatedAt: time.Now().UTC(),
		Runs:      make([]store.Run, 0, len(summaries)),
	}
	// Oldest first so a restore recreates the original order.
	for i := len(summaries) - 1; i >= 0; i-- {
		run, err := s.GetRun(ctx, summaries[i].ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load run %s: %w", summaries[i].ID, err)
		}
		a.Runs = append(a.Runs, *run)
	}

	if err := Write(path, a); err != nil {
		return nil, err
	}
	return a, nil
}

// RestoreResult reports a restore.
type RestoreResult struct {
	Restored int      `json:"restored"`
	IDs      []string `json:"ids"`
}

// Restore saves every run of the archive at path into s. Runs receive new
// IDs; the archive itself is left untouched.
func Restore(ctx context.Context, s store.RunStore, path string) (*RestoreResult, error) {
	a, err := Read(path)
	if err != nil {
		return nil, err
	}

	res := &RestoreResult{IDs: make([]string, 0, len(a.Runs))}
	for _, run := range a.Runs {
		if run.Result == nil {
			continue
		}
		id, err := s.SaveRun(ctx, run.Result)
		if err != nil {
			return res, fmt.Errorf("failed to restore run %s: %w", run.ID, err)
		}
		res.IDs = append(res.IDs, id)
		res.Restored++
	}
	return res, nil
}

// Info describes an archive on disk.
type Info struct {
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
	RunCount  int       `json:"run_count"`
}

// List returns the archives in dir, newest first. A missing dir is empty.
func List(dir string) ([]Info, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading backup directory: %w", err)
	}

	var infos []Info
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		info := Info{
			Path:      filepath.Join(dir, name),
			Size:      fi.Size(),
			CreatedAt: fi.ModTime(),
		}
		if h, err := ReadHeader(info.Path); err == nil {
			info.CreatedAt = h.CreatedAt
			info.RunCount = h.RunCount
		}
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool {
		return filepath.Base(infos[i].Path) > filepath.Base(infos[j].Path)
	})
	return infos, nil
}

// Rotate keeps the keep newest archives in dir and deletes the rest.
// keep <= 0 keeps everything.
func Rotate(dir string, keep int) (deleted []string, err error) {
	if keep <= 0 {
		return nil, nil
	}
	infos, err := List(dir)
	if err != nil {
		return nil, err
	}
	if len(infos) <= keep {
		return nil, nil
	}
	for _, info := range infos[keep:] {
		if err := os.Remove(info.Path); err != nil {
			return deleted, fmt.Errorf("removing %s: %w", filepath.Base(info.Path), err)
		}
		deleted = append(deleted, info.Path)
	}
	return deleted, nil
}
