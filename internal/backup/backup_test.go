package backup

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/nvandessel/pedigree/internal/coalescence"
	"github.com/nvandessel/pedigree/internal/runner"
	"github.com/nvandessel/pedigree/internal/store"
)

func sampleResult(seed uint64) *runner.Result {
	p := runner.DefaultParams()
	p.Seed = seed
	p.Founders = 30
	p.Horizon = 200
	return &runner.Result{
		Params:      p,
		Population:  25,
		Individuals: 90,
		Events:      400,
		Offspring:   60,
		FinalTime:   200,
		Samples:     []runner.Sample{{Time: 0, Population: 30}, {Time: 100, Population: 28}, {Time: 200, Population: 25}},
		Paternal:    []coalescence.Point{{Time: 0, Lineages: 12}, {Time: 40.5, Lineages: 3}},
		Maternal:    []coalescence.Point{{Time: 0, Lineages: 13}, {Time: 55, Lineages: 4}},
		Duration:    250 * time.Millisecond,
	}
}

func seededStore(t *testing.T, seeds ...uint64) store.RunStore {
	t.Helper()
	s := store.NewInMemoryRunStore()
	for _, seed := range seeds {
		if _, err := s.SaveRun(context.Background(), sampleResult(seed)); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
	}
	return s
}

func TestBackupRestore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	src := seededStore(t, 1, 2)
	path := filepath.Join(t.TempDir(), "nested", "runs.json.gz")

	a, err := Backup(ctx, src, path)
	if err != nil {
		t.Fatalf("Backup() error = %v", err)
	}
	if len(a.Runs) != 2 {
		t.Fatalf("archived %d runs, want 2", len(a.Runs))
	}
	// Oldest first.
	if a.Runs[0].Result.Params.Seed != 1 || a.Runs[1].Result.Params.Seed != 2 {
		t.Errorf("archive order = seeds %d, %d; want 1, 2",
			a.Runs[0].Result.Params.Seed, a.Runs[1].Result.Params.Seed)
	}

	h, err := ReadHeader(path)
	if err != nil {
		t.Fatalf("ReadHeader() error = %v", err)
	}
	if h.RunCount != 2 || !h.Compressed || !strings.HasPrefix(h.Checksum, "sha256:") {
		t.Errorf("header = %+v", h)
	}

	dst := store.NewInMemoryRunStore()
	res, err := Restore(ctx, dst, path)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if res.Restored != 2 || len(res.IDs) != 2 {
		t.Fatalf("Restore() = %+v, want 2 runs", res)
	}

	for i, id := range res.IDs {
		run, err := dst.GetRun(ctx, id)
		if err != nil {
			t.Fatalf("GetRun(%s): %v", id, err)
		}
		want := sampleResult(uint64(i + 1))
		if !reflect.DeepEqual(run.Result.Params, want.Params) {
			t.Errorf("run %d params = %+v, want %+v", i, run.Result.Params, want.Params)
		}
		if !reflect.DeepEqual(run.Result.Paternal, want.Paternal) || !reflect.DeepEqual(run.Result.Samples, want.Samples) {
			t.Errorf("run %d trajectories differ after restore", i)
		}
	}
}

func TestBackup_EmptyStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json.gz")
	a, err := Backup(context.Background(), store.NewInMemoryRunStore(), path)
	if err != nil {
		t.Fatalf("Backup() error = %v", err)
	}
	if len(a.Runs) != 0 {
		t.Errorf("archived %d runs, want 0", len(a.Runs))
	}

	res, err := Restore(context.Background(), store.NewInMemoryRunStore(), path)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if res.Restored != 0 {
		t.Errorf("Restored = %d, want 0", res.Restored)
	}
}

func TestRead_ChecksumMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.json.gz")
	if _, err := Backup(context.Background(), seededStore(t, 1), path); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	data[len(data)-1] ^= 0xff
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := Read(path); err == nil || !strings.Contains(err.Error(), "checksum mismatch") {
		t.Errorf("Read() error = %v, want checksum mismatch", err)
	}
}

func TestRead_Invalid(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"not json", "hello\n"},
		{"wrong version", `{"version":9,"checksum":"sha256:00"}` + "\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(tt.name, " ", "-"))
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}
			if _, err := Read(path); err == nil {
				t.Error("Read() should fail")
			}
		})
	}

	if _, err := Read(filepath.Join(dir, "missing")); err == nil {
		t.Error("Read() of a missing file should fail")
	}
}

func TestListRotate(t *testing.T) {
	dir := t.TempDir()
	s := seededStore(t, 1)
	names := []string{
		"pedigree-backup-20260101-000000.000.json.gz",
		"pedigree-backup-20260102-000000.000.json.gz",
		"pedigree-backup-20260103-000000.000.json.gz",
	}
	for _, name := range names {
		if _, err := Backup(context.Background(), s, filepath.Join(dir, name)); err != nil {
			t.Fatal(err)
		}
	}
	// Unrelated files are ignored.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	infos, err := List(dir)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(infos) != 3 {
		t.Fatalf("List() returned %d archives, want 3", len(infos))
	}
	if filepath.Base(infos[0].Path) != names[2] {
		t.Errorf("newest = %s, want %s", filepath.Base(infos[0].Path), names[2])
	}
	if infos[0].RunCount != 1 {
		t.Errorf("RunCount = %d, want 1", infos[0].RunCount)
	}

	deleted, err := Rotate(dir, 1)
	if err != nil {
		t.Fatalf("Rotate() error = %v", err)
	}
	if len(deleted) != 2 {
		t.Errorf("Rotate() deleted %d, want 2", len(deleted))
	}
	infos, _ = List(dir)
	if len(infos) != 1 || filepath.Base(infos[0].Path) != names[2] {
		t.Errorf("after rotate: %+v", infos)
	}

	if deleted, err := Rotate(dir, 0); err != nil || deleted != nil {
		t.Errorf("Rotate(0) = %v, %v; want no-op", deleted, err)
	}
}

func TestList_MissingDir(t *testing.T) {
	infos, err := List(filepath.Join(t.TempDir(), "nope"))
	if err != nil || infos != nil {
		t.Errorf("List(missing) = %v, %v; want nil, nil", infos, err)
	}
}

func TestGeneratePath(t *testing.T) {
	dir := Dir("/data/.pedigree")
	if dir != filepath.Join("/data/.pedigree", "backups") {
		t.Errorf("Dir() = %s", dir)
	}
	p := GeneratePath(dir)
	base := filepath.Base(p)
	if !strings.HasPrefix(base, filePrefix) || !strings.HasSuffix(base, fileSuffix) {
		t.Errorf("GeneratePath() = %s", p)
	}
}
