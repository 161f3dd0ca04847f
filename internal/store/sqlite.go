package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nvandessel/pedigree/internal/coalescence"
	"github.com/nvandessel/pedigree/internal/constants"
	"github.com/nvandessel/pedigree/internal/runner"
)

// timeLayout is RFC 3339 with fixed-width nanoseconds so that stored
// timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteRunStore implements RunStore using SQLite for persistence.
type SQLiteRunStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	dir    string
	dbPath string
}

// NewSQLiteRunStore opens (or creates) the run database in dataDir.
func NewSQLiteRunStore(dataDir string) (*SQLiteRunStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, constants.DatabaseFile)

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite works best with single writer

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteRunStore{db: db, dir: dataDir, dbPath: dbPath}, nil
}

// Path returns the database file path.
func (s *SQLiteRunStore) Path() string { return s.dbPath }

// SaveRun stores a result with its trajectories and samples in one
// transaction.
func (s *SQLiteRunStore) SaveRun(ctx context.Context, res *runner.Result) (string, error) {
	if res == nil {
		return "", fmt.Errorf("result is required")
	}
	params, err := json.Marshal(res.Params)
	if err != nil {
		return "", fmt.Errorf("marshal params: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	id := uuid.NewString()
	created := time.Now().UTC()
	sum := summarize(id, created, res)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (
			id, created_at, seed, founders, horizon, population, males, females,
			individuals, events, offspring, no_mate, final_time, duration_ns,
			paternal_lineages, maternal_lineages, params
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, created.Format(timeLayout), strconv.FormatUint(res.Params.Seed, 10),
		res.Params.Founders, res.Params.Horizon, res.Population, res.Males, res.Females,
		res.Individuals, res.Events, res.Offspring, res.NoMate, res.FinalTime,
		int64(res.Duration), sum.PaternalLineages, sum.MaternalLineages, string(params))
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	if err := insertTrajectory(ctx, tx, id, constants.LineagePaternal, res.Paternal); err != nil {
		return "", err
	}
	if err := insertTrajectory(ctx, tx, id, constants.LineageMaternal, res.Maternal); err != nil {
		return "", err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO population_samples (run_id, seq, time, population) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare sample insert: %w", err)
	}
	defer stmt.Close()
	for i, sm := range res.Samples {
		if _, err := stmt.ExecContext(ctx, id, i, sm.Time, sm.Population); err != nil {
			return "", fmt.Errorf("failed to insert sample %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}
	return id, nil
}

func insertTrajectory(ctx context.Context, tx *sql.Tx, id string, lineage constants.Lineage, points []coalescence.Point) error {
	if len(points) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO trajectory_points (run_id, lineage, seq, time, lineages) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare trajectory insert: %w", err)
	}
	defer stmt.Close()
	for i, p := range points {
		if _, err := stmt.ExecContext(ctx, id, string(lineage), i, p.Time, p.Lineages); err != nil {
			return fmt.Errorf("failed to insert %s point %d: %w", lineage, i, err)
		}
	}
	return nil
}

// resolveID maps an ID or unique ID prefix to a full run ID.
func (s *SQLiteRunStore) resolveID(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", ErrNotFound
	}
	pattern := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(id) + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM runs WHERE id LIKE ? ESCAPE '\' ORDER BY id LIMIT 2`, pattern)
	if err != nil {
		return "", fmt.Errorf("failed to look up run: %w", err)
	}
	defer rows.Close()

	var matches []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return "", fmt.Errorf("failed to scan run id: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	switch {
	case len(matches) == 0:
		return "", fmt.Errorf("%s: %w", id, ErrNotFound)
	case len(matches) > 1 && matches[0] != id:
		return "", fmt.Errorf("%s: %w", id, ErrAmbiguousID)
	}
	return matches[0], nil
}

// GetRun loads a run with its trajectories and samples.
func (s *SQLiteRunStore) GetRun(ctx context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fullID, err := s.resolveID(ctx, id)
	if err != nil {
		return nil, err
	}

	var (
		createdStr string
		params     string
		durationNS int64
		res        runner.Result
	)
	err = s.db.QueryRowContext(ctx, `
		SELECT created_at, population, males, females, individuals, events,
		       offspring, no_mate, final_time, duration_ns, params
		FROM runs WHERE id = ?`, fullID).Scan(
		&createdStr, &res.Population, &res.Males, &res.Females, &res.Individuals,
		&res.Events, &res.Offspring, &res.NoMate, &res.FinalTime, &durationNS, &params)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run: %w", err)
	}
	if err := json.Unmarshal([]byte(params), &res.Params); err != nil {
		return nil, fmt.Errorf("failed to decode params: %w", err)
	}
	res.Duration = time.Duration(durationNS)

	created, err := time.Parse(timeLayout, createdStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}

	if res.Paternal, err = s.loadTrajectory(ctx, fullID, constants.LineagePaternal); err != nil {
		return nil, err
	}
	if res.Maternal, err = s.loadTrajectory(ctx, fullID, constants.LineageMaternal); err != nil {
		return nil, err
	}
	if res.Samples, err = s.loadSamples(ctx, fullID); err != nil {
		return nil, err
	}

	return &Run{ID: fullID, CreatedAt: created, Result: &res}, nil
}

func (s *SQLiteRunStore) loadTrajectory(ctx context.Context, id string, lineage constants.Lineage) ([]coalescence.Point, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT time, lineages FROM trajectory_points WHERE run_id = ? AND lineage = ? ORDER BY seq`,
		id, string(lineage))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s trajectory: %w", lineage, err)
	}
	defer rows.Close()

	var points []coalescence.Point
	for rows.Next() {
		var p coalescence.Point
		if err := rows.Scan(&p.Time, &p.Lineages); err != nil {
			return nil, fmt.Errorf("failed to scan %s point: %w", lineage, err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

func (s *SQLiteRunStore) loadSamples(ctx context.Context, id string) ([]runner.Sample, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT time, population FROM population_samples WHERE run_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	var samples []runner.Sample
	for rows.Next() {
		var sm runner.Sample
		if err := rows.Scan(&sm.Time, &sm.Population); err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		samples = append(samples, sm)
	}
	return samples, rows.Err()
}

// ListRuns returns run summaries, newest first.
func (s *SQLiteRunStore) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, created_at, seed, founders, horizon, population, individuals,
		       events, paternal_lineages, maternal_lineages, duration_ns
		FROM runs ORDER BY created_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			sum        RunSummary
			createdStr string
			seedStr    string
			durationNS int64
		)
		if err := rows.Scan(&sum.ID, &createdStr, &seedStr, &sum.Founders, &sum.Horizon,
			&sum.Population, &sum.Individuals, &sum.Events,
			&sum.PaternalLineages, &sum.MaternalLineages, &durationNS); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if sum.CreatedAt, err = time.Parse(timeLayout, createdStr); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		if sum.Seed, err = strconv.ParseUint(seedStr, 10, 64); err != nil {
			return nil, fmt.Errorf("failed to parse seed: %w", err)
		}
		sum.Duration = time.Duration(durationNS)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// DeleteRun removes a run. Trajectories and samples cascade.
func (s *SQLiteRunStore) DeleteRun(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fullID, err := s.resolveID(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, fullID); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteRunStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
