package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nvandessel/pedigree/internal/runner"
)

// InMemoryRunStore implements RunStore for tests and for sessions that run
// with persistence disabled.
type InMemoryRunStore struct {
	mu    sync.RWMutex
	runs  map[string]Run
	order []string // IDs in insertion order
}

// NewInMemoryRunStore creates a new in-memory store.
func NewInMemoryRunStore() *InMemoryRunStore {
	return &InMemoryRunStore{runs: make(map[string]Run)}
}

// SaveRun stores a result and returns its new run ID.
func (s *InMemoryRunStore) SaveRun(ctx context.Context, res *runner.Result) (string, error) {
	if res == nil {
		return "", fmt.Errorf("result is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	s.runs[id] = Run{ID: id, CreatedAt: time.Now().UTC(), Result: res}
	s.order = append(s.order, id)
	return id, nil
}

// GetRun returns the run whose ID equals or uniquely starts with id.
func (s *InMemoryRunStore) GetRun(ctx context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fullID, err := s.resolveID(id)
	if err != nil {
		return nil, err
	}
	run := s.runs[fullID]
	return &run, nil
}

func (s *InMemoryRunStore) resolveID(id string) (string, error) {
	if id == "" {
		return "", ErrNotFound
	}
	if _, ok := s.runs[id]; ok {
		return id, nil
	}
	var match string
	for candidate := range s.runs {
		if strings.HasPrefix(candidate, id) {
			if match != "" {
				return "", fmt.Errorf("%s: %w", id, ErrAmbiguousID)
			}
			match = candidate
		}
	}
	if match == "" {
		return "", fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return match, nil
}

// ListRuns returns summaries, newest first.
func (s *InMemoryRunStore) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]RunSummary, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		r := s.runs[s.order[i]]
		out = append(out, summarize(r.ID, r.CreatedAt, r.Result))
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// DeleteRun removes a run.
func (s *InMemoryRunStore) DeleteRun(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fullID, err := s.resolveID(id)
	if err != nil {
		return err
	}
	delete(s.runs, fullID)
	s.order = slices.DeleteFunc(s.order, func(id string) bool { return id == fullID })
	return nil
}

// Close is a no-op.
func (s *InMemoryRunStore) Close() error { return nil }
