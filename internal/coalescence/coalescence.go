// Package coalescence retraces single-parent lineages of a living
// population backward in time and counts how many distinct lineages remain.
//
// The walk is read-only: it follows father or mother handles through the
// arena and never touches the simulator's state.
package coalescence

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/nvandessel/pedigree/internal/constants"
	"github.com/nvandessel/pedigree/internal/heap"
	"github.com/nvandessel/pedigree/internal/population"
)

// ErrNoSelector is returned when Coalesce is called without a parent selector.
var ErrNoSelector = errors.New("parent selector is required")

// Point is one step of a trajectory. Time runs backward from the reference
// time (0 = present); Lineages is the number of distinct lineages still
// represented at that depth.
type Point struct {
	Time     float64 `json:"time"`
	Lineages int     `json:"lineages"`
}

// Selector resolves the parent a walk follows.
type Selector func(*population.Individual) population.ID

var (
	// Paternal follows father links (Y lineage).
	Paternal Selector = (*population.Individual).Father

	// Maternal follows mother links (mitochondrial lineage).
	Maternal Selector = (*population.Individual).Mother
)

// SelectorFor maps a single lineage to its selector.
func SelectorFor(l constants.Lineage) (Selector, error) {
	switch l {
	case constants.LineagePaternal:
		return Paternal, nil
	case constants.LineageMaternal:
		return Maternal, nil
	default:
		return nil, fmt.Errorf("no selector for lineage %q", l)
	}
}

// Analyzer walks lineages stored in an arena.
type Analyzer struct {
	arena     *population.Arena
	reference float64
	hasRef    bool
	maxDepth  float64
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithReferenceTime fixes the calendar time that maps to backward time 0.
// By default it is the most recent birth in the input population.
func WithReferenceTime(t float64) Option {
	return func(a *Analyzer) {
		if !math.IsNaN(t) && !math.IsInf(t, 0) {
			a.reference = t
			a.hasRef = true
		}
	}
}

// WithMaxDepth stops the walk once a child is separated from its parent by
// more than d units of time. Zero or negative means unbounded.
func WithMaxDepth(d float64) Option {
	return func(a *Analyzer) {
		if d > 0 {
			a.maxDepth = d
		}
	}
}

// NewAnalyzer creates an analyzer over arena.
func NewAnalyzer(arena *population.Arena, opts ...Option) *Analyzer {
	a := &Analyzer{arena: arena}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Paternal retraces father links of living.
func (a *Analyzer) Paternal(living []population.ID) ([]Point, error) {
	return a.Coalesce(living, Paternal)
}

// Maternal retraces mother links of living.
func (a *Analyzer) Maternal(living []population.ID) ([]Point, error) {
	return a.Coalesce(living, Maternal)
}

// Coalesce retraces the lineages of living through parent and returns the
// trajectory in chronological order of the walk: the first point is
// (0, number of distinct inputs), each following point records one fusion, times are
// non-decreasing and counts strictly decrease by one. Founders end their
// lineage without a fusion, so a population with several root lineages
// stops above one. An empty input yields an empty trajectory.
func (a *Analyzer) Coalesce(living []population.ID, parent Selector) ([]Point, error) {
	if parent == nil {
		return nil, ErrNoSelector
	}
	if len(living) == 0 {
		return nil, nil
	}

	birth := func(id population.ID) float64 { return a.arena.MustGet(id).BirthTime() }

	// Youngest first.
	pq := heap.New[population.ID](func(x, y population.ID) bool { return birth(x) > birth(y) })
	active := make(map[population.ID]struct{}, len(living))
	newest := math.Inf(-1)
	for _, id := range living {
		ind := a.arena.Get(id)
		if ind == nil {
			return nil, fmt.Errorf("coalesce: unknown individual %d: %w", id, population.ErrInvalidIndividual)
		}
		if _, dup := active[id]; dup {
			continue
		}
		active[id] = struct{}{}
		pq.Insert(id)
		newest = max(newest, ind.BirthTime())
	}

	reference := newest
	if a.hasRef {
		reference = a.reference
	}

	initial := len(active)
	lineages := initial
	var fusions []float64
	for lineages > 1 && !pq.IsEmpty() {
		id, _ := pq.ExtractMin()
		child := a.arena.MustGet(id)
		pid := parent(child)
		if pid == population.None {
			continue
		}
		p := a.arena.Get(pid)
		if p == nil {
			return nil, fmt.Errorf("coalesce: %s has unknown parent %d: %w", child, pid, population.ErrInvalidIndividual)
		}

		if _, seen := active[pid]; seen {
			lineages--
			fusions = append(fusions, reference-p.BirthTime())
		} else {
			active[pid] = struct{}{}
			pq.Insert(pid)
		}

		if a.maxDepth > 0 && child.BirthTime()-p.BirthTime() > a.maxDepth {
			break
		}
	}

	// Fusions are discovered youngest child first, which is not always
	// youngest parent first.
	slices.Sort(fusions)
	points := make([]Point, 0, len(fusions)+1)
	points = append(points, Point{Time: 0, Lineages: initial})
	for i, t := range fusions {
		points = append(points, Point{Time: t, Lineages: initial - i - 1})
	}
	return points, nil
}

// Remaining returns the lineage count at the end of a trajectory, or 0 for
// an empty one.
func Remaining(points []Point) int {
	if len(points) == 0 {
		return 0
	}
	return points[len(points)-1].Lineages
}
