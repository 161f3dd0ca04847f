// Package simulator implements the event-driven demographic engine.
//
// A Simulator owns the event queue and the living population. The driver
// repeatedly takes the next event and hands it back to
// AdvanceTimeAndDispatch, which moves the calendar forward and runs the
// event's handler. Handlers re-validate their subject at dispatch time: an
// event whose subject died or changed state since it was scheduled is a
// silent no-op rather than being removed from the queue.
package simulator

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/nvandessel/pedigree/internal/agemodel"
	"github.com/nvandessel/pedigree/internal/constants"
	"github.com/nvandessel/pedigree/internal/heap"
	"github.com/nvandessel/pedigree/internal/logging"
	"github.com/nvandessel/pedigree/internal/population"
)

// Stats counts what happened during a run.
type Stats struct {
	Dispatched  map[EventKind]int
	Offspring   int // children conceived
	NoMate      int // reproduction attempts without an available father
	StaleEvents int // events skipped because their subject was already gone
}

// Simulator is the event-driven state machine. It is not safe for
// concurrent use.
type Simulator struct {
	cfg    Config
	model  agemodel.AgeModel
	rng    *rand.Rand
	logger *slog.Logger

	arena  *population.Arena
	events *heap.PriorityHeap[Event]
	now    float64
	rate   float64

	males     *population.Set
	females   *population.Set
	available *population.Set

	stats Stats
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(s *Simulator) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithArena makes the simulator add individuals to an existing arena.
func WithArena(a *population.Arena) Option {
	return func(s *Simulator) {
		if a != nil {
			s.arena = a
		}
	}
}

// New creates a simulator at calendar time zero. Every probabilistic
// decision draws from rng, so a fixed seed reproduces a run exactly.
func New(cfg Config, model agemodel.AgeModel, rng *rand.Rand, opts ...Option) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if model == nil {
		return nil, fmt.Errorf("age model is required: %w", ErrInvalidArgument)
	}
	if rng == nil {
		return nil, fmt.Errorf("random source is required: %w", ErrInvalidArgument)
	}
	if cfg.MatePolicy == "" {
		cfg.MatePolicy = MatePolicyUniform
	}

	s := &Simulator{
		cfg:       cfg,
		model:     model,
		rng:       rng,
		logger:    logging.Discard(),
		arena:     population.NewArena(0),
		events:    heap.New[Event](eventBefore),
		males:     population.NewSet(),
		females:   population.NewSet(),
		available: population.NewSet(),
		stats:     Stats{Dispatched: make(map[EventKind]int, len(Kinds))},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.rate = cfg.ReproductionRate
	if s.rate == 0 {
		span := model.ExpectedReproductiveSpan(cfg.MinMatingAgeFemale, cfg.MaxMatingAgeFemale)
		if span > 0 {
			s.rate = constants.OffspringPerFemale / span
		}
	}
	return s, nil
}

// Now returns the calendar time.
func (s *Simulator) Now() float64 { return s.now }

// ReproductionRate returns the per-female rate of reproduction attempts.
func (s *Simulator) ReproductionRate() float64 { return s.rate }

// Arena returns the arena holding every individual created so far.
func (s *Simulator) Arena() *population.Arena { return s.arena }

// Config returns the simulator's parameters.
func (s *Simulator) Config() Config { return s.cfg }

// Stats returns a copy of the run counters.
func (s *Simulator) Stats() Stats {
	out := s.stats
	out.Dispatched = make(map[EventKind]int, len(s.stats.Dispatched))
	for k, v := range s.stats.Dispatched {
		out.Dispatched[k] = v
	}
	return out
}

// CreateFounder adds an individual without parents, born at the current
// calendar time. It is not alive until its Birth event is dispatched.
func (s *Simulator) CreateFounder(sex population.Sex) (population.ID, error) {
	return s.CreateFounderAt(sex, s.now)
}

// CreateFounderAt adds a founder born at an explicit time, which must not
// precede the calendar.
func (s *Simulator) CreateFounderAt(sex population.Sex, birth float64) (population.ID, error) {
	if birth < s.now {
		return population.None, fmt.Errorf("founder born at %g before calendar time %g: %w", birth, s.now, ErrInvalidArgument)
	}
	id, err := s.arena.NewFounder(sex, birth)
	if err != nil {
		return population.None, fmt.Errorf("create founder: %v: %w", err, ErrInvalidArgument)
	}
	return id, nil
}

// ScheduleFounderBirth queues the Birth event of a founder at its birth time.
func (s *Simulator) ScheduleFounderBirth(id population.ID) error {
	ind := s.arena.Get(id)
	if ind == nil {
		return fmt.Errorf("schedule birth of unknown individual %d: %w", id, ErrInvalidArgument)
	}
	if !ind.IsFounder() {
		return fmt.Errorf("individual %d is not a founder: %w", id, ErrInvalidArgument)
	}
	if ind.HasDeathTime() {
		return fmt.Errorf("founder %d is already born: %w", id, ErrInvalidArgument)
	}
	if ind.BirthTime() < s.now {
		return fmt.Errorf("founder %d birth %g precedes calendar time %g: %w", id, ind.BirthTime(), s.now, ErrOrderingViolation)
	}
	s.schedule(Birth, id, ind.BirthTime())
	return nil
}

// HasPendingEvents reports whether any event is queued.
func (s *Simulator) HasPendingEvents() bool { return !s.events.IsEmpty() }

// PendingEvents returns the number of queued events.
func (s *Simulator) PendingEvents() int { return s.events.Len() }

// PeekEvent returns the next event without consuming it.
func (s *Simulator) PeekEvent() (Event, bool) { return s.events.Peek() }

// NextEvent removes and returns the next event in time order. The calendar
// does not move until the event is dispatched.
func (s *Simulator) NextEvent() (Event, bool) { return s.events.ExtractMin() }

// Cancel removes a queued event. It reports whether the event was queued.
// The linear scan makes this an exceptional path; handlers already ignore
// events that became irrelevant.
func (s *Simulator) Cancel(e Event) bool { return s.events.Remove(e) }

// Step takes the next event and dispatches it. It returns false when the
// queue is empty.
func (s *Simulator) Step() (Event, bool, error) {
	e, ok := s.events.ExtractMin()
	if !ok {
		return Event{}, false, nil
	}
	return e, true, s.AdvanceTimeAndDispatch(e)
}

// RunUntil dispatches events until the queue is empty or the next event is
// later than horizon. Events exactly at the horizon are processed. The
// context is checked between events.
func (s *Simulator) RunUntil(ctx context.Context, horizon float64) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		next, ok := s.events.Peek()
		if !ok || next.Time > horizon {
			return nil
		}
		if _, _, err := s.Step(); err != nil {
			return err
		}
	}
}

// AdvanceTimeAndDispatch moves the calendar to e.Time and runs the handler
// for e. An event earlier than the calendar is an ordering violation.
func (s *Simulator) AdvanceTimeAndDispatch(e Event) error {
	if math.IsNaN(e.Time) {
		return fmt.Errorf("event %s has no time: %w", e, ErrInvalidArgument)
	}
	if e.Time < s.now {
		return fmt.Errorf("dispatch %s at calendar time %g: %w", e, s.now, ErrOrderingViolation)
	}
	ind := s.arena.Get(e.Subject)
	if ind == nil {
		return fmt.Errorf("dispatch %s: unknown subject: %w", e, ErrInvalidArgument)
	}

	s.now = e.Time
	s.stats.Dispatched[e.Kind]++

	switch e.Kind {
	case Birth:
		return s.handleBirth(ind)
	case Death:
		s.handleDeath(ind)
		return nil
	case EntersMatingAge:
		return s.handleEntersMatingAge(ind)
	case ExitsMatingAge:
		return s.handleExitsMatingAge(ind)
	case Reproduction:
		return s.handleReproduction(ind)
	default:
		return fmt.Errorf("dispatch %s: unknown event kind: %w", e, ErrInvalidArgument)
	}
}

// CurrentPopulationSize returns the number of living individuals.
func (s *Simulator) CurrentPopulationSize() int {
	return s.males.Len() + s.females.Len()
}

// AvailableMales returns the number of males currently eligible as mates.
func (s *Simulator) AvailableMales() int { return s.available.Len() }

// LivingIndividuals returns a snapshot of the living population ordered by
// birth time.
func (s *Simulator) LivingIndividuals() []population.ID {
	return s.arena.Snapshot(s.males, s.females)
}

// LivingMales returns a snapshot of living males ordered by birth time.
func (s *Simulator) LivingMales() []population.ID {
	return s.arena.Snapshot(s.males)
}

// LivingFemales returns a snapshot of living females ordered by birth time.
func (s *Simulator) LivingFemales() []population.ID {
	return s.arena.Snapshot(s.females)
}

// IsAlive reports whether id is in the living population.
func (s *Simulator) IsAlive(id population.ID) bool {
	return s.males.Contains(id) || s.females.Contains(id)
}

func (s *Simulator) schedule(kind EventKind, id population.ID, t float64) {
	if math.IsInf(t, 0) || math.IsNaN(t) {
		return
	}
	s.events.Insert(Event{Kind: kind, Subject: id, Time: t})
}

func (s *Simulator) trace(msg string, args ...any) {
	s.logger.Log(context.Background(), logging.LevelTrace, msg, args...)
}
