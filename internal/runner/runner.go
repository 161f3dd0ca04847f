// Package runner drives a complete simulation: it creates the founders,
// dispatches events up to the horizon, samples the population size and
// retraces the paternal and maternal lineages of the survivors.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/nvandessel/pedigree/internal/agemodel"
	"github.com/nvandessel/pedigree/internal/coalescence"
	"github.com/nvandessel/pedigree/internal/config"
	"github.com/nvandessel/pedigree/internal/constants"
	"github.com/nvandessel/pedigree/internal/logging"
	"github.com/nvandessel/pedigree/internal/metrics"
	"github.com/nvandessel/pedigree/internal/population"
	"github.com/nvandessel/pedigree/internal/simulator"
)

// Params describes one run.
type Params struct {
	Founders       int               `json:"founders"`
	Horizon        float64           `json:"horizon"`
	Seed           uint64            `json:"seed"`
	SampleInterval float64           `json:"sample_interval"` // <= 0 disables sampling
	MaxDepth       float64           `json:"max_depth"`       // <= 0 means unbounded
	Lineage        constants.Lineage `json:"lineage"`
	Simulation     simulator.Config  `json:"simulation"`
	AgeModel       agemodel.Params   `json:"age_model"`
}

// DefaultParams returns the parameters of a standard run.
func DefaultParams() Params {
	return Params{
		Founders:       constants.DefaultFounders,
		Horizon:        constants.DefaultHorizon,
		Seed:           constants.DefaultSeed,
		SampleInterval: constants.DefaultSampleInterval,
		Lineage:        constants.LineageBoth,
		Simulation:     simulator.DefaultConfig(),
		AgeModel:       agemodel.DefaultParams(),
	}
}

// ParamsFromConfig converts loaded configuration into run parameters.
func ParamsFromConfig(cfg *config.PedigreeConfig) Params {
	s := cfg.Simulation
	return Params{
		Founders:       s.Founders,
		Horizon:        s.Horizon,
		Seed:           s.Seed,
		SampleInterval: s.SampleInterval,
		MaxDepth:       s.MaxDepth,
		Lineage:        constants.Lineage(s.Lineage),
		Simulation: simulator.Config{
			MinMatingAgeFemale: s.MinMatingAgeFemale,
			MaxMatingAgeFemale: s.MaxMatingAgeFemale,
			MinMatingAgeMale:   s.MinMatingAgeMale,
			MaxMatingAgeMale:   s.MaxMatingAgeMale,
			Fidelity:           s.Fidelity,
			MatePolicy:         simulator.MatePolicy(s.MatePolicy),
			ReproductionRate:   s.ReproductionRate,
		},
		AgeModel: cfg.AgeModel,
	}
}

// Validate checks the run parameters.
func (p Params) Validate() error {
	if p.Founders <= 0 {
		return fmt.Errorf("founders must be positive, got %d", p.Founders)
	}
	if p.Horizon < 0 || math.IsNaN(p.Horizon) || math.IsInf(p.Horizon, 0) {
		return fmt.Errorf("horizon must be a finite non-negative time, got %g", p.Horizon)
	}
	if p.Founders > constants.MaxFounders {
		return fmt.Errorf("founders must be at most %d, got %d", constants.MaxFounders, p.Founders)
	}
	if p.Horizon > constants.MaxHorizon {
		return fmt.Errorf("horizon must be at most %g, got %g", constants.MaxHorizon, p.Horizon)
	}
	if math.IsNaN(p.SampleInterval) || math.IsNaN(p.MaxDepth) {
		return fmt.Errorf("sample_interval and max_depth must be numbers")
	}
	if p.SampleInterval > 0 && p.Horizon/p.SampleInterval > constants.MaxSamples {
		return fmt.Errorf("sample_interval %g yields more than %d samples over horizon %g",
			p.SampleInterval, constants.MaxSamples, p.Horizon)
	}
	if p.Lineage != "" && !p.Lineage.Valid() {
		return fmt.Errorf("unknown lineage %q", p.Lineage)
	}
	if err := p.Simulation.Validate(); err != nil {
		return err
	}
	return p.AgeModel.Validate()
}

// Sample is the living population size at a point in simulated time.
type Sample struct {
	Time       float64 `json:"time"`
	Population int     `json:"population"`
}

// Result is everything a run produced.
type Result struct {
	Params      Params              `json:"params"`
	Population  int                 `json:"population"`
	Males       int                 `json:"males"`
	Females     int                 `json:"females"`
	Individuals int                 `json:"individuals"`
	Events      int                 `json:"events"`
	Offspring   int                 `json:"offspring"`
	NoMate      int                 `json:"no_mate"`
	FinalTime   float64             `json:"final_time"`
	Samples     []Sample            `json:"samples"`
	Paternal    []coalescence.Point `json:"paternal,omitempty"`
	Maternal    []coalescence.Point `json:"maternal,omitempty"`
	Duration    time.Duration       `json:"duration"`
}

// Option configures a run.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	events  *logging.EventLogger
	metrics *metrics.Metrics
	model   agemodel.AgeModel
}

// WithLogger sets the operational logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithEventLogger traces every dispatched event. A nil logger disables it.
func WithEventLogger(el *logging.EventLogger) Option {
	return func(o *options) { o.events = el }
}

// WithMetrics records run metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithAgeModel replaces the Gompertz–Makeham model built from Params.
func WithAgeModel(m agemodel.AgeModel) Option {
	return func(o *options) { o.model = m }
}

// Run simulates p.Founders founders from time zero to p.Horizon and
// retraces the lineages of the individuals alive at the horizon. The same
// parameters always produce the same Result, apart from Duration.
func Run(ctx context.Context, p Params, opts ...Option) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run parameters: %w", err)
	}
	if p.Lineage == "" {
		p.Lineage = constants.LineageBoth
	}

	o := options{logger: logging.Discard()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.Discard()
	}
	if o.model == nil {
		gm, err := agemodel.NewGompertzMakeham(p.AgeModel)
		if err != nil {
			return nil, fmt.Errorf("age model: %w", err)
		}
		o.model = gm
	}

	start := time.Now()
	rng := rand.New(rand.NewPCG(p.Seed, p.Seed))
	sim, err := simulator.New(p.Simulation, o.model, rng,
		simulator.WithLogger(o.logger),
		simulator.WithArena(population.NewArena(p.Founders*4)))
	if err != nil {
		return nil, err
	}

	o.logger.Info("simulation starting",
		"founders", p.Founders, "horizon", p.Horizon, "seed", p.Seed,
		"reproduction_rate", sim.ReproductionRate())

	for i := 0; i < p.Founders; i++ {
		sex := population.Female
		if rng.IntN(2) == 1 {
			sex = population.Male
		}
		id, err := sim.CreateFounder(sex)
		if err != nil {
			return nil, err
		}
		if err := sim.ScheduleFounderBirth(id); err != nil {
			return nil, err
		}
	}

	res := &Result{Params: p}
	sampler := newSampler(p.SampleInterval, p.Horizon)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next, ok := sim.PeekEvent()
		if !ok || next.Time > p.Horizon {
			break
		}
		sampler.until(next.Time, sim.CurrentPopulationSize())

		e, _ := sim.NextEvent()
		if err := sim.AdvanceTimeAndDispatch(e); err != nil {
			return nil, fmt.Errorf("simulation aborted at %s: %w", e, err)
		}
		res.Events++

		size := sim.CurrentPopulationSize()
		o.metrics.ObserveEvent(e.Kind.String(), size)
		o.events.Log(map[string]any{
			"kind":       e.Kind.String(),
			"subject":    int(e.Subject),
			"time":       e.Time,
			"population": size,
		})
	}
	sampler.through(p.Horizon, sim.CurrentPopulationSize())

	stats := sim.Stats()
	res.Samples = sampler.samples
	res.Population = sim.CurrentPopulationSize()
	res.Males = len(sim.LivingMales())
	res.Females = len(sim.LivingFemales())
	res.Individuals = sim.Arena().Len()
	res.Offspring = stats.Offspring
	res.NoMate = stats.NoMate
	res.FinalTime = p.Horizon

	living := sim.LivingIndividuals()
	analyzer := coalescence.NewAnalyzer(sim.Arena(),
		coalescence.WithReferenceTime(p.Horizon),
		coalescence.WithMaxDepth(p.MaxDepth))
	for _, l := range []constants.Lineage{constants.LineagePaternal, constants.LineageMaternal} {
		if !p.Lineage.Includes(l) {
			continue
		}
		sel, err := coalescence.SelectorFor(l)
		if err != nil {
			return nil, err
		}
		points, err := analyzer.Coalesce(living, sel)
		if err != nil {
			return nil, fmt.Errorf("%s coalescence: %w", l, err)
		}
		if l == constants.LineagePaternal {
			res.Paternal = points
		} else {
			res.Maternal = points
		}
		if len(points) > 0 {
			o.metrics.SetLineages(l.String(), points[len(points)-1].Lineages)
		}
	}

	res.Duration = time.Since(start)
	o.metrics.AddNoMate(stats.NoMate)
	o.metrics.SetPopulation(res.Population)
	o.metrics.ObserveRunDuration(res.Duration)
	o.logger.Info("simulation finished",
		"population", res.Population, "individuals", res.Individuals,
		"events", res.Events, "duration", res.Duration)
	return res, nil
}

// maxSampleHint caps the up-front sample allocation; longer series grow by append.
const maxSampleHint = 4096

// sampler records the population size every interval units of time.
type sampler struct {
	interval float64
	next     float64
	samples  []Sample
}

func newSampler(interval, horizon float64) *sampler {
	s := &sampler{interval: interval}
	if interval > 0 {
		s.samples = make([]Sample, 0, int(min(horizon/interval, maxSampleHint))+1)
	}
	return s
}

// until records every sample time strictly before t. Events at a sample
// time are dispatched before that sample is taken.
func (s *sampler) until(t float64, size int) {
	if s.interval <= 0 {
		return
	}
	for s.next < t {
		s.samples = append(s.samples, Sample{Time: s.next, Population: size})
		s.next += s.interval
	}
}

// through records every remaining sample time up to and including t.
func (s *sampler) through(t float64, size int) {
	if s.interval <= 0 {
		return
	}
	for s.next <= t {
		s.samples = append(s.samples, Sample{Time: s.next, Population: size})
		s.next += s.interval
	}
}
