// Package agemodel draws lifespans and inter-birth waiting times.
//
// The simulator treats an AgeModel as a black box: it only needs random
// lifespans, random waiting times for a given reproduction rate, and the
// expected length of the reproductive span used to calibrate that rate.
package agemodel

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// AgeModel is the lifespan and fertility collaborator of the simulator.
type AgeModel interface {
	// RandomLifespan draws a lifespan in simulation time units.
	RandomLifespan(rng *rand.Rand) float64

	// RandomWaitingTime draws the time until the next reproduction attempt
	// for a Poisson process with the given rate.
	RandomWaitingTime(rng *rand.Rand, rate float64) float64

	// ExpectedReproductiveSpan is the expected time an individual spends
	// alive inside the [minAge, maxAge] window.
	ExpectedReproductiveSpan(minAge, maxAge float64) float64
}

// Default Gompertz–Makeham parameters.
const (
	// DefaultAccidentRate is the age-independent yearly death rate.
	DefaultAccidentRate = 0.01
	// DefaultDeathRate is the e-folding time, in years, of the senescent hazard.
	DefaultDeathRate = 12.5
	// DefaultAgeScale is the age at which the senescent hazard reaches 1 per year.
	DefaultAgeScale = 100.0
)

// GompertzMakeham is an AgeModel whose hazard at age a is
//
//	h(a) = accident + exp((a - scale) / deathRate)
//
// a constant accident term plus a senescent term that grows exponentially
// and reaches one death per year at age scale.
type GompertzMakeham struct {
	accident  float64
	deathRate float64
	scale     float64
	g0        float64 // senescent hazard at birth
}

// Params configures a GompertzMakeham model.
type Params struct {
	AccidentRate float64 `json:"accident_rate" yaml:"accident_rate"`
	DeathRate    float64 `json:"death_rate" yaml:"death_rate"`
	AgeScale     float64 `json:"age_scale" yaml:"age_scale"`
}

// DefaultParams returns the standard human-like parameters.
func DefaultParams() Params {
	return Params{
		AccidentRate: DefaultAccidentRate,
		DeathRate:    DefaultDeathRate,
		AgeScale:     DefaultAgeScale,
	}
}

// Validate checks that the parameters define a proper distribution.
func (p Params) Validate() error {
	if p.AccidentRate < 0 {
		return fmt.Errorf("accident_rate must be non-negative, got %g", p.AccidentRate)
	}
	if p.DeathRate <= 0 {
		return fmt.Errorf("death_rate must be positive, got %g", p.DeathRate)
	}
	if p.AgeScale <= 0 {
		return fmt.Errorf("age_scale must be positive, got %g", p.AgeScale)
	}
	return nil
}

// NewGompertzMakeham creates a model from validated parameters.
func NewGompertzMakeham(p Params) (*GompertzMakeham, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &GompertzMakeham{
		accident:  p.AccidentRate,
		deathRate: p.DeathRate,
		scale:     p.AgeScale,
		g0:        math.Exp(-p.AgeScale / p.DeathRate),
	}, nil
}

// Default returns the model with DefaultParams.
func Default() *GompertzMakeham {
	m, _ := NewGompertzMakeham(DefaultParams())
	return m
}

// Hazard returns the instantaneous death rate at age a.
func (m *GompertzMakeham) Hazard(a float64) float64 {
	return m.accident + math.Exp((a-m.scale)/m.deathRate)
}

// Survival returns the probability of reaching age a.
func (m *GompertzMakeham) Survival(a float64) float64 {
	return math.Exp(-m.accident*a - m.deathRate*m.g0*math.Expm1(a/m.deathRate))
}

// RandomLifespan draws the minimum of an accidental and a senescent death
// age. The senescent age inverts the cumulative Gompertz hazard at a unit
// exponential draw.
func (m *GompertzMakeham) RandomLifespan(rng *rand.Rand) float64 {
	unit := distuv.Exponential{Rate: 1, Src: rng}
	senescent := m.deathRate * math.Log1p(unit.Rand()/(m.deathRate*m.g0))
	if m.accident == 0 {
		return senescent
	}
	accidental := distuv.Exponential{Rate: m.accident, Src: rng}.Rand()
	return math.Min(senescent, accidental)
}

// RandomWaitingTime draws an exponential waiting time. A non-positive rate
// never fires and yields +Inf.
func (m *GompertzMakeham) RandomWaitingTime(rng *rand.Rand, rate float64) float64 {
	return exponentialWait(rng, rate)
}

// ExpectedReproductiveSpan integrates the survival function over
// [minAge, maxAge] with Simpson's rule, doubling the resolution until the
// estimate settles.
func (m *GompertzMakeham) ExpectedReproductiveSpan(minAge, maxAge float64) float64 {
	if maxAge <= minAge {
		return 0
	}
	const (
		tolerance = 1e-9
		maxPanels = 1 << 20
	)
	prev := simpson(m.Survival, minAge, maxAge, 16)
	for n := 32; n <= maxPanels; n *= 2 {
		cur := simpson(m.Survival, minAge, maxAge, n)
		if math.Abs(cur-prev) <= tolerance*math.Abs(cur) {
			return cur
		}
		prev = cur
	}
	return prev
}

// simpson applies composite Simpson's rule with n (even) panels.
func simpson(f func(float64) float64, lo, hi float64, n int) float64 {
	h := (hi - lo) / float64(n)
	sum := f(lo) + f(hi)
	for i := 1; i < n; i++ {
		x := lo + float64(i)*h
		if i%2 == 1 {
			sum += 4 * f(x)
		} else {
			sum += 2 * f(x)
		}
	}
	return sum * h / 3
}

func exponentialWait(rng *rand.Rand, rate float64) float64 {
	if rate <= 0 {
		return math.Inf(1)
	}
	return distuv.Exponential{Rate: rate, Src: rng}.Rand()
}
