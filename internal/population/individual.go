// Package population holds the ancestry graph: individuals, the arena that
// owns them, and the indexed sets used to track who is currently alive.
//
// Individuals never point at each other directly. Parent and mate links are
// IDs into the Arena, which is the single owner of every Individual ever
// created during a run.
package population

import (
	"errors"
	"fmt"
	"math"
)

// Sex of an individual. Immutable after construction.
type Sex uint8

const (
	Female Sex = iota
	Male
)

// String implements fmt.Stringer.
func (s Sex) String() string {
	switch s {
	case Female:
		return "F"
	case Male:
		return "M"
	default:
		return fmt.Sprintf("Sex(%d)", uint8(s))
	}
}

// Valid reports whether s is one of the defined sexes.
func (s Sex) Valid() bool {
	return s == Female || s == Male
}

// ID is a handle into an Arena.
type ID int32

// None is the null handle: no parent, no mate.
const None ID = -1

var (
	// ErrDeathAlreadySet is returned when a death time is assigned twice.
	ErrDeathAlreadySet = errors.New("death time already set")

	// ErrInvalidLifespan is returned when a death time precedes the birth time.
	ErrInvalidLifespan = errors.New("death time precedes birth time")
)

// Individual is a node in the ancestry graph.
type Individual struct {
	id       ID
	sex      Sex
	birth    float64
	death    float64
	deathSet bool
	father   ID
	mother   ID
	mate     ID
}

// ID returns the individual's handle in its arena.
func (ind *Individual) ID() ID { return ind.id }

// Sex returns the individual's sex.
func (ind *Individual) Sex() Sex { return ind.sex }

// BirthTime returns the simulated time of birth.
func (ind *Individual) BirthTime() float64 { return ind.birth }

// DeathTime returns the simulated time of death, or +Inf while unset.
func (ind *Individual) DeathTime() float64 {
	if !ind.deathSet {
		return math.Inf(1)
	}
	return ind.death
}

// HasDeathTime reports whether the death time has been fixed.
func (ind *Individual) HasDeathTime() bool { return ind.deathSet }

// Father returns the father's handle, or None for a founder.
func (ind *Individual) Father() ID { return ind.father }

// Mother returns the mother's handle, or None for a founder.
func (ind *Individual) Mother() ID { return ind.mother }

// Mate returns the current mate's handle, or None.
func (ind *Individual) Mate() ID { return ind.mate }

// IsFounder reports whether the individual has no parents.
func (ind *Individual) IsFounder() bool { return ind.father == None }

// AgeAt returns the individual's age at time t.
func (ind *Individual) AgeAt(t float64) float64 { return t - ind.birth }

// IsAliveAt reports whether the individual is born and not yet dead at t.
// Death is exclusive: an individual whose death time equals t is dead.
func (ind *Individual) IsAliveAt(t float64) bool {
	return t >= ind.birth && t < ind.DeathTime()
}

// SetDeathTime fixes the death time. It may be called once.
func (ind *Individual) SetDeathTime(t float64) error {
	if ind.deathSet {
		return fmt.Errorf("individual %d: %w", ind.id, ErrDeathAlreadySet)
	}
	if math.IsNaN(t) || t < ind.birth {
		return fmt.Errorf("individual %d: death %g before birth %g: %w", ind.id, t, ind.birth, ErrInvalidLifespan)
	}
	ind.death = t
	ind.deathSet = true
	return nil
}

// String implements fmt.Stringer.
func (ind *Individual) String() string {
	return fmt.Sprintf("%d[%s %.2f..%.2f]", ind.id, ind.sex, ind.birth, ind.DeathTime())
}
