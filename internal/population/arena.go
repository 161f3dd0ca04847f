package population

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidIndividual is returned for malformed construction parameters.
var ErrInvalidIndividual = errors.New("invalid individual")

// maxIndividuals is the number of handles an ID can address.
var maxIndividuals = math.MaxInt32

// Arena owns every Individual created during a run. Handles stay valid for
// the arena's lifetime; individuals are never freed, so dead ancestors remain
// reachable from their descendants.
type Arena struct {
	individuals []*Individual
}

// NewArena creates an empty arena with room for capacity individuals.
func NewArena(capacity int) *Arena {
	if capacity < 0 {
		capacity = 0
	}
	return &Arena{individuals: make([]*Individual, 0, capacity)}
}

// Len returns the number of individuals ever created.
func (a *Arena) Len() int { return len(a.individuals) }

// Get returns the individual for id, or nil if the handle is out of range.
func (a *Arena) Get(id ID) *Individual {
	if id < 0 || int(id) >= len(a.individuals) {
		return nil
	}
	return a.individuals[id]
}

// MustGet is Get for handles known to be valid.
func (a *Arena) MustGet(id ID) *Individual {
	ind := a.Get(id)
	if ind == nil {
		panic(fmt.Sprintf("population: unknown individual %d", id))
	}
	return ind
}

// NewFounder creates an individual with no parents.
func (a *Arena) NewFounder(sex Sex, birth float64) (ID, error) {
	if !sex.Valid() {
		return None, fmt.Errorf("founder sex %v: %w", sex, ErrInvalidIndividual)
	}
	if math.IsNaN(birth) || math.IsInf(birth, 0) {
		return None, fmt.Errorf("founder birth time %g: %w", birth, ErrInvalidIndividual)
	}
	return a.add(sex, birth, None, None)
}

// NewChild creates the offspring of mother and father born at birth.
func (a *Arena) NewChild(sex Sex, birth float64, mother, father ID) (ID, error) {
	if !sex.Valid() {
		return None, fmt.Errorf("child sex %v: %w", sex, ErrInvalidIndividual)
	}
	m, f := a.Get(mother), a.Get(father)
	if m == nil || f == nil {
		return None, fmt.Errorf("child parents (%d, %d): %w", mother, father, ErrInvalidIndividual)
	}
	if m.sex != Female || f.sex != Male {
		return None, fmt.Errorf("child parents %s and %s have wrong sexes: %w", m, f, ErrInvalidIndividual)
	}
	if birth < m.birth || birth < f.birth {
		return None, fmt.Errorf("child born at %g before a parent: %w", birth, ErrInvalidIndividual)
	}
	return a.add(sex, birth, father, mother)
}

func (a *Arena) add(sex Sex, birth float64, father, mother ID) (ID, error) {
	if len(a.individuals) >= maxIndividuals {
		return None, fmt.Errorf("arena full at %d individuals: %w", len(a.individuals), ErrInvalidIndividual)
	}
	id := ID(len(a.individuals))
	a.individuals = append(a.individuals, &Individual{
		id:     id,
		sex:    sex,
		birth:  birth,
		father: father,
		mother: mother,
		mate:   None,
	})
	return id, nil
}

// Pair links two individuals as each other's current mate, replacing any
// previous link either of them had. The abandoned partners keep their stale
// back-reference until they re-pair.
func (a *Arena) Pair(x, y ID) error {
	ix, iy := a.Get(x), a.Get(y)
	if ix == nil || iy == nil {
		return fmt.Errorf("pair (%d, %d): %w", x, y, ErrInvalidIndividual)
	}
	ix.mate = y
	iy.mate = x
	return nil
}
