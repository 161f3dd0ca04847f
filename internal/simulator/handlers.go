package simulator

import (
	"fmt"

	"github.com/nvandessel/pedigree/internal/population"
)

// handleBirth brings ind into the living population, fixes its death time
// and schedules the events of its life.
func (s *Simulator) handleBirth(ind *population.Individual) error {
	if ind.HasDeathTime() {
		return fmt.Errorf("individual %d born twice: %w", ind.ID(), ErrInvalidArgument)
	}
	lifespan := s.model.RandomLifespan(s.rng)
	if lifespan < 0 {
		return fmt.Errorf("age model produced negative lifespan %g: %w", lifespan, ErrInvalidArgument)
	}
	birth := ind.BirthTime()
	if err := ind.SetDeathTime(birth + lifespan); err != nil {
		return fmt.Errorf("birth of %d: %v: %w", ind.ID(), err, ErrInvalidArgument)
	}
	death := ind.DeathTime()
	s.schedule(Death, ind.ID(), death)

	switch ind.Sex() {
	case population.Female:
		s.females.Add(ind.ID())
		first := birth + s.cfg.MinMatingAgeFemale + s.model.RandomWaitingTime(s.rng, s.rate)
		if s.canReproduceAt(ind, first) {
			s.schedule(Reproduction, ind.ID(), first)
		}
	case population.Male:
		s.males.Add(ind.ID())
		if enters := birth + s.cfg.MinMatingAgeMale; enters < death {
			s.schedule(EntersMatingAge, ind.ID(), enters)
		}
		if exits := birth + s.cfg.MaxMatingAgeMale; exits < death {
			s.schedule(ExitsMatingAge, ind.ID(), exits)
		}
	}
	return nil
}

// handleDeath removes ind from the living population. A second death, or the
// death of someone never born, is a no-op.
func (s *Simulator) handleDeath(ind *population.Individual) {
	id := ind.ID()
	removed := s.males.Remove(id) || s.females.Remove(id)
	s.available.Remove(id)
	if !removed {
		s.stats.StaleEvents++
	}
}

func (s *Simulator) handleEntersMatingAge(ind *population.Individual) error {
	if ind.Sex() != population.Male {
		return fmt.Errorf("enters mating age: %s is not male: %w", ind, ErrInvalidArgument)
	}
	if !s.males.Contains(ind.ID()) {
		s.stats.StaleEvents++
		return nil
	}
	s.available.Add(ind.ID())
	return nil
}

func (s *Simulator) handleExitsMatingAge(ind *population.Individual) error {
	if ind.Sex() != population.Male {
		return fmt.Errorf("exits mating age: %s is not male: %w", ind, ErrInvalidArgument)
	}
	s.available.Remove(ind.ID())
	return nil
}

// handleReproduction lets a mother try to conceive and schedules her next
// attempt. Conception needs a father; if none is available the cycle passes
// without a child.
func (s *Simulator) handleReproduction(mother *population.Individual) error {
	if mother.Sex() != population.Female {
		return fmt.Errorf("reproduction: %s is not female: %w", mother, ErrInvalidArgument)
	}
	if mother.DeathTime() < s.now || !s.females.Contains(mother.ID()) {
		s.stats.StaleEvents++
		s.trace("reproduction skipped, mother dead", "mother", mother.ID(), "time", s.now)
		return nil
	}

	age := mother.AgeAt(s.now)
	if age < s.cfg.MinMatingAgeFemale {
		// Too young: wait exactly until she comes of age.
		s.schedule(Reproduction, mother.ID(), s.now+(s.cfg.MinMatingAgeFemale-age))
		return nil
	}
	if age > s.cfg.MaxMatingAgeFemale {
		return nil
	}

	father := s.chooseMate(mother)
	if father == population.None {
		s.stats.NoMate++
		s.trace("reproduction without mate", "mother", mother.ID(), "time", s.now)
	} else if err := s.conceive(mother, father); err != nil {
		return err
	}

	next := s.now + s.model.RandomWaitingTime(s.rng, s.rate)
	if s.canReproduceAt(mother, next) {
		s.schedule(Reproduction, mother.ID(), next)
	}
	return nil
}

// conceive creates the child of mother and father and schedules its birth
// at the current calendar time.
func (s *Simulator) conceive(mother *population.Individual, father population.ID) error {
	sex := population.Female
	if s.rng.IntN(2) == 1 {
		sex = population.Male
	}
	child, err := s.arena.NewChild(sex, s.now, mother.ID(), father)
	if err != nil {
		return fmt.Errorf("conceive: %v: %w", err, ErrInvalidArgument)
	}
	s.stats.Offspring++
	s.schedule(Birth, child, s.now)
	return nil
}

// canReproduceAt reports whether a Reproduction event at t is worth
// scheduling: the mother is still alive and inside her mating window.
func (s *Simulator) canReproduceAt(mother *population.Individual, t float64) bool {
	return t < mother.DeathTime() && mother.AgeAt(t) <= s.cfg.MaxMatingAgeFemale
}
