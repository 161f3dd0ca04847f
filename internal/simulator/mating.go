package simulator

import (
	"github.com/nvandessel/pedigree/internal/population"
)

// chooseMate returns a father for mother, or population.None when nobody is
// available. A mother in a relationship keeps her partner unless the
// fidelity check fails; otherwise a new partner is drawn according to the
// mate policy and the pair is linked.
func (s *Simulator) chooseMate(mother *population.Individual) population.ID {
	if s.inRelationship(mother) && s.isFaithful() {
		return mother.Mate()
	}

	var father population.ID
	switch s.cfg.MatePolicy {
	case MatePolicySelective:
		father = s.selectiveCandidate()
	default:
		father = s.uniformCandidate()
	}
	if father == population.None {
		return population.None
	}
	// Both IDs are live arena handles, so Pair cannot fail.
	_ = s.arena.Pair(mother.ID(), father)
	return father
}

// uniformCandidate draws uniformly from the available males.
func (s *Simulator) uniformCandidate() population.ID {
	n := s.available.Len()
	if n == 0 {
		return population.None
	}
	return s.available.At(s.rng.IntN(n))
}

// selectiveCandidate scans the available males in random order. An unpaired
// male is accepted at once; a paired one only if he strays.
func (s *Simulator) selectiveCandidate() population.ID {
	candidates := s.available.IDs()
	s.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	for _, id := range candidates {
		c := s.arena.MustGet(id)
		if !s.inRelationship(c) || !s.isFaithful() {
			return id
		}
	}
	return population.None
}

// inRelationship reports whether ind has a living mate who still
// reciprocates the link.
func (s *Simulator) inRelationship(ind *population.Individual) bool {
	mate := s.arena.Get(ind.Mate())
	if mate == nil || mate.Mate() != ind.ID() {
		return false
	}
	return s.IsAlive(mate.ID())
}

// isFaithful flips the fidelity coin: true with probability 1 - Fidelity.
func (s *Simulator) isFaithful() bool {
	return s.rng.Float64() >= s.cfg.Fidelity
}
