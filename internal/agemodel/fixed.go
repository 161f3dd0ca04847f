package agemodel

import "math/rand/v2"

// Fixed is a deterministic AgeModel. Every lifespan and waiting time is the
// configured constant, and the random source is never consulted.
type Fixed struct {
	Lifespan float64
	Wait     float64
}

// RandomLifespan returns f.Lifespan.
func (f Fixed) RandomLifespan(*rand.Rand) float64 { return f.Lifespan }

// RandomWaitingTime returns f.Wait regardless of rate.
func (f Fixed) RandomWaitingTime(*rand.Rand, float64) float64 { return f.Wait }

// ExpectedReproductiveSpan assumes everyone survives the whole window.
func (f Fixed) ExpectedReproductiveSpan(minAge, maxAge float64) float64 {
	if maxAge <= minAge {
		return 0
	}
	return maxAge - minAge
}
