package agemodel

import (
	"math"
	"math/rand/v2"
	"testing"
)

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr bool
	}{
		{"defaults", DefaultParams(), false},
		{"no accidents", Params{AccidentRate: 0, DeathRate: 12.5, AgeScale: 100}, false},
		{"negative accident", Params{AccidentRate: -0.1, DeathRate: 12.5, AgeScale: 100}, true},
		{"zero death rate", Params{AccidentRate: 0.01, DeathRate: 0, AgeScale: 100}, true},
		{"zero scale", Params{AccidentRate: 0.01, DeathRate: 12.5, AgeScale: 0}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGompertzMakeham_Survival(t *testing.T) {
	m := Default()
	if got := m.Survival(0); got != 1 {
		t.Errorf("Survival(0) = %v, want 1", got)
	}
	prev := 1.0
	for a := 1.0; a <= 120; a++ {
		s := m.Survival(a)
		if s > prev {
			t.Fatalf("Survival not decreasing at age %v: %v > %v", a, s, prev)
		}
		prev = s
	}
	if m.Survival(150) > 1e-6 {
		t.Errorf("Survival(150) = %v, expected effectively zero", m.Survival(150))
	}
	if got := m.Hazard(DefaultAgeScale); math.Abs(got-(1+DefaultAccidentRate)) > 1e-12 {
		t.Errorf("Hazard(scale) = %v, want %v", got, 1+DefaultAccidentRate)
	}
}

func TestGompertzMakeham_RandomLifespanMatchesSurvival(t *testing.T) {
	m := Default()
	rng := rand.New(rand.NewPCG(1, 2))

	const n = 20000
	const age = 60.0
	survivors := 0
	for i := 0; i < n; i++ {
		l := m.RandomLifespan(rng)
		if l < 0 || math.IsNaN(l) {
			t.Fatalf("RandomLifespan() = %v", l)
		}
		if l > age {
			survivors++
		}
	}
	got := float64(survivors) / n
	want := m.Survival(age)
	if math.Abs(got-want) > 0.02 {
		t.Errorf("fraction surviving past %v = %.3f, want about %.3f", age, got, want)
	}
}

func TestGompertzMakeham_Deterministic(t *testing.T) {
	m := Default()
	a := rand.New(rand.NewPCG(99, 100))
	b := rand.New(rand.NewPCG(99, 100))
	for i := 0; i < 100; i++ {
		if x, y := m.RandomLifespan(a), m.RandomLifespan(b); x != y {
			t.Fatalf("draw %d differs: %v vs %v", i, x, y)
		}
		if x, y := m.RandomWaitingTime(a, 0.1), m.RandomWaitingTime(b, 0.1); x != y {
			t.Fatalf("wait %d differs: %v vs %v", i, x, y)
		}
	}
}

func TestGompertzMakeham_RandomWaitingTime(t *testing.T) {
	m := Default()
	rng := rand.New(rand.NewPCG(5, 6))

	if w := m.RandomWaitingTime(rng, 0); !math.IsInf(w, 1) {
		t.Errorf("RandomWaitingTime(rate=0) = %v, want +Inf", w)
	}

	const n = 20000
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += m.RandomWaitingTime(rng, 0.25)
	}
	if mean := sum / n; math.Abs(mean-4) > 0.15 {
		t.Errorf("mean waiting time = %v, want about 4", mean)
	}
}

func TestGompertzMakeham_ExpectedReproductiveSpan(t *testing.T) {
	m := Default()
	span := m.ExpectedReproductiveSpan(16, 50)
	if span <= 0 || span >= 34 {
		t.Fatalf("ExpectedReproductiveSpan(16, 50) = %v, want in (0, 34)", span)
	}
	// Survival is bounded by its values at the window edges.
	if lo, hi := 34*m.Survival(50), 34*m.Survival(16); span < lo || span > hi {
		t.Errorf("span %v outside [%v, %v]", span, lo, hi)
	}
	if got := m.ExpectedReproductiveSpan(50, 16); got != 0 {
		t.Errorf("inverted window span = %v, want 0", got)
	}
}

func TestFixed(t *testing.T) {
	f := Fixed{Lifespan: 100, Wait: 10}
	if f.RandomLifespan(nil) != 100 || f.RandomWaitingTime(nil, 3) != 10 {
		t.Error("Fixed must return its constants")
	}
	if got := f.ExpectedReproductiveSpan(16, 50); got != 34 {
		t.Errorf("ExpectedReproductiveSpan = %v, want 34", got)
	}
}
