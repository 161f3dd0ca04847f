package runner

import (
	"bufio"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/nvandessel/pedigree/internal/agemodel"
	"github.com/nvandessel/pedigree/internal/coalescence"
	"github.com/nvandessel/pedigree/internal/config"
	"github.com/nvandessel/pedigree/internal/constants"
	"github.com/nvandessel/pedigree/internal/logging"
	"github.com/nvandessel/pedigree/internal/metrics"
)

func smallParams() Params {
	p := DefaultParams()
	p.Founders = 120
	p.Horizon = 200
	p.SampleInterval = 50
	return p
}

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Params)
		wantErr bool
	}{
		{"defaults", func(*Params) {}, false},
		{"no founders", func(p *Params) { p.Founders = 0 }, true},
		{"negative horizon", func(p *Params) { p.Horizon = -1 }, true},
		{"unknown lineage", func(p *Params) { p.Lineage = "sideways" }, true},
		{"bad fidelity", func(p *Params) { p.Simulation.Fidelity = 2 }, true},
		{"bad age model", func(p *Params) { p.AgeModel.DeathRate = 0 }, true},
		{"empty lineage", func(p *Params) { p.Lineage = "" }, false},
		{"too many founders", func(p *Params) { p.Founders = 2_000_000 }, true},
		{"horizon too long", func(p *Params) { p.Horizon = 1e9 }, true},
		{"tiny sample interval", func(p *Params) { p.SampleInterval = 1e-12 }, true},
		{"sample every year", func(p *Params) { p.SampleInterval = 1 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)
			if err := p.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRun_RejectsTinySampleInterval(t *testing.T) {
	p := smallParams()
	p.Founders = 10
	p.Horizon = 2000
	p.SampleInterval = 1e-12

	res, err := Run(context.Background(), p)
	if err == nil {
		t.Fatalf("expected error, got result with %d samples", len(res.Samples))
	}
}

func TestNewSampler_CapsPreallocation(t *testing.T) {
	s := newSampler(1e-3, 1000)
	if got := cap(s.samples); got > maxSampleHint+1 {
		t.Errorf("cap(samples) = %d, want at most %d", got, maxSampleHint+1)
	}
	s.through(1, 7)
	if len(s.samples) < 1000 {
		t.Errorf("len(samples) = %d, want at least 1000", len(s.samples))
	}
}

func TestParamsFromConfig(t *testing.T) {
	cfg := config.Default()
	got := ParamsFromConfig(cfg)
	if !reflect.DeepEqual(got, DefaultParams()) {
		t.Errorf("ParamsFromConfig(Default()) = %+v, want %+v", got, DefaultParams())
	}

	cfg.Simulation.MatePolicy = "selective"
	cfg.Simulation.MaxDepth = 500
	got = ParamsFromConfig(cfg)
	if got.Simulation.MatePolicy != "selective" || got.MaxDepth != 500 {
		t.Errorf("overrides not carried: %+v", got)
	}
}

func TestRun_InvalidParams(t *testing.T) {
	p := smallParams()
	p.Founders = -3
	if _, err := Run(context.Background(), p); err == nil {
		t.Fatal("Run() with negative founders should fail")
	}
}

func TestRun_ImmediateHorizon(t *testing.T) {
	p := smallParams()
	p.Founders = 10
	p.Horizon = 0

	res, err := Run(context.Background(), p)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Population != 10 {
		t.Errorf("Population = %d, want 10", res.Population)
	}
	want := []coalescence.Point{{Time: 0, Lineages: 10}}
	if !reflect.DeepEqual(res.Paternal, want) || !reflect.DeepEqual(res.Maternal, want) {
		t.Errorf("trajectories = %v / %v, want %v", res.Paternal, res.Maternal, want)
	}
	if len(res.Samples) != 1 || res.Samples[0].Population != 10 {
		t.Errorf("Samples = %v, want a single sample of 10", res.Samples)
	}
}

func TestRun_Samples(t *testing.T) {
	res, err := Run(context.Background(), smallParams())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(res.Samples) != 5 {
		t.Fatalf("len(Samples) = %d, want 5 (0, 50, 100, 150, 200)", len(res.Samples))
	}
	for i, s := range res.Samples {
		if s.Time != float64(i)*50 {
			t.Errorf("Samples[%d].Time = %v, want %v", i, s.Time, float64(i)*50)
		}
	}
	if res.Samples[0].Population != 120 {
		t.Errorf("population at time 0 = %d, want all 120 founders", res.Samples[0].Population)
	}
	if last := res.Samples[len(res.Samples)-1]; last.Population != res.Population {
		t.Errorf("sample at horizon = %d, want final population %d", last.Population, res.Population)
	}
	if res.Males+res.Females != res.Population {
		t.Errorf("males %d + females %d != population %d", res.Males, res.Females, res.Population)
	}
	if res.Individuals != 120+res.Offspring {
		t.Errorf("Individuals = %d, want founders + offspring = %d", res.Individuals, 120+res.Offspring)
	}
}

func TestRun_TrajectoriesStartAtPopulation(t *testing.T) {
	res, err := Run(context.Background(), smallParams())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Population == 0 {
		t.Skip("population died out")
	}
	for name, traj := range map[string][]coalescence.Point{"paternal": res.Paternal, "maternal": res.Maternal} {
		if len(traj) == 0 {
			t.Fatalf("%s trajectory is empty", name)
		}
		if traj[0] != (coalescence.Point{Time: 0, Lineages: res.Population}) {
			t.Errorf("%s first point = %v", name, traj[0])
		}
		for i := 1; i < len(traj); i++ {
			if traj[i].Lineages >= traj[i-1].Lineages || traj[i].Time < traj[i-1].Time {
				t.Errorf("%s not monotone at %d: %v -> %v", name, i, traj[i-1], traj[i])
			}
		}
	}
}

func TestRun_Reproducible(t *testing.T) {
	first, err := Run(context.Background(), smallParams())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	second, err := Run(context.Background(), smallParams())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	first.Duration, second.Duration = 0, 0
	if !reflect.DeepEqual(first, second) {
		t.Error("two runs with the same seed differ")
	}
}

func TestRun_SingleLineage(t *testing.T) {
	p := smallParams()
	p.Lineage = constants.LineagePaternal
	res, err := Run(context.Background(), p)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Maternal != nil {
		t.Error("maternal trajectory should not be computed")
	}
	if res.Paternal == nil && res.Population > 0 {
		t.Error("paternal trajectory missing")
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Run(ctx, smallParams()); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
}

func TestRun_FixedAgeModel(t *testing.T) {
	p := smallParams()
	p.Founders = 20
	p.Horizon = 99

	res, err := Run(context.Background(), p, WithAgeModel(agemodel.Fixed{Lifespan: 100, Wait: 10}))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	// Nobody dies before age 100, so every individual is still alive.
	if res.Population != res.Individuals {
		t.Errorf("Population = %d, Individuals = %d", res.Population, res.Individuals)
	}
}

func TestRun_MetricsAndEventTrace(t *testing.T) {
	dir := t.TempDir()
	el := logging.NewEventLogger(dir, "debug")
	if el == nil {
		t.Fatal("NewEventLogger() returned nil at debug level")
	}
	m := metrics.New()

	res, err := Run(context.Background(), smallParams(), WithMetrics(m), WithEventLogger(el))
	el.Close()
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var counted float64
	for _, kind := range []string{"birth", "death", "reproduction", "enters_mating_age", "exits_mating_age"} {
		counted += testutil.ToFloat64(m.Events.WithLabelValues(kind))
	}
	if int(counted) != res.Events {
		t.Errorf("metrics counted %v events, result has %d", counted, res.Events)
	}
	if got := testutil.ToFloat64(m.Population); int(got) != res.Population {
		t.Errorf("population gauge = %v, want %d", got, res.Population)
	}

	f, err := os.Open(filepath.Join(dir, constants.EventTraceFile))
	if err != nil {
		t.Fatalf("open trace: %v", err)
	}
	defer f.Close()
	lines := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines++
	}
	if lines != res.Events {
		t.Errorf("trace has %d lines, want %d", lines, res.Events)
	}
}
