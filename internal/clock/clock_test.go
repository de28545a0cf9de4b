package clock

import (
	"testing"

	"github.com/danmuck/fastmon/internal/testutil/testlog"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestReconstructWrappedTicks(t *testing.T) {
	testlog.Start(t)
	p := Params{TickRolloverPeriod: 100, TickDuration: 1, HackRolloverPeriod: 128}
	ts, s := Reconstruct(State{}, Input{Ticks: 10, HackTicks: 50, HackValue: 5}, p)
	if ts != 65 {
		t.Fatalf("expected 65, got %v", ts)
	}
	if s.Rollovers != 0 || s.JustRolledOver {
		t.Fatalf("unexpected state %+v", s)
	}
}

func TestRolloverLatchCountsOnce(t *testing.T) {
	testlog.Start(t)
	p := DefaultParams()
	var s State
	_, s = Reconstruct(s, Input{CurrentHack: 127, PreviousHack: 126}, p)
	if s.Rollovers != 0 {
		t.Fatalf("no rollover expected yet, got %d", s.Rollovers)
	}
	for i := 0; i < 3; i++ {
		_, s = Reconstruct(s, Input{CurrentHack: 0, PreviousHack: 127}, p)
	}
	if s.Rollovers != 1 || !s.JustRolledOver {
		t.Fatalf("inverted counters sampled three times must count once, got %+v", s)
	}
	_, s = Reconstruct(s, Input{CurrentHack: 0, PreviousHack: 0}, p)
	if !s.JustRolledOver {
		t.Fatalf("equal counters must not clear the latch")
	}
	_, s = Reconstruct(s, Input{CurrentHack: 1, PreviousHack: 0}, p)
	if s.JustRolledOver {
		t.Fatalf("forward step must clear the latch")
	}
	_, s = Reconstruct(s, Input{CurrentHack: 0, PreviousHack: 127}, p)
	if s.Rollovers != 2 {
		t.Fatalf("second genuine inversion must count, got %d", s.Rollovers)
	}
}

func TestTimestampAddsRolloverPeriods(t *testing.T) {
	testlog.Start(t)
	p := Params{TickRolloverPeriod: 1000, TickDuration: 0.001, HackRolloverPeriod: 128}
	ts, _ := Reconstruct(State{Rollovers: 2}, Input{Ticks: 500, HackTicks: 0, HackValue: 3}, p)
	want := 128.0*2 + 3 + 0.5
	if ts != want {
		t.Fatalf("expected %v, got %v", want, ts)
	}
}

// Property: a hack counter that never wraps twice in a row yields
// non-decreasing timestamps. Steps below half a period guarantee that.
func TestMonotoneTimestampProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	const (
		hackPeriod = 128
		tickPeriod = 1000
	)
	p := Params{TickRolloverPeriod: tickPeriod, TickDuration: 1.0 / tickPeriod, HackRolloverPeriod: hackPeriod}

	properties.Property("timestamps never decrease", prop.ForAll(
		func(steps []int64, phases []int64) bool {
			var (
				s    State
				last = -1.0
				hack int64
				prev int64
			)
			for i, step := range steps {
				// event i sits phase ticks after its hack
				prev = hack
				hack = (hack + step) % hackPeriod
				phase := int64(0)
				if i < len(phases) {
					phase = phases[i]
				}
				hackTicks := int64(i*37) % tickPeriod
				ticks := (hackTicks + phase) % tickPeriod
				ts, next := Reconstruct(s, Input{
					Ticks:        ticks,
					HackTicks:    hackTicks,
					HackValue:    hack,
					CurrentHack:  hack,
					PreviousHack: prev,
				}, p)
				s = next
				if ts < last {
					return false
				}
				last = ts
			}
			return true
		},
		gen.SliceOf(gen.Int64Range(1, hackPeriod/2-1)),
		gen.SliceOf(gen.Int64Range(0, tickPeriod-1)),
	))

	properties.TestingRun(t)
}
