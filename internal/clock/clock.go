// Package clock reconstructs event timestamps from the bounded hardware
// tick and hack counters.
//
// Reconstruct is pure: the rollover count and latch travel in State, which
// the caller carries from one event to the next for the whole run.
//
// Known limitation: the tick counter is assumed to wrap at most once between
// an event and its hack, and the hack counter at most once between
// consecutive samples. Extra wraps undercount and are not detected.
package clock

const (
	DefaultTickRolloverPeriod int64   = 1 << 25
	DefaultTickDuration       float64 = 50e-9
	DefaultHackRolloverPeriod float64 = 128
)

// Params fixes the counter geometry for a run.
type Params struct {
	TickRolloverPeriod int64
	TickDuration       float64
	HackRolloverPeriod float64
}

func DefaultParams() Params {
	return Params{
		TickRolloverPeriod: DefaultTickRolloverPeriod,
		TickDuration:       DefaultTickDuration,
		HackRolloverPeriod: DefaultHackRolloverPeriod,
	}
}

// State is the run-level rollover tracking. The zero value starts a run.
type State struct {
	Rollovers      int64
	JustRolledOver bool
}

// Input carries the raw counters of one event.
type Input struct {
	Ticks        int64
	HackTicks    int64
	HackValue    int64
	CurrentHack  int64
	PreviousHack int64
}

// TicksSincePPS is the tick distance from the hack to the event, corrected
// for a single wrap of the tick counter.
func TicksSincePPS(ticks, hackTicks, period int64) int64 {
	d := ticks - hackTicks
	if d < 0 {
		d += period
	}
	return d
}

// Reconstruct returns the event timestamp and the state to carry forward.
func Reconstruct(s State, in Input, p Params) (float64, State) {
	since := TicksSincePPS(in.Ticks, in.HackTicks, p.TickRolloverPeriod)

	diff := in.CurrentHack - in.PreviousHack
	if diff < 0 && !s.JustRolledOver {
		s.Rollovers++
		s.JustRolledOver = true
	}
	if diff > 0 {
		s.JustRolledOver = false
	}

	ts := p.HackRolloverPeriod*float64(s.Rollovers) + float64(in.HackValue) + float64(since)*p.TickDuration
	return ts, s
}
