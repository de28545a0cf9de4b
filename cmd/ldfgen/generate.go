package main

import (
	"math/rand/v2"

	"github.com/danmuck/fastmon/internal/clock"
	"github.com/danmuck/fastmon/internal/protocol"
)

type genOptions struct {
	events       int
	seed         uint64
	contextEvery int
	// unknownEvery adds an unrecognized component to every nth event.
	unknownEvery int
	// ticksPerEvent advances the free-running counter; large steps force
	// rollovers of the tick counter.
	ticksPerEvent uint32
	eventsPerHack int
}

func defaultGenOptions() genOptions {
	return genOptions{
		events:        1000,
		seed:          1,
		contextEvery:  100,
		ticksPerEvent: 20_000,
		eventsPerHack: 1000,
	}
}

// generator produces a deterministic synthetic readout stream.
type generator struct {
	opts genOptions
	rng  *rand.Rand

	ticks uint32
	hack  uint32
	ctx   protocol.Context
}

func newGenerator(opts genOptions) *generator {
	g := &generator{
		opts: opts,
		rng:  rand.New(rand.NewPCG(opts.seed, opts.seed^0x9E3779B97F4A7C15)),
	}
	g.ctx.Run = protocol.ContextRun{Platform: 1, Origin: 2, ID: uint32(opts.seed), StartedAt: 0}
	g.ctx.Current = protocol.TimeTone{Hacks: 1}
	g.ctx.Previous = protocol.TimeTone{Hacks: 0}
	g.hack = 1
	return g
}

// event builds event i. The second result is the run context due with it,
// if any; callers send it in-band or out of band.
func (g *generator) event(i int) (*protocol.EventBuilder, *protocol.Context) {
	period := uint32(clock.DefaultTickRolloverPeriod)
	g.ticks = (g.ticks + g.opts.ticksPerEvent) % period

	if g.opts.eventsPerHack > 0 && i > 0 && i%g.opts.eventsPerHack == 0 {
		g.hack = (g.hack + 1) % uint32(clock.DefaultHackRolloverPeriod)
		g.ctx.Previous = g.ctx.Current
		g.ctx.Current = protocol.TimeTone{Hacks: g.hack, Tics: g.ticks}
	}
	g.ctx.Scalers.Sequence = uint64(i)
	g.ctx.Scalers.Elapsed = uint64(i) * uint64(g.opts.ticksPerEvent)

	b := protocol.NewEvent(protocol.EventHeader{
		Ticks:     g.ticks,
		Hack:      g.hack,
		HackTicks: g.ctx.Current.Tics,
		Sequence:  uint32(i),
	})

	var tkrVector, calVector uint32
	for tower := uint16(0); tower < protocol.NumTowers; tower++ {
		if g.rng.IntN(4) != 0 {
			continue
		}
		tkrVector |= 1 << tower
		b.TKR(tower, g.tkrHits(), g.diagnostic())
		if g.rng.IntN(2) == 0 {
			calVector |= 1 << tower
			b.CAL(tower, g.calLogs(), nil)
		}
	}
	b.GEM(protocol.GEM{
		TKRVector:   tkrVector,
		CalLEVector: calVector,
		TriggerTime: g.ticks,
		LiveTime:    g.ticks - g.ticks/20,
	})
	b.ACD(g.acdTiles())

	if g.opts.unknownEvery > 0 && i%g.opts.unknownEvery == g.opts.unknownEvery-1 {
		b.Raw(31, 0, []byte{0xDE, 0xAD})
	}

	var ctx *protocol.Context
	if g.opts.contextEvery > 0 && i%g.opts.contextEvery == 0 {
		c := g.ctx
		ctx = &c
	}
	return b, ctx
}

func (g *generator) tkrHits() []protocol.TKRHit {
	hits := make([]protocol.TKRHit, 1+g.rng.IntN(12))
	for i := range hits {
		hits[i] = protocol.TKRHit{Layer: uint8(g.rng.IntN(protocol.TKRLayerEnds)), Strip: uint16(g.rng.IntN(1536))}
	}
	return hits
}

func (g *generator) calLogs() []protocol.CALLog {
	logs := make([]protocol.CALLog, 1+g.rng.IntN(6))
	for i := range logs {
		logs[i] = protocol.CALLog{
			Layer:    uint8(g.rng.IntN(protocol.CALLayers)),
			Column:   uint8(g.rng.IntN(protocol.CALColumns)),
			Negative: protocol.CALEnd{Range: uint8(g.rng.IntN(protocol.CALRanges)), Value: uint16(g.rng.IntN(4096))},
			Positive: protocol.CALEnd{Range: uint8(g.rng.IntN(protocol.CALRanges)), Value: uint16(g.rng.IntN(4096))},
		}
	}
	return logs
}

func (g *generator) acdTiles() []protocol.ACDTile {
	tiles := make([]protocol.ACDTile, g.rng.IntN(5))
	for i := range tiles {
		tiles[i] = protocol.ACDTile{Tile: uint16(g.rng.IntN(protocol.ACDTiles)), PHA: uint16(g.rng.IntN(4096))}
	}
	return tiles
}

func (g *generator) diagnostic() *protocol.Diagnostic {
	if g.rng.IntN(8) != 0 {
		return nil
	}
	return &protocol.Diagnostic{Words: []uint32{g.rng.Uint32(), g.rng.Uint32()}}
}
