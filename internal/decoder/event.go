package decoder

import (
	"github.com/danmuck/fastmon/internal/clock"
	"github.com/danmuck/fastmon/internal/eventerr"
	"github.com/danmuck/fastmon/internal/fields"
	"github.com/danmuck/fastmon/internal/protocol"
	"github.com/danmuck/fastmon/internal/protocol/cell"
)

type eventFields struct {
	sequence  fields.View
	summary   fields.View
	mask      fields.View
	timeTicks fields.View
	gemHacks  fields.View
	gemTicks  fields.View
}

func bindEventFields(b binder) eventFields {
	return eventFields{
		sequence:  b.view(FieldEventSequence),
		summary:   b.view(FieldEventSummary),
		mask:      b.view(FieldEventContributionMask),
		timeTicks: b.view(FieldEventTimeTicks),
		gemHacks:  b.view(FieldEventGEMTimeHacks),
		gemTicks:  b.view(FieldEventGEMTimeTicks),
	}
}

// event decodes one event datagram: header, then contributions in stream order.
func (d *Decoder) event(payload []byte) eventerr.Code {
	h, rest, err := protocol.ParseEventHeader(payload)
	if err != nil {
		return d.fail(eventerr.CategoryEventContrib, eventerr.CodeShortEventHeader, int64(len(payload)), 0)
	}
	d.writeHeader(h)

	clear(d.seen)
	clear(d.tkr.firstSet)
	var present uint32
	for len(rest) > 0 {
		c, next, err := cell.NextContribution(rest)
		if err != nil {
			return d.fail(eventerr.CategoryEventContrib, eventerr.CodeBadContributionLength, int64(len(payload)-len(rest)), int64(len(rest)))
		}
		rest = next
		if d.cur != nil {
			d.cur.Contributions++
		}

		variant := d.variant(c.Component)
		id := protocol.ComponentID(c.Component)
		if variant.known {
			key := uint32(c.Component)<<16 | uint32(c.Source)
			if _, dup := d.seen[key]; dup {
				d.errs.Report(eventerr.CategoryEventContrib, eventerr.CodeDuplicateContribution, int64(c.Component), int64(c.Source))
			}
			d.seen[key] = struct{}{}
			// decoded anyway: the payload is self-describing
			if h.Summary&id.Bit() == 0 {
				d.errs.Report(eventerr.CategoryEventContrib, eventerr.CodeContribNotInSummary, int64(c.Component), int64(h.Summary))
			}
			present |= id.Bit()
		}

		code := d.invoke(variant.category, func() eventerr.Code { return variant.decode(d, c) })
		if code.Aborts() {
			return code
		}
	}
	_ = d.ev.mask.SetUint(uint64(present))

	for _, v := range d.components {
		if !v.known {
			continue
		}
		if bit := v.id.Bit(); h.Summary&bit != 0 && present&bit == 0 {
			d.errs.Report(eventerr.CategoryEventContrib, eventerr.CodeMissingContribution, int64(v.id), int64(h.Summary))
		}
	}
	return eventerr.OK
}

func (d *Decoder) writeHeader(h protocol.EventHeader) {
	_ = d.ev.sequence.SetUint(uint64(h.Sequence))
	_ = d.ev.summary.SetUint(uint64(h.Summary))
	_ = d.ev.timeTicks.SetUint(uint64(h.Ticks))
	_ = d.ev.gemHacks.SetUint(uint64(h.Hack))
	_ = d.ev.gemTicks.SetUint(uint64(h.HackTicks))

	if d.cur == nil {
		return
	}
	d.cur.HasEvent = true
	d.cur.Header = h
	d.cur.Clock = clock.Input{
		Ticks:     int64(h.Ticks),
		HackTicks: int64(h.HackTicks),
		HackValue: int64(h.Hack),
	}
	d.refreshClock()
}

// refreshClock copies the hack pair of the current run context into the
// clock input of the record being decoded.
func (d *Decoder) refreshClock() {
	if d.cur == nil || d.context == nil {
		return
	}
	d.cur.Clock.CurrentHack = int64(d.context.Current.Hacks)
	d.cur.Clock.PreviousHack = int64(d.context.Previous.Hacks)
}
