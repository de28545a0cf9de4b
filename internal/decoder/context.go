package decoder

import (
	"github.com/danmuck/fastmon/internal/eventerr"
	"github.com/danmuck/fastmon/internal/fields"
	"github.com/danmuck/fastmon/internal/protocol"
)

type timeToneFields struct {
	incomplete      fields.View
	timeSecs        fields.View
	flywheeling     fields.View
	sourceGPS       fields.View
	missingCPUPPS   fields.View
	missingLATPPS   fields.View
	missingTimeTone fields.View
	hacks           fields.View
	tics            fields.View
}

type contextFields struct {
	openMode, openDatagrams, openModeChanges  fields.View
	openAction, openReason, openCrate         fields.View
	closeAction, closeReason                  fields.View
	runPlatform, runOrigin, runID, runStarted fields.View
	elapsed, livetime, prescaled, discarded   fields.View
	sequence, deadzone                        fields.View
	current, previous                         timeToneFields
}

func bindTimeTone(b binder, prefix string) timeToneFields {
	return timeToneFields{
		incomplete:      b.view(prefix + "incomplete"),
		timeSecs:        b.view(prefix + "timesecs"),
		flywheeling:     b.view(prefix + "flywheeling"),
		sourceGPS:       b.view(prefix + "source_gps"),
		missingCPUPPS:   b.view(prefix + "missing_cpupps"),
		missingLATPPS:   b.view(prefix + "missing_latpps"),
		missingTimeTone: b.view(prefix + "missing_timetone"),
		hacks:           b.view(prefix + "gem_timehacks"),
		tics:            b.view(prefix + "gem_timeticks"),
	}
}

func bindContextFields(b binder) contextFields {
	return contextFields{
		openMode:        b.view(FieldContextOpenMode),
		openDatagrams:   b.view(FieldContextOpenDatagrams),
		openModeChanges: b.view(FieldContextOpenModeChanges),
		openAction:      b.view(FieldContextOpenAction),
		openReason:      b.view(FieldContextOpenReason),
		openCrate:       b.view(FieldContextOpenCrate),
		closeAction:     b.view(FieldContextCloseAction),
		closeReason:     b.view(FieldContextCloseReason),
		runPlatform:     b.view(FieldContextRunPlatform),
		runOrigin:       b.view(FieldContextRunOrigin),
		runID:           b.view(FieldContextRunID),
		runStarted:      b.view(FieldContextRunStartedAt),
		elapsed:         b.view(FieldContextScalersElapsed),
		livetime:        b.view(FieldContextScalersLivetime),
		prescaled:       b.view(FieldContextScalersPrescale),
		discarded:       b.view(FieldContextScalersDiscard),
		sequence:        b.view(FieldContextScalersSequence),
		deadzone:        b.view(FieldContextScalersDeadzone),
		current:         bindTimeTone(b, contextCurrent),
		previous:        bindTimeTone(b, contextPrevious),
	}
}

// contextDatagram handles an in-band run context. A short context is
// reported and the event continues without it.
func (d *Decoder) contextDatagram(payload []byte) eventerr.Code {
	ctx, err := protocol.ParseContext(payload)
	if err != nil {
		return d.fail(eventerr.CategoryContext, eventerr.CodeShortContext, int64(len(payload)), protocol.ContextLen)
	}
	d.ApplyContext(ctx)
	d.refreshClock()
	return eventerr.OK
}

func (d *Decoder) writeContext(ctx protocol.Context) {
	f := d.ctx
	_ = f.openMode.SetUint(uint64(ctx.Open.Mode))
	_ = f.openDatagrams.SetUint(uint64(ctx.Open.Datagrams))
	_ = f.openModeChanges.SetUint(uint64(ctx.Open.ModeChanges))
	_ = f.openAction.SetUint(uint64(ctx.Open.Action))
	_ = f.openReason.SetUint(uint64(ctx.Open.Reason))
	_ = f.openCrate.SetUint(uint64(ctx.Open.Crate))
	_ = f.closeAction.SetUint(uint64(ctx.Close.Action))
	_ = f.closeReason.SetUint(uint64(ctx.Close.Reason))
	_ = f.runPlatform.SetUint(uint64(ctx.Run.Platform))
	_ = f.runOrigin.SetUint(uint64(ctx.Run.Origin))
	_ = f.runID.SetUint(uint64(ctx.Run.ID))
	_ = f.runStarted.SetUint(uint64(ctx.Run.StartedAt))
	_ = f.elapsed.SetUint(ctx.Scalers.Elapsed)
	_ = f.livetime.SetUint(ctx.Scalers.Livetime)
	_ = f.prescaled.SetUint(ctx.Scalers.Prescaled)
	_ = f.discarded.SetUint(ctx.Scalers.Discarded)
	_ = f.sequence.SetUint(ctx.Scalers.Sequence)
	_ = f.deadzone.SetUint(ctx.Scalers.Deadzone)
	writeTimeTone(f.current, ctx.Current)
	writeTimeTone(f.previous, ctx.Previous)
}

func writeTimeTone(f timeToneFields, t protocol.TimeTone) {
	_ = f.incomplete.SetUint(uint64(t.Incomplete))
	_ = f.timeSecs.SetUint(uint64(t.TimeSecs))
	_ = f.flywheeling.SetUint(uint64(t.Flywheeling))
	_ = f.sourceGPS.SetUint(uint64(t.SourceGPS))
	_ = f.missingCPUPPS.SetUint(uint64(t.MissingCPUPPS))
	_ = f.missingLATPPS.SetUint(uint64(t.MissingLATPPS))
	_ = f.missingTimeTone.SetUint(uint64(t.MissingTimeTone))
	_ = f.hacks.SetUint(uint64(t.Hacks))
	_ = f.tics.SetUint(uint64(t.Tics))
}
