package decoder

import (
	"errors"
	"testing"

	"github.com/danmuck/fastmon/internal/eventerr"
	"github.com/danmuck/fastmon/internal/fields"
	"github.com/danmuck/fastmon/internal/protocol"
	"github.com/danmuck/fastmon/internal/protocol/cell"
	"github.com/danmuck/fastmon/internal/schema"
	"github.com/danmuck/fastmon/internal/testutil/testlog"
)

func newTestDecoder(t *testing.T) (*Decoder, *fields.Registry, *eventerr.Aggregator) {
	t.Helper()
	reg := fields.NewRegistry()
	if err := schema.Declare(reg, schema.Default()); err != nil {
		t.Fatalf("declare schema: %v", err)
	}
	errs := eventerr.NewAggregator()
	d, err := New(reg, errs)
	if err != nil {
		t.Fatalf("new decoder: %v", err)
	}
	return d, reg, errs
}

func mustUint(t *testing.T, reg *fields.Registry, name string, idx ...int) uint64 {
	t.Helper()
	v, err := reg.Get(name)
	if err != nil {
		t.Fatalf("get %s: %v", name, err)
	}
	got, err := v.Uint(idx...)
	if err != nil {
		t.Fatalf("read %s%v: %v", name, idx, err)
	}
	return got
}

func mustInt(t *testing.T, reg *fields.Registry, name string, idx ...int) int64 {
	t.Helper()
	v, _ := reg.Get(name)
	got, err := v.Int(idx...)
	if err != nil {
		t.Fatalf("read %s%v: %v", name, idx, err)
	}
	return got
}

func TestDecodeFullEvent(t *testing.T) {
	testlog.Start(t)
	d, reg, errs := newTestDecoder(t)
	ctx := protocol.Context{
		Run:      protocol.ContextRun{ID: 77001},
		Scalers:  protocol.Scalers{Sequence: 9},
		Current:  protocol.TimeTone{Hacks: 6, Tics: 100},
		Previous: protocol.TimeTone{Hacks: 5, Tics: 90},
	}
	buf := protocol.NewEvent(protocol.EventHeader{Ticks: 1000, Hack: 6, HackTicks: 400, Sequence: 12}).
		GEM(protocol.GEM{TKRVector: 0x0005, LiveTime: 33}).
		TKR(2, []protocol.TKRHit{{Layer: 4, Strip: 900}, {Layer: 4, Strip: 17}, {Layer: 35, Strip: 3}}, &protocol.Diagnostic{Words: []uint32{0xAB, 0xCD}}).
		CAL(5, []protocol.CALLog{{Layer: 1, Column: 2, Negative: protocol.CALEnd{Range: 3, Value: 700}, Positive: protocol.CALEnd{Range: 0, Value: 0}}}, nil).
		ACD([]protocol.ACDTile{{Tile: 10, PHA: 512}}).
		Record(&ctx)

	res, err := d.Decode(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s := errs.Flush(0); !s.Empty() {
		t.Fatalf("expected clean event, got %v", s)
	}
	if !res.HasEvent || !res.HasContext || res.Aborted || res.Datagrams != 2 || res.Contributions != 4 {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Clock.Ticks != 1000 || res.Clock.HackTicks != 400 || res.Clock.CurrentHack != 6 || res.Clock.PreviousHack != 5 {
		t.Fatalf("unexpected clock input %+v", res.Clock)
	}

	checks := []struct {
		name string
		idx  []int
		want uint64
	}{
		{FieldEventSequence, nil, 12},
		{FieldContextRunID, nil, 77001},
		{FieldContextScalersSequence, nil, 9},
		{"meta_context_current_gem_timehacks", nil, 6},
		{FieldGEMLiveTime, nil, 33},
		{FieldGEMTKRVectorTower, []int{0}, 1},
		{FieldGEMTKRVectorTower, []int{1}, 0},
		{FieldGEMTKRVectorTower, []int{2}, 1},
		{FieldTKRHitCount, nil, 3},
		{FieldTKRHitCountTower, []int{2}, 3},
		{FieldTKRHitCountTowerLayer, []int{2, 4}, 2},
		{FieldTKRTowerCount, nil, 1},
		{FieldTKRDiagnosticWords, []int{2}, 2},
		{FieldTKRDiagnostic, []int{2, 1}, 0xCD},
		{FieldCALLogCount, nil, 1},
		{FieldCALLogHitTowerLayerColumn, []int{5, 1, 2}, 1},
		{FieldCALLogEndRangeHit, []int{5, 1, 2, 0, 3}, 1},
		{FieldCALLogEndRangeHit, []int{5, 1, 2, 1, 0}, 0},
		{FieldCALLogEndValue, []int{5, 1, 2, 0}, 700},
		{FieldACDTileHit, []int{10}, 1},
		{FieldACDTilePHA, []int{10}, 512},
		{FieldEventContributionMask, nil, uint64(protocol.ComponentGEM.Bit() | protocol.ComponentTKR.Bit() | protocol.ComponentCAL.Bit() | protocol.ComponentACD.Bit())},
	}
	for _, c := range checks {
		if got := mustUint(t, reg, c.name, c.idx...); got != c.want {
			t.Fatalf("%s%v = %d, want %d", c.name, c.idx, got, c.want)
		}
	}
	if got := mustInt(t, reg, FieldTKRFirstStripTowerLayer, 2, 4); got != 17 {
		t.Fatalf("first strip = %d, want 17", got)
	}
	if got := mustInt(t, reg, FieldTKRFirstStripTowerLayer, 3, 4); got != -1 {
		t.Fatalf("untouched first strip = %d, want default -1", got)
	}
}

func TestUnrecognizedComponentContinuesSiblings(t *testing.T) {
	testlog.Start(t)
	d, reg, errs := newTestDecoder(t)
	buf := protocol.NewEvent(protocol.EventHeader{}).
		Raw(42, 3, []byte{1, 2, 3}).
		ACD([]protocol.ACDTile{{Tile: 1, PHA: 2}}).
		Record(nil)
	res, err := d.Decode(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	s := errs.Flush(1)
	if res.Aborted || s.Count(eventerr.CategoryUnrecognizedComponent) != 1 || len(s.Occurrences) != 1 {
		t.Fatalf("expected one unrecognized occurrence, got %v", s)
	}
	if o := s.Occurrences[0]; o.Code != eventerr.CodeUnrecognizedComponent || o.Arg1 != 42 || o.Arg2 != 3 {
		t.Fatalf("unexpected occurrence %+v", o)
	}
	if mustUint(t, reg, FieldACDTileCount) != 1 {
		t.Fatalf("sibling after unknown component was not decoded")
	}
}

func TestNegativeCodeAbortsCurrentEventOnly(t *testing.T) {
	testlog.Start(t)
	d, reg, errs := newTestDecoder(t)
	truncated := protocol.EncodeTKR([]protocol.TKRHit{{Layer: 1, Strip: 1}, {Layer: 2, Strip: 2}}, nil)
	truncated = truncated[:len(truncated)-2]
	bad := protocol.NewEvent(protocol.EventHeader{Summary: protocol.ComponentTKR.Bit()}).
		Raw(uint16(protocol.ComponentTKR), 1, truncated).
		ACD([]protocol.ACDTile{{Tile: 3, PHA: 4}}).
		Record(nil)

	res, err := d.Decode(bad)
	if err != nil {
		t.Fatalf("abort must not be a transport error: %v", err)
	}
	if !res.Aborted || res.AbortCode != eventerr.CodeTruncatedPayload {
		t.Fatalf("expected aborted result, got %+v", res)
	}
	s := errs.Flush(0)
	if len(s.Occurrences) != 1 || s.Occurrences[0].Category != eventerr.CategoryTKR || !s.Aborted() {
		t.Fatalf("expected exactly one TKR abort occurrence, got %v", s)
	}
	if mustUint(t, reg, FieldACDTileCount) != 0 {
		t.Fatalf("components after an abort must not be decoded")
	}

	reg.Reset()
	good := protocol.NewEvent(protocol.EventHeader{}).ACD([]protocol.ACDTile{{Tile: 3, PHA: 4}}).Record(nil)
	if res, err := d.Decode(good); err != nil || res.Aborted {
		t.Fatalf("next record must decode normally: %+v %v", res, err)
	}
	if mustUint(t, reg, FieldACDTileCount) != 1 {
		t.Fatalf("next record not decoded")
	}
}

func TestOutOfRangeCoordinatesAreSkipped(t *testing.T) {
	testlog.Start(t)
	d, reg, errs := newTestDecoder(t)
	buf := protocol.NewEvent(protocol.EventHeader{}).
		TKR(20, []protocol.TKRHit{{Layer: 40, Strip: 1}}, nil).
		ACD([]protocol.ACDTile{{Tile: 500, PHA: 1}}).
		Record(nil)
	res, err := d.Decode(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s := errs.Flush(0); !s.Empty() {
		t.Fatalf("out of range coordinates must not be reported, got %v", s)
	}
	if res.SkippedWrites == 0 {
		t.Fatalf("expected skipped writes to be counted")
	}
	if mustUint(t, reg, FieldTKRHitCount) != 1 || mustUint(t, reg, FieldACDTileCount) != 1 {
		t.Fatalf("scalar totals must still count the hits")
	}
}

func TestFirstStripKeepsMinimumAboveInt16(t *testing.T) {
	testlog.Start(t)
	d, reg, errs := newTestDecoder(t)
	buf := protocol.NewEvent(protocol.EventHeader{}).
		TKR(1, []protocol.TKRHit{{Layer: 2, Strip: 40000}, {Layer: 2, Strip: 50000}, {Layer: 3, Strip: 40000}, {Layer: 3, Strip: 100}}, nil).
		Record(nil)
	if _, err := d.Decode(buf); err != nil {
		t.Fatalf("decode: %v", err)
	}
	errs.Flush(0)
	if got := mustInt(t, reg, FieldTKRFirstStripTowerLayer, 1, 2); got != 40000 {
		t.Fatalf("first strip of layer 2 = %d, want 40000", got)
	}
	if got := mustInt(t, reg, FieldTKRFirstStripTowerLayer, 1, 3); got != 100 {
		t.Fatalf("first strip of layer 3 = %d, want 100", got)
	}

	reg.Reset()
	next := protocol.NewEvent(protocol.EventHeader{}).
		TKR(1, []protocol.TKRHit{{Layer: 2, Strip: 60000}}, nil).
		Record(nil)
	if _, err := d.Decode(next); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := mustInt(t, reg, FieldTKRFirstStripTowerLayer, 1, 2); got != 60000 {
		t.Fatalf("first strip must start over each event, got %d", got)
	}
}

func TestSummaryMaskMismatches(t *testing.T) {
	testlog.Start(t)
	d, reg, errs := newTestDecoder(t)
	h := protocol.EventHeader{Summary: protocol.ComponentCAL.Bit()}
	buf := protocol.NewEvent(h).
		Raw(uint16(protocol.ComponentACD), 0, protocol.EncodeACD([]protocol.ACDTile{{Tile: 7, PHA: 1}})).
		Record(nil)
	if _, err := d.Decode(buf); err != nil {
		t.Fatalf("decode: %v", err)
	}
	s := errs.Flush(0)
	var notInSummary, missing int
	for _, o := range s.Occurrences {
		switch o.Code {
		case eventerr.CodeContribNotInSummary:
			notInSummary++
		case eventerr.CodeMissingContribution:
			missing++
			if o.Arg1 != int64(protocol.ComponentCAL) {
				t.Fatalf("missing contribution should name CAL, got %+v", o)
			}
		}
	}
	if notInSummary != 1 || missing != 1 || s.Aborted() {
		t.Fatalf("unexpected occurrences %v", s)
	}
	if mustUint(t, reg, FieldACDTileHit, 7) != 1 {
		t.Fatalf("contribution absent from the summary must still be decoded")
	}
}

func TestUnknownDatagramAndDuplicateContribution(t *testing.T) {
	testlog.Start(t)
	d, _, errs := newTestDecoder(t)
	ev := protocol.NewEvent(protocol.EventHeader{}).
		ACD(nil).
		ACD(nil)
	buf := cell.EncodeDatagrams([]cell.Datagram{{Type: 77, Payload: []byte{1}}, ev.Datagram()})
	if _, err := d.Decode(buf); err != nil {
		t.Fatalf("decode: %v", err)
	}
	s := errs.Flush(0)
	if s.Count(eventerr.CategoryDatagram) != 1 || s.Count(eventerr.CategoryEventContrib) != 1 {
		t.Fatalf("unexpected occurrences %v", s)
	}
}

func TestFramingErrorIsFatal(t *testing.T) {
	testlog.Start(t)
	d, _, errs := newTestDecoder(t)
	buf := protocol.NewEvent(protocol.EventHeader{}).Record(nil)
	_, err := d.Decode(buf[:len(buf)-3])
	if !errors.Is(err, ErrFraming) {
		t.Fatalf("expected ErrFraming, got %v", err)
	}
	if s := errs.Flush(0); s.Count(eventerr.CategoryDatagram) != 1 {
		t.Fatalf("framing failure must be reported, got %v", s)
	}
}

func TestBadContributionLengthAborts(t *testing.T) {
	testlog.Start(t)
	d, _, errs := newTestDecoder(t)
	payload := append(protocol.EncodeEventHeader(protocol.EventHeader{}), 0, 2, 0, 0, 0, 0, 0, 99)
	buf := cell.EncodeDatagram(cell.Datagram{Type: protocol.DatagramEvent, Payload: payload})
	res, err := d.Decode(buf)
	if err != nil {
		t.Fatalf("bad contribution length is an event abort, not a transport error: %v", err)
	}
	if !res.Aborted || res.AbortCode != eventerr.CodeBadContributionLength {
		t.Fatalf("unexpected result %+v", res)
	}
	if s := errs.Flush(0); len(s.Occurrences) != 1 {
		t.Fatalf("expected one occurrence, got %v", s)
	}
}

func TestUnreportedCodeBecomesUnknownErrorCode(t *testing.T) {
	testlog.Start(t)
	d, _, errs := newTestDecoder(t)
	if code := d.invoke(eventerr.CategoryCAL, func() eventerr.Code { return -9 }); code != -9 {
		t.Fatalf("invoke must return the handler code, got %d", code)
	}
	d.invoke(eventerr.CategoryGEM, func() eventerr.Code {
		d.errs.Report(eventerr.CategoryGEM, eventerr.CodeTrailingBytes, 0, 1)
		return eventerr.CodeTrailingBytes
	})
	s := errs.Flush(0)
	if len(s.Occurrences) != 2 {
		t.Fatalf("expected two occurrences, got %v", s)
	}
	o := s.Occurrences[0]
	if o.Category != eventerr.CategoryCAL || o.Code != eventerr.CodeUnknownErrorCode || o.Arg1 != -9 || o.Severity() != eventerr.SeverityAbort {
		t.Fatalf("unexpected unknown error occurrence %+v", o)
	}
}

func TestMissingRequiredFieldsFailAtStartup(t *testing.T) {
	testlog.Start(t)
	reg := fields.NewRegistry()
	reg.MustDeclare(fields.Descriptor{Name: FieldEventTimestamp, Kind: fields.KindFloat64})
	_, err := New(reg, eventerr.NewAggregator())
	if !errors.Is(err, ErrMissingRequiredField) {
		t.Fatalf("expected ErrMissingRequiredField, got %v", err)
	}
}

func TestOnlyDeclaredFieldsGetWriters(t *testing.T) {
	testlog.Start(t)
	reg := fields.NewRegistry()
	reg.MustDeclare(fields.Descriptor{Name: FieldProcessorEventNumber, Kind: fields.KindUint64})
	reg.MustDeclare(fields.Descriptor{Name: FieldEventTimestamp, Kind: fields.KindFloat64})
	reg.MustDeclare(fields.Descriptor{Name: FieldErrorSummary, Kind: fields.KindUint32})
	reg.MustDeclare(fields.Descriptor{Name: FieldTKRHitCountTowerLayer, Kind: fields.KindUint16, Shape: []int{16, 36}})
	errs := eventerr.NewAggregator()
	d, err := New(reg, errs)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if len(d.tkr.hit) != 1 || len(d.cal.log) != 0 {
		t.Fatalf("unexpected writer counts tkr=%d cal=%d", len(d.tkr.hit), len(d.cal.log))
	}
	buf := protocol.NewEvent(protocol.EventHeader{}).
		TKR(0, []protocol.TKRHit{{Layer: 1, Strip: 1}}, nil).
		CAL(0, []protocol.CALLog{{Layer: 1, Column: 1}}, nil).
		Record(nil)
	if _, err := d.Decode(buf); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s := errs.Flush(0); !s.Empty() {
		t.Fatalf("undeclared fields must not produce errors, got %v", s)
	}
	if mustUint(t, reg, FieldTKRHitCountTowerLayer, 0, 1) != 1 {
		t.Fatalf("declared field not written")
	}
}

func TestOutOfBandContext(t *testing.T) {
	testlog.Start(t)
	d, reg, _ := newTestDecoder(t)
	d.ApplyContext(protocol.Context{Current: protocol.TimeTone{Hacks: 3}, Previous: protocol.TimeTone{Hacks: 2}})
	reg.Reset()
	res, err := d.Decode(protocol.NewEvent(protocol.EventHeader{Hack: 3}).Record(nil))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !res.HasContext || res.Clock.CurrentHack != 3 || res.Clock.PreviousHack != 2 {
		t.Fatalf("context not carried into the record: %+v", res)
	}
	if mustUint(t, reg, "meta_context_previous_gem_timehacks") != 2 {
		t.Fatalf("context fields must be rewritten after reset")
	}
}

func TestShortContextIsRecoverable(t *testing.T) {
	testlog.Start(t)
	d, _, errs := newTestDecoder(t)
	buf := cell.EncodeDatagrams([]cell.Datagram{
		{Type: protocol.DatagramContext, Payload: []byte{1, 2, 3}},
		protocol.NewEvent(protocol.EventHeader{}).Datagram(),
	})
	res, err := d.Decode(buf)
	if err != nil || res.Aborted || !res.HasEvent {
		t.Fatalf("short context must not abort: %+v %v", res, err)
	}
	if s := errs.Flush(0); s.Count(eventerr.CategoryContext) != 1 {
		t.Fatalf("expected one context occurrence, got %v", s)
	}
}

func TestRecordWithoutEventIsReported(t *testing.T) {
	testlog.Start(t)
	d, _, errs := newTestDecoder(t)
	buf := cell.EncodeDatagrams([]cell.Datagram{protocol.ContextDatagram(protocol.Context{})})
	res, err := d.Decode(buf)
	if err != nil || res.HasEvent || !res.HasContext {
		t.Fatalf("unexpected result %+v %v", res, err)
	}
	s := errs.Flush(0)
	if len(s.Occurrences) != 1 || s.Occurrences[0].Code != eventerr.CodeEmptyEvent || s.Aborted() {
		t.Fatalf("expected one recoverable empty event occurrence, got %v", s)
	}
}
