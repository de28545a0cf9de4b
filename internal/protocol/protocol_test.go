package protocol

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/danmuck/fastmon/internal/testutil/testlog"
)

func TestContextRoundTrip(t *testing.T) {
	testlog.Start(t)
	in := Context{
		Open:     ContextOpen{Mode: 2, Datagrams: 10, Action: 1, Crate: 3},
		Close:    ContextClose{Action: 4, Reason: 5},
		Run:      ContextRun{Platform: 1, Origin: 2, ID: 77001, StartedAt: 1700000000},
		Scalers:  Scalers{Elapsed: 1 << 40, Livetime: 99, Sequence: 12345},
		Current:  TimeTone{TimeSecs: 100, Hacks: 5, Tics: 400},
		Previous: TimeTone{TimeSecs: 99, Hacks: 4, Tics: 300},
	}
	b := EncodeContext(in)
	if len(b) != ContextLen || binary.Size(in) != ContextLen {
		t.Fatalf("context length %d, binary size %d, want %d", len(b), binary.Size(in), ContextLen)
	}
	out, err := ParseContext(b)
	if err != nil {
		t.Fatalf("parse context: %v", err)
	}
	if out != in {
		t.Fatalf("context mismatch: got=%+v want=%+v", out, in)
	}
	if _, err := ParseContext(b[:ContextLen-1]); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestEventHeaderAndGEM(t *testing.T) {
	testlog.Start(t)
	h := EventHeader{Summary: ComponentGEM.Bit() | ComponentTKR.Bit(), Ticks: 10, Hack: 5, HackTicks: 50, Sequence: 3}
	payload := append(EncodeEventHeader(h), 0xFF)
	got, rest, err := ParseEventHeader(payload)
	if err != nil || got != h || len(rest) != 1 {
		t.Fatalf("unexpected header %+v rest=%d err=%v", got, len(rest), err)
	}
	g := GEM{ConditionSummary: 0x1F, TKRVector: 0x8001, LiveTime: 42}
	gb := EncodeGEM(g)
	if len(gb) != GEMLen {
		t.Fatalf("gem length %d", len(gb))
	}
	if out, err := ParseGEM(gb); err != nil || out != g {
		t.Fatalf("gem mismatch %+v err=%v", out, err)
	}
}

func TestTKRPayloadWithDiagnostic(t *testing.T) {
	testlog.Start(t)
	hits := []TKRHit{{Layer: 0, Strip: 12}, {Layer: 35, Strip: 1535}}
	b := EncodeTKR(hits, &Diagnostic{Words: []uint32{0xCAFE, 0xBEEF}})
	r := NewReader(b)
	n, err := r.U16()
	if err != nil || n != 2 {
		t.Fatalf("hit count %d err=%v", n, err)
	}
	for i := 0; i < int(n); i++ {
		h, err := ReadTKRHit(r)
		if err != nil || h != hits[i] {
			t.Fatalf("hit %d mismatch %+v err=%v", i, h, err)
		}
	}
	d, ok, err := ReadDiagnostic(r)
	if err != nil || !ok || len(d.Words) != 2 || d.Words[1] != 0xBEEF {
		t.Fatalf("diagnostic mismatch %+v ok=%v err=%v", d, ok, err)
	}
	if r.Len() != 0 {
		t.Fatalf("expected payload consumed, %d left", r.Len())
	}
}

func TestDiagnosticOverrunIsDetected(t *testing.T) {
	testlog.Start(t)
	b := EncodeDiagnostic(Diagnostic{Words: []uint32{1, 2, 3}})
	r := NewReader(b[:len(b)-2])
	_, ok, err := ReadDiagnostic(r)
	if !ok || !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected truncated diagnostic, ok=%v err=%v", ok, err)
	}
	if r.Offset() != 0 {
		t.Fatalf("failed read must not advance, offset=%d", r.Offset())
	}
	if _, ok, _ := ReadDiagnostic(NewReader([]byte{0, 1, 2})); ok {
		t.Fatalf("bytes without marker are not a diagnostic")
	}
}

func TestCALAndACDPayloads(t *testing.T) {
	testlog.Start(t)
	logs := []CALLog{{Layer: 7, Column: 11, Negative: CALEnd{Range: 3, Value: 4095}, Positive: CALEnd{Range: 1, Value: 2}}}
	r := NewReader(EncodeCAL(logs, nil))
	if n, _ := r.U16(); n != 1 {
		t.Fatalf("log count %d", n)
	}
	l, err := ReadCALLog(r)
	if err != nil || l != logs[0] || l.End(1).Value != 2 {
		t.Fatalf("cal log mismatch %+v err=%v", l, err)
	}
	r = NewReader(EncodeACD([]ACDTile{{Tile: 107, PHA: 900}}))
	_, _ = r.U16()
	tile, err := ReadACDTile(r)
	if err != nil || tile.Tile != 107 || tile.PHA != 900 {
		t.Fatalf("acd tile mismatch %+v err=%v", tile, err)
	}
	if _, err := ReadACDTile(r); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}
