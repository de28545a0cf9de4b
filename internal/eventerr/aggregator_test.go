package eventerr

import (
	"strings"
	"testing"
	"time"

	"github.com/danmuck/fastmon/internal/testutil/testlog"
)

func TestFlushClearsAndTagsSequence(t *testing.T) {
	testlog.Start(t)
	a := NewAggregator()
	a.Report(CategoryTKR, CodeTruncatedPayload, 3, 0)
	a.Report(CategoryUnrecognizedComponent, CodeUnrecognizedComponent, 9, 0)
	if a.Pending() != 2 {
		t.Fatalf("expected 2 pending, got %d", a.Pending())
	}
	s := a.Flush(41)
	if s.Sequence != 41 || len(s.Occurrences) != 2 {
		t.Fatalf("unexpected summary %+v", s)
	}
	if a.Pending() != 0 {
		t.Fatalf("flush must clear the buffer")
	}
	if next := a.Flush(42); !next.Empty() {
		t.Fatalf("second flush must be empty, got %v", next)
	}
	if s.Mask() != CategoryTKR.Bit()|CategoryUnrecognizedComponent.Bit() {
		t.Fatalf("unexpected mask %#x", s.Mask())
	}
	if !s.Aborted() {
		t.Fatalf("negative code must mark the event aborted")
	}
}

func TestSummaryIsDetachedFromBuffer(t *testing.T) {
	testlog.Start(t)
	a := NewAggregator()
	a.Report(CategoryCAL, CodeTrailingBytes, 1, 2)
	s := a.Flush(0)
	a.Report(CategoryGEM, CodeTruncatedPayload, 0, 0)
	if s.Occurrences[0].Category != CategoryCAL {
		t.Fatalf("later reports leaked into a flushed summary: %v", s)
	}
}

func TestUnknownErrorCodeSeverityFollowsReturnedCode(t *testing.T) {
	testlog.Start(t)
	abort := Occurrence{Category: CategoryCAL, Code: CodeUnknownErrorCode, Arg1: -7}
	if abort.Severity() != SeverityAbort {
		t.Fatalf("expected abort severity, got %v", abort.Severity())
	}
	warn := Occurrence{Category: CategoryCAL, Code: CodeUnknownErrorCode, Arg1: 12}
	if warn.Severity() != SeverityRecoverable {
		t.Fatalf("expected recoverable severity, got %v", warn.Severity())
	}
}

func TestFinishCountsPerCategory(t *testing.T) {
	testlog.Start(t)
	a := NewAggregator()
	a.Flush(0)
	a.Report(CategoryUnrecognizedComponent, CodeUnrecognizedComponent, 9, 0)
	a.Flush(1)
	a.Report(CategoryTKR, CodeTrailingBytes, 2, 0)
	a.Report(CategoryTKR, CodeTrailingBytes, 2, 0)
	a.Flush(2)

	r := a.Finish(3, 2*time.Second, 12.5)
	if r.Events != 3 || r.EventsWithErrors != 2 || r.TotalErrors != 3 {
		t.Fatalf("unexpected totals %+v", r)
	}
	if r.ByCategory["UNRECOGNIZED_COMPONENT"] != 1 || r.ByCategory["TKR_CONTRIB_ERROR"] != 2 {
		t.Fatalf("unexpected category counts %v", r.ByCategory)
	}
	if _, ok := r.ByCategory["ACD_CONTRIB_ERROR"]; !ok {
		t.Fatalf("every category must be listed")
	}
	if r.ByCode["TRAILING_BYTES"] != 2 || r.AbortedEvents != 0 {
		t.Fatalf("unexpected code counts %v aborted=%d", r.ByCode, r.AbortedEvents)
	}
	if r.AverageRate != 1.5 || r.ElapsedSeconds != 2 || r.TimestampSpan != 12.5 {
		t.Fatalf("unexpected timing %+v", r)
	}
}

func TestSummaryText(t *testing.T) {
	testlog.Start(t)
	s := Summary{Sequence: 5, Occurrences: []Occurrence{{Category: CategoryACD, Code: CodeTruncatedPayload, Arg1: 4}}}
	text, err := s.MarshalText()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(text), "ACD_CONTRIB_ERROR:TRUNCATED_PAYLOAD(4,0)") {
		t.Fatalf("unexpected text %q", text)
	}
	if c, err := ParseCategory("gem_contrib_error"); err != nil || c != CategoryGEM {
		t.Fatalf("parse category: %v %v", c, err)
	}
}
