package eventerr

import (
	"fmt"
	"strings"
	"time"
)

// Occurrence is one reported error inside one event.
type Occurrence struct {
	Category Category
	Code     Code
	Arg1     int64
	Arg2     int64
}

// Severity follows the code sign. An UNKNOWN_ERROR_CODE occurrence takes the
// severity of the returned code it stands in for.
func (o Occurrence) Severity() Severity {
	if o.Code == CodeUnknownErrorCode {
		return Code(o.Arg1).Severity()
	}
	return o.Code.Severity()
}

func (o Occurrence) String() string {
	return fmt.Sprintf("%s:%s(%d,%d)", o.Category, o.Code, o.Arg1, o.Arg2)
}

// Summary is the flushed error record of one event.
type Summary struct {
	Sequence    uint64
	Occurrences []Occurrence
}

// Mask sets one bit per category present in the summary.
func (s Summary) Mask() uint32 {
	var m uint32
	for _, o := range s.Occurrences {
		m |= o.Category.Bit()
	}
	return m
}

func (s Summary) Empty() bool {
	return len(s.Occurrences) == 0
}

// Aborted reports whether the event was unwound by a negative code.
func (s Summary) Aborted() bool {
	for _, o := range s.Occurrences {
		if o.Severity() == SeverityAbort {
			return true
		}
	}
	return false
}

func (s Summary) Count(c Category) int {
	n := 0
	for _, o := range s.Occurrences {
		if o.Category == c {
			n++
		}
	}
	return n
}

func (s Summary) String() string {
	if s.Empty() {
		return fmt.Sprintf("seq=%d ok", s.Sequence)
	}
	parts := make([]string, len(s.Occurrences))
	for i, o := range s.Occurrences {
		parts[i] = o.String()
	}
	return fmt.Sprintf("seq=%d %s", s.Sequence, strings.Join(parts, " "))
}

func (s Summary) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// RunReport is the end-of-run statistics handed to the report writer.
type RunReport struct {
	RunID            string           `toml:"run_id" json:"run_id"`
	Input            string           `toml:"input,omitempty" json:"input,omitempty"`
	StopReason       string           `toml:"stop_reason,omitempty" json:"stop_reason,omitempty"`
	Events           int64            `toml:"events" json:"events"`
	EventsWithErrors int64            `toml:"events_with_errors" json:"events_with_errors"`
	AbortedEvents    int64            `toml:"aborted_events" json:"aborted_events"`
	TotalErrors      int64            `toml:"total_errors" json:"total_errors"`
	ByCategory       map[string]int64 `toml:"errors_by_category" json:"errors_by_category"`
	ByCode           map[string]int64 `toml:"errors_by_code" json:"errors_by_code"`
	ElapsedSeconds   float64          `toml:"elapsed_seconds" json:"elapsed_seconds"`
	AverageRate      float64          `toml:"average_rate_hz" json:"average_rate_hz"`
	TimestampSpan    float64          `toml:"timestamp_span_seconds" json:"timestamp_span_seconds"`
}

// Aggregator buffers the current event's occurrences and keeps run totals.
// It is owned by the event loop and performs no locking.
type Aggregator struct {
	pending []Occurrence

	flushed          int64
	eventsWithErrors int64
	aborted          int64
	total            int64
	byCategory       [numCategories]int64
	byCode           map[Code]int64
}

func NewAggregator() *Aggregator {
	return &Aggregator{byCode: make(map[Code]int64)}
}

// Report appends one occurrence to the current event.
func (a *Aggregator) Report(c Category, code Code, arg1, arg2 int64) {
	a.pending = append(a.pending, Occurrence{Category: c, Code: code, Arg1: arg1, Arg2: arg2})
}

// Pending is the number of occurrences reported since the last flush.
func (a *Aggregator) Pending() int {
	return len(a.pending)
}

// Flush closes the current event: it returns its summary, folds it into the
// run totals and clears the buffer.
func (a *Aggregator) Flush(seq uint64) Summary {
	s := Summary{Sequence: seq}
	if len(a.pending) > 0 {
		s.Occurrences = append([]Occurrence(nil), a.pending...)
		a.pending = a.pending[:0]
	}

	a.flushed++
	if s.Empty() {
		return s
	}
	a.eventsWithErrors++
	if s.Aborted() {
		a.aborted++
	}
	for _, o := range s.Occurrences {
		a.total++
		if o.Category < numCategories {
			a.byCategory[o.Category]++
		}
		a.byCode[o.Code]++
	}
	return s
}

// Flushed is the number of events closed so far.
func (a *Aggregator) Flushed() int64 {
	return a.flushed
}

// Finish builds the run report. events is the processed count seen by the
// loop, wall the elapsed run time and span the event timestamp range.
func (a *Aggregator) Finish(events int64, wall time.Duration, span float64) RunReport {
	r := RunReport{
		Events:           events,
		EventsWithErrors: a.eventsWithErrors,
		AbortedEvents:    a.aborted,
		TotalErrors:      a.total,
		ByCategory:       make(map[string]int64, numCategories),
		ByCode:           make(map[string]int64, len(a.byCode)),
		ElapsedSeconds:   wall.Seconds(),
		TimestampSpan:    span,
	}
	for i, n := range a.byCategory {
		r.ByCategory[Category(i).String()] = n
	}
	for code, n := range a.byCode {
		r.ByCode[code.String()] = n
	}
	if secs := wall.Seconds(); secs > 0 {
		r.AverageRate = float64(events) / secs
	}
	return r
}
