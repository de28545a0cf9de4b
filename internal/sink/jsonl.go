package sink

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/danmuck/fastmon/internal/eventerr"
	"github.com/danmuck/fastmon/internal/fields"
	"github.com/goccy/go-json"
)

// row is the JSON line written per event. Scalars are emitted as numbers,
// arrays flattened in row-major order.
type row struct {
	Seq    uint64         `json:"seq"`
	Errors *errorsRow     `json:"errors,omitempty"`
	Fields map[string]any `json:"fields"`
}

type errorsRow struct {
	Mask        uint32   `json:"mask"`
	Aborted     bool     `json:"aborted,omitempty"`
	Occurrences []string `json:"occurrences"`
}

// JSONL writes one JSON object per event.
type JSONL struct {
	w      *bufio.Writer
	closer io.Closer
	only   map[string]struct{}
}

type JSONLOption func(*JSONL)

// WithFields restricts output to the named fields.
func WithFields(names ...string) JSONLOption {
	return func(j *JSONL) {
		if len(names) == 0 {
			return
		}
		j.only = make(map[string]struct{}, len(names))
		for _, n := range names {
			j.only[n] = struct{}{}
		}
	}
}

func NewJSONL(w io.Writer, opts ...JSONLOption) *JSONL {
	j := &JSONL{w: bufio.NewWriter(w)}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// CreateJSONL truncates path and writes JSON lines to it.
func CreateJSONL(path string, opts ...JSONLOption) (*JSONL, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("sink: create %s: %w", path, err)
	}
	j := NewJSONL(f, opts...)
	j.closer = f
	return j, nil
}

func (j *JSONL) Commit(snap fields.Snapshot, summary eventerr.Summary, seq uint64) error {
	r := row{Seq: seq, Fields: make(map[string]any, snap.Len())}
	for _, c := range snap.Columns() {
		if j.only != nil {
			if _, ok := j.only[c.Name()]; !ok {
				continue
			}
		}
		r.Fields[c.Name()] = columnValue(c)
	}
	if !summary.Empty() {
		occ := make([]string, len(summary.Occurrences))
		for i, o := range summary.Occurrences {
			occ[i] = o.String()
		}
		r.Errors = &errorsRow{Mask: summary.Mask(), Aborted: summary.Aborted(), Occurrences: occ}
	}

	line, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("sink: encode event %d: %w", seq, err)
	}
	if _, err := j.w.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("sink: write event %d: %w", seq, err)
	}
	return nil
}

func columnValue(c fields.Column) any {
	if len(c.Shape()) > 0 {
		return c.Values()
	}
	switch {
	case c.Kind().IsFloat():
		v, _ := c.Float()
		return v
	case c.Kind().IsSigned():
		v, _ := c.Int()
		return v
	default:
		v, _ := c.Uint()
		return v
	}
}

func (j *JSONL) Close() error {
	err := j.w.Flush()
	if j.closer != nil {
		if cerr := j.closer.Close(); err == nil {
			err = cerr
		}
		j.closer = nil
	}
	return err
}
