package source

import (
	"context"
	"io"
)

// Memory replays a fixed slice of records.
type Memory struct {
	records []Record
	next    int

	// Acked counts Ack calls.
	Acked int
}

func NewMemory(records ...Record) *Memory {
	return &Memory{records: records}
}

// FromBuffers wraps plain buffers without out-of-band contexts.
func FromBuffers(bufs ...[]byte) *Memory {
	records := make([]Record, len(bufs))
	for i, b := range bufs {
		records[i] = Record{Data: b}
	}
	return NewMemory(records...)
}

func (m *Memory) Next(ctx context.Context) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	if m.next >= len(m.records) {
		return Record{}, io.EOF
	}
	r := m.records[m.next]
	m.next++
	return r, nil
}

func (m *Memory) Ack() error {
	m.Acked++
	return nil
}

func (m *Memory) Close() error { return nil }
