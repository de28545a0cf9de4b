// Package sink receives one snapshot per processed event.
package sink

import (
	"github.com/danmuck/fastmon/internal/eventerr"
	"github.com/danmuck/fastmon/internal/fields"
)

// Sink persists committed events. Commit is called once per event in stream
// order; Close flushes whatever the sink buffers.
type Sink interface {
	Commit(snap fields.Snapshot, summary eventerr.Summary, seq uint64) error
	Close() error
}

// Discard counts commits and keeps nothing.
type Discard struct {
	Commits uint64
}

func (d *Discard) Commit(fields.Snapshot, eventerr.Summary, uint64) error {
	d.Commits++
	return nil
}

func (d *Discard) Close() error { return nil }

// Commit is one event held by Memory.
type Commit struct {
	Seq      uint64
	Snapshot fields.Snapshot
	Summary  eventerr.Summary
}

// Memory keeps every commit, for tests and small runs.
type Memory struct {
	Commits []Commit
	Closed  bool
}

func (m *Memory) Commit(snap fields.Snapshot, summary eventerr.Summary, seq uint64) error {
	m.Commits = append(m.Commits, Commit{Seq: seq, Snapshot: snap, Summary: summary})
	return nil
}

func (m *Memory) Close() error {
	m.Closed = true
	return nil
}
