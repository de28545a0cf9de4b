package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/danmuck/fastmon/internal/protocol/frame"
	"github.com/klauspost/compress/zstd"
)

// Stream reads framed records from any byte stream.
type Stream struct {
	r       *bufio.Reader
	limits  frame.Limits
	closers []func() error
	records int
}

func NewStream(r io.Reader, limits frame.Limits) *Stream {
	return &Stream{r: bufio.NewReaderSize(r, 64*1024), limits: limits}
}

// OpenFile opens a framed file, decompressing it when format is zstd.
func OpenFile(path string, format Format, limits frame.Limits) (*Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("source: open %s: %w", path, err)
	}
	switch format {
	case FormatRaw:
		s := NewStream(f, limits)
		s.closers = append(s.closers, f.Close)
		return s, nil
	case FormatZstd:
		zr, err := zstd.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("source: zstd reader for %s: %w", path, err)
		}
		s := NewStream(zr, limits)
		s.closers = append(s.closers, func() error { zr.Close(); return nil }, f.Close)
		return s, nil
	default:
		_ = f.Close()
		return nil, fmt.Errorf("%w: %q for file input", ErrUnknownFormat, format)
	}
}

func (s *Stream) Next(ctx context.Context) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	rec, err := frame.ReadRecord(s.r, s.limits)
	if err != nil {
		if err == io.EOF {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("source: record %d: %w", s.records, err)
	}
	s.records++
	return Record{Data: rec.Payload}, nil
}

func (s *Stream) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	s.closers = nil
	return first
}
