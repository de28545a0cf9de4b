package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Reader is a big-endian cursor over one payload. Reads past the end return
// ErrTruncated and leave the cursor where it was.
type Reader struct {
	buf []byte
	off int
}

func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

// Len is the number of unread bytes.
func (r *Reader) Len() int {
	return len(r.buf) - r.off
}

func (r *Reader) Offset() int {
	return r.off
}

// Rest returns the unread bytes without consuming them.
func (r *Reader) Rest() []byte {
	return r.buf[r.off:]
}

func (r *Reader) take(n int) ([]byte, error) {
	if r.Len() < n {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncated, n, r.off, r.Len())
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *Reader) U8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) U16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *Reader) U32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// PeekU16 reads a u16 without consuming it.
func (r *Reader) PeekU16() (uint16, bool) {
	if r.Len() < 2 {
		return 0, false
	}
	return binary.BigEndian.Uint16(r.buf[r.off:]), true
}

func ParseEventHeader(b []byte) (EventHeader, []byte, error) {
	if len(b) < EventHeaderLen {
		return EventHeader{}, nil, fmt.Errorf("%w: event header needs %d bytes, have %d", ErrTruncated, EventHeaderLen, len(b))
	}
	h := EventHeader{
		Summary:   binary.BigEndian.Uint32(b[0:4]),
		Ticks:     binary.BigEndian.Uint32(b[4:8]),
		Hack:      binary.BigEndian.Uint32(b[8:12]),
		HackTicks: binary.BigEndian.Uint32(b[12:16]),
		Sequence:  binary.BigEndian.Uint32(b[16:20]),
	}
	return h, b[EventHeaderLen:], nil
}

// ParseContext decodes a context payload. Bytes past the fixed block are ignored.
func ParseContext(b []byte) (Context, error) {
	if len(b) < ContextLen {
		return Context{}, fmt.Errorf("%w: context needs %d bytes, have %d", ErrTruncated, ContextLen, len(b))
	}
	var ctx Context
	if err := binary.Read(bytes.NewReader(b[:ContextLen]), binary.BigEndian, &ctx); err != nil {
		return Context{}, fmt.Errorf("protocol: decode context: %w", err)
	}
	return ctx, nil
}

func ParseGEM(b []byte) (GEM, error) {
	if len(b) < GEMLen {
		return GEM{}, fmt.Errorf("%w: gem needs %d bytes, have %d", ErrTruncated, GEMLen, len(b))
	}
	var g GEM
	if err := binary.Read(bytes.NewReader(b[:GEMLen]), binary.BigEndian, &g); err != nil {
		return GEM{}, fmt.Errorf("protocol: decode gem: %w", err)
	}
	return g, nil
}

func ReadTKRHit(r *Reader) (TKRHit, error) {
	layer, err := r.U8()
	if err != nil {
		return TKRHit{}, err
	}
	strip, err := r.U16()
	if err != nil {
		return TKRHit{}, err
	}
	return TKRHit{Layer: layer, Strip: strip}, nil
}

func readCALEnd(r *Reader) (CALEnd, error) {
	rng, err := r.U8()
	if err != nil {
		return CALEnd{}, err
	}
	v, err := r.U16()
	if err != nil {
		return CALEnd{}, err
	}
	return CALEnd{Range: rng, Value: v}, nil
}

func ReadCALLog(r *Reader) (CALLog, error) {
	if r.Len() < CALLogLen {
		return CALLog{}, fmt.Errorf("%w: cal log needs %d bytes, have %d", ErrTruncated, CALLogLen, r.Len())
	}
	layer, _ := r.U8()
	column, _ := r.U8()
	neg, _ := readCALEnd(r)
	pos, _ := readCALEnd(r)
	return CALLog{Layer: layer, Column: column, Negative: neg, Positive: pos}, nil
}

func ReadACDTile(r *Reader) (ACDTile, error) {
	if r.Len() < ACDTileLen {
		return ACDTile{}, fmt.Errorf("%w: acd tile needs %d bytes, have %d", ErrTruncated, ACDTileLen, r.Len())
	}
	tile, _ := r.U16()
	pha, _ := r.U16()
	return ACDTile{Tile: tile, PHA: pha}, nil
}

// ReadDiagnostic consumes an optional diagnostic trailer. It returns false
// when no trailer starts at the cursor.
func ReadDiagnostic(r *Reader) (Diagnostic, bool, error) {
	marker, ok := r.PeekU16()
	if !ok || marker != DiagnosticMarker {
		return Diagnostic{}, false, nil
	}
	start := r.off
	_, _ = r.U16()
	n, err := r.U16()
	if err != nil {
		r.off = start
		return Diagnostic{}, true, fmt.Errorf("%w: diagnostic word count", ErrBadMarker)
	}
	if r.Len() < int(n)*4 {
		r.off = start
		return Diagnostic{}, true, fmt.Errorf("%w: diagnostic declares %d words, %d bytes left", ErrTruncated, n, r.Len())
	}
	d := Diagnostic{Words: make([]uint32, n)}
	for i := range d.Words {
		d.Words[i], _ = r.U32()
	}
	return d, true, nil
}
