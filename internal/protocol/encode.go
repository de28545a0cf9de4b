package protocol

import (
	"bytes"
	"encoding/binary"
)

func EncodeEventHeader(h EventHeader) []byte {
	buf := make([]byte, EventHeaderLen)
	binary.BigEndian.PutUint32(buf[0:4], h.Summary)
	binary.BigEndian.PutUint32(buf[4:8], h.Ticks)
	binary.BigEndian.PutUint32(buf[8:12], h.Hack)
	binary.BigEndian.PutUint32(buf[12:16], h.HackTicks)
	binary.BigEndian.PutUint32(buf[16:20], h.Sequence)
	return buf
}

func EncodeContext(ctx Context) []byte {
	var buf bytes.Buffer
	buf.Grow(ContextLen)
	// fixed-size struct into an in-memory buffer cannot fail
	_ = binary.Write(&buf, binary.BigEndian, ctx)
	return buf.Bytes()
}

func EncodeGEM(g GEM) []byte {
	var buf bytes.Buffer
	buf.Grow(GEMLen)
	_ = binary.Write(&buf, binary.BigEndian, g)
	return buf.Bytes()
}

// EncodeTKR builds a TKR payload. A nil diagnostic omits the trailer.
func EncodeTKR(hits []TKRHit, diag *Diagnostic) []byte {
	buf := make([]byte, 2, 2+len(hits)*TKRHitLen)
	binary.BigEndian.PutUint16(buf, uint16(len(hits)))
	for _, h := range hits {
		buf = append(buf, h.Layer)
		buf = binary.BigEndian.AppendUint16(buf, h.Strip)
	}
	return appendDiagnostic(buf, diag)
}

// EncodeCAL builds a CAL payload. A nil diagnostic omits the trailer.
func EncodeCAL(logs []CALLog, diag *Diagnostic) []byte {
	buf := make([]byte, 2, 2+len(logs)*CALLogLen)
	binary.BigEndian.PutUint16(buf, uint16(len(logs)))
	for _, l := range logs {
		buf = append(buf, l.Layer, l.Column, l.Negative.Range)
		buf = binary.BigEndian.AppendUint16(buf, l.Negative.Value)
		buf = append(buf, l.Positive.Range)
		buf = binary.BigEndian.AppendUint16(buf, l.Positive.Value)
	}
	return appendDiagnostic(buf, diag)
}

func EncodeACD(tiles []ACDTile) []byte {
	buf := make([]byte, 2, 2+len(tiles)*ACDTileLen)
	binary.BigEndian.PutUint16(buf, uint16(len(tiles)))
	for _, t := range tiles {
		buf = binary.BigEndian.AppendUint16(buf, t.Tile)
		buf = binary.BigEndian.AppendUint16(buf, t.PHA)
	}
	return buf
}

func EncodeDiagnostic(d Diagnostic) []byte {
	return appendDiagnostic(nil, &d)
}

func appendDiagnostic(buf []byte, d *Diagnostic) []byte {
	if d == nil {
		return buf
	}
	buf = binary.BigEndian.AppendUint16(buf, DiagnosticMarker)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(d.Words)))
	for _, w := range d.Words {
		buf = binary.BigEndian.AppendUint32(buf, w)
	}
	return buf
}
