package cell

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	DatagramHeaderLen     = 8
	ContributionHeaderLen = 8
)

var (
	ErrShortDatagramHeader     = errors.New("cell: short datagram header")
	ErrBadDatagramLength       = errors.New("cell: datagram length out of bounds")
	ErrShortContributionHeader = errors.New("cell: short contribution header")
	ErrBadContributionLength   = errors.New("cell: contribution length out of bounds")
)

// Datagram is one framed chunk of a record. Payload aliases the input buffer.
type Datagram struct {
	Type    uint32
	Payload []byte
}

// Contribution is the part of an event owned by one component. Source is the
// tower for per-tower components. Payload aliases the input buffer.
type Contribution struct {
	Component uint16
	Source    uint16
	Payload   []byte
}

// NextDatagram splits the leading datagram off buf and returns the rest.
// The declared length counts the header.
func NextDatagram(buf []byte) (Datagram, []byte, error) {
	if len(buf) < DatagramHeaderLen {
		return Datagram{}, nil, fmt.Errorf("%w: %d bytes left", ErrShortDatagramHeader, len(buf))
	}
	typ := binary.BigEndian.Uint32(buf[0:4])
	l := binary.BigEndian.Uint32(buf[4:8])
	if l < DatagramHeaderLen || uint64(l) > uint64(len(buf)) {
		return Datagram{}, nil, fmt.Errorf("%w: length %d with %d bytes left", ErrBadDatagramLength, l, len(buf))
	}
	return Datagram{Type: typ, Payload: buf[DatagramHeaderLen:l]}, buf[l:], nil
}

// NextContribution splits the leading contribution off buf and returns the rest.
func NextContribution(buf []byte) (Contribution, []byte, error) {
	if len(buf) < ContributionHeaderLen {
		return Contribution{}, nil, fmt.Errorf("%w: %d bytes left", ErrShortContributionHeader, len(buf))
	}
	comp := binary.BigEndian.Uint16(buf[0:2])
	src := binary.BigEndian.Uint16(buf[2:4])
	l := binary.BigEndian.Uint32(buf[4:8])
	if l < ContributionHeaderLen || uint64(l) > uint64(len(buf)) {
		return Contribution{}, nil, fmt.Errorf("%w: length %d with %d bytes left", ErrBadContributionLength, l, len(buf))
	}
	return Contribution{Component: comp, Source: src, Payload: buf[ContributionHeaderLen:l]}, buf[l:], nil
}

func EncodeDatagram(d Datagram) []byte {
	buf := make([]byte, DatagramHeaderLen+len(d.Payload))
	binary.BigEndian.PutUint32(buf[0:4], d.Type)
	binary.BigEndian.PutUint32(buf[4:8], uint32(len(buf)))
	copy(buf[DatagramHeaderLen:], d.Payload)
	return buf
}

func EncodeDatagrams(ds []Datagram) []byte {
	out := make([]byte, 0)
	for _, d := range ds {
		out = append(out, EncodeDatagram(d)...)
	}
	return out
}

func EncodeContribution(c Contribution) []byte {
	buf := make([]byte, ContributionHeaderLen+len(c.Payload))
	binary.BigEndian.PutUint16(buf[0:2], c.Component)
	binary.BigEndian.PutUint16(buf[2:4], c.Source)
	binary.BigEndian.PutUint32(buf[4:8], uint32(len(buf)))
	copy(buf[ContributionHeaderLen:], c.Payload)
	return buf
}

func EncodeContributions(cs []Contribution) []byte {
	out := make([]byte, 0)
	for _, c := range cs {
		out = append(out, EncodeContribution(c)...)
	}
	return out
}
