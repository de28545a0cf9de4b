package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	HeaderLen = 8
	// Identity opens every record of a framed stream ("LDF0").
	Identity uint32 = 0x4C444630
)

var (
	ErrShortHeader    = errors.New("frame: short record header")
	ErrBadIdentity    = errors.New("frame: bad record identity")
	ErrBadLength      = errors.New("frame: record length smaller than header")
	ErrTruncated      = errors.New("frame: truncated record")
	ErrRecordTooLarge = errors.New("frame: record too large")
)

// Header is the fixed record header. Length counts the header itself.
type Header struct {
	Identity uint32
	Length   uint32
}

// Record is one framed buffer read from a stream.
type Record struct {
	Header  Header
	Payload []byte
}

// Limits constrains record decode/encode memory use.
type Limits struct {
	MaxRecordBytes uint32
}

func DefaultLimits() Limits {
	return Limits{MaxRecordBytes: 16 * 1024 * 1024}
}

// ReadRecord reads the next record. A stream that ends exactly on a record
// boundary yields io.EOF; any other short read is a framing error.
func ReadRecord(r io.Reader, limits Limits) (Record, error) {
	var fixed [HeaderLen]byte
	n, err := io.ReadFull(r, fixed[:])
	if err != nil {
		if errors.Is(err, io.EOF) && n == 0 {
			return Record{}, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Record{}, ErrShortHeader
		}
		return Record{}, err
	}

	h, err := DecodeHeader(fixed[:])
	if err != nil {
		return Record{}, err
	}
	if h.Identity != Identity {
		return Record{}, fmt.Errorf("%w: %#08x", ErrBadIdentity, h.Identity)
	}
	if h.Length < HeaderLen {
		return Record{}, fmt.Errorf("%w: %d", ErrBadLength, h.Length)
	}
	if limits.MaxRecordBytes > 0 && h.Length > limits.MaxRecordBytes {
		return Record{}, fmt.Errorf("%w: %d", ErrRecordTooLarge, h.Length)
	}

	payload := make([]byte, h.Length-HeaderLen)
	if len(payload) > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return Record{}, ErrTruncated
			}
			return Record{}, err
		}
	}
	return Record{Header: h, Payload: payload}, nil
}

// WriteRecord frames payload and writes it to w.
func WriteRecord(w io.Writer, payload []byte, limits Limits) error {
	total := uint64(len(payload)) + HeaderLen
	if total > uint64(^uint32(0)) || (limits.MaxRecordBytes > 0 && total > uint64(limits.MaxRecordBytes)) {
		return ErrRecordTooLarge
	}
	hb := EncodeHeader(Header{Identity: Identity, Length: uint32(total)})
	if _, err := w.Write(hb); err != nil {
		return err
	}
	if len(payload) > 0 {
		if _, err := w.Write(payload); err != nil {
			return err
		}
	}
	return nil
}

func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderLen)
	binary.BigEndian.PutUint32(buf[0:4], h.Identity)
	binary.BigEndian.PutUint32(buf[4:8], h.Length)
	return buf
}

func DecodeHeader(b []byte) (Header, error) {
	if len(b) != HeaderLen {
		return Header{}, fmt.Errorf("frame: invalid record header length: %d", len(b))
	}
	return Header{
		Identity: binary.BigEndian.Uint32(b[0:4]),
		Length:   binary.BigEndian.Uint32(b[4:8]),
	}, nil
}
