package frame

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/danmuck/fastmon/internal/testutil/testlog"
)

func TestReadWriteRecordRoundTrip(t *testing.T) {
	testlog.Start(t)
	var buf bytes.Buffer
	payloads := [][]byte{[]byte("event-1"), {}, {0xAA, 0xBB, 0xCC}}
	for _, p := range payloads {
		if err := WriteRecord(&buf, p, DefaultLimits()); err != nil {
			t.Fatalf("write record: %v", err)
		}
	}
	for i, want := range payloads {
		rec, err := ReadRecord(&buf, DefaultLimits())
		if err != nil {
			t.Fatalf("read record %d: %v", i, err)
		}
		if rec.Header.Identity != Identity || int(rec.Header.Length) != HeaderLen+len(want) {
			t.Fatalf("header mismatch: %+v", rec.Header)
		}
		if !bytes.Equal(rec.Payload, want) {
			t.Fatalf("payload mismatch at %d", i)
		}
	}
	if _, err := ReadRecord(&buf, DefaultLimits()); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF at clean end, got %v", err)
	}
}

func TestReadRecordMalformedHeaderIsDeterministic(t *testing.T) {
	testlog.Start(t)
	_, err := ReadRecord(bytes.NewReader([]byte{1, 2, 3}), DefaultLimits())
	if !errors.Is(err, ErrShortHeader) {
		t.Fatalf("expected ErrShortHeader, got %v", err)
	}
}

func TestReadRecordLengthTooSmall(t *testing.T) {
	testlog.Start(t)
	buf := EncodeHeader(Header{Identity: Identity, Length: 4})
	_, err := ReadRecord(bytes.NewReader(buf), DefaultLimits())
	if !errors.Is(err, ErrBadLength) {
		t.Fatalf("expected ErrBadLength, got %v", err)
	}
}

func TestReadRecordTruncatedPayload(t *testing.T) {
	testlog.Start(t)
	buf := append(EncodeHeader(Header{Identity: Identity, Length: 20}), 1, 2, 3)
	_, err := ReadRecord(bytes.NewReader(buf), DefaultLimits())
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestReadRecordBadIdentityAndLimit(t *testing.T) {
	testlog.Start(t)
	buf := EncodeHeader(Header{Identity: 0xDEADBEEF, Length: HeaderLen})
	if _, err := ReadRecord(bytes.NewReader(buf), DefaultLimits()); !errors.Is(err, ErrBadIdentity) {
		t.Fatalf("expected ErrBadIdentity, got %v", err)
	}
	big := EncodeHeader(Header{Identity: Identity, Length: 1 << 20})
	if _, err := ReadRecord(bytes.NewReader(big), Limits{MaxRecordBytes: 1024}); !errors.Is(err, ErrRecordTooLarge) {
		t.Fatalf("expected ErrRecordTooLarge, got %v", err)
	}
}
