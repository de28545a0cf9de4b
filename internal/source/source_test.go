package source

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/danmuck/fastmon/internal/protocol/frame"
	"github.com/danmuck/fastmon/internal/testutil/testlog"
	"github.com/klauspost/compress/zstd"
)

func framed(t *testing.T, payloads ...[]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	for _, p := range payloads {
		if err := frame.WriteRecord(&buf, p, frame.DefaultLimits()); err != nil {
			t.Fatalf("write record: %v", err)
		}
	}
	return buf.Bytes()
}

func drain(t *testing.T, s Source) [][]byte {
	t.Helper()
	var out [][]byte
	for {
		rec, err := s.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		out = append(out, rec.Data)
	}
}

func TestStreamReadsRecordsUntilEOF(t *testing.T) {
	testlog.Start(t)
	s := NewStream(bytes.NewReader(framed(t, []byte("a"), []byte("bc"))), frame.DefaultLimits())
	got := drain(t, s)
	if len(got) != 2 || string(got[0]) != "a" || string(got[1]) != "bc" {
		t.Fatalf("unexpected records %q", got)
	}
}

func TestStreamTruncationIsAnError(t *testing.T) {
	testlog.Start(t)
	data := framed(t, []byte("abcdef"))
	s := NewStream(bytes.NewReader(data[:len(data)-2]), frame.DefaultLimits())
	_, err := s.Next(context.Background())
	if !errors.Is(err, frame.ErrTruncated) {
		t.Fatalf("expected frame.ErrTruncated, got %v", err)
	}
}

func TestOpenFileRawAndZstd(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	data := framed(t, []byte("one"), []byte("two"), []byte("three"))

	raw := filepath.Join(dir, "run.ldf")
	if err := os.WriteFile(raw, data, 0o644); err != nil {
		t.Fatalf("write raw: %v", err)
	}

	compressed := filepath.Join(dir, "run.ldf.zst")
	f, err := os.Create(compressed)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	zw, err := zstd.NewWriter(f)
	if err != nil {
		t.Fatalf("zstd writer: %v", err)
	}
	if _, err := zw.Write(data); err != nil {
		t.Fatalf("compress: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zstd: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}

	for _, path := range []string{raw, compressed} {
		s, err := OpenFile(path, DetectFormat(path), frame.DefaultLimits())
		if err != nil {
			t.Fatalf("open %s: %v", path, err)
		}
		got := drain(t, s)
		if len(got) != 3 || string(got[2]) != "three" {
			t.Fatalf("%s: unexpected records %q", path, got)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("close %s: %v", path, err)
		}
	}
}

func TestParseFormat(t *testing.T) {
	testlog.Start(t)
	cases := map[string]Format{"": FormatRaw, "raw": FormatRaw, "ZSTD": FormatZstd, " nats ": FormatNATS}
	for in, want := range cases {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("root"); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
	if DetectFormat("x.ldf") != FormatRaw || DetectFormat("x.ldf.ZST") != FormatZstd {
		t.Fatalf("format detection by extension failed")
	}
}

func TestMemorySourceHonoursCancellation(t *testing.T) {
	testlog.Start(t)
	m := FromBuffers([]byte("x"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if got := drain(t, m); len(got) != 1 {
		t.Fatalf("cancelled call must not consume a record, got %d", len(got))
	}
}
