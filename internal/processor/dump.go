package processor

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/danmuck/fastmon/internal/protocol/frame"
)

// DumpResult is the outcome of offering one event to the error dump.
type DumpResult int

const (
	// DumpSkipped: dumping is disabled or the event had no errors.
	DumpSkipped DumpResult = iota
	DumpWritten
	// DumpFailed: the write failed; the run goes on and the error is logged.
	DumpFailed
)

func (r DumpResult) String() string {
	switch r {
	case DumpWritten:
		return "written"
	case DumpFailed:
		return "failed"
	default:
		return "skipped"
	}
}

// DumpPath names the error dump for an input: Err_<base>.ldf in dir.
func DumpPath(dir, input string) string {
	base := filepath.Base(input)
	for _, ext := range []string{".zst", ".ldf"} {
		base = strings.TrimSuffix(base, ext)
	}
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "stream"
	}
	return filepath.Join(dir, "Err_"+base+".ldf")
}

// dumper appends the raw buffers of events with errors as framed records.
// The file is created on the first write.
type dumper struct {
	path   string
	limits frame.Limits
	f      *os.File
	w      *bufio.Writer

	written int
}

func newDumper(path string, limits frame.Limits) *dumper {
	if path == "" {
		return nil
	}
	return &dumper{path: path, limits: limits}
}

func (d *dumper) dump(buf []byte) (DumpResult, error) {
	if d == nil {
		return DumpSkipped, nil
	}
	if d.w == nil {
		f, err := os.Create(d.path)
		if err != nil {
			return DumpFailed, fmt.Errorf("processor: create dump %s: %w", d.path, err)
		}
		d.f = f
		d.w = bufio.NewWriter(f)
	}
	if err := frame.WriteRecord(d.w, buf, d.limits); err != nil {
		return DumpFailed, fmt.Errorf("processor: dump record: %w", err)
	}
	d.written++
	return DumpWritten, nil
}

func (d *dumper) count() int {
	if d == nil {
		return 0
	}
	return d.written
}

func (d *dumper) close() error {
	if d == nil || d.f == nil {
		return nil
	}
	err := d.w.Flush()
	if cerr := d.f.Close(); err == nil {
		err = cerr
	}
	d.f = nil
	return err
}
