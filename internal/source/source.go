// Package source delivers readout records to the event loop one at a time.
package source

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/danmuck/fastmon/internal/protocol"
)

// Record is one readout buffer plus an optional run context delivered
// alongside it rather than in-band.
type Record struct {
	Data    []byte
	Context *protocol.Context
}

// Source yields records until io.EOF.
type Source interface {
	Next(ctx context.Context) (Record, error)
	Close() error
}

// Acker is implemented by sources that track delivery. The event loop calls
// Ack once the last record returned by Next is committed.
type Acker interface {
	Ack() error
}

type Format string

const (
	FormatRaw  Format = "raw"
	FormatZstd Format = "zstd"
	FormatNATS Format = "nats"
)

var ErrUnknownFormat = errors.New("source: unknown input format")

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatRaw, FormatZstd, FormatNATS:
		return f, nil
	case "":
		return FormatRaw, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// DetectFormat picks zstd for .zst inputs and raw otherwise.
func DetectFormat(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".zst") {
		return FormatZstd
	}
	return FormatRaw
}
