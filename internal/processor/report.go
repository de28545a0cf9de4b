package processor

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/fastmon/internal/eventerr"
)

// WriteReport writes the end-of-run report as TOML.
func WriteReport(path string, r eventerr.RunReport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("processor: create report %s: %w", path, err)
	}
	if err := toml.NewEncoder(f).Encode(r); err != nil {
		_ = f.Close()
		return fmt.Errorf("processor: encode report: %w", err)
	}
	return f.Close()
}

// ReadReport loads a report written by WriteReport.
func ReadReport(path string) (eventerr.RunReport, error) {
	var r eventerr.RunReport
	if _, err := toml.DecodeFile(path, &r); err != nil {
		return eventerr.RunReport{}, fmt.Errorf("processor: read report %s: %w", path, err)
	}
	return r, nil
}
