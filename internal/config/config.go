package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/fastmon/internal/clock"
	"github.com/danmuck/fastmon/internal/protocol/frame"
	"github.com/danmuck/fastmon/internal/source"
)

// RunConfig is everything one fastmon run needs.
type RunConfig struct {
	Input         string
	Format        source.Format
	Schema        string
	DisableGroups []string
	Output        string
	OutputFields  []string
	Report        string
	MaxEvents     uint64
	ProgressEvery uint64
	DumpErrors    bool
	DumpDir       string
	StatusAddr    string
	Limits        frame.Limits
	Clock         clock.Params
	NATS          source.NATSConfig
}

func DefaultRunConfig() RunConfig {
	return RunConfig{
		Format:        source.FormatRaw,
		ProgressEvery: 100,
		DumpDir:       ".",
		Limits:        frame.DefaultLimits(),
		Clock:         clock.DefaultParams(),
		NATS: source.NATSConfig{
			URL:         "nats://127.0.0.1:4222",
			Stream:      "READOUT",
			Subject:     "readout.>",
			Consumer:    "fastmon",
			Batch:       32,
			IdleTimeout: 5 * time.Second,
		},
	}
}

type fileConfig struct {
	Input          string    `toml:"input"`
	Format         string    `toml:"format"`
	Schema         string    `toml:"schema"`
	DisableGroups  []string  `toml:"disable_groups"`
	Output         string    `toml:"output"`
	OutputFields   []string  `toml:"output_fields"`
	Report         string    `toml:"report"`
	MaxEvents      uint64    `toml:"max_events"`
	ProgressEvery  uint64    `toml:"progress_every"`
	DumpErrors     bool      `toml:"dump_errors"`
	DumpDir        string    `toml:"dump_dir"`
	StatusAddr     string    `toml:"status_addr"`
	MaxRecordBytes uint32    `toml:"max_record_bytes"`
	Clock          fileClock `toml:"clock"`
	NATS           fileNATS  `toml:"nats"`
}

type fileClock struct {
	TickRolloverPeriod int64   `toml:"tick_rollover_period"`
	TickDuration       float64 `toml:"tick_duration"`
	HackRolloverPeriod float64 `toml:"hack_rollover_period"`
}

type fileNATS struct {
	URL         string `toml:"url"`
	Stream      string `toml:"stream"`
	Subject     string `toml:"subject"`
	Consumer    string `toml:"consumer"`
	Batch       int    `toml:"batch"`
	IdleTimeout string `toml:"idle_timeout"`
}

// LoadRunConfig overlays the keys present in path onto DefaultRunConfig.
// Callers validate after applying command-line overrides.
func LoadRunConfig(path string) (RunConfig, error) {
	cfg := DefaultRunConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return RunConfig{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return RunConfig{}, fmt.Errorf("config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}

	if meta.IsDefined("input") {
		cfg.Input = strings.TrimSpace(raw.Input)
	}
	if meta.IsDefined("format") {
		f, err := source.ParseFormat(raw.Format)
		if err != nil {
			return RunConfig{}, fmt.Errorf("config %s: %w", path, err)
		}
		cfg.Format = f
	}
	if meta.IsDefined("schema") {
		cfg.Schema = strings.TrimSpace(raw.Schema)
	}
	if meta.IsDefined("disable_groups") {
		cfg.DisableGroups = normalizeList(raw.DisableGroups)
	}
	if meta.IsDefined("output") {
		cfg.Output = strings.TrimSpace(raw.Output)
	}
	if meta.IsDefined("output_fields") {
		cfg.OutputFields = normalizeList(raw.OutputFields)
	}
	if meta.IsDefined("report") {
		cfg.Report = strings.TrimSpace(raw.Report)
	}
	if meta.IsDefined("max_events") {
		cfg.MaxEvents = raw.MaxEvents
	}
	if meta.IsDefined("progress_every") {
		cfg.ProgressEvery = raw.ProgressEvery
	}
	if meta.IsDefined("dump_errors") {
		cfg.DumpErrors = raw.DumpErrors
	}
	if meta.IsDefined("dump_dir") {
		cfg.DumpDir = strings.TrimSpace(raw.DumpDir)
	}
	if meta.IsDefined("status_addr") {
		cfg.StatusAddr = strings.TrimSpace(raw.StatusAddr)
	}
	if meta.IsDefined("max_record_bytes") {
		cfg.Limits.MaxRecordBytes = raw.MaxRecordBytes
	}

	if meta.IsDefined("clock", "tick_rollover_period") {
		cfg.Clock.TickRolloverPeriod = raw.Clock.TickRolloverPeriod
	}
	if meta.IsDefined("clock", "tick_duration") {
		cfg.Clock.TickDuration = raw.Clock.TickDuration
	}
	if meta.IsDefined("clock", "hack_rollover_period") {
		cfg.Clock.HackRolloverPeriod = raw.Clock.HackRolloverPeriod
	}

	if meta.IsDefined("nats", "url") {
		cfg.NATS.URL = strings.TrimSpace(raw.NATS.URL)
	}
	if meta.IsDefined("nats", "stream") {
		cfg.NATS.Stream = strings.TrimSpace(raw.NATS.Stream)
	}
	if meta.IsDefined("nats", "subject") {
		cfg.NATS.Subject = strings.TrimSpace(raw.NATS.Subject)
	}
	if meta.IsDefined("nats", "consumer") {
		cfg.NATS.Consumer = strings.TrimSpace(raw.NATS.Consumer)
	}
	if meta.IsDefined("nats", "batch") {
		cfg.NATS.Batch = raw.NATS.Batch
	}
	if meta.IsDefined("nats", "idle_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.NATS.IdleTimeout))
		if err != nil {
			return RunConfig{}, fmt.Errorf("parse nats.idle_timeout: %w", err)
		}
		cfg.NATS.IdleTimeout = d
	}

	return cfg, nil
}

// Validate reports every problem at once.
func (c RunConfig) Validate() error {
	var errs []error
	switch c.Format {
	case source.FormatRaw, source.FormatZstd:
		if c.Input == "" {
			errs = append(errs, fmt.Errorf("input is required for %s format", c.Format))
		}
	case source.FormatNATS:
		if c.NATS.Stream == "" {
			errs = append(errs, errors.New("nats.stream is required for nats format"))
		}
		if c.NATS.Consumer == "" {
			errs = append(errs, errors.New("nats.consumer is required for nats format"))
		}
	default:
		errs = append(errs, fmt.Errorf("%w: %q", source.ErrUnknownFormat, c.Format))
	}
	if c.Clock.TickRolloverPeriod <= 0 {
		errs = append(errs, errors.New("clock.tick_rollover_period must be positive"))
	}
	if c.Clock.TickDuration <= 0 {
		errs = append(errs, errors.New("clock.tick_duration must be positive"))
	}
	if c.Clock.HackRolloverPeriod <= 0 {
		errs = append(errs, errors.New("clock.hack_rollover_period must be positive"))
	}
	if c.Limits.MaxRecordBytes != 0 && c.Limits.MaxRecordBytes < frame.HeaderLen {
		errs = append(errs, fmt.Errorf("max_record_bytes must be at least %d", frame.HeaderLen))
	}
	if c.DumpErrors && c.DumpDir == "" {
		errs = append(errs, errors.New("dump_dir is required when dump_errors is set"))
	}
	return errors.Join(errs...)
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
