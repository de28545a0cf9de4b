// Package processor drives the event loop: pull a record, decode it into the
// field registry, stamp its time, summarize its errors and commit.
package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/danmuck/fastmon/internal/clock"
	"github.com/danmuck/fastmon/internal/decoder"
	"github.com/danmuck/fastmon/internal/eventerr"
	"github.com/danmuck/fastmon/internal/fields"
	"github.com/danmuck/fastmon/internal/observability"
	"github.com/danmuck/fastmon/internal/protocol/frame"
	"github.com/danmuck/fastmon/internal/sink"
	"github.com/danmuck/fastmon/internal/source"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Stop reasons recorded on the run report.
const (
	StopEndOfStream = "end_of_stream"
	StopMaxEvents   = "max_events"
	StopCancelled   = "cancelled"
	StopError       = "error"
)

type Config struct {
	RunID string
	// MaxEvents stops the run after that many commits. Zero is unlimited.
	MaxEvents     uint64
	ProgressEvery uint64
	// DumpPath enables the error dump when set.
	DumpPath string
	Clock    clock.Params
	Limits   frame.Limits
}

func DefaultConfig() Config {
	return Config{
		ProgressEvery: 100,
		Clock:         clock.DefaultParams(),
		Limits:        frame.DefaultLimits(),
	}
}

// Publisher receives the live run report at every progress tick and at the
// end of the run.
type Publisher interface {
	Publish(eventerr.RunReport)
}

type Option func(*Processor)

func WithLogger(logger zerolog.Logger) Option {
	return func(p *Processor) {
		p.log = logger
	}
}

func WithPublisher(pub Publisher) Option {
	return func(p *Processor) {
		p.pub = pub
	}
}

// EventHook observes each committed event. Used for instrumentation and tests.
type EventHook func(seq uint64, summary eventerr.Summary, dump DumpResult)

func WithEventHook(h EventHook) Option {
	return func(p *Processor) {
		p.hook = h
	}
}

type Processor struct {
	cfg  Config
	reg  *fields.Registry
	errs *eventerr.Aggregator
	dec  *decoder.Decoder
	src  source.Source
	out  sink.Sink
	log  zerolog.Logger
	pub  Publisher
	hook EventHook

	eventNumber  fields.View
	timestamp    fields.View
	errorSummary fields.View

	clock  clock.State
	dumper *dumper
	seq    uint64

	start      time.Time
	tsMin      float64
	tsMax      float64
	haveTS     bool
	dumpFailed int
}

// New validates the schema against the decoder and prepares one run.
func New(reg *fields.Registry, src source.Source, out sink.Sink, cfg Config, opts ...Option) (*Processor, error) {
	if reg == nil || src == nil || out == nil {
		return nil, errors.New("processor: registry, source and sink are required")
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	if cfg.Clock == (clock.Params{}) {
		cfg.Clock = clock.DefaultParams()
	}
	if cfg.Limits == (frame.Limits{}) {
		cfg.Limits = frame.DefaultLimits()
	}

	p := &Processor{
		cfg:  cfg,
		reg:  reg,
		errs: eventerr.NewAggregator(),
		src:  src,
		out:  out,
		log:  log.With().Str("component", "processor").Str("run", cfg.RunID).Logger(),
	}
	for _, opt := range opts {
		opt(p)
	}

	dec, err := decoder.New(reg, p.errs, decoder.WithLogger(p.log))
	if err != nil {
		return nil, fmt.Errorf("processor: %w", err)
	}
	p.dec = dec
	p.eventNumber, _ = reg.Get(decoder.FieldProcessorEventNumber)
	p.timestamp, _ = reg.Get(decoder.FieldEventTimestamp)
	p.errorSummary, _ = reg.Get(decoder.FieldErrorSummary)
	p.dumper = newDumper(cfg.DumpPath, cfg.Limits)
	return p, nil
}

func (p *Processor) RunID() string {
	return p.cfg.RunID
}

// Run processes records until end of stream, the event limit, a fatal error
// or cancellation. Cancellation is only observed between events. The report
// is valid whatever the returned error.
func (p *Processor) Run(ctx context.Context) (eventerr.RunReport, error) {
	p.start = time.Now()
	p.log.Info().Uint64("max_events", p.cfg.MaxEvents).Bool("dump", p.dumper != nil).Msg("run started")

	stop, runErr := p.loop(ctx)

	if err := p.dumper.close(); err != nil {
		p.log.Warn().Err(err).Msg("close error dump")
	}
	if err := p.out.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("processor: close sink: %w", err)
		stop = StopError
	}

	report := p.report()
	report.StopReason = stop
	if p.pub != nil {
		p.pub.Publish(report)
	}

	ev := p.log.Info()
	if runErr != nil {
		ev = p.log.Error().Err(runErr)
	}
	ev.Str("stop", stop).
		Int64("events", report.Events).
		Int64("events_with_errors", report.EventsWithErrors).
		Int64("aborted", report.AbortedEvents).
		Int64("errors", report.TotalErrors).
		Float64("elapsed_s", report.ElapsedSeconds).
		Float64("rate_hz", report.AverageRate).
		Int("dumped", p.dumper.count()).
		Int("dump_failed", p.dumpFailed).
		Msg("run finished")
	return report, runErr
}

func (p *Processor) loop(ctx context.Context) (string, error) {
	for {
		if p.cfg.MaxEvents > 0 && p.seq >= p.cfg.MaxEvents {
			return StopMaxEvents, nil
		}
		if ctx.Err() != nil {
			return StopCancelled, nil
		}
		rec, err := p.src.Next(ctx)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				return StopEndOfStream, nil
			case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
				return StopCancelled, nil
			default:
				return StopError, fmt.Errorf("processor: read event %d: %w", p.seq, err)
			}
		}
		if err := p.process(rec); err != nil {
			return StopError, err
		}
	}
}

// process runs one record through the pipeline and commits it.
func (p *Processor) process(rec source.Record) error {
	p.reg.Reset()
	_ = p.eventNumber.SetUint(p.seq)
	if rec.Context != nil {
		p.dec.ApplyContext(*rec.Context)
	}

	began := time.Now()
	res, err := p.dec.Decode(rec.Data)
	took := time.Since(began)
	if err != nil {
		s := p.errs.Flush(p.seq)
		observability.RecordEvent(s, took, res.SkippedWrites)
		if _, derr := p.dump(rec.Data, s); derr != nil {
			p.log.Warn().Err(derr).Msg("error dump failed")
		}
		return fmt.Errorf("processor: event %d: %w", p.seq, err)
	}

	if res.HasEvent {
		ts, next := clock.Reconstruct(p.clock, res.Clock, p.cfg.Clock)
		p.clock = next
		_ = p.timestamp.SetFloat(ts)
		p.trackTimestamp(ts)
	}

	summary := p.errs.Flush(p.seq)
	_ = p.errorSummary.SetUint(uint64(summary.Mask()))
	observability.RecordEvent(summary, took, res.SkippedWrites)

	dumped, derr := p.dump(rec.Data, summary)
	if derr != nil {
		p.log.Warn().Err(derr).Uint64("seq", p.seq).Msg("error dump failed")
	}

	if err := p.out.Commit(p.reg.Snapshot(), summary, p.seq); err != nil {
		observability.RecordCommit(false)
		return fmt.Errorf("processor: commit event %d: %w", p.seq, err)
	}
	observability.RecordCommit(true)
	if a, ok := p.src.(source.Acker); ok {
		if err := a.Ack(); err != nil {
			p.log.Warn().Err(err).Uint64("seq", p.seq).Msg("ack committed record")
		}
	}

	if !summary.Empty() {
		p.log.Debug().Uint64("seq", p.seq).Stringer("errors", summary).Bool("aborted", res.Aborted).Msg("event with errors")
	}
	if p.hook != nil {
		p.hook(p.seq, summary, dumped)
	}
	p.seq++
	if p.cfg.ProgressEvery > 0 && p.seq%p.cfg.ProgressEvery == 0 {
		p.progress()
	}
	return nil
}

func (p *Processor) dump(buf []byte, s eventerr.Summary) (DumpResult, error) {
	if s.Empty() {
		return DumpSkipped, nil
	}
	r, err := p.dumper.dump(buf)
	if r == DumpFailed {
		p.dumpFailed++
	}
	return r, err
}

func (p *Processor) trackTimestamp(ts float64) {
	if math.IsNaN(ts) {
		return
	}
	if !p.haveTS {
		p.tsMin, p.tsMax, p.haveTS = ts, ts, true
		return
	}
	p.tsMin = math.Min(p.tsMin, ts)
	p.tsMax = math.Max(p.tsMax, ts)
}

func (p *Processor) report() eventerr.RunReport {
	span := 0.0
	if p.haveTS {
		span = p.tsMax - p.tsMin
	}
	r := p.errs.Finish(int64(p.seq), time.Since(p.start), span)
	r.RunID = p.cfg.RunID
	return r
}

func (p *Processor) progress() {
	r := p.report()
	p.log.Info().
		Uint64("events", p.seq).
		Int64("errors", r.TotalErrors).
		Float64("rate_hz", r.AverageRate).
		Msg("progress")
	if p.pub != nil {
		p.pub.Publish(r)
	}
}
