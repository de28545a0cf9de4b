// Package decoder walks one readout record through the dispatch tree
// Datagram -> Event -> Component -> SubStructure and writes what it finds
// into the field registry.
//
// Every handler returns an eventerr.Code. Negative unwinds the current event,
// zero continues, positive continues after a report. A handler that returns a
// non-zero code without reporting gets an UNKNOWN_ERROR_CODE occurrence.
package decoder

import (
	"errors"
	"fmt"

	"github.com/danmuck/fastmon/internal/clock"
	"github.com/danmuck/fastmon/internal/eventerr"
	"github.com/danmuck/fastmon/internal/fields"
	"github.com/danmuck/fastmon/internal/protocol"
	"github.com/danmuck/fastmon/internal/protocol/cell"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrFraming marks datagram framing that cannot be resynchronized. The run
// must stop.
var ErrFraming = errors.New("decoder: unrecoverable datagram framing")

// Result describes one decoded record.
type Result struct {
	HasEvent      bool
	Header        protocol.EventHeader
	Clock         clock.Input
	HasContext    bool
	Aborted       bool
	AbortCode     eventerr.Code
	Datagrams     int
	Contributions int
	SkippedWrites int
}

// Decoder owns the dispatch table for one registry. It is not safe for
// concurrent use.
type Decoder struct {
	reg  *fields.Registry
	errs *eventerr.Aggregator
	log  zerolog.Logger

	components [protocol.ComponentCAL + 1]component
	unknown    component

	ev   eventFields
	ctx  contextFields
	gem  gemFields
	tkr  tkrFields
	cal  calFields
	acd  acdFields
	seen map[uint32]struct{}

	context *protocol.Context
	cur     *Result
}

type Option func(*Decoder)

func WithLogger(logger zerolog.Logger) Option {
	return func(d *Decoder) {
		d.log = logger
	}
}

// New binds every declared field once and builds the dispatch table.
func New(reg *fields.Registry, errs *eventerr.Aggregator, opts ...Option) (*Decoder, error) {
	if reg == nil || errs == nil {
		return nil, fmt.Errorf("decoder: registry and aggregator are required")
	}
	if err := CheckRequired(reg); err != nil {
		return nil, err
	}
	d := &Decoder{
		reg:  reg,
		errs: errs,
		log:  log.With().Str("component", "decoder").Logger(),
		seen: make(map[uint32]struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}

	b := binder{reg: reg}
	d.ev = bindEventFields(b)
	d.ctx = bindContextFields(b)
	d.gem = bindGEMFields(b)
	d.tkr = bindTKRFields(b)
	d.cal = bindCALFields(b)
	d.acd = bindACDFields(b)
	d.buildComponents()

	d.log.Debug().Int("fields", reg.Len()).Strs("components", d.componentNames()).Msg("decoder ready")
	return d, nil
}

// Decode walks every datagram of one record. The returned error is non-nil
// only for framing that cannot be resynchronized; everything else is
// reported to the aggregator. A record without an event datagram, such as a
// lone run context, is reported as a recoverable DATAGRAM_ERROR EMPTY_EVENT.
func (d *Decoder) Decode(buf []byte) (Result, error) {
	res := Result{}
	d.cur = &res
	defer func() { d.cur = nil }()

	if d.context != nil {
		d.writeContext(*d.context)
		res.HasContext = true
	}

	rest := buf
	for len(rest) > 0 {
		dg, next, err := cell.NextDatagram(rest)
		if err != nil {
			d.errs.Report(eventerr.CategoryDatagram, eventerr.CodeBadDatagramLength, int64(len(buf)-len(rest)), int64(len(rest)))
			return res, fmt.Errorf("%w at offset %d: %v", ErrFraming, len(buf)-len(rest), err)
		}
		rest = next
		res.Datagrams++

		code := d.datagram(dg)
		if code.Aborts() {
			res.Aborted = true
			res.AbortCode = code
			d.log.Debug().Int32("code", int32(code)).Str("reason", code.String()).Msg("event aborted")
			break
		}
	}
	if !res.HasEvent && !res.Aborted {
		d.errs.Report(eventerr.CategoryDatagram, eventerr.CodeEmptyEvent, int64(res.Datagrams), int64(len(buf)))
	}
	return res, nil
}

// ApplyContext installs a run context delivered out of band. It is written
// into the context fields of every following event until replaced.
func (d *Decoder) ApplyContext(ctx protocol.Context) {
	c := ctx
	d.context = &c
	d.writeContext(c)
	if d.cur != nil {
		d.cur.HasContext = true
	}
}

// Context returns the most recent run context, if any.
func (d *Decoder) Context() (protocol.Context, bool) {
	if d.context == nil {
		return protocol.Context{}, false
	}
	return *d.context, true
}

func (d *Decoder) datagram(dg cell.Datagram) eventerr.Code {
	switch dg.Type {
	case protocol.DatagramContext:
		return d.invoke(eventerr.CategoryContext, func() eventerr.Code { return d.contextDatagram(dg.Payload) })
	case protocol.DatagramEvent:
		return d.invoke(eventerr.CategoryEventContrib, func() eventerr.Code { return d.event(dg.Payload) })
	default:
		return d.fail(eventerr.CategoryDatagram, eventerr.CodeUnknownDatagram, int64(dg.Type), int64(len(dg.Payload)))
	}
}

// invoke runs one handler and enforces the reporting rule for non-zero codes.
func (d *Decoder) invoke(cat eventerr.Category, fn func() eventerr.Code) eventerr.Code {
	before := d.errs.Pending()
	code := fn()
	if code != eventerr.OK && d.errs.Pending() == before {
		d.errs.Report(cat, eventerr.CodeUnknownErrorCode, int64(code), 0)
	}
	return code
}

// fail reports one occurrence and returns its code.
func (d *Decoder) fail(cat eventerr.Category, code eventerr.Code, arg1, arg2 int64) eventerr.Code {
	d.errs.Report(cat, code, arg1, arg2)
	return code
}

// skip absorbs index errors at sub-structure call sites where a detector
// coordinate may exceed the declared shape. Such writes are dropped.
func (d *Decoder) skip(err error) {
	if err == nil {
		return
	}
	if d.cur != nil {
		d.cur.SkippedWrites++
	}
	d.log.Trace().Err(err).Msg("write outside declared geometry skipped")
}
