package decoder

import (
	"github.com/danmuck/fastmon/internal/eventerr"
	"github.com/danmuck/fastmon/internal/fields"
	"github.com/danmuck/fastmon/internal/protocol"
	"github.com/danmuck/fastmon/internal/protocol/cell"
)

type calLogWriter func(d *Decoder, tower int, log protocol.CALLog)

type calFields struct {
	logCount        fields.View
	logCountTower   fields.View
	towerCount      fields.View
	diagnosticWords fields.View
	diagnostic      fields.View

	log []calLogWriter
}

func bindCALFields(b binder) calFields {
	f := calFields{
		logCount:        b.view(FieldCALLogCount),
		logCountTower:   b.view(FieldCALLogCountTower),
		towerCount:      b.view(FieldCALTowerCount),
		diagnosticWords: b.view(FieldCALDiagnosticWords),
		diagnostic:      b.view(FieldCALDiagnostic),
	}
	if b.has(FieldCALLogHitTowerLayerColumn) {
		hit := b.view(FieldCALLogHitTowerLayerColumn)
		f.log = append(f.log, func(d *Decoder, tower int, l protocol.CALLog) {
			d.skip(hit.SetUint(1, tower, int(l.Layer), int(l.Column)))
		})
	}
	if b.has(FieldCALLogEndRangeHit) {
		rangeHit := b.view(FieldCALLogEndRangeHit)
		f.log = append(f.log, func(d *Decoder, tower int, l protocol.CALLog) {
			for end := 0; end < protocol.CALEnds; end++ {
				if e := l.End(end); e.Value > 0 {
					d.skip(rangeHit.SetUint(1, tower, int(l.Layer), int(l.Column), end, int(e.Range)))
				}
			}
		})
	}
	if b.has(FieldCALLogEndValue) {
		value := b.view(FieldCALLogEndValue)
		f.log = append(f.log, func(d *Decoder, tower int, l protocol.CALLog) {
			for end := 0; end < protocol.CALEnds; end++ {
				d.skip(value.SetUint(uint64(l.End(end).Value), tower, int(l.Layer), int(l.Column), end))
			}
		})
	}
	return f
}

// calComponent walks the accepted logs of one tower, then the optional
// diagnostic trailer.
func (d *Decoder) calComponent(c cell.Contribution) eventerr.Code {
	tower := int(c.Source)
	r := protocol.NewReader(c.Payload)
	n, err := r.U16()
	if err != nil {
		return d.fail(eventerr.CategoryCAL, eventerr.CodeTruncatedPayload, int64(tower), 0)
	}
	for i := 0; i < int(n); i++ {
		l, err := protocol.ReadCALLog(r)
		if err != nil {
			return d.fail(eventerr.CategoryCAL, eventerr.CodeTruncatedPayload, int64(tower), int64(i))
		}
		for _, w := range d.cal.log {
			w(d, tower, l)
		}
	}

	f := d.cal
	_ = f.logCount.AddInt(int64(n))
	d.skip(f.logCountTower.SetUint(uint64(n), tower))
	if n > 0 {
		_ = f.towerCount.AddInt(1)
	}

	diag, ok, err := protocol.ReadDiagnostic(r)
	if err != nil {
		return d.fail(eventerr.CategoryCAL, eventerr.CodeBadDiagnostic, int64(tower), int64(r.Len()))
	}
	if ok {
		d.calEnd(tower, diag)
	}
	return d.trailing(eventerr.CategoryCAL, c.Source, r)
}

func (d *Decoder) calEnd(tower int, diag protocol.Diagnostic) {
	writeDiagnostic(d, d.cal.diagnosticWords, d.cal.diagnostic, tower, diag)
}
