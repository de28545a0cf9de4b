package decoder

import (
	"github.com/danmuck/fastmon/internal/eventerr"
	"github.com/danmuck/fastmon/internal/fields"
	"github.com/danmuck/fastmon/internal/protocol"
	"github.com/danmuck/fastmon/internal/protocol/cell"
)

type tkrHitWriter func(d *Decoder, tower int, hit protocol.TKRHit)

type tkrFields struct {
	hitCount        fields.View
	hitCountTower   fields.View
	towerCount      fields.View
	diagnosticWords fields.View
	diagnostic      fields.View

	// per-hit writers exist only for declared fields
	hit []tkrHitWriter
	// tower/layer cells whose first strip was written this event
	firstSet map[int]struct{}
}

func bindTKRFields(b binder) tkrFields {
	f := tkrFields{
		hitCount:        b.view(FieldTKRHitCount),
		hitCountTower:   b.view(FieldTKRHitCountTower),
		towerCount:      b.view(FieldTKRTowerCount),
		diagnosticWords: b.view(FieldTKRDiagnosticWords),
		diagnostic:      b.view(FieldTKRDiagnostic),
	}
	if b.has(FieldTKRHitCountTowerLayer) {
		layers := b.view(FieldTKRHitCountTowerLayer)
		f.hit = append(f.hit, func(d *Decoder, tower int, hit protocol.TKRHit) {
			d.skip(layers.AddInt(1, tower, int(hit.Layer)))
		})
	}
	if b.has(FieldTKRFirstStripTowerLayer) {
		first := b.view(FieldTKRFirstStripTowerLayer)
		set := make(map[int]struct{})
		f.firstSet = set
		f.hit = append(f.hit, func(d *Decoder, tower int, hit protocol.TKRHit) {
			key := tower<<8 | int(hit.Layer)
			if _, ok := set[key]; ok {
				cur, err := first.Int(tower, int(hit.Layer))
				if err != nil || int64(hit.Strip) >= cur {
					return
				}
			}
			if err := first.SetInt(int64(hit.Strip), tower, int(hit.Layer)); err != nil {
				d.skip(err)
				return
			}
			set[key] = struct{}{}
		})
	}
	return f
}

// tkrComponent walks the strip hits of one tower, then the optional
// diagnostic trailer.
func (d *Decoder) tkrComponent(c cell.Contribution) eventerr.Code {
	tower := int(c.Source)
	r := protocol.NewReader(c.Payload)
	n, err := r.U16()
	if err != nil {
		return d.fail(eventerr.CategoryTKR, eventerr.CodeTruncatedPayload, int64(tower), 0)
	}
	for i := 0; i < int(n); i++ {
		hit, err := protocol.ReadTKRHit(r)
		if err != nil {
			return d.fail(eventerr.CategoryTKR, eventerr.CodeTruncatedPayload, int64(tower), int64(i))
		}
		for _, w := range d.tkr.hit {
			w(d, tower, hit)
		}
	}

	f := d.tkr
	_ = f.hitCount.AddInt(int64(n))
	d.skip(f.hitCountTower.SetUint(uint64(n), tower))
	if n > 0 {
		_ = f.towerCount.AddInt(1)
	}

	diag, ok, err := protocol.ReadDiagnostic(r)
	if err != nil {
		return d.fail(eventerr.CategoryTKR, eventerr.CodeBadDiagnostic, int64(tower), int64(r.Len()))
	}
	if ok {
		d.tkrEnd(tower, diag)
	}
	return d.trailing(eventerr.CategoryTKR, c.Source, r)
}

// tkrEnd receives the diagnostic trailer after the hits are processed.
func (d *Decoder) tkrEnd(tower int, diag protocol.Diagnostic) {
	writeDiagnostic(d, d.tkr.diagnosticWords, d.tkr.diagnostic, tower, diag)
}

func writeDiagnostic(d *Decoder, words, store fields.View, tower int, diag protocol.Diagnostic) {
	d.skip(words.SetUint(uint64(len(diag.Words)), tower))
	for i, w := range diag.Words {
		if i >= protocol.DiagnosticWordsKept {
			break
		}
		d.skip(store.SetUint(uint64(w), tower, i))
	}
}
