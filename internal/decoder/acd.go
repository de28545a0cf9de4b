package decoder

import (
	"github.com/danmuck/fastmon/internal/eventerr"
	"github.com/danmuck/fastmon/internal/fields"
	"github.com/danmuck/fastmon/internal/protocol"
	"github.com/danmuck/fastmon/internal/protocol/cell"
)

type acdFields struct {
	tileCount fields.View
	tileHit   fields.View
	tilePHA   fields.View
}

func bindACDFields(b binder) acdFields {
	return acdFields{
		tileCount: b.view(FieldACDTileCount),
		tileHit:   b.view(FieldACDTileHit),
		tilePHA:   b.view(FieldACDTilePHA),
	}
}

func (d *Decoder) acdComponent(c cell.Contribution) eventerr.Code {
	r := protocol.NewReader(c.Payload)
	n, err := r.U16()
	if err != nil {
		return d.fail(eventerr.CategoryACD, eventerr.CodeTruncatedPayload, int64(c.Source), 0)
	}
	f := d.acd
	for i := 0; i < int(n); i++ {
		tile, err := protocol.ReadACDTile(r)
		if err != nil {
			return d.fail(eventerr.CategoryACD, eventerr.CodeTruncatedPayload, int64(c.Source), int64(i))
		}
		// ribbons and spare channels sit past the declared tile range
		d.skip(f.tileHit.SetUint(1, int(tile.Tile)))
		d.skip(f.tilePHA.SetUint(uint64(tile.PHA), int(tile.Tile)))
	}
	_ = f.tileCount.AddInt(int64(n))
	return d.trailing(eventerr.CategoryACD, c.Source, r)
}
