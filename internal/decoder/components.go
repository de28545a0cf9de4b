package decoder

import (
	"github.com/danmuck/fastmon/internal/eventerr"
	"github.com/danmuck/fastmon/internal/protocol"
	"github.com/danmuck/fastmon/internal/protocol/cell"
)

// component is one variant of the contribution dispatch table.
type component struct {
	id       protocol.ComponentID
	known    bool
	category eventerr.Category
	decode   func(d *Decoder, c cell.Contribution) eventerr.Code
}

func (d *Decoder) buildComponents() {
	d.components[protocol.ComponentGEM] = component{id: protocol.ComponentGEM, known: true, category: eventerr.CategoryGEM, decode: (*Decoder).gemComponent}
	d.components[protocol.ComponentACD] = component{id: protocol.ComponentACD, known: true, category: eventerr.CategoryACD, decode: (*Decoder).acdComponent}
	d.components[protocol.ComponentTKR] = component{id: protocol.ComponentTKR, known: true, category: eventerr.CategoryTKR, decode: (*Decoder).tkrComponent}
	d.components[protocol.ComponentCAL] = component{id: protocol.ComponentCAL, known: true, category: eventerr.CategoryCAL, decode: (*Decoder).calComponent}
	d.unknown = component{category: eventerr.CategoryUnrecognizedComponent, decode: (*Decoder).unknownComponent}
}

// variant selects the handler for a component id. Ids outside the table map
// to the unknown variant.
func (d *Decoder) variant(id uint16) component {
	if int(id) < len(d.components) && d.components[id].known {
		return d.components[id]
	}
	return d.unknown
}

func (d *Decoder) componentNames() []string {
	var out []string
	for _, v := range d.components {
		if v.known {
			out = append(out, v.id.String())
		}
	}
	return out
}

func (d *Decoder) unknownComponent(c cell.Contribution) eventerr.Code {
	d.log.Debug().Uint16("component", c.Component).Uint16("source", c.Source).Int("bytes", len(c.Payload)).Msg("unrecognized component")
	return d.fail(eventerr.CategoryUnrecognizedComponent, eventerr.CodeUnrecognizedComponent, int64(c.Component), int64(c.Source))
}

// trailing reports bytes left after a component was fully decoded.
func (d *Decoder) trailing(cat eventerr.Category, source uint16, r *protocol.Reader) eventerr.Code {
	if r.Len() == 0 {
		return eventerr.OK
	}
	return d.fail(cat, eventerr.CodeTrailingBytes, int64(source), int64(r.Len()))
}
