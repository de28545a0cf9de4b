package protocol

import (
	"github.com/danmuck/fastmon/internal/protocol/cell"
)

// EventBuilder assembles one event datagram. Component helpers set the
// matching summary bit; Raw leaves the summary alone.
type EventBuilder struct {
	header   EventHeader
	contribs []cell.Contribution
}

func NewEvent(h EventHeader) *EventBuilder {
	return &EventBuilder{header: h}
}

func (b *EventBuilder) add(id ComponentID, source uint16, payload []byte) *EventBuilder {
	b.header.Summary |= id.Bit()
	b.contribs = append(b.contribs, cell.Contribution{Component: uint16(id), Source: source, Payload: payload})
	return b
}

func (b *EventBuilder) GEM(g GEM) *EventBuilder {
	return b.add(ComponentGEM, 0, EncodeGEM(g))
}

func (b *EventBuilder) TKR(tower uint16, hits []TKRHit, diag *Diagnostic) *EventBuilder {
	return b.add(ComponentTKR, tower, EncodeTKR(hits, diag))
}

func (b *EventBuilder) CAL(tower uint16, logs []CALLog, diag *Diagnostic) *EventBuilder {
	return b.add(ComponentCAL, tower, EncodeCAL(logs, diag))
}

func (b *EventBuilder) ACD(tiles []ACDTile) *EventBuilder {
	return b.add(ComponentACD, 0, EncodeACD(tiles))
}

// Raw appends a contribution as given, for ids or payloads the helpers
// cannot express.
func (b *EventBuilder) Raw(component, source uint16, payload []byte) *EventBuilder {
	b.contribs = append(b.contribs, cell.Contribution{Component: component, Source: source, Payload: payload})
	return b
}

func (b *EventBuilder) Header() EventHeader {
	return b.header
}

func (b *EventBuilder) Datagram() cell.Datagram {
	payload := append(EncodeEventHeader(b.header), cell.EncodeContributions(b.contribs)...)
	return cell.Datagram{Type: DatagramEvent, Payload: payload}
}

// ContextDatagram wraps a run context as an in-band datagram.
func ContextDatagram(ctx Context) cell.Datagram {
	return cell.Datagram{Type: DatagramContext, Payload: EncodeContext(ctx)}
}

// Record encodes the buffer of one readout record: an optional context
// datagram followed by the event datagram.
func (b *EventBuilder) Record(ctx *Context) []byte {
	var ds []cell.Datagram
	if ctx != nil {
		ds = append(ds, ContextDatagram(*ctx))
	}
	ds = append(ds, b.Datagram())
	return cell.EncodeDatagrams(ds)
}
