package protocol

import "fmt"

// Datagram types.
const (
	DatagramContext uint32 = 1
	DatagramEvent   uint32 = 2
)

// ComponentID selects a contribution handler.
type ComponentID uint16

const (
	ComponentGEM ComponentID = 1
	ComponentACD ComponentID = 2
	ComponentTKR ComponentID = 3
	ComponentCAL ComponentID = 4
)

func (c ComponentID) String() string {
	switch c {
	case ComponentGEM:
		return "GEM"
	case ComponentACD:
		return "ACD"
	case ComponentTKR:
		return "TKR"
	case ComponentCAL:
		return "CAL"
	default:
		return fmt.Sprintf("component(%d)", uint16(c))
	}
}

// Bit is the component's flag in the event summary mask.
func (c ComponentID) Bit() uint32 {
	if c >= 32 {
		return 0
	}
	return 1 << uint32(c)
}

// Detector geometry.
const (
	NumTowers    = 16
	TKRLayerEnds = 36
	CALLayers    = 8
	CALColumns   = 12
	CALEnds      = 2
	CALRanges    = 4
	ACDTiles     = 108
	// DiagnosticWordsKept bounds how many diagnostic words are stored per tower.
	DiagnosticWordsKept = 8
)

const (
	EventHeaderLen   = 20
	GEMLen           = 40
	TKRHitLen        = 3
	CALLogLen        = 8
	ACDTileLen       = 4
	DiagnosticMarker = 0xD1A6
)

// EventHeader opens every event datagram payload.
type EventHeader struct {
	Summary   uint32
	Ticks     uint32
	Hack      uint32
	HackTicks uint32
	Sequence  uint32
}

// GEM is the trigger primitive block.
type GEM struct {
	ConditionSummary uint32
	TKRVector        uint32
	ROIVector        uint32
	CalLEVector      uint32
	CalHEVector      uint32
	CNOVector        uint32
	TriggerTime      uint32
	OnePPSTime       uint32
	LiveTime         uint32
	Discarded        uint32
}

type TKRHit struct {
	Layer uint8
	Strip uint16
}

type CALEnd struct {
	Range uint8
	Value uint16
}

type CALLog struct {
	Layer    uint8
	Column   uint8
	Negative CALEnd
	Positive CALEnd
}

// End returns the negative (0) or positive (1) end of the log.
func (l CALLog) End(i int) CALEnd {
	if i == 0 {
		return l.Negative
	}
	return l.Positive
}

type ACDTile struct {
	Tile uint16
	PHA  uint16
}

// Diagnostic is the optional trailer of a TKR or CAL contribution.
type Diagnostic struct {
	Words []uint32
}

// Context is the run-context block: open/close actions, run identity, GEM
// scalers and the current/previous time tones.
type Context struct {
	Open     ContextOpen
	Close    ContextClose
	Run      ContextRun
	Scalers  Scalers
	Current  TimeTone
	Previous TimeTone
}

type ContextOpen struct {
	Mode        uint32
	Datagrams   uint32
	ModeChanges uint32
	Action      uint32
	Reason      uint32
	Crate       uint32
}

type ContextClose struct {
	Action uint32
	Reason uint32
}

type ContextRun struct {
	Platform  uint32
	Origin    uint32
	ID        uint32
	StartedAt uint32
}

type Scalers struct {
	Elapsed   uint64
	Livetime  uint64
	Prescaled uint64
	Discarded uint64
	Sequence  uint64
	Deadzone  uint64
}

type TimeTone struct {
	Incomplete      uint32
	TimeSecs        uint32
	Flywheeling     uint32
	SourceGPS       uint32
	MissingCPUPPS   uint32
	MissingLATPPS   uint32
	MissingTimeTone uint32
	Hacks           uint32
	Tics            uint32
}

// ContextLen is the encoded size of Context.
const ContextLen = 6*4 + 2*4 + 4*4 + 6*8 + 2*9*4
