package channelmap

import (
	"github.com/marcmengel/larcorealg/internal/geo"
	"gonum.org/v1/gonum/spatial/r3"
)

// ChannelMap is the query surface shared by every variant.
//
// All methods other than Initialize, Uninitialize, Kind and State return
// ErrNotInitialized until Initialize has succeeded.
type ChannelMap interface {
	// Kind returns the variant name the map was registered under.
	Kind() Kind
	// State reports whether the map is ready for queries.
	State() State

	// Initialize numbers det and makes the map ready. det is borrowed and
	// must stay unchanged until Uninitialize. On error the map is left
	// uninitialized.
	Initialize(det *geo.Detector) error
	// Uninitialize discards all derived state. It is idempotent.
	Uninitialize()

	Nchannels() (uint32, error)
	PlaneWireToChannel(plane, wire, tpc, cryostat uint32) (uint32, error)
	ChannelToWire(channel uint32) ([]geo.WireID, error)
	View(channel uint32) (geo.View, error)
	SignalType(channel uint32) (geo.SigType, error)
	Views() (geo.ViewSet, error)
	PlaneIDs() (geo.PlaneIDSet, error)

	WireCoordinate(yPos, zPos float64, plane, tpc, cryostat uint32) (float64, error)
	NearestWireID(worldPos r3.Vec, plane, tpc, cryostat uint32) (geo.WireID, error)
	NearestWire(worldPos r3.Vec, plane, tpc, cryostat uint32) (uint32, error)

	FirstChannelInThisPlane() ([][][]uint32, error)
	FirstChannelInNextPlane() ([][][]uint32, error)
	Planes() ([]PlaneInfo, error)
	WireCount(plane, tpc, cryostat uint32) (uint32, error)
	Detector() (*geo.Detector, error)
}

// State is the lifecycle state of a ChannelMap.
type State int

const (
	StateUninitialized State = iota
	StateReady
)

func (s State) String() string {
	if s == StateReady {
		return "ready"
	}
	return "uninitialized"
}

// PlaneInfo summarises one plane of the channel table.
type PlaneInfo struct {
	ID           geo.PlaneID  `json:"id"`
	View         geo.View     `json:"view"`
	SignalType   geo.SigType  `json:"signal_type"`
	Wires        uint32       `json:"wires"`
	FirstChannel uint32       `json:"first_channel"`
	NextChannel  uint32       `json:"next_channel"`
	SharedFrom   *geo.PlaneID `json:"shared_from,omitempty"`
}
