package geo

import "fmt"

// CryostatID identifies a cryostat by its position in the detector.
type CryostatID struct {
	Cryostat uint32 `json:"cryostat"`
}

// TPCID identifies a TPC within a cryostat.
type TPCID struct {
	CryostatID
	TPC uint32 `json:"tpc"`
}

// PlaneID identifies a wire plane within a TPC.
type PlaneID struct {
	TPCID
	Plane uint32 `json:"plane"`
}

// WireID identifies a single wire within a plane.
type WireID struct {
	PlaneID
	Wire uint32 `json:"wire"`
}

// NewPlaneID builds a PlaneID from its indices.
func NewPlaneID(cryostat, tpc, plane uint32) PlaneID {
	return PlaneID{
		TPCID: TPCID{CryostatID: CryostatID{Cryostat: cryostat}, TPC: tpc},
		Plane: plane,
	}
}

// NewWireID builds a WireID from its indices.
func NewWireID(cryostat, tpc, plane, wire uint32) WireID {
	return WireID{PlaneID: NewPlaneID(cryostat, tpc, plane), Wire: wire}
}

func (id CryostatID) String() string {
	return fmt.Sprintf("C:%d", id.Cryostat)
}

func (id TPCID) String() string {
	return fmt.Sprintf("%s T:%d", id.CryostatID, id.TPC)
}

func (id PlaneID) String() string {
	return fmt.Sprintf("%s P:%d", id.TPCID, id.Plane)
}

func (id WireID) String() string {
	return fmt.Sprintf("%s W:%d", id.PlaneID, id.Wire)
}

// Less orders plane ids in hierarchy traversal order
// (cryostat-major, then TPC, then plane).
func (id PlaneID) Less(other PlaneID) bool {
	if id.Cryostat != other.Cryostat {
		return id.Cryostat < other.Cryostat
	}
	if id.TPC != other.TPC {
		return id.TPC < other.TPC
	}
	return id.Plane < other.Plane
}

// Less orders wire ids in hierarchy traversal order.
func (id WireID) Less(other WireID) bool {
	if id.PlaneID != other.PlaneID {
		return id.PlaneID.Less(other.PlaneID)
	}
	return id.Wire < other.Wire
}

// ParseWireID parses the compact "C:T:P:W" form used on the command line.
func ParseWireID(s string) (WireID, error) {
	var c, t, p, w uint32
	n, err := fmt.Sscanf(s, "%d:%d:%d:%d", &c, &t, &p, &w)
	if err != nil || n != 4 {
		return WireID{}, fmt.Errorf("invalid wire id %q, expected C:T:P:W", s)
	}
	return NewWireID(c, t, p, w), nil
}

// ParsePlaneID parses the compact "C:T:P" form.
func ParsePlaneID(s string) (PlaneID, error) {
	var c, t, p uint32
	n, err := fmt.Sscanf(s, "%d:%d:%d", &c, &t, &p)
	if err != nil || n != 3 {
		return PlaneID{}, fmt.Errorf("invalid plane id %q, expected C:T:P", s)
	}
	return NewPlaneID(c, t, p), nil
}
