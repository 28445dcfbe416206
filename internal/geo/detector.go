package geo

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Detector is the root of the cryostat -> TPC -> plane -> wire hierarchy.
// Slice order is declaration order and defines channel numbering order.
type Detector struct {
	Name      string
	Cryostats []Cryostat
}

// Cryostat is the top-level detector enclosure.
type Cryostat struct {
	TPCs []TPC
}

// TPC is a drift volume holding one or more wire planes.
type TPC struct {
	Planes []Plane
}

// Plane is a set of parallel wires sharing one view.
type Plane struct {
	View       View
	SignalType SigType

	// Pitch is the wire spacing in cm. It is only consulted for
	// single-wire planes; with two or more wires the pitch is measured.
	Pitch float64

	// SharedReadout, when set, names an earlier plane whose channels
	// also read out this plane's wires (wire i shares channel i).
	SharedReadout *PlaneID

	Wires []Wire
}

// Wire is a straight sense wire between two endpoints in world
// coordinates (cm).
type Wire struct {
	Start r3.Vec
	End   r3.Vec
}

// Center returns the wire midpoint.
func (w Wire) Center() r3.Vec {
	return r3.Scale(0.5, r3.Add(w.Start, w.End))
}

// Length returns the wire length.
func (w Wire) Length() float64 {
	return r3.Norm(r3.Sub(w.End, w.Start))
}

// Direction returns the unit vector from Start to End, or the zero vector
// for a zero-length wire.
func (w Wire) Direction() r3.Vec {
	d := r3.Sub(w.End, w.Start)
	if r3.Norm(d) == 0 {
		return r3.Vec{}
	}
	return r3.Unit(d)
}

// ErrDegeneratePlane is returned by PitchAxis when consecutive wires do not
// define a usable pitch direction.
var ErrDegeneratePlane = errors.New("geo: wire plane has no measurable pitch")

// PitchAxis describes the direction along which wire index grows.
// Planes are assumed normal to the drift (x) axis, so the axis lives in
// the y-z plane.
type PitchAxis struct {
	// Origin is the centre of wire 0.
	Origin r3.Vec
	// Direction is a unit vector in the y-z plane, perpendicular to the
	// wires, pointing from wire 0 towards wire 1.
	Direction r3.Vec
	// Pitch is the perpendicular wire spacing along Direction.
	Pitch float64
}

// Coordinate projects (y, z) onto the axis and returns the continuous wire
// index: 0 at wire 0, 1 at wire 1, 0.5 halfway between them. A zero pitch
// yields 0 for every position.
func (a PitchAxis) Coordinate(y, z float64) float64 {
	if a.Pitch == 0 {
		return 0
	}
	dist := (y-a.Origin.Y)*a.Direction.Y + (z-a.Origin.Z)*a.Direction.Z
	return dist / a.Pitch
}

// PitchAxis derives the projection axis for the plane. With two or more
// wires the axis is measured from the centres of wires 0 and 1; a single
// wire uses the declared Pitch and the in-plane normal to the wire.
func (p *Plane) PitchAxis() (PitchAxis, error) {
	if len(p.Wires) == 0 {
		return PitchAxis{}, fmt.Errorf("%w: plane has no wires", ErrDegeneratePlane)
	}
	w0 := p.Wires[0]
	dir := w0.Direction()
	origin := w0.Center()

	if len(p.Wires) == 1 {
		normal := r3.Vec{Y: -dir.Z, Z: dir.Y}
		if r3.Norm(normal) == 0 || p.Pitch <= 0 {
			return PitchAxis{Origin: origin}, nil
		}
		return PitchAxis{Origin: origin, Direction: r3.Unit(normal), Pitch: p.Pitch}, nil
	}

	offset := r3.Sub(p.Wires[1].Center(), origin)
	// Remove the component along the wire, then drop x.
	perp := r3.Sub(offset, r3.Scale(r3.Dot(offset, dir), dir))
	perp.X = 0
	pitch := r3.Norm(perp)
	if pitch == 0 || math.IsNaN(pitch) {
		return PitchAxis{}, fmt.Errorf("%w: wires 0 and 1 coincide in the y-z plane", ErrDegeneratePlane)
	}
	return PitchAxis{Origin: origin, Direction: r3.Scale(1/pitch, perp), Pitch: pitch}, nil
}

// NWires returns the number of wires in the plane.
func (p *Plane) NWires() int { return len(p.Wires) }

// NPlanes returns the total number of planes across all cryostats and TPCs.
func (d *Detector) NPlanes() int {
	if d == nil {
		return 0
	}
	n := 0
	for _, c := range d.Cryostats {
		for _, t := range c.TPCs {
			n += len(t.Planes)
		}
	}
	return n
}

// Plane returns the plane with the given id, or nil if the id is outside
// the hierarchy.
func (d *Detector) Plane(id PlaneID) *Plane {
	if d == nil || int(id.Cryostat) >= len(d.Cryostats) {
		return nil
	}
	c := &d.Cryostats[id.Cryostat]
	if int(id.TPC) >= len(c.TPCs) {
		return nil
	}
	t := &c.TPCs[id.TPC]
	if int(id.Plane) >= len(t.Planes) {
		return nil
	}
	return &t.Planes[id.Plane]
}

// Wire returns the wire with the given id, or nil.
func (d *Detector) Wire(id WireID) *Wire {
	p := d.Plane(id.PlaneID)
	if p == nil || int(id.Wire) >= len(p.Wires) {
		return nil
	}
	return &p.Wires[id.Wire]
}

// WalkPlanes calls fn for every plane in traversal order. It stops at the
// first error and returns it.
func (d *Detector) WalkPlanes(fn func(id PlaneID, p *Plane) error) error {
	if d == nil {
		return nil
	}
	for c := range d.Cryostats {
		for t := range d.Cryostats[c].TPCs {
			planes := d.Cryostats[c].TPCs[t].Planes
			for p := range planes {
				if err := fn(NewPlaneID(uint32(c), uint32(t), uint32(p)), &planes[p]); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
