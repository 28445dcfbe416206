// Package layout builds regular wire planes into a geo.Detector.
//
// Real detectors describe every wire individually; most of them are
// nonetheless regular (constant pitch, constant angle), so a handful of
// numbers per plane is enough to reproduce them for tools and tests.
package layout

import (
	"math"

	"github.com/marcmengel/larcorealg/internal/geo"
	"gonum.org/v1/gonum/spatial/r3"
)

// PlaneSpec describes a regular plane of parallel wires.
type PlaneSpec struct {
	View       geo.View
	SignalType geo.SigType
	Wires      int
	// Pitch is the perpendicular wire spacing (cm).
	Pitch float64
	// AngleDeg is the wire angle from the +y axis towards +z, in degrees.
	// 0 gives vertical wires and a pitch axis along +z.
	AngleDeg float64
	// Origin is the centre of wire 0.
	Origin r3.Vec
	// Length is the wire length (cm).
	Length float64
	// SharedReadout is copied onto the built plane.
	SharedReadout *geo.PlaneID
}

// TPCSpec lists the planes of one TPC in numbering order.
type TPCSpec struct {
	Planes []PlaneSpec
}

// CryostatSpec lists the TPCs of one cryostat in numbering order.
type CryostatSpec struct {
	TPCs []TPCSpec
}

// WireDirection returns the unit wire direction for an angle in degrees.
func WireDirection(angleDeg float64) r3.Vec {
	rad := angleDeg * math.Pi / 180
	return r3.Vec{Y: math.Cos(rad), Z: math.Sin(rad)}
}

// PitchDirection returns the unit direction along which wire index grows.
func PitchDirection(angleDeg float64) r3.Vec {
	rad := angleDeg * math.Pi / 180
	return r3.Vec{Y: -math.Sin(rad), Z: math.Cos(rad)}
}

// WireCenter returns the centre of wire k of the plane.
func (s PlaneSpec) WireCenter(k float64) r3.Vec {
	return r3.Add(s.Origin, r3.Scale(k*s.Pitch, PitchDirection(s.AngleDeg)))
}

// Plane builds the plane described by the spec.
func (s PlaneSpec) Plane() geo.Plane {
	dir := WireDirection(s.AngleDeg)
	half := r3.Scale(s.Length/2, dir)

	wires := make([]geo.Wire, 0, s.Wires)
	for k := 0; k < s.Wires; k++ {
		c := s.WireCenter(float64(k))
		wires = append(wires, geo.Wire{Start: r3.Sub(c, half), End: r3.Add(c, half)})
	}

	p := geo.Plane{
		View:       s.View,
		SignalType: s.SignalType,
		Pitch:      s.Pitch,
		Wires:      wires,
	}
	if s.SharedReadout != nil {
		id := *s.SharedReadout
		p.SharedReadout = &id
	}
	return p
}

// Build assembles a detector from cryostat specs, preserving order.
func Build(name string, cryostats []CryostatSpec) *geo.Detector {
	det := &geo.Detector{Name: name, Cryostats: make([]geo.Cryostat, 0, len(cryostats))}
	for _, cs := range cryostats {
		cryo := geo.Cryostat{TPCs: make([]geo.TPC, 0, len(cs.TPCs))}
		for _, ts := range cs.TPCs {
			tpc := geo.TPC{Planes: make([]geo.Plane, 0, len(ts.Planes))}
			for _, ps := range ts.Planes {
				tpc.Planes = append(tpc.Planes, ps.Plane())
			}
			cryo.TPCs = append(cryo.TPCs, tpc)
		}
		det.Cryostats = append(det.Cryostats, cryo)
	}
	return det
}

// Uniform builds nCryostats x nTPCs identical TPCs, each holding planes.
func Uniform(name string, nCryostats, nTPCs int, planes ...PlaneSpec) *geo.Detector {
	cryostats := make([]CryostatSpec, nCryostats)
	for c := range cryostats {
		tpcs := make([]TPCSpec, nTPCs)
		for t := range tpcs {
			tpcs[t] = TPCSpec{Planes: append([]PlaneSpec(nil), planes...)}
		}
		cryostats[c] = CryostatSpec{TPCs: tpcs}
	}
	return Build(name, cryostats)
}

// Wires returns plane specs with the given wire counts, vertical wires at
// 0.3 cm pitch and views assigned U, V, Z... in order. It is a shorthand
// for tests and examples that only care about counts.
func Wires(counts ...int) []PlaneSpec {
	views := []geo.View{geo.ViewU, geo.ViewV, geo.ViewZ}
	specs := make([]PlaneSpec, len(counts))
	for i, n := range counts {
		v := geo.ViewUnknown
		if i < len(views) {
			v = views[i]
		}
		specs[i] = PlaneSpec{
			View:   v,
			Wires:  n,
			Pitch:  0.3,
			Origin: r3.Vec{X: -0.3 * float64(i)},
			Length: 100,
		}
	}
	return specs
}
