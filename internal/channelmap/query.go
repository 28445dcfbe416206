package channelmap

import (
	"math"
	"sort"

	"github.com/marcmengel/larcorealg/internal/geo"
	"gonum.org/v1/gonum/spatial/r3"
)

func (a *Alg) ready() (*table, error) {
	if a.tbl == nil {
		return nil, ErrNotInitialized
	}
	return a.tbl, nil
}

// plane resolves (cryostat, tpc, plane) indices to the cached entry.
func (t *table) plane(plane, tpc, cryostat uint32) (*planeEntry, error) {
	if int(cryostat) >= len(t.planes) {
		return nil, &RangeError{What: "cryostat", Value: uint64(cryostat), Limit: uint64(len(t.planes))}
	}
	tpcs := t.planes[cryostat]
	if int(tpc) >= len(tpcs) {
		return nil, &RangeError{What: "tpc", Value: uint64(tpc), Limit: uint64(len(tpcs)),
			In: geo.CryostatID{Cryostat: cryostat}.String()}
	}
	planes := tpcs[tpc]
	if int(plane) >= len(planes) {
		return nil, &RangeError{What: "plane", Value: uint64(plane), Limit: uint64(len(planes)),
			In: geo.TPCID{CryostatID: geo.CryostatID{Cryostat: cryostat}, TPC: tpc}.String()}
	}
	return &planes[plane], nil
}

// rangeOf finds the owning range containing channel by binary search over
// the range boundaries, which increase strictly in traversal order.
func (t *table) rangeOf(channel uint32) (*channelRange, error) {
	if channel >= t.nchannels {
		return nil, &RangeError{What: "channel", Value: uint64(channel), Limit: uint64(t.nchannels)}
	}
	i := sort.Search(len(t.ranges), func(i int) bool { return t.ranges[i].next > channel })
	return &t.ranges[i], nil
}

// Nchannels returns the number of distinct channels.
func (a *Alg) Nchannels() (uint32, error) {
	t, err := a.ready()
	if err != nil {
		return 0, err
	}
	return t.nchannels, nil
}

// PlaneWireToChannel returns the channel reading out the given wire.
func (a *Alg) PlaneWireToChannel(plane, wire, tpc, cryostat uint32) (uint32, error) {
	t, err := a.ready()
	if err != nil {
		return 0, err
	}
	e, err := t.plane(plane, tpc, cryostat)
	if err != nil {
		return 0, err
	}
	if wire >= e.wires {
		return 0, &RangeError{What: "wire", Value: uint64(wire), Limit: uint64(e.wires), In: e.id.String()}
	}
	return e.first + wire, nil
}

// ChannelToWire returns every wire read out on channel, in traversal order.
// Without shared readout the result has exactly one element.
func (a *Alg) ChannelToWire(channel uint32) ([]geo.WireID, error) {
	t, err := a.ready()
	if err != nil {
		return nil, err
	}
	r, err := t.rangeOf(channel)
	if err != nil {
		return nil, err
	}
	offset := channel - r.first
	wires := make([]geo.WireID, len(r.readers))
	for i, e := range r.readers {
		wires[i] = geo.WireID{PlaneID: e.id, Wire: offset}
	}
	return wires, nil
}

// View returns the view of the plane owning channel.
func (a *Alg) View(channel uint32) (geo.View, error) {
	t, err := a.ready()
	if err != nil {
		return geo.ViewUnknown, err
	}
	r, err := t.rangeOf(channel)
	if err != nil {
		return geo.ViewUnknown, err
	}
	return r.readers[0].view, nil
}

// SignalType returns the signal type of the plane owning channel.
func (a *Alg) SignalType(channel uint32) (geo.SigType, error) {
	t, err := a.ready()
	if err != nil {
		return geo.SigTypeUnknown, err
	}
	r, err := t.rangeOf(channel)
	if err != nil {
		return geo.SigTypeUnknown, err
	}
	return r.readers[0].sig, nil
}

// Views returns the set of views in the detector. The set is shared and
// must not be modified.
func (a *Alg) Views() (geo.ViewSet, error) {
	t, err := a.ready()
	if err != nil {
		return nil, err
	}
	return t.views, nil
}

// PlaneIDs returns the set of plane ids in the detector. The set is shared
// and must not be modified.
func (a *Alg) PlaneIDs() (geo.PlaneIDSet, error) {
	t, err := a.ready()
	if err != nil {
		return nil, err
	}
	return t.planeIDs, nil
}

// WireCoordinate returns the continuous wire index of (yPos, zPos) in the
// given plane: k at wire k, k+0.5 halfway to wire k+1. The value is not
// rounded or limited to the plane's wires.
func (a *Alg) WireCoordinate(yPos, zPos float64, plane, tpc, cryostat uint32) (float64, error) {
	t, err := a.ready()
	if err != nil {
		return 0, err
	}
	e, err := t.plane(plane, tpc, cryostat)
	if err != nil {
		return 0, err
	}
	return e.axis.Coordinate(yPos, zPos), nil
}

// NearestWireID returns the wire closest to worldPos. Positions beyond the
// plane saturate to the first or last wire.
func (a *Alg) NearestWireID(worldPos r3.Vec, plane, tpc, cryostat uint32) (geo.WireID, error) {
	t, err := a.ready()
	if err != nil {
		return geo.WireID{}, err
	}
	e, err := t.plane(plane, tpc, cryostat)
	if err != nil {
		return geo.WireID{}, err
	}
	return geo.WireID{PlaneID: e.id, Wire: nearest(e.axis.Coordinate(worldPos.Y, worldPos.Z), e.wires)}, nil
}

// NearestWire is NearestWireID returning only the wire index.
func (a *Alg) NearestWire(worldPos r3.Vec, plane, tpc, cryostat uint32) (uint32, error) {
	id, err := a.NearestWireID(worldPos, plane, tpc, cryostat)
	if err != nil {
		return 0, err
	}
	return id.Wire, nil
}

// nearest rounds coord half away from zero and clamps to [0, wires-1].
func nearest(coord float64, wires uint32) uint32 {
	w := math.Round(coord)
	switch {
	case math.IsNaN(w) || w <= 0:
		return 0
	case w >= float64(wires-1):
		return wires - 1
	}
	return uint32(w)
}

// FirstChannelInThisPlane returns a copy of the per-plane first channel
// table, indexed [cryostat][tpc][plane].
func (a *Alg) FirstChannelInThisPlane() ([][][]uint32, error) {
	t, err := a.ready()
	if err != nil {
		return nil, err
	}
	return copyTable(t.firstThis), nil
}

// FirstChannelInNextPlane returns a copy of the table holding, for each
// plane, the first channel after its range.
func (a *Alg) FirstChannelInNextPlane() ([][][]uint32, error) {
	t, err := a.ready()
	if err != nil {
		return nil, err
	}
	return copyTable(t.firstNext), nil
}

func copyTable(src [][][]uint32) [][][]uint32 {
	out := make([][][]uint32, len(src))
	for c := range src {
		out[c] = make([][]uint32, len(src[c]))
		for t := range src[c] {
			out[c][t] = append([]uint32(nil), src[c][t]...)
		}
	}
	return out
}

// Planes lists every plane of the table in traversal order.
func (a *Alg) Planes() ([]PlaneInfo, error) {
	t, err := a.ready()
	if err != nil {
		return nil, err
	}
	out := make([]PlaneInfo, 0, t.planeIDs.Len())
	for c := range t.planes {
		for tp := range t.planes[c] {
			for p := range t.planes[c][tp] {
				e := &t.planes[c][tp][p]
				info := PlaneInfo{
					ID:           e.id,
					View:         e.view,
					SignalType:   e.sig,
					Wires:        e.wires,
					FirstChannel: e.first,
					NextChannel:  e.next,
				}
				if e.sharedFrom != nil {
					src := *e.sharedFrom
					info.SharedFrom = &src
				}
				out = append(out, info)
			}
		}
	}
	return out, nil
}

// WireCount returns the number of wires in the given plane.
func (a *Alg) WireCount(plane, tpc, cryostat uint32) (uint32, error) {
	t, err := a.ready()
	if err != nil {
		return 0, err
	}
	e, err := t.plane(plane, tpc, cryostat)
	if err != nil {
		return 0, err
	}
	return e.wires, nil
}

// Detector returns the borrowed hierarchy the map was initialized with.
func (a *Alg) Detector() (*geo.Detector, error) {
	t, err := a.ready()
	if err != nil {
		return nil, err
	}
	return t.det, nil
}
