package channelmap

import (
	"math"

	"github.com/marcmengel/larcorealg/internal/geo"
	"github.com/marcmengel/larcorealg/internal/monitoring"
)

// readoutHook is the per-variant step of Initialize. It is called once per
// plane in traversal order and returns the plane whose channels read this
// plane out, or nil when the plane gets channels of its own.
type readoutHook interface {
	readoutSource(id geo.PlaneID, p *geo.Plane) (*geo.PlaneID, error)
}

// planeEntry is the cached per-plane state used by queries.
type planeEntry struct {
	id         geo.PlaneID
	view       geo.View
	sig        geo.SigType
	wires      uint32
	first      uint32
	next       uint32
	axis       geo.PitchAxis
	sharedFrom *geo.PlaneID
}

// channelRange is a contiguous block of channels owned by one plane.
// readers lists the owner first, then every sharing plane, in traversal
// order.
type channelRange struct {
	first   uint32
	next    uint32
	readers []*planeEntry
}

// table is everything Initialize derives. It is built off to the side and
// swapped in only when complete.
type table struct {
	det       *geo.Detector
	nchannels uint32
	firstThis [][][]uint32
	firstNext [][][]uint32
	planes    [][][]planeEntry
	ranges    []channelRange
	views     geo.ViewSet
	planeIDs  geo.PlaneIDSet
}

// Alg implements ChannelMap. Variants embed it and supply a readoutHook;
// the channel table itself is private to Alg.
type Alg struct {
	kind Kind
	hook readoutHook
	tbl  *table
}

func newAlg(kind Kind, hook readoutHook) Alg {
	return Alg{kind: kind, hook: hook}
}

// Kind returns the variant name.
func (a *Alg) Kind() Kind { return a.kind }

// State reports whether the map is ready.
func (a *Alg) State() State {
	if a.tbl == nil {
		return StateUninitialized
	}
	return StateReady
}

// Initialize walks det in traversal order and builds the channel table.
func (a *Alg) Initialize(det *geo.Detector) error {
	a.Uninitialize()

	tbl, err := a.build(det)
	if err != nil {
		return err
	}
	a.tbl = tbl

	monitoring.Logf("[channelmap] %s map initialized for %q: %d cryostats, %d planes, %d channels, %d views",
		a.kind, det.Name, len(det.Cryostats), tbl.planeIDs.Len(), tbl.nchannels, tbl.views.Len())
	return nil
}

// Uninitialize drops the table and the borrowed detector.
func (a *Alg) Uninitialize() {
	if a.tbl == nil {
		return
	}
	monitoring.Debugf("[channelmap] %s map uninitialized", a.kind)
	a.tbl = nil
}

func (a *Alg) build(det *geo.Detector) (*table, error) {
	if det == nil || len(det.Cryostats) == 0 {
		return nil, configErrorf("detector has no cryostats")
	}

	tbl := &table{
		det:       det,
		firstThis: make([][][]uint32, len(det.Cryostats)),
		firstNext: make([][][]uint32, len(det.Cryostats)),
		planes:    make([][][]planeEntry, len(det.Cryostats)),
		views:     make(geo.ViewSet),
		planeIDs:  make(geo.PlaneIDSet),
	}
	// Owning plane -> index into tbl.ranges.
	owned := make(map[geo.PlaneID]int)
	var total uint64

	for c, cryo := range det.Cryostats {
		if len(cryo.TPCs) == 0 {
			return nil, configErrorf("cryostat %d has no TPCs", c)
		}
		tbl.firstThis[c] = make([][]uint32, len(cryo.TPCs))
		tbl.firstNext[c] = make([][]uint32, len(cryo.TPCs))
		tbl.planes[c] = make([][]planeEntry, len(cryo.TPCs))

		for t, tpc := range cryo.TPCs {
			if len(tpc.Planes) == 0 {
				return nil, configErrorf("TPC %d in cryostat %d has no planes", t, c)
			}
			tbl.firstThis[c][t] = make([]uint32, len(tpc.Planes))
			tbl.firstNext[c][t] = make([]uint32, len(tpc.Planes))
			tbl.planes[c][t] = make([]planeEntry, len(tpc.Planes))

			for p := range tpc.Planes {
				plane := &tpc.Planes[p]
				id := geo.NewPlaneID(uint32(c), uint32(t), uint32(p))
				if len(plane.Wires) == 0 {
					return nil, configErrorf("plane %s has no wires", id)
				}
				if uint64(len(plane.Wires)) >= math.MaxUint32 {
					return nil, configErrorf("plane %s has too many wires (%d)", id, len(plane.Wires))
				}
				axis, err := plane.PitchAxis()
				if err != nil {
					return nil, configErrorf("plane %s: %v", id, err)
				}

				entry := &tbl.planes[c][t][p]
				*entry = planeEntry{
					id:    id,
					view:  plane.View,
					sig:   signalTypeOf(plane, p, len(tpc.Planes)),
					wires: uint32(len(plane.Wires)),
					axis:  axis,
				}

				src, err := a.hook.readoutSource(id, plane)
				if err != nil {
					return nil, err
				}
				if src == nil {
					if total+uint64(entry.wires) >= math.MaxUint32 {
						return nil, configErrorf("detector exceeds %d channels at plane %s", uint32(math.MaxUint32), id)
					}
					entry.first = uint32(total)
					entry.next = uint32(total) + entry.wires
					total += uint64(entry.wires)
					owned[id] = len(tbl.ranges)
					tbl.ranges = append(tbl.ranges, channelRange{
						first:   entry.first,
						next:    entry.next,
						readers: []*planeEntry{entry},
					})
				} else {
					idx, err := sharedRange(tbl, owned, id, entry, *src)
					if err != nil {
						return nil, err
					}
					owner := tbl.ranges[idx].readers[0]
					shared := owner.id
					entry.sharedFrom = &shared
					entry.first = owner.first
					entry.next = owner.next
					tbl.ranges[idx].readers = append(tbl.ranges[idx].readers, entry)
				}

				tbl.firstThis[c][t][p] = entry.first
				tbl.firstNext[c][t][p] = entry.next
				tbl.views[entry.view] = struct{}{}
				tbl.planeIDs[id] = struct{}{}
			}
		}
	}

	tbl.nchannels = uint32(total)
	return tbl, nil
}

// sharedRange validates a shared-readout declaration and returns the index
// of the owner's channel range.
func sharedRange(tbl *table, owned map[geo.PlaneID]int, id geo.PlaneID, entry *planeEntry, src geo.PlaneID) (int, error) {
	if !src.Less(id) {
		return 0, configErrorf("plane %s shares readout with %s, which does not precede it", id, src)
	}
	idx, ok := owned[src]
	if !ok {
		if tbl.det.Plane(src) == nil {
			return 0, configErrorf("plane %s shares readout with unknown plane %s", id, src)
		}
		return 0, configErrorf("plane %s shares readout with %s, which is itself shared", id, src)
	}
	if owner := tbl.ranges[idx].readers[0]; owner.wires != entry.wires {
		return 0, configErrorf("plane %s has %d wires but shares readout with %s which has %d",
			id, entry.wires, src, owner.wires)
	}
	return idx, nil
}

// signalTypeOf returns the declared signal type, or derives one: the last
// plane of a TPC collects, the others induce.
func signalTypeOf(p *geo.Plane, index, nplanes int) geo.SigType {
	if p.SignalType != geo.SigTypeUnknown {
		return p.SignalType
	}
	if index == nplanes-1 {
		return geo.Collection
	}
	return geo.Induction
}
