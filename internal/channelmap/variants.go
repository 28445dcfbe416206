package channelmap

import "github.com/marcmengel/larcorealg/internal/geo"

// StandardAlg gives every wire its own channel. Shared readout
// declarations are rejected.
type StandardAlg struct {
	Alg
}

// NewStandardAlg returns an uninitialized standard map.
func NewStandardAlg() *StandardAlg {
	return &StandardAlg{Alg: newAlg(KindStandard, standardReadout{})}
}

type standardReadout struct{}

func (standardReadout) readoutSource(id geo.PlaneID, p *geo.Plane) (*geo.PlaneID, error) {
	if p.SharedReadout != nil {
		return nil, configErrorf("plane %s declares shared readout with %s; use the %q channel map",
			id, *p.SharedReadout, KindShared)
	}
	return nil, nil
}

// SharedAlg honours Plane.SharedReadout: a sharing plane reads out on the
// channels of an earlier plane with the same wire count, and ChannelToWire
// reports both.
type SharedAlg struct {
	Alg
}

// NewSharedAlg returns an uninitialized shared-readout map.
func NewSharedAlg() *SharedAlg {
	return &SharedAlg{Alg: newAlg(KindShared, sharedReadout{})}
}

type sharedReadout struct{}

func (sharedReadout) readoutSource(_ geo.PlaneID, p *geo.Plane) (*geo.PlaneID, error) {
	return p.SharedReadout, nil
}
