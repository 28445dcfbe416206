package channelmap_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/marcmengel/larcorealg/internal/channelmap"
	"github.com/marcmengel/larcorealg/internal/geo"
	"github.com/marcmengel/larcorealg/internal/geo/layout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestEndToEnd_TwoPlanes(t *testing.T) {
	t.Parallel()
	det := layout.Uniform("e2e", 1, 1, layout.Wires(3, 5)...)
	cm := channelmap.NewStandardAlg()
	require.NoError(t, cm.Initialize(det))
	assert.Equal(t, channelmap.StateReady, cm.State())

	n, err := cm.Nchannels()
	require.NoError(t, err)
	assert.Equal(t, uint32(8), n)

	ch, err := cm.PlaneWireToChannel(0, 2, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), ch)

	ch, err = cm.PlaneWireToChannel(1, 0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), ch)

	wires, err := cm.ChannelToWire(3)
	require.NoError(t, err)
	assert.Equal(t, []geo.WireID{geo.NewWireID(0, 0, 1, 0)}, wires)

	_, err = cm.ChannelToWire(8)
	assert.ErrorIs(t, err, channelmap.ErrOutOfRange)
}

func TestInitialize_ConfigurationErrors(t *testing.T) {
	t.Parallel()

	w := geo.Wire{Start: r3.Vec{Y: -1, Z: 1}, End: r3.Vec{Y: 1, Z: 1}}
	cases := []struct {
		name string
		det  *geo.Detector
	}{
		{"NilDetector", nil},
		{"NoCryostats", &geo.Detector{Name: "empty"}},
		{"CryostatWithoutTPCs", &geo.Detector{Cryostats: []geo.Cryostat{{}}}},
		{"TPCWithoutPlanes", &geo.Detector{Cryostats: []geo.Cryostat{{TPCs: []geo.TPC{{}}}}}},
		{"ZeroWirePlane", layout.Uniform("zero", 1, 1, layout.Wires(3, 0, 2)...)},
		{"ZeroWirePlaneInLaterTPC", layout.Build("zero", []layout.CryostatSpec{
			{TPCs: []layout.TPCSpec{{Planes: layout.Wires(3)}, {Planes: layout.Wires(0)}}},
		})},
		{"CoincidentWires", &geo.Detector{Cryostats: []geo.Cryostat{{TPCs: []geo.TPC{{
			Planes: []geo.Plane{{Wires: []geo.Wire{w, w}}},
		}}}}}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cm := channelmap.NewStandardAlg()
			err := cm.Initialize(tc.det)
			require.Error(t, err)
			assert.True(t, errors.Is(err, channelmap.ErrConfiguration), "got %v", err)
			assert.Equal(t, channelmap.StateUninitialized, cm.State())

			_, err = cm.Nchannels()
			assert.ErrorIs(t, err, channelmap.ErrNotInitialized)
		})
	}
}

func TestInitialize_FailureDiscardsPreviousTable(t *testing.T) {
	t.Parallel()
	cm := channelmap.NewStandardAlg()
	require.NoError(t, cm.Initialize(irregularDetector()))

	err := cm.Initialize(layout.Uniform("bad", 1, 1, layout.Wires(0)...))
	require.ErrorIs(t, err, channelmap.ErrConfiguration)
	assert.Equal(t, channelmap.StateUninitialized, cm.State())

	_, err = cm.ChannelToWire(0)
	assert.ErrorIs(t, err, channelmap.ErrNotInitialized)
}

func TestQueriesRequireInitialize(t *testing.T) {
	t.Parallel()
	cm := channelmap.NewStandardAlg()
	pos := r3.Vec{}

	calls := map[string]func() error{
		"Nchannels":          func() error { _, err := cm.Nchannels(); return err },
		"PlaneWireToChannel": func() error { _, err := cm.PlaneWireToChannel(0, 0, 0, 0); return err },
		"ChannelToWire":      func() error { _, err := cm.ChannelToWire(0); return err },
		"View":               func() error { _, err := cm.View(0); return err },
		"SignalType":         func() error { _, err := cm.SignalType(0); return err },
		"Views":              func() error { _, err := cm.Views(); return err },
		"PlaneIDs":           func() error { _, err := cm.PlaneIDs(); return err },
		"WireCoordinate":     func() error { _, err := cm.WireCoordinate(0, 0, 0, 0, 0); return err },
		"NearestWireID":      func() error { _, err := cm.NearestWireID(pos, 0, 0, 0); return err },
		"NearestWire":        func() error { _, err := cm.NearestWire(pos, 0, 0, 0); return err },
		"FirstChannelInThis": func() error { _, err := cm.FirstChannelInThisPlane(); return err },
		"FirstChannelInNext": func() error { _, err := cm.FirstChannelInNextPlane(); return err },
		"Planes":             func() error { _, err := cm.Planes(); return err },
		"WireCount":          func() error { _, err := cm.WireCount(0, 0, 0); return err },
		"Detector":           func() error { _, err := cm.Detector(); return err },
	}
	for name, call := range calls {
		assert.ErrorIs(t, call(), channelmap.ErrNotInitialized, name)
	}
}

func TestUninitialize(t *testing.T) {
	t.Parallel()
	cm := channelmap.NewStandardAlg()

	// Safe before any Initialize.
	cm.Uninitialize()
	assert.Equal(t, channelmap.StateUninitialized, cm.State())

	require.NoError(t, cm.Initialize(irregularDetector()))
	cm.Uninitialize()
	cm.Uninitialize()
	assert.Equal(t, channelmap.StateUninitialized, cm.State())

	_, err := cm.Views()
	assert.ErrorIs(t, err, channelmap.ErrNotInitialized)

	// Reinitialize after teardown.
	require.NoError(t, cm.Initialize(irregularDetector()))
	n, err := cm.Nchannels()
	require.NoError(t, err)
	assert.Equal(t, uint32(44), n)
}

func TestBijection_IrregularHierarchy(t *testing.T) {
	t.Parallel()
	det := irregularDetector()
	cm := channelmap.NewStandardAlg()
	require.NoError(t, cm.Initialize(det))

	n, err := cm.Nchannels()
	require.NoError(t, err)
	require.Equal(t, uint32(44), n)

	seen := make(map[uint32]geo.WireID)
	var expected uint32
	forEachWire(det, func(id geo.WireID) {
		ch, err := cm.PlaneWireToChannel(id.Plane, id.Wire, id.TPC, id.Cryostat)
		require.NoError(t, err, id.String())
		// Traversal order numbering: channels are handed out 0, 1, 2, ...
		assert.Equal(t, expected, ch, id.String())
		expected++

		prev, dup := seen[ch]
		require.False(t, dup, "channel %d assigned to %s and %s", ch, prev, id)
		seen[ch] = id

		wires, err := cm.ChannelToWire(ch)
		require.NoError(t, err)
		assert.Equal(t, []geo.WireID{id}, wires)
	})
	assert.Len(t, seen, int(n))
}

func TestChannelTable_ContiguityAndMonotonicity(t *testing.T) {
	t.Parallel()
	det := irregularDetector()
	cm := channelmap.NewStandardAlg()
	require.NoError(t, cm.Initialize(det))

	this, err := cm.FirstChannelInThisPlane()
	require.NoError(t, err)
	next, err := cm.FirstChannelInNextPlane()
	require.NoError(t, err)
	n, err := cm.Nchannels()
	require.NoError(t, err)

	var prevNext uint32
	first := true
	var prevThis uint32
	_ = det.WalkPlanes(func(id geo.PlaneID, p *geo.Plane) error {
		c, tp, pl := id.Cryostat, id.TPC, id.Plane
		// "this" is the lower bound of the plane's range, "next" the upper.
		assert.Equal(t, uint32(len(p.Wires)), next[c][tp][pl]-this[c][tp][pl], id.String())
		if !first {
			assert.Equal(t, prevNext, this[c][tp][pl], "gap or overlap before %s", id)
			assert.Greater(t, this[c][tp][pl], prevThis, id.String())
		} else {
			assert.Equal(t, uint32(0), this[c][tp][pl])
		}
		first = false
		prevNext = next[c][tp][pl]
		prevThis = this[c][tp][pl]
		return nil
	})
	assert.Equal(t, n, prevNext)
}

func TestChannelTable_AccessorsReturnCopies(t *testing.T) {
	t.Parallel()
	cm := channelmap.NewStandardAlg()
	require.NoError(t, cm.Initialize(irregularDetector()))

	this, err := cm.FirstChannelInThisPlane()
	require.NoError(t, err)
	this[0][0][1] = 999

	again, err := cm.FirstChannelInThisPlane()
	require.NoError(t, err)
	assert.Equal(t, uint32(4), again[0][0][1])
}

func TestChannelTable_Deterministic(t *testing.T) {
	t.Parallel()
	a := channelmap.NewStandardAlg()
	b := channelmap.NewStandardAlg()
	require.NoError(t, a.Initialize(irregularDetector()))
	require.NoError(t, b.Initialize(irregularDetector()))

	pa, err := a.Planes()
	require.NoError(t, err)
	pb, err := b.Planes()
	require.NoError(t, err)
	if diff := cmp.Diff(pa, pb); diff != "" {
		t.Errorf("independently built tables differ (-a +b):\n%s", diff)
	}

	ta, _ := a.FirstChannelInThisPlane()
	tb, _ := b.FirstChannelInThisPlane()
	if diff := cmp.Diff(ta, tb); diff != "" {
		t.Errorf("first channel tables differ (-a +b):\n%s", diff)
	}
}

func TestPlaneWireToChannel_OutOfRange(t *testing.T) {
	t.Parallel()
	cm := channelmap.NewStandardAlg()
	require.NoError(t, cm.Initialize(irregularDetector()))

	cases := []struct {
		name                       string
		plane, wire, tpc, cryostat uint32
		what                       string
	}{
		{"WireOnePastLast", 1, 7, 0, 0, "wire"},
		{"WireFarOut", 0, 1000, 1, 1, "wire"},
		{"PlaneOutOfTPC", 1, 0, 1, 0, "plane"},
		{"TPCOutOfCryostat", 0, 0, 3, 1, "tpc"},
		{"CryostatOutOfDetector", 0, 0, 0, 2, "cryostat"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := cm.PlaneWireToChannel(tc.plane, tc.wire, tc.tpc, tc.cryostat)
			require.ErrorIs(t, err, channelmap.ErrOutOfRange)

			var rerr *channelmap.RangeError
			require.True(t, errors.As(err, &rerr))
			assert.Equal(t, tc.what, rerr.What)
		})
	}

	// The last valid wire is fine.
	ch, err := cm.PlaneWireToChannel(1, 6, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(10), ch)
}

func TestChannelToWire_Boundaries(t *testing.T) {
	t.Parallel()
	cm := channelmap.NewStandardAlg()
	require.NoError(t, cm.Initialize(irregularDetector()))

	cases := []struct {
		channel uint32
		want    geo.WireID
	}{
		{0, geo.NewWireID(0, 0, 0, 0)},
		{3, geo.NewWireID(0, 0, 0, 3)},
		{4, geo.NewWireID(0, 0, 1, 0)},
		{13, geo.NewWireID(0, 1, 0, 0)},
		{14, geo.NewWireID(1, 0, 0, 0)},
		{24, geo.NewWireID(1, 1, 0, 0)},
		{43, geo.NewWireID(1, 2, 0, 1)},
	}
	for _, tc := range cases {
		wires, err := cm.ChannelToWire(tc.channel)
		require.NoError(t, err)
		assert.Equal(t, []geo.WireID{tc.want}, wires, "channel %d", tc.channel)
	}

	for _, ch := range []uint32{44, 45, ^uint32(0)} {
		_, err := cm.ChannelToWire(ch)
		assert.ErrorIs(t, err, channelmap.ErrOutOfRange, "channel %d", ch)
		_, err = cm.View(ch)
		assert.ErrorIs(t, err, channelmap.ErrOutOfRange, "channel %d", ch)
		_, err = cm.SignalType(ch)
		assert.ErrorIs(t, err, channelmap.ErrOutOfRange, "channel %d", ch)
	}
}

func TestViewAndSignalType(t *testing.T) {
	t.Parallel()
	planes := layout.Wires(2, 2, 2)
	planes[1].SignalType = geo.Collection // declared, overrides derivation
	cm := channelmap.NewStandardAlg()
	require.NoError(t, cm.Initialize(layout.Uniform("views", 1, 2, planes...)))

	cases := []struct {
		channel uint32
		view    geo.View
		sig     geo.SigType
	}{
		{0, geo.ViewU, geo.Induction},
		{3, geo.ViewV, geo.Collection},
		{5, geo.ViewZ, geo.Collection},
		{6, geo.ViewU, geo.Induction},
		{11, geo.ViewZ, geo.Collection},
	}
	for _, tc := range cases {
		v, err := cm.View(tc.channel)
		require.NoError(t, err)
		assert.Equal(t, tc.view, v, "channel %d", tc.channel)

		s, err := cm.SignalType(tc.channel)
		require.NoError(t, err)
		assert.Equal(t, tc.sig, s, "channel %d", tc.channel)
	}
}

func TestViewsAndPlaneIDs(t *testing.T) {
	t.Parallel()
	cm := channelmap.NewStandardAlg()
	require.NoError(t, cm.Initialize(irregularDetector()))

	views, err := cm.Views()
	require.NoError(t, err)
	assert.Equal(t, []geo.View{geo.ViewU, geo.ViewV, geo.ViewZ}, views.Sorted())

	ids, err := cm.PlaneIDs()
	require.NoError(t, err)
	assert.Equal(t, 10, ids.Len())
	assert.True(t, ids.Has(geo.NewPlaneID(1, 1, 2)))
	assert.False(t, ids.Has(geo.NewPlaneID(0, 1, 1)))

	// Same set on every call.
	again, _ := cm.PlaneIDs()
	assert.Equal(t, ids.Sorted(), again.Sorted())
}

func TestPlanesAndWireCount(t *testing.T) {
	t.Parallel()
	det := irregularDetector()
	cm := channelmap.NewStandardAlg()
	require.NoError(t, cm.Initialize(det))

	planes, err := cm.Planes()
	require.NoError(t, err)
	require.Len(t, planes, 10)
	assert.Equal(t, channelmap.PlaneInfo{
		ID:           geo.NewPlaneID(1, 1, 1),
		View:         geo.ViewV,
		SignalType:   geo.Induction,
		Wires:        9,
		FirstChannel: 27,
		NextChannel:  36,
	}, planes[7])

	n, err := cm.WireCount(2, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, uint32(6), n)

	got, err := cm.Detector()
	require.NoError(t, err)
	assert.Same(t, det, got)
}
