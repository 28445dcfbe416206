package chanmapdb

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/marcmengel/larcorealg/internal/channelmap"
	"github.com/marcmengel/larcorealg/internal/geo"
	"github.com/marcmengel/larcorealg/internal/geo/layout"
	"github.com/marcmengel/larcorealg/internal/monitoring"
	"github.com/marcmengel/larcorealg/internal/timeutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	os.Exit(m.Run())
}

func setupTestDB(t *testing.T) (*DB, *timeutil.MockClock) {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "chanmap.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	clock := timeutil.NewMockClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	db.SetClock(clock)
	return db, clock
}

func sharedMap(t *testing.T) channelmap.ChannelMap {
	t.Helper()
	owner := geo.NewPlaneID(0, 0, 0)
	sharing := layout.Wires(4, 4, 6)
	sharing[0].SharedReadout = &owner
	det := layout.Build("pair", []layout.CryostatSpec{{TPCs: []layout.TPCSpec{
		{Planes: layout.Wires(4, 4, 6)},
		{Planes: sharing},
	}}})

	cm := channelmap.NewSharedAlg()
	require.NoError(t, cm.Initialize(det))
	return cm
}

func standardMap(t *testing.T, name string, counts ...int) channelmap.ChannelMap {
	t.Helper()
	cm := channelmap.NewStandardAlg()
	require.NoError(t, cm.Initialize(layout.Uniform(name, 1, 2, layout.Wires(counts...)...)))
	return cm
}

func TestOpenDB_Migrates(t *testing.T) {
	db, _ := setupTestDB(t)

	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	// Re-running is a no-op.
	require.NoError(t, db.MigrateUp())

	require.NoError(t, db.MigrateDown())
	version, _, err = db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)

	_, err = db.Exec(`SELECT 1 FROM channel_map_snapshots`)
	assert.Error(t, err, "table should be gone after down migration")
}

func TestInsertAndGetSnapshot(t *testing.T) {
	db, clock := setupTestDB(t)
	cm := sharedMap(t)

	snap, err := NewSnapshot(cm)
	require.NoError(t, err)
	snap.Description = "baseline"
	require.NoError(t, db.InsertSnapshot(snap))

	assert.NotEmpty(t, snap.SnapshotID)
	assert.Equal(t, clock.Now().UnixNano(), snap.CreatedAtNs)

	got, err := db.GetSnapshot(snap.SnapshotID)
	require.NoError(t, err)
	assert.Equal(t, snap, got)
	assert.Empty(t, Diff(snap, got))

	assert.Equal(t, "pair", got.Detector)
	assert.Equal(t, channelmap.KindShared, got.Kind)
	assert.Equal(t, uint32(24), got.NChannels)
	require.Len(t, got.Planes, 6)
	require.NotNil(t, got.Planes[3].SharedFrom)
	assert.Equal(t, geo.NewPlaneID(0, 0, 0), *got.Planes[3].SharedFrom)
	assert.Equal(t, geo.Collection, got.Planes[2].SignalType)
}

func TestGetSnapshot_NotFound(t *testing.T) {
	db, _ := setupTestDB(t)

	_, err := db.GetSnapshot("missing")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)

	_, err = db.LatestSnapshot("nobody")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)

	assert.ErrorIs(t, db.DeleteSnapshot("missing"), ErrSnapshotNotFound)
}

func TestLatestAndListSnapshots(t *testing.T) {
	db, clock := setupTestDB(t)

	var ids []string
	for _, counts := range [][]int{{2, 3}, {2, 4}, {2, 5}} {
		snap, err := NewSnapshot(standardMap(t, "alpha", counts...))
		require.NoError(t, err)
		require.NoError(t, db.InsertSnapshot(snap))
		ids = append(ids, snap.SnapshotID)
		clock.Advance(time.Minute)
	}
	other, err := NewSnapshot(standardMap(t, "beta", 1))
	require.NoError(t, err)
	require.NoError(t, db.InsertSnapshot(other))

	latest, err := db.LatestSnapshot("alpha")
	require.NoError(t, err)
	assert.Equal(t, ids[2], latest.SnapshotID)
	assert.Equal(t, uint32(14), latest.NChannels)
	assert.Len(t, latest.Planes, 4)

	alpha, err := db.ListSnapshots("alpha")
	require.NoError(t, err)
	require.Len(t, alpha, 3)
	assert.Equal(t, []string{ids[2], ids[1], ids[0]},
		[]string{alpha[0].SnapshotID, alpha[1].SnapshotID, alpha[2].SnapshotID})
	assert.Empty(t, alpha[0].Planes, "list does not load planes")

	all, err := db.ListSnapshots("")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	require.NoError(t, db.DeleteSnapshot(ids[2]))
	latest, err = db.LatestSnapshot("alpha")
	require.NoError(t, err)
	assert.Equal(t, ids[1], latest.SnapshotID)

	var planes int
	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM channel_map_planes WHERE snapshot_id = ?`, ids[2]).Scan(&planes))
	assert.Zero(t, planes, "planes cascade with their snapshot")
}

func TestFingerprint(t *testing.T) {
	a, err := NewSnapshot(standardMap(t, "fp", 3, 3))
	require.NoError(t, err)
	b, err := NewSnapshot(standardMap(t, "fp", 3, 3))
	require.NoError(t, err)
	c, err := NewSnapshot(standardMap(t, "fp", 3, 4))
	require.NoError(t, err)

	assert.Len(t, a.Fingerprint, 16)
	assert.Equal(t, a.Fingerprint, b.Fingerprint)
	assert.NotEqual(t, a.Fingerprint, c.Fingerprint)

	// The kind does not enter the fingerprint, only the numbering.
	shared := channelmap.NewSharedAlg()
	det, err := standardMap(t, "fp", 3, 3).Detector()
	require.NoError(t, err)
	require.NoError(t, shared.Initialize(det))
	s, err := NewSnapshot(shared)
	require.NoError(t, err)
	assert.Equal(t, a.Fingerprint, s.Fingerprint)
}

func TestVerify(t *testing.T) {
	db, _ := setupTestDB(t)

	base, err := NewSnapshot(standardMap(t, "gamma", 4, 4, 6))
	require.NoError(t, err)
	require.NoError(t, db.InsertSnapshot(base))

	want, err := db.VerifyLatest(standardMap(t, "gamma", 4, 4, 6))
	require.NoError(t, err)
	assert.Equal(t, base.SnapshotID, want.SnapshotID)

	_, err = db.VerifyLatest(standardMap(t, "gamma", 4, 5, 6))
	require.ErrorIs(t, err, ErrMismatch)
	assert.Contains(t, err.Error(), base.SnapshotID)
	assert.Contains(t, err.Error(), "Wires")

	_, err = db.VerifyLatest(standardMap(t, "delta", 1))
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestNewSnapshot_Uninitialized(t *testing.T) {
	_, err := NewSnapshot(channelmap.NewStandardAlg())
	assert.ErrorIs(t, err, channelmap.ErrNotInitialized)
}
