package chanmapdb

import (
	"errors"
	"fmt"

	"github.com/google/go-cmp/cmp"
	"github.com/marcmengel/larcorealg/internal/channelmap"
)

// ErrMismatch is returned by Verify when a map numbers wires differently
// from a recorded snapshot.
var ErrMismatch = errors.New("chanmapdb: channel table differs from snapshot")

// Diff reports the differences between two channel tables in go-cmp's
// (-want +got) form. It is empty when both assign the same channels.
func Diff(want, got *Snapshot) string {
	type table struct {
		NChannels uint32
		Planes    []channelmap.PlaneInfo
	}
	return cmp.Diff(
		table{want.NChannels, want.Planes},
		table{got.NChannels, got.Planes},
	)
}

// Verify checks that cm numbers wires exactly as recorded in want.
func Verify(cm channelmap.ChannelMap, want *Snapshot) error {
	got, err := NewSnapshot(cm)
	if err != nil {
		return err
	}
	if got.Fingerprint == want.Fingerprint {
		return nil
	}
	return fmt.Errorf("%w (snapshot %s, -want +got):\n%s", ErrMismatch, want.SnapshotID, Diff(want, got))
}

// VerifyLatest checks cm against the newest snapshot of its detector.
func (db *DB) VerifyLatest(cm channelmap.ChannelMap) (*Snapshot, error) {
	det, err := cm.Detector()
	if err != nil {
		return nil, err
	}
	want, err := db.LatestSnapshot(det.Name)
	if err != nil {
		return nil, err
	}
	return want, Verify(cm, want)
}
