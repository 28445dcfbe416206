package chanmapdb

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/marcmengel/larcorealg/internal/channelmap"
	"github.com/marcmengel/larcorealg/internal/geo"
)

// ErrSnapshotNotFound is returned when no snapshot matches a lookup.
var ErrSnapshotNotFound = errors.New("chanmapdb: snapshot not found")

// Snapshot is the recorded channel table of one initialized channel map.
type Snapshot struct {
	SnapshotID  string                 `json:"snapshot_id"`
	Detector    string                 `json:"detector"`
	Kind        channelmap.Kind        `json:"kind"`
	Fingerprint string                 `json:"fingerprint"`
	NChannels   uint32                 `json:"nchannels"`
	Description string                 `json:"description,omitempty"`
	Planes      []channelmap.PlaneInfo `json:"planes"`
	CreatedAtNs int64                  `json:"created_at_ns"`
}

// NewSnapshot captures the channel table of an initialized map. The
// snapshot has no id until it is inserted.
func NewSnapshot(cm channelmap.ChannelMap) (*Snapshot, error) {
	det, err := cm.Detector()
	if err != nil {
		return nil, err
	}
	n, err := cm.Nchannels()
	if err != nil {
		return nil, err
	}
	planes, err := cm.Planes()
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Detector:    det.Name,
		Kind:        cm.Kind(),
		Fingerprint: Fingerprint(n, planes),
		NChannels:   n,
		Planes:      planes,
	}, nil
}

// Fingerprint hashes a channel table. Two maps with the same fingerprint
// assign every wire the same channel, whatever their kind.
func Fingerprint(nchannels uint32, planes []channelmap.PlaneInfo) string {
	d := xxhash.New()
	fmt.Fprintf(d, "nchannels=%d\n", nchannels)
	for _, p := range planes {
		shared := "-"
		if p.SharedFrom != nil {
			shared = p.SharedFrom.String()
		}
		fmt.Fprintf(d, "%s|%s|%s|%d|%d|%d|%s\n",
			p.ID, p.View, p.SignalType, p.Wires, p.FirstChannel, p.NextChannel, shared)
	}
	return fmt.Sprintf("%016x", d.Sum64())
}

// InsertSnapshot stores s and its planes in one transaction.
// If s.SnapshotID is empty, a new UUID is generated.
func (db *DB) InsertSnapshot(s *Snapshot) error {
	if s.SnapshotID == "" {
		s.SnapshotID = uuid.New().String()
	}
	if s.CreatedAtNs == 0 {
		s.CreatedAtNs = db.clock.Now().UnixNano()
	}
	if s.Fingerprint == "" {
		s.Fingerprint = Fingerprint(s.NChannels, s.Planes)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin snapshot insert: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO channel_map_snapshots (
			snapshot_id, detector, kind, fingerprint, nchannels, nplanes,
			description, created_at_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		s.SnapshotID,
		s.Detector,
		string(s.Kind),
		s.Fingerprint,
		s.NChannels,
		len(s.Planes),
		nullString(s.Description),
		s.CreatedAtNs,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO channel_map_planes (
			snapshot_id, plane_index, cryostat, tpc, plane, view, signal_type,
			wires, first_channel, next_channel, shared_from
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare plane insert: %w", err)
	}
	defer stmt.Close()

	for i, p := range s.Planes {
		var shared sql.NullString
		if p.SharedFrom != nil {
			shared = sql.NullString{String: formatPlaneID(*p.SharedFrom), Valid: true}
		}
		_, err := stmt.Exec(
			s.SnapshotID, i, p.ID.Cryostat, p.ID.TPC, p.ID.Plane,
			p.View.String(), p.SignalType.String(),
			p.Wires, p.FirstChannel, p.NextChannel, shared,
		)
		if err != nil {
			return fmt.Errorf("insert plane %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

const snapshotColumns = `
	snapshot_id, detector, kind, fingerprint, nchannels, description, created_at_ns
`

// GetSnapshot retrieves a snapshot and its planes by id.
func (db *DB) GetSnapshot(snapshotID string) (*Snapshot, error) {
	row := db.QueryRow(`SELECT `+snapshotColumns+` FROM channel_map_snapshots WHERE snapshot_id = ?`, snapshotID)
	s, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, snapshotID)
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	if err := db.loadPlanes(s); err != nil {
		return nil, err
	}
	return s, nil
}

// LatestSnapshot retrieves the most recent snapshot recorded for a detector.
func (db *DB) LatestSnapshot(detector string) (*Snapshot, error) {
	row := db.QueryRow(`
		SELECT `+snapshotColumns+`
		FROM channel_map_snapshots
		WHERE detector = ?
		ORDER BY created_at_ns DESC, rowid DESC
		LIMIT 1
	`, detector)
	s, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no snapshot for detector %q", ErrSnapshotNotFound, detector)
	}
	if err != nil {
		return nil, fmt.Errorf("latest snapshot: %w", err)
	}
	if err := db.loadPlanes(s); err != nil {
		return nil, err
	}
	return s, nil
}

// ListSnapshots returns snapshot headers, newest first, optionally filtered
// by detector. Planes are not loaded.
func (db *DB) ListSnapshots(detector string) ([]*Snapshot, error) {
	var query string
	var args []interface{}

	if detector != "" {
		query = `SELECT ` + snapshotColumns + ` FROM channel_map_snapshots
			WHERE detector = ? ORDER BY created_at_ns DESC, rowid DESC`
		args = append(args, detector)
	} else {
		query = `SELECT ` + snapshotColumns + ` FROM channel_map_snapshots
			ORDER BY created_at_ns DESC, rowid DESC`
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, rows.Err()
}

// DeleteSnapshot removes a snapshot and its planes.
func (db *DB) DeleteSnapshot(snapshotID string) error {
	res, err := db.Exec(`DELETE FROM channel_map_snapshots WHERE snapshot_id = ?`, snapshotID)
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrSnapshotNotFound, snapshotID)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(row rowScanner) (*Snapshot, error) {
	var s Snapshot
	var kind string
	var description sql.NullString
	if err := row.Scan(
		&s.SnapshotID,
		&s.Detector,
		&kind,
		&s.Fingerprint,
		&s.NChannels,
		&description,
		&s.CreatedAtNs,
	); err != nil {
		return nil, err
	}
	s.Kind = channelmap.Kind(kind)
	if description.Valid {
		s.Description = description.String
	}
	return &s, nil
}

func (db *DB) loadPlanes(s *Snapshot) error {
	rows, err := db.Query(`
		SELECT cryostat, tpc, plane, view, signal_type, wires,
		       first_channel, next_channel, shared_from
		FROM channel_map_planes
		WHERE snapshot_id = ?
		ORDER BY plane_index
	`, s.SnapshotID)
	if err != nil {
		return fmt.Errorf("load planes: %w", err)
	}
	defer rows.Close()

	s.Planes = s.Planes[:0]
	for rows.Next() {
		var p channelmap.PlaneInfo
		var c, t, pl uint32
		var view, sig string
		var shared sql.NullString
		if err := rows.Scan(&c, &t, &pl, &view, &sig, &p.Wires,
			&p.FirstChannel, &p.NextChannel, &shared); err != nil {
			return fmt.Errorf("scan plane: %w", err)
		}
		p.ID = geo.NewPlaneID(c, t, pl)
		if p.View, err = geo.ParseView(view); err != nil {
			return fmt.Errorf("plane %s: %w", p.ID, err)
		}
		if p.SignalType, err = geo.ParseSigType(sig); err != nil {
			return fmt.Errorf("plane %s: %w", p.ID, err)
		}
		if shared.Valid {
			from, err := geo.ParsePlaneID(shared.String)
			if err != nil {
				return fmt.Errorf("plane %s: %w", p.ID, err)
			}
			p.SharedFrom = &from
		}
		s.Planes = append(s.Planes, p)
	}
	return rows.Err()
}

func formatPlaneID(id geo.PlaneID) string {
	return fmt.Sprintf("%d:%d:%d", id.Cryostat, id.TPC, id.Plane)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
