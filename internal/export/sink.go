// Package export publishes channel map snapshots as JSON documents to a
// local directory or an S3 bucket.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/marcmengel/larcorealg/internal/chanmapdb"
	"github.com/marcmengel/larcorealg/internal/fsutil"
	"github.com/marcmengel/larcorealg/internal/monitoring"
)

// Sink stores a document under a slash-separated key.
type Sink interface {
	Put(ctx context.Context, key string, data []byte) error
}

// FileSink writes documents below Dir. Key segments become directories.
type FileSink struct {
	FS  fsutil.FileSystem
	Dir string
}

// Put implements Sink.
func (s *FileSink) Put(_ context.Context, key string, data []byte) error {
	rel := filepath.FromSlash(key)
	if !filepath.IsLocal(rel) {
		return fmt.Errorf("export key %q escapes %s", key, s.Dir)
	}
	name := filepath.Join(s.Dir, rel)
	if err := s.FS.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	if err := s.FS.WriteFile(name, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// Open returns the sink for target: "s3://bucket/prefix" selects S3,
// anything else is a local directory.
func Open(ctx context.Context, fsys fsutil.FileSystem, target string) (Sink, error) {
	if strings.HasPrefix(target, "s3://") {
		bucket, prefix, err := ParseS3URL(target)
		if err != nil {
			return nil, err
		}
		return NewS3Sink(ctx, S3Config{Bucket: bucket, Prefix: prefix})
	}
	if target == "" {
		return nil, fmt.Errorf("export target required")
	}
	return &FileSink{FS: fsys, Dir: target}, nil
}

// SnapshotKey is the key a snapshot is stored under.
func SnapshotKey(snap *chanmapdb.Snapshot) string {
	id := snap.SnapshotID
	if id == "" {
		id = snap.Fingerprint
	}
	return path.Join(sanitize(snap.Detector), id+".json")
}

// Snapshot writes snap to sink as indented JSON and returns its key.
func Snapshot(ctx context.Context, sink Sink, snap *chanmapdb.Snapshot) (string, error) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	key := SnapshotKey(snap)
	if err := sink.Put(ctx, key, data); err != nil {
		return "", err
	}
	monitoring.Logf("[export] wrote snapshot %s (%d bytes)", key, len(data))
	return key, nil
}

func sanitize(name string) string {
	if name == "" {
		return "unnamed"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ' ':
			return '_'
		}
		return r
	}, name)
}
