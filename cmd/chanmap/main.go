// Command chanmap builds a channel map from a JSON detector description and
// answers lookups against it. It can also record the channel table in a
// SQLite database and check later builds against the recorded numbering.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/marcmengel/larcorealg/internal/chanmapdb"
	"github.com/marcmengel/larcorealg/internal/channelmap"
	"github.com/marcmengel/larcorealg/internal/config"
	"github.com/marcmengel/larcorealg/internal/export"
	"github.com/marcmengel/larcorealg/internal/fsutil"
	"github.com/marcmengel/larcorealg/internal/metrics"
	"github.com/marcmengel/larcorealg/internal/monitoring"
	"github.com/marcmengel/larcorealg/internal/version"
	"gonum.org/v1/gonum/spatial/r3"
)

// options holds the parsed command line.
type options struct {
	configPath  string
	kind        string
	debug       bool
	dump        bool
	channel     int64
	wire        string
	nearest     string
	driftX      float64
	plane       uint
	tpc         uint
	cryostat    uint
	dbPath      string
	record      bool
	verify      bool
	describe    string
	exportTo    string
	metricsOut  string
	showVersion bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("chanmap", flag.ContinueOnError)
	fs.SetOutput(stderr)

	o := &options{}
	fs.StringVar(&o.configPath, "config", config.DefaultConfigPath, "channel map configuration (JSON)")
	fs.StringVar(&o.kind, "kind", "", "override the channel map kind ("+kindList()+")")
	fs.BoolVar(&o.debug, "debug", false, "enable debug logging")
	fs.BoolVar(&o.dump, "dump", false, "print the per-plane channel table")
	fs.Int64Var(&o.channel, "channel", -1, "print the wires read out by this channel")
	fs.StringVar(&o.wire, "wire", "", "print the channel of wire C:T:P:W")
	fs.StringVar(&o.nearest, "nearest", "", "print the wire coordinate and nearest wire at y,z (cm)")
	fs.Float64Var(&o.driftX, "x", 0, "drift coordinate for -nearest (cm, ignored by the projection)")
	fs.UintVar(&o.plane, "plane", 0, "plane for -nearest")
	fs.UintVar(&o.tpc, "tpc", 0, "TPC for -nearest")
	fs.UintVar(&o.cryostat, "cryostat", 0, "cryostat for -nearest")
	fs.StringVar(&o.dbPath, "db", "", "snapshot database (sqlite)")
	fs.BoolVar(&o.record, "record", false, "record a snapshot of the channel table in -db")
	fs.BoolVar(&o.verify, "verify", false, "compare the channel table with the latest snapshot in -db")
	fs.StringVar(&o.describe, "describe", "", "description stored with -record")
	fs.StringVar(&o.exportTo, "export", "", "write the snapshot as JSON to a directory or s3://bucket/prefix")
	fs.StringVar(&o.metricsOut, "metrics-out", "", "write Prometheus gauges to this textfile")
	fs.BoolVar(&o.showVersion, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if (o.record || o.verify) && o.dbPath == "" {
		return nil, errors.New("-record and -verify require -db")
	}
	return o, nil
}

func kindList() string {
	var s string
	for i, k := range channelmap.Kinds() {
		if i > 0 {
			s += ", "
		}
		s += string(k)
	}
	return s
}

type app struct {
	fsys fsutil.FileSystem
	out  io.Writer
}

func (a *app) run(ctx context.Context, o *options) error {
	if o.showVersion {
		fmt.Fprintf(a.out, "chanmap %s\n", version.String())
		return nil
	}

	cfg, err := config.LoadChannelMapConfig(a.fsys, o.configPath)
	if err != nil {
		return err
	}
	if o.kind != "" {
		cfg.Kind = &o.kind
	}
	monitoring.SetDebug(o.debug || cfg.GetDebug())

	cm, _, err := cfg.Open()
	if err != nil {
		return err
	}
	defer cm.Uninitialize()

	if err := a.summary(cm); err != nil {
		return err
	}
	if o.dump {
		if err := a.dumpTable(cm); err != nil {
			return err
		}
	}
	if o.channel >= 0 {
		if err := a.lookupChannel(cm, o.channel); err != nil {
			return err
		}
	}
	if o.wire != "" {
		if err := a.lookupWire(cm, o.wire); err != nil {
			return err
		}
	}
	if o.nearest != "" {
		y, z, err := parseYZ(o.nearest)
		if err != nil {
			return err
		}
		pos := r3.Vec{X: o.driftX, Y: y, Z: z}
		if err := a.lookupNearest(cm, pos, uint32(o.plane), uint32(o.tpc), uint32(o.cryostat)); err != nil {
			return err
		}
	}

	snap, err := chanmapdb.NewSnapshot(cm)
	if err != nil {
		return err
	}
	snap.Description = o.describe

	if o.dbPath != "" {
		if err := a.withDB(o, cm, snap); err != nil {
			return err
		}
	}
	if o.exportTo != "" {
		sink, err := export.Open(ctx, a.fsys, o.exportTo)
		if err != nil {
			return err
		}
		key, err := export.Snapshot(ctx, sink, snap)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "exported %s\n", key)
	}
	if o.metricsOut != "" {
		if err := metrics.WriteTextfile(o.metricsOut, cm); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) withDB(o *options, cm channelmap.ChannelMap, snap *chanmapdb.Snapshot) error {
	db, err := chanmapdb.OpenDB(o.dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if o.verify {
		want, err := db.VerifyLatest(cm)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "verified against snapshot %s (fingerprint %s)\n", want.SnapshotID, want.Fingerprint)
	}
	if o.record {
		if err := db.InsertSnapshot(snap); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "recorded snapshot %s (fingerprint %s)\n", snap.SnapshotID, snap.Fingerprint)
	}
	return nil
}

func main() {
	o, err := parseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("chanmap: %v", err)
	}

	a := &app{fsys: fsutil.OSFileSystem{}, out: os.Stdout}
	if err := a.run(context.Background(), o); err != nil {
		log.Fatalf("chanmap: %v", err)
	}
}
