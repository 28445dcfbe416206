package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/marcmengel/larcorealg/internal/channelmap"
	"github.com/marcmengel/larcorealg/internal/geo"
	"github.com/pterm/pterm"
	"gonum.org/v1/gonum/spatial/r3"
)

func (a *app) summary(cm channelmap.ChannelMap) error {
	det, err := cm.Detector()
	if err != nil {
		return err
	}
	n, err := cm.Nchannels()
	if err != nil {
		return err
	}
	views, err := cm.Views()
	if err != nil {
		return err
	}
	planes, err := cm.PlaneIDs()
	if err != nil {
		return err
	}
	names := make([]string, 0, views.Len())
	for _, v := range views.Sorted() {
		names = append(names, v.String())
	}
	fmt.Fprintf(a.out, "%s: %s map, %d channels, %d planes, views %s\n",
		det.Name, cm.Kind(), n, planes.Len(), strings.Join(names, ","))
	return nil
}

// planeTableData lays out the channel table for pterm, header first.
func planeTableData(planes []channelmap.PlaneInfo) pterm.TableData {
	data := pterm.TableData{{"Plane", "View", "Signal", "Wires", "First", "Next", "Shared from"}}
	for _, p := range planes {
		shared := ""
		if p.SharedFrom != nil {
			shared = p.SharedFrom.String()
		}
		data = append(data, []string{
			p.ID.String(),
			p.View.String(),
			p.SignalType.String(),
			strconv.FormatUint(uint64(p.Wires), 10),
			strconv.FormatUint(uint64(p.FirstChannel), 10),
			strconv.FormatUint(uint64(p.NextChannel), 10),
			shared,
		})
	}
	return data
}

func (a *app) dumpTable(cm channelmap.ChannelMap) error {
	planes, err := cm.Planes()
	if err != nil {
		return err
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(planeTableData(planes)).Srender()
	if err != nil {
		return fmt.Errorf("render table: %w", err)
	}
	fmt.Fprintln(a.out, table)
	return nil
}

func (a *app) lookupChannel(cm channelmap.ChannelMap, channel int64) error {
	if channel > int64(^uint32(0)) {
		return fmt.Errorf("channel %d does not fit in 32 bits", channel)
	}
	ch := uint32(channel)
	wires, err := cm.ChannelToWire(ch)
	if err != nil {
		return err
	}
	view, err := cm.View(ch)
	if err != nil {
		return err
	}
	sig, err := cm.SignalType(ch)
	if err != nil {
		return err
	}
	ids := make([]string, len(wires))
	for i, w := range wires {
		ids[i] = w.String()
	}
	fmt.Fprintf(a.out, "channel %d: view %s, %s, wires [%s]\n", ch, view, sig, strings.Join(ids, "; "))
	return nil
}

func (a *app) lookupWire(cm channelmap.ChannelMap, s string) error {
	id, err := geo.ParseWireID(s)
	if err != nil {
		return err
	}
	ch, err := cm.PlaneWireToChannel(id.Plane, id.Wire, id.TPC, id.Cryostat)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s: channel %d\n", id, ch)
	return nil
}

func (a *app) lookupNearest(cm channelmap.ChannelMap, pos r3.Vec, plane, tpc, cryostat uint32) error {
	coord, err := cm.WireCoordinate(pos.Y, pos.Z, plane, tpc, cryostat)
	if err != nil {
		return err
	}
	id, err := cm.NearestWireID(pos, plane, tpc, cryostat)
	if err != nil {
		return err
	}
	ch, err := cm.PlaneWireToChannel(id.Plane, id.Wire, id.TPC, id.Cryostat)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "y=%g z=%g: wire coordinate %.3f, nearest %s, channel %d\n", pos.Y, pos.Z, coord, id, ch)
	return nil
}

// parseYZ parses "y,z" in centimetres.
func parseYZ(s string) (y, z float64, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid position %q, expected y,z", s)
	}
	if y, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64); err != nil {
		return 0, 0, fmt.Errorf("invalid y in %q: %w", s, err)
	}
	if z, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64); err != nil {
		return 0, 0, fmt.Errorf("invalid z in %q: %w", s, err)
	}
	return y, z, nil
}
