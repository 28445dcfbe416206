// Package metrics exposes the shape of an initialized channel map as
// Prometheus gauges, for scraping or for the node exporter textfile
// collector.
package metrics

import (
	"fmt"

	"github.com/marcmengel/larcorealg/internal/channelmap"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	readyDesc = prometheus.NewDesc(
		"chanmap_ready",
		"Whether the channel map is initialized (1) or not (0).",
		[]string{"kind"}, nil,
	)
	channelsDesc = prometheus.NewDesc(
		"chanmap_channels",
		"Number of readout channels.",
		[]string{"detector", "kind"}, nil,
	)
	planesDesc = prometheus.NewDesc(
		"chanmap_planes",
		"Number of wire planes per view.",
		[]string{"detector", "view"}, nil,
	)
	wiresDesc = prometheus.NewDesc(
		"chanmap_wires",
		"Number of wires per view.",
		[]string{"detector", "view"}, nil,
	)
	sharedWiresDesc = prometheus.NewDesc(
		"chanmap_shared_wires",
		"Wires read out on channels owned by another plane.",
		[]string{"detector"}, nil,
	)
)

// Collector reports gauges for one channel map. It reads the map on every
// scrape, so it must not race with Initialize or Uninitialize.
type Collector struct {
	cm channelmap.ChannelMap
}

// NewCollector returns a collector for cm.
func NewCollector(cm channelmap.ChannelMap) *Collector {
	return &Collector{cm: cm}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- readyDesc
	ch <- channelsDesc
	ch <- planesDesc
	ch <- wiresDesc
	ch <- sharedWiresDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	kind := string(c.cm.Kind())
	if c.cm.State() != channelmap.StateReady {
		ch <- prometheus.MustNewConstMetric(readyDesc, prometheus.GaugeValue, 0, kind)
		return
	}
	det, err := c.cm.Detector()
	if err != nil {
		ch <- prometheus.NewInvalidMetric(readyDesc, err)
		return
	}
	n, err := c.cm.Nchannels()
	if err != nil {
		ch <- prometheus.NewInvalidMetric(channelsDesc, err)
		return
	}
	planes, err := c.cm.Planes()
	if err != nil {
		ch <- prometheus.NewInvalidMetric(planesDesc, err)
		return
	}

	ch <- prometheus.MustNewConstMetric(readyDesc, prometheus.GaugeValue, 1, kind)
	ch <- prometheus.MustNewConstMetric(channelsDesc, prometheus.GaugeValue, float64(n), det.Name, kind)

	planesByView := make(map[string]int)
	wiresByView := make(map[string]uint32)
	var shared uint32
	for _, p := range planes {
		view := p.View.String()
		planesByView[view]++
		wiresByView[view] += p.Wires
		if p.SharedFrom != nil {
			shared += p.Wires
		}
	}
	for view, count := range planesByView {
		ch <- prometheus.MustNewConstMetric(planesDesc, prometheus.GaugeValue, float64(count), det.Name, view)
		ch <- prometheus.MustNewConstMetric(wiresDesc, prometheus.GaugeValue, float64(wiresByView[view]), det.Name, view)
	}
	ch <- prometheus.MustNewConstMetric(sharedWiresDesc, prometheus.GaugeValue, float64(shared), det.Name)
}

// WriteTextfile writes the gauges for cm to path in the Prometheus text
// format. The file is replaced atomically.
func WriteTextfile(path string, cm channelmap.ChannelMap) error {
	reg := prometheus.NewRegistry()
	if err := reg.Register(NewCollector(cm)); err != nil {
		return fmt.Errorf("register collector: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
