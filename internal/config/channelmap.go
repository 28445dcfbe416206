package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/marcmengel/larcorealg/internal/channelmap"
	"github.com/marcmengel/larcorealg/internal/fsutil"
	"github.com/marcmengel/larcorealg/internal/geo"
	"github.com/marcmengel/larcorealg/internal/geo/layout"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultConfigPath is where the CLI looks for a channel map configuration
// when none is given.
const DefaultConfigPath = "config/channelmap.json"

const maxFileSize = 1 * 1024 * 1024 // 1MB

// ChannelMapConfig is the root configuration for building a channel map.
// Optional settings are pointers so that omitted fields fall back to the
// defaults returned by the Get* methods.
type ChannelMapConfig struct {
	Kind  *string `json:"kind,omitempty"`
	Debug *bool   `json:"debug,omitempty"`

	Detector DetectorConfig `json:"detector"`
}

// DetectorConfig is a compact description of a detector made of regular
// wire planes.
type DetectorConfig struct {
	Name      string           `json:"name"`
	Cryostats []CryostatConfig `json:"cryostats"`
}

// CryostatConfig lists TPCs in numbering order.
type CryostatConfig struct {
	TPCs []TPCConfig `json:"tpcs"`
}

// TPCConfig describes one TPC, optionally repeated. Copy i has every plane
// origin shifted by i*StepCm.
type TPCConfig struct {
	Repeat *int          `json:"repeat,omitempty"`
	StepCm [3]float64    `json:"step_cm,omitempty"`
	Planes []PlaneConfig `json:"planes"`
}

// PlaneConfig describes a regular plane.
type PlaneConfig struct {
	View          geo.View    `json:"view"`
	SignalType    geo.SigType `json:"signal_type,omitempty"`
	Wires         int         `json:"wires"`
	PitchCm       float64     `json:"pitch_cm"`
	AngleDeg      float64     `json:"angle_deg"`
	OriginCm      [3]float64  `json:"origin_cm"`
	LengthCm      float64     `json:"length_cm"`
	SharedReadout string      `json:"shared_readout,omitempty"` // "C:T:P"
}

// LoadChannelMapConfig loads a ChannelMapConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadChannelMapConfig(fsys fsutil.FileSystem, path string) (*ChannelMapConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := fsys.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := fsys.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return ParseChannelMapConfig(data)
}

// ParseChannelMapConfig decodes and validates a JSON configuration.
func ParseChannelMapConfig(data []byte) (*ChannelMapConfig, error) {
	cfg := &ChannelMapConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the values that JSON decoding cannot. Structural rules
// (no empty cryostats, no zero-wire planes) are enforced by the channel
// map itself when it is initialized.
func (c *ChannelMapConfig) Validate() error {
	if c.Kind != nil {
		if _, err := channelmap.New(channelmap.Kind(*c.Kind)); err != nil {
			return err
		}
	}
	return c.Detector.Validate()
}

// Validate checks per-plane numeric values and shared readout syntax.
func (d *DetectorConfig) Validate() error {
	for ci, cryo := range d.Cryostats {
		for ti, tpc := range cryo.TPCs {
			if tpc.Repeat != nil && *tpc.Repeat < 1 {
				return fmt.Errorf("cryostat %d tpc %d: repeat must be at least 1, got %d", ci, ti, *tpc.Repeat)
			}
			for pi, p := range tpc.Planes {
				where := fmt.Sprintf("cryostat %d tpc %d plane %d", ci, ti, pi)
				if p.Wires < 0 {
					return fmt.Errorf("%s: wires must be non-negative, got %d", where, p.Wires)
				}
				if p.PitchCm < 0 {
					return fmt.Errorf("%s: pitch_cm must be non-negative, got %f", where, p.PitchCm)
				}
				if p.LengthCm < 0 {
					return fmt.Errorf("%s: length_cm must be non-negative, got %f", where, p.LengthCm)
				}
				if p.SharedReadout != "" {
					if _, err := parsePlaneID(p.SharedReadout); err != nil {
						return fmt.Errorf("%s: %w", where, err)
					}
				}
			}
		}
	}
	return nil
}

// GetKind returns the channel map kind or the default.
func (c *ChannelMapConfig) GetKind() channelmap.Kind {
	if c.Kind == nil || *c.Kind == "" {
		return channelmap.KindStandard
	}
	return channelmap.Kind(*c.Kind)
}

// GetDebug returns the debug flag or the default.
func (c *ChannelMapConfig) GetDebug() bool {
	if c.Debug == nil {
		return false // default: quiet
	}
	return *c.Debug
}

// GetRepeat returns the repeat count or the default.
func (t *TPCConfig) GetRepeat() int {
	if t.Repeat == nil {
		return 1
	}
	return *t.Repeat
}

// Build expands the description into a detector hierarchy. Repeated TPCs
// are expanded in place, so numbering follows the file order.
func (d *DetectorConfig) Build() (*geo.Detector, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	cryostats := make([]layout.CryostatSpec, 0, len(d.Cryostats))
	for _, cryo := range d.Cryostats {
		var tpcs []layout.TPCSpec
		for _, tpc := range cryo.TPCs {
			for i := 0; i < tpc.GetRepeat(); i++ {
				shift := r3.Scale(float64(i), vec(tpc.StepCm))
				specs := make([]layout.PlaneSpec, 0, len(tpc.Planes))
				for _, p := range tpc.Planes {
					spec, err := p.spec()
					if err != nil {
						return nil, err
					}
					spec.Origin = r3.Add(spec.Origin, shift)
					specs = append(specs, spec)
				}
				tpcs = append(tpcs, layout.TPCSpec{Planes: specs})
			}
		}
		cryostats = append(cryostats, layout.CryostatSpec{TPCs: tpcs})
	}
	return layout.Build(d.Name, cryostats), nil
}

func (p PlaneConfig) spec() (layout.PlaneSpec, error) {
	spec := layout.PlaneSpec{
		View:       p.View,
		SignalType: p.SignalType,
		Wires:      p.Wires,
		Pitch:      p.PitchCm,
		AngleDeg:   p.AngleDeg,
		Origin:     vec(p.OriginCm),
		Length:     p.LengthCm,
	}
	if p.SharedReadout != "" {
		id, err := parsePlaneID(p.SharedReadout)
		if err != nil {
			return layout.PlaneSpec{}, err
		}
		spec.SharedReadout = &id
	}
	return spec, nil
}

func vec(v [3]float64) r3.Vec {
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}
}

func parsePlaneID(s string) (geo.PlaneID, error) {
	id, err := geo.ParsePlaneID(s)
	if err != nil {
		return geo.PlaneID{}, fmt.Errorf("shared_readout: %w", err)
	}
	return id, nil
}

// Open builds the detector, creates a channel map of the configured kind
// and initializes it. The returned map borrows the returned detector.
func (c *ChannelMapConfig) Open() (channelmap.ChannelMap, *geo.Detector, error) {
	det, err := c.Detector.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("build detector: %w", err)
	}
	cm, err := channelmap.New(c.GetKind())
	if err != nil {
		return nil, nil, err
	}
	if err := cm.Initialize(det); err != nil {
		return nil, nil, fmt.Errorf("initialize %s channel map: %w", c.GetKind(), err)
	}
	return cm, det, nil
}
