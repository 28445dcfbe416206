package geo

import (
	"fmt"
	"strings"
)

// View classifies the wire orientation of a plane.
type View int

const (
	ViewUnknown View = iota
	ViewU
	ViewV
	ViewZ
	ViewY
	ViewX
	View3D
)

var viewNames = map[View]string{
	ViewUnknown: "unknown",
	ViewU:       "U",
	ViewV:       "V",
	ViewZ:       "Z",
	ViewY:       "Y",
	ViewX:       "X",
	View3D:      "3D",
}

func (v View) String() string {
	if name, ok := viewNames[v]; ok {
		return name
	}
	return fmt.Sprintf("View(%d)", int(v))
}

// ParseView accepts the names produced by View.String, case-insensitively.
// "W" is accepted as an alias for the vertical collection view.
func ParseView(s string) (View, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "U":
		return ViewU, nil
	case "V":
		return ViewV, nil
	case "Z", "W":
		return ViewZ, nil
	case "Y":
		return ViewY, nil
	case "X":
		return ViewX, nil
	case "3D":
		return View3D, nil
	case "", "UNKNOWN":
		return ViewUnknown, nil
	}
	return ViewUnknown, fmt.Errorf("unknown view %q", s)
}

// MarshalText encodes the view by name.
func (v View) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText decodes a view name.
func (v *View) UnmarshalText(b []byte) error {
	parsed, err := ParseView(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// SigType classifies the electrical signal a plane produces.
type SigType int

const (
	// SigTypeUnknown on a Plane asks the channel map to derive the type
	// from the plane's position in its TPC.
	SigTypeUnknown SigType = iota
	Induction
	Collection
)

func (s SigType) String() string {
	switch s {
	case Induction:
		return "induction"
	case Collection:
		return "collection"
	case SigTypeUnknown:
		return "unknown"
	}
	return fmt.Sprintf("SigType(%d)", int(s))
}

// ParseSigType accepts "induction", "collection" or "" / "unknown".
func ParseSigType(s string) (SigType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "induction":
		return Induction, nil
	case "collection":
		return Collection, nil
	case "", "unknown":
		return SigTypeUnknown, nil
	}
	return SigTypeUnknown, fmt.Errorf("unknown signal type %q", s)
}

// MarshalText encodes the signal type by name.
func (s SigType) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a signal type name.
func (s *SigType) UnmarshalText(b []byte) error {
	parsed, err := ParseSigType(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
