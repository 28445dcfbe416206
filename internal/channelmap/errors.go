package channelmap

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration indicates the detector hierarchy cannot be numbered:
	// it is empty, has a zero-wire plane, or declares invalid shared readout.
	ErrConfiguration = errors.New("channelmap: invalid detector configuration")
	// ErrNotInitialized indicates a query on a map that is not initialized.
	ErrNotInitialized = errors.New("channelmap: channel map is not initialized")
	// ErrOutOfRange indicates a channel or element index outside the detector.
	ErrOutOfRange = errors.New("channelmap: index out of range")
	// ErrUnknownKind indicates New was asked for an unregistered variant.
	ErrUnknownKind = errors.New("channelmap: unknown channel map kind")
)

// RangeError reports which quantity was out of range and by how much.
// It matches ErrOutOfRange with errors.Is.
type RangeError struct {
	What  string // "channel", "cryostat", "tpc", "plane" or "wire"
	Value uint64
	Limit uint64 // valid values are [0, Limit)
	In    string // enclosing element, empty for channels and cryostats
}

func (e *RangeError) Error() string {
	if e.In != "" {
		return fmt.Sprintf("channelmap: %s %d out of range in %s (limit %d)", e.What, e.Value, e.In, e.Limit)
	}
	return fmt.Sprintf("channelmap: %s %d out of range (limit %d)", e.What, e.Value, e.Limit)
}

func (e *RangeError) Unwrap() error { return ErrOutOfRange }

func configErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}
