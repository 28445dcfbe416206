// Package geo owns the detector hierarchy consumed by the channel map.
//
// Responsibilities: element identifiers (cryostat, TPC, plane, wire),
// readout classifications (View, SigType), and the read-only hierarchy
// types with their 3D wire geometry.
// Key types: Detector, Plane, Wire, PlaneID, WireID.
//
// Dependency rule: geo depends on nothing else in this module. It does not
// parse geometry description files; internal/config and internal/geo/layout
// produce a Detector for tools and tests.
package geo
