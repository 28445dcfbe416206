// Package channelmap translates between flat readout channel numbers and
// the cryostat -> TPC -> plane -> wire hierarchy of a geo.Detector.
//
// A ChannelMap is built once per detector configuration with Initialize,
// which numbers the wires plane by plane in traversal order, and torn down
// with Uninitialize. While initialized every query is read-only, so one
// map may be shared by any number of goroutines as long as nobody calls
// Initialize or Uninitialize concurrently.
//
// Variants differ only in how a plane is read out: KindStandard gives every
// wire its own channel, KindShared also honours planes that declare shared
// readout with an earlier plane. Use New to construct one by kind.
package channelmap
