// Package metrics stores collected query results in memory.
//
// # Purpose
//
// Each query feeds one series of timestamped float values. The store
// bounds memory two ways: samples older than the retention window are
// dropped, and each series keeps at most a fixed number of points.
// Eviction happens lazily on append, so an idle series may briefly hold
// stale points; snapshots filter them out regardless.
//
// # Thread Safety
//
// The store is safe for concurrent use. Each series has its own lock,
// so collectors appending to different series never block each other.
// Snapshot returns deep copies that readers may mutate freely.
package metrics
