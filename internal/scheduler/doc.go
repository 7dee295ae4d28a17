// Package scheduler drives periodic query collection.
//
// # Purpose
//
// Every configured query gets its own worker goroutine ticking at the
// query's interval. Ticks that find the connection down are skipped
// without retry or backoff: the connection manager heals connections in
// the background, and the worker simply picks up again on the first
// tick after the connection returns. One-shot queries retry until their
// first success and then exit.
//
// Execution failures are counted against the query and, when they look
// like a broken connection, reported to the connection manager.
//
// # Thread Safety
//
// Start and Stop are safe for concurrent use. Workers only touch the
// connection manager and the store, both of which are concurrency-safe.
package scheduler
