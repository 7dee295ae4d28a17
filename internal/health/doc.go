// Package health manages the lifecycle of database connections.
//
// # Purpose
//
// The manager owns every configured connection from startup to shutdown.
// Startup retries failed connections for a bounded grace period; after
// that, a single background healer retries whatever is still down. A
// connection is always in exactly one of three states: unestablished
// (startup only), connected, or failed. A failed connection becomes
// usable again only after a successful reconnect.
//
// # Usage
//
//	mgr := health.NewManager(targets, health.DefaultOptions())
//	mgr.SetLogger(log)
//	if err := mgr.Start(ctx); err != nil {
//	    // health.ErrNoConnections: nothing came up within the grace period
//	    return err
//	}
//	defer mgr.Close()
//
//	conn, handle, err := mgr.Borrow("db1")
//
// Callers that hit a broken connection report it back with
// ReportFailure; the manager demotes the connection and wakes the
// healer. Non-retryable errors (bad SQL, missing columns) are ignored.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Connection attempts are
// single-flight per connection: at most one attempt is in progress for
// any given connection, and at most one healer goroutine exists.
package health
