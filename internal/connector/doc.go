// Package connector provides pluggable database connectors for query-viz.
//
// A Connector knows how to establish a connection to one kind of DBMS,
// execute an opaque query against it, and extract a single numeric value
// from the result. Implementations are selected through a name-keyed
// registry resolved at startup; referencing an unregistered kind is a
// fatal configuration error.
//
// # Registered kinds
//
//   - mariadb     (go-sql-driver/mysql)
//   - mysql       (go-sql-driver/mysql)
//   - postgresql  (lib/pq)
//   - sqlite      (mattn/go-sqlite3)
//
// # Failover
//
// Connect tries each candidate address in the declared order and the
// first responsive candidate wins; the remaining candidates are never
// attempted once one succeeds, and failover is not repeated mid-session.
//
// # Error taxonomy
//
// Connect failures and timeouts are retryable and reported as
// *ConnectError. Query failures (bad SQL, ambiguous columns, non-numeric
// values) are not retryable and reported as *ExecutionError. Use
// IsRetryable to classify an error for retry purposes; it also detects
// broken-connection conditions surfaced during execution.
//
// # Thread Safety
//
// Handles returned by the SQL connectors wrap a database/sql pool and
// tolerate concurrent Execute calls. The registry is safe for concurrent
// reads after the package is initialised.
package connector
