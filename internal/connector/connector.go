package connector

import (
	"context"
	"time"
)

// Spec describes one configured connection, resolved from configuration.
// It is immutable after load.
type Spec struct {
	// Name is the unique connection key.
	Name string

	// Candidates is the ordered failover list. For network DBMSes each
	// entry is "host:port"; for sqlite each entry is a file path.
	Candidates []string

	User     string
	Password string

	// Database is the database/schema to connect to, where the DBMS
	// requires one.
	Database string

	// Timeout bounds every network operation (connect and execute).
	Timeout time.Duration
}

// Handle is an active connection handle owned by the health manager.
// Callers borrow it for the duration of one query execution and must not
// retain it. For pooled connectors a Handle wraps the pool, not a single
// socket.
type Handle interface {
	// Addr returns the candidate address the handle is bound to.
	Addr() string

	// Close releases the handle's resources. Idempotent.
	Close() error
}

// Capabilities describes what a connector kind supports.
type Capabilities struct {
	// Failover indicates the connector tries candidate addresses in
	// order until one responds.
	Failover bool `json:"failover"`

	// Pooling indicates Execute may be called concurrently on the same
	// handle.
	Pooling bool `json:"pooling"`
}

// Author identifies one author of a connector.
type Author struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// Info is the static metadata a connector declares about itself,
// surfaced by the --show-connector command.
type Info struct {
	Name      string   `json:"connector-name"`
	URL       string   `json:"connector-url"`
	Version   string   `json:"version"`
	Maturity  string   `json:"maturity"`
	License   string   `json:"license"`
	Copyright string   `json:"copyright"`
	Authors   []Author `json:"authors"`
}

// Connector is the capability set implemented once per supported DBMS kind.
type Connector interface {
	// Kind returns the registry key ("mariadb", "postgresql", ...).
	Kind() string

	// Info returns the connector's static metadata.
	Info() Info

	// Capabilities returns the connector's declared capabilities.
	Capabilities() Capabilities

	// Connect establishes a connection, trying each candidate in order.
	// The first responsive candidate wins. Failures are returned as
	// *ConnectError.
	Connect(ctx context.Context, spec Spec) (Handle, error)

	// Execute runs the opaque query on the handle and extracts a numeric
	// value from the first result row. If the result has exactly one
	// column that column is used; with multiple columns the column
	// selector is required. Failures are returned as *ExecutionError.
	Execute(ctx context.Context, h Handle, query, column string) (float64, error)

	// Close releases the handle. Idempotent.
	Close(h Handle) error
}
