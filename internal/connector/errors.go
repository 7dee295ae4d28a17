package connector

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
)

// Sentinel errors for connector operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrUnknownConnector is returned when a spec names an unregistered
	// connector kind. Fatal at startup.
	ErrUnknownConnector = errors.New("connector: unknown connector kind")

	// ErrNoCandidates is returned when a spec has an empty candidate list.
	ErrNoCandidates = errors.New("connector: no candidate addresses")

	// ErrNoRows is returned when a query produces no result rows.
	ErrNoRows = errors.New("connector: query returned no rows")

	// ErrAmbiguousColumn is returned when a query yields multiple columns
	// and no column selector was configured.
	ErrAmbiguousColumn = errors.New("connector: ambiguous result column (set 'column' to select one)")

	// ErrColumnNotFound is returned when the configured column selector
	// doesn't match any result column.
	ErrColumnNotFound = errors.New("connector: selected column not found in result")

	// ErrNotNumeric is returned when the selected value cannot be
	// converted to a number.
	ErrNotNumeric = errors.New("connector: value is not numeric")

	// ErrBadHandle is returned when a handle of the wrong type is passed
	// to a connector.
	ErrBadHandle = errors.New("connector: handle does not belong to this connector")
)

// ConnectError is a retryable failure to reach any candidate of a
// connection. Timeouts are classified as connect errors too.
type ConnectError struct {
	// Conn is the connection name the failure belongs to.
	Conn string

	Err error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connecting %q: %v", e.Conn, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// ExecutionError is a non-retryable query failure: the connection was
// usable but the query itself failed or produced an unusable result.
type ExecutionError struct {
	// Conn is the connection name the query ran against.
	Conn string

	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("executing on %q: %v", e.Conn, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether an error warrants a reconnection attempt.
//
// Connect errors and timeouts are always retryable. Execution errors are
// not, unless the wrapped cause indicates the connection itself broke
// (driver.ErrBadConn, a network error, or a deadline hit mid-query).
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var connectErr *ConnectError
	if errors.As(err, &connectErr) {
		return true
	}

	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
