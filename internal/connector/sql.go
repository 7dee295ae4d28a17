package connector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
)

// poolSize is the connection pool size per handle. Two queries sharing a
// connection may execute concurrently, so a single socket is not enough.
const poolSize = 5

// connMaxLifetime bounds how long a pooled socket is reused before being
// reopened, so half-dead sockets don't linger forever.
const connMaxLifetime = 30 * time.Minute

// sqlConnector is the shared implementation behind all database/sql-backed
// connector kinds. Each kind supplies its driver name, metadata and a DSN
// builder.
type sqlConnector struct {
	kind   string
	driver string
	info   Info
	caps   Capabilities

	// dsn builds a driver DSN for one candidate address.
	dsn func(spec Spec, addr string) string

	// singleConn forces the pool down to one connection (sqlite).
	singleConn bool
}

// sqlHandle wraps a sqlx pool bound to the candidate that won failover.
type sqlHandle struct {
	db      *sqlx.DB
	addr    string
	timeout time.Duration

	closeOnce sync.Once
	closeErr  error
}

func (h *sqlHandle) Addr() string {
	return h.addr
}

// Close releases the pool. Idempotent.
func (h *sqlHandle) Close() error {
	h.closeOnce.Do(func() {
		h.closeErr = h.db.Close()
	})
	return h.closeErr
}

func (c *sqlConnector) Kind() string {
	return c.kind
}

func (c *sqlConnector) Info() Info {
	return c.info
}

func (c *sqlConnector) Capabilities() Capabilities {
	return c.caps
}

// Connect tries each candidate address in the declared order and returns
// a pooled handle bound to the first responsive one. Remaining candidates
// are not attempted after a success.
func (c *sqlConnector) Connect(ctx context.Context, spec Spec) (Handle, error) {
	if len(spec.Candidates) == 0 {
		return nil, &ConnectError{Conn: spec.Name, Err: ErrNoCandidates}
	}

	var lastErr error
	for _, addr := range spec.Candidates {
		db, err := sqlx.Open(c.driver, c.dsn(spec, addr))
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", addr, err)
			continue
		}

		if c.singleConn {
			db.SetMaxOpenConns(1)
			db.SetMaxIdleConns(1)
		} else {
			db.SetMaxOpenConns(poolSize)
			db.SetMaxIdleConns(poolSize)
		}
		db.SetConnMaxLifetime(connMaxLifetime)

		// sql.Open is lazy; the ping is what actually probes the candidate.
		pingCtx, cancel := context.WithTimeout(ctx, spec.Timeout)
		err = db.PingContext(pingCtx)
		cancel()
		if err != nil {
			_ = db.Close()
			lastErr = fmt.Errorf("%s: %w", addr, err)
			continue
		}

		return &sqlHandle{db: db, addr: addr, timeout: spec.Timeout}, nil
	}

	return nil, &ConnectError{Conn: spec.Name, Err: lastErr}
}

// Execute runs the query and extracts a numeric value from the first row.
func (c *sqlConnector) Execute(ctx context.Context, h Handle, query, column string) (float64, error) {
	sh, ok := h.(*sqlHandle)
	if !ok {
		return 0, &ExecutionError{Conn: h.Addr(), Err: ErrBadHandle}
	}

	execCtx, cancel := context.WithTimeout(ctx, sh.timeout)
	defer cancel()

	rows, err := sh.db.QueryxContext(execCtx, query)
	if err != nil {
		return 0, c.classify(sh, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, c.classify(sh, err)
		}
		return 0, &ExecutionError{Conn: sh.addr, Err: ErrNoRows}
	}

	row := map[string]any{}
	if err := rows.MapScan(row); err != nil {
		return 0, c.classify(sh, err)
	}

	value, err := extractValue(row, column)
	if err != nil {
		return 0, &ExecutionError{Conn: sh.addr, Err: err}
	}
	return value, nil
}

// classify wraps a driver error: broken-connection conditions become
// retryable ConnectErrors, everything else is an ExecutionError.
func (c *sqlConnector) classify(sh *sqlHandle, err error) error {
	if IsRetryable(err) {
		return &ConnectError{Conn: sh.addr, Err: err}
	}
	return &ExecutionError{Conn: sh.addr, Err: err}
}

// Close releases the handle. Idempotent; a nil handle is a no-op.
func (c *sqlConnector) Close(h Handle) error {
	if h == nil {
		return nil
	}
	return h.Close()
}
