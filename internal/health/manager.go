package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vettabase/query-viz/internal/connector"
)

// State represents the current state of a managed connection.
type State string

const (
	// StateUnestablished means no connection attempt has succeeded yet.
	// Only seen during startup.
	StateUnestablished State = "unestablished"

	// StateConnected means the last connection attempt succeeded and the
	// handle is available for use.
	StateConnected State = "connected"

	// StateFailed means the connection is down and the healer owns it.
	// A connection leaves this state only through a successful reconnect.
	StateFailed State = "failed"
)

// Target pairs a connection spec with the connector that serves it.
type Target struct {
	Spec      connector.Spec
	Connector connector.Connector
}

// Options holds tuning knobs for the manager.
type Options struct {
	// GracePeriod is how long startup keeps retrying failed connections
	// before giving up on them.
	GracePeriod time.Duration

	// GraceRetryInterval is the pause between startup retry rounds.
	GraceRetryInterval time.Duration

	// HealInterval is how often the healer retries failed connections
	// after startup.
	HealInterval time.Duration
}

// DefaultOptions returns Options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		GracePeriod:        30 * time.Second,
		GraceRetryInterval: 5 * time.Second,
		HealInterval:       30 * time.Second,
	}
}

// Logger defines the logging interface for the manager.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// connState tracks one connection. Guarded by Manager.mu.
type connState struct {
	target  Target
	state   State
	handle  connector.Handle
	lastErr error
	since   time.Time

	// connecting is the single-flight guard: while set, no other
	// goroutine may start an attempt for this connection.
	connecting bool
}

// Snapshot is a point-in-time view of one connection's state.
type Snapshot struct {
	Name      string    `json:"name"`
	Kind      string    `json:"dbms"`
	State     State     `json:"state"`
	Addr      string    `json:"address,omitempty"`
	LastError string    `json:"last_error,omitempty"`
	Since     time.Time `json:"since"`
}

// Manager owns the lifecycle of every configured connection: the startup
// grace protocol, the post-startup healer, and handle lending to callers.
type Manager struct {
	opts   Options
	logger Logger

	mu            sync.RWMutex
	conns         map[string]*connState
	healerRunning bool
	started       bool

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewManager creates a manager for the given targets. Start must be
// called before handles can be borrowed.
func NewManager(targets []Target, opts Options) *Manager {
	if opts.GracePeriod == 0 {
		opts.GracePeriod = 30 * time.Second
	}
	if opts.GraceRetryInterval == 0 {
		opts.GraceRetryInterval = 5 * time.Second
	}
	if opts.HealInterval == 0 {
		opts.HealInterval = 30 * time.Second
	}

	conns := make(map[string]*connState, len(targets))
	for _, t := range targets {
		conns[t.Spec.Name] = &connState{
			target: t,
			state:  StateUnestablished,
			since:  time.Now(),
		}
	}

	return &Manager{
		opts:   opts,
		logger: noopLogger{},
		conns:  conns,
	}
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	m.logger = logger
}

// Start runs the startup protocol: one concurrent connect round for every
// connection, then retry rounds every GraceRetryInterval until either all
// connections are up or the grace period expires. Connections still down
// when the grace period ends are marked failed and handed to the healer.
//
// Returns:
//   - error: ErrNoConnections if nothing connected within the grace
//     period, ctx.Err() if the context was cancelled, nil otherwise
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return fmt.Errorf("health: manager already started")
	}
	m.started = true
	m.mu.Unlock()

	ctx, m.cancel = context.WithCancel(ctx)

	deadline := time.Now().Add(m.opts.GracePeriod)
	for {
		m.connectRound(ctx, m.pendingNames())

		pending := m.pendingNames()
		if len(pending) == 0 {
			break
		}
		if time.Now().After(deadline) {
			break
		}

		wait := m.opts.GraceRetryInterval
		if remaining := time.Until(deadline); remaining < wait {
			wait = remaining
		}
		m.logger.Info("waiting before startup retry",
			"pending", pending,
			"interval", wait,
		)
		select {
		case <-ctx.Done():
			m.Close()
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	connected, failed := m.splitStates()
	if len(connected) == 0 {
		m.Close()
		return ErrNoConnections
	}

	m.logger.Info("startup complete",
		"connected", connected,
		"failed", failed,
	)
	if len(failed) > 0 {
		m.ensureHealer(ctx)
	}
	return nil
}

// connectRound attempts every named connection concurrently and waits for
// all attempts to finish.
func (m *Manager) connectRound(ctx context.Context, names []string) {
	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			m.tryConnect(ctx, name)
		}(name)
	}
	wg.Wait()
}

// tryConnect runs a single connection attempt under the single-flight
// guard. Returns true if the connection is established afterwards.
func (m *Manager) tryConnect(ctx context.Context, name string) bool {
	m.mu.Lock()
	cs, ok := m.conns[name]
	if !ok || cs.state == StateConnected || cs.connecting {
		connected := ok && cs.state == StateConnected
		m.mu.Unlock()
		return connected
	}
	cs.connecting = true
	target := cs.target
	m.mu.Unlock()

	handle, err := target.Connector.Connect(ctx, target.Spec)

	m.mu.Lock()
	defer m.mu.Unlock()
	cs.connecting = false
	if err != nil {
		cs.lastErr = err
		// Keep the current state: unestablished stays unestablished
		// during startup, failed stays failed under the healer.
		m.logger.Warn("connection attempt failed",
			"connection", name,
			"error", err,
		)
		return false
	}

	cs.handle = handle
	cs.state = StateConnected
	cs.lastErr = nil
	cs.since = time.Now()
	m.logger.Info("connection established",
		"connection", name,
		"address", handle.Addr(),
	)
	return true
}

// pendingNames returns connections that are not yet connected.
func (m *Manager) pendingNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var names []string
	for name, cs := range m.conns {
		if cs.state != StateConnected {
			names = append(names, name)
		}
	}
	return names
}

// splitStates finalises the post-grace states: anything not connected
// becomes failed. Returns the connected and failed names.
func (m *Manager) splitStates() (connected, failed []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for name, cs := range m.conns {
		if cs.state == StateConnected {
			connected = append(connected, name)
			continue
		}
		cs.state = StateFailed
		cs.since = time.Now()
		failed = append(failed, name)
	}
	return connected, failed
}

// ensureHealer starts the healer goroutine if it is not already running.
// At most one healer exists at any time; it manages every failed
// connection, not just the one that triggered it.
func (m *Manager) ensureHealer(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.healerRunning {
		return
	}
	m.healerRunning = true
	m.wg.Add(1)
	go m.healLoop(ctx)
}

// healLoop retries failed connections every HealInterval and exits once
// none remain.
func (m *Manager) healLoop(ctx context.Context) {
	defer m.wg.Done()

	m.logger.Info("healer started", "interval", m.opts.HealInterval)
	ticker := time.NewTicker(m.opts.HealInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.mu.Lock()
			m.healerRunning = false
			m.mu.Unlock()
			return
		case <-ticker.C:
		}

		for _, name := range m.failedNames() {
			if m.tryConnect(ctx, name) {
				m.logger.Info("connection healed", "connection", name)
			}
		}

		// The exit decision and the flag share the lock, so a failure
		// reported concurrently either sees the healer still running or
		// starts a fresh one.
		m.mu.Lock()
		remaining := 0
		for _, cs := range m.conns {
			if cs.state == StateFailed {
				remaining++
			}
		}
		if remaining == 0 {
			m.healerRunning = false
			m.mu.Unlock()
			m.logger.Info("healer finished, all connections up")
			return
		}
		m.mu.Unlock()
	}
}

func (m *Manager) failedNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var names []string
	for name, cs := range m.conns {
		if cs.state == StateFailed {
			names = append(names, name)
		}
	}
	return names
}

// Borrow returns the connector and live handle for a connection.
//
// Returns:
//   - connector.Connector: The connector serving the connection
//   - connector.Handle: The established handle
//   - error: ErrUnknownConnection or ErrNotConnected
func (m *Manager) Borrow(name string) (connector.Connector, connector.Handle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cs, ok := m.conns[name]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownConnection, name)
	}
	if cs.state != StateConnected {
		return nil, nil, fmt.Errorf("%w: %q", ErrNotConnected, name)
	}
	return cs.target.Connector, cs.handle, nil
}

// ReportFailure tells the manager a borrowed handle misbehaved. Only
// retryable failures demote the connection; query-level errors such as
// bad SQL leave it connected.
func (m *Manager) ReportFailure(ctx context.Context, name string, err error) {
	if !connector.IsRetryable(err) {
		return
	}

	m.mu.Lock()
	cs, ok := m.conns[name]
	if !ok || cs.state != StateConnected {
		m.mu.Unlock()
		return
	}
	handle := cs.handle
	cs.handle = nil
	cs.state = StateFailed
	cs.lastErr = err
	cs.since = time.Now()
	m.mu.Unlock()

	if handle != nil {
		_ = handle.Close()
	}
	m.logger.Warn("connection demoted to failed",
		"connection", name,
		"error", err,
	)
	m.ensureHealer(ctx)
}

// States returns a snapshot of every connection, keyed by name.
func (m *Manager) States() map[string]Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]Snapshot, len(m.conns))
	for name, cs := range m.conns {
		snap := Snapshot{
			Name:  name,
			Kind:  cs.target.Connector.Kind(),
			State: cs.state,
			Since: cs.since,
		}
		if cs.handle != nil {
			snap.Addr = cs.handle.Addr()
		}
		if cs.lastErr != nil {
			snap.LastError = cs.lastErr.Error()
		}
		out[name] = snap
	}
	return out
}

// ConnectedCount returns how many connections are currently established.
func (m *Manager) ConnectedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, cs := range m.conns {
		if cs.state == StateConnected {
			n++
		}
	}
	return n
}

// Close stops the healer and releases every handle. Safe to call more
// than once.
func (m *Manager) Close() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	for name, cs := range m.conns {
		if cs.handle == nil {
			continue
		}
		if err := cs.handle.Close(); err != nil {
			m.logger.Warn("closing connection", "connection", name, "error", err)
		}
		cs.handle = nil
		cs.state = StateFailed
	}
}
