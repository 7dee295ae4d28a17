package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vettabase/query-viz/internal/connector"
	"github.com/vettabase/query-viz/internal/health"
	"github.com/vettabase/query-viz/internal/metrics"
)

// stubConnector serves canned values and programmable failures.
type stubConnector struct {
	mu           sync.Mutex
	value        float64
	connectFails map[string]int // remaining failing connects, -1 = always
	execFails    int            // remaining failing executions
	execErr      error
	executions   int
}

func newStubConnector(value float64) *stubConnector {
	return &stubConnector{value: value, connectFails: make(map[string]int)}
}

func (c *stubConnector) Kind() string { return "stub" }

func (c *stubConnector) Info() connector.Info { return connector.Info{Name: "QV-Stub"} }

func (c *stubConnector) Capabilities() connector.Capabilities { return connector.Capabilities{} }

func (c *stubConnector) Connect(ctx context.Context, spec connector.Spec) (connector.Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if remaining := c.connectFails[spec.Name]; remaining != 0 {
		if remaining > 0 {
			c.connectFails[spec.Name]--
		}
		return nil, &connector.ConnectError{Conn: spec.Name, Err: errors.New("refused")}
	}
	return &stubHandle{addr: spec.Name}, nil
}

func (c *stubConnector) Execute(ctx context.Context, h connector.Handle, query, column string) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.executions++
	if c.execFails != 0 {
		if c.execFails > 0 {
			c.execFails--
		}
		return 0, c.execErr
	}
	return c.value, nil
}

func (c *stubConnector) Close(h connector.Handle) error { return h.Close() }

type stubHandle struct{ addr string }

func (h *stubHandle) Addr() string { return h.addr }
func (h *stubHandle) Close() error { return nil }

func healthOptions() health.Options {
	return health.Options{
		GracePeriod:        100 * time.Millisecond,
		GraceRetryInterval: 20 * time.Millisecond,
		HealInterval:       20 * time.Millisecond,
	}
}

func startManager(t *testing.T, c connector.Connector, names ...string) *health.Manager {
	t.Helper()
	targets := make([]health.Target, 0, len(names))
	for _, name := range names {
		targets = append(targets, health.Target{
			Spec:      connector.Spec{Name: name, Candidates: []string{name}},
			Connector: c,
		})
	}
	mgr := health.NewManager(targets, healthOptions())
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("health.Start() error = %v", err)
	}
	t.Cleanup(mgr.Close)
	return mgr
}

func newTestStore(t *testing.T, queries ...Query) *metrics.Store {
	t.Helper()
	store := metrics.NewStore(time.Hour, 1000, prometheus.NewRegistry())
	for _, q := range queries {
		if err := store.Register(metrics.SeriesMeta{Name: q.Name, Interval: q.Interval}); err != nil {
			t.Fatalf("Register(%q) error = %v", q.Name, err)
		}
	}
	return store
}

func sampleCount(store *metrics.Store, name string) int {
	for _, series := range store.Snapshot() {
		if series.Meta.Name == name {
			return len(series.Samples)
		}
	}
	return -1
}

func TestIntervalsAreIndependent(t *testing.T) {
	stub := newStubConnector(1)
	mgr := startManager(t, stub, "db1")

	fast := Query{Name: "fast", Text: "SELECT 1", Connection: "db1", Interval: 20 * time.Millisecond}
	slow := Query{Name: "slow", Text: "SELECT 1", Connection: "db1", Interval: 100 * time.Millisecond}
	store := newTestStore(t, fast, slow)

	sched := New([]Query{fast, slow}, mgr, store, Options{})
	if err := sched.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	time.Sleep(250 * time.Millisecond)
	sched.Stop()

	fastCount := sampleCount(store, "fast")
	slowCount := sampleCount(store, "slow")
	if fastCount < 6 {
		t.Errorf("fast query collected %d samples, want at least 6", fastCount)
	}
	if slowCount < 1 || slowCount > 4 {
		t.Errorf("slow query collected %d samples, want 1..4", slowCount)
	}
	if fastCount <= slowCount {
		t.Errorf("fast count %d not greater than slow count %d", fastCount, slowCount)
	}
}

func TestSkipsWhileDisconnected(t *testing.T) {
	stub := newStubConnector(1)
	stub.mu.Lock()
	stub.connectFails["db2"] = -1
	stub.mu.Unlock()

	mgr := startManager(t, stub, "db1", "db2")

	q := Query{Name: "q1", Text: "SELECT 1", Connection: "db2", Interval: 20 * time.Millisecond}
	store := newTestStore(t, q)

	sched := New([]Query{q}, mgr, store, Options{})
	if err := sched.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	sched.Stop()

	if got := sampleCount(store, "q1"); got != 0 {
		t.Errorf("collected %d samples on a dead connection, want 0", got)
	}
	stub.mu.Lock()
	executions := stub.executions
	stub.mu.Unlock()
	if executions != 0 {
		t.Errorf("executed %d times on a dead connection, want 0", executions)
	}
}

func TestResumesAfterHeal(t *testing.T) {
	stub := newStubConnector(7)
	stub.mu.Lock()
	stub.connectFails["db1"] = 8
	stub.mu.Unlock()

	// db2 keeps startup alive while db1 starts out failed.
	mgr := startManager(t, stub, "db1", "db2")

	q := Query{Name: "q1", Text: "SELECT 1", Connection: "db1", Interval: 20 * time.Millisecond}
	store := newTestStore(t, q)

	sched := New([]Query{q}, mgr, store, Options{})
	if err := sched.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer sched.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if sampleCount(store, "q1") > 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("no samples collected after connection healed")
}

func TestExecutionErrorKeepsConnection(t *testing.T) {
	stub := newStubConnector(3)
	stub.mu.Lock()
	stub.execFails = 2
	stub.execErr = &connector.ExecutionError{Conn: "db1", Err: errors.New("bad sql")}
	stub.mu.Unlock()

	mgr := startManager(t, stub, "db1")

	q := Query{Name: "q1", Text: "SELECT broken", Connection: "db1", Interval: 20 * time.Millisecond}
	store := newTestStore(t, q)

	sched := New([]Query{q}, mgr, store, Options{})
	if err := sched.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer sched.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if sampleCount(store, "q1") > 0 {
			if mgr.ConnectedCount() != 1 {
				t.Errorf("ConnectedCount() = %d, want 1 after query-level errors", mgr.ConnectedCount())
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("query never recovered from transient execution errors")
}

func TestOnceQueryRunsOnce(t *testing.T) {
	stub := newStubConnector(42)
	stub.mu.Lock()
	stub.execFails = 2
	stub.execErr = &connector.ExecutionError{Conn: "db1", Err: errors.New("not ready")}
	stub.mu.Unlock()

	mgr := startManager(t, stub, "db1")

	q := Query{Name: "version", Text: "SELECT VERSION()", Connection: "db1", Once: true}
	store := newTestStore(t, q)

	sched := New([]Query{q}, mgr, store, Options{OnceRetryInterval: 20 * time.Millisecond})
	if err := sched.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer sched.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if sampleCount(store, "version") == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if got := sampleCount(store, "version"); got != 1 {
		t.Fatalf("one-shot query collected %d samples, want 1", got)
	}

	// The worker must not keep collecting after its first success.
	time.Sleep(100 * time.Millisecond)
	if got := sampleCount(store, "version"); got != 1 {
		t.Errorf("one-shot query collected %d samples after success, want 1", got)
	}
}

func TestZeroIntervalGetsDefault(t *testing.T) {
	stub := newStubConnector(1)
	mgr := startManager(t, stub, "db1")

	// A zero interval must not reach time.NewTicker, which panics on it.
	q := Query{Name: "q1", Text: "SELECT 1", Connection: "db1"}
	store := newTestStore(t, q)

	sched := New([]Query{q}, mgr, store, Options{})
	if got := sched.queries[0].Interval; got != defaultInterval {
		t.Errorf("interval = %v, want %v", got, defaultInterval)
	}
	if err := sched.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	sched.Stop()
}

func TestStart_Twice(t *testing.T) {
	stub := newStubConnector(1)
	mgr := startManager(t, stub, "db1")
	store := newTestStore(t)

	sched := New(nil, mgr, store, Options{})
	if err := sched.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer sched.Stop()

	if err := sched.Start(context.Background()); err == nil {
		t.Errorf("second Start() succeeded, want error")
	}
}
