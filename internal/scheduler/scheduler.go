package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vettabase/query-viz/internal/health"
	"github.com/vettabase/query-viz/internal/metrics"
)

// Query is one scheduled collection job.
type Query struct {
	// Name identifies the query and its series.
	Name string

	// Text is the SQL to execute.
	Text string

	// Connection names the connection the query runs against.
	Connection string

	// Column selects the result column; empty means the single column.
	Column string

	// Interval is the collection period. Ignored when Once is set.
	Interval time.Duration

	// Once runs the query until its first success, then stops.
	Once bool
}

// Options holds tuning knobs for the scheduler.
type Options struct {
	// OnceRetryInterval is the pause between attempts for one-shot
	// queries that have not succeeded yet.
	OnceRetryInterval time.Duration
}

// Logger defines the logging interface for the scheduler.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Scheduler runs one worker goroutine per query. Workers tick at the
// query's own interval regardless of connection state: while the
// connection is down a tick is skipped silently, and the next tick
// happens one interval later with no backoff.
type Scheduler struct {
	queries []Query
	manager *health.Manager
	store   *metrics.Store
	opts    Options
	logger  Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// defaultInterval replaces a missing interval on a periodic query.
// time.NewTicker rejects non-positive periods, so the value is fixed
// here rather than trusted to be validated upstream.
const defaultInterval = time.Second

// New creates a scheduler. Start must be called to begin collection.
func New(queries []Query, manager *health.Manager, store *metrics.Store, opts Options) *Scheduler {
	if opts.OnceRetryInterval == 0 {
		opts.OnceRetryInterval = 5 * time.Second
	}
	qs := make([]Query, len(queries))
	copy(qs, queries)
	for i := range qs {
		if !qs[i].Once && qs[i].Interval <= 0 {
			qs[i].Interval = defaultInterval
		}
	}
	return &Scheduler{
		queries: qs,
		manager: manager,
		store:   store,
		opts:    opts,
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the scheduler.
func (s *Scheduler) SetLogger(logger Logger) {
	s.logger = logger
}

// Start launches one worker per query. It returns immediately; workers
// run until Stop is called or the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.New("scheduler: already started")
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	for _, q := range s.queries {
		s.wg.Add(1)
		if q.Once {
			go s.runOnce(ctx, q)
		} else {
			go s.runPeriodic(ctx, q)
		}
	}
	s.logger.Info("scheduler started", "queries", len(s.queries))
	return nil
}

// Stop cancels all workers and waits for them to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

// runPeriodic collects a query on every tick of its interval. A tick
// that finds the connection down or the query failing is logged and
// dropped; the schedule itself never shifts.
func (s *Scheduler) runPeriodic(ctx context.Context, q Query) {
	defer s.wg.Done()

	ticker := time.NewTicker(q.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.collect(ctx, q)
		}
	}
}

// runOnce retries a one-shot query until its first success, then exits.
func (s *Scheduler) runOnce(ctx context.Context, q Query) {
	defer s.wg.Done()

	for {
		if s.collect(ctx, q) {
			s.logger.Info("one-shot query completed", "query", q.Name)
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.opts.OnceRetryInterval):
		}
	}
}

// collect runs one execution of the query and stores the result.
// Returns true on success.
func (s *Scheduler) collect(ctx context.Context, q Query) bool {
	conn, handle, err := s.manager.Borrow(q.Connection)
	if err != nil {
		// Down connections are the healer's problem; skip quietly.
		s.logger.Debug("skipping query, connection unavailable",
			"query", q.Name,
			"connection", q.Connection,
		)
		return false
	}

	value, err := conn.Execute(ctx, handle, q.Text, q.Column)
	if err != nil {
		s.logger.Warn("query execution failed",
			"query", q.Name,
			"connection", q.Connection,
			"error", err,
		)
		s.store.RecordQueryError(q.Name)
		s.manager.ReportFailure(ctx, q.Connection, err)
		return false
	}

	sample := metrics.Sample{Time: time.Now(), Value: value}
	if err := s.store.Append(q.Name, sample); err != nil {
		s.logger.Error("storing sample", "query", q.Name, "error", err)
		return false
	}
	s.logger.Debug("sample collected", "query", q.Name, "value", value)
	return true
}
