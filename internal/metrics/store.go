package metrics

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Sample is one collected data point.
type Sample struct {
	Time  time.Time
	Value float64
}

// SeriesMeta describes one series. Registered once at startup.
type SeriesMeta struct {
	// Name is the query name the series belongs to.
	Name string

	// Description is the human-readable label used on charts.
	Description string

	// Color is the chart line color, empty for palette assignment.
	Color string

	// Interval is the collection interval, zero for one-shot queries.
	Interval time.Duration
}

// Series is a snapshot of one series: its metadata plus a copy of its
// samples in append order.
type Series struct {
	Meta    SeriesMeta
	Samples []Sample
}

// series is the live storage behind one registered series. Each series
// carries its own lock so appends to different series never contend.
type series struct {
	mu      sync.Mutex
	meta    SeriesMeta
	samples []Sample
}

// Store holds collected samples in memory, bounded by a retention window
// and a per-series point cap.
type Store struct {
	retention time.Duration
	maxPoints int

	mu     sync.RWMutex
	series map[string]*series

	samplesTotal *prometheus.CounterVec
	evictedTotal *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	lastValue    *prometheus.GaugeVec
	seriesPoints *prometheus.GaugeVec
}

// NewStore creates a store. Samples older than retention are evicted
// lazily on append and filtered from snapshots; maxPoints caps each
// series regardless of age. reg may be nil to skip instrumentation
// registration.
func NewStore(retention time.Duration, maxPoints int, reg prometheus.Registerer) *Store {
	s := &Store{
		retention: retention,
		maxPoints: maxPoints,
		series:    make(map[string]*series),
		samplesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "queryviz",
			Name:      "samples_total",
			Help:      "Samples collected per query.",
		}, []string{"query"}),
		evictedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "queryviz",
			Name:      "samples_evicted_total",
			Help:      "Samples dropped by retention or the point cap, per query.",
		}, []string{"query"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "queryviz",
			Name:      "query_errors_total",
			Help:      "Failed query executions per query.",
		}, []string{"query"}),
		lastValue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "queryviz",
			Name:      "last_value",
			Help:      "Most recent value collected per query.",
		}, []string{"query"}),
		seriesPoints: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "queryviz",
			Name:      "series_points",
			Help:      "Points currently retained per query.",
		}, []string{"query"}),
	}

	if reg != nil {
		reg.MustRegister(s.samplesTotal, s.evictedTotal, s.errorsTotal, s.lastValue, s.seriesPoints)
	}
	return s
}

// Register adds a series. It must be called before Append for the same
// name; registering a name twice is an error.
func (s *Store) Register(meta SeriesMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.series[meta.Name]; exists {
		return fmt.Errorf("metrics: series %q registered twice", meta.Name)
	}
	s.series[meta.Name] = &series{meta: meta}
	return nil
}

// Append stores one sample on a registered series and evicts anything
// outside the retention window or point cap.
func (s *Store) Append(name string, sample Sample) error {
	s.mu.RLock()
	sr, ok := s.series[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("metrics: unknown series %q", name)
	}

	sr.mu.Lock()
	before := len(sr.samples) + 1
	sr.samples = append(sr.samples, sample)
	sr.samples = s.evict(sr.samples, sample.Time)
	points := len(sr.samples)
	sr.mu.Unlock()

	s.samplesTotal.WithLabelValues(name).Inc()
	if dropped := before - points; dropped > 0 {
		s.evictedTotal.WithLabelValues(name).Add(float64(dropped))
	}
	s.lastValue.WithLabelValues(name).Set(sample.Value)
	s.seriesPoints.WithLabelValues(name).Set(float64(points))
	return nil
}

// evict trims samples older than the retention window, then enforces the
// point cap by dropping from the front. Samples are in append order, so
// both trims are prefix drops.
func (s *Store) evict(samples []Sample, now time.Time) []Sample {
	if s.retention > 0 {
		cutoff := now.Add(-s.retention)
		idx := 0
		for idx < len(samples) && samples[idx].Time.Before(cutoff) {
			idx++
		}
		samples = samples[idx:]
	}
	if s.maxPoints > 0 && len(samples) > s.maxPoints {
		samples = samples[len(samples)-s.maxPoints:]
	}
	return samples
}

// RecordQueryError counts a failed execution for a query.
func (s *Store) RecordQueryError(name string) {
	s.errorsTotal.WithLabelValues(name).Inc()
}

// Snapshot returns a deep copy of every series, sorted by name, with
// samples outside the retention window filtered out. Mutating the
// result does not affect the store.
func (s *Store) Snapshot() []Series {
	s.mu.RLock()
	names := make([]string, 0, len(s.series))
	refs := make([]*series, 0, len(s.series))
	for name, sr := range s.series {
		names = append(names, name)
		refs = append(refs, sr)
	}
	s.mu.RUnlock()

	out := make([]Series, len(names))
	cutoff := time.Now().Add(-s.retention)
	for i, sr := range refs {
		sr.mu.Lock()
		samples := sr.samples
		if s.retention > 0 {
			idx := 0
			for idx < len(samples) && samples[idx].Time.Before(cutoff) {
				idx++
			}
			samples = samples[idx:]
		}
		copied := make([]Sample, len(samples))
		copy(copied, samples)
		out[i] = Series{Meta: sr.meta, Samples: copied}
		sr.mu.Unlock()
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Meta.Name < out[j].Meta.Name })
	return out
}
