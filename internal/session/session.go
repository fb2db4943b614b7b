// Package session holds the dashboard's single piece of mutable state: the
// snapshot of the last successful load and the most recent filter selection.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/salesdash-io/salesdash/internal/analytics"
	"github.com/salesdash-io/salesdash/internal/ingestion"
	"github.com/salesdash-io/salesdash/internal/metrics"
)

// ErrNotLoaded is returned by reads before any load has succeeded, or after
// the last load failed.
var ErrNotLoaded = errors.New("dataset not loaded")

type (
	// Session is safe for concurrent use. The snapshot it hands out is
	// immutable, so aggregation runs without holding the lock.
	Session struct {
		source      ingestion.Source
		builder     *ingestion.Builder
		metrics     *metrics.Registry
		logger      *slog.Logger
		now         func() time.Time
		loadTimeout time.Duration

		// reloadMu serializes reloads; mutex guards the fields below it.
		reloadMu sync.Mutex
		mutex    sync.RWMutex

		snapshot   *analytics.Snapshot
		lastErr    error
		selection  analytics.Selection
		generation uint64
		current    *Result
	}

	// Result is one computed view. Stale is set when a newer View call started
	// before this one finished; the caller should discard it.
	Result struct {
		View       analytics.ViewModel
		Generation uint64
		Stale      bool
	}

	// Status describes the session for readiness probes and the inspect tool.
	Status struct {
		Loaded     bool
		SnapshotID string
		LoadedAt   time.Time
		LastError  error
		Report     *ingestion.BuildReport
	}

	// Option configures a Session.
	Option func(*Session)
)

// WithLogger sets the logger for load outcomes.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithMetrics records load outcomes and snapshot sizes in registry.
func WithMetrics(registry *metrics.Registry) Option {
	return func(s *Session) { s.metrics = registry }
}

// WithBuilder replaces the default builder, typically to install aliases.
func WithBuilder(builder *ingestion.Builder) Option {
	return func(s *Session) { s.builder = builder }
}

// WithClock replaces time.Now for load timestamps and durations.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithLoadTimeout bounds every Reload. Zero means no bound beyond the caller's
// context.
func WithLoadTimeout(d time.Duration) Option {
	return func(s *Session) { s.loadTimeout = d }
}

// New creates an empty session over source. Nothing is fetched until Reload.
func New(source ingestion.Source, opts ...Option) *Session {
	s := &Session{
		source:    source,
		now:       time.Now,
		selection: analytics.AllSelection(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}

	if s.builder == nil {
		s.builder = ingestion.NewBuilder(nil, s.logger)
	}

	return s
}

// Reload fetches every resource, rebuilds the tables and swaps in a new
// snapshot. On failure the session is left empty and the error wraps
// ingestion.ErrSourceUnavailable; the previous snapshot is not kept.
func (s *Session) Reload(ctx context.Context) (*ingestion.BuildReport, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	if s.loadTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, s.loadTimeout)
		defer cancel()
	}

	start := s.now()

	raw, err := ingestion.Load(ctx, s.source)
	if err != nil {
		s.fail(err)
		s.metrics.ObserveLoad(err, s.now().Sub(start))

		s.logger.Error("Dataset load failed",
			slog.String("error", err.Error()),
			slog.Duration("duration", s.now().Sub(start)))

		return nil, err
	}

	tables, report := s.builder.Build(raw)
	snap := analytics.NewSnapshot(tables, report, s.now())

	s.mutex.Lock()
	s.snapshot = snap
	s.lastErr = nil
	s.current = nil
	s.mutex.Unlock()

	elapsed := s.now().Sub(start)

	s.metrics.ObserveLoad(nil, elapsed)
	s.metrics.ObserveSnapshot(report.Facts, snap.LoadedAt)

	for _, d := range report.Drops {
		s.metrics.ObserveDrop(string(d.Kind), string(d.Reason), d.Count)
	}

	s.logger.Info("Dataset loaded",
		slog.String("snapshot_id", snap.ID.String()),
		slog.Int("customers", report.Customers),
		slog.Int("products", report.Products),
		slog.Int("employees", report.Employees),
		slog.Int("facts", report.Facts),
		slog.Int("unique_orders", report.UniqueOrders),
		slog.Int("dropped", report.Dropped()),
		slog.Duration("duration", elapsed))

	return report, nil
}

func (s *Session) fail(err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.snapshot = nil
	s.current = nil
	s.lastErr = err

	s.metrics.ResetSnapshot()
}

// Snapshot returns the current snapshot, or ErrNotLoaded.
func (s *Session) Snapshot() (*analytics.Snapshot, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() (*analytics.Snapshot, error) {
	if s.snapshot != nil {
		return s.snapshot, nil
	}

	if s.lastErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotLoaded, s.lastErr)
	}

	return nil, ErrNotLoaded
}

// FilterOptions returns the values the filter UI offers for the current
// snapshot.
func (s *Session) FilterOptions() (analytics.FilterOptions, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return analytics.FilterOptions{}, err
	}

	return snap.FilterOptions(), nil
}

// View resolves sel against the current snapshot and computes the dashboard.
// Every call takes a new generation; a result whose generation was overtaken
// while computing is returned with Stale set and does not replace the
// retained view.
func (s *Session) View(ctx context.Context, sel analytics.Selection) (Result, error) {
	s.mutex.Lock()

	snap, err := s.snapshotLocked()
	if err != nil {
		s.mutex.Unlock()

		return Result{}, err
	}

	s.generation++
	gen := s.generation
	s.selection = sel

	s.mutex.Unlock()

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	start := time.Now()
	view := analytics.ComputeView(snap, snap.Resolve(sel))
	res := Result{View: view, Generation: gen}

	s.mutex.Lock()
	if gen == s.generation && snap == s.snapshot {
		s.current = &res
	} else {
		res.Stale = true
	}
	s.mutex.Unlock()

	s.metrics.ObserveView(time.Since(start), res.Stale)

	return res, nil
}

// Export returns the denormalized rows that pass sel.
func (s *Session) Export(sel analytics.Selection) ([]analytics.DenormalizedRow, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}

	return analytics.FilteredRows(snap, snap.Resolve(sel)), nil
}

// Current returns the newest non-stale view, if any.
func (s *Session) Current() (Result, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if s.current == nil {
		return Result{}, false
	}

	return *s.current, true
}

// Selection returns the last submitted selection.
func (s *Session) Selection() analytics.Selection {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.selection
}

// Status reports whether a snapshot is loaded, and the last load error.
func (s *Session) Status() Status {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	st := Status{Loaded: s.snapshot != nil, LastError: s.lastErr}
	if s.snapshot != nil {
		st.SnapshotID = s.snapshot.ID.String()
		st.LoadedAt = s.snapshot.LoadedAt
		st.Report = s.snapshot.Report
	}

	return st
}
