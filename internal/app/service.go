// Package service wires ingestion, storage and retention reporting behind
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	eventqueue "github.com/okian/recall/internal/adapters/mq/queue"
	workerpool "github.com/okian/recall/internal/adapters/mq/worker"
	"github.com/okian/recall/internal/adapters/repository"
	"github.com/okian/recall/internal/domain/daybound"
	"github.com/okian/recall/internal/domain/dedupe"
	"github.com/okian/recall/internal/domain/model"
	"github.com/okian/recall/internal/domain/retention"
	"github.com/okian/recall/internal/domain/types"
	"github.com/okian/recall/pkg/logger"
	"github.com/okian/recall/pkg/metrics"
)

const drainTimeout = 30 * time.Second

// Service implements the API dependencies for the retention system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	deduper    dedupe.Deduper
	eventQueue *eventqueue.InMemoryQueue
	workerPool *workerpool.Pool
	clock      *daybound.Clock

	// Configuration
	workerCount     int
	queueSize       int
	dedupeSize      int
	aggregateShards int
	sqlitePath      string
	injectedStore   repository.Store
	now             func() time.Time

	// State
	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of ingestion workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the ingestion queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many event IDs are remembered. Zero or less keeps all.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		s.dedupeSize = size
	}
}

// WithAggregateShards splits report computation across n goroutines.
func WithAggregateShards(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.aggregateShards = n
		}
	}
}

// WithSQLite stores the review log in the SQLite database at path instead
// of memory.
func WithSQLite(path string) Option {
	return func(s *Service) {
		s.sqlitePath = path
	}
}

// WithStore uses store as the review log. The service closes it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.injectedStore = store
	}
}

// WithClock sets the study day boundary. The default is UTC with a 04:00
// rollover.
func WithClock(clock *daybound.Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithNow replaces the wall clock used when no instant is given.
func WithNow(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	clock, _ := daybound.New("UTC", 4) //nolint:errcheck // constant arguments are valid
	s := &Service{
		workerCount:     runtime.NumCPU() * 2,
		queueSize:       100_000,
		dedupeSize:      50_000,
		aggregateShards: runtime.NumCPU(),
		clock:           clock,
		now:             time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start opens the store and starts the ingestion workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting retention service...")

	store, err := s.openStore(ctx)
	if err != nil {
		return err
	}
	s.store = store

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.eventQueue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))

	// A store failure forgets the ID so a client retry is not dropped as a duplicate.
	s.workerPool = workerpool.NewPool(s.workerCount, s.eventQueue, s.store,
		workerpool.WithFailureHandler(func(ctx context.Context, e workerpool.Event, err error) {
			s.deduper.Unrecord(ctx, e.EventID)
		}),
	)
	// Workers outlive the start context; Stop drains them.
	s.workerPool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "retention service started",
		logger.Int("workers", s.workerPool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("aggregateShards", s.aggregateShards),
		logger.String("timezone", s.clock.Location().String()),
		logger.Int("rolloverHour", s.clock.RolloverHour()),
	)

	return nil
}

func (s *Service) openStore(ctx context.Context) (repository.Store, error) {
	switch {
	case s.injectedStore != nil:
		s.logger.Info(ctx, "using injected store")
		return s.injectedStore, nil
	case s.sqlitePath != "":
		store, err := repository.OpenSQLite(ctx, s.sqlitePath)
		if err != nil {
			return nil, fmt.Errorf("open review log: %w", err)
		}
		s.logger.Info(ctx, "using sqlite store", logger.String("path", s.sqlitePath))
		return store, nil
	default:
		s.logger.Info(ctx, "using memory store")
		return repository.NewMemoryStore(context.WithoutCancel(ctx)), nil
	}
}

// Stop drains the queue into the store and closes it.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping retention service...")

	if err := s.workerPool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool did not drain", logger.Error(err))
	}
	if err := s.store.Close(); err != nil {
		s.logger.Error(ctx, "error closing store", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "retention service stopped",
		logger.Int64("processed", s.workerPool.Processed()),
	)
}

// SeenAndRecord atomically checks if an event id was seen and records it if not.
// Returns true if the event was already seen, false if it was newly recorded.
// Before Start nothing is recorded.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.deduper == nil {
		return false
	}
	seen := s.deduper.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordEventDuplicate()
	}
	return seen
}

// Unrecord removes an event ID from the seen list, allowing it to be retried.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.deduper == nil {
		return
	}
	s.deduper.Unrecord(ctx, id)
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}

// Enqueue submits an event for asynchronous storage. Returns false on
// backpressure or when the service is not running.
func (s *Service) Enqueue(ctx context.Context, e model.StudyEvent) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return false
	}

	s.logger.Debug(ctx, "enqueueing review event",
		logger.String("eventID", e.EventID),
		logger.Int64("cardID", e.CardID),
		logger.Int64("ts", e.Timestamp),
		logger.String("kind", e.Kind.String()),
	)
	return s.eventQueue.Enqueue(ctx, e)
}

// NextDayStart returns the next rollover after now on the service clock.
func (s *Service) NextDayStart(now time.Time) int64 {
	return s.clock.NextDayStart(now)
}

// Retention computes the report for the study day containing now. A zero
// now means the current time.
func (s *Service) Retention(ctx context.Context, now time.Time) (types.Retention, error) {
	if now.IsZero() {
		now = s.now()
	}
	return s.RetentionAt(ctx, s.clock.NextDayStart(now))
}

// RetentionAt computes the report for an explicit next day start.
func (s *Service) RetentionAt(ctx context.Context, nextDayStart int64) (types.Retention, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return types.Retention{}, ErrNotStarted
	}

	start := time.Now()
	events, err := s.store.Events(ctx)
	if err != nil {
		metrics.RecordErrorByComponent("service", "store_read")
		return types.Retention{}, fmt.Errorf("read review log: %w", err)
	}

	report, diag, err := retention.CalculateSharded(ctx, events, nextDayStart, s.aggregateShards)
	if err != nil {
		return types.Retention{}, fmt.Errorf("calculate retention: %w", err)
	}

	took := time.Since(start)
	metrics.RecordReport(float64(took.Microseconds()) / 1000)
	publishReport(report, diag)

	s.logger.Debug(ctx, "retention report computed",
		logger.Int64("nextDayStart", nextDayStart),
		logger.Int("events", len(events)),
		logger.Duration("took", took),
	)

	return types.Retention{
		NextDayStart: nextDayStart,
		Windows:      retention.NewTable(nextDayStart),
		Report:       report,
		Diagnostics:  diag,
	}, nil
}

func publishReport(report retention.Report, diag retention.Diagnostics) {
	for _, w := range retention.Windows() {
		b := report.Bucket(w)
		for _, l := range retention.Labels() {
			metrics.UpdateReportBucket(w.String(), l.String(), b.Count(l))
		}
	}
	metrics.UpdateReportExclusions(retention.ExcludedFiltered.String(), diag.FilteredKind)
	metrics.UpdateReportExclusions(retention.ExcludedManual.String(), diag.ManualKind)
	metrics.UpdateReportExclusions(retention.ExcludedUnknownKind.String(), diag.UnknownKind)
	metrics.UpdateReportExclusions(retention.ExcludedSubDay.String(), diag.SubDayStep)
	metrics.UpdateReportExclusions(retention.ExcludedInvalidButton.String(), diag.InvalidButton)
	metrics.UpdateReportExclusions("out_of_range", diag.OutOfRange)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":         s.started,
		"workerCount":     s.workerCount,
		"queueSize":       s.queueSize,
		"dedupeSize":      s.dedupeSize,
		"aggregateShards": s.aggregateShards,
		"timezone":        s.clock.Location().String(),
		"rolloverHour":    s.clock.RolloverHour(),
	}

	if s.started {
		stats["queueLength"] = s.eventQueue.Len(ctx)
		stats["dedupeEntries"] = s.deduper.Size()
		stats["processed"] = s.workerPool.Processed()
		if n, err := s.store.Count(ctx); err == nil {
			stats["storedEvents"] = n
			metrics.UpdateStoreEvents(n)
		}
	}

	return stats
}
