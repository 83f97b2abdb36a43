package repository

import (
	"context"
	"sync"
	"time"

	"github.com/okian/recall/internal/domain/model"
	"github.com/okian/recall/pkg/metrics"
)

// MemoryStore keeps the review log in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	events []model.StudyEvent
	ids    map[string]struct{}
	closed bool

	wg       sync.WaitGroup
	stopChan chan struct{}
}

// NewMemoryStore constructs an empty in-memory review log.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	o := newOptions(opts)
	s := &MemoryStore{
		ids:      make(map[string]struct{}),
		stopChan: make(chan struct{}),
	}

	metrics.UpdateStoreEvents(0)
	ticker(ctx, &s.wg, s.stopChan, o.metricsUpdateInterval, s.updateMetrics)

	return s
}

// Append implements Store.Append.
func (s *MemoryStore) Append(_ context.Context, e model.StudyEvent) error {
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		metrics.RecordErrorByComponent("repository", "closed")
		return ErrClosed
	}
	if e.EventID != "" {
		if _, ok := s.ids[e.EventID]; ok {
			metrics.RecordEventDuplicate()
			return nil
		}
		s.ids[e.EventID] = struct{}{}
	}
	s.events = append(s.events, e)

	metrics.RecordStoreAppend(sinceMs(start))
	return nil
}

// Events implements Store.Events.
func (s *MemoryStore) Events(_ context.Context) ([]model.StudyEvent, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreQueryLatency(sinceMs(start)) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	out := make([]model.StudyEvent, len(s.events))
	copy(out, s.events)
	return out, nil
}

// Count implements Store.Count.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events), nil
}

// Close stops the metrics goroutine. Later calls fail with ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.stopChan)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

func (s *MemoryStore) updateMetrics() {
	s.mu.RLock()
	n := len(s.events)
	s.mu.RUnlock()
	metrics.UpdateStoreEvents(n)
}
