// Package repository stores the review log that retention reports are
// computed from.
package repository

import (
	"context"
	"sync"
	"time"

	"github.com/okian/recall/internal/domain/model"
)

// Store is an append-only review log.
type Store interface {
	// Append stores e. An event whose EventID is already stored is ignored.
	Append(ctx context.Context, e model.StudyEvent) error

	// Events returns a copy of every stored event, in no particular order.
	Events(ctx context.Context) ([]model.StudyEvent, error)

	// Count returns the number of stored events.
	Count(ctx context.Context) (int, error)

	// Close releases background goroutines and handles.
	Close() error
}

// ticker runs fn every interval until ctx is done or stop is closed.
func ticker(ctx context.Context, wg *sync.WaitGroup, stop <-chan struct{}, interval time.Duration, fn func()) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-t.C:
				fn()
			}
		}
	}()
}

func sinceMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
