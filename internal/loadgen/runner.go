package loadgen

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/recall/internal/domain/model"
	"github.com/okian/recall/internal/domain/retention"
	"github.com/okian/recall/pkg/logger"
)

// Retry and polling intervals.
const (
	throttleBackoff = 5 * time.Millisecond
	pollInterval    = 100 * time.Millisecond
	progressEvery   = 1000
)

// Run generates the configured review log, submits it and waits until the
// server's report matches the local calculation. The server is expected to
// start with an empty log.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logger.Get().Named("loadgen")
	stats := &Stats{StartTime: time.Now()}

	events, err := Generate(cfg.NumEvents, cfg.Cards, cfg.Days, cfg.NextDayStart, cfg.Seed)
	if err != nil {
		return nil, err
	}
	stats.EventsGenerated = len(events)
	want := retention.Calculate(events, cfg.NextDayStart)
	log.Info(ctx, "generated review log",
		logger.Int("events", len(events)),
		logger.Int("cards", cfg.Cards),
		logger.Int("days", cfg.Days),
		logger.Int64("nextDayStart", cfg.NextDayStart),
	)

	client := NewClient(cfg.BaseURL, cfg.Timeout)

	submitStart := time.Now()
	if err := submitAll(ctx, cfg, client, withDuplicates(events, cfg.DuplicatePct), stats, log); err != nil {
		return stats, err
	}
	stats.SubmitDuration = time.Since(submitStart)
	log.Info(ctx, "submitted review log",
		logger.Int64("submitted", stats.EventsSubmitted),
		logger.Int64("accepted", stats.EventsAccepted),
		logger.Int64("duplicate", stats.EventsDuplicate),
		logger.Int64("throttled", stats.EventsThrottled),
		logger.Int64("failed", stats.EventsFailed),
		logger.Duration("took", stats.SubmitDuration),
	)

	err = waitForReport(ctx, cfg, client, want, stats)
	stats.Duration = time.Since(stats.StartTime)
	if err != nil {
		for _, m := range stats.Mismatches {
			log.Warn(ctx, "report mismatch", logger.String("cell", m))
		}
		return stats, err
	}
	log.Info(ctx, "server report matches local calculation",
		logger.Int64("counted", int64(stats.ServerRetention.Diagnostics.Counted)),
		logger.Duration("took", stats.Duration),
	)
	return stats, nil
}

// withDuplicates appends a resubmission of the first share of events.
func withDuplicates(events []model.StudyEvent, share float64) []model.StudyEvent {
	n := int(float64(len(events)) * share)
	out := make([]model.StudyEvent, 0, len(events)+n)
	out = append(out, events...)
	return append(out, events[:n]...)
}

func submitAll(ctx context.Context, cfg *Config, client *Client, events []model.StudyEvent, stats *Stats, log logger.Logger) error {
	eventChan := make(chan model.StudyEvent, cfg.Workers*2)
	var (
		wg       sync.WaitGroup
		firstErr atomic.Pointer[error]
	)

	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for e := range eventChan {
				if err := submitOne(ctx, client, e, stats); err != nil {
					atomic.AddInt64(&stats.EventsFailed, 1)
					firstErr.CompareAndSwap(nil, &err)
				}
				if n := atomic.AddInt64(&stats.EventsSubmitted, 1); n%progressEvery == 0 {
					log.Debug(ctx, "submission progress", logger.Int64("submitted", n), logger.Int("total", len(events)))
				}
			}
		}()
	}

feed:
	for _, e := range events {
		select {
		case <-ctx.Done():
			break feed
		case eventChan <- e:
		}
	}
	close(eventChan)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("submission interrupted: %w", err)
	}
	if p := firstErr.Load(); p != nil {
		return *p
	}
	return nil
}

// submitOne posts e, retrying while the server applies backpressure.
func submitOne(ctx context.Context, client *Client, e model.StudyEvent, stats *Stats) error {
	for {
		outcome, err := client.Submit(ctx, e)
		if err != nil {
			return err
		}
		switch outcome {
		case outcomeAccepted:
			atomic.AddInt64(&stats.EventsAccepted, 1)
			return nil
		case outcomeDuplicate:
			atomic.AddInt64(&stats.EventsDuplicate, 1)
			return nil
		}
		atomic.AddInt64(&stats.EventsThrottled, 1)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(throttleBackoff):
		}
	}
}

// waitForReport polls the server until its report equals want or Settle
// elapses. Ingestion is asynchronous, so early reads may lag.
func waitForReport(ctx context.Context, cfg *Config, client *Client, want retention.Report, stats *Stats) error {
	deadline := time.Now().Add(cfg.Settle)
	for {
		got, err := client.Retention(ctx, cfg.NextDayStart)
		if err != nil {
			return err
		}
		stats.ServerRetention = got
		stats.Mismatches = Diff(want, got.Report)
		if len(stats.Mismatches) == 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %d counters", ErrMismatch, len(stats.Mismatches))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}
