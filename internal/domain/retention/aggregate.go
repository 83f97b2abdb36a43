package retention

import (
	"context"
	"sync"

	"github.com/okian/recall/internal/domain/model"
)

// Aggregator accumulates a report one event at a time. It is not safe for
// concurrent use; shard the input and merge with Report.Add instead.
type Aggregator struct {
	table  Table
	report Report
	diag   Diagnostics
}

// NewAggregator returns an empty aggregator for the given day boundary.
func NewAggregator(nextDayStart int64) *Aggregator {
	return &Aggregator{table: NewTable(nextDayStart)}
}

// Add classifies e once and counts it in every window containing it.
func (a *Aggregator) Add(e model.StudyEvent) {
	set := a.table.Matches(e.Timestamp)
	if set == 0 {
		a.diag.OutOfRange++
		return
	}
	label, x := classify(e)
	a.diag.record(x)
	if x != Included {
		return
	}
	for i := range a.report {
		if set&(1<<i) != 0 {
			a.report[i].inc(label)
		}
	}
}

// Table returns the window table in use.
func (a *Aggregator) Table() Table {
	return a.table
}

// Report returns the counters accumulated so far.
func (a *Aggregator) Report() Report {
	return a.report
}

// Diagnostics returns the per-outcome event counts accumulated so far.
func (a *Aggregator) Diagnostics() Diagnostics {
	return a.diag
}

// Calculate builds the retention report for events, which may be in any order.
func Calculate(events []model.StudyEvent, nextDayStart int64) Report {
	r, _ := CalculateWithDiagnostics(events, nextDayStart)
	return r
}

// CalculateWithDiagnostics is Calculate that also reports why events were
// left out.
func CalculateWithDiagnostics(events []model.StudyEvent, nextDayStart int64) (Report, Diagnostics) {
	a := NewAggregator(nextDayStart)
	for i := range events {
		a.Add(events[i])
	}
	return a.Report(), a.Diagnostics()
}

// CalculateSharded splits events into up to shards contiguous parts,
// aggregates them concurrently and merges the partial reports. The result is
// identical to CalculateWithDiagnostics. ctx is checked before each shard
// starts.
func CalculateSharded(ctx context.Context, events []model.StudyEvent, nextDayStart int64, shards int) (Report, Diagnostics, error) {
	if shards < 1 {
		shards = 1
	}
	if shards > len(events) {
		shards = len(events)
	}
	if shards <= 1 {
		if err := ctx.Err(); err != nil {
			return Report{}, Diagnostics{}, err
		}
		r, d := CalculateWithDiagnostics(events, nextDayStart)
		return r, d, nil
	}

	type partial struct {
		report Report
		diag   Diagnostics
	}
	parts := make([]partial, shards)
	size := (len(events) + shards - 1) / shards

	var wg sync.WaitGroup
	var cancelled error
	for i := 0; i < shards; i++ {
		if err := ctx.Err(); err != nil {
			cancelled = err
			break
		}
		lo := i * size
		hi := min(lo+size, len(events))
		if lo >= hi {
			break
		}
		wg.Add(1)
		go func(i int, chunk []model.StudyEvent) {
			defer wg.Done()
			r, d := CalculateWithDiagnostics(chunk, nextDayStart)
			parts[i] = partial{report: r, diag: d}
		}(i, events[lo:hi])
	}
	wg.Wait()
	if cancelled != nil {
		return Report{}, Diagnostics{}, cancelled
	}

	var out partial
	for _, p := range parts {
		out.report = out.report.Add(p.report)
		out.diag = out.diag.Add(p.diag)
	}
	return out.report, out.diag, nil
}
