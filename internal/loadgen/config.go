// Package loadgen generates synthetic review logs, submits them to a running
// server and checks the server's retention report against a local one.
package loadgen

import (
	"errors"
	"fmt"
	"time"

	"github.com/okian/recall/internal/domain/types"
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL      string        // Base URL of the service
	NumEvents    int           // Number of events to generate
	Cards        int           // Number of distinct cards
	Days         int           // How far back reviews are spread, in days
	DuplicatePct float64       // Share of events submitted twice (0-1)
	Workers      int           // Number of concurrent submitters
	Timeout      time.Duration // HTTP request timeout
	Settle       time.Duration // How long to wait for the server to store everything
	Seed         int64         // Generator seed
	NextDayStart int64         // Reference next day start, unix seconds
}

// Validate rejects configurations that cannot produce a run.
func (c *Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%w: base url is empty", ErrConfig)
	case c.NumEvents < 1:
		return fmt.Errorf("%w: events must be positive", ErrConfig)
	case c.Cards < 1:
		return fmt.Errorf("%w: cards must be positive", ErrConfig)
	case c.Days < 1:
		return fmt.Errorf("%w: days must be positive", ErrConfig)
	case c.DuplicatePct < 0 || c.DuplicatePct > 1:
		return fmt.Errorf("%w: duplicate share must be within [0, 1]", ErrConfig)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be positive", ErrConfig)
	case c.NextDayStart <= 0:
		return fmt.Errorf("%w: next day start must be positive", ErrConfig)
	}
	return nil
}

// Stats holds run statistics.
type Stats struct {
	EventsGenerated int
	EventsSubmitted int64
	EventsAccepted  int64
	EventsDuplicate int64
	EventsThrottled int64
	EventsFailed    int64
	StartTime       time.Time
	SubmitDuration  time.Duration
	Duration        time.Duration
	ServerRetention types.Retention
	Mismatches      []string
}

// Sentinel kinds for load run errors.
var (
	ErrConfig   = errors.New("invalid load configuration")
	ErrStatus   = errors.New("unexpected response status")
	ErrMismatch = errors.New("server report differs from local report")
)
