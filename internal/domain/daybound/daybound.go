// Package daybound decides where the user's study day rolls over.
package daybound

import (
	"errors"
	"fmt"
	"time"
	_ "time/tzdata" // zone database for hosts without one
)

// Sentinel kinds for day boundary errors.
var (
	ErrInvalidRolloverHour = errors.New("rollover hour must be within 0..23")
	ErrInvalidTimezone     = errors.New("invalid timezone")
)

// Clock computes the next day start for a timezone and rollover hour.
type Clock struct {
	loc          *time.Location
	rolloverHour int
}

// New returns a Clock. An empty timezone means UTC.
func New(timezone string, rolloverHour int) (*Clock, error) {
	if rolloverHour < 0 || rolloverHour > 23 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRolloverHour, rolloverHour)
	}
	loc := time.UTC
	if timezone != "" {
		l, err := time.LoadLocation(timezone)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrInvalidTimezone, timezone, err)
		}
		loc = l
	}
	return &Clock{loc: loc, rolloverHour: rolloverHour}, nil
}

// Location returns the clock's timezone.
func (c *Clock) Location() *time.Location {
	return c.loc
}

// RolloverHour returns the local hour at which a new day starts.
func (c *Clock) RolloverHour() int {
	return c.rolloverHour
}

// NextDayStart returns the first rollover instant strictly after now, in
// epoch seconds.
func (c *Clock) NextDayStart(now time.Time) int64 {
	local := now.In(c.loc)
	rollover := time.Date(local.Year(), local.Month(), local.Day(), c.rolloverHour, 0, 0, 0, c.loc)
	if !rollover.After(local) {
		rollover = time.Date(local.Year(), local.Month(), local.Day()+1, c.rolloverHour, 0, 0, 0, c.loc)
	}
	return rollover.Unix()
}
