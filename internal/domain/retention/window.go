// Package retention computes true-retention counts over the review log.
//
// A report is built from one reference instant, next_day_start, which is the
// moment the user's current study day rolls over. Six fixed windows are
// derived from it and every counted review is attributed to each window whose
// half-open range contains its timestamp.
package retention

import (
	"encoding/json"
	"fmt"
)

// Day is the fixed window unit. Months and years are plain multiples of it.
const Day int64 = 86400

// Window identifies one of the fixed report windows.
type Window int

// Report windows, in output order.
const (
	Today Window = iota
	Yesterday
	Week
	Month
	Year
	AllTime

	windowCount
)

var windowNames = [windowCount]string{
	Today:     "today",
	Yesterday: "yesterday",
	Week:      "week",
	Month:     "month",
	Year:      "year",
	AllTime:   "all_time",
}

// Windows returns every window in output order.
func Windows() []Window {
	out := make([]Window, windowCount)
	for i := range out {
		out[i] = Window(i)
	}
	return out
}

// String returns the stable wire name of the window.
func (w Window) String() string {
	if w >= 0 && w < windowCount {
		return windowNames[w]
	}
	return fmt.Sprintf("Window(%d)", int(w))
}

// ParseWindow resolves a wire name back to a Window.
func ParseWindow(name string) (Window, error) {
	for i, n := range windowNames {
		if n == name {
			return Window(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownWindow, name)
}

// Range is a half-open interval [Start, End) of epoch seconds.
type Range struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Contains reports whether ts falls inside the range.
func (r Range) Contains(ts int64) bool {
	return ts >= r.Start && ts < r.End
}

// Table holds the range of every window for one report.
type Table [windowCount]Range

// NewTable derives the six windows from nextDayStart.
func NewTable(nextDayStart int64) Table {
	var t Table
	t[Today] = Range{Start: nextDayStart - Day, End: nextDayStart}
	t[Yesterday] = Range{Start: nextDayStart - 2*Day, End: nextDayStart - Day}
	t[Week] = Range{Start: nextDayStart - 7*Day, End: nextDayStart}
	t[Month] = Range{Start: nextDayStart - 30*Day, End: nextDayStart}
	t[Year] = Range{Start: nextDayStart - 365*Day, End: nextDayStart}
	t[AllTime] = Range{Start: 0, End: nextDayStart}
	return t
}

// MarshalJSON writes the window ranges as an object in output order.
func (t Table) MarshalJSON() ([]byte, error) {
	return marshalWindows(func(w Window) any { return t[w] })
}

// UnmarshalJSON reads a table object keyed by window name.
func (t *Table) UnmarshalJSON(data []byte) error {
	var raw map[string]Range
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var out Table
	for name, r := range raw {
		w, err := ParseWindow(name)
		if err != nil {
			return err
		}
		out[w] = r
	}
	*t = out
	return nil
}

// Range returns the range of w.
func (t *Table) Range(w Window) Range {
	return t[w]
}

// Matches returns a bit set of the windows containing ts. Bit i is set when
// Window(i) matches.
func (t *Table) Matches(ts int64) uint8 {
	var set uint8
	for i := range t {
		if t[i].Contains(ts) {
			set |= 1 << i
		}
	}
	return set
}
