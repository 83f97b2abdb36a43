// Package model contains domain models passed between layers.
package model

import (
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidKind is returned when an event kind name cannot be parsed.
var ErrInvalidKind = errors.New("invalid event kind")

// EventKind is the category of a logged study action.
type EventKind int32

// The numeric values match the review log's on-disk encoding.
const (
	KindLearning   EventKind = 0
	KindReview     EventKind = 1
	KindRelearning EventKind = 2
	KindFiltered   EventKind = 3
	KindManual     EventKind = 4
)

var (
	kindNames = [...]string{
		KindLearning:   "learning",
		KindReview:     "review",
		KindRelearning: "relearning",
		KindFiltered:   "filtered",
		KindManual:     "manual",
	}
	kindByName = map[string]EventKind{
		"learning":   KindLearning,
		"review":     KindReview,
		"relearning": KindRelearning,
		"filtered":   KindFiltered,
		"manual":     KindManual,
	}
)

// Compile-time interface checks.
var (
	_ fmt.Stringer             = EventKind(0)
	_ json.Marshaler           = EventKind(0)
	_ json.Unmarshaler         = (*EventKind)(nil)
	_ encoding.TextMarshaler   = EventKind(0)
	_ encoding.TextUnmarshaler = (*EventKind)(nil)
)

// Kinds lists every known kind in encoding order.
func Kinds() []EventKind {
	return []EventKind{KindLearning, KindReview, KindRelearning, KindFiltered, KindManual}
}

// IsValid reports whether k is one of the known kinds.
func (k EventKind) IsValid() bool {
	return k >= KindLearning && k <= KindManual
}

// String returns the lower-case kind name, or "EventKind(n)" for unknown values.
func (k EventKind) String() string {
	if k.IsValid() {
		return kindNames[k]
	}
	return fmt.Sprintf("EventKind(%d)", int32(k))
}

// ParseKind parses a kind name case-insensitively.
func ParseKind(s string) (EventKind, error) {
	k, ok := kindByName[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
	return k, nil
}

// MarshalText implements encoding.TextMarshaler.
func (k EventKind) MarshalText() ([]byte, error) {
	if !k.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidKind, int32(k))
	}
	return []byte(kindNames[k]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *EventKind) UnmarshalText(text []byte) error {
	v, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// MarshalJSON implements json.Marshaler. EventKind serializes as a JSON string.
func (k EventKind) MarshalJSON() ([]byte, error) {
	text, err := k.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

// UnmarshalJSON implements json.Unmarshaler. Expects a JSON string.
func (k *EventKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidKind, data)
	}
	return k.UnmarshalText([]byte(s))
}

// StudyEvent is one entry of the review log.
//
// LastInterval uses the log's dual encoding: negative values are seconds,
// non-negative values are days. It is stored and compared as-is.
type StudyEvent struct {
	EventID      string    // idempotency key assigned at ingestion
	CardID       int64     // studied card
	Timestamp    int64     // seconds since epoch
	Kind         EventKind // review kind
	LastInterval int32     // previous interval, seconds if negative, days otherwise
	Button       int32     // 1 = again, 2..4 = hard/good/easy
}
