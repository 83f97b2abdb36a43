package retention

import "github.com/okian/recall/internal/domain/model"

// MatureInterval is the last interval, in days, from which a card is mature.
const MatureInterval int32 = 21

// Interval thresholds for an elapsed-time review. Negative intervals are
// seconds, non-negative are days; the two are compared in their own units.
const (
	fullDayInSeconds int32 = -86400
	fullDayInDays    int32 = 1
)

// Valid answer buttons.
const (
	buttonAgain int32 = 1
	buttonEasy  int32 = 4
)

// Label names one of the four outcome counters.
type Label int

// Outcome labels.
const (
	YoungPassed Label = iota
	YoungFailed
	MaturePassed
	MatureFailed
)

// Labels returns every label in bucket field order.
func Labels() []Label {
	return []Label{YoungPassed, YoungFailed, MaturePassed, MatureFailed}
}

func (l Label) String() string {
	switch l {
	case YoungPassed:
		return "young_passed"
	case YoungFailed:
		return "young_failed"
	case MaturePassed:
		return "mature_passed"
	case MatureFailed:
		return "mature_failed"
	default:
		return "unknown"
	}
}

// Exclusion is the reason an event was not counted.
type Exclusion int

// Exclusion reasons. Included means the event was counted.
const (
	Included Exclusion = iota
	ExcludedFiltered
	ExcludedManual
	ExcludedUnknownKind
	ExcludedSubDay
	ExcludedInvalidButton
)

func (x Exclusion) String() string {
	switch x {
	case Included:
		return "included"
	case ExcludedFiltered:
		return "filtered_kind"
	case ExcludedManual:
		return "manual_kind"
	case ExcludedUnknownKind:
		return "unknown_kind"
	case ExcludedSubDay:
		return "sub_day_step"
	case ExcludedInvalidButton:
		return "invalid_button"
	default:
		return "unknown"
	}
}

// Classify maps one event to its outcome label. The boolean is false when the
// event does not count towards retention.
func Classify(e model.StudyEvent) (Label, bool) {
	l, x := classify(e)
	return l, x == Included
}

// classify is Classify with the exclusion reason kept. Every kind in
// model.Kinds must have a case here.
func classify(e model.StudyEvent) (Label, Exclusion) {
	switch e.Kind {
	case model.KindLearning, model.KindReview, model.KindRelearning:
	case model.KindFiltered:
		return 0, ExcludedFiltered
	case model.KindManual:
		return 0, ExcludedManual
	default:
		return 0, ExcludedUnknownKind
	}

	if !isElapsedReview(e) {
		return 0, ExcludedSubDay
	}
	if e.Button < buttonAgain || e.Button > buttonEasy {
		return 0, ExcludedInvalidButton
	}

	mature := e.LastInterval >= MatureInterval
	failed := e.Button == buttonAgain
	switch {
	case mature && failed:
		return MatureFailed, Included
	case mature:
		return MaturePassed, Included
	case failed:
		return YoungFailed, Included
	default:
		return YoungPassed, Included
	}
}

// isElapsedReview reports whether the event is a real review rather than an
// intra-day learning step. Review entries always count.
func isElapsedReview(e model.StudyEvent) bool {
	return e.Kind == model.KindReview ||
		e.LastInterval <= fullDayInSeconds ||
		e.LastInterval >= fullDayInDays
}
