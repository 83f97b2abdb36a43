package loadgen

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"github.com/okian/recall/internal/domain/model"
	"github.com/okian/recall/internal/domain/retention"
)

// Kind mix, in percent.
const (
	pctReview     = 60
	pctLearning   = 15
	pctRelearning = 10
	pctFiltered   = 10
)

// Shares of unusual entries, in percent.
const (
	pctFuture        = 2
	pctInvalidButton = 1
	pctFailed        = 15
	pctSecondsIvl    = 50
)

// Interval ranges.
const (
	maxReviewIvlDays   = 200
	maxLearnIvlDays    = 5
	maxLearnIvlSeconds = 2 * 86400
)

// Generate builds n review log entries spread over the days before
// nextDayStart. Equal seeds give equal logs, event IDs included.
func Generate(n, cards, days int, nextDayStart, seed int64) ([]model.StudyEvent, error) {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // synthetic data
	span := int64(days) * retention.Day

	events := make([]model.StudyEvent, n)
	for i := range events {
		id, err := uuid.NewRandomFromReader(rng)
		if err != nil {
			return nil, fmt.Errorf("event id %d: %w", i, err)
		}
		e := model.StudyEvent{
			EventID: id.String(),
			CardID:  int64(rng.Intn(cards)) + 1,
			Kind:    pickKind(rng),
			Button:  pickButton(rng),
		}
		if rng.Intn(100) < pctFuture {
			e.Timestamp = nextDayStart + rng.Int63n(retention.Day)
		} else {
			e.Timestamp = nextDayStart - 1 - rng.Int63n(span)
		}
		e.LastInterval = pickInterval(rng, e.Kind)
		events[i] = e
	}
	return events, nil
}

func pickKind(rng *rand.Rand) model.EventKind {
	switch p := rng.Intn(100); {
	case p < pctReview:
		return model.KindReview
	case p < pctReview+pctLearning:
		return model.KindLearning
	case p < pctReview+pctLearning+pctRelearning:
		return model.KindRelearning
	case p < pctReview+pctLearning+pctRelearning+pctFiltered:
		return model.KindFiltered
	default:
		return model.KindManual
	}
}

func pickButton(rng *rand.Rand) int32 {
	switch p := rng.Intn(100); {
	case p < pctInvalidButton:
		return int32(rng.Intn(2)) * 5 // 0 or 5
	case p < pctInvalidButton+pctFailed:
		return 1
	default:
		return int32(rng.Intn(3)) + 2
	}
}

func pickInterval(rng *rand.Rand, kind model.EventKind) int32 {
	switch kind {
	case model.KindLearning, model.KindRelearning:
		if rng.Intn(100) < pctSecondsIvl {
			return -int32(rng.Intn(maxLearnIvlSeconds)) - 1
		}
		return int32(rng.Intn(maxLearnIvlDays + 1))
	default:
		return int32(rng.Intn(maxReviewIvlDays + 1))
	}
}
