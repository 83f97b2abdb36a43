package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/okian/recall/internal/domain/dedupe"
	"github.com/okian/recall/internal/domain/model"
	"github.com/okian/recall/internal/domain/types"
	"github.com/okian/recall/pkg/metrics"
)

const maxEventBody = 64 << 10

// EventDependencies defines the interface for event processing dependencies.
type EventDependencies interface {
	dedupe.Deduper
	Enqueue(ctx context.Context, e model.StudyEvent) bool
}

// postEventRequest keeps a missing kind apart from the zero kind.
type postEventRequest struct {
	types.StudyEvent
	Kind *model.EventKind `json:"kind"`
}

// EventsHandler handles review log submissions.
type EventsHandler struct {
	deps  EventDependencies
	newID func() string
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies) *EventsHandler {
	return &EventsHandler{deps: deps, newID: uuid.NewString}
}

// HandlePostEvent handles POST /revlog requests.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_revlog"

	var req postEventRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBody)).Decode(&req); err != nil {
		if errors.Is(err, model.ErrInvalidKind) {
			metrics.RecordEventRejected("unknown_kind")
			writeError(w, http.StatusBadRequest, "unknown_kind", WrapKind(op, ErrUnknownKind, err))
			return
		}
		metrics.RecordEventRejected("malformed")
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := validate(req); err != nil {
		metrics.RecordEventRejected("invalid_field")
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	e := req.StudyEvent
	e.Kind = *req.Kind
	if e.EventID == "" {
		e.EventID = h.newID()
	}

	// Idempotency check - mark as seen first
	if h.deps.SeenAndRecord(r.Context(), e.EventID) {
		writeJSON(w, http.StatusOK, types.Ack{EventID: e.EventID, Status: "duplicate", Duplicate: true})
		return
	}

	if ok := h.deps.Enqueue(r.Context(), e.Model()); !ok {
		// Rollback the "seen" status since enqueue failed
		h.deps.Unrecord(r.Context(), e.EventID)
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
		return
	}
	writeJSON(w, http.StatusAccepted, types.Ack{EventID: e.EventID, Status: "accepted"})
}

// validate rejects entries that cannot be stored. Buttons and intervals are
// kept as logged; the classifier decides whether they count.
func validate(e postEventRequest) error {
	switch {
	case e.Kind == nil:
		return errors.New("kind is required")
	case e.CardID <= 0:
		return errors.New("card_id must be positive")
	case e.Timestamp < 0:
		return errors.New("ts must not be negative")
	}
	return nil
}
