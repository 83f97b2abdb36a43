package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/recall/internal/domain/types"
)

// ReportProvider computes retention reports.
type ReportProvider interface {
	Retention(ctx context.Context, now time.Time) (types.Retention, error)
	RetentionAt(ctx context.Context, nextDayStart int64) (types.Retention, error)
}

// RetentionHandler serves the retention report.
type RetentionHandler struct {
	reports ReportProvider
}

// NewRetentionHandler creates a new retention handler.
func NewRetentionHandler(reports ReportProvider) *RetentionHandler {
	return &RetentionHandler{reports: reports}
}

// HandleGetRetention handles GET /retention requests. The study day is taken
// from now (unix seconds, default current time) or, when given, from
// next_day_start directly.
func (h *RetentionHandler) HandleGetRetention(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_retention"

	q := r.URL.Query()
	rawNow, rawNDS := q.Get("now"), q.Get("next_day_start")
	if rawNow != "" && rawNDS != "" {
		writeError(w, http.StatusBadRequest, "bad_request",
			WrapKind(op, ErrBadRequest, errors.New("now and next_day_start are exclusive")))
		return
	}

	var (
		res types.Retention
		err error
	)
	switch {
	case rawNDS != "":
		nds, perr := strconv.ParseInt(rawNDS, 10, 64)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, perr))
			return
		}
		res, err = h.reports.RetentionAt(r.Context(), nds)
	case rawNow != "":
		now, perr := strconv.ParseInt(rawNow, 10, 64)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, perr))
			return
		}
		res, err = h.reports.Retention(r.Context(), time.Unix(now, 0))
	default:
		res, err = h.reports.Retention(r.Context(), time.Time{})
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "report_failed", WrapKind(op, ErrReport, err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}
