package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/nerrad567/track-alarm-bridge/internal/journal"
	"github.com/nerrad567/track-alarm-bridge/internal/subscriber"
)

// handleHealth reports the subscription state. Anything short of an
// active subscription is degraded and answers 503.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	state := s.subscription.State()

	status, code := "ok", http.StatusOK
	if state != subscriber.StateSubscribed {
		status, code = "degraded", http.StatusServiceUnavailable
	}

	respond(w, code, map[string]any{
		"status":       status,
		"subscription": state.String(),
		"channel":      s.subscription.Channel().String(),
		"camera_id":    s.cameraID,
		"version":      s.version,
	})
}

// handleStats returns the pipeline counters.
func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	respond(w, http.StatusOK, s.stats.Stats())
}

// handleListDeliveries returns a page of the delivery journal.
//
// Query parameters:
//   - outcome: delivered or delivery_failed
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListDeliveries(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		fail(w, r, http.StatusNotFound, ErrCodeNotFound, "journal disabled")
		return
	}

	q := r.URL.Query()
	filter := journal.Filter{Outcome: journal.Outcome(q.Get("outcome"))}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			fail(w, r, http.StatusBadRequest, ErrCodeBadRequest, "limit must be an integer")
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			fail(w, r, http.StatusBadRequest, ErrCodeBadRequest, "offset must be an integer")
			return
		}
		filter.Offset = n
	}

	result, err := s.journal.List(r.Context(), filter)
	if err != nil {
		if errors.Is(err, journal.ErrInvalidOutcome) {
			fail(w, r, http.StatusBadRequest, ErrCodeBadRequest, "outcome must be delivered or delivery_failed")
			return
		}
		s.logger.Error("failed to list deliveries", "error", err)
		fail(w, r, http.StatusInternalServerError, ErrCodeInternal, "failed to list deliveries")
		return
	}

	respond(w, http.StatusOK, result)
}
