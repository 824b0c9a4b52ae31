package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/seqrag/seqrag-go/internal/logging"
	"github.com/seqrag/seqrag-go/internal/workflow"
)

// handleAsk handles POST /api/ask. A body without a session_id starts a new
// workflow run; one with a session_id resumes a paused run with the given
// tool choice. The response is either a finished answer or a pause asking
// the client to pick a web search tool.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	start := time.Now()

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.observeAsk(outcomeBadRequest, start)
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if req.SessionID == "" && req.Question == "" {
		s.observeAsk(outcomeBadRequest, start)
		writeError(w, http.StatusBadRequest, "bad_request", "question is required")
		return
	}

	result, err := s.asker.Ask(r.Context(), workflow.Request{
		SessionID:  req.SessionID,
		Question:   req.Question,
		Collection: req.Collection,
		ToolChoice: req.ToolChoice,
	})
	if err != nil {
		s.writeAskError(w, log, err, start)
		return
	}

	outcome := outcomeDone
	if result.Status == workflow.StatusAwaitingToolChoice {
		outcome = outcomePaused
	}
	s.observeAsk(outcome, start)
	writeJSON(w, http.StatusOK, result)
}

// writeAskError maps workflow errors onto HTTP statuses: bad input → 400,
// unknown session → 404, failed dependency → 502, exhausted retries → 503.
func (s *Server) writeAskError(w http.ResponseWriter, log *slog.Logger, err error, start time.Time) {
	var choiceErr *workflow.InvalidChoiceError
	var depErr *workflow.DependencyError
	var limitErr *workflow.LoopLimitError

	switch {
	case errors.As(err, &choiceErr):
		s.observeAsk(outcomeInvalidChoice, start)
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   choiceErr.Error(),
			Code:    "invalid_tool_choice",
			Options: choiceErr.Options,
		})

	case errors.Is(err, workflow.ErrSessionNotFound):
		s.observeAsk(outcomeBadRequest, start)
		writeError(w, http.StatusNotFound, "session_not_found", "session not found or expired")

	case errors.As(err, &depErr):
		s.observeAsk(outcomeDependency, start)
		log.Error("workflow dependency failed",
			slog.String("dependency", depErr.Dependency),
			slog.Any("error", depErr.Err),
		)
		writeError(w, http.StatusBadGateway, "dependency_error", depErr.Error())

	case errors.As(err, &limitErr):
		s.observeAsk(outcomeLoopLimit, start)
		writeError(w, http.StatusServiceUnavailable, "loop_limit", limitErr.Error())

	default:
		s.observeAsk(outcomeBadRequest, start)
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
	}
}

// observeAsk records one completed /api/ask request.
func (s *Server) observeAsk(outcome string, start time.Time) {
	s.metrics.askRequestsTotal.WithLabelValues(outcome).Inc()
	s.metrics.askDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}
