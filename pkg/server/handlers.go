package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/mvarela/armada/pkg/domain"
)

// QueryRequest is the body of POST /api/query.
type QueryRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err)
		return
	}
	if req.Query == "" {
		s.errorResponse(w, http.StatusBadRequest, fmt.Errorf("query must not be empty"))
		return
	}

	start := time.Now()
	st := s.engine.Run(r.Context(), req.Query)

	s.record(r.Context(), req.Query, st, time.Since(start))
	s.jsonResponse(w, http.StatusOK, st.Response())
}

// record persists the completed request; failures are logged, not surfaced.
func (s *Server) record(ctx context.Context, query string, st *domain.State, dur time.Duration) {
	rec := &domain.RequestRecord{
		ID:       uuid.New().String(),
		Query:    query,
		Intent:   st.Intent,
		Text:     st.FinalText,
		Image:    st.FinalImage,
		Error:    st.FinalError,
		Duration: dur,
	}
	if err := s.history.Record(ctx, rec); err != nil {
		slog.Warn("Failed to record request", "id", rec.ID, "error", err)
	}
}

func (s *Server) handleListRequests(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 0 {
			s.errorResponse(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", q))
			return
		}
		limit = n
	}

	recs, err := s.history.List(r.Context(), limit)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err)
		return
	}
	if recs == nil {
		recs = []domain.RequestRecord{}
	}
	s.jsonResponse(w, http.StatusOK, recs)
}

func (s *Server) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec, err := s.history.Get(r.Context(), id)
	if err != nil {
		s.errorResponse(w, http.StatusNotFound, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, rec)
}
