package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/lectern-ai/lectern/internal/chat"
	"github.com/lectern-ai/lectern/internal/log"
	"github.com/lectern-ai/lectern/internal/rag"
	"github.com/lectern-ai/lectern/internal/tools"
)

// maxRequestBody caps the query request body at 1 MiB.
const maxRequestBody = 1 << 20

// QueryService is the slice of the pipeline the HTTP layer needs.
// *rag.System satisfies it.
type QueryService interface {
	Query(ctx context.Context, query, sessionID string) (*rag.QueryResult, error)
	Stats() (int, []string)
	ClearSession(sessionID string)
}

type queryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

type sourceResponse struct {
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

type queryResponse struct {
	Answer    string           `json:"answer"`
	Sources   []sourceResponse `json:"sources"`
	SessionID string           `json:"session_id"`
}

type coursesResponse struct {
	TotalCourses int      `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}

type queryHandler struct {
	service QueryService
	logger  log.Logger
}

// query handles POST /api/query.
func (h *queryHandler) query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be valid JSON", h.logger)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "query is required", h.logger)
		return
	}

	res, err := h.service.Query(r.Context(), req.Query, req.SessionID)
	if err != nil {
		h.logger.Error("query failed",
			"error", err,
			"request_id", requestIDFromContext(r.Context()),
		)
		if errors.Is(err, chat.ErrGenerationUnavailable) {
			writeError(w, http.StatusBadGateway, "generation_unavailable", "the language model is unavailable, try again later", h.logger)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{
		Answer:    res.Answer,
		Sources:   toSourceResponses(res.Sources),
		SessionID: res.SessionID,
	}, h.logger)
}

// courses handles GET /api/courses.
func (h *queryHandler) courses(w http.ResponseWriter, r *http.Request) {
	total, titles := h.service.Stats()
	if titles == nil {
		titles = []string{}
	}
	writeJSON(w, http.StatusOK, coursesResponse{
		TotalCourses: total,
		CourseTitles: titles,
	}, h.logger)
}

// clearSession handles DELETE /api/sessions/{id}.
func (h *queryHandler) clearSession(w http.ResponseWriter, r *http.Request) {
	h.service.ClearSession(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

// health handles GET /health for container probes.
func (h *queryHandler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, h.logger)
}

func toSourceResponses(sources []tools.Source) []sourceResponse {
	out := make([]sourceResponse, 0, len(sources))
	for _, src := range sources {
		out = append(out, sourceResponse{
			Title: src.Title(),
			URL:   src.URL,
		})
	}
	return out
}
