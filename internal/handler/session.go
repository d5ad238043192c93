package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/authgate/authgate-go/internal/middleware"
	"github.com/authgate/authgate-go/internal/model"
	"github.com/authgate/authgate-go/internal/repository"
	"github.com/authgate/authgate-go/internal/service"
)

const defaultHistoryLimit = 20

// SessionHandler exposes the authenticated user's session history.
type SessionHandler struct {
	service *service.SessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(svc *service.SessionService) *SessionHandler {
	return &SessionHandler{service: svc}
}

// HandleListSessions handles GET /api/v1/sessions requests. Returns the
// caller's sessions, newest first; the optional limit query parameter caps
// the result.
func (h *SessionHandler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, errorResponse("invalid limit"))
			return
		}
		limit = n
	}

	sessions, err := h.service.History(r.Context(), user.ID, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse("internal server error"))
		return
	}

	resp := make([]model.SessionResponse, 0, len(sessions))
	for i := range sessions {
		resp = append(resp, model.NewSessionResponse(&sessions[i]))
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleGetSession handles GET /api/v1/sessions/{session_id} requests.
// Sessions are only visible to their owner.
func (h *SessionHandler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "session_id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid session id"))
		return
	}

	session, err := h.service.Find(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse("session not found"))
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse("internal server error"))
		return
	}

	if session.UserID != user.ID {
		writeJSON(w, http.StatusNotFound, errorResponse("session not found"))
		return
	}

	writeJSON(w, http.StatusOK, model.NewSessionResponse(session))
}
