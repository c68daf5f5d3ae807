package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-realtime-nosql/internal/application/unread"
	"github.com/go-realtime-nosql/internal/transport/http/middleware"
)

// UnreadHandler serves the caller's unread markers.
type UnreadHandler struct {
	svc unread.Service
}

func NewUnreadHandler(svc unread.Service) *UnreadHandler { return &UnreadHandler{svc: svc} }

func (h *UnreadHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	markers, err := h.svc.List(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, UnreadEnvelope{Data: markers})
}

// Summary returns only the badge counts.
func (h *UnreadHandler) Summary(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	summary, err := h.svc.Summary(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *UnreadHandler) ClearRoom(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	n, err := h.svc.ClearRoom(r.Context(), claims.UserID, chi.URLParam(r, "roomId"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DeletedEnvelope{Deleted: n})
}

func (h *UnreadHandler) ClearAll(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	n, err := h.svc.ClearAll(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DeletedEnvelope{Deleted: n})
}
