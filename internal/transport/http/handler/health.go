package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ConnectionCounter reports how many live sockets the process holds.
type ConnectionCounter interface {
	Count() int
}

// HealthHandler handles health-check endpoints.
type HealthHandler struct {
	conns ConnectionCounter
}

// NewHealthHandler builds the handler; conns may be nil when no local hub runs.
func NewHealthHandler(conns ConnectionCounter) *HealthHandler {
	return &HealthHandler{conns: conns}
}

type healthStatus struct {
	Message     string `json:"message"`
	Connections int    `json:"connections"`
}

func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	switch chi.URLParam(r, "action") {
	case "ping":
		writeJSON(w, http.StatusOK, MessageEnvelope{Message: "pong"})
	case "status":
		st := healthStatus{Message: "ok"}
		if h.conns != nil {
			st.Connections = h.conns.Count()
		}
		writeJSON(w, http.StatusOK, st)
	default:
		writeError(w, http.StatusBadRequest, "unknown action")
	}
}
