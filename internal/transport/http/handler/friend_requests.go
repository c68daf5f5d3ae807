package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-realtime-nosql/internal/application/notification"
	"github.com/go-realtime-nosql/internal/domain"
	"github.com/go-realtime-nosql/internal/pkg/validate"
	"github.com/go-realtime-nosql/internal/transport/http/middleware"
)

// FriendRequestNotifyRequest tells the other party that a friend request moved on.
type FriendRequestNotifyRequest struct {
	Type         string `json:"type" validate:"required,oneof=sent accepted declined"`
	ToUserID     string `json:"to_user_id" validate:"required"`
	FromUsername string `json:"from_username" validate:"max=64"`
}

// FriendRequestHandler relays friend-request lifecycle events to notification sockets.
type FriendRequestHandler struct {
	svc notification.Service
}

func NewFriendRequestHandler(svc notification.Service) *FriendRequestHandler {
	return &FriendRequestHandler{svc: svc}
}

func (h *FriendRequestHandler) Notify(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req FriendRequestNotifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if req.ToUserID == claims.UserID {
		httpError(w, fmt.Errorf("cannot notify yourself: %w", domain.ErrBadRequest))
		return
	}
	username := req.FromUsername
	if username == "" {
		username = claims.Username
	}

	report, err := h.svc.NotifyFriendRequest(r.Context(), req.ToUserID, domain.FriendRequestKind(req.Type), claims.UserID, username)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, report)
}
