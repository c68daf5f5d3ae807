package ws

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-realtime-nosql/internal/application/session"
	"github.com/go-realtime-nosql/internal/config"
	"github.com/go-realtime-nosql/internal/domain"
	"github.com/go-realtime-nosql/internal/pkg/id"
	"github.com/go-realtime-nosql/internal/pkg/log"
	"github.com/gorilla/websocket"
)

// CloseUnauthorized is sent when the connect credential is rejected.
const CloseUnauthorized = 4401

// ActionHandler answers one inbound frame; a nil reply sends nothing back.
type ActionHandler interface {
	Dispatch(ctx context.Context, sess *domain.Session, raw []byte) any
}

// Handler upgrades GET /v1/ws, opens the session and runs the client pumps.
type Handler struct {
	hub      *Hub
	sessions session.Service
	actions  ActionHandler
	cfg      config.WebSocket
	upgrader websocket.Upgrader
	token    func(*http.Request) string
}

// NewHandler builds the upgrade handler. tokenFn extracts the bearer credential.
func NewHandler(hub *Hub, sessions session.Service, actions ActionHandler, cfg config.WebSocket, allowedOrigins []string, tokenFn func(*http.Request) string) *Handler {
	return &Handler{
		hub:      hub,
		sessions: sessions,
		actions:  actions,
		cfg:      cfg,
		token:    tokenFn,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Detached from request cancellation; the socket is served until ReadPump returns.
	ctx := context.WithoutCancel(r.Context())
	connID := id.New()
	l := log.Ctx(ctx).With().Str(log.FieldConnectionID, connID).Logger()
	ctx = log.WithLogger(ctx, l)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	sess, err := h.sessions.Connect(ctx, session.ConnectRequest{
		ConnectionID: connID,
		Token:        h.token(r),
		ChannelType:  domain.ParseChannelType(r.URL.Query().Get("type")),
	})
	if err != nil {
		code, text := websocket.CloseInternalServerErr, "connect failed"
		if errors.Is(err, domain.ErrUnauthorized) {
			code, text = CloseUnauthorized, "unauthorized"
		} else {
			l.Error().Err(err).Msg("connect failed")
		}
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(h.cfg.WriteWait))
		_ = conn.Close()
		return
	}

	client := NewClient(conn, sess, h.cfg)
	h.hub.Add(client)
	go client.WritePump()

	client.ReadPump(ctx, func(ctx context.Context, msg []byte) {
		if reply := h.actions.Dispatch(ctx, sess, msg); reply != nil {
			client.SendJSON(reply)
		}
	})

	h.hub.Remove(client)
	h.sessions.Disconnect(ctx, sess)
	client.Close()
}

// originChecker allows every origin for "*", otherwise only the listed ones.
// Requests without an Origin header (non-browser clients) are allowed.
func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		o = strings.TrimSpace(o)
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		if o != "" {
			set[strings.ToLower(o)] = struct{}{}
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[strings.ToLower(origin)]
		return ok
	}
}
