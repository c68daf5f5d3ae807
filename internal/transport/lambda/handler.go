// Package lambda serves the same actions as the local WebSocket transport from
// API Gateway WebSocket events, one stateless invocation per event.
package lambda

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/go-realtime-nosql/internal/application/session"
	"github.com/go-realtime-nosql/internal/domain"
	"github.com/go-realtime-nosql/internal/pkg/log"
	"github.com/rs/zerolog"
)

const (
	routeConnect    = "$connect"
	routeDisconnect = "$disconnect"
)

// ConnectionStore is what the handler needs to recover a connection's identity
// between invocations.
type ConnectionStore interface {
	Bind(ctx context.Context, c *domain.Connection) error
	ListByConnection(ctx context.Context, connectionID string) ([]domain.Connection, error)
}

type ActionHandler interface {
	Dispatch(ctx context.Context, sess *domain.Session, raw []byte) any
}

type Handler struct {
	sessions session.Service
	actions  ActionHandler
	conns    ConnectionStore
	pusher   domain.Pusher
}

func NewHandler(sessions session.Service, actions ActionHandler, conns ConnectionStore, pusher domain.Pusher) *Handler {
	return &Handler{sessions: sessions, actions: actions, conns: conns, pusher: pusher}
}

// HandleEvent routes an API Gateway WebSocket event. Every route other than
// $connect and $disconnect carries an action frame.
func (h *Handler) HandleEvent(ctx context.Context, req events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	logger := log.Ctx(ctx).With().
		Str(log.FieldConnectionID, req.RequestContext.ConnectionID).
		Str("route", req.RequestContext.RouteKey).
		Logger()
	ctx = log.WithLogger(ctx, logger)

	switch req.RequestContext.RouteKey {
	case routeConnect:
		return h.handleConnect(ctx, logger, req)
	case routeDisconnect:
		return h.handleDisconnect(ctx, logger, req)
	default:
		return h.handleMessage(ctx, logger, req)
	}
}

func (h *Handler) handleConnect(ctx context.Context, logger zerolog.Logger, req events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	connID := req.RequestContext.ConnectionID
	ct := domain.ParseChannelType(req.QueryStringParameters["type"])

	sess, err := h.sessions.Connect(ctx, session.ConnectRequest{
		ConnectionID: connID,
		Token:        token(req),
		UserID:       principalID(req.RequestContext.Authorizer),
		ChannelType:  ct,
	})
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			logger.Info().Err(err).Msg("connect rejected")
			return events.APIGatewayProxyResponse{StatusCode: 401}, nil
		}
		logger.Error().Err(err).Msg("connect failed")
		return events.APIGatewayProxyResponse{StatusCode: 500}, nil
	}

	// Chat connections are not in a room yet; anchor the identity under the
	// user scope so later invocations can restore the session.
	if ct == domain.ChannelChat {
		if err := h.conns.Bind(ctx, &domain.Connection{
			RoomID:       domain.UserScope(sess.UserID()),
			ConnectionID: connID,
			UserID:       sess.UserID(),
			ChannelType:  domain.ChannelChat,
		}); err != nil {
			logger.Warn().Err(err).Msg("failed to anchor connection")
		}
	}

	return events.APIGatewayProxyResponse{StatusCode: 200}, nil
}

func (h *Handler) handleDisconnect(ctx context.Context, logger zerolog.Logger, req events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	sess, err := h.restore(ctx, req.RequestContext.ConnectionID)
	if err != nil {
		logger.Warn().Err(err).Msg("disconnect of unknown connection")
		sess = domain.NewSession(req.RequestContext.ConnectionID, domain.ChannelChat)
	}
	h.sessions.Disconnect(ctx, sess)
	return events.APIGatewayProxyResponse{StatusCode: 200}, nil
}

func (h *Handler) handleMessage(ctx context.Context, logger zerolog.Logger, req events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	connID := req.RequestContext.ConnectionID

	sess, err := h.restore(ctx, connID)
	if err != nil {
		logger.Warn().Err(err).Msg("message from unknown connection")
		h.reply(ctx, logger, connID, domain.NewErrorFrame(domain.ErrCodeUnauthorized, "not authenticated"))
		return events.APIGatewayProxyResponse{StatusCode: 403}, nil
	}

	if reply := h.actions.Dispatch(ctx, sess, []byte(req.Body)); reply != nil {
		h.reply(ctx, logger, connID, reply)
	}
	return events.APIGatewayProxyResponse{StatusCode: 200}, nil
}

// restore rebuilds the session from the registry rows of the connection.
func (h *Handler) restore(ctx context.Context, connID string) (*domain.Session, error) {
	rows, err := h.conns.ListByConnection(ctx, connID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.ErrNotFound
	}

	userID := rows[0].UserID
	ct := domain.ChannelChat
	roomID := ""
	for _, c := range rows {
		if c.ChannelType == domain.ChannelNotifications {
			ct = domain.ChannelNotifications
		}
		if !domain.IsUserScope(c.RoomID) {
			roomID = c.RoomID
		}
	}
	return domain.RestoreSession(connID, userID, ct, roomID), nil
}

func (h *Handler) reply(ctx context.Context, logger zerolog.Logger, connID string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Error().Err(err).Msg("failed to marshal reply")
		return
	}
	if err := h.pusher.Push(ctx, connID, data); err != nil {
		logger.Warn().Err(err).Msg("failed to send reply")
	}
}

func token(req events.APIGatewayWebsocketProxyRequest) string {
	for k, v := range req.Headers {
		if strings.EqualFold(k, "Authorization") && strings.HasPrefix(v, "Bearer ") {
			return strings.TrimSpace(strings.TrimPrefix(v, "Bearer "))
		}
	}
	return req.QueryStringParameters["token"]
}

// principalID reads the user id a Lambda authorizer attached to the request.
func principalID(authorizer interface{}) string {
	m, ok := authorizer.(map[string]interface{})
	if !ok {
		return ""
	}
	for _, key := range []string{"principalId", "userId", "user_id"} {
		if s, ok := m[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
