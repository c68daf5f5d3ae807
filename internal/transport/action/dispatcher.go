// Package action routes inbound client frames ({"action": ...}) to the session
// and broadcast services. It is shared by the WebSocket and Lambda transports.
package action

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/go-realtime-nosql/internal/application/broadcast"
	"github.com/go-realtime-nosql/internal/application/session"
	"github.com/go-realtime-nosql/internal/domain"
	"github.com/go-realtime-nosql/internal/pkg/log"
)

// Toucher extends the registry expiry of a live connection.
type Toucher interface {
	Touch(ctx context.Context, roomID, connectionID string) error
}

type Dispatcher struct {
	sessions  session.Service
	broadcast broadcast.Service
	toucher   Toucher
}

func NewDispatcher(sessions session.Service, bc broadcast.Service, toucher Toucher) *Dispatcher {
	return &Dispatcher{sessions: sessions, broadcast: bc, toucher: toucher}
}

// Dispatch handles one frame and returns the reply for the caller, or nil when
// there is nothing to send back. Failures come back as error frames.
func (d *Dispatcher) Dispatch(ctx context.Context, sess *domain.Session, raw []byte) any {
	var env domain.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return domain.NewErrorFrame(domain.ErrCodeBadRequest, "invalid message format")
	}

	l := log.Ctx(ctx).With().
		Str(log.FieldConnectionID, sess.ConnectionID).
		Str(log.FieldAction, env.Action).
		Logger()
	ctx = log.WithLogger(ctx, l)

	if env.Action == domain.ActionPing {
		d.touch(ctx, sess)
		return map[string]string{"type": domain.TypePong}
	}
	if !sess.IsAuthenticated() {
		return domain.NewErrorFrame(domain.ErrCodeUnauthorized, "not authenticated")
	}

	switch env.Action {
	case domain.ActionEnterRoom:
		var p domain.EnterRoomPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return domain.NewErrorFrame(domain.ErrCodeBadRequest, "invalid enterroom message")
		}
		roomID, err := d.sessions.EnterRoom(ctx, sess, p)
		if err != nil {
			return errorFrame(ctx, err)
		}
		return &domain.RoomEnteredReply{RoomID: roomID}

	case domain.ActionSendMessage:
		var p domain.SendMessagePayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return domain.NewErrorFrame(domain.ErrCodeBadRequest, "invalid sendmessage message")
		}
		rep, err := d.broadcast.Send(ctx, broadcast.SendRequest{
			ConnectionID:   sess.ConnectionID,
			SenderID:       sess.UserID(),
			SenderUsername: p.SenderUsername,
			ProfilePicture: p.ProfilePicture,
			RoomID:         p.RoomID,
			Content:        p.Content,
			Timestamp:      p.Timestamp,
		})
		if err != nil {
			return errorFrame(ctx, err)
		}
		if p.SenderID != "" && p.SenderID != sess.UserID() {
			l.Warn().Str("claimed_sender_id", p.SenderID).Msg("sender id overridden by authenticated identity")
		}
		return &domain.AckFrame{Type: domain.TypeAck, Action: env.Action, RoomID: rep.RoomID, Timestamp: rep.Timestamp}

	case domain.ActionExitRoom:
		var p domain.ExitRoomPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return domain.NewErrorFrame(domain.ErrCodeBadRequest, "invalid exitroom message")
		}
		roomID := p.RoomID
		if roomID == "" {
			roomID = sess.RoomID()
		}
		if err := d.sessions.ExitRoom(ctx, sess, p.RoomID); err != nil {
			return errorFrame(ctx, err)
		}
		return &domain.AckFrame{Type: domain.TypeAck, Action: env.Action, RoomID: roomID}

	default:
		return domain.NewErrorFrame(domain.ErrCodeBadRequest, "unknown action")
	}
}

func (d *Dispatcher) touch(ctx context.Context, sess *domain.Session) {
	if d.toucher == nil || !sess.IsAuthenticated() {
		return
	}
	// Outside a room the only row is the user-scope one (notification link or
	// the Lambda identity anchor).
	roomID := sess.RoomID()
	if roomID == "" || sess.ChannelType == domain.ChannelNotifications {
		roomID = domain.UserScope(sess.UserID())
	}
	if err := d.toucher.Touch(ctx, roomID, sess.ConnectionID); err != nil {
		l := log.Ctx(ctx)
		l.Debug().Err(err).Str(log.FieldRoomID, roomID).Msg("touch connection")
	}
}

// ErrorCode maps a service error to the code carried in error frames.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return domain.ErrCodeUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return domain.ErrCodeForbidden
	case errors.Is(err, domain.ErrRoomNotFound), errors.Is(err, domain.ErrNotFound):
		return domain.ErrCodeRoomNotFound
	case errors.Is(err, domain.ErrBadRequest):
		return domain.ErrCodeBadRequest
	default:
		return domain.ErrCodeInternalError
	}
}

func errorFrame(ctx context.Context, err error) *domain.ErrorFrame {
	code := ErrorCode(err)
	l := log.Ctx(ctx)
	if code == domain.ErrCodeInternalError {
		l.Error().Err(err).Msg("action failed")
		return domain.NewErrorFrame(code, "internal error")
	}
	l.Info().Err(err).Str("code", code).Msg("action rejected")
	return domain.NewErrorFrame(code, err.Error())
}
