// Package app wires repositories and services for both entry points. The
// transport-specific pieces (pusher, socket handling) are supplied by the caller.
package app

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/go-realtime-nosql/internal/application/broadcast"
	"github.com/go-realtime-nosql/internal/application/notification"
	"github.com/go-realtime-nosql/internal/application/session"
	"github.com/go-realtime-nosql/internal/application/unread"
	"github.com/go-realtime-nosql/internal/config"
	"github.com/go-realtime-nosql/internal/domain"
	"github.com/go-realtime-nosql/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-realtime-nosql/internal/infrastructure/jwt"
	"github.com/go-realtime-nosql/internal/infrastructure/sns"
	"github.com/go-realtime-nosql/internal/pkg/log"
	"github.com/go-realtime-nosql/internal/transport/action"
)

// Core is the transport-independent part of the process.
type Core struct {
	Connections   *dynamo.ConnectionRepo
	Sessions      session.Service
	Unread        unread.Service
	Notifications notification.Service
	Broadcast     broadcast.Service
	Dispatcher    *action.Dispatcher
}

// NewCore builds every service on top of client. pusher delivers to whichever
// transport holds the sockets.
func NewCore(ctx context.Context, cfg *config.Config, client *dynamodb.Client, verifier *jwtinfra.Provider, pusher domain.Pusher) *Core {
	l := log.Ctx(ctx)

	conns := dynamo.NewConnectionRepo(client, cfg.DynamoTables.Connections, cfg.ConnectionTTL)
	rooms := dynamo.NewRoomRepo(client, cfg.DynamoTables.Chat)
	messages := dynamo.NewMessageRepo(client, cfg.DynamoTables.Chat)
	markers := dynamo.NewUnreadRepo(client, cfg.DynamoTables.Chat)

	// Interfaces stay untyped nil when a collaborator is missing.
	var offline notification.OfflinePublisher
	if cfg.SNSOfflineTopicARN != "" {
		if pub, err := sns.NewOfflinePublisher(cfg); err == nil {
			offline = pub
		} else {
			l.Warn().Err(err).Msg("offline publisher not available, notifications stay live-only")
		}
	}
	var tokens session.TokenVerifier
	if verifier != nil {
		tokens = verifier
	}

	notifSvc := notification.NewService(conns, pusher, offline, cfg.FanoutConcurrency)
	unreadSvc := unread.NewService(markers, cfg.FanoutConcurrency)
	sessionSvc := session.NewService(conns, rooms, tokens)
	broadcastSvc := broadcast.NewService(conns, messages, rooms, unreadSvc, notifSvc, pusher, cfg.FanoutConcurrency)

	return &Core{
		Connections:   conns,
		Sessions:      sessionSvc,
		Unread:        unreadSvc,
		Notifications: notifSvc,
		Broadcast:     broadcastSvc,
		Dispatcher:    action.NewDispatcher(sessionSvc, broadcastSvc, conns),
	}
}
