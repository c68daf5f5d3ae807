package http

import (
	"net/http"

	"github.com/go-realtime-nosql/internal/application/notification"
	"github.com/go-realtime-nosql/internal/application/unread"
	jwtinfra "github.com/go-realtime-nosql/internal/infrastructure/jwt"
	"github.com/go-realtime-nosql/internal/transport/http/handler"
)

// Deps holds everything the router mounts. WebSocket and Connections are nil
// when the process does not terminate sockets itself.
type Deps struct {
	JWTProvider   *jwtinfra.Provider
	Unread        unread.Service
	Notifications notification.Service
	WebSocket     http.Handler
	Connections   handler.ConnectionCounter
}
