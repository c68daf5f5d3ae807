package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so transports can map them to status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
	ErrRoomNotFound = errors.New("room not found")
	// ErrGone signals that the remote end of a connection disconnected without a clean teardown.
	ErrGone = errors.New("connection gone")
)
