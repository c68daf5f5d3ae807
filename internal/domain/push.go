package domain

import "context"

// Pusher delivers a serialized payload to one live connection. Implementations
// return an error wrapping ErrGone when the remote end no longer exists.
type Pusher interface {
	Push(ctx context.Context, connectionID string, data []byte) error
}
