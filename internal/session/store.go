// Package session holds server-side login state keyed by an opaque token.
// The token carries no identity; resolving it against the store does.
package session

import (
	"context"
	"errors"
)

// ErrNoSession is returned when a token does not resolve to a live session.
var ErrNoSession = errors.New("session: not found")

// Store persists the token → user mapping for the lifetime of a login.
type Store interface {
	// Create opens a session for the user and returns the opaque token the
	// client will present on subsequent requests.
	Create(ctx context.Context, userID int64) (string, error)

	// Resolve maps a token back to the user identifier, or ErrNoSession.
	Resolve(ctx context.Context, token string) (int64, error)

	// Destroy invalidates a token. Destroying an unknown token is a no-op.
	Destroy(ctx context.Context, token string) error

	// Close releases background resources.
	Close()
}
