package driven

import (
	"context"
	"errors"
	"time"

	"github.com/ericfisherdev/envpanel/internal/domain/model"
)

// ErrEncryptionKeyNotSet is returned by SessionStore operations when
// ENVPANEL_SECRET_KEY has not been configured.
var ErrEncryptionKeyNotSet = errors.New("encryption key not configured: set ENVPANEL_SECRET_KEY")

// SessionStore defines the driven port for session persistence.
// The adapter is responsible for encrypting the credential at rest; this
// interface operates on plaintext values at the domain boundary.
type SessionStore interface {
	// Create persists a new session.
	Create(ctx context.Context, session model.Session) error

	// Get returns the session with the given ID, or (nil, nil) if none exists.
	Get(ctx context.Context, id string) (*model.Session, error)

	// Touch records activity on the session at the given time.
	Touch(ctx context.Context, id string, at time.Time) error

	// SetView stores the operator's active view for the session.
	SetView(ctx context.Context, id string, view model.View) error

	// Delete removes the session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error

	// DeleteIdleSince removes every session last seen before cutoff and
	// returns how many were removed.
	DeleteIdleSince(ctx context.Context, cutoff time.Time) (int64, error)
}
