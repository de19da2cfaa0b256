// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/envpanel/internal/domain/model"
	"github.com/ericfisherdev/envpanel/internal/domain/port/driven"
)

// Sentinel errors returned by SessionGate.
var (
	// ErrInvalidCredential indicates the node API refused the credential.
	ErrInvalidCredential = errors.New("invalid credential")

	// ErrNoSession indicates there is no usable session for the request.
	ErrNoSession = errors.New("no active session")

	// ErrCredentialCheck marks failures where the node API could not be
	// asked about the credential at all. It is always joined with one of
	// the sentinels above.
	ErrCredentialCheck = errors.New("credential check unavailable")
)

// SessionGate holds the operator's credential behind an opaque session ID,
// verifies it against the node API, and remembers which view to show.
type SessionGate struct {
	api    driven.NodeAPI
	store  driven.SessionStore
	ttl    time.Duration
	logger *slog.Logger

	now   func() time.Time
	newID func() string
}

// NewSessionGate creates a SessionGate. A non-positive ttl disables idle expiry.
func NewSessionGate(api driven.NodeAPI, store driven.SessionStore, ttl time.Duration, logger *slog.Logger) *SessionGate {
	return &SessionGate{
		api:    api,
		store:  store,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Login validates credential against the node API and, if accepted, persists
// a new session showing the manager view.
func (g *SessionGate) Login(ctx context.Context, credential string) (model.Session, error) {
	if strings.TrimSpace(credential) == "" {
		return model.Session{}, ErrInvalidCredential
	}

	ok, err := g.api.CheckCredential(ctx, credential)
	if err != nil {
		g.logger.Error("credential check failed", "error", err)
		return model.Session{}, fmt.Errorf("%w: %w: %w", ErrInvalidCredential, ErrCredentialCheck, err)
	}
	if !ok {
		g.logger.Info("credential rejected by node api")
		return model.Session{}, ErrInvalidCredential
	}

	now := g.now().UTC()
	session := model.Session{
		ID:         g.newID(),
		Credential: credential,
		View:       model.ViewManager,
		CreatedAt:  now,
		LastSeenAt: now,
	}
	if err := g.store.Create(ctx, session); err != nil {
		return model.Session{}, fmt.Errorf("persist session: %w", err)
	}

	g.logger.Info("session started", "session_id", shortID(session.ID))
	return session, nil
}

// Resume is the page-load path: it loads the session and re-validates its
// credential with the node API. A rejected credential deletes the session.
// A transport failure leaves the session in place but still refuses access.
func (g *SessionGate) Resume(ctx context.Context, sessionID string) (model.Session, error) {
	session, err := g.Lookup(ctx, sessionID)
	if err != nil {
		return model.Session{}, err
	}

	ok, err := g.api.CheckCredential(ctx, session.Credential)
	if err != nil {
		g.logger.Warn("credential re-check failed", "session_id", shortID(sessionID), "error", err)
		return model.Session{}, fmt.Errorf("%w: %w: %w", ErrNoSession, ErrCredentialCheck, err)
	}
	if !ok {
		g.logger.Info("stored credential no longer accepted", "session_id", shortID(sessionID))
		if err := g.store.Delete(ctx, sessionID); err != nil {
			g.logger.Error("failed to delete rejected session", "session_id", shortID(sessionID), "error", err)
		}
		return model.Session{}, ErrNoSession
	}

	return session, nil
}

// Lookup loads the session without contacting the node API and records the
// activity. Missing or idle-expired sessions yield ErrNoSession.
func (g *SessionGate) Lookup(ctx context.Context, sessionID string) (model.Session, error) {
	if sessionID == "" {
		return model.Session{}, ErrNoSession
	}

	session, err := g.store.Get(ctx, sessionID)
	if err != nil {
		return model.Session{}, fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		return model.Session{}, ErrNoSession
	}

	now := g.now().UTC()
	if session.Expired(now, g.ttl) {
		if err := g.store.Delete(ctx, sessionID); err != nil {
			g.logger.Error("failed to delete expired session", "session_id", shortID(sessionID), "error", err)
		}
		return model.Session{}, ErrNoSession
	}

	if err := g.store.Touch(ctx, sessionID, now); err != nil {
		g.logger.Warn("failed to touch session", "session_id", shortID(sessionID), "error", err)
	}
	session.LastSeenAt = now

	return *session, nil
}

// SelectView persists the operator's active view.
func (g *SessionGate) SelectView(ctx context.Context, sessionID string, view model.View) error {
	if !view.Valid() {
		return fmt.Errorf("select view: unknown view %q", view)
	}
	return g.store.SetView(ctx, sessionID, view)
}

// Logout deletes the session.
func (g *SessionGate) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := g.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	g.logger.Info("session ended", "session_id", shortID(sessionID))
	return nil
}

// PurgeExpired removes sessions idle for longer than the TTL.
func (g *SessionGate) PurgeExpired(ctx context.Context) (int64, error) {
	if g.ttl <= 0 {
		return 0, nil
	}
	return g.store.DeleteIdleSince(ctx, g.now().UTC().Add(-g.ttl))
}

// StartJanitor purges expired sessions on the given interval until ctx is
// canceled. It blocks; run it in its own goroutine.
func (g *SessionGate) StartJanitor(ctx context.Context, interval time.Duration) {
	if g.ttl <= 0 || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			g.logger.Info("session janitor stopped")
			return
		case <-ticker.C:
			n, err := g.PurgeExpired(ctx)
			if err != nil {
				g.logger.Error("session purge failed", "error", err)
				continue
			}
			if n > 0 {
				g.logger.Info("expired sessions purged", "count", n)
			}
		}
	}
}

// shortID truncates a session ID for logging.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
