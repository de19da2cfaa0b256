package sqlite

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ericfisherdev/envpanel/internal/domain/model"
	"github.com/ericfisherdev/envpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SessionStore = (*SessionRepo)(nil)

// SessionRepo is the SQLite implementation of the SessionStore port interface.
// Session credentials are encrypted with AES-256-GCM before write and decrypted after read.
type SessionRepo struct {
	db  *DB
	key []byte // 32-byte AES-256 key; nil when encryption is disabled.
}

// NewSessionRepo creates a new SessionRepo. key must be 32 bytes for AES-256-GCM,
// or nil, in which case every operation that touches a credential returns
// driven.ErrEncryptionKeyNotSet.
func NewSessionRepo(db *DB, key []byte) *SessionRepo {
	return &SessionRepo{db: db, key: key}
}

// Create persists a new session with its credential encrypted.
func (r *SessionRepo) Create(ctx context.Context, s model.Session) error {
	encrypted, err := r.encrypt(s.Credential)
	if err != nil {
		return err
	}

	view := s.View
	if !view.Valid() {
		view = model.ViewManager
	}

	const query = `INSERT INTO sessions (id, credential, active_view, created_at, last_seen_at) VALUES (?, ?, ?, ?, ?)`
	_, err = r.db.Writer.ExecContext(ctx, query, s.ID, encrypted, string(view), formatTime(s.CreatedAt), formatTime(s.LastSeenAt))
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// Get returns the session with the given ID and its decrypted credential.
// Returns (nil, nil) if no such session exists.
func (r *SessionRepo) Get(ctx context.Context, id string) (*model.Session, error) {
	if r.key == nil {
		return nil, driven.ErrEncryptionKeyNotSet
	}

	const query = `SELECT id, credential, active_view, created_at, last_seen_at FROM sessions WHERE id = ?`
	var (
		s                   model.Session
		encrypted, view     string
		createdAt, lastSeen string
	)
	err := r.db.Reader.QueryRowContext(ctx, query, id).Scan(&s.ID, &encrypted, &view, &createdAt, &lastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	s.Credential, err = r.decrypt(encrypted)
	if err != nil {
		return nil, fmt.Errorf("decrypt session credential: %w", err)
	}

	s.View = model.View(view)
	if !s.View.Valid() {
		s.View = model.ViewManager
	}

	if s.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if s.LastSeenAt, err = parseTime(lastSeen); err != nil {
		return nil, fmt.Errorf("parse last_seen_at: %w", err)
	}

	return &s, nil
}

// Touch records activity on the session at the given time.
func (r *SessionRepo) Touch(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE sessions SET last_seen_at = ? WHERE id = ?`
	if _, err := r.db.Writer.ExecContext(ctx, query, formatTime(at), id); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

// SetView stores the active view for the session.
func (r *SessionRepo) SetView(ctx context.Context, id string, view model.View) error {
	if !view.Valid() {
		return fmt.Errorf("set view: unknown view %q", view)
	}

	const query = `UPDATE sessions SET active_view = ? WHERE id = ?`
	if _, err := r.db.Writer.ExecContext(ctx, query, string(view), id); err != nil {
		return fmt.Errorf("set view: %w", err)
	}
	return nil
}

// Delete removes the session. Deleting a missing session is not an error.
func (r *SessionRepo) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM sessions WHERE id = ?`
	if _, err := r.db.Writer.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteIdleSince removes every session last seen before cutoff.
func (r *SessionRepo) DeleteIdleSince(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM sessions WHERE last_seen_at < ?`
	res, err := r.db.Writer.ExecContext(ctx, query, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("delete idle sessions: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete idle sessions: rows affected: %w", err)
	}
	return n, nil
}

// encrypt encrypts plaintext using AES-256-GCM and returns a base64-encoded string
// containing the nonce (12 bytes) prepended to the ciphertext.
func (r *SessionRepo) encrypt(plaintext string) (string, error) {
	if r.key == nil {
		return "", driven.ErrEncryptionKeyNotSet
	}

	gcm, err := newGCM(r.key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}

	// Seal appends the ciphertext to nonce, producing: nonce || ciphertext || tag.
	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// decrypt decrypts a base64-encoded AES-256-GCM ciphertext.
func (r *SessionRepo) decrypt(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}

	gcm, err := newGCM(r.key)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("gcm.Open: %w", err)
	}

	return string(plaintext), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return gcm, nil
}
