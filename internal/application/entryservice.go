package application

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ericfisherdev/envpanel/internal/domain/model"
	"github.com/ericfisherdev/envpanel/internal/domain/port/driven"
)

// ErrValidation is matched by every *ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError reports input rejected before any node API call.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Unwrap lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Unwrap() error { return ErrValidation }

// RefreshError reports that a mutation succeeded but the follow-up fetch of
// the entry list failed.
type RefreshError struct {
	Err error
}

func (e *RefreshError) Error() string { return "refresh after mutation: " + e.Err.Error() }

func (e *RefreshError) Unwrap() error { return e.Err }

// EntryService performs the list/create/update/delete cycle for categorized
// entries. Every successful mutation is followed by a full re-fetch of the
// authoritative list; the returned Snapshot is never patched locally.
type EntryService struct {
	api    driven.NodeAPI
	logger *slog.Logger
}

// NewEntryService creates an EntryService.
func NewEntryService(api driven.NodeAPI, logger *slog.Logger) *EntryService {
	return &EntryService{api: api, logger: logger}
}

// Load fetches the full entry list. On failure it returns an empty snapshot
// alongside the error so callers can still render.
func (s *EntryService) Load(ctx context.Context, credential string) (model.Snapshot, error) {
	entries, err := s.api.ListEntries(ctx, credential)
	if err != nil {
		s.logger.Error("failed to load entries", "error", err)
		return model.NewSnapshot(nil), fmt.Errorf("load entries: %w", err)
	}
	return model.NewSnapshot(entries), nil
}

// Create adds a new entry. Category, key and value are required.
func (s *EntryService) Create(ctx context.Context, credential string, entry model.Entry) (model.Snapshot, error) {
	entry.Category = strings.TrimSpace(entry.Category)
	entry.Key = strings.TrimSpace(entry.Key)
	if entry.Category == "" || entry.Key == "" || entry.Value == "" {
		return model.Snapshot{}, &ValidationError{Message: "Category, key, and value are required"}
	}

	if err := s.api.AddEntry(ctx, credential, entry); err != nil {
		s.logger.Warn("add entry failed", "category", entry.Category, "key", entry.Key, "error", err)
		return model.Snapshot{}, err
	}
	s.logger.Info("entry added", "category", entry.Category, "key", entry.Key)

	return s.refresh(ctx, credential)
}

// Update replaces the value and description of the entry identified by
// entry.Category and entry.Key. Value is required.
func (s *EntryService) Update(ctx context.Context, credential string, entry model.Entry) (model.Snapshot, error) {
	if entry.Value == "" {
		return model.Snapshot{}, &ValidationError{Message: "Value is required"}
	}

	if err := s.api.UpdateEntry(ctx, credential, entry); err != nil {
		s.logger.Warn("update entry failed", "category", entry.Category, "key", entry.Key, "error", err)
		return model.Snapshot{}, err
	}
	s.logger.Info("entry updated", "category", entry.Category, "key", entry.Key)

	return s.refresh(ctx, credential)
}

// Remove deletes the entry identified by category and key.
func (s *EntryService) Remove(ctx context.Context, credential, category, key string) (model.Snapshot, error) {
	if err := s.api.RemoveEntry(ctx, credential, category, key); err != nil {
		s.logger.Warn("remove entry failed", "category", category, "key", key, "error", err)
		return model.Snapshot{}, err
	}
	s.logger.Info("entry removed", "category", category, "key", key)

	return s.refresh(ctx, credential)
}

// Tree fetches the read-only variables tree and returns it pretty-printed
// with two-space indentation.
func (s *EntryService) Tree(ctx context.Context, credential string) (string, error) {
	raw, err := s.api.Tree(ctx, credential)
	if err != nil {
		s.logger.Error("failed to load variables tree", "error", err)
		return "", fmt.Errorf("load variables tree: %w", err)
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return "", fmt.Errorf("format variables tree: %w", err)
	}
	return buf.String(), nil
}

func (s *EntryService) refresh(ctx context.Context, credential string) (model.Snapshot, error) {
	snapshot, err := s.Load(ctx, credential)
	if err != nil {
		return snapshot, &RefreshError{Err: err}
	}
	return snapshot, nil
}
