package application

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/ericfisherdev/envpanel/internal/domain/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockNodeAPI implements driven.NodeAPI with an in-memory entry list.
type mockNodeAPI struct {
	mu sync.Mutex

	validCredential string
	checkErr        error
	checkCalls      int

	entries   []model.Entry
	listErr   error
	listCalls int

	addErr    error
	updateErr error
	removeErr error
	tree      json.RawMessage
	treeErr   error

	added   []model.Entry
	updated []model.Entry
	removed [][2]string
}

func (m *mockNodeAPI) CheckCredential(_ context.Context, credential string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkCalls++
	if m.checkErr != nil {
		return false, m.checkErr
	}
	return credential == m.validCredential, nil
}

func (m *mockNodeAPI) ListEntries(_ context.Context, _ string) ([]model.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]model.Entry, len(m.entries))
	copy(out, m.entries)
	return out, nil
}

func (m *mockNodeAPI) AddEntry(_ context.Context, _ string, entry model.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addErr != nil {
		return m.addErr
	}
	m.added = append(m.added, entry)
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockNodeAPI) UpdateEntry(_ context.Context, _ string, entry model.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updated = append(m.updated, entry)
	for i, e := range m.entries {
		if e.Category == entry.Category && e.Key == entry.Key {
			m.entries[i] = entry
		}
	}
	return nil
}

func (m *mockNodeAPI) RemoveEntry(_ context.Context, _ string, category, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removeErr != nil {
		return m.removeErr
	}
	m.removed = append(m.removed, [2]string{category, key})
	kept := m.entries[:0]
	for _, e := range m.entries {
		if e.Category != category || e.Key != key {
			kept = append(kept, e)
		}
	}
	m.entries = kept
	return nil
}

func (m *mockNodeAPI) Tree(_ context.Context, _ string) (json.RawMessage, error) {
	return m.tree, m.treeErr
}

// memSessionStore implements driven.SessionStore in memory.
type memSessionStore struct {
	mu       sync.Mutex
	sessions map[string]model.Session
	getErr   error
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: map[string]model.Session{}}
}

func (s *memSessionStore) Create(_ context.Context, session model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	return nil
}

func (s *memSessionStore) Get(_ context.Context, id string) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	session, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	return &session, nil
}

func (s *memSessionStore) Touch(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[id]; ok {
		session.LastSeenAt = at
		s.sessions[id] = session
	}
	return nil
}

func (s *memSessionStore) SetView(_ context.Context, id string, view model.View) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[id]; ok {
		session.View = view
		s.sessions[id] = session
	}
	return nil
}

func (s *memSessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *memSessionStore) DeleteIdleSince(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, session := range s.sessions {
		if session.LastSeenAt.Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

func (s *memSessionStore) has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[id]
	return ok
}
