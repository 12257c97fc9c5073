package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/scorebridge/pkg/domain"
	"github.com/aretw0/scorebridge/pkg/ports"
)

// DefaultSessionPrefix namespaces session documents inside a shared store.
const DefaultSessionPrefix = "session:"

// SessionStore implements ports.SessionStore by encoding sessions as JSON documents.
type SessionStore struct {
	docs   ports.DocumentStore
	prefix string
}

var _ ports.SessionStore = (*SessionStore)(nil)

// NewSessionStore creates a session store over docs. An empty prefix selects DefaultSessionPrefix.
func NewSessionStore(docs ports.DocumentStore, prefix string) *SessionStore {
	if prefix == "" {
		prefix = DefaultSessionPrefix
	}
	return &SessionStore{docs: docs, prefix: prefix}
}

// Save persists the session.
func (s *SessionStore) Save(ctx context.Context, session *domain.Session) error {
	if session == nil || session.ID == "" {
		return fmt.Errorf("session ID cannot be empty")
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	return s.docs.Put(ctx, s.prefix+session.ID, data)
}

// Load retrieves the session.
func (s *SessionStore) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	data, err := s.docs.Get(ctx, s.prefix+sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

// Delete removes the session.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	return s.docs.Delete(ctx, s.prefix+sessionID)
}

// List returns the IDs of stored sessions, ignoring documents outside the prefix.
func (s *SessionStore) List(ctx context.Context) ([]string, error) {
	keys, err := s.docs.List(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		if id, ok := strings.CutPrefix(key, s.prefix); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
