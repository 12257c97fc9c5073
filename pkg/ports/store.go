package ports

import (
	"context"

	"github.com/aretw0/scorebridge/pkg/domain"
)

// DocumentStore persists opaque byte documents under string keys.
// Sessions and saved configurations are both layered on top of it.
type DocumentStore interface {
	// Get returns the document stored under key.
	// Returns domain.ErrDocumentNotFound if the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores data under key, replacing any previous document.
	Put(ctx context.Context, key string, data []byte) error

	// Delete removes the document. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns the keys of all stored documents, in no particular order.
	List(ctx context.Context) ([]string, error)
}

// SessionStore persists playground sessions.
type SessionStore interface {
	// Save persists the session under its ID.
	Save(ctx context.Context, session *domain.Session) error

	// Load retrieves a session.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.Session, error)

	// Delete removes the session.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of all stored sessions.
	List(ctx context.Context) ([]string, error)
}
