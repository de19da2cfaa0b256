package driven

import (
	"context"
	"encoding/json"

	"github.com/ericfisherdev/envpanel/internal/domain/model"
)

// NodeAPI defines the driven port for the remote key/value store. Every call
// carries the operator's credential; the adapter never caches it.
type NodeAPI interface {
	// CheckCredential reports whether the server accepts credential.
	// A transport failure is returned as an error, not as false.
	CheckCredential(ctx context.Context, credential string) (bool, error)

	// ListEntries fetches the full, authoritative entry list.
	ListEntries(ctx context.Context, credential string) ([]model.Entry, error)

	// AddEntry creates an entry. A server-side rejection is returned as an error
	// carrying the server's message.
	AddEntry(ctx context.Context, credential string, entry model.Entry) error

	// UpdateEntry replaces the value and description of an existing entry.
	UpdateEntry(ctx context.Context, credential string, entry model.Entry) error

	// RemoveEntry deletes the entry identified by category and key.
	RemoveEntry(ctx context.Context, credential, category, key string) error

	// Tree fetches the read-only variables tree as opaque JSON.
	Tree(ctx context.Context, credential string) (json.RawMessage, error)
}

// RejectedError is returned when the node API answered but refused a
// mutation. Message is the server's own explanation when it gave one and is
// safe to show to the operator.
type RejectedError struct {
	Endpoint string
	Message  string
}

func (e *RejectedError) Error() string {
	return e.Message
}
