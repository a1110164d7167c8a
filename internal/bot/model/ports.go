package model

import "context"

// SessionStore persists per-session order state.
type SessionStore interface {
	// Get returns the session for the id, or nil when none exists yet.
	Get(ctx context.Context, sessionID string) (*Session, error)

	// Create persists a fresh session with the given initial state.
	Create(ctx context.Context, sessionID, phoneNumber string, initial SessionState) (*Session, error)

	// MergeWrite combines the non-empty fields of partial with whatever is
	// currently stored. The store itself re-merges on write so concurrent
	// turns for the same session cannot blank each other's confirmed fields.
	MergeWrite(ctx context.Context, sessionID string, partial SessionState) error
}

// ConversationLog is the append-only message history for a session.
type ConversationLog interface {
	Append(ctx context.Context, sessionID string, msg ChatMessage) error

	// History returns up to limit most recent messages, oldest first.
	History(ctx context.Context, sessionID string, limit int) ([]ChatMessage, error)
}

// CatalogProvider is a read-only product list/search backend.
type CatalogProvider interface {
	List(ctx context.Context, pageSize int) ([]Product, error)
}

// ModelGateway turns the assembled prompt into raw model text. The caller
// is responsible for parsing the reply and its structured tail.
type ModelGateway interface {
	Complete(ctx context.Context, systemParts []string, history []ChatMessage, userMessage string) (string, error)
}

// DocumentRenderer turns a finalized order into a durable invoice artifact.
// Each call mints a fresh invoice number; the order record is never mutated.
type DocumentRenderer interface {
	Render(ctx context.Context, order OrderRecord) (*Invoice, error)
}

// Notifier relays text to an out-of-band channel such as WhatsApp.
type Notifier interface {
	Send(ctx context.Context, to, text string) error
}
