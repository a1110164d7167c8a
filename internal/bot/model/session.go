package model

import "time"

// CatalogItem is the trimmed (name, description) projection cached into
// session state and forwarded to the model.
type CatalogItem struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// StateCache is the open-ended region of session state that holds ancillary
// data rather than confirmed order fields. It is excluded from the
// no-downgrade merge policy.
type StateCache struct {
	Catalog []CatalogItem `json:"catalog,omitempty"`
}

// SessionState is the per-session order form. Order fields only ever gain
// information across turns; Cache is replaceable.
type SessionState struct {
	Order OrderFields `json:"order"`
	Cache StateCache  `json:"cache"`
}

// Session is one ongoing conversation identified by a stable external id.
type Session struct {
	ID           string       `json:"session_id"`
	PhoneNumber  string       `json:"phone_number,omitempty"`
	State        SessionState `json:"state"`
	LastActivity time.Time    `json:"last_activity"`
}
