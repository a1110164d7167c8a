package model

// ConversationConfig bounds how much context is persisted and forwarded to
// the model each turn.
type ConversationConfig struct {
	// TTL is how long idle session keys live in the store.
	TTL string `envconfig:"SESSION_TTL" default:"720h"`

	// HistoryTurns is the number of past user/assistant exchanges replayed
	// to the model.
	HistoryTurns int `envconfig:"CONVERSATION_HISTORY_TURNS" default:"4"`

	// MaxStateKeys caps the number of state fields serialized into the prompt.
	MaxStateKeys int `envconfig:"CONVERSATION_MAX_STATE_KEYS" default:"12"`

	// MaxCatalogItems caps the catalog excerpt forwarded to the model.
	MaxCatalogItems int `envconfig:"CONVERSATION_MAX_CATALOG_ITEMS" default:"50"`

	// CatalogPageSize is how many products are fetched on catalog preload.
	CatalogPageSize int `envconfig:"CONVERSATION_CATALOG_PAGE_SIZE" default:"100"`
}
