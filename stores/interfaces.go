package stores

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ChatStore abstracts the persistence operations the orchestrator consumes.
// Every write is a single atomic call; cascading writes run in one
// transaction.
type ChatStore interface {
	// Chat operations
	GetChat(id string) (*Chat, error)
	CreateChat(chat *Chat) error
	DeleteChat(id string) error // cascades to messages and votes
	UpdateChatVisibility(chatID, visibility string) error
	ListChatsForUser(userID string) ([]Chat, error)

	// Message operations
	SaveMessages(msgs []Message) error
	GetMessages(chatID string) ([]Message, error)
	GetMessage(id string) (*Message, error)
	DeleteMessagesAfter(chatID string, t time.Time) error

	// Document operations
	SaveDocument(doc *Document) error
	GetDocument(id string) (*Document, error) // latest revision
	GetDocumentRevisions(id string) ([]Document, error)
	DeleteDocumentRevisionsAfter(id string, t time.Time) error

	// Suggestion operations
	SaveSuggestions(suggestions []Suggestion) error
	GetSuggestionsByDocument(documentID string) ([]Suggestion, error)

	// Vote operations
	GetVotesByChat(chatID string) ([]Vote, error)
	SetVote(chatID, messageID string, isUpvoted bool) error

	// Connection management
	Connect() error
	Close() error

	// Health check
	Ping() error
}

// StoreConfig holds configuration for database stores
type StoreConfig struct {
	Type       string            `json:"type"`       // "sqlite", "postgres"
	Connection string            `json:"connection"` // connection string
	Options    map[string]string `json:"options"`    // additional options
}

// NewStoreConfig creates a new store configuration
func NewStoreConfig(storeType, connection string) *StoreConfig {
	return &StoreConfig{
		Type:       storeType,
		Connection: connection,
		Options:    make(map[string]string),
	}
}

// WithOption adds an option to the store configuration
func (c *StoreConfig) WithOption(key, value string) *StoreConfig {
	c.Options[key] = value
	return c
}
