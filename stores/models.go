package stores

import (
	"time"
)

// Chat visibility values.
const (
	VisibilityPrivate = "private"
	VisibilityPublic  = "public"
)

// Document kinds.
const (
	DocumentKindText = "text"
	DocumentKindCode = "code"
)

// Chat holds metadata for one conversation. Created lazily on the first
// message of a new conversation; deleted only by explicit user action, which
// cascades to its messages and votes.
type Chat struct {
	ID         string    `gorm:"primaryKey"`
	UserID     string    `gorm:"index;not null"`
	Title      string    `gorm:"type:text"`
	Visibility string    `gorm:"not null;default:private"`
	CreatedAt  time.Time `gorm:"not null"`
}

// Message is one persisted message of a chat. PartsJSON stores the JSON
// marshaled array of typed content parts (models.Part). Immutable once
// written, except for trailing deletion.
type Message struct {
	ID        string    `gorm:"primaryKey"`
	ChatID    string    `gorm:"index;not null"`
	Role      string    `gorm:"not null"` // "user", "assistant", "tool"
	PartsJSON string    `gorm:"type:json"`
	CreatedAt time.Time `gorm:"not null"`
}

// Document is one revision of a document. Revisions share an ID and are told
// apart by CreatedAt; the current document is the revision with the latest
// CreatedAt. Updates insert, never mutate.
type Document struct {
	ID        string    `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"primaryKey"`
	Title     string    `gorm:"type:text;not null"`
	Kind      string    `gorm:"not null;default:text"` // "text", "code"
	Content   string    `gorm:"type:text"`
	UserID    string    `gorm:"index;not null"`
}

// Suggestion is a proposed edit against a specific document revision.
type Suggestion struct {
	ID                string    `gorm:"primaryKey"`
	DocumentID        string    `gorm:"index;not null"`
	DocumentCreatedAt time.Time `gorm:"not null"`
	OriginalText      string    `gorm:"type:text;not null"`
	SuggestedText     string    `gorm:"type:text;not null"`
	Description       string    `gorm:"type:text"`
	IsResolved        bool      `gorm:"not null;default:false"`
	UserID            string    `gorm:"index;not null"`
	CreatedAt         time.Time `gorm:"not null"`
}

// Vote records a single up/down vote per message. Re-voting updates in place.
type Vote struct {
	ChatID    string `gorm:"primaryKey"`
	MessageID string `gorm:"primaryKey"`
	IsUpvoted bool   `gorm:"not null"`
}
