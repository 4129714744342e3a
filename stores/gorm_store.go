package stores

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// gormStore implements the ChatStore CRUD surface over a *gorm.DB. The
// SQLite and Postgres stores embed it and only differ in how they connect.
type gormStore struct {
	db *gorm.DB
}

func (s *gormStore) migrate() error {
	if err := s.db.AutoMigrate(&Chat{}, &Message{}, &Document{}, &Suggestion{}, &Vote{}); err != nil {
		return fmt.Errorf("failed to migrate database schema: %w", err)
	}
	return nil
}

func (s *gormStore) GetChat(id string) (*Chat, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	var chat Chat
	if err := s.db.First(&chat, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch chat %s: %w", id, err)
	}
	return &chat, nil
}

func (s *gormStore) CreateChat(chat *Chat) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}

	if chat.Visibility == "" {
		chat.Visibility = VisibilityPrivate
	}
	if chat.CreatedAt.IsZero() {
		chat.CreatedAt = time.Now().UTC()
	}
	return s.db.Create(chat).Error
}

// DeleteChat removes the chat together with its votes and messages in one
// transaction.
func (s *gormStore) DeleteChat(id string) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("chat_id = ?", id).Delete(&Vote{}).Error; err != nil {
			return fmt.Errorf("failed to delete votes for chat %s: %w", id, err)
		}
		if err := tx.Where("chat_id = ?", id).Delete(&Message{}).Error; err != nil {
			return fmt.Errorf("failed to delete messages for chat %s: %w", id, err)
		}
		if err := tx.Where("id = ?", id).Delete(&Chat{}).Error; err != nil {
			return fmt.Errorf("failed to delete chat %s: %w", id, err)
		}
		return nil
	})
}

func (s *gormStore) UpdateChatVisibility(chatID, visibility string) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}

	res := s.db.Model(&Chat{}).Where("id = ?", chatID).Update("visibility", visibility)
	if res.Error != nil {
		return fmt.Errorf("failed to update visibility for chat %s: %w", chatID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormStore) ListChatsForUser(userID string) ([]Chat, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	var chats []Chat
	if err := s.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&chats).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch chats: %w", err)
	}
	return chats, nil
}

// SaveMessages inserts the batch in a single transaction; either every
// message lands or none do.
func (s *gormStore) SaveMessages(msgs []Message) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	if len(msgs) == 0 {
		return nil
	}

	for i := range msgs {
		if msgs[i].CreatedAt.IsZero() {
			msgs[i].CreatedAt = time.Now().UTC()
		}
	}
	if err := s.db.Create(&msgs).Error; err != nil {
		return fmt.Errorf("failed to save message batch: %w", err)
	}
	return nil
}

func (s *gormStore) GetMessages(chatID string) ([]Message, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	var msgs []Message
	if err := s.db.Where("chat_id = ?", chatID).Order("created_at ASC").Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	return msgs, nil
}

func (s *gormStore) GetMessage(id string) (*Message, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	var msg Message
	if err := s.db.First(&msg, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch message %s: %w", id, err)
	}
	return &msg, nil
}

// DeleteMessagesAfter removes every message of the chat created at or after t,
// along with the votes attached to those messages.
func (s *gormStore) DeleteMessagesAfter(chatID string, t time.Time) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var ids []string
		if err := tx.Model(&Message{}).
			Where("chat_id = ? AND created_at >= ?", chatID, t).
			Pluck("id", &ids).Error; err != nil {
			return fmt.Errorf("failed to collect trailing messages: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Where("chat_id = ? AND message_id IN ?", chatID, ids).Delete(&Vote{}).Error; err != nil {
			return fmt.Errorf("failed to delete votes for trailing messages: %w", err)
		}
		if err := tx.Where("id IN ?", ids).Delete(&Message{}).Error; err != nil {
			return fmt.Errorf("failed to delete trailing messages: %w", err)
		}
		return nil
	})
}

func (s *gormStore) SaveDocument(doc *Document) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}

	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	return s.db.Create(doc).Error
}

// GetDocument returns the latest revision for the id.
func (s *gormStore) GetDocument(id string) (*Document, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	var doc Document
	err := s.db.Where("id = ?", id).Order("created_at DESC").First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch document %s: %w", id, err)
	}
	return &doc, nil
}

func (s *gormStore) GetDocumentRevisions(id string) ([]Document, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	var docs []Document
	if err := s.db.Where("id = ?", id).Order("created_at ASC").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch document revisions: %w", err)
	}
	return docs, nil
}

func (s *gormStore) DeleteDocumentRevisionsAfter(id string, t time.Time) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}

	if err := s.db.Where("id = ? AND created_at > ?", id, t).Delete(&Document{}).Error; err != nil {
		return fmt.Errorf("failed to delete document revisions: %w", err)
	}
	return nil
}

func (s *gormStore) SaveSuggestions(suggestions []Suggestion) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	if len(suggestions) == 0 {
		return nil
	}

	for i := range suggestions {
		if suggestions[i].CreatedAt.IsZero() {
			suggestions[i].CreatedAt = time.Now().UTC()
		}
	}
	if err := s.db.Create(&suggestions).Error; err != nil {
		return fmt.Errorf("failed to save suggestion batch: %w", err)
	}
	return nil
}

func (s *gormStore) GetSuggestionsByDocument(documentID string) ([]Suggestion, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	var suggestions []Suggestion
	if err := s.db.Where("document_id = ?", documentID).Order("created_at ASC").Find(&suggestions).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch suggestions: %w", err)
	}
	return suggestions, nil
}

func (s *gormStore) GetVotesByChat(chatID string) ([]Vote, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	var votes []Vote
	if err := s.db.Where("chat_id = ?", chatID).Find(&votes).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch votes: %w", err)
	}
	return votes, nil
}

// SetVote upserts the vote for (chatID, messageID).
func (s *gormStore) SetVote(chatID, messageID string, isUpvoted bool) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}

	vote := Vote{ChatID: chatID, MessageID: messageID, IsUpvoted: isUpvoted}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chat_id"}, {Name: "message_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_upvoted"}),
	}).Create(&vote).Error
	if err != nil {
		return fmt.Errorf("failed to set vote: %w", err)
	}
	return nil
}

func (s *gormStore) Close() error {
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

func (s *gormStore) Ping() error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
