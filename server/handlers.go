package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Desarso/chatstream/models"
	"github.com/Desarso/chatstream/stores"
)

// handleHistory lists the caller's chats, newest first.
func (s *Server) handleHistory(c *gin.Context) {
	userID := currentUserID(c)

	chats, err := s.Config.Store.ListChatsForUser(userID)
	if err != nil {
		s.Logger.Printf("Failed to list chats for user %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list chats"})
		return
	}

	response := make([]models.ChatResponse, 0, len(chats))
	for _, chat := range chats {
		response = append(response, models.ChatResponse{
			ID:         chat.ID,
			Title:      chat.Title,
			UserID:     chat.UserID,
			Visibility: chat.Visibility,
			CreatedAt:  chat.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, response)
}

// handleChatMessages returns the messages of a chat. Private chats are only
// visible to their owner; public chats are readable by any signed-in user.
func (s *Server) handleChatMessages(c *gin.Context) {
	userID := currentUserID(c)
	chatID := c.Param("id")

	chat, err := s.Config.Store.GetChat(chatID)
	if errors.Is(err, stores.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
		return
	}
	if err != nil {
		s.Logger.Printf("Failed to load chat %s: %v", chatID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chat"})
		return
	}
	if chat.UserID != userID && chat.Visibility != stores.VisibilityPublic {
		c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
		return
	}

	msgs, err := s.Config.Store.GetMessages(chatID)
	if err != nil {
		s.Logger.Printf("Failed to load messages for chat %s: %v", chatID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	response := make([]models.ChatMessageResponse, 0, len(msgs))
	for _, msg := range msgs {
		turn, err := stores.ToTurnMessage(msg)
		if err != nil {
			s.Logger.Printf("Skipping message %s: %v", msg.ID, err)
			continue
		}
		response = append(response, models.ChatMessageResponse{
			ID:        msg.ID,
			ChatID:    msg.ChatID,
			Role:      msg.Role,
			Text:      turn.Text(),
			Parts:     turn.Parts,
			CreatedAt: msg.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, response)
}

type visibilityRequest struct {
	ChatID     string `json:"chatId" binding:"required"`
	Visibility string `json:"visibility" binding:"required"`
}

// handleUpdateVisibility flips a chat between private and public.
func (s *Server) handleUpdateVisibility(c *gin.Context) {
	userID := currentUserID(c)

	var req visibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if req.Visibility != stores.VisibilityPrivate && req.Visibility != stores.VisibilityPublic {
		c.JSON(http.StatusBadRequest, gin.H{"error": "visibility must be private or public"})
		return
	}

	chat, err := s.Config.Store.GetChat(req.ChatID)
	if errors.Is(err, stores.ErrNotFound) || (err == nil && chat.UserID != userID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
		return
	}
	if err != nil {
		s.Logger.Printf("Failed to load chat %s: %v", req.ChatID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chat"})
		return
	}

	if err := s.Config.Store.UpdateChatVisibility(req.ChatID, req.Visibility); err != nil {
		s.Logger.Printf("Failed to update visibility for chat %s: %v", req.ChatID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update visibility"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": req.ChatID, "visibility": req.Visibility})
}

// handleGetVotes returns the votes of a chat the caller owns.
func (s *Server) handleGetVotes(c *gin.Context) {
	userID := currentUserID(c)
	chatID := c.Query("chatId")
	if chatID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "chatId query parameter is required"})
		return
	}

	if !s.ownsChat(c, chatID, userID) {
		return
	}

	votes, err := s.Config.Store.GetVotesByChat(chatID)
	if err != nil {
		s.Logger.Printf("Failed to load votes for chat %s: %v", chatID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load votes"})
		return
	}
	c.JSON(http.StatusOK, votes)
}

type voteRequest struct {
	ChatID    string `json:"chatId" binding:"required"`
	MessageID string `json:"messageId" binding:"required"`
	Type      string `json:"type" binding:"required"` // "up" or "down"
}

// handleSetVote upserts a vote on a message. Re-voting overwrites.
func (s *Server) handleSetVote(c *gin.Context) {
	userID := currentUserID(c)

	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if req.Type != "up" && req.Type != "down" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be up or down"})
		return
	}

	if !s.ownsChat(c, req.ChatID, userID) {
		return
	}

	if err := s.Config.Store.SetVote(req.ChatID, req.MessageID, req.Type == "up"); err != nil {
		s.Logger.Printf("Failed to set vote on message %s: %v", req.MessageID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to set vote"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"chat_id": req.ChatID, "message_id": req.MessageID, "is_upvoted": req.Type == "up"})
}

// handleGetDocument returns every revision of a document the caller owns,
// oldest first.
func (s *Server) handleGetDocument(c *gin.Context) {
	userID := currentUserID(c)
	documentID := c.Query("id")
	if documentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id query parameter is required"})
		return
	}

	revisions, err := s.Config.Store.GetDocumentRevisions(documentID)
	if err != nil {
		s.Logger.Printf("Failed to load document %s: %v", documentID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load document"})
		return
	}
	if len(revisions) == 0 || revisions[0].UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}
	c.JSON(http.StatusOK, revisions)
}

type deleteRevisionsRequest struct {
	Timestamp time.Time `json:"timestamp" binding:"required"`
}

// handleDeleteDocumentRevisions drops every revision created after the given
// timestamp, restoring the document to an earlier state.
func (s *Server) handleDeleteDocumentRevisions(c *gin.Context) {
	userID := currentUserID(c)
	documentID := c.Query("id")
	if documentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id query parameter is required"})
		return
	}

	var req deleteRevisionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	doc, err := s.Config.Store.GetDocument(documentID)
	if errors.Is(err, stores.ErrNotFound) || (err == nil && doc.UserID != userID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}
	if err != nil {
		s.Logger.Printf("Failed to load document %s: %v", documentID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load document"})
		return
	}

	if err := s.Config.Store.DeleteDocumentRevisionsAfter(documentID, req.Timestamp); err != nil {
		s.Logger.Printf("Failed to delete revisions of document %s: %v", documentID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete revisions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": documentID, "deleted_after": req.Timestamp})
}

// handleGetSuggestions returns the suggestions recorded against a document.
func (s *Server) handleGetSuggestions(c *gin.Context) {
	userID := currentUserID(c)
	documentID := c.Query("documentId")
	if documentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "documentId query parameter is required"})
		return
	}

	suggestions, err := s.Config.Store.GetSuggestionsByDocument(documentID)
	if err != nil {
		s.Logger.Printf("Failed to load suggestions for document %s: %v", documentID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load suggestions"})
		return
	}
	if len(suggestions) > 0 && suggestions[0].UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}
	c.JSON(http.StatusOK, suggestions)
}

// handleDeleteTrailingMessages deletes the given message and every later
// message of its chat, along with their votes. Used when the user rewinds a
// conversation to retry from an earlier point.
func (s *Server) handleDeleteTrailingMessages(c *gin.Context) {
	userID := currentUserID(c)
	messageID := c.Query("id")
	if messageID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id query parameter is required"})
		return
	}

	msg, err := s.Config.Store.GetMessage(messageID)
	if errors.Is(err, stores.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		return
	}
	if err != nil {
		s.Logger.Printf("Failed to load message %s: %v", messageID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load message"})
		return
	}

	if !s.ownsChat(c, msg.ChatID, userID) {
		return
	}

	if err := s.Config.Store.DeleteMessagesAfter(msg.ChatID, msg.CreatedAt); err != nil {
		s.Logger.Printf("Failed to delete trailing messages for chat %s: %v", msg.ChatID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"chat_id": msg.ChatID, "deleted_from": msg.CreatedAt})
}

// handleListModels returns the static model catalog and the default model id.
func (s *Server) handleListModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"models":  s.Config.Catalog,
		"default": s.Config.DefaultModel,
	})
}

// ownsChat verifies the chat exists and belongs to the user, writing the
// error response itself when it does not.
func (s *Server) ownsChat(c *gin.Context, chatID, userID string) bool {
	chat, err := s.Config.Store.GetChat(chatID)
	if errors.Is(err, stores.ErrNotFound) || (err == nil && chat.UserID != userID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
		return false
	}
	if err != nil {
		s.Logger.Printf("Failed to load chat %s: %v", chatID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chat"})
		return false
	}
	return true
}
