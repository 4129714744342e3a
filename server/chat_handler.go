package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	chatstream "github.com/Desarso/chatstream"
	"github.com/Desarso/chatstream/common_tools"
	"github.com/Desarso/chatstream/models"
	"github.com/Desarso/chatstream/sessions"
	"github.com/Desarso/chatstream/stores"
)

// chatTurnRequest is the body of POST /api/chat. The last message must be the
// new user message; earlier entries are ignored in favor of stored history.
type chatTurnRequest struct {
	ID       string            `json:"id" binding:"required"`
	Messages []incomingMessage `json:"messages" binding:"required"`
	ModelID  string            `json:"modelId"`
}

type incomingMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// handleChatTurn runs one streaming chat turn. Every failure that can be
// detected up front (bad body, unknown model, foreign chat) is returned as a
// plain status before the SSE stream opens.
func (s *Server) handleChatTurn(c *gin.Context) {
	userID := currentUserID(c)

	var req chatTurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if len(req.Messages) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "messages must not be empty"})
		return
	}
	last := req.Messages[len(req.Messages)-1]
	if last.Role != models.RoleUser || last.Content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "last message must be a non-empty user message"})
		return
	}

	modelID := req.ModelID
	if modelID == "" {
		modelID = s.Config.DefaultModel
	}
	model, err := s.Gateway.Resolve(modelID)
	if err != nil {
		if errors.Is(err, chatstream.ErrUnknownModel) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown model: " + modelID})
			return
		}
		s.Logger.Printf("Failed to resolve model %s: %v", modelID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to initialize model"})
		return
	}

	store := s.Config.Store
	chat, err := store.GetChat(req.ID)
	switch {
	case errors.Is(err, stores.ErrNotFound):
		title := sessions.GenerateTitle(c.Request.Context(), model, last.Content)
		chat = &stores.Chat{
			ID:         req.ID,
			UserID:     userID,
			Title:      title,
			Visibility: stores.VisibilityPrivate,
		}
		if err := store.CreateChat(chat); err != nil {
			s.Logger.Printf("Failed to create chat %s: %v", req.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create chat"})
			return
		}
	case err != nil:
		s.Logger.Printf("Failed to load chat %s: %v", req.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chat"})
		return
	case chat.UserID != userID:
		c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
		return
	}

	priorMessages, err := store.GetMessages(chat.ID)
	if err != nil {
		s.Logger.Printf("Failed to load history for chat %s: %v", chat.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}
	history := stores.ToTurnMessages(priorMessages)

	userMessageID := uuid.NewString()
	userTurn := models.TurnMessage{
		Role:  models.RoleUser,
		Parts: []models.Part{models.TextPart(last.Content)},
	}
	userMsg, err := stores.FromTurnMessage(userMessageID, chat.ID, userTurn)
	if err != nil {
		s.Logger.Printf("Failed to encode user message: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save message"})
		return
	}
	if err := store.SaveMessages([]stores.Message{userMsg}); err != nil {
		s.Logger.Printf("Failed to save user message: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save message"})
		return
	}

	stream := sessions.NewDataStream(NewGinSSEWriter(c))
	s.runTurn(c, stream, chat, userID, modelID, model, userMessageID, last.Content, history)
}

// runTurn wires the per-turn dependencies and drives the session. Shared by
// the SSE and WebSocket transports.
func (s *Server) runTurn(c *gin.Context, stream *sessions.DataStream, chat *stores.Chat, userID, modelID string, model models.Model, userMessageID, userText string, history []models.TurnMessage) {
	agent := chatstream.Create_Agent(model, common_tools.DefaultTools())

	toolCtx := &common_tools.ToolRunContext{
		UserID:  userID,
		ChatID:  chat.ID,
		ModelID: modelID,
		Models:  s.Gateway,
		Store:   s.Config.Store,
		Stream:  stream,
		Logger:  s.Logger,
	}
	executor := common_tools.Executor(toolCtx, agent.Tools)

	session := sessions.NewChatSession(chat.ID, userID, &agent, executor, s.Config.Store, stream, s.Logger)

	userMessage := models.User_Message{
		Role:    models.RoleUser,
		Content: models.Content{Parts: []models.User_Part{{Text: userText}}},
	}

	if err := session.RunTurn(c.Request.Context(), userMessage, userMessageID, history); err != nil {
		// The stream may already be partially written; the error is logged and
		// the connection closed without a trailing frame.
		s.Logger.Printf("Turn failed for chat %s: %v", chat.ID, err)
	}
}

// handleDeleteChat removes a chat and everything hanging off it.
func (s *Server) handleDeleteChat(c *gin.Context) {
	userID := currentUserID(c)
	chatID := c.Query("id")
	if chatID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id query parameter is required"})
		return
	}

	chat, err := s.Config.Store.GetChat(chatID)
	if errors.Is(err, stores.ErrNotFound) || (err == nil && chat.UserID != userID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
		return
	}
	if err != nil {
		s.Logger.Printf("Failed to load chat %s: %v", chatID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chat"})
		return
	}

	if err := s.Config.Store.DeleteChat(chatID); err != nil {
		s.Logger.Printf("Failed to delete chat %s: %v", chatID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete chat"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": chatID, "deleted_at": time.Now().UTC()})
}
