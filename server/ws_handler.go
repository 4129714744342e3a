package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	chatstream "github.com/Desarso/chatstream"
	"github.com/Desarso/chatstream/models"
	"github.com/Desarso/chatstream/sessions"
	"github.com/Desarso/chatstream/stores"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsTurnRequest is the first frame a WebSocket client sends: one chat turn.
type wsTurnRequest struct {
	ID      string `json:"id"`
	Message string `json:"message"`
	ModelID string `json:"modelId"`
}

// handleChatWebSocket runs chat turns over a WebSocket connection. The client
// sends one turn request per frame; the server answers with the same event
// sequence the SSE transport produces, followed by a done frame.
func (s *Server) handleChatWebSocket(c *gin.Context) {
	userID := currentUserID(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	writer := sessions.NewWebSocketWriter(conn, s.Logger)

	for {
		var req wsTurnRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.Logger.Printf("WebSocket read error: %v", err)
			}
			return
		}

		if err := s.runWebSocketTurn(c, writer, userID, req); err != nil {
			writer.WriteError(err.Error())
			continue
		}
		writer.WriteDone()
	}
}

// runWebSocketTurn mirrors the SSE turn flow over the WebSocket transport.
func (s *Server) runWebSocketTurn(c *gin.Context, writer *sessions.WebSocketWriter, userID string, req wsTurnRequest) error {
	if req.ID == "" || req.Message == "" {
		return errors.New("id and message are required")
	}

	modelID := req.ModelID
	if modelID == "" {
		modelID = s.Config.DefaultModel
	}
	model, err := s.Gateway.Resolve(modelID)
	if err != nil {
		if errors.Is(err, chatstream.ErrUnknownModel) {
			return errors.New("unknown model: " + modelID)
		}
		s.Logger.Printf("Failed to resolve model %s: %v", modelID, err)
		return errors.New("failed to initialize model")
	}

	store := s.Config.Store
	chat, err := store.GetChat(req.ID)
	switch {
	case errors.Is(err, stores.ErrNotFound):
		chat = &stores.Chat{
			ID:         req.ID,
			UserID:     userID,
			Title:      sessions.GenerateTitle(c.Request.Context(), model, req.Message),
			Visibility: stores.VisibilityPrivate,
		}
		if err := store.CreateChat(chat); err != nil {
			s.Logger.Printf("Failed to create chat %s: %v", req.ID, err)
			return errors.New("failed to create chat")
		}
	case err != nil:
		s.Logger.Printf("Failed to load chat %s: %v", req.ID, err)
		return errors.New("failed to load chat")
	case chat.UserID != userID:
		return errors.New("chat not found")
	}

	priorMessages, err := store.GetMessages(chat.ID)
	if err != nil {
		s.Logger.Printf("Failed to load history for chat %s: %v", chat.ID, err)
		return errors.New("failed to load history")
	}
	history := stores.ToTurnMessages(priorMessages)

	userMessageID := uuid.NewString()
	userTurn := models.TurnMessage{
		Role:  models.RoleUser,
		Parts: []models.Part{models.TextPart(req.Message)},
	}
	userMsg, err := stores.FromTurnMessage(userMessageID, chat.ID, userTurn)
	if err != nil {
		return errors.New("failed to save message")
	}
	if err := store.SaveMessages([]stores.Message{userMsg}); err != nil {
		s.Logger.Printf("Failed to save user message: %v", err)
		return errors.New("failed to save message")
	}

	stream := sessions.NewDataStream(writer)
	s.runTurn(c, stream, chat, userID, modelID, model, userMessageID, req.Message, history)
	return nil
}
