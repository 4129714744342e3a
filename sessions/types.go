package sessions

import (
	"context"
	"log"

	"github.com/Desarso/chatstream/models"
	"github.com/Desarso/chatstream/stores"
)

// AgentError represents errors that can occur during agent operations
type AgentError struct {
	Message string
	Fatal   bool
}

func (e *AgentError) Error() string {
	return e.Message
}

// AgentInterface defines the interface the turn loop drives a model through.
type AgentInterface interface {
	Run(ctx context.Context, request models.Model_Request, history []models.TurnMessage) (models.Model_Response, error)
	Run_Stream(ctx context.Context, request models.Model_Request, history []models.TurnMessage) (<-chan models.Model_Response, <-chan error)
}

// ToolExecutorFunc executes a named tool call. The server builds one per turn,
// closing over the turn's stream, store and model resolver, so tool handlers
// receive their emit handle explicitly rather than through shared state.
type ToolExecutorFunc func(ctx context.Context, name string, args map[string]interface{}) (string, error)

// DefaultMaxSteps caps model call-and-response round trips per turn.
const DefaultMaxSteps = 5

// ChatSession orchestrates one chat turn: it drives the agent stream, relays
// deltas onto the DataStream, executes tool calls through the executor, feeds
// results back to the model up to the step cap, then sanitizes and persists
// the resulting messages as one batch.
type ChatSession struct {
	ChatID   string
	UserID   string
	Agent    AgentInterface
	Tools    ToolExecutorFunc
	Store    stores.ChatStore
	Stream   *DataStream
	Logger   *log.Logger
	MaxSteps int
}

// NewChatSession creates a session for a single turn.
func NewChatSession(chatID, userID string, agent AgentInterface, tools ToolExecutorFunc, store stores.ChatStore, stream *DataStream, logger *log.Logger) *ChatSession {
	if logger == nil {
		logger = log.Default()
	}
	return &ChatSession{
		ChatID:   chatID,
		UserID:   userID,
		Agent:    agent,
		Tools:    tools,
		Store:    store,
		Stream:   stream,
		Logger:   logger,
		MaxSteps: DefaultMaxSteps,
	}
}
