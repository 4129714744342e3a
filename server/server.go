// Package server exposes the chat orchestrator over HTTP: the streaming turn
// endpoint plus the chat, vote, document and suggestion management routes.
package server

import (
	"log"

	"github.com/gin-gonic/gin"

	chatstream "github.com/Desarso/chatstream"
)

// Server holds the wired dependencies behind the HTTP routes.
type Server struct {
	Config  *chatstream.Config
	Gateway *chatstream.Gateway
	Logger  *log.Logger
}

// New creates a server over the given configuration.
func New(config *chatstream.Config) *Server {
	return &Server{
		Config:  config,
		Gateway: chatstream.NewGateway(config.Catalog, config.DefaultModel),
		Logger:  log.Default(),
	}
}

// Router builds the gin engine with every route registered. All /api routes
// require a valid session token.
func (s *Server) Router() *gin.Engine {
	router := gin.Default()

	api := router.Group("/api", RequireSession(s.Config.JWTSecret))
	{
		api.POST("/chat", s.handleChatTurn)
		api.DELETE("/chat", s.handleDeleteChat)
		api.GET("/chat/ws", s.handleChatWebSocket)
		api.GET("/chat/:id/messages", s.handleChatMessages)
		api.PATCH("/chat/visibility", s.handleUpdateVisibility)

		api.GET("/history", s.handleHistory)

		api.GET("/vote", s.handleGetVotes)
		api.PATCH("/vote", s.handleSetVote)

		api.GET("/document", s.handleGetDocument)
		api.DELETE("/document", s.handleDeleteDocumentRevisions)
		api.GET("/suggestions", s.handleGetSuggestions)

		api.DELETE("/message", s.handleDeleteTrailingMessages)

		api.GET("/models", s.handleListModels)
	}

	return router
}
