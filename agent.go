package chatstream

import (
	"context"

	"github.com/Desarso/chatstream/models"
)

// Agent binds a resolved model handle to the tool declarations offered on
// every step of a turn.
type Agent struct {
	Model models.Model
	Tools []models.FunctionDeclaration
}

// Create_Agent pairs a model with a tool set.
func Create_Agent(model models.Model, tools []models.FunctionDeclaration) Agent {
	return Agent{
		Model: model,
		Tools: tools,
	}
}

func (a *Agent) Run(ctx context.Context, request models.Model_Request, history []models.TurnMessage) (models.Model_Response, error) {
	return a.Model.Model_Request(ctx, request, a.Tools, history)
}

func (a *Agent) Run_Stream(ctx context.Context, request models.Model_Request, history []models.TurnMessage) (<-chan models.Model_Response, <-chan error) {
	return a.Model.Stream_Model_Request(ctx, request, a.Tools, history)
}
