package models

import "context"

// Model is the contract every vendor adapter implements. Streaming adapters
// deliver incremental responses over the response channel and terminate the
// turn by closing it; a fatal vendor failure is sent on the error channel.
type Model interface {
	Model_Request(ctx context.Context, request Model_Request, tools []FunctionDeclaration, history []TurnMessage) (Model_Response, error)
	Stream_Model_Request(ctx context.Context, request Model_Request, tools []FunctionDeclaration, history []TurnMessage) (<-chan Model_Response, <-chan error)
}

// Model_Descriptor is a static catalog entry for a selectable chat model.
type Model_Descriptor struct {
	ID            string `json:"id"`             // identifier the client sends as modelId
	Label         string `json:"label"`          // human readable name
	APIIdentifier string `json:"api_identifier"` // identifier passed to the vendor API
	Description   string `json:"description"`
}
