package openrouter

import "github.com/Desarso/chatstream/models"

// OpenAI-compatible chat completions request/response types.

type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Tools       []Tool    `json:"tools,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
}

type Message struct {
	Role       string      `json:"role"`              // "system", "user", "assistant", "tool"
	Content    interface{} `json:"content,omitempty"` // string for our purposes
	ToolCalls  []ToolCall  `json:"tool_calls,omitempty"`
	ToolCallID *string     `json:"tool_call_id,omitempty"` // for tool response messages
}

type Tool struct {
	Type     string       `json:"type"` // "function"
	Function ToolFunction `json:"function"`
}

type ToolFunction struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  interface{} `json:"parameters"` // JSON Schema object
}

type ToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"` // "function"
	Function ToolCallFunction `json:"function"`
}

type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON string of arguments
}

type ChatResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"` // "chat.completion"
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
}

type Choice struct {
	Index        int          `json:"index"`
	Message      Message      `json:"message,omitempty"` // non-streaming
	Delta        *StreamDelta `json:"delta,omitempty"`   // streaming
	FinishReason *string      `json:"finish_reason,omitempty"`
}

// StreamDelta is the incremental payload of one streamed chunk. Tool call
// arguments arrive as string fragments addressed by index.
type StreamDelta struct {
	Role      string          `json:"role,omitempty"`
	Content   *string         `json:"content,omitempty"`
	ToolCalls []DeltaToolCall `json:"tool_calls,omitempty"`
}

type DeltaToolCall struct {
	Index    int               `json:"index"`
	ID       string            `json:"id,omitempty"`
	Type     string            `json:"type,omitempty"`
	Function DeltaToolFunction `json:"function"`
}

type DeltaToolFunction struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}

type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
}

// SanitizedParameters ensures the schema has proper structure for strict
// providers: properties must be an object, required must be an array.
type SanitizedParameters struct {
	Type       string                 `json:"type"`
	Properties map[string]interface{} `json:"properties"`
	Required   []string               `json:"required"`
}

// ConvertToTool converts a FunctionDeclaration to the chat completions tool
// format.
func ConvertToTool(fd models.FunctionDeclaration) Tool {
	params := SanitizedParameters{
		Type:       fd.Parameters.Type,
		Properties: fd.Parameters.Properties,
		Required:   fd.Parameters.Required,
	}
	if params.Properties == nil {
		params.Properties = make(map[string]interface{})
	}
	if params.Required == nil {
		params.Required = []string{}
	}
	if params.Type == "" {
		params.Type = "object"
	}
	return Tool{
		Type: "function",
		Function: ToolFunction{
			Name:        fd.Name,
			Description: fd.Description,
			Parameters:  params,
		},
	}
}

// ConvertToTools converts multiple FunctionDeclarations.
func ConvertToTools(fds []models.FunctionDeclaration) []Tool {
	tools := make([]Tool, len(fds))
	for i, fd := range fds {
		tools[i] = ConvertToTool(fd)
	}
	return tools
}
