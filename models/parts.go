package models

import "encoding/json"

// Part type discriminators for persisted message content.
const (
	PartTypeText       = "text"
	PartTypeToolCall   = "tool-call"
	PartTypeToolResult = "tool-result"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Part is one typed segment of a message's content. A message is an ordered
// sequence of parts: text segments, tool-call requests and tool-call results.
type Part struct {
	Type       string                 `json:"type"`
	Text       string                 `json:"text,omitempty"`
	ToolCallID string                 `json:"tool_call_id,omitempty"`
	ToolName   string                 `json:"tool_name,omitempty"`
	Args       map[string]interface{} `json:"args,omitempty"`
	Result     json.RawMessage        `json:"result,omitempty"`
}

// TurnMessage is one message of a conversation turn in its typed form, before
// or after persistence. Adapters consume these as conversation history.
type TurnMessage struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// Text concatenates the text parts of the message.
func (m TurnMessage) Text() string {
	text := ""
	for _, p := range m.Parts {
		if p.Type == PartTypeText {
			text += p.Text
		}
	}
	return text
}

// TextPart builds a plain text part.
func TextPart(text string) Part {
	return Part{Type: PartTypeText, Text: text}
}

// ToolCallPart builds a tool-call request part.
func ToolCallPart(callID, name string, args map[string]interface{}) Part {
	return Part{Type: PartTypeToolCall, ToolCallID: callID, ToolName: name, Args: args}
}

// ToolResultPart builds a tool-call result part. The result must already be
// valid JSON.
func ToolResultPart(callID, name string, result string) Part {
	return Part{Type: PartTypeToolResult, ToolCallID: callID, ToolName: name, Result: json.RawMessage(result)}
}
