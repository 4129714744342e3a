package models

type Model_Request struct {
	User_Message *User_Message  `json:"message,omitempty"`
	Tool_Results *[]Tool_Result `json:"tool_results,omitempty"`
	// System optionally overrides the adapter's configured system prompt for
	// this request. Used by the document content streamer.
	System string `json:"system,omitempty"`
}

type Tool_Result struct {
	Tool_ID     string `json:"tool_id"` // The tool call ID to match with the tool call
	Tool_Name   string `json:"tool_name"`
	Tool_Output string `json:"tool_output"`
}

// UserText builds a Model_Request carrying a single text user message.
func UserText(text string) Model_Request {
	return Model_Request{
		User_Message: &User_Message{
			Role:    RoleUser,
			Content: Content{Parts: []User_Part{{Text: text}}},
		},
	}
}
