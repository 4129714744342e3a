package models

type User_Message struct {
	Role    string  `json:"role"`
	Content Content `json:"content"`
}

type Content struct {
	Parts []User_Part `json:"parts"`
}

type User_Part struct {
	Text             string            `json:"text,omitempty"`
	FunctionResponse *FunctionResponse `json:"function_response,omitempty"`
}

// FunctionResponse represents a tool's response fed back to the model.
type FunctionResponse struct {
	ID       string                 `json:"id,omitempty"`
	Name     string                 `json:"name"`
	Response map[string]interface{} `json:"response"`
}
