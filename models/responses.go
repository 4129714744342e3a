package models

type Model_Response struct {
	Parts []Model_Part `json:"parts"`
}

type FunctionCall struct {
	ID   string                 `json:"id,omitempty"` // Unique ID for this specific call instance
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args"`
}

type Model_Part struct {
	Text         *string       `json:"text,omitempty"`
	FunctionCall *FunctionCall `json:"functionCall,omitempty"`
}
