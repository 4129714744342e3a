package gemini

import (
	"encoding/json"
	"fmt"
	"log"

	"google.golang.org/genai"

	"github.com/Desarso/chatstream/models"
)

// buildContents assembles the ordered content list: history first, then the
// current turn's tool results or user message.
func buildContents(request models.Model_Request, history []models.TurnMessage) ([]*genai.Content, error) {
	contents := []*genai.Content{}

	for _, msg := range history {
		content := historyContent(msg)
		if content != nil {
			contents = append(contents, content)
		}
	}

	if request.Tool_Results != nil && len(*request.Tool_Results) > 0 {
		// Function responses always carry the user role.
		for _, tr := range *request.Tool_Results {
			parts := []*genai.Part{{FunctionResponse: toFunctionResponse(tr)}}
			contents = append(contents, genai.NewContentFromParts(parts, genai.RoleUser))
		}
	} else if request.User_Message != nil {
		parts := []*genai.Part{}
		for _, part := range request.User_Message.Content.Parts {
			if part.Text != "" {
				parts = append(parts, genai.NewPartFromText(part.Text))
			}
		}
		if len(parts) > 0 {
			contents = append(contents, genai.NewContentFromParts(parts, genai.RoleUser))
		}
	}

	if len(contents) == 0 {
		return nil, fmt.Errorf("cannot create gemini request with no content")
	}
	return contents, nil
}

// historyContent converts one persisted turn message. Assistant messages map
// to the model role; tool messages become user-role function responses.
func historyContent(msg models.TurnMessage) *genai.Content {
	var role genai.Role = genai.RoleUser
	if msg.Role == models.RoleAssistant {
		role = genai.RoleModel
	}

	parts := []*genai.Part{}
	for _, part := range msg.Parts {
		switch part.Type {
		case models.PartTypeText:
			if part.Text != "" {
				parts = append(parts, genai.NewPartFromText(part.Text))
			}
		case models.PartTypeToolCall:
			parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{
				Name: part.ToolName,
				Args: part.Args,
			}})
		case models.PartTypeToolResult:
			var response map[string]interface{}
			if err := json.Unmarshal(part.Result, &response); err != nil {
				response = map[string]interface{}{"output": string(part.Result)}
			}
			parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
				Name:     part.ToolName,
				Response: response,
			}})
		}
	}

	if len(parts) == 0 {
		return nil
	}
	return genai.NewContentFromParts(parts, role)
}

func toFunctionResponse(tr models.Tool_Result) *genai.FunctionResponse {
	var response map[string]interface{}
	if err := json.Unmarshal([]byte(tr.Tool_Output), &response); err != nil {
		log.Printf("Warning: tool output for %s is not JSON, wrapping as {\"output\": ...}", tr.Tool_Name)
		response = map[string]interface{}{"output": tr.Tool_Output}
	}
	return &genai.FunctionResponse{
		ID:       tr.Tool_ID,
		Name:     tr.Tool_Name,
		Response: response,
	}
}

func buildConfig(request models.Model_Request, tools []models.FunctionDeclaration) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}

	if request.System != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{genai.NewPartFromText(request.System)},
		}
	}

	if len(tools) > 0 {
		declarations := make([]*genai.FunctionDeclaration, 0, len(tools))
		for _, tool := range tools {
			declarations = append(declarations, &genai.FunctionDeclaration{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  toSchema(tool.Parameters),
			})
		}
		config.Tools = []*genai.Tool{{FunctionDeclarations: declarations}}
	}

	return config
}

// toSchema converts the inline JSON schema of a tool declaration into the
// SDK's typed schema.
func toSchema(params models.Parameters) *genai.Schema {
	schema := &genai.Schema{
		Type:       schemaType(params.Type),
		Required:   params.Required,
		Properties: map[string]*genai.Schema{},
	}
	for name, raw := range params.Properties {
		prop, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		schema.Properties[name] = propertySchema(prop)
	}
	return schema
}

func propertySchema(prop map[string]interface{}) *genai.Schema {
	schema := &genai.Schema{}
	if t, ok := prop["type"].(string); ok {
		schema.Type = schemaType(t)
	}
	if desc, ok := prop["description"].(string); ok {
		schema.Description = desc
	}
	if enum, ok := prop["enum"].([]string); ok {
		schema.Enum = enum
	}
	return schema
}

func schemaType(t string) genai.Type {
	switch t {
	case "object":
		return genai.TypeObject
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	default:
		return genai.TypeUnspecified
	}
}

// toModelResponse flattens candidate parts into the adapter-neutral shape.
func toModelResponse(response *genai.GenerateContentResponse) models.Model_Response {
	modelResponse := models.Model_Response{}
	for _, candidate := range response.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			var modelPart models.Model_Part
			if part.Text != "" {
				text := part.Text
				modelPart.Text = &text
			}
			if part.FunctionCall != nil {
				modelPart.FunctionCall = &models.FunctionCall{
					ID:   part.FunctionCall.ID,
					Name: part.FunctionCall.Name,
					Args: part.FunctionCall.Args,
				}
			}
			if modelPart.Text == nil && modelPart.FunctionCall == nil {
				continue
			}
			modelResponse.Parts = append(modelResponse.Parts, modelPart)
		}
	}
	return modelResponse
}
