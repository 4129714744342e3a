package anthropic

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/Desarso/chatstream/models"
)

const (
	DefaultBaseURL    = "https://api.anthropic.com/v1/messages"
	DefaultAPIVersion = "2023-06-01"
	DefaultMaxTokens  = 4096
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
}

// Anthropic_Model calls the Anthropic Messages API over HTTP with SSE
// streaming.
type Anthropic_Model struct {
	Model     string
	MaxTokens int
	BaseURL   string // Optional: custom API endpoint
	apiKey    string
}

// New constructs a handle for the given backend model identifier. A missing
// credential fails here, not on the first request.
func New(model string) (*Anthropic_Model, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
	}
	return &Anthropic_Model{
		Model:     model,
		MaxTokens: DefaultMaxTokens,
		apiKey:    apiKey,
	}, nil
}

func (a *Anthropic_Model) Model_Request(ctx context.Context, request models.Model_Request, tools []models.FunctionDeclaration, history []models.TurnMessage) (models.Model_Response, error) {
	if request.User_Message == nil && request.Tool_Results == nil {
		return models.Model_Response{}, fmt.Errorf("request must contain either user message or tool results")
	}

	anthropicReq, err := a.buildRequest(request, tools, history, false)
	if err != nil {
		return models.Model_Response{}, err
	}

	resp, err := a.send(ctx, anthropicReq)
	if err != nil {
		return models.Model_Response{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Model_Response{}, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return models.Model_Response{}, fmt.Errorf("Anthropic API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var anthropicResp AnthropicResponse
	if err := json.Unmarshal(body, &anthropicResp); err != nil {
		return models.Model_Response{}, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return toModelResponse(anthropicResp), nil
}

func (a *Anthropic_Model) Stream_Model_Request(ctx context.Context, request models.Model_Request, tools []models.FunctionDeclaration, history []models.TurnMessage) (<-chan models.Model_Response, <-chan error) {
	respChan := make(chan models.Model_Response)
	errChan := make(chan error, 1)

	if request.User_Message == nil && request.Tool_Results == nil {
		errChan <- fmt.Errorf("request must contain either user message or tool results")
		close(errChan)
		close(respChan)
		return respChan, errChan
	}

	go func() {
		defer close(respChan)
		defer close(errChan)

		anthropicReq, err := a.buildRequest(request, tools, history, true)
		if err != nil {
			errChan <- err
			return
		}

		resp, err := a.send(ctx, anthropicReq)
		if err != nil {
			errChan <- err
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			errChan <- fmt.Errorf("Anthropic API error: status %d, body: %s", resp.StatusCode, string(body))
			return
		}

		parseSSEStream(ctx, resp.Body, respChan, errChan)
	}()

	return respChan, errChan
}

func (a *Anthropic_Model) send(ctx context.Context, anthropicReq AnthropicRequest) (*http.Response, error) {
	jsonBytes, err := json.Marshal(anthropicReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	baseURL := a.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL, bytes.NewReader(jsonBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", DefaultAPIVersion)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	return resp, nil
}

// buildRequest converts history and the current turn into the Messages API
// shape. Tool results always ride in user-role messages.
func (a *Anthropic_Model) buildRequest(request models.Model_Request, tools []models.FunctionDeclaration, history []models.TurnMessage, stream bool) (AnthropicRequest, error) {
	messages := []AnthropicMsg{}

	for _, msg := range history {
		converted, ok := historyMessage(msg)
		if ok {
			messages = append(messages, converted)
		}
	}

	if request.Tool_Results != nil && len(*request.Tool_Results) > 0 {
		blocks := []ContentBlock{}
		for _, tr := range *request.Tool_Results {
			blocks = append(blocks, ContentBlock{
				Type:      "tool_result",
				ToolUseID: tr.Tool_ID,
				Content:   tr.Tool_Output,
			})
		}
		messages = append(messages, AnthropicMsg{Role: "user", Content: blocks})
	} else if request.User_Message != nil {
		text := ""
		for _, part := range request.User_Message.Content.Parts {
			text += part.Text
		}
		if text != "" {
			messages = append(messages, AnthropicMsg{Role: "user", Content: text})
		}
	}

	if len(messages) == 0 {
		return AnthropicRequest{}, fmt.Errorf("cannot create anthropic request with no messages")
	}

	maxTokens := a.MaxTokens
	if maxTokens == 0 {
		maxTokens = DefaultMaxTokens
	}

	anthropicReq := AnthropicRequest{
		Model:     a.Model,
		MaxTokens: maxTokens,
		Messages:  messages,
		System:    request.System,
		Stream:    stream,
	}
	if len(tools) > 0 {
		anthropicReq.Tools = ConvertToAnthropicTools(tools)
	}
	return anthropicReq, nil
}

// historyMessage converts one persisted turn message. Tool-role messages
// become user-role tool_result blocks.
func historyMessage(msg models.TurnMessage) (AnthropicMsg, bool) {
	role := "user"
	if msg.Role == models.RoleAssistant {
		role = "assistant"
	}

	blocks := []ContentBlock{}
	for _, part := range msg.Parts {
		switch part.Type {
		case models.PartTypeText:
			if part.Text != "" {
				blocks = append(blocks, ContentBlock{Type: "text", Text: part.Text})
			}
		case models.PartTypeToolCall:
			input := part.Args
			if input == nil {
				input = map[string]interface{}{}
			}
			blocks = append(blocks, ContentBlock{
				Type:  "tool_use",
				ID:    part.ToolCallID,
				Name:  part.ToolName,
				Input: input,
			})
		case models.PartTypeToolResult:
			blocks = append(blocks, ContentBlock{
				Type:      "tool_result",
				ToolUseID: part.ToolCallID,
				Content:   string(part.Result),
			})
		}
	}

	if len(blocks) == 0 {
		return AnthropicMsg{}, false
	}
	return AnthropicMsg{Role: role, Content: blocks}, true
}

func toModelResponse(resp AnthropicResponse) models.Model_Response {
	modelResponse := models.Model_Response{}
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			if block.Text != "" {
				text := block.Text
				modelResponse.Parts = append(modelResponse.Parts, models.Model_Part{Text: &text})
			}
		case "tool_use":
			args, _ := block.Input.(map[string]interface{})
			if args == nil {
				args = map[string]interface{}{}
			}
			modelResponse.Parts = append(modelResponse.Parts, models.Model_Part{
				FunctionCall: &models.FunctionCall{
					ID:   block.ID,
					Name: block.Name,
					Args: args,
				},
			})
		}
	}
	return modelResponse
}

// parseSSEStream reads Anthropic SSE events and sends Model_Response chunks.
// Tool input arrives as partial JSON deltas; the call is emitted whole when
// its content block stops.
func parseSSEStream(ctx context.Context, r io.Reader, respChan chan<- models.Model_Response, errChan chan<- error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	type toolBlock struct {
		id   string
		name string
		json strings.Builder
	}
	toolBlocks := make(map[int]*toolBlock)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")

		var raw struct {
			Type         string          `json:"type"`
			Index        int             `json:"index"`
			ContentBlock json.RawMessage `json:"content_block"`
			Delta        json.RawMessage `json:"delta"`
		}
		if err := json.Unmarshal([]byte(data), &raw); err != nil {
			continue
		}

		switch raw.Type {
		case EventContentBlockStart:
			if raw.ContentBlock != nil {
				var block ContentBlock
				json.Unmarshal(raw.ContentBlock, &block)
				if block.Type == "tool_use" {
					toolBlocks[raw.Index] = &toolBlock{id: block.ID, name: block.Name}
				}
			}

		case EventContentBlockDelta:
			if raw.Delta != nil {
				var delta struct {
					Type        string `json:"type"`
					Text        string `json:"text"`
					PartialJSON string `json:"partial_json"`
				}
				json.Unmarshal(raw.Delta, &delta)

				if delta.Type == "text_delta" && delta.Text != "" {
					text := delta.Text
					respChan <- models.Model_Response{
						Parts: []models.Model_Part{{Text: &text}},
					}
				} else if delta.Type == "input_json_delta" {
					if tb, ok := toolBlocks[raw.Index]; ok {
						tb.json.WriteString(delta.PartialJSON)
					}
				}
			}

		case EventContentBlockStop:
			if tb, ok := toolBlocks[raw.Index]; ok {
				var args map[string]interface{}
				if err := json.Unmarshal([]byte(tb.json.String()), &args); err != nil {
					args = map[string]interface{}{}
				}
				respChan <- models.Model_Response{
					Parts: []models.Model_Part{{
						FunctionCall: &models.FunctionCall{
							ID:   tb.id,
							Name: tb.name,
							Args: args,
						},
					}},
				}
				delete(toolBlocks, raw.Index)
			}

		case EventMessageStop:
			return
		}
	}

	if err := scanner.Err(); err != nil {
		errChan <- fmt.Errorf("error reading SSE stream: %w", err)
	}
}
