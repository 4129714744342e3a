// Package openrouter implements the Model interface against any
// OpenAI-compatible chat completions endpoint. It is the default vendor
// family for backend identifiers that carry no other vendor prefix.
package openrouter

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

const DefaultBaseURL = "https://api.openai.com/v1/chat/completions"

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
}

// OpenRouter_Model calls an OpenAI-compatible chat completions API.
type OpenRouter_Model struct {
	Model   string
	BaseURL string // Optional: custom API endpoint
	apiKey  string
}

// New constructs a handle for the given backend model identifier. The
// endpoint defaults to OpenAI and can be redirected with OPENAI_BASE_URL.
// A missing credential fails here, not on the first request.
func New(model string) (*OpenRouter_Model, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}
	return &OpenRouter_Model{
		Model:   model,
		BaseURL: os.Getenv("OPENAI_BASE_URL"),
		apiKey:  apiKey,
	}, nil
}

func (o *OpenRouter_Model) Model_Request(ctx context.Context, request models.Model_Request, tools []models.FunctionDeclaration, history []models.TurnMessage) (models.Model_Response, error) {
	if request.User_Message == nil && request.Tool_Results == nil {
		return models.Model_Response{}, fmt.Errorf("request must contain either user message or tool results")
	}

	chatReq, err := o.buildRequest(request, tools, history, false)
	if err != nil {
		return models.Model_Response{}, err
	}

	resp, err := o.send(ctx, chatReq)
	if err != nil {
		return models.Model_Response{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Model_Response{}, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
			return models.Model_Response{}, fmt.Errorf("chat completions API error: %s (type: %s)", errResp.Error.Message, errResp.Error.Type)
		}
		return models.Model_Response{}, fmt.Errorf("chat completions API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return models.Model_Response{}, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return toModelResponse(chatResp), nil
}

func (o *OpenRouter_Model) Stream_Model_Request(ctx context.Context, request models.Model_Request, tools []models.FunctionDeclaration, history []models.TurnMessage) (<-chan models.Model_Response, <-chan error) {
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

		chatReq, err := o.buildRequest(request, tools, history, true)
		if err != nil {
			errChan <- err
			return
		}

		resp, err := o.send(ctx, chatReq)
		if err != nil {
			errChan <- err
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			errChan <- fmt.Errorf("chat completions API error: status %d, body: %s", resp.StatusCode, string(body))
			return
		}

		parseSSEStream(ctx, resp.Body, respChan, errChan)
	}()

	return respChan, errChan
}

func (o *OpenRouter_Model) send(ctx context.Context, chatReq ChatRequest) (*http.Response, error) {
	jsonBytes, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	baseURL := o.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL, bytes.NewReader(jsonBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	return resp, nil
}

// buildRequest converts history and the current turn into the chat
// completions message list.
func (o *OpenRouter_Model) buildRequest(request models.Model_Request, tools []models.FunctionDeclaration, history []models.TurnMessage, stream bool) (ChatRequest, error) {
	messages := []Message{}

	if request.System != "" {
		messages = append(messages, Message{Role: "system", Content: request.System})
	}

	for _, msg := range history {
		messages = append(messages, historyMessages(msg)...)
	}

	if request.Tool_Results != nil && len(*request.Tool_Results) > 0 {
		for _, tr := range *request.Tool_Results {
			toolCallID := tr.Tool_ID
			messages = append(messages, Message{
				Role:       "tool",
				Content:    tr.Tool_Output,
				ToolCallID: &toolCallID,
			})
		}
	} else if request.User_Message != nil {
		text := ""
		for _, part := range request.User_Message.Content.Parts {
			text += part.Text
		}
		if text != "" {
			messages = append(messages, Message{Role: "user", Content: text})
		}
	}

	if len(messages) == 0 {
		return ChatRequest{}, fmt.Errorf("cannot create chat completions request with no messages")
	}

	chatReq := ChatRequest{
		Model:    o.Model,
		Messages: messages,
		Stream:   stream,
	}
	if len(tools) > 0 {
		chatReq.Tools = ConvertToTools(tools)
	}
	return chatReq, nil
}

// historyMessages converts one persisted turn message. An assistant message
// carrying both text and tool calls becomes one assistant message; tool-role
// messages expand to one tool message per result part.
func historyMessages(msg models.TurnMessage) []Message {
	switch msg.Role {
	case models.RoleAssistant:
		assistant := Message{Role: "assistant"}
		text := ""
		for _, part := range msg.Parts {
			switch part.Type {
			case models.PartTypeText:
				text += part.Text
			case models.PartTypeToolCall:
				argBytes, err := json.Marshal(part.Args)
				if err != nil {
					argBytes = []byte("{}")
				}
				assistant.ToolCalls = append(assistant.ToolCalls, ToolCall{
					ID:   part.ToolCallID,
					Type: "function",
					Function: ToolCallFunction{
						Name:      part.ToolName,
						Arguments: string(argBytes),
					},
				})
			}
		}
		if text != "" {
			assistant.Content = text
		}
		if text == "" && len(assistant.ToolCalls) == 0 {
			return nil
		}
		return []Message{assistant}

	case models.RoleTool:
		messages := []Message{}
		for _, part := range msg.Parts {
			if part.Type != models.PartTypeToolResult {
				continue
			}
			toolCallID := part.ToolCallID
			messages = append(messages, Message{
				Role:       "tool",
				Content:    string(part.Result),
				ToolCallID: &toolCallID,
			})
		}
		return messages

	default:
		text := msg.Text()
		if text == "" {
			return nil
		}
		return []Message{{Role: "user", Content: text}}
	}
}

func toModelResponse(resp ChatResponse) models.Model_Response {
	modelResponse := models.Model_Response{}
	for _, choice := range resp.Choices {
		if content, ok := choice.Message.Content.(string); ok && content != "" {
			text := content
			modelResponse.Parts = append(modelResponse.Parts, models.Model_Part{Text: &text})
		}

		for _, toolCall := range choice.Message.ToolCalls {
			if toolCall.Type != "function" {
				continue
			}
			var args map[string]interface{}
			if err := json.Unmarshal([]byte(toolCall.Function.Arguments), &args); err != nil {
				log.Printf("Warning: Failed to unmarshal tool call arguments: %v", err)
				args = map[string]interface{}{}
			}
			modelResponse.Parts = append(modelResponse.Parts, models.Model_Part{
				FunctionCall: &models.FunctionCall{
					ID:   toolCall.ID,
					Name: toolCall.Function.Name,
					Args: args,
				},
			})
		}
	}
	return modelResponse
}

// parseSSEStream reads chat completion chunks. Text deltas are forwarded as
// they arrive; tool call argument fragments accumulate per index and each
// call is emitted whole once the stream finishes.
func parseSSEStream(ctx context.Context, r io.Reader, respChan chan<- models.Model_Response, errChan chan<- error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	type pendingCall struct {
		id   string
		name string
		args strings.Builder
	}
	pending := map[int]*pendingCall{}
	order := []int{}

	flush := func() {
		for _, idx := range order {
			call := pending[idx]
			var args map[string]interface{}
			if err := json.Unmarshal([]byte(call.args.String()), &args); err != nil {
				args = map[string]interface{}{}
			}
			respChan <- models.Model_Response{
				Parts: []models.Model_Part{{
					FunctionCall: &models.FunctionCall{
						ID:   call.id,
						Name: call.name,
						Args: args,
					},
				}},
			}
		}
		pending = map[int]*pendingCall{}
		order = nil
	}

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			flush()
			return
		}

		var chunk ChatResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}

		for _, choice := range chunk.Choices {
			if choice.Delta == nil {
				continue
			}

			if choice.Delta.Content != nil && *choice.Delta.Content != "" {
				text := *choice.Delta.Content
				respChan <- models.Model_Response{
					Parts: []models.Model_Part{{Text: &text}},
				}
			}

			for _, deltaCall := range choice.Delta.ToolCalls {
				call, ok := pending[deltaCall.Index]
				if !ok {
					call = &pendingCall{}
					pending[deltaCall.Index] = call
					order = append(order, deltaCall.Index)
				}
				if deltaCall.ID != "" {
					call.id = deltaCall.ID
				}
				if deltaCall.Function.Name != "" {
					call.name = deltaCall.Function.Name
				}
				call.args.WriteString(deltaCall.Function.Arguments)
			}
		}
	}

	flush()
	if err := scanner.Err(); err != nil {
		errChan <- fmt.Errorf("error reading SSE stream: %w", err)
	}
}
