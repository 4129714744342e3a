package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Desarso/chatstream/models"
	"github.com/Desarso/chatstream/stores"
)

// turnState tracks the bounded tool-calling loop: the model proposes calls,
// the host executes them, results are fed back, repeated up to MaxSteps.
type turnState int

const (
	stateAwaitingModel turnState = iota
	stateExecutingTools
	stateDone
)

// TurnBudget bounds the wall clock of one complete turn.
const TurnBudget = 60 * time.Second

// RunTurn drives one complete chat turn. The history holds the prior
// conversation (typed form, excluding the new user message); userMessageID is
// the id the user message was persisted under. Events stream in write order;
// on completion the surviving assistant/tool messages are persisted as one
// batch. A persistence failure is logged and returned after the client has
// already received the streamed content.
func (s *ChatSession) RunTurn(ctx context.Context, userMessage models.User_Message, userMessageID string, history []models.TurnMessage) error {
	ctx, cancel := context.WithTimeout(ctx, TurnBudget)
	defer cancel()
	defer s.Stream.Close()

	if err := s.Stream.Write(EventUserMessageID, userMessageID); err != nil {
		return err
	}

	currentReq := models.Model_Request{User_Message: &userMessage}
	var turnMessages []models.TurnMessage
	var pendingCalls []models.FunctionCall

	state := stateAwaitingModel
	steps := 0

	for state != stateDone {
		switch state {
		case stateAwaitingModel:
			if steps >= s.MaxSteps {
				s.Logger.Printf("Step cap (%d) reached for chat %s, ending turn", s.MaxSteps, s.ChatID)
				state = stateDone
				continue
			}
			steps++

			assistantMsg, calls, err := s.streamModelStep(ctx, currentReq, history)
			if err != nil {
				return err
			}
			if len(assistantMsg.Parts) > 0 {
				turnMessages = append(turnMessages, assistantMsg)
				history = append(history, assistantMsg)
			}

			if len(calls) == 0 {
				state = stateDone
				continue
			}
			pendingCalls = calls
			state = stateExecutingTools

		case stateExecutingTools:
			toolMsg, toolResults := s.executeCalls(ctx, pendingCalls)
			turnMessages = append(turnMessages, toolMsg)
			history = append(history, toolMsg)
			pendingCalls = nil

			currentReq = models.Model_Request{Tool_Results: &toolResults}
			state = stateAwaitingModel
		}
	}

	if err := s.persistTurn(turnMessages); err != nil {
		return err
	}

	return s.Stream.Write(EventFinish, "")
}

// streamModelStep runs one model invocation, relaying text deltas as they
// arrive, and returns the assistant message assembled from the step's parts
// together with any tool calls the model proposed.
func (s *ChatSession) streamModelStep(ctx context.Context, request models.Model_Request, history []models.TurnMessage) (models.TurnMessage, []models.FunctionCall, error) {
	respChan, errChan := s.Agent.Run_Stream(ctx, request, history)

	assistantMsg := models.TurnMessage{Role: models.RoleAssistant}
	var calls []models.FunctionCall

	for {
		select {
		case response, ok := <-respChan:
			if !ok {
				respChan = nil
				break
			}
			for _, part := range response.Parts {
				if part.Text != nil && *part.Text != "" {
					if err := s.Stream.Write(EventTextDelta, *part.Text); err != nil {
						return assistantMsg, nil, err
					}
					appendText(&assistantMsg, *part.Text)
				}
				if part.FunctionCall != nil {
					call := *part.FunctionCall
					if call.ID == "" {
						call.ID = fmt.Sprintf("call_%s_%s", call.Name, uuid.NewString()[:8])
					}
					calls = append(calls, call)
					assistantMsg.Parts = append(assistantMsg.Parts, models.ToolCallPart(call.ID, call.Name, call.Args))
				}
			}

		case err, ok := <-errChan:
			if ok && err != nil {
				s.Logger.Printf("Model stream error for chat %s: %v", s.ChatID, err)
				return assistantMsg, nil, &AgentError{Message: "the model provider failed to complete the request", Fatal: true}
			}
			if !ok {
				errChan = nil
			}

		case <-ctx.Done():
			s.Logger.Printf("Turn cancelled for chat %s: %v", s.ChatID, ctx.Err())
			return assistantMsg, nil, ctx.Err()
		}

		if respChan == nil && errChan == nil {
			return assistantMsg, calls, nil
		}
	}
}

// executeCalls runs the proposed tool calls in order. A failing tool becomes
// a structured error payload fed back to the model; it never aborts the turn.
func (s *ChatSession) executeCalls(ctx context.Context, calls []models.FunctionCall) (models.TurnMessage, []models.Tool_Result) {
	toolMsg := models.TurnMessage{Role: models.RoleTool}
	toolResults := make([]models.Tool_Result, 0, len(calls))

	for _, call := range calls {
		output, err := s.Tools(ctx, call.Name, call.Args)
		if err != nil {
			s.Logger.Printf("Tool %s failed for chat %s: %v", call.Name, s.ChatID, err)
			errorBytes, _ := json.Marshal(map[string]string{"error": err.Error()})
			output = string(errorBytes)
		}

		toolMsg.Parts = append(toolMsg.Parts, models.ToolResultPart(call.ID, call.Name, output))
		toolResults = append(toolResults, models.Tool_Result{
			Tool_ID:     call.ID,
			Tool_Name:   call.Name,
			Tool_Output: output,
		})
	}

	return toolMsg, toolResults
}

// persistTurn sanitizes the produced messages, assigns identifiers, emits
// annotation events carrying the assistant message ids, and saves the batch.
func (s *ChatSession) persistTurn(turnMessages []models.TurnMessage) error {
	sanitized := stores.SanitizeTurnMessages(turnMessages)
	if len(sanitized) == 0 {
		s.Logger.Printf("No messages survived sanitization for chat %s", s.ChatID)
		return nil
	}

	base := time.Now().UTC()
	batch := make([]stores.Message, 0, len(sanitized))
	for i, turn := range sanitized {
		id := uuid.NewString()

		if turn.Role == models.RoleAssistant {
			if err := s.Stream.Write(EventMessageAnnotation, map[string]string{"message_id": id}); err != nil {
				s.Logger.Printf("Failed to write annotation for message %s: %v", id, err)
			}
		}

		msg, err := stores.FromTurnMessage(id, s.ChatID, turn)
		if err != nil {
			return fmt.Errorf("failed to encode turn message: %w", err)
		}
		// Millisecond offsets keep the batch ordered under created_at sorts.
		msg.CreatedAt = base.Add(time.Duration(i) * time.Millisecond)
		batch = append(batch, msg)
	}

	if err := s.Store.SaveMessages(batch); err != nil {
		s.Logger.Printf("Failed to persist turn for chat %s: %v", s.ChatID, err)
		return fmt.Errorf("failed to persist turn messages: %w", err)
	}
	return nil
}

// appendText merges consecutive text into the trailing text part so a
// persisted message carries one text part per contiguous run of deltas.
func appendText(msg *models.TurnMessage, text string) {
	if n := len(msg.Parts); n > 0 && msg.Parts[n-1].Type == models.PartTypeText {
		msg.Parts[n-1].Text += text
		return
	}
	msg.Parts = append(msg.Parts, models.TextPart(text))
}
