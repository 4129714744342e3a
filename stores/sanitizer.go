package stores

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/Desarso/chatstream/models"
)

// SanitizeTurnMessages filters the assistant/tool messages produced by one
// turn before they are persisted. It removes:
// - tool-call parts that have no matching tool-result anywhere in the batch
// - text parts with empty content
// - messages left with zero parts
//
// Running it twice yields the same result as running it once: every part it
// keeps would be kept again.
func SanitizeTurnMessages(msgs []models.TurnMessage) []models.TurnMessage {
	if len(msgs) == 0 {
		return msgs
	}

	// Collect the IDs of every tool-call that received a result.
	answered := make(map[string]bool)
	for _, msg := range msgs {
		for _, part := range msg.Parts {
			if part.Type == models.PartTypeToolResult && part.ToolCallID != "" {
				answered[part.ToolCallID] = true
			}
		}
	}

	result := make([]models.TurnMessage, 0, len(msgs))
	for _, msg := range msgs {
		kept := make([]models.Part, 0, len(msg.Parts))
		for _, part := range msg.Parts {
			switch part.Type {
			case models.PartTypeText:
				if part.Text == "" {
					continue
				}
			case models.PartTypeToolCall:
				if !answered[part.ToolCallID] {
					log.Printf("[SANITIZER] Dropping tool-call %s (%s) without matching result", part.ToolCallID, part.ToolName)
					continue
				}
			}
			kept = append(kept, part)
		}

		if len(kept) == 0 {
			log.Printf("[SANITIZER] Dropping %s message with no surviving parts", msg.Role)
			continue
		}
		result = append(result, models.TurnMessage{Role: msg.Role, Parts: kept})
	}

	return result
}

// ToTurnMessage unmarshals a persisted message back into its typed form.
func ToTurnMessage(msg Message) (models.TurnMessage, error) {
	turn := models.TurnMessage{Role: msg.Role}
	if msg.PartsJSON == "" || msg.PartsJSON == "null" {
		return turn, nil
	}
	if err := json.Unmarshal([]byte(msg.PartsJSON), &turn.Parts); err != nil {
		return turn, fmt.Errorf("failed to unmarshal parts for message %s: %w", msg.ID, err)
	}
	return turn, nil
}

// ToTurnMessages converts a slice of persisted messages, skipping any with
// corrupt part payloads.
func ToTurnMessages(msgs []Message) []models.TurnMessage {
	result := make([]models.TurnMessage, 0, len(msgs))
	for _, msg := range msgs {
		turn, err := ToTurnMessage(msg)
		if err != nil {
			log.Printf("Warning: skipping message %s: %v", msg.ID, err)
			continue
		}
		result = append(result, turn)
	}
	return result
}

// FromTurnMessage marshals a typed message into its persisted form. The
// caller supplies the identifiers.
func FromTurnMessage(id, chatID string, turn models.TurnMessage) (Message, error) {
	partsJSON, err := json.Marshal(turn.Parts)
	if err != nil {
		return Message{}, fmt.Errorf("failed to marshal parts for database: %w", err)
	}
	return Message{
		ID:        id,
		ChatID:    chatID,
		Role:      turn.Role,
		PartsJSON: string(partsJSON),
	}, nil
}
