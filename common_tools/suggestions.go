package common_tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Desarso/chatstream/models"
	"github.com/Desarso/chatstream/sessions"
	"github.com/Desarso/chatstream/stores"
)

// MaxSuggestions bounds how many suggestions one call may produce.
const MaxSuggestions = 5

const suggestionsSystemPrompt = "You are a writing assistant. Given a piece of writing, suggest improvements. " +
	"Emit each suggestion as a single JSON object on its own line with the fields " +
	`"originalText", "suggestedText" and "description". Emit at most five suggestions and nothing else.`

// suggestionObject is the structured shape the model streams back.
type suggestionObject struct {
	OriginalText  string `json:"originalText"`
	SuggestedText string `json:"suggestedText"`
	Description   string `json:"description"`
}

// RequestSuggestionsTool returns the declaration for suggestion generation.
func RequestSuggestionsTool() models.FunctionDeclaration {
	return models.FunctionDeclaration{
		Name:        "requestSuggestions",
		Description: "Request writing suggestions for an existing document",
		Parameters: models.Parameters{
			Type: "object",
			Properties: map[string]interface{}{
				"documentId": map[string]interface{}{
					"type":        "string",
					"description": "ID of the document to request edits for",
				},
			},
			Required: []string{"documentId"},
		},
		Callable: HandlerFunc(RequestSuggestions),
	}
}

// RequestSuggestions streams a bounded list of structured suggestion objects
// against the current document content. Every parsed suggestion is both
// emitted on the data stream and collected for one batch insert.
func RequestSuggestions(ctx context.Context, tc *ToolRunContext, args map[string]interface{}) (string, error) {
	documentID := stringArg(args, "documentId")

	doc, err := tc.Store.GetDocument(documentID)
	if err != nil {
		if errors.Is(err, stores.ErrNotFound) {
			return marshalSummary(map[string]string{"error": "Document not found"})
		}
		return "", fmt.Errorf("failed to load document %s: %w", documentID, err)
	}
	if doc.Content == "" {
		return marshalSummary(map[string]string{"error": "Document not found"})
	}

	model, err := tc.Models.Resolve(tc.ModelID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve model for suggestions: %w", err)
	}

	request := models.UserText(doc.Content)
	request.System = suggestionsSystemPrompt
	respChan, errChan := model.Stream_Model_Request(ctx, request, nil, nil)

	var suggestions []stores.Suggestion
	buffer := ""
	capped := false

	for {
		select {
		case response, ok := <-respChan:
			if !ok {
				respChan = nil
				break
			}
			for _, part := range response.Parts {
				if part.Text == nil || capped {
					continue
				}
				buffer += *part.Text
				buffer, capped, err = drainSuggestionLines(buffer, doc, tc, &suggestions)
				if err != nil {
					return "", err
				}
			}

		case streamErr, ok := <-errChan:
			if ok && streamErr != nil {
				return "", fmt.Errorf("suggestion stream failed: %w", streamErr)
			}
			if !ok {
				errChan = nil
			}

		case <-ctx.Done():
			return "", ctx.Err()
		}

		if respChan == nil && errChan == nil {
			break
		}
	}

	// The final buffered line may lack a trailing newline.
	if !capped && strings.TrimSpace(buffer) != "" {
		if _, _, err := drainSuggestionLines(buffer+"\n", doc, tc, &suggestions); err != nil {
			return "", err
		}
	}

	if err := tc.Store.SaveSuggestions(suggestions); err != nil {
		return "", fmt.Errorf("failed to save suggestions: %w", err)
	}

	return marshalSummary(map[string]string{
		"id":      doc.ID,
		"title":   doc.Title,
		"kind":    doc.Kind,
		"message": "Suggestions have been added to the document",
	})
}

// drainSuggestionLines parses every complete line in the buffer, emitting and
// collecting each valid suggestion. It returns the unconsumed remainder and
// whether the suggestion cap was reached.
func drainSuggestionLines(buffer string, doc *stores.Document, tc *ToolRunContext, suggestions *[]stores.Suggestion) (string, bool, error) {
	for {
		idx := strings.IndexByte(buffer, '\n')
		if idx == -1 {
			return buffer, false, nil
		}
		line := strings.TrimSpace(buffer[:idx])
		buffer = buffer[idx+1:]
		if line == "" || strings.HasPrefix(line, "```") {
			continue
		}

		var obj suggestionObject
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			tc.Logger.Printf("Skipping malformed suggestion line: %v", err)
			continue
		}
		if obj.OriginalText == "" || obj.SuggestedText == "" {
			continue
		}

		suggestion := stores.Suggestion{
			ID:                uuid.NewString(),
			DocumentID:        doc.ID,
			DocumentCreatedAt: doc.CreatedAt,
			OriginalText:      obj.OriginalText,
			SuggestedText:     obj.SuggestedText,
			Description:       obj.Description,
			UserID:            tc.UserID,
		}
		*suggestions = append(*suggestions, suggestion)

		if err := tc.Stream.Write(sessions.EventSuggestion, map[string]string{
			"id":            suggestion.ID,
			"documentId":    suggestion.DocumentID,
			"originalText":  suggestion.OriginalText,
			"suggestedText": suggestion.SuggestedText,
			"description":   suggestion.Description,
		}); err != nil {
			return buffer, false, err
		}

		if len(*suggestions) >= MaxSuggestions {
			return buffer, true, nil
		}
	}
}
