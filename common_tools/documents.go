package common_tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Desarso/chatstream/artifacts"
	"github.com/Desarso/chatstream/models"
	"github.com/Desarso/chatstream/stores"
)

const (
	textDocumentPrompt = "Write about the given topic. Markdown is supported. Use headings wherever appropriate."
	codeDocumentPrompt = "You are a code generator. Write a self-contained, runnable code snippet for the given topic. Include brief comments where they help."

	textUpdatePrompt = "Improve the following document contents based on the given description. Markdown is supported.\n\nCurrent contents:\n"
	codeUpdatePrompt = "Rewrite the following code based on the given description. Keep it self-contained and runnable.\n\nCurrent code:\n"
)

// CreateDocumentTool returns the declaration for document creation.
func CreateDocumentTool() models.FunctionDeclaration {
	return models.FunctionDeclaration{
		Name:        "createDocument",
		Description: "Create a document for a writing activity. The content streams to the user as it is generated.",
		Parameters: models.Parameters{
			Type: "object",
			Properties: map[string]interface{}{
				"title": map[string]interface{}{
					"type":        "string",
					"description": "Title of the document",
				},
				"kind": map[string]interface{}{
					"type":        "string",
					"description": "Kind of document: 'text' or 'code'",
					"enum":        []string{"text", "code"},
				},
			},
			Required: []string{"title", "kind"},
		},
		Callable: HandlerFunc(CreateDocument),
	}
}

// UpdateDocumentTool returns the declaration for document updates.
func UpdateDocumentTool() models.FunctionDeclaration {
	return models.FunctionDeclaration{
		Name:        "updateDocument",
		Description: "Update an existing document with the described changes. A new revision is written; prior revisions are kept.",
		Parameters: models.Parameters{
			Type: "object",
			Properties: map[string]interface{}{
				"id": map[string]interface{}{
					"type":        "string",
					"description": "ID of the document to update",
				},
				"description": map[string]interface{}{
					"type":        "string",
					"description": "Description of the changes to make",
				},
			},
			Required: []string{"id", "description"},
		},
		Callable: HandlerFunc(UpdateDocument),
	}
}

// CreateDocument allocates a new document id, streams the content into the
// turn's data stream, persists the document and returns a summary object.
func CreateDocument(ctx context.Context, tc *ToolRunContext, args map[string]interface{}) (string, error) {
	title := stringArg(args, "title")
	kind := stringArg(args, "kind")
	documentID := uuid.NewString()

	model, err := tc.Models.Resolve(tc.ModelID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve model for document creation: %w", err)
	}

	system := textDocumentPrompt
	if kind == stores.DocumentKindCode {
		system = codeDocumentPrompt
	}

	content, err := artifacts.StreamContent(ctx, artifacts.Request{
		Model:      model,
		Kind:       kind,
		DocumentID: documentID,
		Title:      title,
		PriorTitle: "",
		System:     system,
		Prompt:     title,
	}, tc.Stream)
	if err != nil {
		return "", err
	}

	doc := &stores.Document{
		ID:      documentID,
		Title:   title,
		Kind:    kind,
		Content: content,
		UserID:  tc.UserID,
	}
	if err := tc.Store.SaveDocument(doc); err != nil {
		return "", fmt.Errorf("failed to save document: %w", err)
	}

	return marshalSummary(map[string]string{
		"id":      documentID,
		"title":   title,
		"kind":    kind,
		"content": "A document was created and is now visible to the user.",
	})
}

// UpdateDocument loads the current revision, streams replacement content
// using the description as the change request, and persists a new revision.
// An unknown id yields a structured not-found result, not a turn failure.
func UpdateDocument(ctx context.Context, tc *ToolRunContext, args map[string]interface{}) (string, error) {
	documentID := stringArg(args, "id")
	description := stringArg(args, "description")

	doc, err := tc.Store.GetDocument(documentID)
	if err != nil {
		if errors.Is(err, stores.ErrNotFound) {
			return marshalSummary(map[string]string{"error": "Document not found"})
		}
		return "", fmt.Errorf("failed to load document %s: %w", documentID, err)
	}

	model, err := tc.Models.Resolve(tc.ModelID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve model for document update: %w", err)
	}

	system := textUpdatePrompt + doc.Content
	if doc.Kind == stores.DocumentKindCode {
		system = codeUpdatePrompt + doc.Content
	}

	content, err := artifacts.StreamContent(ctx, artifacts.Request{
		Model:      model,
		Kind:       doc.Kind,
		DocumentID: doc.ID,
		Title:      doc.Title,
		PriorTitle: doc.Title,
		System:     system,
		Prompt:     description,
	}, tc.Stream)
	if err != nil {
		return "", err
	}

	revision := &stores.Document{
		ID:      doc.ID,
		Title:   doc.Title,
		Kind:    doc.Kind,
		Content: content,
		UserID:  doc.UserID,
	}
	if err := tc.Store.SaveDocument(revision); err != nil {
		return "", fmt.Errorf("failed to save document revision: %w", err)
	}

	return marshalSummary(map[string]string{
		"id":      doc.ID,
		"title":   doc.Title,
		"kind":    doc.Kind,
		"content": "The document has been updated successfully.",
	})
}

func marshalSummary(summary interface{}) (string, error) {
	bytes, err := json.Marshal(summary)
	if err != nil {
		return "", fmt.Errorf("failed to marshal tool result: %w", err)
	}
	return string(bytes), nil
}
