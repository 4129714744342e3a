package common_tools

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"testing"

	"github.com/Desarso/chatstream/models"
	"github.com/Desarso/chatstream/sessions"
	"github.com/Desarso/chatstream/stores"
)

// fakeModel streams fixed text fragments.
type fakeModel struct {
	fragments []string
}

func (m *fakeModel) Model_Request(ctx context.Context, request models.Model_Request, tools []models.FunctionDeclaration, history []models.TurnMessage) (models.Model_Response, error) {
	text := strings.Join(m.fragments, "")
	return models.Model_Response{Parts: []models.Model_Part{{Text: &text}}}, nil
}

func (m *fakeModel) Stream_Model_Request(ctx context.Context, request models.Model_Request, tools []models.FunctionDeclaration, history []models.TurnMessage) (<-chan models.Model_Response, <-chan error) {
	respChan := make(chan models.Model_Response)
	errChan := make(chan error, 1)
	go func() {
		defer close(respChan)
		defer close(errChan)
		for _, fragment := range m.fragments {
			text := fragment
			respChan <- models.Model_Response{Parts: []models.Model_Part{{Text: &text}}}
		}
	}()
	return respChan, errChan
}

// fakeResolver hands out the same model for every id.
type fakeResolver struct {
	model models.Model
}

func (r *fakeResolver) Resolve(modelID string) (models.Model, error) {
	return r.model, nil
}

func newToolTestContext(t *testing.T, model models.Model) (*ToolRunContext, *sessions.BufferWriter, stores.ChatStore) {
	t.Helper()
	store, err := stores.NewSQLiteStoreSimple("file:" + t.Name() + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("Failed to open test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	writer := &sessions.BufferWriter{}
	tc := &ToolRunContext{
		UserID:  "user-1",
		ChatID:  "chat-1",
		ModelID: "test-model",
		Models:  &fakeResolver{model: model},
		Store:   store,
		Stream:  sessions.NewDataStream(writer),
		Logger:  log.Default(),
	}
	return tc, writer, store
}

func TestValidateArgs(t *testing.T) {
	decl := CreateDocumentTool()

	valid := map[string]interface{}{"title": "Essay", "kind": "text"}
	if err := ValidateArgs(decl, valid); err != nil {
		t.Errorf("Expected valid args to pass, got %v", err)
	}

	missing := map[string]interface{}{"title": "Essay"}
	if err := ValidateArgs(decl, missing); err == nil {
		t.Error("Expected missing required argument to fail")
	}

	wrongType := map[string]interface{}{"title": 42.0, "kind": "text"}
	if err := ValidateArgs(decl, wrongType); err == nil {
		t.Error("Expected wrong argument type to fail")
	}

	badEnum := map[string]interface{}{"title": "Essay", "kind": "spreadsheet"}
	if err := ValidateArgs(decl, badEnum); err == nil {
		t.Error("Expected enum violation to fail")
	}

	unknown := map[string]interface{}{"title": "Essay", "kind": "text", "extra": true}
	if err := ValidateArgs(decl, unknown); err == nil {
		t.Error("Expected unknown argument to fail")
	}
}

func TestExecutor_UnknownTool(t *testing.T) {
	tc, _, _ := newToolTestContext(t, &fakeModel{})
	executor := Executor(tc, DefaultTools())

	if _, err := executor(context.Background(), "launchRocket", nil); err == nil {
		t.Error("Expected unknown tool to fail")
	}
}

func TestCreateDocument_PersistsStreamedContent(t *testing.T) {
	model := &fakeModel{fragments: []string{"# Hello\n", "World"}}
	tc, writer, store := newToolTestContext(t, model)

	output, err := CreateDocument(context.Background(), tc, map[string]interface{}{
		"title": "Greeting",
		"kind":  "text",
	})
	if err != nil {
		t.Fatalf("CreateDocument failed: %v", err)
	}

	var summary map[string]string
	if err := json.Unmarshal([]byte(output), &summary); err != nil {
		t.Fatalf("Summary is not valid JSON: %v", err)
	}
	if summary["title"] != "Greeting" || summary["kind"] != "text" || summary["id"] == "" {
		t.Errorf("Unexpected summary: %v", summary)
	}

	doc, err := store.GetDocument(summary["id"])
	if err != nil {
		t.Fatalf("GetDocument failed: %v", err)
	}
	if doc.Content != "# Hello\nWorld" {
		t.Errorf("Persisted content %q does not match stream", doc.Content)
	}

	// Primer events precede the deltas; exactly one finish.
	if writer.Events[0].Type != sessions.EventID {
		t.Errorf("Expected id event first, got %s", writer.Events[0].Type)
	}
	if len(writer.EventsOfType(sessions.EventFinish)) != 1 {
		t.Error("Expected exactly one finish event")
	}
}

func TestUpdateDocument_UnknownID(t *testing.T) {
	tc, writer, store := newToolTestContext(t, &fakeModel{fragments: []string{"new content"}})

	output, err := UpdateDocument(context.Background(), tc, map[string]interface{}{
		"id":          "missing-doc",
		"description": "make it better",
	})
	if err != nil {
		t.Fatalf("Expected structured result, got error: %v", err)
	}

	var summary map[string]string
	if err := json.Unmarshal([]byte(output), &summary); err != nil {
		t.Fatalf("Summary is not valid JSON: %v", err)
	}
	if summary["error"] != "Document not found" {
		t.Errorf("Expected not-found payload, got %v", summary)
	}

	// No revision may be written and nothing may stream.
	if revisions, _ := store.GetDocumentRevisions("missing-doc"); len(revisions) != 0 {
		t.Errorf("Expected no revisions, got %d", len(revisions))
	}
	if len(writer.Events) != 0 {
		t.Errorf("Expected no stream events, got %d", len(writer.Events))
	}
}

func TestUpdateDocument_WritesNewRevision(t *testing.T) {
	model := &fakeModel{fragments: []string{"revised"}}
	tc, _, store := newToolTestContext(t, model)

	if err := store.SaveDocument(&stores.Document{
		ID: "doc-1", Title: "Essay", Kind: stores.DocumentKindText, Content: "original", UserID: "user-1",
	}); err != nil {
		t.Fatalf("SaveDocument failed: %v", err)
	}

	if _, err := UpdateDocument(context.Background(), tc, map[string]interface{}{
		"id":          "doc-1",
		"description": "revise it",
	}); err != nil {
		t.Fatalf("UpdateDocument failed: %v", err)
	}

	revisions, err := store.GetDocumentRevisions("doc-1")
	if err != nil {
		t.Fatalf("GetDocumentRevisions failed: %v", err)
	}
	if len(revisions) != 2 {
		t.Fatalf("Expected 2 revisions, got %d", len(revisions))
	}
	doc, _ := store.GetDocument("doc-1")
	if doc.Content != "revised" {
		t.Errorf("Expected latest revision content 'revised', got %q", doc.Content)
	}
}

func TestRequestSuggestions_StreamsAndPersists(t *testing.T) {
	line := `{"originalText": "teh", "suggestedText": "the", "description": "typo"}`
	model := &fakeModel{fragments: []string{line + "\n", line + "\n"}}
	tc, writer, store := newToolTestContext(t, model)

	if err := store.SaveDocument(&stores.Document{
		ID: "doc-1", Title: "Essay", Kind: stores.DocumentKindText, Content: "teh text", UserID: "user-1",
	}); err != nil {
		t.Fatalf("SaveDocument failed: %v", err)
	}

	output, err := RequestSuggestions(context.Background(), tc, map[string]interface{}{
		"documentId": "doc-1",
	})
	if err != nil {
		t.Fatalf("RequestSuggestions failed: %v", err)
	}
	if !strings.Contains(output, "Suggestions have been added") {
		t.Errorf("Unexpected summary: %s", output)
	}

	persisted, err := store.GetSuggestionsByDocument("doc-1")
	if err != nil {
		t.Fatalf("GetSuggestionsByDocument failed: %v", err)
	}
	emitted := writer.EventsOfType(sessions.EventSuggestion)
	if len(persisted) != len(emitted) {
		t.Errorf("Persisted %d suggestions but emitted %d events", len(persisted), len(emitted))
	}
	if len(persisted) != 2 {
		t.Errorf("Expected 2 suggestions, got %d", len(persisted))
	}
}

func TestRequestSuggestions_CapsAtFive(t *testing.T) {
	var fragments []string
	for i := 0; i < 8; i++ {
		fragments = append(fragments, `{"originalText": "a", "suggestedText": "b", "description": "c"}`+"\n")
	}
	model := &fakeModel{fragments: fragments}
	tc, _, store := newToolTestContext(t, model)

	if err := store.SaveDocument(&stores.Document{
		ID: "doc-1", Title: "Essay", Kind: stores.DocumentKindText, Content: "text", UserID: "user-1",
	}); err != nil {
		t.Fatalf("SaveDocument failed: %v", err)
	}

	if _, err := RequestSuggestions(context.Background(), tc, map[string]interface{}{
		"documentId": "doc-1",
	}); err != nil {
		t.Fatalf("RequestSuggestions failed: %v", err)
	}

	persisted, _ := store.GetSuggestionsByDocument("doc-1")
	if len(persisted) != MaxSuggestions {
		t.Errorf("Expected the cap of %d suggestions, got %d", MaxSuggestions, len(persisted))
	}
}
