package artifacts

import (
	"context"
	"testing"

	"github.com/Desarso/chatstream/models"
	"github.com/Desarso/chatstream/sessions"
)

// fakeModel streams a fixed sequence of text fragments.
type fakeModel struct {
	fragments []string
}

func (m *fakeModel) Model_Request(ctx context.Context, request models.Model_Request, tools []models.FunctionDeclaration, history []models.TurnMessage) (models.Model_Response, error) {
	return models.Model_Response{}, nil
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

func TestStreamContent_TextPrimerOrderAndAccumulation(t *testing.T) {
	writer := &sessions.BufferWriter{}
	stream := sessions.NewDataStream(writer)
	model := &fakeModel{fragments: []string{"# Title\n", "First ", "paragraph."}}

	content, err := StreamContent(context.Background(), Request{
		Model:      model,
		Kind:       "text",
		DocumentID: "doc-1",
		Title:      "Essay",
		System:     "write",
		Prompt:     "Essay",
	}, stream)
	if err != nil {
		t.Fatalf("StreamContent failed: %v", err)
	}
	if content != "# Title\nFirst paragraph." {
		t.Errorf("Unexpected accumulated content: %q", content)
	}

	// The primer events must precede every delta, in the fixed order.
	expected := []string{sessions.EventID, sessions.EventTitle, sessions.EventKind, sessions.EventClear}
	for i, kind := range expected {
		if writer.Events[i].Type != kind {
			t.Errorf("Primer event %d: expected %s, got %s", i, kind, writer.Events[i].Type)
		}
	}
	if writer.Events[4].Type != sessions.EventTextDelta {
		t.Errorf("Expected first delta after the primer, got %s", writer.Events[4].Type)
	}

	finishes := writer.EventsOfType(sessions.EventFinish)
	if len(finishes) != 1 {
		t.Fatalf("Expected exactly one finish event, got %d", len(finishes))
	}
	if writer.Events[len(writer.Events)-1].Type != sessions.EventFinish {
		t.Error("Expected finish as the last event")
	}
}

func TestStreamContent_FinishEmittedForEmptyStream(t *testing.T) {
	writer := &sessions.BufferWriter{}
	stream := sessions.NewDataStream(writer)
	model := &fakeModel{}

	content, err := StreamContent(context.Background(), Request{
		Model: model, Kind: "text", DocumentID: "doc-1", Title: "Empty",
	}, stream)
	if err != nil {
		t.Fatalf("StreamContent failed: %v", err)
	}
	if content != "" {
		t.Errorf("Expected empty content, got %q", content)
	}
	if len(writer.EventsOfType(sessions.EventFinish)) != 1 {
		t.Error("Expected finish even when nothing streamed")
	}
}

func TestStreamContent_CodeDeltasCarryFullValue(t *testing.T) {
	writer := &sessions.BufferWriter{}
	stream := sessions.NewDataStream(writer)
	// The structured object arrives in fragments; each code-delta must carry
	// the full current value, not the increment.
	model := &fakeModel{fragments: []string{
		`{"code": "print(`,
		`'hi')`,
		`"}`,
	}}

	content, err := StreamContent(context.Background(), Request{
		Model: model, Kind: "code", DocumentID: "doc-1", Title: "Script",
	}, stream)
	if err != nil {
		t.Fatalf("StreamContent failed: %v", err)
	}
	if content != "print('hi')" {
		t.Errorf("Unexpected final code: %q", content)
	}

	deltas := writer.EventsOfType(sessions.EventCodeDelta)
	if len(deltas) == 0 {
		t.Fatal("Expected at least one code delta")
	}
	lastDelta := deltas[len(deltas)-1].Content.(string)
	if lastDelta != "print('hi')" {
		t.Errorf("Expected last delta to carry the full value, got %q", lastDelta)
	}
	if len(writer.EventsOfType(sessions.EventTextDelta)) != 0 {
		t.Error("Code streams must not emit text deltas")
	}
}

func TestExtractCodeField(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{"complete object", `{"code": "x = 1"}`, "x = 1", true},
		{"fenced object", "```json\n{\"code\": \"x = 1\"}\n```", "x = 1", true},
		{"partial value", `{"code": "x = `, "x = ", true},
		{"escaped quote", `{"code": "say \"hi\""}`, `say "hi"`, true},
		{"partial escape", `{"code": "line\`, "line", true},
		{"newline escape", `{"code": "a\nb`, "a\nb", true},
		{"no code field", `{"other": 1}`, "", false},
		{"value not started", `{"code":`, "", false},
	}

	for _, tc := range cases {
		got, ok := extractCodeField(tc.raw)
		if ok != tc.ok || got != tc.want {
			t.Errorf("%s: extractCodeField(%q) = (%q, %v), want (%q, %v)", tc.name, tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}
