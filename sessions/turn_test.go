package sessions

import (
	"context"
	"strings"
	"testing"

	"github.com/Desarso/chatstream/models"
	"github.com/Desarso/chatstream/stores"
)

// scriptedAgent replays a fixed response script, one step per Run_Stream call.
type scriptedAgent struct {
	steps [][]models.Model_Response
	calls int
}

func (a *scriptedAgent) Run(ctx context.Context, request models.Model_Request, history []models.TurnMessage) (models.Model_Response, error) {
	return models.Model_Response{}, nil
}

func (a *scriptedAgent) Run_Stream(ctx context.Context, request models.Model_Request, history []models.TurnMessage) (<-chan models.Model_Response, <-chan error) {
	respChan := make(chan models.Model_Response)
	errChan := make(chan error, 1)

	var script []models.Model_Response
	if a.calls < len(a.steps) {
		script = a.steps[a.calls]
	}
	a.calls++

	go func() {
		defer close(respChan)
		defer close(errChan)
		for _, response := range script {
			respChan <- response
		}
	}()
	return respChan, errChan
}

func textResponse(text string) models.Model_Response {
	return models.Model_Response{Parts: []models.Model_Part{{Text: &text}}}
}

func callResponse(id, name string) models.Model_Response {
	return models.Model_Response{Parts: []models.Model_Part{{
		FunctionCall: &models.FunctionCall{ID: id, Name: name, Args: map[string]interface{}{}},
	}}}
}

func newTurnTestStore(t *testing.T) stores.ChatStore {
	t.Helper()
	store, err := stores.NewSQLiteStoreSimple("file:" + t.Name() + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("Failed to open test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestSession(t *testing.T, agent AgentInterface, tools ToolExecutorFunc, store stores.ChatStore, writer *BufferWriter) *ChatSession {
	t.Helper()
	if tools == nil {
		tools = func(ctx context.Context, name string, args map[string]interface{}) (string, error) {
			return `{"ok": true}`, nil
		}
	}
	return NewChatSession("chat-1", "user-1", agent, tools, store, NewDataStream(writer), nil)
}

func userMessage(text string) models.User_Message {
	return models.User_Message{
		Role:    models.RoleUser,
		Content: models.Content{Parts: []models.User_Part{{Text: text}}},
	}
}

func TestRunTurn_DeltasMatchPersistedContent(t *testing.T) {
	store := newTurnTestStore(t)
	writer := &BufferWriter{}
	agent := &scriptedAgent{steps: [][]models.Model_Response{
		{textResponse("Hel"), textResponse("lo "), textResponse("there")},
	}}
	session := newTestSession(t, agent, nil, store, writer)

	if err := session.RunTurn(context.Background(), userMessage("hi"), "user-msg-1", nil); err != nil {
		t.Fatalf("RunTurn failed: %v", err)
	}

	// The first event announces the user message id, the last is the finish.
	if writer.Events[0].Type != EventUserMessageID || writer.Events[0].Content != "user-msg-1" {
		t.Errorf("Expected first event to carry the user message id, got %+v", writer.Events[0])
	}
	last := writer.Events[len(writer.Events)-1]
	if last.Type != EventFinish {
		t.Errorf("Expected finish as the last event, got %s", last.Type)
	}
	if len(writer.EventsOfType(EventFinish)) != 1 {
		t.Errorf("Expected exactly one finish event")
	}

	// Delta concatenation equals the persisted assistant content.
	streamed := ""
	for _, e := range writer.EventsOfType(EventTextDelta) {
		streamed += e.Content.(string)
	}
	msgs, err := store.GetMessages("chat-1")
	if err != nil {
		t.Fatalf("GetMessages failed: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("Expected 1 persisted message, got %d", len(msgs))
	}
	turn, err := stores.ToTurnMessage(msgs[0])
	if err != nil {
		t.Fatalf("ToTurnMessage failed: %v", err)
	}
	if turn.Text() != streamed || streamed != "Hello there" {
		t.Errorf("Persisted content %q does not match streamed deltas %q", turn.Text(), streamed)
	}

	// One annotation per persisted assistant message, before the finish event.
	annotations := writer.EventsOfType(EventMessageAnnotation)
	if len(annotations) != 1 {
		t.Fatalf("Expected 1 message annotation, got %d", len(annotations))
	}
}

func TestRunTurn_ToolLoop(t *testing.T) {
	store := newTurnTestStore(t)
	writer := &BufferWriter{}
	agent := &scriptedAgent{steps: [][]models.Model_Response{
		{callResponse("", "getWeather")},
		{textResponse("sunny")},
	}}

	var executedName string
	tools := func(ctx context.Context, name string, args map[string]interface{}) (string, error) {
		executedName = name
		return `{"temp": 20}`, nil
	}
	session := newTestSession(t, agent, tools, store, writer)

	if err := session.RunTurn(context.Background(), userMessage("weather?"), "user-msg-1", nil); err != nil {
		t.Fatalf("RunTurn failed: %v", err)
	}
	if executedName != "getWeather" {
		t.Errorf("Expected getWeather to be executed, got %q", executedName)
	}
	if agent.calls != 2 {
		t.Errorf("Expected 2 model steps, got %d", agent.calls)
	}

	msgs, err := store.GetMessages("chat-1")
	if err != nil {
		t.Fatalf("GetMessages failed: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("Expected assistant+tool+assistant messages, got %d", len(msgs))
	}
	if msgs[0].Role != models.RoleAssistant || msgs[1].Role != models.RoleTool || msgs[2].Role != models.RoleAssistant {
		t.Errorf("Unexpected role sequence: %s, %s, %s", msgs[0].Role, msgs[1].Role, msgs[2].Role)
	}

	// The synthesized call id must tie the call to its result.
	callTurn, _ := stores.ToTurnMessage(msgs[0])
	resultTurn, _ := stores.ToTurnMessage(msgs[1])
	callID := callTurn.Parts[0].ToolCallID
	if callID == "" || !strings.HasPrefix(callID, "call_getWeather_") {
		t.Errorf("Expected synthesized call id, got %q", callID)
	}
	if resultTurn.Parts[0].ToolCallID != callID {
		t.Errorf("Tool result id %q does not match call id %q", resultTurn.Parts[0].ToolCallID, callID)
	}
}

func TestRunTurn_StepCapBoundsLoop(t *testing.T) {
	store := newTurnTestStore(t)
	writer := &BufferWriter{}

	// An agent that always wants another tool call would loop forever
	// without the cap.
	agent := &scriptedAgent{steps: [][]models.Model_Response{
		{callResponse("call-1", "getWeather")},
		{callResponse("call-2", "getWeather")},
		{callResponse("call-3", "getWeather")},
		{callResponse("call-4", "getWeather")},
		{callResponse("call-5", "getWeather")},
		{callResponse("call-6", "getWeather")},
	}}
	session := newTestSession(t, agent, nil, store, writer)
	session.MaxSteps = 3

	if err := session.RunTurn(context.Background(), userMessage("loop"), "user-msg-1", nil); err != nil {
		t.Fatalf("RunTurn failed: %v", err)
	}
	if agent.calls != 3 {
		t.Errorf("Expected the step cap to stop the loop at 3 steps, got %d", agent.calls)
	}
	last := writer.Events[len(writer.Events)-1]
	if last.Type != EventFinish {
		t.Errorf("Expected finish event even when the cap ends the turn, got %s", last.Type)
	}
}

func TestRunTurn_FailingToolFeedsErrorBack(t *testing.T) {
	store := newTurnTestStore(t)
	writer := &BufferWriter{}
	agent := &scriptedAgent{steps: [][]models.Model_Response{
		{callResponse("call-1", "getWeather")},
		{textResponse("could not fetch the weather")},
	}}

	tools := func(ctx context.Context, name string, args map[string]interface{}) (string, error) {
		return "", context.DeadlineExceeded
	}
	session := newTestSession(t, agent, tools, store, writer)

	// The tool failure must not abort the turn.
	if err := session.RunTurn(context.Background(), userMessage("weather?"), "user-msg-1", nil); err != nil {
		t.Fatalf("RunTurn failed: %v", err)
	}

	msgs, _ := store.GetMessages("chat-1")
	if len(msgs) != 3 {
		t.Fatalf("Expected 3 persisted messages, got %d", len(msgs))
	}
	resultTurn, _ := stores.ToTurnMessage(msgs[1])
	if !strings.Contains(string(resultTurn.Parts[0].Result), "error") {
		t.Errorf("Expected structured error payload, got %s", resultTurn.Parts[0].Result)
	}
}
