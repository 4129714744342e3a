package stores

import (
	"testing"
	"time"
)

// newTestStore opens an in-memory SQLite database for one test.
func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStoreSimple("file:" + t.Name() + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("Failed to open test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestChatLifecycle(t *testing.T) {
	store := newTestStore(t)

	chat := &Chat{ID: "chat-1", UserID: "user-1", Title: "First chat"}
	if err := store.CreateChat(chat); err != nil {
		t.Fatalf("CreateChat failed: %v", err)
	}
	if chat.Visibility != VisibilityPrivate {
		t.Errorf("Expected default visibility private, got %s", chat.Visibility)
	}

	got, err := store.GetChat("chat-1")
	if err != nil {
		t.Fatalf("GetChat failed: %v", err)
	}
	if got.Title != "First chat" || got.UserID != "user-1" {
		t.Errorf("Unexpected chat: %+v", got)
	}

	if err := store.UpdateChatVisibility("chat-1", VisibilityPublic); err != nil {
		t.Fatalf("UpdateChatVisibility failed: %v", err)
	}
	got, _ = store.GetChat("chat-1")
	if got.Visibility != VisibilityPublic {
		t.Errorf("Expected visibility public, got %s", got.Visibility)
	}

	if _, err := store.GetChat("missing"); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound for missing chat, got %v", err)
	}
	if err := store.UpdateChatVisibility("missing", VisibilityPublic); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound updating missing chat, got %v", err)
	}
}

func TestDeleteChatCascades(t *testing.T) {
	store := newTestStore(t)

	if err := store.CreateChat(&Chat{ID: "chat-1", UserID: "user-1"}); err != nil {
		t.Fatalf("CreateChat failed: %v", err)
	}
	msgs := []Message{
		{ID: "msg-1", ChatID: "chat-1", Role: "user", PartsJSON: "[]"},
		{ID: "msg-2", ChatID: "chat-1", Role: "assistant", PartsJSON: "[]"},
	}
	if err := store.SaveMessages(msgs); err != nil {
		t.Fatalf("SaveMessages failed: %v", err)
	}
	if err := store.SetVote("chat-1", "msg-2", true); err != nil {
		t.Fatalf("SetVote failed: %v", err)
	}

	if err := store.DeleteChat("chat-1"); err != nil {
		t.Fatalf("DeleteChat failed: %v", err)
	}

	if _, err := store.GetChat("chat-1"); err != ErrNotFound {
		t.Errorf("Expected chat to be gone, got %v", err)
	}
	remaining, err := store.GetMessages("chat-1")
	if err != nil {
		t.Fatalf("GetMessages failed: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("Expected messages to be cascade deleted, got %d", len(remaining))
	}
	votes, err := store.GetVotesByChat("chat-1")
	if err != nil {
		t.Fatalf("GetVotesByChat failed: %v", err)
	}
	if len(votes) != 0 {
		t.Errorf("Expected votes to be cascade deleted, got %d", len(votes))
	}
}

func TestDeleteMessagesAfter(t *testing.T) {
	store := newTestStore(t)

	if err := store.CreateChat(&Chat{ID: "chat-1", UserID: "user-1"}); err != nil {
		t.Fatalf("CreateChat failed: %v", err)
	}
	base := time.Now().UTC().Truncate(time.Second)
	msgs := []Message{
		{ID: "msg-1", ChatID: "chat-1", Role: "user", PartsJSON: "[]", CreatedAt: base},
		{ID: "msg-2", ChatID: "chat-1", Role: "assistant", PartsJSON: "[]", CreatedAt: base.Add(time.Second)},
		{ID: "msg-3", ChatID: "chat-1", Role: "user", PartsJSON: "[]", CreatedAt: base.Add(2 * time.Second)},
	}
	if err := store.SaveMessages(msgs); err != nil {
		t.Fatalf("SaveMessages failed: %v", err)
	}
	if err := store.SetVote("chat-1", "msg-2", false); err != nil {
		t.Fatalf("SetVote failed: %v", err)
	}

	// Delete from msg-2 onward, votes on the deleted range must go too.
	if err := store.DeleteMessagesAfter("chat-1", base.Add(time.Second)); err != nil {
		t.Fatalf("DeleteMessagesAfter failed: %v", err)
	}

	remaining, err := store.GetMessages("chat-1")
	if err != nil {
		t.Fatalf("GetMessages failed: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != "msg-1" {
		t.Errorf("Expected only msg-1 to survive, got %+v", remaining)
	}
	votes, _ := store.GetVotesByChat("chat-1")
	if len(votes) != 0 {
		t.Errorf("Expected vote on deleted message to be removed, got %d", len(votes))
	}
}

func TestDocumentRevisions(t *testing.T) {
	store := newTestStore(t)

	base := time.Now().UTC().Truncate(time.Second)
	first := &Document{ID: "doc-1", CreatedAt: base, Title: "Essay", Kind: DocumentKindText, Content: "v1", UserID: "user-1"}
	second := &Document{ID: "doc-1", CreatedAt: base.Add(time.Minute), Title: "Essay", Kind: DocumentKindText, Content: "v2", UserID: "user-1"}
	if err := store.SaveDocument(first); err != nil {
		t.Fatalf("SaveDocument failed: %v", err)
	}
	if err := store.SaveDocument(second); err != nil {
		t.Fatalf("SaveDocument (revision) failed: %v", err)
	}

	// The latest revision is the current document.
	doc, err := store.GetDocument("doc-1")
	if err != nil {
		t.Fatalf("GetDocument failed: %v", err)
	}
	if doc.Content != "v2" {
		t.Errorf("Expected latest revision v2, got %s", doc.Content)
	}

	revisions, err := store.GetDocumentRevisions("doc-1")
	if err != nil {
		t.Fatalf("GetDocumentRevisions failed: %v", err)
	}
	if len(revisions) != 2 || revisions[0].Content != "v1" {
		t.Errorf("Expected 2 revisions oldest first, got %+v", revisions)
	}

	if err := store.DeleteDocumentRevisionsAfter("doc-1", base); err != nil {
		t.Fatalf("DeleteDocumentRevisionsAfter failed: %v", err)
	}
	doc, err = store.GetDocument("doc-1")
	if err != nil {
		t.Fatalf("GetDocument after rollback failed: %v", err)
	}
	if doc.Content != "v1" {
		t.Errorf("Expected rollback to v1, got %s", doc.Content)
	}

	if _, err := store.GetDocument("missing"); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound for missing document, got %v", err)
	}
}

func TestVoteUpsert(t *testing.T) {
	store := newTestStore(t)

	if err := store.SetVote("chat-1", "msg-1", true); err != nil {
		t.Fatalf("SetVote failed: %v", err)
	}
	// Re-voting overwrites instead of inserting a second row.
	if err := store.SetVote("chat-1", "msg-1", false); err != nil {
		t.Fatalf("SetVote (revote) failed: %v", err)
	}

	votes, err := store.GetVotesByChat("chat-1")
	if err != nil {
		t.Fatalf("GetVotesByChat failed: %v", err)
	}
	if len(votes) != 1 {
		t.Fatalf("Expected 1 vote after revote, got %d", len(votes))
	}
	if votes[0].IsUpvoted {
		t.Errorf("Expected the revote to win, vote is still an upvote")
	}
}

func TestSuggestionsByDocument(t *testing.T) {
	store := newTestStore(t)

	created := time.Now().UTC()
	suggestions := []Suggestion{
		{ID: "sug-1", DocumentID: "doc-1", DocumentCreatedAt: created, OriginalText: "teh", SuggestedText: "the", UserID: "user-1"},
		{ID: "sug-2", DocumentID: "doc-1", DocumentCreatedAt: created, OriginalText: "foo", SuggestedText: "bar", UserID: "user-1"},
	}
	if err := store.SaveSuggestions(suggestions); err != nil {
		t.Fatalf("SaveSuggestions failed: %v", err)
	}

	got, err := store.GetSuggestionsByDocument("doc-1")
	if err != nil {
		t.Fatalf("GetSuggestionsByDocument failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Expected 2 suggestions, got %d", len(got))
	}
}
