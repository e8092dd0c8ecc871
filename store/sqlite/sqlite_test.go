package sqlite

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/cortex-ai/cortex/model"
	"github.com/cortex-ai/cortex/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func testContainer(id string, createdAt time.Time) *model.Container {
	return &model.Container{
		ID:       id,
		Name:     "My App",
		Operator: "andoy",
		ChosenTemplates: model.ChosenTemplates{
			Base:      "REACT",
			UI:        []string{"TAILWIND"},
			Datastore: "IndexedDB",
		},
		Status:    model.StatusInitialized,
		CreatedAt: createdAt,
		History: []model.HistoryEntry{{
			Action: model.ActionCreate,
			By:     "andoy",
			At:     createdAt,
			Details: model.HistoryDetails{
				Template:  "REACT",
				UI:        []string{"TAILWIND"},
				Datastore: "IndexedDB",
			},
		}},
		Files: map[string]string{
			"/package.json": `{ "name": "my-app", "version": "0.1.0" }`,
		},
		TerminalLogs: []model.TerminalLog{{
			Timestamp: createdAt,
			Content:   "Container My App created.",
			Type:      model.LogOutput,
		}},
	}
}

func TestContainerRoundTrip(t *testing.T) {
	st := newTestStore(t)

	now := time.Now().UTC().Truncate(time.Millisecond)
	c := testContainer("cntr_abc12345", now)
	if err := st.SaveContainer(c); err != nil {
		t.Fatalf("save container: %v", err)
	}

	got, err := st.GetContainer(c.ID)
	if err != nil {
		t.Fatalf("get container: %v", err)
	}
	if got.Name != c.Name || got.Status != model.StatusInitialized {
		t.Fatalf("unexpected container: %+v", got)
	}
	if got.ChosenTemplates.Base != "REACT" || got.ChosenTemplates.Datastore != "IndexedDB" {
		t.Fatalf("chosen templates lost: %+v", got.ChosenTemplates)
	}
	if len(got.History) != 1 || got.History[0].Action != model.ActionCreate {
		t.Fatalf("history lost: %+v", got.History)
	}
	if got.Files["/package.json"] == "" {
		t.Fatalf("files lost: %+v", got.Files)
	}
	if len(got.TerminalLogs) != 1 {
		t.Fatalf("terminal logs lost: %+v", got.TerminalLogs)
	}
}

func TestSaveContainerUpsertsInPlace(t *testing.T) {
	st := newTestStore(t)

	now := time.Now().UTC()
	c := testContainer("cntr_upsert01", now)
	if err := st.SaveContainer(c); err != nil {
		t.Fatalf("save container: %v", err)
	}

	c.Status = model.StatusInstalled
	c.History = append(c.History, model.HistoryEntry{
		Action:  model.ActionCommand,
		By:      "andoy",
		At:      now,
		Details: model.HistoryDetails{Command: "npm run install", Status: "success"},
	})
	if err := st.SaveContainer(c); err != nil {
		t.Fatalf("save updated container: %v", err)
	}

	all, err := st.ListContainers()
	if err != nil {
		t.Fatalf("list containers: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 container after upsert, got %d", len(all))
	}
	if all[0].Status != model.StatusInstalled || len(all[0].History) != 2 {
		t.Fatalf("update not applied: %+v", all[0])
	}
}

func TestGetContainerNotFound(t *testing.T) {
	st := newTestStore(t)

	_, err := st.GetContainer("cntr_missing0")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListContainersNewestFirst(t *testing.T) {
	st := newTestStore(t)

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		c := testContainer(fmt.Sprintf("cntr_order00%d", i), base.Add(time.Duration(i)*time.Minute))
		if err := st.SaveContainer(c); err != nil {
			t.Fatalf("save container %d: %v", i, err)
		}
	}

	all, err := st.ListContainers()
	if err != nil {
		t.Fatalf("list containers: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 containers, got %d", len(all))
	}
	if all[0].ID != "cntr_order002" || all[2].ID != "cntr_order000" {
		t.Fatalf("wrong order: %s, %s, %s", all[0].ID, all[1].ID, all[2].ID)
	}
}

func TestDeleteContainerIdempotent(t *testing.T) {
	st := newTestStore(t)

	c := testContainer("cntr_delete01", time.Now().UTC())
	if err := st.SaveContainer(c); err != nil {
		t.Fatalf("save container: %v", err)
	}

	if err := st.DeleteContainer(c.ID); err != nil {
		t.Fatalf("delete container: %v", err)
	}
	if _, err := st.GetContainer(c.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	// Second delete of the same id succeeds.
	if err := st.DeleteContainer(c.ID); err != nil {
		t.Fatalf("repeated delete: %v", err)
	}
	if err := st.DeleteContainer("cntr_neverwas"); err != nil {
		t.Fatalf("deleting unknown id: %v", err)
	}
}

func TestChatMessageAddAndList(t *testing.T) {
	st := newTestStore(t)

	base := time.Now().UTC().Truncate(time.Millisecond)
	msgs := []*model.ChatMessage{
		{ID: "user-1-aaaa0000", Text: "hello", Sender: model.SenderUser, CreatedAt: base},
		{ID: "ai-2-bbbb0000", Text: "hi there", Sender: model.SenderAI, Suggestions: []string{"HINT: What's the next step?"}, CreatedAt: base.Add(time.Second)},
		{ID: "user-3-cccc0000", Text: "thanks", Sender: model.SenderUser, CreatedAt: base.Add(2 * time.Second)},
	}
	// Insert out of order; listing must sort by creation time.
	for _, i := range []int{2, 0, 1} {
		if err := st.AddChatMessage(msgs[i]); err != nil {
			t.Fatalf("add message %d: %v", i, err)
		}
	}

	got, err := st.ListChatMessages()
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(got))
	}
	for i := range msgs {
		if got[i].ID != msgs[i].ID {
			t.Fatalf("wrong order at %d: got %s, want %s", i, got[i].ID, msgs[i].ID)
		}
	}
	if got[1].Suggestions[0] != "HINT: What's the next step?" {
		t.Fatalf("suggestions lost: %+v", got[1].Suggestions)
	}
}

func TestListChatMessagesSameMillisecondKeepsInsertionOrder(t *testing.T) {
	st := newTestStore(t)

	// A user message and the assistant reply can share a timestamp;
	// the reply must still list second.
	now := time.Now().UTC().Truncate(time.Millisecond)
	user := &model.ChatMessage{ID: "user-1-ffff0000", Text: "quick", Sender: model.SenderUser, CreatedAt: now}
	ai := &model.ChatMessage{ID: "ai-1-ffff0001", Text: "instant reply", Sender: model.SenderAI, CreatedAt: now}

	if err := st.AddChatMessage(user); err != nil {
		t.Fatalf("add user message: %v", err)
	}
	if err := st.UpsertChatMessage(ai); err != nil {
		t.Fatalf("upsert ai message: %v", err)
	}

	got, err := st.ListChatMessages()
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(got))
	}
	if got[0].ID != user.ID || got[1].ID != ai.ID {
		t.Fatalf("wrong order: %s, %s", got[0].ID, got[1].ID)
	}
}

func TestAddChatMessageDuplicateKey(t *testing.T) {
	st := newTestStore(t)

	msg := &model.ChatMessage{
		ID: "user-1-dddd0000", Text: "once", Sender: model.SenderUser, CreatedAt: time.Now().UTC(),
	}
	if err := st.AddChatMessage(msg); err != nil {
		t.Fatalf("add message: %v", err)
	}
	err := st.AddChatMessage(msg)
	if !errors.Is(err, store.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestUpsertChatMessageReplaces(t *testing.T) {
	st := newTestStore(t)

	now := time.Now().UTC()
	msg := &model.ChatMessage{
		ID: "ai-1-eeee0000", Text: "", Sender: model.SenderAI, CreatedAt: now,
	}
	if err := st.UpsertChatMessage(msg); err != nil {
		t.Fatalf("upsert new message: %v", err)
	}

	msg.Text = "final reply"
	msg.Suggestions = []string{"SUGGEST: Show me an example."}
	if err := st.UpsertChatMessage(msg); err != nil {
		t.Fatalf("upsert existing message: %v", err)
	}

	got, err := st.ListChatMessages()
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 message after upsert, got %d", len(got))
	}
	if got[0].Text != "final reply" || len(got[0].Suggestions) != 1 {
		t.Fatalf("upsert did not replace: %+v", got[0])
	}
}

func TestReopenPreservesData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	st, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	c := testContainer("cntr_reopen01", time.Now().UTC())
	if err := st.SaveContainer(c); err != nil {
		t.Fatalf("save container: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	st2, err := Open(dbPath)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer st2.Close()

	got, err := st2.GetContainer(c.ID)
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if got.Name != c.Name {
		t.Fatalf("data lost across reopen: %+v", got)
	}
}
