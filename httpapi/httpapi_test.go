package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cortex-ai/cortex/agents"
	"github.com/cortex-ai/cortex/builder"
	"github.com/cortex-ai/cortex/dashboard"
	"github.com/cortex-ai/cortex/engine"
	"github.com/cortex-ai/cortex/eventbus"
	"github.com/cortex-ai/cortex/model"
	"github.com/cortex-ai/cortex/registry"
	sqliteStore "github.com/cortex-ai/cortex/store/sqlite"
)

// testHandler builds a Handler wired to a real SQLite store and
// in-memory bus, with no completion client or notifier.
func testHandler(t *testing.T) *Handler {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := sqliteStore.Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	reg, err := registry.Load()
	if err != nil {
		t.Fatalf("load registry: %v", err)
	}
	team, err := agents.Load()
	if err != nil {
		t.Fatalf("load team: %v", err)
	}

	eng := engine.New(st, eventbus.New(), builder.New(reg, "andoy", 0), nil, nil)
	t.Cleanup(eng.Stop)
	return New(eng, reg, team, dashboard.New("", nil))
}

func doJSON(t *testing.T, h *Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.Router().ServeHTTP(w, req)
	return w
}

func createContainer(t *testing.T, h *Handler) model.Container {
	t.Helper()
	w := doJSON(t, h, http.MethodPost, "/api/containers",
		`{"name":"My App","base":"REACT","ui":["TAILWIND"],"datastore":"IndexedDB"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var c model.Container
	if err := json.NewDecoder(w.Body).Decode(&c); err != nil {
		t.Fatalf("parsing container: %v", err)
	}
	return c
}

func TestHealthEndpoint(t *testing.T) {
	h := testHandler(t)

	w := doJSON(t, h, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.String() != "ok" {
		t.Fatalf("expected 'ok', got %q", w.Body.String())
	}
}

func TestCreateContainer(t *testing.T) {
	h := testHandler(t)

	c := createContainer(t, h)
	if c.ID == "" {
		t.Fatal("expected non-empty container ID")
	}
	if c.Status != model.StatusInitialized {
		t.Fatalf("expected initialized, got %s", c.Status)
	}
	if c.Operator != "andoy" {
		t.Fatalf("expected operator andoy, got %s", c.Operator)
	}
}

func TestCreateContainerMissingName(t *testing.T) {
	h := testHandler(t)

	w := doJSON(t, h, http.MethodPost, "/api/containers", `{"base":"REACT"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestCreateContainerUnknownTemplate(t *testing.T) {
	h := testHandler(t)

	w := doJSON(t, h, http.MethodPost, "/api/containers", `{"name":"x","base":"SVELTE"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var resp errorResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if !strings.Contains(resp.Error, "SVELTE") {
		t.Fatalf("expected template name in error, got %q", resp.Error)
	}
}

func TestGetContainerNotFound(t *testing.T) {
	h := testHandler(t)

	w := doJSON(t, h, http.MethodGet, "/api/containers/cntr_missing0", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestListContainersEmpty(t *testing.T) {
	h := testHandler(t)

	w := doJSON(t, h, http.MethodGet, "/api/containers", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Fatalf("expected empty array, got %q", w.Body.String())
	}
}

func TestDeleteContainer(t *testing.T) {
	h := testHandler(t)
	c := createContainer(t, h)

	w := doJSON(t, h, http.MethodDelete, "/api/containers/"+c.ID, "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}

	w = doJSON(t, h, http.MethodGet, "/api/containers/"+c.ID, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", w.Code)
	}

	// Idempotent delete.
	w = doJSON(t, h, http.MethodDelete, "/api/containers/"+c.ID, "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 on repeat delete, got %d", w.Code)
	}
}

func TestRunCommandAccepted(t *testing.T) {
	h := testHandler(t)
	c := createContainer(t, h)

	w := doJSON(t, h, http.MethodPost, "/api/containers/"+c.ID+"/commands", `{"command":"install"}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
	var got model.Container
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("parsing container: %v", err)
	}
	if got.Status != model.StatusInstalling {
		t.Fatalf("expected transient installing, got %s", got.Status)
	}
	if len(got.TerminalLogs) != 1 {
		t.Fatalf("response must show state at command start, got %d log lines", len(got.TerminalLogs))
	}

	// The final state lands asynchronously.
	waitForStatus(t, h, c.ID, model.StatusInstalled)
}

func TestRunCommandInvalidTransition(t *testing.T) {
	h := testHandler(t)
	c := createContainer(t, h)

	w := doJSON(t, h, http.MethodPost, "/api/containers/"+c.ID+"/commands", `{"command":"build"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRunCommandUnknownCommand(t *testing.T) {
	h := testHandler(t)
	c := createContainer(t, h)

	w := doJSON(t, h, http.MethodPost, "/api/containers/"+c.ID+"/commands", `{"command":"deploy"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestRunCommandUnknownContainer(t *testing.T) {
	h := testHandler(t)

	w := doJSON(t, h, http.MethodPost, "/api/containers/cntr_missing0/commands", `{"command":"install"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestChatFlow(t *testing.T) {
	h := testHandler(t)

	w := doJSON(t, h, http.MethodGet, "/api/chat/messages", "")
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != "[]" {
		t.Fatalf("expected empty history, got %d %q", w.Code, w.Body.String())
	}

	w = doJSON(t, h, http.MethodPost, "/api/chat/messages", `{"text":"hello"}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
	var msg model.ChatMessage
	if err := json.NewDecoder(w.Body).Decode(&msg); err != nil {
		t.Fatalf("parsing message: %v", err)
	}
	if msg.Sender != model.SenderUser || msg.Text != "hello" {
		t.Fatalf("unexpected message: %+v", msg)
	}

	// Without a completion client the assistant still finalizes a reply.
	deadline := time.Now().Add(5 * time.Second)
	for {
		w = doJSON(t, h, http.MethodGet, "/api/chat/messages", "")
		var history []model.ChatMessage
		if err := json.NewDecoder(w.Body).Decode(&history); err != nil {
			t.Fatalf("parsing history: %v", err)
		}
		if len(history) == 2 {
			if history[1].Sender != model.SenderAI || len(history[1].Suggestions) == 0 {
				t.Fatalf("unexpected reply: %+v", history[1])
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("assistant reply never arrived, history: %+v", history)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSendChatMessageEmptyText(t *testing.T) {
	h := testHandler(t)

	w := doJSON(t, h, http.MethodPost, "/api/chat/messages", `{"text":"  "}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestRegistryEndpoint(t *testing.T) {
	h := testHandler(t)

	w := doJSON(t, h, http.MethodGet, "/api/registry", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var catalog map[string]map[string]model.Template
	if err := json.NewDecoder(w.Body).Decode(&catalog); err != nil {
		t.Fatalf("parsing catalog: %v", err)
	}
	if len(catalog["TEMPLATES"]) != 5 {
		t.Fatalf("expected 5 base templates, got %d", len(catalog["TEMPLATES"]))
	}
	if catalog["UI"]["SHADCN"].Path != "./shadcn-ui" {
		t.Fatalf("unexpected SHADCN entry: %+v", catalog["UI"]["SHADCN"])
	}
}

func TestAgentsEndpoint(t *testing.T) {
	h := testHandler(t)

	w := doJSON(t, h, http.MethodGet, "/api/agents", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var team agents.Team
	if err := json.NewDecoder(w.Body).Decode(&team); err != nil {
		t.Fatalf("parsing team: %v", err)
	}
	if len(team.Members) != 3 || team.TeamLead != "Vanessa" {
		t.Fatalf("unexpected team: %+v", team)
	}
}

func TestDashboardEndpoint(t *testing.T) {
	h := testHandler(t)

	w := doJSON(t, h, http.MethodGet, "/api/dashboard", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var projects []model.ManagedRepo
	if err := json.NewDecoder(w.Body).Decode(&projects); err != nil {
		t.Fatalf("parsing projects: %v", err)
	}
	if len(projects) != 5 {
		t.Fatalf("expected 5 projects, got %d", len(projects))
	}
	if projects[0].ID != "proj-001" || projects[0].Status != "Deployed" {
		t.Fatalf("unexpected first project: %+v", projects[0])
	}
}

func waitForStatus(t *testing.T, h *Handler, id string, want model.Status) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		w := doJSON(t, h, http.MethodGet, "/api/containers/"+id, "")
		var c model.Container
		if err := json.NewDecoder(w.Body).Decode(&c); err != nil {
			t.Fatalf("parsing container: %v", err)
		}
		if c.Status == want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("status never reached %s, still %s", want, c.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
