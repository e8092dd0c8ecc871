// Package httpapi provides the HTTP API handler for Cortex.
// It delegates all business logic to the engine.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cortex-ai/cortex/agents"
	"github.com/cortex-ai/cortex/builder"
	"github.com/cortex-ai/cortex/dashboard"
	"github.com/cortex-ai/cortex/engine"
	"github.com/cortex-ai/cortex/eventbus"
	"github.com/cortex-ai/cortex/model"
	"github.com/cortex-ai/cortex/registry"
	"github.com/cortex-ai/cortex/store"
)

// Handler provides the HTTP API for Cortex.
type Handler struct {
	engine   *engine.Engine
	registry *registry.Registry
	team     *agents.Team
	board    *dashboard.Board
	router   chi.Router
}

// New creates a new HTTP API handler.
func New(eng *engine.Engine, reg *registry.Registry, team *agents.Team, board *dashboard.Board) *Handler {
	h := &Handler{engine: eng, registry: reg, team: team, board: board}
	h.router = h.buildRouter()
	return h
}

// Router returns the HTTP router.
func (h *Handler) Router() chi.Router {
	return h.router
}

func (h *Handler) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))
			r.Post("/containers", h.handleCreateContainer)
			r.Get("/containers", h.handleListContainers)
			r.Get("/containers/{id}", h.handleGetContainer)
			r.Delete("/containers/{id}", h.handleDeleteContainer)
			r.Post("/containers/{id}/commands", h.handleRunCommand)
			r.Get("/chat/messages", h.handleChatHistory)
			r.Post("/chat/messages", h.handleSendChatMessage)
			r.Get("/registry", h.handleRegistry)
			r.Get("/agents", h.handleAgents)
			r.Get("/dashboard", h.handleDashboard)
		})
		r.Get("/containers/{id}/events", h.handleContainerEvents)
		r.Get("/chat/events", h.handleChatEvents)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	return r
}

// --- Request/Response types ---

type createContainerRequest struct {
	Name      string   `json:"name"`
	Prompt    string   `json:"prompt,omitempty"`
	Base      string   `json:"base"`
	UI        []string `json:"ui,omitempty"`
	Datastore string   `json:"datastore,omitempty"`
}

type runCommandRequest struct {
	Command string `json:"command"`
}

type sendChatRequest struct {
	Text string `json:"text"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// --- Container handlers ---

func (h *Handler) handleCreateContainer(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req createContainerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Base == "" {
		writeError(w, http.StatusBadRequest, "base template is required")
		return
	}
	if len([]rune(req.Prompt)) > 10000 {
		writeError(w, http.StatusBadRequest, "prompt exceeds 10000 characters")
		return
	}

	c, err := h.engine.CreateContainer(builder.CreateOptions{
		Name:      req.Name,
		Prompt:    req.Prompt,
		Base:      req.Base,
		UI:        req.UI,
		Datastore: req.Datastore,
	})
	if err != nil {
		if errors.Is(err, builder.ErrInvalidOptions) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create container")
		log.Printf("Error creating container: %v", err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) handleListContainers(w http.ResponseWriter, r *http.Request) {
	containers, err := h.engine.ListContainers()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list containers")
		log.Printf("Error listing containers: %v", err)
		return
	}
	if containers == nil {
		containers = []*model.Container{}
	}
	writeJSON(w, http.StatusOK, containers)
}

func (h *Handler) handleGetContainer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, err := h.engine.GetContainer(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "container not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get container")
		log.Printf("Error getting container %s: %v", id, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) handleDeleteContainer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.engine.DeleteContainer(id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete container")
		log.Printf("Error deleting container %s: %v", id, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRunCommand(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req runCommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cmd, err := builder.ParseCommand(req.Command)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	c, err := h.engine.RunCommand(id, cmd)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "container not found")
		case errors.Is(err, builder.ErrInvalidTransition):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, engine.ErrCommandInFlight):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to run command")
			log.Printf("Error running %s on %s: %v", cmd, id, err)
		}
		return
	}
	writeJSON(w, http.StatusAccepted, c)
}

func (h *Handler) handleContainerEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	c, err := h.engine.GetContainer(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "container not found")
		return
	}

	flusher, ok := sseHeaders(w)
	if !ok {
		return
	}

	// Replay the stored terminal log, then stream live events.
	for _, line := range c.TerminalLogs {
		writeSSE(w, &eventbus.Event{
			Type:      string(line.Type),
			Data:      line.Content,
			CreatedAt: line.Timestamp,
		})
	}
	flusher.Flush()

	h.streamTopic(w, r, flusher, engine.ContainerTopic(id))
}

// --- Chat handlers ---

func (h *Handler) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.engine.ChatHistory()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load chat history")
		log.Printf("Error loading chat history: %v", err)
		return
	}
	if msgs == nil {
		msgs = []*model.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (h *Handler) handleSendChatMessage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req sendChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	if len([]rune(req.Text)) > 10000 {
		writeError(w, http.StatusBadRequest, "text exceeds 10000 characters")
		return
	}

	msg, err := h.engine.SendChatMessage(req.Text)
	if err != nil {
		if errors.Is(err, engine.ErrReplyPending) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to send message")
		log.Printf("Error sending chat message: %v", err)
		return
	}
	writeJSON(w, http.StatusAccepted, msg)
}

func (h *Handler) handleChatEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := sseHeaders(w)
	if !ok {
		return
	}
	h.streamTopic(w, r, flusher, engine.ChatTopic)
}

// --- Catalog handlers ---

func (h *Handler) handleRegistry(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.registry.Catalog())
}

func (h *Handler) handleAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.team)
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.board.Projects(r.Context()))
}

// --- Helpers ---

func sseHeaders(w http.ResponseWriter) (http.Flusher, bool) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return nil, false
	}
	return flusher, true
}

func (h *Handler) streamTopic(w http.ResponseWriter, r *http.Request, flusher http.Flusher, topic string) {
	ch := h.engine.Bus().Subscribe(topic)
	defer h.engine.Bus().Unsubscribe(topic, ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			writeSSE(w, event)
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("writeJSON encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeSSE(w http.ResponseWriter, event *eventbus.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("writeSSE marshal error: %v", err)
		return
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, string(data)); err != nil {
		log.Printf("writeSSE write error: %v", err)
	}
}
