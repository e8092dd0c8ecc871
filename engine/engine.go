// Package engine orchestrates the Cortex lifecycle flows: it wires the
// container builder, the persistent store, the event bus, the streaming
// completion collaborator, and the optional notifier together. It
// depends only on interfaces plus the pure builder.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cortex-ai/cortex/builder"
	"github.com/cortex-ai/cortex/eventbus"
	"github.com/cortex-ai/cortex/llm"
	"github.com/cortex-ai/cortex/model"
	"github.com/cortex-ai/cortex/notify"
	"github.com/cortex-ai/cortex/store"
)

var (
	// ErrCommandInFlight is returned when a command is invoked on a
	// container that is already executing one. Commands on the same
	// container are single-flight.
	ErrCommandInFlight = errors.New("a command is already running for this container")

	// ErrReplyPending is returned when a chat message is sent while an
	// assistant reply is still streaming. One stream per conversation.
	ErrReplyPending = errors.New("an assistant reply is still pending")
)

// User-visible diagnostics for collaborator failures. A failed stream
// replaces any partial text with the fallback; it never surfaces the
// raw fault.
const (
	fallbackNoClient    = "Gemini API not initialized. Please check your API key."
	fallbackStreamError = "Sorry, I encountered an error. Please try again."
)

// defaultSuggestions are attached to every finalized assistant message.
var defaultSuggestions = []string{
	"HINT: What's the next step?",
	"REFINE: Explain that differently.",
	"SUGGEST: Show me an example.",
}

// ChatTopic is the event bus topic for chat stream events.
const ChatTopic = "chat"

// ContainerTopic returns the event bus topic for one container's
// terminal output.
func ContainerTopic(id string) string {
	return "container:" + id
}

// Engine coordinates all Cortex state mutation.
type Engine struct {
	store    store.Store
	bus      *eventbus.Bus
	builder  *builder.Builder
	llm      llm.Client      // nil when no API key is configured
	notifier notify.Notifier // nil when notifications are disabled

	mu          sync.Mutex
	locks       map[string]*sync.Mutex // per-container command locks
	chatPending bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an Engine. llmClient and notifier may be nil; the chat
// session then degrades to a fixed diagnostic and notifications are
// skipped.
func New(st store.Store, bus *eventbus.Bus, b *builder.Builder, llmClient llm.Client, notifier notify.Notifier) *Engine {
	return &Engine{
		store:    st,
		bus:      bus,
		builder:  b,
		llm:      llmClient,
		notifier: notifier,
		locks:    make(map[string]*sync.Mutex),
	}
}

// Start prepares the engine for background work. Call Stop to shut down.
func (e *Engine) Start(ctx context.Context) {
	e.ctx, e.cancel = context.WithCancel(ctx)
}

// Stop cancels background work and waits for in-flight goroutines.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
}

// Store returns the persistent store.
func (e *Engine) Store() store.Store { return e.store }

// Bus returns the event bus.
func (e *Engine) Bus() *eventbus.Bus { return e.bus }

// --- Containers ---

// CreateContainer builds a new container record and persists it.
func (e *Engine) CreateContainer(opts builder.CreateOptions) (*model.Container, error) {
	c, err := e.builder.CreateContainer(opts)
	if err != nil {
		return nil, err
	}
	if err := e.store.SaveContainer(c); err != nil {
		return nil, fmt.Errorf("persisting container: %w", err)
	}
	e.publish(ContainerTopic(c.ID), "status", string(c.Status))
	return c, nil
}

// GetContainer retrieves one container.
func (e *Engine) GetContainer(id string) (*model.Container, error) {
	return e.store.GetContainer(id)
}

// ListContainers returns all containers, newest first.
func (e *Engine) ListContainers() ([]*model.Container, error) {
	return e.store.ListContainers()
}

// DeleteContainer removes a container. Idempotent.
func (e *Engine) DeleteContainer(id string) error {
	return e.store.DeleteContainer(id)
}

// RunCommand starts a lifecycle command on a container. The transient
// status is persisted before this returns; the narration, final status
// transition, and history append happen asynchronously, with progress
// published on the container's topic. The returned container is a
// snapshot carrying the transient status; the worker never touches it.
//
// Invalid transitions are rejected up front with
// builder.ErrInvalidTransition and nothing is mutated. Commands on the
// same container are serialized: a second invocation while one is in
// flight fails with ErrCommandInFlight.
func (e *Engine) RunCommand(id string, cmd builder.Command) (*model.Container, error) {
	lock := e.containerLock(id)
	if !lock.TryLock() {
		return nil, ErrCommandInFlight
	}

	c, err := e.store.GetContainer(id)
	if err != nil {
		lock.Unlock()
		return nil, err
	}
	if !cmd.Allowed(c.Status) {
		lock.Unlock()
		// Contract violation: the caller is expected to gate commands on
		// the current status.
		log.Printf("invalid transition on %s: %s from %s", id, cmd, c.Status)
		return nil, fmt.Errorf("%w: cannot %s from status %s", builder.ErrInvalidTransition, cmd, c.Status)
	}

	// The caller gets an independent snapshot carrying the transient
	// status. The worker keeps mutating c, which stays at the original
	// status so the builder's own precondition holds.
	snapshot := c.Clone()
	snapshot.Status = cmd.Transient()
	if err := e.store.SaveContainer(snapshot); err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("persisting transient status: %w", err)
	}
	e.publish(ContainerTopic(c.ID), "status", string(snapshot.Status))

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer lock.Unlock()
		e.runCommand(c, cmd)
	}()

	return snapshot, nil
}

// runCommand executes the command narration to completion and persists
// the merged result. Once started it is never aborted; there is no
// cancellation in the command contract.
func (e *Engine) runCommand(c *model.Container, cmd builder.Command) {
	topic := ContainerTopic(c.ID)

	emit := func(content string, t model.LogType) {
		c.TerminalLogs = append(c.TerminalLogs, model.TerminalLog{
			Timestamp: time.Now().UTC(),
			Content:   content,
			Type:      t,
		})
		e.publish(topic, string(t), content)
	}

	result, err := e.builder.Run(c, cmd, emit)
	if err != nil {
		// c kept the status RunCommand validated against, so this only
		// fires on a contract break in the builder itself.
		log.Printf("command %s on %s failed: %v", cmd, c.ID, err)
		e.publish(topic, "error", err.Error())
		return
	}

	c.Status = result.Status
	c.History = append(c.History, result.History)
	for path, content := range result.NewFiles {
		c.Files[path] = content
	}

	if err := e.store.SaveContainer(c); err != nil {
		log.Printf("persisting %s after %s: %v", c.ID, cmd, err)
		e.publish(topic, "error", "failed to persist container state")
		return
	}

	e.publish(topic, "status", string(c.Status))
	e.publish(topic, "done", string(c.Status))
	e.notify(fmt.Sprintf("Container %s: `%s` finished, status %s", c.Name, cmd, c.Status))
}

// --- Chat session ---

// ChatHistory returns the persisted conversation, oldest first.
func (e *Engine) ChatHistory() ([]*model.ChatMessage, error) {
	return e.store.ListChatMessages()
}

// SendChatMessage durably stores the user message, then starts exactly
// one assistant turn against the completion collaborator. Only one
// assistant stream may be open at a time; a second send while one is
// pending fails with ErrReplyPending. The user message is returned; the
// assistant reply arrives on the chat topic and is persisted when
// finalized.
func (e *Engine) SendChatMessage(text string) (*model.ChatMessage, error) {
	e.mu.Lock()
	if e.chatPending {
		e.mu.Unlock()
		return nil, ErrReplyPending
	}
	e.chatPending = true
	e.mu.Unlock()

	// History is loaded before the new message is stored so the stream
	// seed matches the conversation the user saw. Storage trouble on
	// the read path degrades to an empty history.
	history, err := e.store.ListChatMessages()
	if err != nil {
		log.Printf("loading chat history: %v", err)
		history = nil
	}

	now := time.Now().UTC()
	userMsg := &model.ChatMessage{
		ID:        messageID(model.SenderUser, now),
		Text:      text,
		Sender:    model.SenderUser,
		CreatedAt: now,
	}
	if err := e.store.AddChatMessage(userMsg); err != nil {
		e.clearChatPending()
		return nil, fmt.Errorf("storing user message: %w", err)
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer e.clearChatPending()
		e.runAssistantTurn(history, userMsg)
	}()

	return userMsg, nil
}

// runAssistantTurn streams the assistant reply, accumulating chunks in
// an in-memory placeholder, and persists only the finalized message.
// Any collaborator failure discards partial text in favor of a fixed
// fallback string.
func (e *Engine) runAssistantTurn(history []*model.ChatMessage, userMsg *model.ChatMessage) {
	ctx := e.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	now := time.Now().UTC()
	placeholder := &model.ChatMessage{
		ID:        messageID(model.SenderAI, now),
		Sender:    model.SenderAI,
		IsTyping:  true,
		CreatedAt: now,
	}

	placeholder.Text = e.streamReply(ctx, history, userMsg)

	placeholder.IsTyping = false
	placeholder.Suggestions = append([]string{}, defaultSuggestions...)
	if err := e.store.UpsertChatMessage(placeholder); err != nil {
		log.Printf("persisting assistant message: %v", err)
	}
	e.publish(ChatTopic, "done", placeholder.Text)
}

func (e *Engine) streamReply(ctx context.Context, history []*model.ChatMessage, userMsg *model.ChatMessage) string {
	if e.llm == nil {
		return fallbackNoClient
	}

	s, err := e.llm.StreamMessage(ctx, history, userMsg.Text)
	if err != nil {
		log.Printf("opening completion stream: %v", err)
		if errors.Is(err, llm.ErrUnavailable) {
			return fallbackNoClient
		}
		return fallbackStreamError
	}
	defer s.Close()

	var full []byte
	for {
		chunk, err := s.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return string(full)
			}
			log.Printf("completion stream failed: %v", err)
			return fallbackStreamError
		}
		full = append(full, chunk...)
		e.publish(ChatTopic, "chunk", chunk)
	}
}

// --- Helpers ---

func (e *Engine) containerLock(id string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[id] = lock
	}
	return lock
}

func (e *Engine) clearChatPending() {
	e.mu.Lock()
	e.chatPending = false
	e.mu.Unlock()
}

func (e *Engine) publish(topic, eventType, data string) {
	e.bus.Publish(topic, &eventbus.Event{
		Type:      eventType,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	})
}

func (e *Engine) notify(text string) {
	if e.notifier == nil {
		return
	}
	ctx := e.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if err := e.notifier.Notify(ctx, text); err != nil {
		log.Printf("notification failed: %v", err)
	}
}

func messageID(sender model.Sender, t time.Time) string {
	return fmt.Sprintf("%s-%d-%s", sender, t.UnixMilli(), uuid.New().String()[:8])
}
