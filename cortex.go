// Package cortex is the top-level entry point for the Cortex dashboard
// backend.
//
// Use the Builder to compose a custom Cortex application:
//
//	app, err := cortex.NewBuilder().Build()
//	app.Start(ctx)
//
// Or customize components:
//
//	app, err := cortex.NewBuilder().
//	    WithStore(myStore).
//	    WithLLM(myClient).
//	    Build()
package cortex

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/cortex-ai/cortex/agents"
	"github.com/cortex-ai/cortex/builder"
	"github.com/cortex-ai/cortex/dashboard"
	"github.com/cortex-ai/cortex/engine"
	"github.com/cortex-ai/cortex/eventbus"
	"github.com/cortex-ai/cortex/httpapi"
	"github.com/cortex-ai/cortex/llm"
	"github.com/cortex-ai/cortex/notify"
	"github.com/cortex-ai/cortex/registry"
	"github.com/cortex-ai/cortex/store"
)

// Config holds top-level configuration for a Cortex application.
type Config struct {
	// ServerAddr is the address the HTTP server listens on (default ":8090").
	ServerAddr string

	// DataDir is the directory for persistent data (default "~/.cortex").
	DataDir string

	// DatabasePath is the full path to the SQLite database file.
	DatabasePath string

	// Operator is the actor recorded on container history entries
	// (default "andoy").
	Operator string

	// CommandDelay is the pause between narrated command output lines
	// (default 250ms).
	CommandDelay time.Duration

	// TrackedRepos maps dashboard project IDs to "owner/repo" mirrors
	// for live enrichment.
	TrackedRepos map[string]string

	// GitHubToken enables dashboard enrichment.
	GitHubToken string
}

// Builder constructs a Cortex App.
type Builder struct {
	config   Config
	store    store.Store
	bus      *eventbus.Bus
	registry *registry.Registry
	team     *agents.Team
	board    *dashboard.Board
	llm      llm.Client
	notifier notify.Notifier
}

// NewBuilder creates a new Builder with sensible defaults.
func NewBuilder() *Builder {
	return &Builder{}
}

// WithConfig sets the application configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithStore sets the persistent store implementation.
func (b *Builder) WithStore(s store.Store) *Builder {
	b.store = s
	return b
}

// WithBus sets the event bus.
func (b *Builder) WithBus(bus *eventbus.Bus) *Builder {
	b.bus = bus
	return b
}

// WithRegistry sets the template registry.
func (b *Builder) WithRegistry(r *registry.Registry) *Builder {
	b.registry = r
	return b
}

// WithTeam sets the dev-agent roster.
func (b *Builder) WithTeam(t *agents.Team) *Builder {
	b.team = t
	return b
}

// WithBoard sets the project health board.
func (b *Builder) WithBoard(board *dashboard.Board) *Builder {
	b.board = board
	return b
}

// WithLLM sets the streaming completion client for the chat assistant.
func (b *Builder) WithLLM(client llm.Client) *Builder {
	b.llm = client
	return b
}

// WithNotifier sets the lifecycle notifier.
func (b *Builder) WithNotifier(n notify.Notifier) *Builder {
	b.notifier = n
	return b
}

// Build creates the App. Missing components are filled with defaults.
func (b *Builder) Build() (*App, error) {
	if err := applyDefaults(b); err != nil {
		return nil, err
	}

	bld := builder.New(b.registry, b.config.Operator, b.config.CommandDelay)
	eng := engine.New(b.store, b.bus, bld, b.llm, b.notifier)
	handler := httpapi.New(eng, b.registry, b.team, b.board)

	return &App{
		config:  b.config,
		engine:  eng,
		handler: handler,
	}, nil
}

// App is a running Cortex application.
type App struct {
	config  Config
	engine  *engine.Engine
	handler *httpapi.Handler
}

// Engine returns the underlying engine for direct access.
func (a *App) Engine() *engine.Engine { return a.engine }

// Start starts the HTTP server. Blocks until ctx is done.
func (a *App) Start(ctx context.Context) error {
	a.engine.Start(ctx)

	srv := &http.Server{
		Addr:    a.config.ServerAddr,
		Handler: a.handler.Router(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("Cortex server listening on %s", a.config.ServerAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	a.engine.Stop()
	return a.engine.Store().Close()
}
