// Package builder implements the container lifecycle state machine: it
// constructs container records and runs the simulated scaffold commands
// that move them through the status pipeline.
//
// The package is deliberately free of persistence: CreateContainer and
// Run return records and updates for the caller to merge and store.
package builder

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cortex-ai/cortex/model"
	"github.com/cortex-ai/cortex/registry"
)

var (
	// ErrInvalidOptions is returned when container creation options fail
	// validation (empty name, unknown registry key).
	ErrInvalidOptions = errors.New("invalid container options")

	// ErrInvalidTransition is returned when a command is invoked from a
	// status that does not satisfy its precondition. The container is
	// left untouched. The UI prevents this by construction, so hitting
	// it is a programming-contract violation worth logging.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Command is one of the simulated scaffold commands.
type Command string

const (
	CommandInstall Command = "install"
	CommandBuild   Command = "build"
	CommandStart   Command = "start"
)

// ParseCommand validates a command name.
func ParseCommand(s string) (Command, error) {
	switch Command(s) {
	case CommandInstall, CommandBuild, CommandStart:
		return Command(s), nil
	}
	return "", fmt.Errorf("unknown command %q", s)
}

// From returns the statuses a command may be invoked from. Install is
// also valid from the error status (the retry path).
func (c Command) From() []model.Status {
	switch c {
	case CommandInstall:
		return []model.Status{model.StatusInitialized, model.StatusError}
	case CommandBuild:
		return []model.Status{model.StatusInstalled}
	case CommandStart:
		return []model.Status{model.StatusBuilt}
	}
	return nil
}

// Transient returns the status displayed while the command executes.
func (c Command) Transient() model.Status {
	switch c {
	case CommandInstall:
		return model.StatusInstalling
	case CommandBuild:
		return model.StatusBuilding
	case CommandStart:
		return model.StatusRunning
	}
	return ""
}

// Target returns the status the command transitions to on completion.
func (c Command) Target() model.Status {
	switch c {
	case CommandInstall:
		return model.StatusInstalled
	case CommandBuild:
		return model.StatusBuilt
	case CommandStart:
		return model.StatusRunning
	}
	return ""
}

// Allowed reports whether the command may run from the given status.
func (c Command) Allowed(from model.Status) bool {
	for _, s := range c.From() {
		if s == from {
			return true
		}
	}
	return false
}

// CreateOptions are the inputs to container creation.
type CreateOptions struct {
	Name      string
	Prompt    string
	Base      string
	UI        []string
	Datastore string
}

// Result is the set of updates a completed command produces. The caller
// merges these into its copy of the container and persists it.
type Result struct {
	Status   model.Status
	History  model.HistoryEntry
	NewFiles map[string]string
}

// Builder creates containers and runs lifecycle commands against them.
type Builder struct {
	registry *registry.Registry
	operator string

	// delay paces the simulated log lines. It is a UX device with no
	// correctness meaning; zero collapses the narration to immediate.
	delay time.Duration
}

// New creates a Builder. The operator is recorded as the author of
// every history entry.
func New(reg *registry.Registry, operator string, delay time.Duration) *Builder {
	return &Builder{registry: reg, operator: operator, delay: delay}
}

// CreateContainer validates the options and produces a new container in
// the initialized state with seeded boilerplate files, one create
// history entry, and one creation terminal log. It does not persist.
func (b *Builder) CreateContainer(opts CreateOptions) (*model.Container, error) {
	name := strings.TrimSpace(opts.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidOptions)
	}
	if _, ok := b.registry.Get(registry.CategoryTemplates, opts.Base); !ok {
		return nil, fmt.Errorf("%w: unknown base template %q", ErrInvalidOptions, opts.Base)
	}
	for _, ui := range opts.UI {
		if _, ok := b.registry.Get(registry.CategoryUI, ui); !ok {
			return nil, fmt.Errorf("%w: unknown ui template %q", ErrInvalidOptions, ui)
		}
	}
	if opts.Datastore != "" {
		if _, ok := b.registry.Get(registry.CategoryDatastore, opts.Datastore); !ok {
			return nil, fmt.Errorf("%w: unknown datastore %q", ErrInvalidOptions, opts.Datastore)
		}
	}

	now := time.Now().UTC()
	slug := strings.ToLower(strings.ReplaceAll(name, " ", "-"))

	return &model.Container{
		ID:       "cntr_" + uuid.New().String()[:8],
		Name:     name,
		Operator: b.operator,
		Prompt:   opts.Prompt,
		ChosenTemplates: model.ChosenTemplates{
			Base:      opts.Base,
			UI:        append([]string{}, opts.UI...),
			Datastore: opts.Datastore,
		},
		Status:    model.StatusInitialized,
		CreatedAt: now,
		History: []model.HistoryEntry{{
			Action: model.ActionCreate,
			By:     b.operator,
			At:     now,
			Details: model.HistoryDetails{
				Template:  opts.Base,
				UI:        append([]string{}, opts.UI...),
				Datastore: opts.Datastore,
			},
		}},
		Files: map[string]string{
			"/package.json":      fmt.Sprintf(`{ "name": %q, "version": "0.1.0" }`, slug),
			"/src/index.js":      fmt.Sprintf("// Main entry file for %s", name),
			"/public/index.html": fmt.Sprintf("<!DOCTYPE html><html><head><title>%s</title></head><body></body></html>", name),
		},
		TerminalLogs: []model.TerminalLog{{
			Timestamp: now,
			Content:   fmt.Sprintf("Container %s created.", name),
			Type:      model.LogOutput,
		}},
	}, nil
}

// Run executes a lifecycle command. The container's status must satisfy
// the command's precondition or ErrInvalidTransition is returned with
// nothing mutated. Progress lines are delivered through emit in order;
// once started, the narration runs to completion (there is no
// cancellation in this contract). The returned Result carries the final
// status, the history entry to append, and any new files to merge.
func (b *Builder) Run(c *model.Container, cmd Command, emit func(content string, t model.LogType)) (*Result, error) {
	if !cmd.Allowed(c.Status) {
		return nil, fmt.Errorf("%w: cannot %s from status %s", ErrInvalidTransition, cmd, c.Status)
	}

	emit(fmt.Sprintf("> npm run %s", cmd), model.LogCommand)

	step := func(msg string) {
		if b.delay > 0 {
			time.Sleep(b.delay)
		}
		emit(msg, model.LogOutput)
	}

	step(fmt.Sprintf("Starting '%s' command...", cmd))

	result := &Result{
		Status: cmd.Target(),
		History: model.HistoryEntry{
			Action: model.ActionCommand,
			By:     b.operator,
			At:     time.Now().UTC(),
			Details: model.HistoryDetails{
				Command: fmt.Sprintf("npm run %s", cmd),
				Status:  "success",
			},
		},
	}

	switch cmd {
	case CommandInstall:
		step("Resolving packages...")
		step("Fetching packages...")
		step("Linking dependencies...")
		emit("Installation complete.", model.LogOutput)
	case CommandBuild:
		step("Building for production...")
		step("vite v5.1.0 building for production...")
		step("✓ 24 modules transformed.")
		emit("Build complete.", model.LogOutput)
		result.NewFiles = map[string]string{"/dist/index.js": "// built file"}
	case CommandStart:
		emit("Starting dev server...", model.LogOutput)
		step("> Local: http://localhost:5173/")
	}

	return result, nil
}
