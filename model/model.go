// Package model defines the core domain types shared across all Cortex packages.
// It has zero dependencies on other Cortex packages.
package model

import "time"

// Status represents the current lifecycle state of a container.
type Status string

const (
	StatusInitialized Status = "initialized"
	StatusInstalling  Status = "installing"
	StatusInstalled   Status = "installed"
	StatusBuilding    Status = "building"
	StatusBuilt       Status = "built"
	StatusRunning     Status = "running"
	// StatusError is a declared terminal state. It is a valid source state
	// for install (the retry path) but no command currently assigns it.
	StatusError Status = "error"
)

// Valid reports whether s is one of the known container statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusInitialized, StatusInstalling, StatusInstalled,
		StatusBuilding, StatusBuilt, StatusRunning, StatusError:
		return true
	}
	return false
}

// HistoryAction is the kind of lifecycle action recorded in a history entry.
type HistoryAction string

const (
	ActionCreate  HistoryAction = "create"
	ActionCommand HistoryAction = "command"
	// ActionFeatureAdd and ActionDebug are declared for forward
	// compatibility with the handover record format; nothing emits them yet.
	ActionFeatureAdd HistoryAction = "feature-add"
	ActionDebug      HistoryAction = "debug"
)

// LogType classifies a single terminal log line.
type LogType string

const (
	LogCommand LogType = "command"
	LogOutput  LogType = "output"
	LogError   LogType = "error"
)

// Sender identifies the author of a chat message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// ChosenTemplates records the registry selections a container was created
// from. Base and Datastore are single-valued, UI is multi-valued.
type ChosenTemplates struct {
	Base      string   `json:"base"`
	UI        []string `json:"ui"`
	Datastore string   `json:"datastore"`
}

// HistoryDetails carries the action-specific payload of a history entry.
// Only the fields relevant to the action are populated.
type HistoryDetails struct {
	Command   string   `json:"command,omitempty"`
	Status    string   `json:"status,omitempty"`
	Template  string   `json:"template,omitempty"`
	UI        []string `json:"ui,omitempty"`
	Datastore string   `json:"datastore,omitempty"`
	Feature   string   `json:"feature,omitempty"`
	Output    string   `json:"output,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// HistoryEntry is one immutable audit record of a lifecycle action.
type HistoryEntry struct {
	Action  HistoryAction  `json:"action"`
	By      string         `json:"by"`
	At      time.Time      `json:"at"`
	Details HistoryDetails `json:"details"`
}

// TerminalLog is one line of simulated command output.
type TerminalLog struct {
	Timestamp time.Time `json:"timestamp"`
	Content   string    `json:"content"`
	Type      LogType   `json:"type"`
}

// Container represents one scaffolded project and its simulated
// build/run lifecycle. History and TerminalLogs only grow; entries are
// never mutated or removed except by deleting the whole container.
type Container struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Operator        string            `json:"operator"`
	Prompt          string            `json:"prompt"`
	ChosenTemplates ChosenTemplates   `json:"chosen_templates"`
	Status          Status            `json:"status"`
	CreatedAt       time.Time         `json:"created_at"`
	History         []HistoryEntry    `json:"history"`
	Files           map[string]string `json:"files"`
	TerminalLogs    []TerminalLog     `json:"terminal_logs"`
}

// Clone returns a deep copy of the container. History entries are
// immutable, so their inner slices may be shared.
func (c *Container) Clone() *Container {
	out := *c
	out.ChosenTemplates.UI = append([]string(nil), c.ChosenTemplates.UI...)
	out.History = append([]HistoryEntry(nil), c.History...)
	out.TerminalLogs = append([]TerminalLog(nil), c.TerminalLogs...)
	if c.Files != nil {
		out.Files = make(map[string]string, len(c.Files))
		for k, v := range c.Files {
			out.Files[k] = v
		}
	}
	return &out
}

// ChatMessage is one turn in the dashboard conversation.
//
// The ID embeds the creation time as its second segment
// ("user-1712345678901-ab12cd34") for compatibility with existing stored
// data, but ordering always uses CreatedAt, never the ID.
type ChatMessage struct {
	ID          string    `json:"id"`
	Text        string    `json:"text"`
	Sender      Sender    `json:"sender"`
	IsTyping    bool      `json:"is_typing,omitempty"`
	Suggestions []string  `json:"suggestions,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Template is one selectable entry in the template registry.
type Template struct {
	Path string   `json:"path" yaml:"path"`
	Tags []string `json:"tags" yaml:"tags"`
}

// AgentPersonality describes how a dev agent approaches its work.
type AgentPersonality struct {
	Description string `json:"description" yaml:"description"`
	Focus       string `json:"focus" yaml:"focus"`
	Style       string `json:"style" yaml:"style"`
	Motto       string `json:"motto" yaml:"motto"`
}

// Agent is one dev-agent persona on the roster.
type Agent struct {
	Name         string           `json:"name" yaml:"name"`
	Role         string           `json:"role" yaml:"role"`
	Stack        []string         `json:"stack" yaml:"stack"`
	Personality  AgentPersonality `json:"personality" yaml:"personality"`
	ColorTheme   string           `json:"color_theme" yaml:"color_theme"`
	Capabilities []string         `json:"capabilities" yaml:"capabilities"`
	Quirks       []string         `json:"quirks" yaml:"quirks"`
}

// ManagedRepo is one project row on the health dashboard.
type ManagedRepo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	Score      string `json:"score"`
	LastUpdate string `json:"last_update"`
	Stars      int    `json:"stars,omitempty"`
	PushedAt   string `json:"pushed_at,omitempty"`
}

// Truncate shortens a string to maxLen runes, adding "..." if truncated.
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
