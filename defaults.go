package cortex

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cortex-ai/cortex/agents"
	"github.com/cortex-ai/cortex/dashboard"
	"github.com/cortex-ai/cortex/eventbus"
	"github.com/cortex-ai/cortex/llm"
	llmGemini "github.com/cortex-ai/cortex/llm/gemini"
	"github.com/cortex-ai/cortex/registry"
	sqliteStore "github.com/cortex-ai/cortex/store/sqlite"
)

// applyDefaults fills in missing fields on the builder with sensible defaults.
func applyDefaults(b *Builder) error {
	// Config defaults.
	if b.config.ServerAddr == "" {
		b.config.ServerAddr = ":8090"
	}
	if b.config.DataDir == "" {
		b.config.DataDir = defaultDataDir()
	}
	if b.config.DatabasePath == "" {
		b.config.DatabasePath = filepath.Join(b.config.DataDir, "cortex.db")
	}
	if b.config.Operator == "" {
		b.config.Operator = "andoy"
	}
	if b.config.CommandDelay == 0 {
		b.config.CommandDelay = 250 * time.Millisecond
	}

	// Ensure data dir exists.
	if err := os.MkdirAll(b.config.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	// Store.
	if b.store == nil {
		st, err := sqliteStore.Open(b.config.DatabasePath)
		if err != nil {
			return fmt.Errorf("initializing store: %w", err)
		}
		b.store = st
	}

	// Event bus.
	if b.bus == nil {
		b.bus = eventbus.New()
	}

	// Template registry.
	if b.registry == nil {
		reg, err := registry.Load()
		if err != nil {
			return fmt.Errorf("loading template registry: %w", err)
		}
		b.registry = reg
	}

	// Dev-agent roster.
	if b.team == nil {
		team, err := agents.Load()
		if err != nil {
			return fmt.Errorf("loading agent roster: %w", err)
		}
		b.team = team
	}

	// Project health board.
	if b.board == nil {
		b.board = dashboard.New(b.config.GitHubToken, b.config.TrackedRepos)
	}

	// Completion client.
	if b.llm == nil {
		b.llm = llmClientFromEnv()
	}

	return nil
}

// llmClientFromEnv creates a completion client from environment
// variables. Returns nil if no API key is found.
func llmClientFromEnv() llm.Client {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		return llmGemini.New(key, os.Getenv("CORTEX_GEMINI_MODEL"))
	}
	return nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cortex"
	}
	return filepath.Join(home, ".cortex")
}
