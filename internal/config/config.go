// Package config provides configuration management for the Cortex server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the Cortex server.
type Config struct {
	// ServerAddr is the address the HTTP server listens on (e.g., ":8090").
	ServerAddr string

	// DataDir is the directory for persistent data (SQLite DB, etc.).
	DataDir string

	// DatabasePath is the full path to the SQLite database file.
	DatabasePath string

	// Operator is the name recorded as the actor on container history entries.
	Operator string

	// CommandDelay is the pause between narrated output lines of a
	// simulated command.
	CommandDelay time.Duration

	// GeminiAPIKey enables the streaming chat assistant.
	GeminiAPIKey string
	// GeminiModel overrides the default completion model.
	GeminiModel string

	// Slack notifications (optional).
	SlackBotToken string
	SlackChannel  string

	// GitHubToken enables live enrichment on the project health board.
	GitHubToken string

	// TrackedRepos maps dashboard project IDs to "owner/repo" mirrors,
	// parsed from "proj-001=owner/repo,proj-002=owner/other".
	TrackedRepos map[string]string
}

// Load creates a Config from environment variables with sensible
// defaults. A .env file in the working directory is loaded first if
// present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dataDir := envOr("CORTEX_DATA_DIR", defaultDataDir())
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	cfg := &Config{
		ServerAddr:    envOr("CORTEX_ADDR", ":8090"),
		DataDir:       dataDir,
		DatabasePath:  filepath.Join(dataDir, "cortex.db"),
		Operator:      envOr("CORTEX_OPERATOR", "andoy"),
		CommandDelay:  time.Duration(envOrInt("CORTEX_COMMAND_DELAY_MS", 250)) * time.Millisecond,
		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiModel:   os.Getenv("CORTEX_GEMINI_MODEL"),
		SlackBotToken: os.Getenv("SLACK_BOT_TOKEN"),
		SlackChannel:  os.Getenv("SLACK_CHANNEL"),
		GitHubToken:   os.Getenv("GITHUB_TOKEN"),
		TrackedRepos:  parseTrackedRepos(os.Getenv("CORTEX_TRACKED_REPOS")),
	}

	return cfg, nil
}

// SlackEnabled returns true if Slack notifications are configured.
func (c *Config) SlackEnabled() bool {
	return c.SlackBotToken != "" && c.SlackChannel != ""
}

// parseTrackedRepos parses "id=owner/repo,id2=owner/repo2" pairs.
// Malformed pairs are skipped.
func parseTrackedRepos(s string) map[string]string {
	if s == "" {
		return nil
	}
	out := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		id, repo, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || id == "" || repo == "" {
			continue
		}
		out[id] = repo
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func envOrInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cortex"
	}
	return filepath.Join(home, ".cortex")
}
