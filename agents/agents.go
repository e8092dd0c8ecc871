// Package agents holds the dev-team roster shown on the agents page.
// The roster ships embedded; it is read-only at runtime.
package agents

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/cortex-ai/cortex/model"
)

//go:embed team.yaml
var teamYAML []byte

// LoggingConfig describes the team's logging convention.
type LoggingConfig struct {
	Style string `json:"style" yaml:"style"`
}

// Team is the full roster plus team-level configuration.
type Team struct {
	Signature         string        `json:"signature" yaml:"signature"`
	Version           string        `json:"version" yaml:"version"`
	BuildSystem       string        `json:"build_system" yaml:"build_system"`
	CoreFramework     string        `json:"core_framework" yaml:"core_framework"`
	TeamLead          string        `json:"team_lead" yaml:"team_lead"`
	PrimaryStack      string        `json:"primary_stack" yaml:"primary_stack"`
	CodeFormatter     string        `json:"code_formatter" yaml:"code_formatter"`
	PreferredLanguage string        `json:"preferred_language" yaml:"preferred_language"`
	Logging           LoggingConfig `json:"logging" yaml:"logging"`
	Members           []model.Agent `json:"members" yaml:"members"`
}

// Load parses the embedded roster.
func Load() (*Team, error) {
	var t Team
	if err := yaml.Unmarshal(teamYAML, &t); err != nil {
		return nil, fmt.Errorf("parsing team roster: %w", err)
	}
	if len(t.Members) == 0 {
		return nil, fmt.Errorf("team roster has no members")
	}
	for _, m := range t.Members {
		if m.Name == "" || m.Role == "" {
			return nil, fmt.Errorf("team roster member missing name or role")
		}
	}
	return &t, nil
}

// Member returns the agent with the given name.
func (t *Team) Member(name string) (model.Agent, bool) {
	for _, m := range t.Members {
		if m.Name == name {
			return m, true
		}
	}
	return model.Agent{}, false
}
