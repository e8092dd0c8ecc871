// Package dashboard serves the project health board: a fixed seed of
// managed projects, enriched with live stars and push activity for rows
// that track a real repository when a GitHub token is configured.
package dashboard

import (
	"context"
	"log"
	"strings"

	gogh "github.com/google/go-github/v68/github"

	"github.com/cortex-ai/cortex/model"
)

// seed is the managed project roster shown when no live data is available.
var seed = []model.ManagedRepo{
	{ID: "proj-001", Name: "E-commerce Frontend", Status: "Deployed", Score: "98", LastUpdate: "feat: add new checkout flow"},
	{ID: "proj-002", Name: "API Gateway", Status: "Deployed", Score: "92", LastUpdate: "fix: correct auth middleware bug"},
	{ID: "proj-003", Name: "Design System", Status: "Failed", Score: "N/A", LastUpdate: "ci: update vitest config"},
	{ID: "proj-004", Name: "Marketing Website", Status: "Building", Score: "95", LastUpdate: "refactor: migrate to vue 3.3"},
	{ID: "proj-005", Name: "Admin Dashboard", Status: "Deployed", Score: "96", LastUpdate: "docs: update readme"},
}

// Board produces the managed project list.
type Board struct {
	gh      *gogh.Client // nil when enrichment is disabled
	tracked map[string]string
}

// New creates a Board. An empty token disables GitHub enrichment.
// tracked maps a seed project ID to an "owner/repo" it mirrors.
func New(token string, tracked map[string]string) *Board {
	b := &Board{tracked: tracked}
	if token != "" {
		b.gh = gogh.NewClient(nil).WithAuthToken(token)
	}
	return b
}

// Projects returns the board rows, enriched with live repository data
// where configured. Enrichment failures degrade to the seed values.
func (b *Board) Projects(ctx context.Context) []model.ManagedRepo {
	rows := make([]model.ManagedRepo, len(seed))
	copy(rows, seed)

	if b.gh == nil || len(b.tracked) == 0 {
		return rows
	}

	for i := range rows {
		full, ok := b.tracked[rows[i].ID]
		if !ok {
			continue
		}
		owner, repo, ok := splitRepo(full)
		if !ok {
			log.Printf("skipping tracked repo %q: expected owner/repo", full)
			continue
		}
		r, _, err := b.gh.Repositories.Get(ctx, owner, repo)
		if err != nil {
			log.Printf("enriching %s from %s: %v", rows[i].ID, full, err)
			continue
		}
		rows[i].Stars = r.GetStargazersCount()
		if t := r.GetPushedAt(); !t.IsZero() {
			rows[i].PushedAt = t.Format("2006-01-02")
		}
	}
	return rows
}

func splitRepo(full string) (owner, repo string, ok bool) {
	parts := strings.SplitN(full, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
