package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cortex-ai/cortex/model"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all containers",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	resp, err := http.Get(serverURL + "/api/containers")
	if err != nil {
		return fmt.Errorf("connecting to server: %w\nIs the server running? Start it with: cortex serve", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, string(body))
	}

	var containers []struct {
		ID              string `json:"id"`
		Name            string `json:"name"`
		Status          string `json:"status"`
		Prompt          string `json:"prompt"`
		ChosenTemplates struct {
			Base string `json:"base"`
		} `json:"chosen_templates"`
		CreatedAt string `json:"created_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&containers); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}

	if len(containers) == 0 {
		fmt.Println("No containers found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tBASE\tSTATUS\tPROMPT\tCREATED")
	for _, c := range containers {
		prompt := model.Truncate(c.Prompt, 50)
		if prompt == "" {
			prompt = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", c.ID, c.Name, c.ChosenTemplates.Base, statusIcon(c.Status), prompt, c.CreatedAt)
	}
	return w.Flush()
}

func statusIcon(status string) string {
	switch status {
	case "initialized":
		return "⏳ initialized"
	case "installing", "building":
		return "🔄 " + status
	case "installed", "built":
		return "✅ " + status
	case "running":
		return "🚀 running"
	case "error":
		return "❌ error"
	default:
		return status
	}
}
