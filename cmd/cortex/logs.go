package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [container-id]",
	Short: "Get the status of a container",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

var logsFollow bool

var logsCmd = &cobra.Command{
	Use:   "logs [container-id]",
	Short: "View container terminal logs",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogs,
}

func init() {
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow log output")
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(logsCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	id := args[0]

	resp, err := http.Get(serverURL + "/api/containers/" + id)
	if err != nil {
		return fmt.Errorf("connecting to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, string(body))
	}

	var c struct {
		ID              string `json:"id"`
		Name            string `json:"name"`
		Operator        string `json:"operator"`
		Prompt          string `json:"prompt"`
		Status          string `json:"status"`
		CreatedAt       string `json:"created_at"`
		ChosenTemplates struct {
			Base      string   `json:"base"`
			UI        []string `json:"ui"`
			Datastore string   `json:"datastore"`
		} `json:"chosen_templates"`
		History []struct {
			Action string `json:"action"`
			By     string `json:"by"`
			At     string `json:"at"`
		} `json:"history"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&c); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}

	fmt.Printf("Container:  %s\n", c.ID)
	fmt.Printf("Name:       %s\n", c.Name)
	fmt.Printf("Status:     %s\n", statusIcon(c.Status))
	fmt.Printf("Operator:   %s\n", c.Operator)
	fmt.Printf("Base:       %s\n", c.ChosenTemplates.Base)
	if len(c.ChosenTemplates.UI) > 0 {
		fmt.Printf("UI:         %v\n", c.ChosenTemplates.UI)
	}
	if c.ChosenTemplates.Datastore != "" {
		fmt.Printf("Datastore:  %s\n", c.ChosenTemplates.Datastore)
	}
	if c.Prompt != "" {
		fmt.Printf("Prompt:     %s\n", c.Prompt)
	}
	fmt.Printf("Created:    %s\n", c.CreatedAt)
	fmt.Printf("History:    %d entries\n", len(c.History))

	return nil
}

func runLogs(cmd *cobra.Command, args []string) error {
	return streamEvents(args[0])
}

// streamEvents prints the SSE feed for a container: the stored log
// replay first, then live events. Without --follow it stops after the
// first "done" event.
func streamEvents(id string) error {
	req, _ := http.NewRequest("GET", serverURL+"/api/containers/"+id+"/events", nil)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("connecting to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, string(body))
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) < 6 || line[:6] != "data: " {
			continue
		}

		var event struct {
			Type string `json:"type"`
			Data string `json:"data"`
		}
		if err := json.Unmarshal([]byte(line[6:]), &event); err != nil {
			continue
		}

		switch event.Type {
		case "status":
			fmt.Printf("\033[36m[status]\033[0m %s\n", event.Data)
		case "command":
			fmt.Printf("\033[33m%s\033[0m\n", event.Data)
		case "output":
			fmt.Println(event.Data)
		case "error":
			fmt.Fprintf(os.Stderr, "\033[31m[error]\033[0m %s\n", event.Data)
		case "done":
			fmt.Printf("\n\033[32m✓ Done:\033[0m %s\n", event.Data)
			if !logsFollow && !runFollow {
				return nil
			}
		}
	}

	return scanner.Err()
}
