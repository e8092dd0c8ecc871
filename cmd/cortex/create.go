package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
)

var (
	createBase      string
	createUI        []string
	createDatastore string
	createPrompt    string
)

var createCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a new container from templates",
	Args:  cobra.ExactArgs(1),
	RunE:  runCreate,
}

func init() {
	createCmd.Flags().StringVar(&createBase, "base", "REACT", "base template key (REACT, VUE, VITE, TYPESCRIPT, VANILLA)")
	createCmd.Flags().StringSliceVar(&createUI, "ui", nil, "ui template keys (SHADCN, TAILWIND)")
	createCmd.Flags().StringVar(&createDatastore, "datastore", "", "datastore key (IndexedDB, JSONStore)")
	createCmd.Flags().StringVar(&createPrompt, "prompt", "", "creation prompt recorded on the container")
	rootCmd.AddCommand(createCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	body, err := json.Marshal(map[string]any{
		"name":      args[0],
		"prompt":    createPrompt,
		"base":      createBase,
		"ui":        createUI,
		"datastore": createDatastore,
	})
	if err != nil {
		return err
	}

	resp, err := http.Post(serverURL+"/api/containers", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("connecting to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, string(respBody))
	}

	var c struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&c); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}

	fmt.Printf("Created container %s (%s), status: %s\n", c.ID, c.Name, c.Status)
	fmt.Printf("Next: cortex run %s install\n", c.ID)
	return nil
}
