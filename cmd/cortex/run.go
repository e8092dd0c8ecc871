package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
)

var runFollow bool

var runCmd = &cobra.Command{
	Use:   "run [container-id] [command]",
	Short: "Run a lifecycle command (install, build, start)",
	Args:  cobra.ExactArgs(2),
	RunE:  runRun,
}

func init() {
	runCmd.Flags().BoolVarP(&runFollow, "follow", "f", false, "Stream command output")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	id, command := args[0], args[1]

	body, err := json.Marshal(map[string]string{"command": command})
	if err != nil {
		return err
	}

	resp, err := http.Post(serverURL+"/api/containers/"+id+"/commands", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("connecting to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, string(respBody))
	}

	var c struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&c); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	fmt.Printf("Container %s: %s started, status %s\n", c.ID, command, c.Status)

	if runFollow {
		return streamEvents(id)
	}
	fmt.Printf("Follow progress with: cortex logs %s --follow\n", id)
	return nil
}
