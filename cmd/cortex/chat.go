package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Send a message to the dashboard assistant",
	Args:  cobra.ExactArgs(1),
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	// Subscribe before sending so no chunk is missed.
	eventsReq, _ := http.NewRequest("GET", serverURL+"/api/chat/events", nil)
	eventsReq.Header.Set("Accept", "text/event-stream")
	eventsResp, err := http.DefaultClient.Do(eventsReq)
	if err != nil {
		return fmt.Errorf("connecting to server: %w", err)
	}
	defer eventsResp.Body.Close()

	body, err := json.Marshal(map[string]string{"text": args[0]})
	if err != nil {
		return err
	}
	resp, err := http.Post(serverURL+"/api/chat/messages", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("sending message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, string(respBody))
	}

	scanner := bufio.NewScanner(eventsResp.Body)
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
		case "chunk":
			fmt.Print(event.Data)
		case "done":
			fmt.Println()
			return nil
		}
	}
	return scanner.Err()
}
