// Cortex - project dashboard backend
//
// Scaffold simulated containers, walk them through install/build/start,
// and chat with the dev-team assistant.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	serverURL string
)

var rootCmd = &cobra.Command{
	Use:   "cortex",
	Short: "Cortex - project dashboard backend",
	Long: `Cortex is the backend for the DevCore project dashboard.
Scaffold containers from templates and walk them through their lifecycle.

  cortex serve                                    Start the server
  cortex create "my app" --base REACT             Create a container
  cortex run <id> install                         Run a lifecycle command
  cortex list                                     List containers
  cortex logs <id> --follow                       Stream container logs
  cortex chat "how do I deploy?"                  Ask the assistant`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("CORTEX_SERVER", "http://localhost:8090"), "Cortex server URL")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
