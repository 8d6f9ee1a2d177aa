package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/templar-app/templar/internal/backend"
)

var (
	baseURL   string
	timeout   time.Duration
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "templar",
	Short: "Templar - contract template service client",
	Long:  `Templar is a command line client for the contract template service: list, upload, edit and delete document templates from the terminal.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("templar %s (built %s)\n", version, buildTime)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&baseURL, "server", "http://localhost:8000", "Template service base URL")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", backend.DefaultTimeout, "Request timeout")

	rootCmd.AddCommand(versionCmd)
}

// newClient builds a backend client from the persistent flags.
func newClient() *backend.Client {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	return backend.NewClient(baseURL,
		backend.WithTimeout(timeout),
		backend.WithRetries(2, logger),
	)
}
