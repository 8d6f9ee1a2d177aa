package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/templar-app/templar/internal/backend"
)

var logLines int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show template service health",
	RunE:  runStatus,
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show recent template service log lines",
	RunE:  runLogs,
}

func init() {
	logsCmd.Flags().IntVarP(&logLines, "lines", "n", 50, "Number of log lines to fetch")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(logsCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := requestContext()
	defer cancel()

	client := newClient()
	health, err := client.Health(ctx)
	if err != nil {
		return fmt.Errorf("%s", backend.UserMessage(err))
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintf(w, "Status:\t%s\n", health.Status)
	if health.Uptime != "" {
		fmt.Fprintf(w, "Uptime:\t%s\n", health.Uptime)
	}
	fmt.Fprintf(w, "CPU:\t%.1f%%\n", health.CPUUsage)
	fmt.Fprintf(w, "Memory:\t%.1f%%\n", health.MemoryUsage)
	fmt.Fprintf(w, "Disk:\t%.1f%%\n", health.DiskUsage)

	// Database status is optional, older servers do not expose it.
	if db, err := client.DatabaseStatus(ctx); err == nil {
		if db.Error != "" {
			fmt.Fprintf(w, "Database:\terror: %s\n", db.Error)
		} else {
			fmt.Fprintf(w, "Database:\t%s (%d connections)\n", db.Database, db.ActiveConnections)
		}
	}
	return w.Flush()
}

func runLogs(cmd *cobra.Command, args []string) error {
	ctx, cancel := requestContext()
	defer cancel()

	lines, err := newClient().RecentLogs(ctx)
	if err != nil {
		return fmt.Errorf("%s", backend.UserMessage(err))
	}
	if logLines > 0 && len(lines) > logLines {
		lines = lines[len(lines)-logLines:]
	}
	for _, line := range lines {
		fmt.Println(line)
	}
	return nil
}
