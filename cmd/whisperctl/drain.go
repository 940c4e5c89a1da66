package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

var drainAddr string

var drainCmd = &cobra.Command{
	Use:   "drain",
	Short: "Ask a running whisperd to begin graceful shutdown",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := http.Post(fmt.Sprintf("http://%s/admin/drain", drainAddr), "application/json", nil)
		if err != nil {
			return fmt.Errorf("request drain: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusAccepted {
			return fmt.Errorf("drain request rejected: %s", resp.Status)
		}
		fmt.Println("drain requested")
		return nil
	},
}

func init() {
	drainCmd.Flags().StringVar(&drainAddr, "addr", "localhost:8080", "whisperd HTTP admin address")
}
