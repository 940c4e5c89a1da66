// whisperctl is the operator CLI: ban/unban an identity, inspect its
// live session, or ask a running whisperd to begin draining.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configDir string

var rootCmd = &cobra.Command{
	Use:   "whisperctl",
	Short: "Whisper2 operator CLI",
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "config", "directory containing <environment>.yaml / default.yaml")
	rootCmd.AddCommand(banCmd, unbanCmd, inspectCmd, drainCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
