package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/whisper2/server/internal/store"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Inspect live server-side state for an identity",
}

var inspectSessionCmd = &cobra.Command{
	Use:   "session <whisperId>",
	Short: "Print the live session bound to an identity, if any",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		volatile, closeFn, err := connectVolatile(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		sess, err := volatile.GetSessionByIdentity(ctx, args[0])
		if err == store.ErrNotFound {
			fmt.Printf("%s has no live session\n", args[0])
			return nil
		}
		if err != nil {
			return fmt.Errorf("look up session: %w", err)
		}
		fmt.Printf("whisperId=%s deviceId=%s platform=%s expiresAt=%s\n",
			sess.WhisperID, sess.DeviceID, sess.Platform, sess.ExpiresAt)
		return nil
	},
}

func init() {
	inspectCmd.AddCommand(inspectSessionCmd)
}
