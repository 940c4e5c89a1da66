package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var banReason string

var banCmd = &cobra.Command{
	Use:   "ban <whisperId>",
	Short: "Ban an identity, rejecting future logins and messages to/from it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		durable, closeFn, err := connectDurable(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		if err := durable.Ban(ctx, args[0], banReason, "whisperctl"); err != nil {
			return fmt.Errorf("ban %s: %w", args[0], err)
		}
		fmt.Printf("banned %s\n", args[0])
		return nil
	},
}

var unbanCmd = &cobra.Command{
	Use:   "unban <whisperId>",
	Short: "Lift a ban on an identity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		durable, closeFn, err := connectDurable(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		if err := durable.Unban(ctx, args[0]); err != nil {
			return fmt.Errorf("unban %s: %w", args[0], err)
		}
		fmt.Printf("unbanned %s\n", args[0])
		return nil
	},
}

func init() {
	banCmd.Flags().StringVar(&banReason, "reason", "", "reason recorded against the ban")
}
