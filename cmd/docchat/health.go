package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the document-chat server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, ctx, cancel, err := newApp()
			if err != nil {
				return err
			}
			defer cancel()

			status, err := app.Client.Health(ctx)
			if err != nil {
				return fmt.Errorf("server at %s is not healthy: %w", app.Config.ServerURL, err)
			}
			fmt.Printf("server at %s reports: %s\n", app.Config.ServerURL, status)
			return nil
		},
	}
}
