package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func sessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage chat sessions",
	}

	cmd.AddCommand(sessionShowCmd())
	cmd.AddCommand(sessionSwitchCmd())
	cmd.AddCommand(sessionRenameCmd())
	cmd.AddCommand(sessionDeleteCmd())
	cmd.AddCommand(sessionNewCmd())

	return cmd
}

func sessionShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the active session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, ctx, cancel, err := newApp()
			if err != nil {
				return err
			}
			defer cancel()
			orch := app.Orchestrator

			summary, err := orch.EnsureSession(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("session:   %s\n", summary.SessionID)
			if summary.Title != "" {
				fmt.Printf("title:     %s\n", summary.Title)
			}
			fmt.Printf("documents: %d\n", summary.DocumentCount)
			fmt.Printf("messages:  %d\n", summary.MessageCount)
			if !summary.UpdatedAt.IsZero() {
				fmt.Printf("updated:   %s\n", summary.UpdatedAt.Format("2006-01-02 15:04"))
			}
			fmt.Printf("can ask:   %v\n", orch.CanAsk())
			return nil
		},
	}
}

func sessionSwitchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "switch <session-id>",
		Short: "Make another session active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, ctx, cancel, err := newApp()
			if err != nil {
				return err
			}
			defer cancel()

			if err := app.Orchestrator.SwitchSession(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("switched to session %s\n", args[0])
			return nil
		},
	}
}

func sessionRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename [title]",
		Short: "Rename the active session",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, ctx, cancel, err := newApp()
			if err != nil {
				return err
			}
			defer cancel()
			orch := app.Orchestrator

			if _, err := orch.EnsureSession(ctx); err != nil {
				return err
			}
			return orch.RenameActiveSession(ctx, strings.Join(args, " "))
		},
	}
}

func sessionDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Delete the active session and its documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, ctx, cancel, err := newApp()
			if err != nil {
				return err
			}
			defer cancel()
			orch := app.Orchestrator

			if _, err := orch.EnsureSession(ctx); err != nil {
				return err
			}
			return orch.DeleteActiveSession(ctx)
		},
	}
}

func sessionNewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Start a fresh session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, ctx, cancel, err := newApp()
			if err != nil {
				return err
			}
			defer cancel()
			orch := app.Orchestrator

			// Dropping the persisted token makes EnsureSession create
			// instead of restoring.
			orch.ForgetSession()
			summary, err := orch.EnsureSession(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("created session %s\n", summary.SessionID)
			return nil
		},
	}
}
