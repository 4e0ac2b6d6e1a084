package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func docsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "docs",
		Short: "List the active session's documents",
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
			entries := orch.Files()
			if len(entries) == 0 {
				fmt.Println("no documents in this session")
				return nil
			}
			printFileEntries(entries)
			return nil
		},
	}
}

func removeDocCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm-doc <doc-name>",
		Short: "Remove one document from the active session",
		Args:  cobra.ExactArgs(1),
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
			return orch.DeleteFile(ctx, args[0])
		},
	}
}

func chatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chats",
		Short: "List the active session's chats",
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
			if err := orch.SyncChats(ctx); err != nil {
				return err
			}

			ids := orch.Chats().ChatIDs()
			if len(ids) == 0 {
				fmt.Println("no chats in this session")
				return nil
			}
			for _, id := range ids {
				chat := orch.Chats().GetOrCreate(id)
				title := chat.Title
				if title == "" {
					title = "(untitled)"
				}
				fmt.Printf("  %-36s %-30s %d message(s)\n", id, title, chat.MessageCount)
			}
			return nil
		},
	}
}
