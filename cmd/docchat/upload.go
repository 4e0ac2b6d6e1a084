package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vqhuy/docchat/internal/core/domain"
)

func uploadCmd() *cobra.Command {
	var ingestAfter bool
	var ocr bool

	cmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload local documents into the active session",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, ctx, cancel, err := newApp()
			if err != nil {
				return err
			}
			defer cancel()
			orch := app.Orchestrator

			if len(args) > app.Config.MaxUploadFiles {
				return fmt.Errorf("too many files: %d selected, limit is %d", len(args), app.Config.MaxUploadFiles)
			}
			if err := checkFileSizes(args, app.Config.MaxUploadSizeMB); err != nil {
				return err
			}

			if _, err := orch.EnsureSession(ctx); err != nil {
				return err
			}
			if _, err := orch.AddFiles(ctx, args); err != nil {
				return err
			}
			if err := orch.UploadPending(ctx); err != nil {
				return err
			}

			entries := orch.Files()
			for _, entry := range entries {
				app.Metrics.RecordReconcileOutcome("docchat", string(entry.Status), 1)
			}
			printFileEntries(entries)

			if ingestAfter {
				result, err := orch.Ingest(ctx, ocr)
				if err != nil {
					return err
				}
				fmt.Printf("ingested %d document(s), %d chunks\n", len(result.IngestedDocs), result.TotalChunks)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&ingestAfter, "ingest", false, "Ingest the session's documents right after uploading")
	cmd.Flags().BoolVar(&ocr, "ocr", false, "Run OCR on scanned pages during ingestion")

	return cmd
}

func checkFileSizes(paths []string, limitMB int) error {
	if limitMB <= 0 {
		return nil
	}
	limit := int64(limitMB) << 20
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if info.Size() > limit {
			return fmt.Errorf("%s is %dMB, limit is %dMB", path, info.Size()>>20, limitMB)
		}
	}
	return nil
}

func printFileEntries(entries []*domain.FileEntry) {
	for _, entry := range entries {
		switch entry.Status {
		case domain.FileStatusError:
			fmt.Printf("  %-30s %-10s %s\n", entry.DisplayName, entry.Status, entry.ErrorMessage)
		case domain.FileStatusIngested:
			fmt.Printf("  %-30s %-10s %d page(s), %d chunk(s)\n", entry.DisplayName, entry.Status, entry.PageCount, entry.ChunkCount)
		default:
			if entry.PageCount > 0 {
				fmt.Printf("  %-30s %-10s %d page(s)\n", entry.DisplayName, entry.Status, entry.PageCount)
			} else {
				fmt.Printf("  %-30s %s\n", entry.DisplayName, entry.Status)
			}
		}
	}
}
