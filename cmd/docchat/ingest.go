package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func ingestCmd() *cobra.Command {
	var ocr bool

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest the session's uploaded documents for retrieval",
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
			result, err := orch.Ingest(ctx, ocr || app.Config.OCRDefault)
			if err != nil {
				return err
			}

			for _, doc := range result.IngestedDocs {
				fmt.Printf("  %-30s %d page(s), %d chunk(s)\n", doc.DocName, doc.PageCount, doc.ChunkCount)
			}
			fmt.Printf("total chunks: %d\n", result.TotalChunks)
			return nil
		},
	}

	cmd.Flags().BoolVar(&ocr, "ocr", false, "Run OCR on scanned pages")

	return cmd
}
