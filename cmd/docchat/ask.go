package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vqhuy/docchat/internal/adapters/view"
	"github.com/vqhuy/docchat/internal/bootstrap"
	"github.com/vqhuy/docchat/internal/core/ports"
)

func askCmd() *cobra.Command {
	var showMarkup bool

	cmd := &cobra.Command{
		Use:   "ask <question>...",
		Short: "Ask a question about the session's ingested documents",
		Args:  cobra.MinimumNArgs(1),
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
			outcome, err := orch.Ask(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}

			if showMarkup {
				fmt.Println(outcome.MarkedAnswer)
			} else {
				fmt.Println(outcome.Answer)
			}
			printSources(app, outcome)

			if outcome.Confidence > 0 || outcome.LatencyMS > 0 {
				fmt.Printf("\nconfidence %.2f, %dms\n", outcome.Confidence, outcome.LatencyMS)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showMarkup, "markup", false, "Print the answer with citation markers instead of plain text")

	return cmd
}

// printSources lays the source references out as citation cards and pulses
// the ones the inline citation tokens point at, so cited cards are starred.
func printSources(app *bootstrap.App, outcome *ports.AskOutcome) {
	if len(outcome.Citations) == 0 {
		return
	}

	highlighter := view.NewHighlighter()
	cards := make([]view.CitationCard, 0, len(outcome.Citations))
	for i, citation := range outcome.Citations {
		top := float64(i) * cardHeight
		cards = append(cards, view.CitationCard{
			ID:       fmt.Sprintf("card-%d", i),
			Filename: citation.Filename,
			Page:     citation.Page,
			Bounds:   view.Rect{Top: top, Bottom: top + cardHeight},
		})
	}
	highlighter.SetCards(cards)
	highlighter.SetViewports(view.Rect{Top: 0, Bottom: float64(len(cards)) * cardHeight}, view.Rect{})

	for _, ref := range outcome.Refs {
		if ref.Page == "" {
			highlighter.Highlight(ref.Filename)
		} else {
			highlighter.Highlight(ref.Filename, ref.Page)
		}
	}

	pulsing := make(map[string]bool)
	for _, id := range highlighter.ActivePulses() {
		pulsing[id] = true
	}
	for _, ref := range outcome.Refs {
		app.Metrics.RecordHighlight("docchat", anyCardMatches(cards, pulsing, ref.Filename, ref.Page))
	}

	fmt.Println("\nsources:")
	for i, citation := range outcome.Citations {
		marker := " "
		if pulsing[fmt.Sprintf("card-%d", i)] {
			marker = "*"
		}
		page := citation.Page
		if page == "" {
			page = "-"
		}
		fmt.Printf("%s %-30s p.%-5s %.2f  %s\n", marker, citation.Filename, page, citation.Score(), snippetPreview(citation.ContentSnippet))
	}
}

const cardHeight = 80.0

func anyCardMatches(cards []view.CitationCard, pulsing map[string]bool, filename, page string) bool {
	for i, card := range cards {
		if card.Filename != filename {
			continue
		}
		if page != "" && card.Page != page {
			continue
		}
		if pulsing[fmt.Sprintf("card-%d", i)] {
			return true
		}
	}
	return false
}

func snippetPreview(snippet string) string {
	snippet = strings.Join(strings.Fields(snippet), " ")
	if len(snippet) > 60 {
		return snippet[:57] + "..."
	}
	return snippet
}
