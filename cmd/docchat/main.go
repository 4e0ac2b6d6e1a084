package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vqhuy/docchat/internal/bootstrap"
	"github.com/vqhuy/docchat/internal/config"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "docchat",
		Short:   "Chat with your uploaded documents from the terminal",
		Version: version,
	}

	rootCmd.AddCommand(uploadCmd())
	rootCmd.AddCommand(ingestCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(sessionCmd())
	rootCmd.AddCommand(docsCmd())
	rootCmd.AddCommand(removeDocCmd())
	rootCmd.AddCommand(chatsCmd())
	rootCmd.AddCommand(healthCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() (*bootstrap.App, context.Context, context.CancelFunc, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	app := bootstrap.New(cfg)
	app.StartMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cancel := func() {
		stop()
		app.Close()
	}
	return app, ctx, cancel, nil
}
