package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"go4cms/pkg/app"
)

func newRootCmd() *cobra.Command {
	cfg := app.DefaultConfig()
	root := &cobra.Command{
		Use:   "go4cms",
		Short: "go4cms - a small content management service",
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve the content API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return app.RunAPI(ctx, cfg)
		},
	}
	serve.Flags().StringVarP(&cfg.Root, "root", "r", cfg.Root, "content root directory")
	serve.Flags().StringVarP(&cfg.Addr, "addr", "a", cfg.Addr, "listen address")
	serve.Flags().StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: console or json")
	serve.Flags().IntVar(&cfg.PluginWorkers, "plugin-workers", cfg.PluginWorkers, "plugin scan workers")
	serve.Flags().DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "graceful shutdown timeout")

	root.AddCommand(serve)
	return root
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
