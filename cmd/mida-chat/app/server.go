// Package app provides the chat server application.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kart-io/mida-chat/cmd/mida-chat/app/options"
	chatsvc "github.com/kart-io/mida-chat/internal/chat"
	"github.com/kart-io/mida-chat/pkg/infra/app"
)

// commandDesc is the description of the command.
const commandDesc = `MIDA Malaysia Conversational Chatbot

Answers questions about MIDA (Malaysian Investment Development Authority)
and investment in Malaysia from a pre-built passage index.

This server provides:
  - A chat page with one expandable entry per question
  - A JSON API for sessions and turns
  - Retrieval over a file or Milvus passage index
  - Answer generation with AWS Bedrock or Ollama`

// NewApp creates and returns a new App object with default parameters.
func NewApp() *app.App {
	opts := options.NewServerOptions()
	return app.NewApp(
		app.WithName(chatsvc.Name),
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithRunFunc(run(opts)),
	)
}

// run contains the main logic for initializing and running the server.
func run(opts *options.ServerOptions) app.RunFunc {
	return func() error {
		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		ctx := setupSignalContext()

		server, err := cfg.NewServer(ctx)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		return server.Run(ctx)
	}
}

// setupSignalContext returns a context that is cancelled on SIGINT or SIGTERM.
// A second signal exits immediately.
func setupSignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
		<-c
		os.Exit(1)
	}()
	return ctx
}
