// Package app provides the index builder application.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kart-io/mida-chat/cmd/mida-index/app/options"
	chatsvc "github.com/kart-io/mida-chat/internal/chat"
	"github.com/kart-io/mida-chat/pkg/infra/app"
	// 导入 Embedding 供应商以自动注册
	_ "github.com/kart-io/mida-chat/pkg/llm/huggingface"
	_ "github.com/kart-io/mida-chat/pkg/llm/ollama"
)

const commandDesc = `MIDA passage index builder

Reads .txt and .md documents, splits them into overlapping chunks, embeds
each chunk and writes the passage index used by mida-chat, either as
<path>/index.json or as a Milvus collection.

Use the same embedding model as the chat server.`

// NewApp creates the index builder application.
func NewApp() *app.App {
	opts := options.NewIndexOptions()
	return app.NewApp(
		app.WithName(chatsvc.IndexerName),
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithRunFunc(run(opts)),
	)
}

func run(opts *options.IndexOptions) app.RunFunc {
	return func() error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		report, err := opts.Config().Build(ctx)
		if err != nil {
			return fmt.Errorf("failed to build index: %w", err)
		}

		fmt.Printf("Indexed %d documents into %d passages in %s\n",
			report.Documents, report.Chunks, report.Duration.Round(time.Millisecond))
		return nil
	}
}
