// Command lenscore scores photos with retrieval-augmented feedback.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/lenscore/internal/adapters/driven/config/file"
	"github.com/custodia-labs/lenscore/internal/adapters/driving/cli"
	"github.com/custodia-labs/lenscore/internal/app"
	"github.com/custodia-labs/lenscore/internal/core/domain"
	"github.com/custodia-labs/lenscore/internal/core/ports/driven"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cli.Execute(ctx, cli.Runtime{
		ConfigStore: func(path string) (driven.ConfigStore, error) {
			store, err := file.NewConfigStore(path)
			if err != nil {
				return nil, err
			}
			return store, nil
		},
		Open: openServices,
	})
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		stop()
		os.Exit(1)
	}
}

func openServices(ctx context.Context, cfg domain.Config) (*cli.Services, error) {
	a, err := app.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &cli.Services{
		Ingestion:  a.Ingestion,
		Index:      a.Index,
		Retriever:  a.Retriever,
		Assessment: a.Assessment,
		Analyser:   a.Analyser,
		Visualizer: a.Analyser,
		WatchDirs:  a.WatchDirs(),
		Ping:       a.Ping,
		Close:      a.Close,
	}, nil
}
