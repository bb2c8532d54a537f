package app

import (
	"fmt"

	"github.com/yungbote/textdigest-backend/internal/ingest"
	"github.com/yungbote/textdigest-backend/internal/logger"
)

func wireWorker(log *logger.Logger, cfg Config, reposet Repos, clients Clients) (*ingest.Worker, error) {
	log.Info("Wiring ingest worker...")
	registry := ingest.NewRegistry()
	stages := []ingest.Handler{
		ingest.NewChunkStage(log, reposet.Document, reposet.Chunk, clients.Bucket, clients.Queue),
		ingest.NewEmbedStage(log, reposet.Document, reposet.Chunk, clients.AI, clients.Queue),
		ingest.NewSummarizeStage(log, reposet.Document, reposet.Chunk, clients.AI),
	}
	for _, s := range stages {
		if err := registry.Register(s); err != nil {
			return nil, fmt.Errorf("register stage handler: %w", err)
		}
	}
	return ingest.NewWorker(log, clients.Queue, registry, reposet.Document, cfg.MaxJobAttempts), nil
}
