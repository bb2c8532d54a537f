package app

import (
	"github.com/yungbote/textdigest-backend/internal/logger"
	"github.com/yungbote/textdigest-backend/internal/retrieval"
	"github.com/yungbote/textdigest-backend/internal/services"
)

type Services struct {
	Ingest      services.IngestService
	Document    services.DocumentService
	DocumentAsk services.DocumentAskService
	ProjectAsk  services.ProjectAskService
}

func wireServices(log *logger.Logger, reposet Repos, clients Clients) Services {
	log.Info("Wiring services...")

	vectors := services.NewChunkVectorStore(reposet.Chunk)
	engine := retrieval.NewEngine(log, clients.AI, vectors)

	return Services{
		Ingest:   services.NewIngestService(log, reposet.Project, reposet.Document, clients.Queue),
		Document: services.NewDocumentService(log, reposet.Document, reposet.Conversation, reposet.Message),
		DocumentAsk: services.NewDocumentAskService(
			log,
			reposet.Document,
			reposet.Chunk,
			reposet.Conversation,
			reposet.Message,
			clients.AI,
			engine,
		),
		ProjectAsk: services.NewProjectAskService(
			log,
			reposet.Project,
			reposet.Document,
			reposet.Chunk,
			reposet.Conversation,
			reposet.Message,
			clients.AI,
			engine,
		),
	}
}
