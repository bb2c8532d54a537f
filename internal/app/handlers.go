package app

import (
	"github.com/yungbote/textdigest-backend/internal/handlers"
	"github.com/yungbote/textdigest-backend/internal/logger"
)

type Handlers struct {
	Document *handlers.DocumentHandler
	Project  *handlers.ProjectHandler
}

func wireHandlers(log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Document: handlers.NewDocumentHandler(services.Ingest, services.Document, services.DocumentAsk),
		Project:  handlers.NewProjectHandler(services.ProjectAsk),
	}
}
