package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/textdigest-backend/internal/logger"
	"github.com/yungbote/textdigest-backend/internal/repos"
)

type Repos struct {
	Project      repos.ProjectRepo
	Document     repos.DocumentRepo
	Chunk        repos.ChunkRepo
	Conversation repos.ConversationRepo
	Message      repos.MessageRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Project:      repos.NewProjectRepo(db, log),
		Document:     repos.NewDocumentRepo(db, log),
		Chunk:        repos.NewChunkRepo(db, log),
		Conversation: repos.NewConversationRepo(db, log),
		Message:      repos.NewMessageRepo(db, log),
	}
}
