package app

import (
	"fmt"

	"github.com/yungbote/textdigest-backend/internal/clients/gcp"
	"github.com/yungbote/textdigest-backend/internal/clients/openai"
	redisq "github.com/yungbote/textdigest-backend/internal/clients/redis"
	"github.com/yungbote/textdigest-backend/internal/logger"
)

type Clients struct {
	AI     openai.Client
	Bucket gcp.BucketService
	Queue  redisq.Queue
}

func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")
	ai, err := openai.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init openai client: %w", err)
	}
	bucket, err := gcp.NewBucketService(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init bucket service: %w", err)
	}
	queue, err := redisq.NewQueue(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init queue: %w", err)
	}
	return Clients{AI: ai, Bucket: bucket, Queue: queue}, nil
}
