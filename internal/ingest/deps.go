package ingest

import (
	"context"

	"github.com/yungbote/textdigest-backend/internal/clients/openai"
	redisq "github.com/yungbote/textdigest-backend/internal/clients/redis"
)

// AI is the embedding + completion capability the embed and summarize
// stages consume. Satisfied by the OpenAI client.
type AI interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
	Complete(ctx context.Context, messages []openai.ChatMessage, maxTokens int, temperature float64) (string, error)
}

// Queue is the slice of the job queue the pipeline needs. Satisfied by the
// Redis-backed queue client; tests substitute an in-memory fake.
type Queue interface {
	Send(ctx context.Context, body []byte) error
	Receive(ctx context.Context) (*redisq.Delivery, error)
	Ack(ctx context.Context, d *redisq.Delivery) error
}

// Blob fetches stored document bytes by their opaque locator.
type Blob interface {
	Download(ctx context.Context, key string) ([]byte, error)
}

// sendMessage publishes the next stage's job message.
func sendMessage(ctx context.Context, q Queue, msg JobMessage) error {
	raw, err := msg.Encode()
	if err != nil {
		return err
	}
	return q.Send(ctx, raw)
}
