package ingest

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/yungbote/textdigest-backend/internal/logger"
	"github.com/yungbote/textdigest-backend/internal/repos"
	"github.com/yungbote/textdigest-backend/internal/types"
)

const (
	// EmbedInputLimit caps the characters sent per embedding call; the
	// provider truncates or rejects longer inputs.
	EmbedInputLimit = 8000
	// embedConcurrency bounds simultaneous provider calls.
	embedConcurrency = 5
)

// EmbedStage computes a vector for every chunk that does not already hold a
// usable one, then chains the summarize stage.
type EmbedStage struct {
	log    *logger.Logger
	docs   repos.DocumentRepo
	chunks repos.ChunkRepo
	ai     AI
	queue  Queue
}

func NewEmbedStage(baseLog *logger.Logger, docs repos.DocumentRepo, chunks repos.ChunkRepo, ai AI, queue Queue) *EmbedStage {
	return &EmbedStage{
		log:    baseLog.With("stage", "embed"),
		docs:   docs,
		chunks: chunks,
		ai:     ai,
		queue:  queue,
	}
}

func (s *EmbedStage) Stage() Stage { return StageEmbed }

func (s *EmbedStage) Run(ctx context.Context, msg JobMessage) error {
	docID := msg.DocUUID()

	doc, err := s.docs.GetByID(ctx, nil, docID)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}

	if doc.Status == types.StatusEmbedded || doc.Status == types.StatusSummarizing || doc.Status == types.StatusReady {
		s.log.Info("Document already embedded, resuming chain", "doc_id", msg.DocID)
		return sendMessage(ctx, s.queue, JobMessage{
			Stage:         StageSummarize,
			DocID:         msg.DocID,
			SourceLocator: msg.SourceLocator,
			Filename:      msg.Filename,
		})
	}

	if err := s.docs.UpdateStatus(ctx, nil, docID, types.StatusEmbedding); err != nil {
		return fmt.Errorf("status embedding: %w", err)
	}

	rows, err := s.chunks.GetByDocumentID(ctx, nil, docID)
	if err != nil {
		return fmt.Errorf("load chunks: %w", err)
	}

	// Chunks carrying a usable vector are skipped, so a redelivery after a
	// partial failure only pays for the gaps.
	sem := semaphore.NewWeighted(embedConcurrency)
	g, gctx := errgroup.WithContext(ctx)
	embedded := 0
	for _, row := range rows {
		if types.EmbeddingUsable(row.Vector()) {
			continue
		}
		embedded++
		row := row
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			input := row.Text
			if len([]rune(input)) > EmbedInputLimit {
				input = string([]rune(input)[:EmbedInputLimit])
			}
			vecs, err := s.ai.Embed(gctx, []string{input})
			if err != nil {
				return fmt.Errorf("embed chunk %d: %w", row.ChunkIndex, err)
			}
			if len(vecs) != 1 || !types.EmbeddingUsable(vecs[0]) {
				return fmt.Errorf("embed chunk %d: provider returned degenerate vector", row.ChunkIndex)
			}
			return s.chunks.UpdateEmbedding(gctx, nil, docID, row.ChunkIndex, vecs[0])
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := s.docs.UpdateStatus(ctx, nil, docID, types.StatusEmbedded); err != nil {
		return fmt.Errorf("status embedded: %w", err)
	}

	s.log.Info("Embedded document", "doc_id", msg.DocID, "chunks_total", len(rows), "chunks_embedded", embedded)

	return sendMessage(ctx, s.queue, JobMessage{
		Stage:         StageSummarize,
		DocID:         msg.DocID,
		SourceLocator: msg.SourceLocator,
		Filename:      msg.Filename,
	})
}
