package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/yungbote/textdigest-backend/internal/ingest/extract"
	"github.com/yungbote/textdigest-backend/internal/logger"
	"github.com/yungbote/textdigest-backend/internal/repos"
	"github.com/yungbote/textdigest-backend/internal/types"
)

const (
	// DefaultChunkSize is the per-chunk character budget for private
	// documents.
	DefaultChunkSize = 2000
	// PublicChunkSize is the coarser budget for public documents, trading
	// retrieval fidelity for processing cost.
	PublicChunkSize = 8000
)

// ChunkStage downloads the uploaded bytes, extracts plain text, splits it
// into ordered chunks and chains the embed stage.
type ChunkStage struct {
	log    *logger.Logger
	docs   repos.DocumentRepo
	chunks repos.ChunkRepo
	blob   Blob
	queue  Queue
}

func NewChunkStage(baseLog *logger.Logger, docs repos.DocumentRepo, chunks repos.ChunkRepo, blob Blob, queue Queue) *ChunkStage {
	return &ChunkStage{
		log:    baseLog.With("stage", "chunk"),
		docs:   docs,
		chunks: chunks,
		blob:   blob,
		queue:  queue,
	}
}

func (s *ChunkStage) Stage() Stage { return StageChunk }

func (s *ChunkStage) Run(ctx context.Context, msg JobMessage) error {
	docID := msg.DocUUID()

	doc, err := s.docs.GetByID(ctx, nil, docID)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}

	// A redelivery after the chunks were committed but before the embed
	// message went out resumes by re-publishing the chain.
	if doc.Status == types.StatusChunked || doc.Status.PastChunking() {
		s.log.Info("Document already chunked, resuming chain", "doc_id", msg.DocID)
		return sendMessage(ctx, s.queue, JobMessage{
			Stage:         StageEmbed,
			DocID:         msg.DocID,
			SourceLocator: msg.SourceLocator,
			Filename:      msg.Filename,
		})
	}

	if err := s.docs.UpdateStatus(ctx, nil, docID, types.StatusExtracting); err != nil {
		return fmt.Errorf("status extracting: %w", err)
	}

	data, err := s.blob.Download(ctx, msg.SourceLocator)
	if err != nil {
		return fmt.Errorf("download %s: %w", msg.SourceLocator, err)
	}

	text, err := extract.Text(msg.Filename, data)
	if err != nil {
		var unsupported *extract.UnsupportedFileTypeError
		if errors.As(err, &unsupported) {
			return Fatal(err)
		}
		return fmt.Errorf("extract text: %w", err)
	}

	if err := s.docs.SetContent(ctx, nil, docID, text); err != nil {
		return fmt.Errorf("persist content: %w", err)
	}

	chunkSize := DefaultChunkSize
	if doc.Visibility == types.VisibilityPublic {
		chunkSize = PublicChunkSize
	}
	segments := extract.SplitText(text, chunkSize)

	// Redeliveries may have left partial rows behind; rebuild the gapless
	// 0..N-1 range from scratch.
	if err := s.chunks.DeleteByDocumentID(ctx, nil, docID); err != nil {
		return fmt.Errorf("clear stale chunks: %w", err)
	}
	rows := make([]*types.Chunk, len(segments))
	for i, segment := range segments {
		rows[i] = &types.Chunk{
			DocumentID: docID,
			ChunkIndex: i,
			Text:       segment,
		}
	}
	if _, err := s.chunks.CreateBatch(ctx, nil, rows); err != nil {
		return fmt.Errorf("persist chunks: %w", err)
	}

	if err := s.docs.UpdateStatus(ctx, nil, docID, types.StatusChunked); err != nil {
		return fmt.Errorf("status chunked: %w", err)
	}

	s.log.Info("Chunked document", "doc_id", msg.DocID, "chunks", len(segments), "chunk_size", chunkSize)

	return sendMessage(ctx, s.queue, JobMessage{
		Stage:         StageEmbed,
		DocID:         msg.DocID,
		SourceLocator: msg.SourceLocator,
		Filename:      msg.Filename,
	})
}
