package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/textdigest-backend/internal/ingest"
	"github.com/yungbote/textdigest-backend/internal/logger"
	"github.com/yungbote/textdigest-backend/internal/repos"
	"github.com/yungbote/textdigest-backend/internal/types"
)

// ErrNotReady is returned when regeneration is requested for a document the
// pipeline has not finished with yet.
var ErrNotReady = errors.New("document is not ready")

// IngestRequest carries the fields of an ingest call. The file itself is
// already in the blob store under StorageKey; the pipeline never sees the
// upload.
type IngestRequest struct {
	ProjectID  uuid.UUID
	StorageKey string
	Filename   string
	Visibility types.DocumentVisibility
}

// IngestService creates documents and feeds the pipeline queue. All actual
// processing happens in the worker.
type IngestService interface {
	Ingest(ctx context.Context, userID uuid.UUID, req IngestRequest) (*types.Document, error)
	Regenerate(ctx context.Context, userID uuid.UUID, docID uuid.UUID) error
}

type ingestService struct {
	log      *logger.Logger
	projects repos.ProjectRepo
	docs     repos.DocumentRepo
	queue    ingest.Queue
}

func NewIngestService(baseLog *logger.Logger, projects repos.ProjectRepo, docs repos.DocumentRepo, queue ingest.Queue) IngestService {
	return &ingestService{
		log:      baseLog.With("service", "IngestService"),
		projects: projects,
		docs:     docs,
		queue:    queue,
	}
}

func (s *ingestService) Ingest(ctx context.Context, userID uuid.UUID, req IngestRequest) (*types.Document, error) {
	if req.StorageKey == "" || req.Filename == "" {
		return nil, fmt.Errorf("storageKey and filename are required")
	}
	if req.Visibility == "" {
		req.Visibility = types.VisibilityPrivate
	}
	switch req.Visibility {
	case types.VisibilityPrivate, types.VisibilityPublic:
	default:
		return nil, fmt.Errorf("unknown visibility %q", req.Visibility)
	}

	if _, err := s.projects.GetOwned(ctx, nil, req.ProjectID, userID); err != nil {
		return nil, err
	}

	doc, err := s.docs.Create(ctx, nil, &types.Document{
		ProjectID:  req.ProjectID,
		UserID:     userID,
		Filename:   req.Filename,
		StorageKey: req.StorageKey,
		Status:     types.StatusQueued,
		Visibility: req.Visibility,
		Selected:   true,
	})
	if err != nil {
		return nil, err
	}

	msg := ingest.JobMessage{
		Stage:         ingest.StageChunk,
		DocID:         doc.ID.String(),
		SourceLocator: doc.StorageKey,
		Filename:      doc.Filename,
	}
	if err := s.send(ctx, msg); err != nil {
		// The worker will never pick this document up, so fail it now
		// instead of leaving the client polling a permanent "queued".
		if markErr := s.docs.MarkError(ctx, nil, doc.ID, "failed to enqueue processing"); markErr != nil {
			s.log.Error("failed to mark document after enqueue failure", "docId", doc.ID, "error", markErr)
		}
		return nil, fmt.Errorf("enqueue chunk stage: %w", err)
	}

	s.log.Info("document queued", "docId", doc.ID, "projectId", req.ProjectID, "filename", req.Filename)
	return doc, nil
}

// Regenerate re-runs summarization from the stored chunks. It is only valid
// once the document is ready and never re-reads the original file.
func (s *ingestService) Regenerate(ctx context.Context, userID uuid.UUID, docID uuid.UUID) error {
	doc, err := s.docs.GetOwned(ctx, nil, docID, userID)
	if err != nil {
		return err
	}
	if doc.Status != types.StatusReady {
		return fmt.Errorf("%w: status %s", ErrNotReady, doc.Status)
	}
	msg := ingest.JobMessage{
		Stage:      ingest.StageSummarize,
		DocID:      doc.ID.String(),
		Filename:   doc.Filename,
		Regenerate: true,
	}
	if err := s.send(ctx, msg); err != nil {
		return fmt.Errorf("enqueue summarize stage: %w", err)
	}
	s.log.Info("summary regeneration queued", "docId", doc.ID)
	return nil
}

func (s *ingestService) send(ctx context.Context, msg ingest.JobMessage) error {
	raw, err := msg.Encode()
	if err != nil {
		return err
	}
	return s.queue.Send(ctx, raw)
}
