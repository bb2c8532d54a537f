package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"gorm.io/datatypes"

	"github.com/yungbote/textdigest-backend/internal/clients/openai"
	"github.com/yungbote/textdigest-backend/internal/logger"
	"github.com/yungbote/textdigest-backend/internal/repos"
	"github.com/yungbote/textdigest-backend/internal/types"
)

const (
	summarizeConcurrency  = 5
	chunkSummaryMaxTokens = 300
	structuredMaxTokens   = 500
	fallbackOverviewLimit = 2000
)

const chunkSummarySystem = "You are a helpful assistant who summarizes text clearly and concisely."

const structuredSummarySystem = `You must output ONLY valid JSON.
No commentary, no explanations, no markdown, no quotes around the entire object.`

const structuredSummaryPrompt = `Create a structured summary from the following chunk summaries:

Requirements:
{
  "overview": "3-5 sentence plain-text overview",
  "keyPoints": ["5-8 plain-text bullet points"]
}

Chunk summaries:
%s`

// SummarizeStage writes a per-chunk summary, then condenses them into the
// document's structured summary. With Regenerate set it reuses the stored
// chunks and never touches the blob store.
type SummarizeStage struct {
	log    *logger.Logger
	docs   repos.DocumentRepo
	chunks repos.ChunkRepo
	ai     AI
}

func NewSummarizeStage(baseLog *logger.Logger, docs repos.DocumentRepo, chunks repos.ChunkRepo, ai AI) *SummarizeStage {
	return &SummarizeStage{
		log:    baseLog.With("stage", "summarize"),
		docs:   docs,
		chunks: chunks,
		ai:     ai,
	}
}

func (s *SummarizeStage) Stage() Stage { return StageSummarize }

func (s *SummarizeStage) Run(ctx context.Context, msg JobMessage) error {
	docID := msg.DocUUID()

	doc, err := s.docs.GetByID(ctx, nil, docID)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	if doc.Status == types.StatusReady && !msg.Regenerate {
		s.log.Info("Document already ready", "doc_id", msg.DocID)
		return nil
	}

	if err := s.docs.UpdateStatus(ctx, nil, docID, types.StatusSummarizing); err != nil {
		return fmt.Errorf("status summarizing: %w", err)
	}

	rows, err := s.chunks.GetByDocumentID(ctx, nil, docID)
	if err != nil {
		return fmt.Errorf("load chunks: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("document %s has no chunks to summarize", msg.DocID)
	}

	summaries := make([]string, len(rows))
	sem := semaphore.NewWeighted(summarizeConcurrency)
	g, gctx := errgroup.WithContext(ctx)
	for i, row := range rows {
		i, row := i, row
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			// Regenerate prefers the existing summary as input; a chunk
			// that never got one falls back to its raw text.
			input := row.Text
			if msg.Regenerate && row.Summary != "" {
				input = row.Summary
			}
			summary, err := s.ai.Complete(gctx, []openai.ChatMessage{
				{Role: "system", Content: chunkSummarySystem},
				{Role: "user", Content: "Summarize this chunk:\n\n" + input},
			}, chunkSummaryMaxTokens, 0.3)
			if err != nil {
				return fmt.Errorf("summarize chunk %d: %w", row.ChunkIndex, err)
			}
			summaries[i] = summary
			return s.chunks.UpdateSummary(gctx, nil, docID, row.ChunkIndex, summary)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	structured := s.structuredSummary(ctx, summaries)
	raw, err := json.Marshal(structured)
	if err != nil {
		return fmt.Errorf("encode structured summary: %w", err)
	}
	if err := s.docs.SetSummary(ctx, nil, docID, datatypes.JSON(raw)); err != nil {
		return fmt.Errorf("persist summary: %w", err)
	}

	if err := s.docs.UpdateStatus(ctx, nil, docID, types.StatusReady); err != nil {
		return fmt.Errorf("status ready: %w", err)
	}

	s.log.Info("Summarized document", "doc_id", msg.DocID, "chunks", len(rows), "regenerate", msg.Regenerate)
	return nil
}

// structuredSummary asks the model for strict JSON and falls back to the
// raw text when it ignores the format instruction. A malformed model reply
// must never leave the document stuck before ready.
func (s *SummarizeStage) structuredSummary(ctx context.Context, summaries []string) types.StructuredSummary {
	joined := strings.Join(summaries, "\n\n")

	raw, err := s.ai.Complete(ctx, []openai.ChatMessage{
		{Role: "system", Content: structuredSummarySystem},
		{Role: "user", Content: fmt.Sprintf(structuredSummaryPrompt, joined)},
	}, structuredMaxTokens, 0.2)
	if err != nil {
		s.log.Warn("Structured summary call failed, falling back to joined summaries", "error", err)
		raw = joined
	}

	var structured types.StructuredSummary
	if err := json.Unmarshal([]byte(raw), &structured); err == nil && structured.Overview != "" {
		if structured.KeyPoints == nil {
			structured.KeyPoints = []string{}
		}
		return structured
	}

	overview := strings.TrimSpace(raw)
	if len([]rune(overview)) > fallbackOverviewLimit {
		overview = string([]rune(overview)[:fallbackOverviewLimit])
	}
	return types.StructuredSummary{Overview: overview, KeyPoints: []string{}}
}
