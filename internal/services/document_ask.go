package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/textdigest-backend/internal/clients/openai"
	"github.com/yungbote/textdigest-backend/internal/logger"
	"github.com/yungbote/textdigest-backend/internal/repos"
	"github.com/yungbote/textdigest-backend/internal/retrieval"
	"github.com/yungbote/textdigest-backend/internal/types"
)

const (
	memoryWindow = 6

	docAskMaxTokens   = 700
	docAskTemperature = 0.2

	// Prepended to the question before embedding it for document-scope
	// retrieval. Plain questions embed poorly against declarative chunks.
	docAskEmbedPrefix = "Provide information about: "

	llmFailureAnswer = "There was a problem contacting the AI model. Please try again later."
)

const docAskSystem = `You are an expert assistant answering questions about a single document.
You must use only the factual information contained in the provided document context.

You may:
- Summarize parts of the document
- Explain concepts from the document
- Rewrite or rephrase document content
- Generate new text (letters, emails, reports, arguments, recommendations, proposals, essays, etc.)
  as long as all factual information comes strictly from the document context.

Rules:
- NEVER use information that is not present in the document context.
- NEVER invent facts, numbers, names, or claims.
- If the document does not fully answer the question, provide the closest accurate information the document contains (do not say "I don't know").
- Plain text only (no markdown, no bullets, no special formatting).
- Be concise, factual, and avoid assumptions.`

// AskResult is the outcome of an ask call. Error is a user-facing string;
// transport-level failures surface as a returned error instead.
type AskResult struct {
	Success        bool      `json:"success"`
	Answer         string    `json:"answer,omitempty"`
	ConversationID uuid.UUID `json:"conversationId,omitempty"`
	Error          string    `json:"error,omitempty"`
}

// DocumentAskService answers questions scoped to one selected document.
type DocumentAskService interface {
	Ask(ctx context.Context, userID uuid.UUID, docID uuid.UUID, conversationID *uuid.UUID, question string) (*AskResult, error)
}

type documentAskService struct {
	log      *logger.Logger
	docs     repos.DocumentRepo
	chunks   repos.ChunkRepo
	convs    repos.ConversationRepo
	messages repos.MessageRepo
	ai       openai.Client
	engine   *retrieval.Engine
}

func NewDocumentAskService(
	baseLog *logger.Logger,
	docs repos.DocumentRepo,
	chunks repos.ChunkRepo,
	convs repos.ConversationRepo,
	messages repos.MessageRepo,
	ai openai.Client,
	engine *retrieval.Engine,
) DocumentAskService {
	return &documentAskService{
		log:      baseLog.With("service", "DocumentAskService"),
		docs:     docs,
		chunks:   chunks,
		convs:    convs,
		messages: messages,
		ai:       ai,
		engine:   engine,
	}
}

func (s *documentAskService) Ask(ctx context.Context, userID uuid.UUID, docID uuid.UUID, conversationID *uuid.UUID, question string) (*AskResult, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("question is required")
	}

	doc, err := s.docs.GetOwned(ctx, nil, docID, userID)
	if err != nil {
		return nil, err
	}
	if !doc.Selected {
		// An unselected document is invisible to asking.
		return nil, gorm.ErrRecordNotFound
	}

	conv, err := s.ensureConversation(ctx, conversationID, docID, userID)
	if err != nil {
		return nil, err
	}

	userMsg, err := s.messages.Create(ctx, nil, &types.Message{
		ConversationID: conv.ID,
		Role:           types.RoleUser,
		Content:        question,
		Status:         types.MessagePending,
	})
	if err != nil {
		return nil, err
	}

	rows, err := s.chunks.GetByDocumentID(ctx, nil, docID)
	if err != nil {
		return nil, err
	}
	cands := make([]retrieval.Candidate, 0, len(rows))
	for _, row := range rows {
		text := strings.TrimSpace(row.Text)
		if text == "" {
			continue
		}
		cands = append(cands, retrieval.Candidate{
			ChunkID:        row.ID,
			DocumentID:     row.DocumentID,
			DocumentName:   doc.Filename,
			DocumentStatus: doc.Status,
			ChunkIndex:     row.ChunkIndex,
			Text:           text,
			Embedding:      row.Vector(),
		})
	}

	ranked, err := s.engine.RankSemantic(ctx, cands, docAskEmbedPrefix+question)
	if err != nil {
		return s.failAsk(ctx, conv.ID, userMsg.ID, err)
	}
	contextText := retrieval.BuildDocumentContext(ranked)

	history, err := s.recentHistory(ctx, conv.ID, userMsg)
	if err != nil {
		return nil, err
	}

	msgs := make([]openai.ChatMessage, 0, len(history)+2)
	msgs = append(msgs, openai.ChatMessage{Role: "system", Content: docAskSystem})
	msgs = append(msgs, history...)
	msgs = append(msgs, openai.ChatMessage{
		Role:    "user",
		Content: fmt.Sprintf("Question: %s\n\nDocument Context:\n%s", question, contextText),
	})

	answer, err := s.ai.Complete(ctx, msgs, docAskMaxTokens, docAskTemperature)
	if err != nil {
		return s.failAsk(ctx, conv.ID, userMsg.ID, err)
	}
	answer = strings.TrimSpace(answer)

	if err := s.messages.UpdateStatus(ctx, nil, userMsg.ID, types.MessageDone); err != nil {
		return nil, err
	}
	if _, err := s.messages.Create(ctx, nil, &types.Message{
		ConversationID: conv.ID,
		Role:           types.RoleAssistant,
		Content:        answer,
		Status:         types.MessageDone,
	}); err != nil {
		return nil, err
	}

	return &AskResult{Success: true, Answer: answer, ConversationID: conv.ID}, nil
}

// ensureConversation reuses the caller's conversation when it exists and
// belongs to this document and user, and silently creates a fresh one
// otherwise.
func (s *documentAskService) ensureConversation(ctx context.Context, conversationID *uuid.UUID, docID, userID uuid.UUID) (*types.Conversation, error) {
	if conversationID != nil {
		conv, err := s.convs.GetForDocument(ctx, nil, *conversationID, docID, userID)
		if err == nil {
			return conv, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return s.convs.CreateForDocument(ctx, nil, docID, userID)
}

// recentHistory returns the conversation memory window in chronological
// order, excluding the just-created user message.
func (s *documentAskService) recentHistory(ctx context.Context, convID uuid.UUID, userMsg *types.Message) ([]openai.ChatMessage, error) {
	prev, err := s.messages.RecentBefore(ctx, nil, convID, userMsg.CreatedAt, memoryWindow)
	if err != nil {
		return nil, err
	}
	out := make([]openai.ChatMessage, 0, len(prev))
	for i := len(prev) - 1; i >= 0; i-- {
		out = append(out, openai.ChatMessage{Role: string(prev[i].Role), Content: prev[i].Content})
	}
	return out, nil
}

// failAsk records the failed exchange and returns a user-facing error
// result. The original provider error only goes to the log.
func (s *documentAskService) failAsk(ctx context.Context, convID, userMsgID uuid.UUID, cause error) (*AskResult, error) {
	s.log.Error("ask failed", "conversationId", convID, "error", cause)

	// The request context may already be canceled; still try to persist
	// the failure so the transcript reflects it.
	persistCtx := context.WithoutCancel(ctx)
	if err := s.messages.UpdateStatus(persistCtx, nil, userMsgID, types.MessageError); err != nil {
		s.log.Error("failed to mark user message", "messageId", userMsgID, "error", err)
	}
	if _, err := s.messages.Create(persistCtx, nil, &types.Message{
		ConversationID: convID,
		Role:           types.RoleAssistant,
		Content:        llmFailureAnswer,
		Status:         types.MessageError,
	}); err != nil {
		s.log.Error("failed to persist assistant error message", "conversationId", convID, "error", err)
	}
	return &AskResult{Success: false, ConversationID: convID, Error: llmFailureAnswer}, nil
}
