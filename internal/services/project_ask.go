package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/textdigest-backend/internal/clients/openai"
	"github.com/yungbote/textdigest-backend/internal/logger"
	"github.com/yungbote/textdigest-backend/internal/repos"
	"github.com/yungbote/textdigest-backend/internal/retrieval"
	"github.com/yungbote/textdigest-backend/internal/types"
)

const (
	projectAskMaxTokens   = 800
	projectAskTemperature = 0.3

	noDocumentsAnswer      = "No documents found in this project."
	unselectedMultiRefusal = "The document is unselected or does not exist, so I cannot answer that."
)

const projectAskSystem = `You are an expert assistant that answers questions *based on selected project documents*.

You may:
- Summarize document content
- Explain document content
- Compare document content
- Generate new text (letters, emails, reports, etc.)
  as long as the factual information used comes from the selected documents.

Do NOT:
- Use information from unselected documents.
- Invent factual information that is not supported by the selected documents.

If a user asks about an unselected document:
"The document is unselected or does not exist, so I cannot answer that."

If a factual answer cannot be found in the selected documents:
"I cannot answer that based on the selected documents."

Response format:
- Plain text only (no markdown, no lists, no special formatting).`

const projectAskLexicalSystem = `You are answering based on extracted text only.
Embeddings are not ready yet.
Use ONLY the provided text. Do not invent facts.
BM25 retrieval has selected the most relevant chunks.`

// ProjectAskService answers questions across every selected document in a
// project.
type ProjectAskService interface {
	Ask(ctx context.Context, userID uuid.UUID, projectID uuid.UUID, question string) (*AskResult, error)
	Messages(ctx context.Context, userID uuid.UUID, projectID uuid.UUID) ([]*types.Message, error)
}

type projectAskService struct {
	log      *logger.Logger
	projects repos.ProjectRepo
	docs     repos.DocumentRepo
	chunks   repos.ChunkRepo
	convs    repos.ConversationRepo
	messages repos.MessageRepo
	ai       openai.Client
	engine   *retrieval.Engine
}

func NewProjectAskService(
	baseLog *logger.Logger,
	projects repos.ProjectRepo,
	docs repos.DocumentRepo,
	chunks repos.ChunkRepo,
	convs repos.ConversationRepo,
	messages repos.MessageRepo,
	ai openai.Client,
	engine *retrieval.Engine,
) ProjectAskService {
	return &projectAskService{
		log:      baseLog.With("service", "ProjectAskService"),
		projects: projects,
		docs:     docs,
		chunks:   chunks,
		convs:    convs,
		messages: messages,
		ai:       ai,
		engine:   engine,
	}
}

func (s *projectAskService) Ask(ctx context.Context, userID uuid.UUID, projectID uuid.UUID, question string) (*AskResult, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("question is required")
	}
	if _, err := s.projects.GetOwned(ctx, nil, projectID, userID); err != nil {
		return nil, err
	}

	conv, err := s.convs.LatestForProject(ctx, nil, projectID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		conv, err = s.convs.CreateForProject(ctx, nil, projectID, userID)
		if err != nil {
			return nil, err
		}
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

	allDocs, err := s.docs.GetByProjectID(ctx, nil, projectID)
	if err != nil {
		return nil, err
	}
	var selectedDocs, unselectedDocs []*types.Document
	for _, d := range allDocs {
		if d.Selected {
			selectedDocs = append(selectedDocs, d)
		} else {
			unselectedDocs = append(unselectedDocs, d)
		}
	}

	// Access control happens on the question text before any retrieval or
	// model call. A question that only concerns unselected documents gets a
	// fixed refusal.
	if refusal, ok := s.refusalFor(question, selectedDocs, unselectedDocs); ok {
		if err := s.messages.UpdateStatus(ctx, nil, userMsg.ID, types.MessageDone); err != nil {
			return nil, err
		}
		return &AskResult{Success: true, Answer: refusal, ConversationID: conv.ID}, nil
	}

	if len(selectedDocs) == 0 {
		if err := s.messages.UpdateStatus(ctx, nil, userMsg.ID, types.MessageDone); err != nil {
			return nil, err
		}
		return &AskResult{Success: true, Answer: noDocumentsAnswer, ConversationID: conv.ID}, nil
	}

	cands, err := s.loadCandidates(ctx, selectedDocs)
	if err != nil {
		return nil, err
	}

	var contextText, system string
	if lexicalOnly(selectedDocs) {
		ranked := retrieval.RankLexical(cands, question)
		contextText = retrieval.BuildLexicalContext(ranked)
		system = projectAskLexicalSystem
	} else {
		ranked, err := s.engine.RankSemantic(ctx, cands, question)
		if err != nil {
			return s.failAsk(ctx, conv.ID, userMsg.ID, err)
		}
		filenames := make([]string, len(selectedDocs))
		for i, d := range selectedDocs {
			filenames[i] = d.Filename
		}
		contextText = retrieval.BuildProjectContext(ranked, filenames)
		system = projectAskSystem
	}

	history, err := s.recentHistory(ctx, conv.ID, userMsg)
	if err != nil {
		return nil, err
	}
	msgs := make([]openai.ChatMessage, 0, len(history)+2)
	msgs = append(msgs, openai.ChatMessage{Role: "system", Content: system})
	msgs = append(msgs, history...)
	msgs = append(msgs, openai.ChatMessage{
		Role:    "user",
		Content: fmt.Sprintf("Question: %s\n\nContext:\n%s", question, contextText),
	})

	answer, err := s.ai.Complete(ctx, msgs, projectAskMaxTokens, projectAskTemperature)
	if err != nil {
		return s.failAsk(ctx, conv.ID, userMsg.ID, err)
	}
	// Plain-text guarantee: the model is told not to use markdown, strip
	// any asterisks it emits anyway.
	answer = strings.TrimSpace(strings.ReplaceAll(answer, "*", ""))

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

// Messages returns the transcript of the project's most recent conversation,
// oldest first. A project with no conversation yet yields an empty slice.
func (s *projectAskService) Messages(ctx context.Context, userID uuid.UUID, projectID uuid.UUID) ([]*types.Message, error) {
	if _, err := s.projects.GetOwned(ctx, nil, projectID, userID); err != nil {
		return nil, err
	}
	conv, err := s.convs.LatestForProject(ctx, nil, projectID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return []*types.Message{}, nil
	}
	return s.messages.ListByConversation(ctx, nil, conv.ID)
}

// refusalFor decides whether the question must be refused outright. That is
// the case when the question literally says "unselected document", or when
// it mentions at least one unselected document's filename and no selected
// one's.
func (s *projectAskService) refusalFor(question string, selected, unselected []*types.Document) (string, bool) {
	q := retrieval.Normalize(question)
	if strings.Contains(q, "unselected document") {
		return unselectedMultiRefusal, true
	}

	var mentionedUnselected, mentionedSelected []string
	for _, d := range unselected {
		if n := retrieval.Normalize(d.Filename); n != "" && strings.Contains(q, n) {
			mentionedUnselected = append(mentionedUnselected, d.Filename)
		}
	}
	for _, d := range selected {
		if n := retrieval.Normalize(d.Filename); n != "" && strings.Contains(q, n) {
			mentionedSelected = append(mentionedSelected, d.Filename)
		}
	}
	if len(mentionedUnselected) == 0 || len(mentionedSelected) > 0 {
		return "", false
	}
	if len(mentionedUnselected) == 1 {
		return fmt.Sprintf("The document %q is unselected, so I cannot answer that.", mentionedUnselected[0]), true
	}
	return unselectedMultiRefusal, true
}

func (s *projectAskService) loadCandidates(ctx context.Context, docs []*types.Document) ([]retrieval.Candidate, error) {
	ids := make([]uuid.UUID, len(docs))
	byID := make(map[uuid.UUID]*types.Document, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
		byID[d.ID] = d
	}
	rows, err := s.chunks.GetByDocumentIDs(ctx, nil, ids)
	if err != nil {
		return nil, err
	}
	cands := make([]retrieval.Candidate, 0, len(rows))
	for _, row := range rows {
		doc := byID[row.DocumentID]
		if doc == nil {
			continue
		}
		// A chunk whose text was lost still ranks by its summary.
		text := strings.TrimSpace(row.Text)
		if text == "" {
			text = strings.TrimSpace(row.Summary)
		}
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
			DocSummary:     summaryOverview(doc),
			Embedding:      row.Vector(),
		})
	}
	return cands, nil
}

// lexicalOnly reports whether no selected document has any embeddings to
// rank with yet.
func lexicalOnly(docs []*types.Document) bool {
	for _, d := range docs {
		if d.Status.PastChunking() {
			return false
		}
	}
	return true
}

// summaryOverview extracts the overview line from a document's structured
// summary, or "" when there is none yet.
func summaryOverview(doc *types.Document) string {
	if len(doc.Summary) == 0 {
		return ""
	}
	var s types.StructuredSummary
	if err := json.Unmarshal(doc.Summary, &s); err != nil {
		return ""
	}
	return s.Overview
}

func (s *projectAskService) recentHistory(ctx context.Context, convID uuid.UUID, userMsg *types.Message) ([]openai.ChatMessage, error) {
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

func (s *projectAskService) failAsk(ctx context.Context, convID, userMsgID uuid.UUID, cause error) (*AskResult, error) {
	s.log.Error("project ask failed", "conversationId", convID, "error", cause)
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
