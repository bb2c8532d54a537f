package services

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/textdigest-backend/internal/clients/openai"
	redisq "github.com/yungbote/textdigest-backend/internal/clients/redis"
	"github.com/yungbote/textdigest-backend/internal/ingest"
	"github.com/yungbote/textdigest-backend/internal/repos"
	"github.com/yungbote/textdigest-backend/internal/types"
)

type fakeProjects struct {
	projects map[uuid.UUID]*types.Project
}

func newFakeProjects(projects ...*types.Project) *fakeProjects {
	f := &fakeProjects{projects: make(map[uuid.UUID]*types.Project)}
	for _, p := range projects {
		f.projects[p.ID] = p
	}
	return f
}

func (f *fakeProjects) GetOwned(ctx context.Context, tx *gorm.DB, id uuid.UUID, userID uuid.UUID) (*types.Project, error) {
	p, ok := f.projects[id]
	if !ok || p.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

type fakeDocs struct {
	mu   sync.Mutex
	docs map[uuid.UUID]*types.Document
}

func newFakeDocs(docs ...*types.Document) *fakeDocs {
	f := &fakeDocs{docs: make(map[uuid.UUID]*types.Document)}
	for _, d := range docs {
		f.docs[d.ID] = d
	}
	return f
}

func (f *fakeDocs) Create(ctx context.Context, tx *gorm.DB, doc *types.Document) (*types.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	f.docs[doc.ID] = doc
	return doc, nil
}

func (f *fakeDocs) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *d
	return &copied, nil
}

func (f *fakeDocs) GetOwned(ctx context.Context, tx *gorm.DB, id uuid.UUID, userID uuid.UUID) (*types.Document, error) {
	d, err := f.GetByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if d.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return d, nil
}

func (f *fakeDocs) GetByProjectID(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) ([]*types.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.Document
	for _, d := range f.docs {
		if d.ProjectID == projectID {
			copied := *d
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Filename < out[j].Filename })
	return out, nil
}

func (f *fakeDocs) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, next types.DocumentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if !d.Status.CanTransition(next) {
		return &repos.InvalidTransitionError{DocumentID: id, From: d.Status, To: next}
	}
	d.Status = next
	return nil
}

func (f *fakeDocs) MarkError(ctx context.Context, tx *gorm.DB, id uuid.UUID, msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	d.Status = types.StatusError
	d.ErrorMsg = msg
	return nil
}

func (f *fakeDocs) SetContent(ctx context.Context, tx *gorm.DB, id uuid.UUID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.docs[id]; ok {
		d.Content = content
		return nil
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeDocs) SetSummary(ctx context.Context, tx *gorm.DB, id uuid.UUID, summary datatypes.JSON) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.docs[id]; ok {
		d.Summary = summary
		return nil
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeDocs) SetSelected(ctx context.Context, tx *gorm.DB, id uuid.UUID, selected bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.docs[id]; ok {
		d.Selected = selected
		return nil
	}
	return gorm.ErrRecordNotFound
}

type fakeChunks struct {
	mu        sync.Mutex
	rows      map[uuid.UUID][]*types.Chunk
	queriedBy [][]uuid.UUID
}

func newFakeChunks() *fakeChunks {
	return &fakeChunks{rows: make(map[uuid.UUID][]*types.Chunk)}
}

func (f *fakeChunks) seed(docID uuid.UUID, chunks ...*types.Chunk) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[docID] = append(f.rows[docID], chunks...)
}

func (f *fakeChunks) CreateBatch(ctx context.Context, tx *gorm.DB, chunks []*types.Chunk) ([]*types.Chunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range chunks {
		f.rows[c.DocumentID] = append(f.rows[c.DocumentID], c)
	}
	return chunks, nil
}

func (f *fakeChunks) GetByDocumentID(ctx context.Context, tx *gorm.DB, docID uuid.UUID) ([]*types.Chunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*types.Chunk, len(f.rows[docID]))
	for i, c := range f.rows[docID] {
		copied := *c
		out[i] = &copied
	}
	return out, nil
}

func (f *fakeChunks) GetByDocumentIDs(ctx context.Context, tx *gorm.DB, docIDs []uuid.UUID) ([]*types.Chunk, error) {
	f.mu.Lock()
	f.queriedBy = append(f.queriedBy, docIDs)
	f.mu.Unlock()
	var out []*types.Chunk
	for _, id := range docIDs {
		rows, _ := f.GetByDocumentID(ctx, tx, id)
		out = append(out, rows...)
	}
	return out, nil
}

func (f *fakeChunks) DeleteByDocumentID(ctx context.Context, tx *gorm.DB, docID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, docID)
	return nil
}

func (f *fakeChunks) UpdateEmbedding(ctx context.Context, tx *gorm.DB, docID uuid.UUID, chunkIndex int, vector []float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.rows[docID] {
		if c.ChunkIndex == chunkIndex {
			raw, err := json.Marshal(vector)
			if err != nil {
				return err
			}
			c.Embedding = raw
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeChunks) UpdateSummary(ctx context.Context, tx *gorm.DB, docID uuid.UUID, chunkIndex int, summary string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.rows[docID] {
		if c.ChunkIndex == chunkIndex {
			c.Summary = summary
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

type fakeConvs struct {
	mu    sync.Mutex
	convs map[uuid.UUID]*types.Conversation
}

func newFakeConvs() *fakeConvs {
	return &fakeConvs{convs: make(map[uuid.UUID]*types.Conversation)}
}

func (f *fakeConvs) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return c, nil
}

func (f *fakeConvs) GetForDocument(ctx context.Context, tx *gorm.DB, id uuid.UUID, docID uuid.UUID, userID uuid.UUID) (*types.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[id]
	if !ok || c.DocumentID == nil || *c.DocumentID != docID || c.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return c, nil
}

func (f *fakeConvs) CreateForDocument(ctx context.Context, tx *gorm.DB, docID uuid.UUID, userID uuid.UUID) (*types.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &types.Conversation{ID: uuid.New(), DocumentID: &docID, UserID: userID, CreatedAt: time.Now()}
	f.convs[c.ID] = c
	return c, nil
}

func (f *fakeConvs) LatestForProject(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) (*types.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *types.Conversation
	for _, c := range f.convs {
		if c.ProjectID == nil || *c.ProjectID != projectID {
			continue
		}
		if latest == nil || c.CreatedAt.After(latest.CreatedAt) {
			latest = c
		}
	}
	return latest, nil
}

func (f *fakeConvs) CreateForProject(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, userID uuid.UUID) (*types.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &types.Conversation{ID: uuid.New(), ProjectID: &projectID, UserID: userID, CreatedAt: time.Now()}
	f.convs[c.ID] = c
	return c, nil
}

func (f *fakeConvs) DeleteForDocument(ctx context.Context, tx *gorm.DB, docID uuid.UUID, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, c := range f.convs {
		if c.DocumentID != nil && *c.DocumentID == docID && c.UserID == userID {
			delete(f.convs, id)
		}
	}
	return nil
}

type fakeMessages struct {
	mu   sync.Mutex
	msgs []*types.Message
}

func (f *fakeMessages) Create(ctx context.Context, tx *gorm.DB, msg *types.Message) (*types.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().Add(time.Duration(len(f.msgs)) * time.Millisecond)
	}
	f.msgs = append(f.msgs, msg)
	return msg, nil
}

func (f *fakeMessages) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status types.MessageStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.msgs {
		if m.ID == id {
			m.Status = status
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeMessages) RecentBefore(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID, before time.Time, limit int) ([]*types.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.Message
	for _, m := range f.msgs {
		if m.ConversationID == conversationID && m.CreatedAt.Before(before) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeMessages) ListByConversation(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID) ([]*types.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.Message
	for _, m := range f.msgs {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeMessages) byRole(role types.MessageRole) []*types.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.Message
	for _, m := range f.msgs {
		if m.Role == role {
			out = append(out, m)
		}
	}
	return out
}

type fakeAI struct {
	mu            sync.Mutex
	embedCalls    int
	completeCalls int
	embedFn       func(inputs []string) ([][]float32, error)
	completeFn    func(messages []openai.ChatMessage) (string, error)
	completeSeen  [][]openai.ChatMessage
}

func (f *fakeAI) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	f.mu.Lock()
	f.embedCalls++
	fn := f.embedFn
	f.mu.Unlock()
	if fn != nil {
		return fn(inputs)
	}
	out := make([][]float32, len(inputs))
	for i := range inputs {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (f *fakeAI) Complete(ctx context.Context, messages []openai.ChatMessage, maxTokens int, temperature float64) (string, error) {
	f.mu.Lock()
	f.completeCalls++
	f.completeSeen = append(f.completeSeen, messages)
	fn := f.completeFn
	f.mu.Unlock()
	if fn != nil {
		return fn(messages)
	}
	return "an answer", nil
}

type fakeIngestQueue struct {
	mu   sync.Mutex
	sent [][]byte
	fail bool
}

func (f *fakeIngestQueue) Send(ctx context.Context, body []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return context.DeadlineExceeded
	}
	f.sent = append(f.sent, body)
	return nil
}

func (f *fakeIngestQueue) Receive(ctx context.Context) (*redisq.Delivery, error) {
	return nil, nil
}

func (f *fakeIngestQueue) Ack(ctx context.Context, d *redisq.Delivery) error {
	return nil
}

func (f *fakeIngestQueue) sentMessages(t *testing.T) []ingest.JobMessage {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ingest.JobMessage, 0, len(f.sent))
	for _, raw := range f.sent {
		msg, err := ingest.DecodeJobMessage(raw)
		if err != nil {
			t.Fatalf("decode queued message: %v", err)
		}
		out = append(out, msg)
	}
	return out
}
