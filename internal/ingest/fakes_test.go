package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/textdigest-backend/internal/clients/openai"
	redisq "github.com/yungbote/textdigest-backend/internal/clients/redis"
	"github.com/yungbote/textdigest-backend/internal/repos"
	"github.com/yungbote/textdigest-backend/internal/types"
)

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
	d, ok := f.docs[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	d.Content = content
	return nil
}

func (f *fakeDocs) SetSummary(ctx context.Context, tx *gorm.DB, id uuid.UUID, summary datatypes.JSON) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	d.Summary = summary
	return nil
}

func (f *fakeDocs) SetSelected(ctx context.Context, tx *gorm.DB, id uuid.UUID, selected bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	d.Selected = selected
	return nil
}

func (f *fakeDocs) get(id uuid.UUID) *types.Document {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.docs[id]
}

type fakeChunks struct {
	mu   sync.Mutex
	rows map[uuid.UUID][]*types.Chunk
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
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
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

type fakeQueue struct {
	mu    sync.Mutex
	sent  [][]byte
	acked int
}

func (f *fakeQueue) Send(ctx context.Context, body []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, body)
	return nil
}

func (f *fakeQueue) Receive(ctx context.Context) (*redisq.Delivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return nil, nil
	}
	body := f.sent[0]
	f.sent = f.sent[1:]
	return &redisq.Delivery{Body: body, Attempts: 1}, nil
}

func (f *fakeQueue) Ack(ctx context.Context, d *redisq.Delivery) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked++
	return nil
}

func (f *fakeQueue) sentMessages(t interface{ Fatalf(string, ...any) }) []JobMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]JobMessage, len(f.sent))
	for i, raw := range f.sent {
		msg, err := DecodeJobMessage(raw)
		if err != nil {
			t.Fatalf("queue holds undecodable message: %v", err)
		}
		out[i] = msg
	}
	return out
}

type fakeBlob struct {
	mu        sync.Mutex
	files     map[string][]byte
	downloads int
}

func newFakeBlob() *fakeBlob {
	return &fakeBlob{files: make(map[string][]byte)}
}

func (f *fakeBlob) Download(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads++
	data, ok := f.files[key]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	return data, nil
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
	return "summary", nil
}
