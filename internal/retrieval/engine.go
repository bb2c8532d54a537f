package retrieval

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/yungbote/textdigest-backend/internal/logger"
	"github.com/yungbote/textdigest-backend/internal/types"
)

// TopK is how many chunks make it into the model context.
const TopK = 8

// Candidate is one retrievable chunk flattened with the document fields the
// engine needs for mode selection and context assembly.
type Candidate struct {
	ChunkID        uuid.UUID
	DocumentID     uuid.UUID
	DocumentName   string
	DocumentStatus types.DocumentStatus
	ChunkIndex     int
	Text           string
	Summary        string
	DocSummary     string
	Embedding      []float32
}

// Embedder turns texts into vectors. Satisfied by the OpenAI client.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

// VectorStore persists embeddings repaired during retrieval so the next
// query does not have to recompute them.
type VectorStore interface {
	SaveVector(ctx context.Context, docID uuid.UUID, chunkIndex int, vector []float32) error
}

// Ranked is a candidate with its relevance score attached.
type Ranked struct {
	Candidate
	Score float64
}

// Engine scores candidate chunks against a question. It embeds the question
// and ranks by cosine similarity when the candidate documents have usable
// embeddings, and falls back to BM25 over raw chunk text when none of the
// documents has progressed past chunking yet, so questions asked mid-ingest
// still get a grounded answer.
type Engine struct {
	log      *logger.Logger
	embedder Embedder
	vectors  VectorStore
}

func NewEngine(log *logger.Logger, embedder Embedder, vectors VectorStore) *Engine {
	return &Engine{
		log:      log.With("component", "retrieval"),
		embedder: embedder,
		vectors:  vectors,
	}
}

// UseBM25 reports whether lexical scoring should be used for this candidate
// set. True only when no candidate document has moved past the chunked
// state, meaning no embeddings can be expected yet.
func UseBM25(cands []Candidate) bool {
	for _, c := range cands {
		if c.DocumentStatus.PastChunking() {
			return false
		}
	}
	return true
}

// RankSemantic heals missing embeddings, embeds embedInput (the question,
// possibly with a retrieval prefix) and returns the top TopK candidates by
// cosine similarity, ties broken by ascending chunk index.
func (e *Engine) RankSemantic(ctx context.Context, cands []Candidate, embedInput string) ([]Ranked, error) {
	if len(cands) == 0 {
		return nil, nil
	}
	healed, err := e.healEmbeddings(ctx, cands)
	if err != nil {
		return nil, err
	}
	cands = healed
	qv, err := e.embedQuestion(ctx, embedInput)
	if err != nil {
		return nil, err
	}
	scores := make([]float64, len(cands))
	for i, c := range cands {
		scores[i] = CosineSimilarity(qv, c.Embedding)
	}
	return topRanked(cands, scores), nil
}

// RankLexical scores candidates with BM25 over raw chunk text. Used when no
// candidate document has embeddings yet; it never calls the provider.
func RankLexical(cands []Candidate, question string) []Ranked {
	if len(cands) == 0 {
		return nil
	}
	return topRanked(cands, bm25Scores(cands, question))
}

func topRanked(cands []Candidate, scores []float64) []Ranked {
	ranked := make([]Ranked, len(cands))
	for i, c := range cands {
		ranked[i] = Ranked{Candidate: c, Score: scores[i]}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].ChunkIndex < ranked[j].ChunkIndex
	})
	if len(ranked) > TopK {
		ranked = ranked[:TopK]
	}
	return ranked
}

func (e *Engine) embedQuestion(ctx context.Context, question string) ([]float32, error) {
	vecs, err := e.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embed question: expected 1 vector, got %d", len(vecs))
	}
	return vecs[0], nil
}

// healEmbeddings re-embeds candidates whose stored vectors are missing or
// degenerate and persists the repaired vectors. Chunks the provider still
// returns unusable vectors for are dropped from the candidate set.
func (e *Engine) healEmbeddings(ctx context.Context, cands []Candidate) ([]Candidate, error) {
	var broken []int
	for i, c := range cands {
		if !types.EmbeddingUsable(c.Embedding) {
			broken = append(broken, i)
		}
	}
	if len(broken) == 0 {
		return cands, nil
	}
	e.log.Info("repairing degenerate embeddings", "count", len(broken))

	inputs := make([]string, len(broken))
	for j, i := range broken {
		inputs[j] = cands[i].Text
	}
	vecs, err := e.embedder.Embed(ctx, inputs)
	if err != nil {
		return nil, fmt.Errorf("re-embed chunks: %w", err)
	}
	if len(vecs) != len(broken) {
		return nil, fmt.Errorf("re-embed chunks: expected %d vectors, got %d", len(broken), len(vecs))
	}

	stillBad := make(map[int]bool)
	for j, i := range broken {
		if !types.EmbeddingUsable(vecs[j]) {
			stillBad[i] = true
			continue
		}
		cands[i].Embedding = vecs[j]
		if e.vectors != nil {
			if err := e.vectors.SaveVector(ctx, cands[i].DocumentID, cands[i].ChunkIndex, vecs[j]); err != nil {
				e.log.Warn("failed to persist repaired embedding", "docId", cands[i].DocumentID, "chunkIndex", cands[i].ChunkIndex, "error", err)
			}
		}
	}
	if len(stillBad) == 0 {
		return cands, nil
	}
	kept := cands[:0]
	for i, c := range cands {
		if !stillBad[i] {
			kept = append(kept, c)
		}
	}
	return kept, nil
}
