package types

// DocumentStatus is the authoritative pipeline state of a document. Writes
// go through CanTransition so an out-of-order stage can never clobber a
// later state.
type DocumentStatus string

const (
	StatusQueued      DocumentStatus = "queued"
	StatusExtracting  DocumentStatus = "extracting"
	StatusChunked     DocumentStatus = "chunked"
	StatusEmbedding   DocumentStatus = "embedding"
	StatusEmbedded    DocumentStatus = "embedded"
	StatusSummarizing DocumentStatus = "summarizing"
	StatusReady       DocumentStatus = "ready"
	StatusError       DocumentStatus = "error"
)

var statusTransitions = map[DocumentStatus][]DocumentStatus{
	StatusQueued:      {StatusExtracting, StatusError},
	StatusExtracting:  {StatusChunked, StatusError},
	StatusChunked:     {StatusEmbedding, StatusError},
	StatusEmbedding:   {StatusEmbedded, StatusError},
	StatusEmbedded:    {StatusSummarizing, StatusError},
	StatusSummarizing: {StatusReady, StatusError},
	// Regenerate re-enters summarization from ready.
	StatusReady: {StatusSummarizing, StatusError},
	StatusError: {},
}

// CanTransition reports whether moving from to next is a legal status write.
// Re-writing the current status is allowed so a redelivered stage can resume
// after a mid-stage crash.
func (s DocumentStatus) CanTransition(next DocumentStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further pipeline work will touch the document.
func (s DocumentStatus) Terminal() bool {
	return s == StatusError
}

// PastChunking reports whether the embed stage has at least started, meaning
// embedding-based retrieval is (or will shortly be) possible.
func (s DocumentStatus) PastChunking() bool {
	switch s {
	case StatusEmbedding, StatusEmbedded, StatusSummarizing, StatusReady:
		return true
	}
	return false
}
