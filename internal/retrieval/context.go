package retrieval

import (
	"fmt"
	"strings"
)

const excerptLimit = 600

// BuildDocumentContext assembles the prompt context for a single-document
// question: the ranked chunks in score order, each labelled with its index
// inside the document.
func BuildDocumentContext(ranked []Ranked) string {
	parts := make([]string, 0, len(ranked))
	for _, r := range ranked {
		parts = append(parts, fmt.Sprintf("Chunk %d:\n%s", r.ChunkIndex, r.Text))
	}
	return strings.Join(parts, "\n\n")
}

// BuildProjectContext assembles the prompt context for a project-level
// question answered from embeddings. Ranked chunks are grouped per document
// in score order, each block led by the document's summary overview when it
// has one, with chunk text trimmed to short excerpts. A manifest of the
// selected documents comes first so the model can answer questions about
// what the project contains.
func BuildProjectContext(ranked []Ranked, filenames []string) string {
	byDoc := make(map[string][]Ranked)
	var order []string
	for _, r := range ranked {
		key := r.DocumentID.String()
		if _, seen := byDoc[key]; !seen {
			order = append(order, key)
		}
		byDoc[key] = append(byDoc[key], r)
	}

	blocks := make([]string, 0, len(order))
	for _, key := range order {
		group := byDoc[key]
		var b strings.Builder
		fmt.Fprintf(&b, "Document: %s\n", group[0].DocumentName)
		if s := strings.TrimSpace(group[0].DocSummary); s != "" {
			fmt.Fprintf(&b, "Summary: %s\n", s)
		}
		lines := make([]string, 0, len(group))
		for _, r := range group {
			lines = append(lines, fmt.Sprintf("- (Chunk %d) %s", r.ChunkIndex, excerpt(r.Text)))
		}
		b.WriteString(strings.Join(lines, "\n"))
		blocks = append(blocks, b.String())
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Project contains %d documents:\n", len(filenames))
	for i, name := range filenames {
		fmt.Fprintf(&b, "%d. %s\n", i+1, name)
	}
	b.WriteString("\n")
	b.WriteString(strings.Join(blocks, "\n\n"))
	return b.String()
}

// BuildLexicalContext is the slimmer context used when retrieval fell back
// to BM25 because no document has embeddings yet.
func BuildLexicalContext(ranked []Ranked) string {
	parts := make([]string, 0, len(ranked))
	for _, r := range ranked {
		parts = append(parts, fmt.Sprintf("Document: %s\n- %s", r.DocumentName, excerpt(r.Text)))
	}
	return strings.Join(parts, "\n\n")
}

// excerpt collapses runs of whitespace and truncates to excerptLimit runes.
func excerpt(text string) string {
	flat := strings.Join(strings.Fields(text), " ")
	runes := []rune(flat)
	if len(runes) <= excerptLimit {
		return flat
	}
	return string(runes[:excerptLimit])
}
