package retrieval

import (
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

var diacriticStripper = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lower-cases, folds accents away and keeps only alphanumerics,
// dot and dash, collapsing everything else to single spaces. Filename
// mention matching and BM25 tokenization share this so they agree on what a
// "word" is.
func Normalize(s string) string {
	s = strings.ToLower(s)
	if folded, _, err := transform.String(diacriticStripper, s); err == nil {
		s = folded
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Tokenize splits normalized text into query/document terms, discarding
// tokens of length <= 2.
func Tokenize(s string) []string {
	fields := strings.Fields(Normalize(s))
	tokens := fields[:0]
	for _, f := range fields {
		if len(f) > 2 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// bm25Scores ranks every candidate chunk against the query terms. A chunk
// sharing no token with the query scores exactly 0.
func bm25Scores(cands []Candidate, question string) []float64 {
	queryTokens := Tokenize(question)
	n := len(cands)
	scores := make([]float64, n)
	if n == 0 || len(queryTokens) == 0 {
		return scores
	}

	docTokens := make([][]string, n)
	totalLen := 0
	for i, c := range cands {
		docTokens[i] = Tokenize(c.Text)
		totalLen += len(docTokens[i])
	}
	avgdl := float64(totalLen) / float64(n)
	if avgdl == 0 {
		return scores
	}

	idf := make(map[string]float64, len(queryTokens))
	for _, t := range queryTokens {
		if _, done := idf[t]; done {
			continue
		}
		df := 0
		for i := range cands {
			for _, tok := range docTokens[i] {
				if tok == t {
					df++
					break
				}
			}
		}
		idf[t] = math.Log((float64(n)-float64(df)+0.5)/(float64(df)+0.5) + 1)
	}

	for i := range cands {
		dl := float64(len(docTokens[i]))
		for _, t := range queryTokens {
			tf := 0.0
			for _, tok := range docTokens[i] {
				if tok == t {
					tf++
				}
			}
			if tf == 0 {
				continue
			}
			denom := tf + bm25K1*(1-bm25B+bm25B*(dl/avgdl))
			scores[i] += idf[t] * (tf * (bm25K1 + 1)) / denom
		}
	}
	return scores
}
