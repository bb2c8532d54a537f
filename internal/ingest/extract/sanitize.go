package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Sanitize makes extracted text safe to persist: invalid UTF-8 sequences are
// dropped, the text is normalized to NFC, and control/replacement characters
// are stripped. Postgres rejects writes containing NUL bytes, so this must
// run before anything reaches a chunk row.
func Sanitize(s string) string {
	if s == "" {
		return s
	}
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, " ")
	}
	s = norm.NFC.String(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == utf8.RuneError || r == 0xFFFD {
			continue
		}
		if r == '\n' || r == '\t' {
			b.WriteRune(r)
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SplitText splits sanitized text into contiguous segments of at most size
// runes. Segment i covers runes [i*size, (i+1)*size); concatenating every
// segment in order reproduces the input exactly.
func SplitText(text string, size int) []string {
	if size <= 0 || text == "" {
		return nil
	}
	runes := []rune(text)
	count := (len(runes) + size - 1) / size
	chunks := make([]string, 0, count)
	for i := 0; i < len(runes); i += size {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}
