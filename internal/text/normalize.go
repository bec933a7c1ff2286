package text

import (
	"strings"
	"unicode"

	"github.com/ppiankov/brevis/internal/model"
)

// Normalizer produces one clean line per article: lowercase, no digits, no
// punctuation, single spaces, no leading or trailing space.
type Normalizer struct {
	stopwords map[string]bool
}

// NormalizerOption configures a Normalizer.
type NormalizerOption func(*Normalizer)

// WithStopwords drops English stopwords after normalization.
func WithStopwords() NormalizerOption {
	return func(n *Normalizer) {
		n.stopwords = englishStopwords
	}
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Article normalizes the title and content of a, joined by a single space.
func (n *Normalizer) Article(a model.Article) string {
	return n.Normalize(a.Title + " " + a.Content)
}

// Normalize cleans s. It never fails and is idempotent.
//
// Lowercasing happens before filtering: some uppercase letters lowercase to a
// letter plus a combining mark, and the mark must be filtered in the same pass.
func (n *Normalizer) Normalize(s string) string {
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			continue
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		case isWordRune(r):
			b.WriteRune(r)
		}
	}

	fields := strings.Fields(b.String())
	if n.stopwords != nil {
		kept := fields[:0]
		for _, f := range fields {
			if !n.stopwords[f] {
				kept = append(kept, f)
			}
		}
		fields = kept
	}
	return strings.Join(fields, " ")
}
