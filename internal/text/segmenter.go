// Package text turns raw article text into normalized lines, word tokens and
// sentences.
package text

import (
	"strings"
	"unicode"

	"github.com/clipperhouse/uax29/v2/sentences"
	"github.com/clipperhouse/uax29/v2/words"
)

// Segmenter splits text into word tokens and sentences. The vocabulary builder,
// the dataset and inference must all use the same Segmenter so that they share
// one token space.
type Segmenter interface {
	Words(text string) []string
	Sentences(text string) []string
}

// UnicodeSegmenter segments text following the Unicode text segmentation rules
// (UAX #29). Whitespace and punctuation-only segments are not returned as words.
type UnicodeSegmenter struct{}

// NewSegmenter returns the default segmenter.
func NewSegmenter() *UnicodeSegmenter {
	return &UnicodeSegmenter{}
}

// Words returns the word tokens of text in order.
func (s *UnicodeSegmenter) Words(text string) []string {
	var out []string
	tokens := words.FromString(text)
	for tokens.Next() {
		tok := tokens.Value()
		if isWordToken(tok) {
			out = append(out, tok)
		}
	}
	return out
}

// Sentences returns the trimmed, non-empty sentences of text in order.
func (s *UnicodeSegmenter) Sentences(text string) []string {
	var out []string
	segs := sentences.FromString(text)
	for segs.Next() {
		sent := strings.TrimSpace(segs.Value())
		if sent != "" {
			out = append(out, sent)
		}
	}
	return out
}

func isWordToken(tok string) bool {
	for _, r := range tok {
		if isWordRune(r) {
			return true
		}
	}
	return false
}

// isWordRune matches the characters a regexp \w class matches on Unicode text.
func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_'
}
