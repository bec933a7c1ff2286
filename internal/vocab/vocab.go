// Package vocab assigns dense integer indices to tokens and persists the
// mapping as an ordered token/frequency list.
package vocab

import (
	"fmt"

	"github.com/ppiankov/brevis/internal/errors"
	"github.com/ppiankov/brevis/internal/text"
)

// Entry is one vocabulary record. Frequency is metadata only; the index of a
// token is its position in the vocabulary.
type Entry struct {
	Token     string
	Frequency int
}

// Vocabulary maps tokens to dense indices 0..Len()-1. PadIndex() == Len() is
// reserved and never assigned to a token. A Vocabulary is read-only once built.
type Vocabulary struct {
	entries []Entry
	index   map[string]int
}

// New creates a Vocabulary whose indices follow the order of entries.
// Duplicate or empty tokens are rejected.
func New(entries []Entry) (*Vocabulary, error) {
	v := &Vocabulary{
		entries: make([]Entry, len(entries)),
		index:   make(map[string]int, len(entries)),
	}
	copy(v.entries, entries)
	for i, e := range v.entries {
		if e.Token == "" {
			return nil, fmt.Errorf("entry %d: empty token", i)
		}
		if _, dup := v.index[e.Token]; dup {
			return nil, fmt.Errorf("entry %d: duplicate token %q", i, e.Token)
		}
		v.index[e.Token] = i
	}
	return v, nil
}

// Len returns the number of real tokens.
func (v *Vocabulary) Len() int {
	return len(v.entries)
}

// PadIndex returns the reserved padding index, one past the last token index.
func (v *Vocabulary) PadIndex() int {
	return len(v.entries)
}

// ModelSize returns the number of rows a model needs to embed every index,
// the pad index included.
func (v *Vocabulary) ModelSize() int {
	return len(v.entries) + 1
}

// Index returns the index of token and whether it is in the vocabulary.
func (v *Vocabulary) Index(token string) (int, bool) {
	i, ok := v.index[token]
	return i, ok
}

// Lookup returns the index of token, or PadIndex() for tokens not in the
// vocabulary. Unknown tokens collapse onto padding and are therefore excluded
// from the training loss.
func (v *Vocabulary) Lookup(token string) int {
	if i, ok := v.index[token]; ok {
		return i
	}
	return v.PadIndex()
}

// Token returns the token at index i. The pad index has no token.
func (v *Vocabulary) Token(i int) (string, bool) {
	if i < 0 || i >= len(v.entries) {
		return "", false
	}
	return v.entries[i].Token, true
}

// Entries returns a copy of the entries in index order.
func (v *Vocabulary) Entries() []Entry {
	out := make([]Entry, len(v.entries))
	copy(out, v.entries)
	return out
}

// Builder counts tokens over a corpus of lines.
type Builder struct {
	segmenter text.Segmenter
}

// NewBuilder creates a Builder that tokenizes with seg.
func NewBuilder(seg text.Segmenter) *Builder {
	return &Builder{segmenter: seg}
}

// Build tokenizes each line, counts token frequencies and assigns indices in
// first-seen order. It fails with a CORPUS_EMPTY error if no token is produced.
func (b *Builder) Build(lines []string) (*Vocabulary, error) {
	counts := make(map[string]int)
	var order []string
	for _, line := range lines {
		for _, tok := range b.segmenter.Words(line) {
			if counts[tok] == 0 {
				order = append(order, tok)
			}
			counts[tok]++
		}
	}

	if len(order) == 0 {
		return nil, errors.NewCorpusEmpty("vocabulary")
	}

	entries := make([]Entry, len(order))
	for i, tok := range order {
		entries[i] = Entry{Token: tok, Frequency: counts[tok]}
	}
	return New(entries)
}
