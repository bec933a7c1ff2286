// Package dataset turns lines of text into fixed-length index sequences and
// groups them into batches.
package dataset

import (
	"fmt"
	"math/rand"
	"unicode/utf8"

	"github.com/ppiankov/brevis/internal/corpus"
	"github.com/ppiankov/brevis/internal/errors"
	"github.com/ppiankov/brevis/internal/logger"
	"github.com/ppiankov/brevis/internal/text"
	"github.com/ppiankov/brevis/internal/vocab"
)

// DefaultMaxLength is the sequence length used when none is configured.
const DefaultMaxLength = 512

// Sequence is one line in vocabulary-index space. Every Sequence of a Dataset
// has exactly MaxLength elements.
type Sequence []int

// Dataset is a random-access list of padded sequences.
type Dataset struct {
	sequences []Sequence
	maxLength int
	padIndex  int
}

// Encode maps tokens through v and pads or truncates the result to exactly
// maxLength elements. Tokens missing from v become the pad index.
func Encode(tokens []string, v *vocab.Vocabulary, maxLength int) Sequence {
	seq := make(Sequence, maxLength)
	pad := v.PadIndex()
	for i := range seq {
		if i < len(tokens) {
			seq[i] = v.Lookup(tokens[i])
		} else {
			seq[i] = pad
		}
	}
	return seq
}

// Build encodes every line. Lines are tokenized with seg, which must be the
// segmenter the vocabulary was built with. A line that is not valid UTF-8 fails
// the whole build.
func Build(lines []string, v *vocab.Vocabulary, seg text.Segmenter, maxLength int) (*Dataset, error) {
	if maxLength < 1 {
		return nil, errors.NewInvalidInput(fmt.Sprintf("max length must be at least 1, got %d", maxLength))
	}

	seqs := make([]Sequence, len(lines))
	for i, line := range lines {
		if !utf8.ValidString(line) {
			return nil, errors.NewMalformedCorpus("lines", i+1, "line is not valid UTF-8")
		}
		seqs[i] = Encode(seg.Words(line), v, maxLength)
	}

	return &Dataset{
		sequences: seqs,
		maxLength: maxLength,
		padIndex:  v.PadIndex(),
	}, nil
}

// Load reads the line corpus at path and builds a Dataset from it.
func Load(path string, v *vocab.Vocabulary, seg text.Segmenter, maxLength int, log logger.Logger) (*Dataset, error) {
	log.Info("Loading data", logger.String("path", path))

	lines, err := corpus.ReadLines(path)
	if err != nil {
		log.Error("Cannot read line corpus", logger.String("path", path), logger.Error(err))
		return nil, err
	}

	ds, err := Build(lines, v, seg, maxLength)
	if err != nil {
		log.Error("Cannot build dataset", logger.String("path", path), logger.Error(err))
		return nil, fmt.Errorf("build dataset from %s: %w", path, err)
	}
	return ds, nil
}

// Len returns the number of sequences.
func (d *Dataset) Len() int {
	return len(d.sequences)
}

// At returns the sequence at index i.
func (d *Dataset) At(i int) Sequence {
	return d.sequences[i]
}

// MaxLength returns the fixed sequence length.
func (d *Dataset) MaxLength() int {
	return d.maxLength
}

// PadIndex returns the pad index of the vocabulary the dataset was built with.
func (d *Dataset) PadIndex() int {
	return d.padIndex
}

// Split deterministically moves a holdout fraction of the sequences into a
// second dataset. With holdout 0 the validation dataset is nil. At least one
// sequence always stays in the training dataset.
func (d *Dataset) Split(holdout float64, seed int64) (train, validation *Dataset) {
	n := int(float64(d.Len()) * holdout)
	if n >= d.Len() {
		n = d.Len() - 1
	}
	if n <= 0 {
		return d, nil
	}

	perm := rand.New(rand.NewSource(seed)).Perm(d.Len())
	pick := func(idx []int) *Dataset {
		seqs := make([]Sequence, len(idx))
		for i, j := range idx {
			seqs[i] = d.sequences[j]
		}
		return &Dataset{sequences: seqs, maxLength: d.maxLength, padIndex: d.padIndex}
	}
	return pick(perm[n:]), pick(perm[:n])
}
