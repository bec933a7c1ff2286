package dataset

import (
	"sort"
	"testing"

	"github.com/ppiankov/brevis/internal/errors"
	"github.com/ppiankov/brevis/internal/text"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// numbered builds a dataset whose sequence i starts with a distinct marker so
// that batches can be traced back to dataset rows.
func numbered(t *testing.T, n int) *Dataset {
	t.Helper()
	seqs := make([]Sequence, n)
	for i := range seqs {
		seqs[i] = Sequence{i, 0}
	}
	return &Dataset{sequences: seqs, maxLength: 2, padIndex: n}
}

func firstColumn(batches []Batch) []int {
	var out []int
	for _, b := range batches {
		for _, row := range b.Inputs {
			out = append(out, row[0])
		}
	}
	return out
}

func TestLoader_KeepsFinalPartialBatch(t *testing.T) {
	l, err := NewLoader(numbered(t, 70), LoaderOptions{BatchSize: 32})
	require.NoError(t, err)

	assert.Equal(t, 3, l.NumBatches())
	batches := l.Epoch()
	require.Len(t, batches, 3)
	assert.Equal(t, 32, batches[0].Size())
	assert.Equal(t, 32, batches[1].Size())
	assert.Equal(t, 6, batches[2].Size())

	want := make([]int, 70)
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, firstColumn(batches), "unshuffled batches keep dataset order")
}

func TestLoader_DropLast(t *testing.T) {
	l, err := NewLoader(numbered(t, 70), LoaderOptions{BatchSize: 32, DropLast: true})
	require.NoError(t, err)

	assert.Equal(t, 2, l.NumBatches())
	assert.Len(t, l.Epoch(), 2)
}

func TestLoader_ShufflePerEpoch(t *testing.T) {
	l, err := NewLoader(numbered(t, 50), LoaderOptions{BatchSize: 8, Shuffle: true, Seed: 3})
	require.NoError(t, err)

	first := firstColumn(l.Epoch())
	second := firstColumn(l.Epoch())
	assert.NotEqual(t, first, second, "each epoch draws a new order")

	sorted := append([]int(nil), first...)
	sort.Ints(sorted)
	for i, v := range sorted {
		assert.Equal(t, i, v, "every sequence appears exactly once")
	}

	again, err := NewLoader(numbered(t, 50), LoaderOptions{BatchSize: 8, Shuffle: true, Seed: 3})
	require.NoError(t, err)
	assert.Equal(t, first, firstColumn(again.Epoch()), "same seed, same order")
}

func TestLoader_BatchesAreRectangular(t *testing.T) {
	ds, err := Build([]string{"a", "a b c a b", "c"}, testVocab(t), text.NewSegmenter(), 4)
	require.NoError(t, err)

	l, err := NewLoader(ds, LoaderOptions{BatchSize: 2})
	require.NoError(t, err)
	for _, b := range l.Epoch() {
		for _, row := range b.Inputs {
			assert.Len(t, row, 4)
		}
	}
}

func TestLoader_InvalidBatchSize(t *testing.T) {
	_, err := NewLoader(numbered(t, 3), LoaderOptions{BatchSize: 0})
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestLoader_Empty(t *testing.T) {
	l, err := NewLoader(numbered(t, 0), LoaderOptions{BatchSize: 4})
	require.NoError(t, err)
	assert.Equal(t, 0, l.NumBatches())
	assert.Empty(t, l.Epoch())
}
