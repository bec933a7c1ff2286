package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/brevis/internal/errors"
	"github.com/ppiankov/brevis/internal/logger"
	"github.com/ppiankov/brevis/internal/text"
	"github.com/ppiankov/brevis/internal/vocab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testVocab(t *testing.T) *vocab.Vocabulary {
	t.Helper()
	v, err := vocab.NewBuilder(text.NewSegmenter()).Build([]string{"a b a", "b c"})
	require.NoError(t, err)
	return v
}

func TestBuild_PadsShortLine(t *testing.T) {
	ds, err := Build([]string{"a b"}, testVocab(t), text.NewSegmenter(), 5)
	require.NoError(t, err)

	require.Equal(t, 1, ds.Len())
	assert.Equal(t, Sequence{0, 1, 3, 3, 3}, ds.At(0))
	assert.Equal(t, 3, ds.PadIndex())
	assert.Equal(t, 5, ds.MaxLength())
}

func TestBuild_FixedLength(t *testing.T) {
	v := testVocab(t)
	seg := text.NewSegmenter()
	const maxLen = 4

	lines := []string{
		"",
		"a b c a",
		"a b c a b c a b c",
		"unknown words only",
	}
	ds, err := Build(lines, v, seg, maxLen)
	require.NoError(t, err)
	require.Equal(t, len(lines), ds.Len())

	for i := 0; i < ds.Len(); i++ {
		seq := ds.At(i)
		assert.Len(t, seq, maxLen, "line %d", i)
		for _, idx := range seq {
			assert.GreaterOrEqual(t, idx, 0)
			assert.LessOrEqual(t, idx, v.PadIndex())
		}
	}

	assert.Equal(t, Sequence{3, 3, 3, 3}, ds.At(0))
	assert.Equal(t, Sequence{0, 1, 2, 0}, ds.At(1))
	assert.Equal(t, Sequence{0, 1, 2, 0}, ds.At(2), "long lines are truncated")
	assert.Equal(t, Sequence{3, 3, 3, 3}, ds.At(3), "unknown tokens map to pad")
}

func TestBuild_InvalidMaxLength(t *testing.T) {
	_, err := Build([]string{"a"}, testVocab(t), text.NewSegmenter(), 0)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestBuild_InvalidUTF8(t *testing.T) {
	_, err := Build([]string{"a b", "c \xff"}, testVocab(t), text.NewSegmenter(), 4)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrMalformedCorpus))
	assert.Contains(t, err.Error(), "lines:2")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lines.txt")
	require.NoError(t, os.WriteFile(path, []byte("a b\nc\n"), 0644))

	ds, err := Load(path, testVocab(t), text.NewSegmenter(), 3, logger.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())
	assert.Equal(t, Sequence{2, 3, 3}, ds.At(1))
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "none.txt"), testVocab(t), text.NewSegmenter(), 3, logger.NewNop())
	assert.True(t, errors.Is(err, errors.ErrMissingFile))
}

func TestSplit(t *testing.T) {
	lines := make([]string, 10)
	for i := range lines {
		lines[i] = strings.Repeat("a ", i+1)
	}
	ds, err := Build(lines, testVocab(t), text.NewSegmenter(), 12)
	require.NoError(t, err)

	train, val := ds.Split(0.2, 7)
	require.NotNil(t, val)
	assert.Equal(t, 8, train.Len())
	assert.Equal(t, 2, val.Len())

	train2, val2 := ds.Split(0.2, 7)
	assert.Equal(t, val.At(0), val2.At(0), "split is deterministic for a seed")
	assert.Equal(t, train.At(0), train2.At(0))

	all, none := ds.Split(0, 7)
	assert.Nil(t, none)
	assert.Equal(t, ds.Len(), all.Len())

	most, rest := ds.Split(1, 7)
	assert.Equal(t, 1, most.Len())
	assert.Equal(t, 9, rest.Len())
}
