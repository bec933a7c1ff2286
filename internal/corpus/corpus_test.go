package corpus

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/brevis/internal/errors"
	"github.com/ppiankov/brevis/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_PreservesSourceOrder(t *testing.T) {
	in := `{
  "Zeta": [{"url": "https://z.example/1", "title": "Z1", "content": "z"}],
  "Alpha": [
    {"url": "https://a.example/1", "title": "A1", "content": "a"},
    {"url": "https://a.example/2", "title": "A2"}
  ],
  "Empty": []
}`
	c, err := Decode("test.json", strings.NewReader(in))
	require.NoError(t, err)

	require.Len(t, c.Sources, 3)
	assert.Equal(t, "Zeta", c.Sources[0].Name)
	assert.Equal(t, "Alpha", c.Sources[1].Name)
	assert.Equal(t, "Empty", c.Sources[2].Name)
	assert.Equal(t, "A2", c.Sources[1].Articles[1].Title)
	assert.Equal(t, "", c.Sources[1].Articles[1].Content)
	assert.Equal(t, 3, c.NumArticles())
}

func TestDecode_DuplicateSourceKeepsLastArticles(t *testing.T) {
	in := `{
  "Wire": [{"url": "https://w.example/old", "title": "Old"}],
  "Daily": [{"url": "https://d.example/1", "title": "D1"}],
  "Wire": [
    {"url": "https://w.example/1", "title": "W1"},
    {"url": "https://w.example/2", "title": "W2"}
  ]
}`
	c, err := Decode("dup.json", strings.NewReader(in))
	require.NoError(t, err)

	require.Len(t, c.Sources, 2)
	assert.Equal(t, "Wire", c.Sources[0].Name)
	assert.Equal(t, "Daily", c.Sources[1].Name)
	require.Len(t, c.Sources[0].Articles, 2)
	assert.Equal(t, "W1", c.Sources[0].Articles[0].Title)
	assert.Equal(t, 3, c.NumArticles())
}

func TestDecode_Malformed(t *testing.T) {
	tests := map[string]string{
		"not json":        `nope`,
		"array root":      `[{"title": "x"}]`,
		"articles object": `{"X": {"title": "x"}}`,
		"bad record":      `{"X": [1, 2]}`,
		"truncated":       `{"X": [{"title": "x"}`,
		"trailing":        `{"X": []} {}`,
		"empty input":     ``,
	}

	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode("bad.json", strings.NewReader(in))
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrMalformedCorpus), "got %v", err)
		})
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrMissingFile))
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "articles.json")
	c := &model.Corpus{Sources: []model.Source{
		{Name: "CNN", Articles: []model.Article{{URL: "https://cnn.example/a", Title: "T", Content: "C"}}},
		{Name: "BBC"},
	}}

	require.NoError(t, Save(path, c))
	got, err := Load(path)
	require.NoError(t, err)

	require.Len(t, got.Sources, 2)
	assert.Equal(t, "CNN", got.Sources[0].Name)
	assert.Equal(t, c.Sources[0].Articles, got.Sources[0].Articles)
	assert.Equal(t, "BBC", got.Sources[1].Name)
	assert.Empty(t, got.Sources[1].Articles)
}

func TestEncode_EmptyCorpus(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, &model.Corpus{}))
	assert.Equal(t, "{}\n", buf.String())
}

func TestWriteReadLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lines.txt")
	lines := []string{"cat runs fast", "", "dog sleeps"}

	require.NoError(t, WriteLines(path, lines))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "cat runs fast\n\ndog sleeps\n", string(data))

	got, err := ReadLines(path)
	require.NoError(t, err)
	assert.Equal(t, lines, got)
}

func TestReadLines_Missing(t *testing.T) {
	_, err := ReadLines(filepath.Join(t.TempDir(), "none.txt"))
	assert.True(t, errors.Is(err, errors.ErrMissingFile))
}
