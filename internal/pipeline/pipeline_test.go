package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/brevis/internal/checkpoint"
	"github.com/ppiankov/brevis/internal/corpus"
	"github.com/ppiankov/brevis/internal/errors"
	"github.com/ppiankov/brevis/internal/model"
	"github.com/ppiankov/brevis/internal/nn"
)

func testConfig(t *testing.T, sourceURL string) *model.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := model.DefaultConfig()
	cfg.Paths = model.PathsConfig{
		Corpus:     filepath.Join(dir, "articles.json"),
		Lines:      filepath.Join(dir, "lines.txt"),
		Vocabulary: filepath.Join(dir, "vocabulary.txt"),
		Checkpoint: filepath.Join(dir, "model.bin"),
	}
	cfg.HTTP.UserAgent = "test-agent"
	cfg.Cache.Enabled = false
	cfg.Crawl.Sources = []model.SourceConfig{{Name: "Local", URL: sourceURL}}
	cfg.Crawl.RespectRobots = false
	cfg.Crawl.RequestsPerSecond = 0
	cfg.Dataset.MaxLength = 8
	cfg.Batch.Size = 2
	cfg.Model.EmbedSize = 4
	cfg.Model.HiddenSize = 4
	cfg.Train.Epochs = 2
	cfg.Train.LearningRate = 0.01
	return cfg
}

func TestPipeline_EndToEnd(t *testing.T) {
	noSleep(t)
	server := newNewsServer(t, "")
	cfg := testConfig(t, server.URL+"/")
	p := New(cfg, nil)
	ctx := context.Background()

	c, err := p.Crawl(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, c.NumArticles())

	saved, err := corpus.Load(cfg.Paths.Corpus)
	require.NoError(t, err)
	assert.Equal(t, c.Articles(), saved.Articles())

	lines, err := p.Preprocess()
	require.NoError(t, err)
	assert.Equal(t, []string{"title a story a", "title a story a", "title a story a"}, lines)

	v, err := p.BuildVocabulary()
	require.NoError(t, err)
	assert.Equal(t, 3, v.Len())
	assert.Equal(t, 3, v.PadIndex())

	history, err := p.Train(ctx)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	net, err := checkpoint.Load(cfg.Paths.Checkpoint, nn.Shape{VocabSize: 4, EmbedSize: 4, HiddenSize: 4})
	require.NoError(t, err)
	assert.Equal(t, 4, net.Shape().VocabSize)
}

func TestPipeline_CrawlWithExtraSource(t *testing.T) {
	noSleep(t)
	server := newNewsServer(t, "")
	cfg := testConfig(t, server.URL+"/nowhere")
	p := New(cfg, nil)

	extra := p.Crawler().CrawlURLs(context.Background(), "Manual", []string{server.URL + "/a2"})
	c, err := p.Crawl(context.Background(), &extra)
	require.NoError(t, err)
	require.Len(t, c.Sources, 2)
	assert.Empty(t, c.Sources[0].Articles)
	assert.Equal(t, "Manual", c.Sources[1].Name)
	assert.Equal(t, 1, c.NumArticles())
}

func TestPipeline_PreprocessStopwords(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1/")
	cfg.Normalize.RemoveStopwords = true
	require.NoError(t, corpus.Save(cfg.Paths.Corpus, &model.Corpus{Sources: []model.Source{{
		Name:     "S",
		Articles: []model.Article{{URL: "u", Title: "The Vote", Content: "It is over in 2024!"}},
	}}}))

	lines, err := New(cfg, nil).Preprocess()
	require.NoError(t, err)
	assert.Equal(t, []string{"vote"}, lines)

	data, err := os.ReadFile(cfg.Paths.Lines)
	require.NoError(t, err)
	assert.Equal(t, "vote\n", string(data))
}

func TestPipeline_MissingInputs(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1/")
	p := New(cfg, nil)

	_, err := p.Preprocess()
	assert.True(t, errors.Is(err, errors.ErrMissingFile), "preprocess: %v", err)

	_, err = p.BuildVocabulary()
	assert.True(t, errors.Is(err, errors.ErrMissingFile), "vocab: %v", err)

	_, err = p.Train(context.Background())
	assert.True(t, errors.Is(err, errors.ErrMissingFile), "train: %v", err)
}

func TestPipeline_TrainEmptyCorpus(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1/")
	require.NoError(t, corpus.WriteLines(cfg.Paths.Lines, []string{"alpha beta"}))
	p := New(cfg, nil)
	_, err := p.BuildVocabulary()
	require.NoError(t, err)

	require.NoError(t, corpus.WriteLines(cfg.Paths.Lines, nil))
	_, err = p.Train(context.Background())
	assert.True(t, errors.Is(err, errors.ErrCorpusEmpty), "train: %v", err)
	_, statErr := os.Stat(cfg.Paths.Checkpoint)
	assert.True(t, os.IsNotExist(statErr))
}
