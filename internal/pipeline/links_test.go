package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractLinks(t *testing.T) {
	page := `<html><body>
<a href="/news/one">One</a>
<a href="https://other.example.org/two#comments">Two</a>
<a href="/news/one">One again</a>
<a href="#top">Top</a>
<a href="javascript:void(0)">JS</a>
<a href="mailto:desk@example.com">Mail</a>
<a href="tel:+100">Call</a>
<a href="ftp://example.com/file">FTP</a>
<a name="anchor">No href</a>
<a class="x" href="three">Relative</a>
</body></html>`

	links, err := ExtractLinks("https://example.com/news/", strings.NewReader(page))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://example.com/news/one",
		"https://other.example.org/two",
		"https://example.com/news/three",
	}, links)
}

func TestExtractLinks_NoLinks(t *testing.T) {
	links, err := ExtractLinks("https://example.com/", strings.NewReader("<p>nothing</p>"))
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestExtractLinks_BadBase(t *testing.T) {
	_, err := ExtractLinks("://bad", strings.NewReader(""))
	assert.Error(t, err)
}
