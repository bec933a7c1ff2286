package model

// Article is one raw news article as collected by the crawler.
// Title and Content may be empty but are always present in the JSON form.
type Article struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Source groups the articles collected from one news site.
type Source struct {
	Name     string
	Articles []Article
}

// Corpus is the ordered collection of sources. Order is the order in which
// sources appear in the corpus file and is preserved on load and save.
type Corpus struct {
	Sources []Source
}

// NumArticles returns the total number of articles across all sources.
func (c *Corpus) NumArticles() int {
	n := 0
	for _, src := range c.Sources {
		n += len(src.Articles)
	}
	return n
}

// Articles returns every article in corpus order.
func (c *Corpus) Articles() []Article {
	out := make([]Article, 0, c.NumArticles())
	for _, src := range c.Sources {
		out = append(out, src.Articles...)
	}
	return out
}
