// Package corpus reads and writes the raw article corpus and the normalized
// line corpus.
package corpus

import (
	"bufio"
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ppiankov/brevis/internal/errors"
	"github.com/ppiankov/brevis/internal/model"
)

// Load reads a corpus file: a JSON object mapping source name to an ordered
// list of {url, title, content} records. Sources keep the order in which they
// appear in the file.
func Load(path string) (*model.Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.NewMissingFile(path, err)
		}
		return nil, fmt.Errorf("open corpus: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Decode(path, f)
}

// Decode parses a corpus from r. name is used in error messages.
func Decode(name string, r io.Reader) (*model.Corpus, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, malformed(name, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.NewMalformedCorpus(name, 0, "corpus must be a JSON object of sources")
	}

	corpus := &model.Corpus{}
	// A repeated source name replaces the earlier articles in place.
	index := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, malformed(name, err)
		}
		sourceName, ok := tok.(string)
		if !ok {
			return nil, errors.NewMalformedCorpus(name, 0, "source name must be a string")
		}

		var articles []model.Article
		if err := dec.Decode(&articles); err != nil {
			return nil, errors.NewMalformedCorpus(name, 0,
				fmt.Sprintf("source %q: articles must be a list of records: %v", sourceName, err))
		}
		if i, seen := index[sourceName]; seen {
			corpus.Sources[i].Articles = articles
			continue
		}
		index[sourceName] = len(corpus.Sources)
		corpus.Sources = append(corpus.Sources, model.Source{Name: sourceName, Articles: articles})
	}

	if _, err := dec.Token(); err != nil {
		return nil, malformed(name, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.NewMalformedCorpus(name, 0, "trailing data after corpus object")
	}

	return corpus, nil
}

func malformed(name string, err error) error {
	return errors.NewMalformedCorpus(name, 0, fmt.Sprintf("invalid JSON: %v", err))
}

// Encode writes c as an indented JSON object, sources in order.
func Encode(w io.Writer, c *model.Corpus) error {
	var buf bytes.Buffer
	buf.WriteString("{")
	for i, src := range c.Sources {
		if i > 0 {
			buf.WriteString(",")
		}
		key, err := json.Marshal(src.Name)
		if err != nil {
			return fmt.Errorf("marshal source name: %w", err)
		}
		articles := src.Articles
		if articles == nil {
			articles = []model.Article{}
		}
		val, err := json.Marshal(articles)
		if err != nil {
			return fmt.Errorf("marshal source %q: %w", src.Name, err)
		}
		buf.Write(key)
		buf.WriteString(":")
		buf.Write(val)
	}
	buf.WriteString("}")

	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
		return fmt.Errorf("indent corpus: %w", err)
	}
	out.WriteString("\n")
	_, err := w.Write(out.Bytes())
	return err
}

// Save writes c to path, creating parent directories.
func Save(path string, c *model.Corpus) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create corpus dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create corpus file: %w", err)
	}
	if err := Encode(f, c); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// WriteLines writes one line per element, newline-terminated.
func WriteLines(path string, lines []string) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create lines dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create lines file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close lines file: %w", closeErr)
		}
	}()

	w := bufio.NewWriter(f)
	for _, line := range lines {
		if _, err := w.WriteString(line); err != nil {
			return fmt.Errorf("write line: %w", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return fmt.Errorf("write line: %w", err)
		}
	}
	return w.Flush()
}

// ReadLines reads a newline-delimited file. A trailing newline does not
// produce an extra empty line; empty lines in the middle are kept.
func ReadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.NewMissingFile(path, err)
		}
		return nil, fmt.Errorf("open lines: %w", err)
	}
	defer func() { _ = f.Close() }()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}
	return lines, nil
}
