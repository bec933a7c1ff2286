package vocab

import (
	"bufio"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ppiankov/brevis/internal/errors"
)

// Write encodes v as one "token\tfrequency" line per entry, in index order.
func Write(w io.Writer, v *Vocabulary) error {
	bw := bufio.NewWriter(w)
	for _, e := range v.entries {
		if _, err := fmt.Fprintf(bw, "%s\t%d\n", e.Token, e.Frequency); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Save writes v to path, creating parent directories.
func Save(path string, v *Vocabulary) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create vocabulary dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create vocabulary file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close vocabulary file: %w", closeErr)
		}
	}()
	return Write(f, v)
}

// Read decodes a vocabulary written by Write. Line n becomes index n.
func Read(name string, r io.Reader) (*Vocabulary, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		token, freqText, ok := strings.Cut(line, "\t")
		if !ok {
			return nil, errors.NewMalformedCorpus(name, lineNo, "expected token<TAB>frequency")
		}
		if token == "" {
			return nil, errors.NewMalformedCorpus(name, lineNo, "empty token")
		}
		freq, err := strconv.Atoi(freqText)
		if err != nil || freq < 0 {
			return nil, errors.NewMalformedCorpus(name, lineNo, fmt.Sprintf("invalid frequency %q", freqText))
		}
		entries = append(entries, Entry{Token: token, Frequency: freq})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", name, err)
	}

	if len(entries) == 0 {
		return nil, errors.NewCorpusEmpty("vocabulary")
	}

	v, err := New(entries)
	if err != nil {
		return nil, errors.NewMalformedCorpus(name, 0, err.Error())
	}
	return v, nil
}

// Load reads a vocabulary file from path.
func Load(path string) (*Vocabulary, error) {
	f, err := os.Open(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.NewMissingFile(path, err)
		}
		return nil, fmt.Errorf("open vocabulary: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Read(path, f)
}
