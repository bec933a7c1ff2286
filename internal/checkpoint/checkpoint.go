// Package checkpoint persists network parameters as a sequence of gonum
// binary matrices in a fixed order. The file carries no shape metadata of its
// own; the caller supplies the expected shape when loading.
package checkpoint

import (
	"bufio"
	"encoding/binary"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"

	"github.com/ppiankov/brevis/internal/errors"
	"github.com/ppiankov/brevis/internal/nn"
)

// gonum's dense header: version, form bytes, then rows and cols as
// little-endian int64 and two band widths.
const (
	headerSize = 40
	rowsOffset = 8
	colsOffset = 16
)

// peekDims reads the dimensions from the next matrix header without
// consuming it.
func peekDims(br *bufio.Reader) (rows, cols int64, err error) {
	hdr, err := br.Peek(headerSize)
	if err != nil {
		if stderrors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return 0, 0, err
	}
	rows = int64(binary.LittleEndian.Uint64(hdr[rowsOffset:]))
	cols = int64(binary.LittleEndian.Uint64(hdr[colsOffset:]))
	return rows, cols, nil
}

// Write encodes the parameters of m to w.
func Write(w io.Writer, m *nn.RNN) error {
	bw := bufio.NewWriter(w)
	for _, p := range m.Params() {
		if _, err := p.Value.MarshalBinaryTo(bw); err != nil {
			return fmt.Errorf("encode %s: %w", p.Name, err)
		}
	}
	return bw.Flush()
}

// Read decodes parameters written by Write and checks every matrix against
// shape before decoding it. On any mismatch nothing is returned.
func Read(name string, r io.Reader, shape nn.Shape) (*nn.RNN, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}

	br := bufio.NewReader(r)
	dims := shape.Dims()
	values := make([]*mat.Dense, 0, len(dims))
	for _, d := range dims {
		rows, cols, err := peekDims(br)
		if err != nil {
			return nil, errors.NewMalformedCheckpoint(name, fmt.Errorf("decode %s header: %w", d.Name, err))
		}
		if rows != int64(d.Rows) || cols != int64(d.Cols) {
			return nil, errors.NewShapeMismatch(d.Name, d.Rows, d.Cols, int(rows), int(cols))
		}

		var m mat.Dense
		if _, err := m.UnmarshalBinaryFrom(br); err != nil {
			return nil, errors.NewMalformedCheckpoint(name, fmt.Errorf("decode %s: %w", d.Name, err))
		}
		values = append(values, &m)
	}

	if _, err := br.ReadByte(); err != io.EOF {
		if err != nil {
			return nil, errors.NewMalformedCheckpoint(name, err)
		}
		return nil, errors.NewMalformedCheckpoint(name, fmt.Errorf("trailing data after %d parameters", len(dims)))
	}

	return nn.FromParams(shape, values)
}

// Save writes m to path. The data goes to a temporary file in the same
// directory which is synced and then renamed over path, so an interrupted
// save leaves any previous checkpoint intact.
func Save(path string, m *nn.RNN) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp checkpoint: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err := Write(tmp, m); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close checkpoint: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename checkpoint: %w", err)
	}
	return nil
}

// Load reads the checkpoint at path for a network of the given shape.
func Load(path string, shape nn.Shape) (*nn.RNN, error) {
	f, err := os.Open(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.NewMissingFile(path, err)
		}
		return nil, fmt.Errorf("open checkpoint: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Read(path, f, shape)
}
