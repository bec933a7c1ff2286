package dataset

import (
	"fmt"
	"math/rand"

	"github.com/ppiankov/brevis/internal/errors"
)

// Batch is a rectangular stack of sequences: Size() rows of MaxLength columns.
type Batch struct {
	Inputs [][]int
}

// Size returns the number of sequences in the batch.
func (b Batch) Size() int {
	return len(b.Inputs)
}

// LoaderOptions configures batch assembly.
type LoaderOptions struct {
	BatchSize int
	Shuffle   bool
	// DropLast discards a final batch smaller than BatchSize. The same setting
	// must be used for training and validation so that mean losses compare.
	DropLast bool
	Seed     int64
}

// Loader groups dataset sequences into batches.
type Loader struct {
	ds   *Dataset
	opts LoaderOptions
	rng  *rand.Rand
}

// NewLoader creates a Loader over ds.
func NewLoader(ds *Dataset, opts LoaderOptions) (*Loader, error) {
	if opts.BatchSize < 1 {
		return nil, errors.NewInvalidInput(fmt.Sprintf("batch size must be at least 1, got %d", opts.BatchSize))
	}
	return &Loader{
		ds:   ds,
		opts: opts,
		rng:  rand.New(rand.NewSource(opts.Seed)),
	}, nil
}

// NumBatches returns the number of batches one epoch yields.
func (l *Loader) NumBatches() int {
	n := l.ds.Len() / l.opts.BatchSize
	if !l.opts.DropLast && l.ds.Len()%l.opts.BatchSize != 0 {
		n++
	}
	return n
}

// Epoch returns the batches of one pass over the dataset. With Shuffle set
// every call draws a new order.
func (l *Loader) Epoch() []Batch {
	order := make([]int, l.ds.Len())
	for i := range order {
		order[i] = i
	}
	if l.opts.Shuffle {
		l.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	batches := make([]Batch, 0, l.NumBatches())
	for start := 0; start < len(order); start += l.opts.BatchSize {
		end := start + l.opts.BatchSize
		if end > len(order) {
			if l.opts.DropLast {
				break
			}
			end = len(order)
		}
		inputs := make([][]int, 0, end-start)
		for _, idx := range order[start:end] {
			inputs = append(inputs, l.ds.At(idx))
		}
		batches = append(batches, Batch{Inputs: inputs})
	}
	return batches
}
