// Package nn implements the trainable sequence function: a single-layer Elman
// recurrent network with token embeddings and a linear vocabulary projection,
// stored as gonum dense matrices.
package nn

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/ppiankov/brevis/internal/errors"
)

// Shape is the (vocab_size, embed_size, hidden_size) triple a set of
// parameters is keyed by.
type Shape struct {
	VocabSize  int
	EmbedSize  int
	HiddenSize int
}

func (s Shape) String() string {
	return fmt.Sprintf("(vocab=%d, embed=%d, hidden=%d)", s.VocabSize, s.EmbedSize, s.HiddenSize)
}

// Validate reports whether every dimension is positive.
func (s Shape) Validate() error {
	if s.VocabSize < 1 || s.EmbedSize < 1 || s.HiddenSize < 1 {
		return errors.NewInvalidInput(fmt.Sprintf("invalid model shape %s", s))
	}
	return nil
}

// Parameter names in checkpoint order.
const (
	ParamEmbedding = "embedding"
	ParamInput     = "w_xh"
	ParamRecurrent = "w_hh"
	ParamHidBias   = "b_h"
	ParamOutput    = "w_hy"
	ParamOutBias   = "b_y"
)

// Dims returns the expected rows and columns of every parameter, in
// checkpoint order.
func (s Shape) Dims() []ParamDims {
	return []ParamDims{
		{ParamEmbedding, s.VocabSize, s.EmbedSize},
		{ParamInput, s.EmbedSize, s.HiddenSize},
		{ParamRecurrent, s.HiddenSize, s.HiddenSize},
		{ParamHidBias, 1, s.HiddenSize},
		{ParamOutput, s.HiddenSize, s.VocabSize},
		{ParamOutBias, 1, s.VocabSize},
	}
}

// ParamDims names one parameter matrix and its size.
type ParamDims struct {
	Name string
	Rows int
	Cols int
}

// Param is a trainable matrix and its accumulated gradient.
type Param struct {
	Name  string
	Value *mat.Dense
	Grad  *mat.Dense
}

func newParam(name string, value *mat.Dense) *Param {
	r, c := value.Dims()
	return &Param{Name: name, Value: value, Grad: mat.NewDense(r, c, nil)}
}

// ZeroGrad clears the accumulated gradient.
func (p *Param) ZeroGrad() {
	p.Grad.Zero()
}

// RNN computes h_t = tanh(x_t·Wxh + h_{t-1}·Whh + b_h) over embedded tokens and
// projects every hidden state to vocabulary logits with h_t·Why + b_y.
type RNN struct {
	shape Shape

	emb *Param
	wxh *Param
	whh *Param
	bh  *Param
	why *Param
	by  *Param
}

// NewRNN creates a network with small random weights drawn from rng and zero
// biases.
func NewRNN(shape Shape, rng *rand.Rand) (*RNN, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}

	values := make([]*mat.Dense, 0, 6)
	for _, d := range shape.Dims() {
		m := mat.NewDense(d.Rows, d.Cols, nil)
		if d.Rows > 1 {
			scale := 1 / math.Sqrt(float64(d.Rows))
			if d.Name == ParamEmbedding {
				scale = 0.1
			}
			raw := m.RawMatrix().Data
			for i := range raw {
				raw[i] = (rng.Float64()*2 - 1) * scale
			}
		}
		values = append(values, m)
	}
	return FromParams(shape, values)
}

// FromParams assembles a network from matrices in checkpoint order. Every
// matrix must match the size shape requires.
func FromParams(shape Shape, values []*mat.Dense) (*RNN, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	dims := shape.Dims()
	if len(values) != len(dims) {
		return nil, errors.NewInvalidInput(fmt.Sprintf("expected %d parameters, got %d", len(dims), len(values)))
	}
	params := make([]*Param, len(dims))
	for i, d := range dims {
		r, c := values[i].Dims()
		if r != d.Rows || c != d.Cols {
			return nil, errors.NewShapeMismatch(d.Name, d.Rows, d.Cols, r, c)
		}
		params[i] = newParam(d.Name, values[i])
	}
	return &RNN{
		shape: shape,
		emb:   params[0],
		wxh:   params[1],
		whh:   params[2],
		bh:    params[3],
		why:   params[4],
		by:    params[5],
	}, nil
}

// Shape returns the model's shape triple.
func (m *RNN) Shape() Shape {
	return m.shape
}

// Params returns the trainable parameters in checkpoint order.
func (m *RNN) Params() []*Param {
	return []*Param{m.emb, m.wxh, m.whh, m.bh, m.why, m.by}
}

// ZeroGrad clears the gradients of every parameter.
func (m *RNN) ZeroGrad() {
	for _, p := range m.Params() {
		p.ZeroGrad()
	}
}

// Greedy feeds prompt through the network and then appends up to n tokens,
// each the highest-scoring index other than exclude. Pass a negative exclude
// to allow every index.
func (m *RNN) Greedy(prompt []int, n int, exclude int) ([]int, error) {
	if len(prompt) == 0 {
		return nil, errors.NewInvalidInput("prompt is empty")
	}
	for _, tok := range prompt {
		if tok < 0 || tok >= m.shape.VocabSize {
			return nil, errors.NewInvalidInput(fmt.Sprintf("token index %d out of range [0, %d)", tok, m.shape.VocabSize))
		}
	}

	h := mat.NewDense(1, m.shape.HiddenSize, nil)
	for _, tok := range prompt {
		h = m.step(h, tok)
	}

	out := make([]int, 0, n)
	logits := mat.NewDense(1, m.shape.VocabSize, nil)
	for len(out) < n {
		m.project(logits, h)
		next := argmax(logits.RawRowView(0), exclude)
		if next < 0 {
			break
		}
		out = append(out, next)
		h = m.step(h, next)
	}
	return out, nil
}

// step advances a single-row hidden state by one token.
func (m *RNN) step(h *mat.Dense, tok int) *mat.Dense {
	x := mat.NewDense(1, m.shape.EmbedSize, nil)
	x.SetRow(0, m.emb.Value.RawRowView(tok))
	next := mat.NewDense(1, m.shape.HiddenSize, nil)
	m.hidden(next, x, h)
	return next
}

// hidden writes tanh(x·Wxh + prev·Whh + b_h) into dst.
func (m *RNN) hidden(dst, x, prev *mat.Dense) {
	var rec mat.Dense
	dst.Mul(x, m.wxh.Value)
	rec.Mul(prev, m.whh.Value)
	dst.Add(dst, &rec)
	addRowVector(dst, m.bh.Value.RawRowView(0))
	dst.Apply(func(_, _ int, v float64) float64 { return math.Tanh(v) }, dst)
}

// project writes h·Why + b_y into dst.
func (m *RNN) project(dst, h *mat.Dense) {
	dst.Mul(h, m.why.Value)
	addRowVector(dst, m.by.Value.RawRowView(0))
}

func addRowVector(dst *mat.Dense, v []float64) {
	r, _ := dst.Dims()
	for i := 0; i < r; i++ {
		row := dst.RawRowView(i)
		for j := range row {
			row[j] += v[j]
		}
	}
}

func argmax(row []float64, exclude int) int {
	best := -1
	for j, v := range row {
		if j == exclude {
			continue
		}
		if best < 0 || v > row[best] {
			best = j
		}
	}
	return best
}
