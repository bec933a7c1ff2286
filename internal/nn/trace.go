package nn

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/ppiankov/brevis/internal/errors"
)

// Trace holds the activations of one forward pass over a batch. Logits are
// produced per position on request so that a full batch×steps×vocab tensor is
// never materialized. Output gradients are added per position, then Backward
// propagates them through time into the parameter gradients.
type Trace struct {
	m      *RNN
	inputs [][]int
	batch  int
	steps  int

	xs []*mat.Dense // embedded inputs, one batch×embed matrix per step
	hs []*mat.Dense // hidden states; hs[0] is the zero state, hs[t+1] follows step t
	dh []*mat.Dense // output gradient with respect to hs[t+1]
}

// Forward runs the network over a rectangular batch of token indices.
func (m *RNN) Forward(inputs [][]int) (*Trace, error) {
	if len(inputs) == 0 {
		return nil, errors.NewInvalidInput("batch is empty")
	}
	steps := len(inputs[0])
	if steps == 0 {
		return nil, errors.NewInvalidInput("batch sequences are empty")
	}
	for b, row := range inputs {
		if len(row) != steps {
			return nil, errors.NewInvalidInput(fmt.Sprintf("row %d has %d steps, want %d", b, len(row), steps))
		}
		for _, tok := range row {
			if tok < 0 || tok >= m.shape.VocabSize {
				return nil, errors.NewInvalidInput(fmt.Sprintf("token index %d out of range [0, %d)", tok, m.shape.VocabSize))
			}
		}
	}

	batch := len(inputs)
	tr := &Trace{
		m:      m,
		inputs: inputs,
		batch:  batch,
		steps:  steps,
		xs:     make([]*mat.Dense, steps),
		hs:     make([]*mat.Dense, steps+1),
		dh:     make([]*mat.Dense, steps),
	}
	tr.hs[0] = mat.NewDense(batch, m.shape.HiddenSize, nil)

	for t := 0; t < steps; t++ {
		x := mat.NewDense(batch, m.shape.EmbedSize, nil)
		for b := 0; b < batch; b++ {
			x.SetRow(b, m.emb.Value.RawRowView(inputs[b][t]))
		}
		h := mat.NewDense(batch, m.shape.HiddenSize, nil)
		m.hidden(h, x, tr.hs[t])
		tr.xs[t] = x
		tr.hs[t+1] = h
	}
	return tr, nil
}

// Steps returns the number of positions in the batch.
func (tr *Trace) Steps() int {
	return tr.steps
}

// Logits returns a fresh batch×vocab matrix of scores for position t.
func (tr *Trace) Logits(t int) *mat.Dense {
	out := mat.NewDense(tr.batch, tr.m.shape.VocabSize, nil)
	tr.m.project(out, tr.hs[t+1])
	return out
}

// AddOutputGrad accumulates the loss gradient with respect to the logits of
// position t into the output projection gradients.
func (tr *Trace) AddOutputGrad(t int, grad *mat.Dense) {
	h := tr.hs[t+1]

	var dw mat.Dense
	dw.Mul(h.T(), grad)
	tr.m.why.Grad.Add(tr.m.why.Grad, &dw)

	db := tr.m.by.Grad.RawRowView(0)
	for b := 0; b < tr.batch; b++ {
		for j, v := range grad.RawRowView(b) {
			db[j] += v
		}
	}

	dh := mat.NewDense(tr.batch, tr.m.shape.HiddenSize, nil)
	dh.Mul(grad, tr.m.why.Value.T())
	if tr.dh[t] == nil {
		tr.dh[t] = dh
		return
	}
	tr.dh[t].Add(tr.dh[t], dh)
}

// Backward propagates the accumulated output gradients through time into the
// recurrent, input, bias and embedding gradients.
func (tr *Trace) Backward() {
	m := tr.m
	carry := mat.NewDense(tr.batch, m.shape.HiddenSize, nil)

	for t := tr.steps - 1; t >= 0; t-- {
		dz := mat.NewDense(tr.batch, m.shape.HiddenSize, nil)
		dz.Copy(carry)
		if tr.dh[t] != nil {
			dz.Add(dz, tr.dh[t])
		}
		h := tr.hs[t+1]
		dz.Apply(func(i, j int, v float64) float64 {
			hv := h.At(i, j)
			return v * (1 - hv*hv)
		}, dz)

		var dw mat.Dense
		dw.Mul(tr.xs[t].T(), dz)
		m.wxh.Grad.Add(m.wxh.Grad, &dw)

		dw.Reset()
		dw.Mul(tr.hs[t].T(), dz)
		m.whh.Grad.Add(m.whh.Grad, &dw)

		db := m.bh.Grad.RawRowView(0)
		for b := 0; b < tr.batch; b++ {
			for j, v := range dz.RawRowView(b) {
				db[j] += v
			}
		}

		var dx mat.Dense
		dx.Mul(dz, m.wxh.Value.T())
		for b := 0; b < tr.batch; b++ {
			row := m.emb.Grad.RawRowView(tr.inputs[b][t])
			for j, v := range dx.RawRowView(b) {
				row[j] += v
			}
		}

		carry.Mul(dz, m.whh.Value.T())
	}
}
