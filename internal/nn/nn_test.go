package nn

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/ppiankov/brevis/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tinyShape = Shape{VocabSize: 5, EmbedSize: 3, HiddenSize: 4}

func tinyModel(t *testing.T) *RNN {
	t.Helper()
	m, err := NewRNN(tinyShape, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	return m
}

// linearLoss is sum over positions of <coef[t], logits[t]>, which gives an
// exact and easy output gradient for checking backpropagation.
func linearLoss(t *testing.T, m *RNN, inputs [][]int, coef []*mat.Dense, backward bool) float64 {
	t.Helper()
	tr, err := m.Forward(inputs)
	require.NoError(t, err)

	var loss float64
	for s := 0; s < tr.Steps(); s++ {
		var prod mat.Dense
		prod.MulElem(tr.Logits(s), coef[s])
		loss += mat.Sum(&prod)
		if backward {
			tr.AddOutputGrad(s, coef[s])
		}
	}
	if backward {
		tr.Backward()
	}
	return loss
}

func TestRNN_GradientCheck(t *testing.T) {
	m := tinyModel(t)
	inputs := [][]int{{0, 1, 4}, {2, 2, 3}}
	rng := rand.New(rand.NewSource(7))

	coef := make([]*mat.Dense, len(inputs[0]))
	for s := range coef {
		coef[s] = mat.NewDense(len(inputs), tinyShape.VocabSize, nil)
		raw := coef[s].RawMatrix().Data
		for i := range raw {
			raw[i] = rng.NormFloat64()
		}
	}

	m.ZeroGrad()
	linearLoss(t, m, inputs, coef, true)

	const eps = 1e-5
	for _, p := range m.Params() {
		r, c := p.Value.Dims()
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				orig := p.Value.At(i, j)
				p.Value.Set(i, j, orig+eps)
				plus := linearLoss(t, m, inputs, coef, false)
				p.Value.Set(i, j, orig-eps)
				minus := linearLoss(t, m, inputs, coef, false)
				p.Value.Set(i, j, orig)

				numeric := (plus - minus) / (2 * eps)
				assert.InDelta(t, numeric, p.Grad.At(i, j), 1e-6, "%s[%d,%d]", p.Name, i, j)
			}
		}
	}
}

func TestRNN_Forward_Validates(t *testing.T) {
	m := tinyModel(t)

	_, err := m.Forward(nil)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))

	_, err = m.Forward([][]int{{0, 1}, {0}})
	assert.True(t, errors.Is(err, errors.ErrInvalidInput), "ragged batch")

	_, err = m.Forward([][]int{{0, 5}})
	assert.True(t, errors.Is(err, errors.ErrInvalidInput), "index out of range")
}

func TestRNN_LogitsShape(t *testing.T) {
	m := tinyModel(t)
	tr, err := m.Forward([][]int{{0, 1, 2, 3}, {4, 4, 4, 4}})
	require.NoError(t, err)

	assert.Equal(t, 4, tr.Steps())
	r, c := tr.Logits(3).Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, tinyShape.VocabSize, c)
}

func TestFromParams_ShapeMismatch(t *testing.T) {
	m := tinyModel(t)
	values := make([]*mat.Dense, 0, 6)
	for _, p := range m.Params() {
		values = append(values, p.Value)
	}

	_, err := FromParams(tinyShape, values)
	require.NoError(t, err)

	bigger := tinyShape
	bigger.HiddenSize = 8
	_, err = FromParams(bigger, values)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrShapeMismatch))

	_, err = FromParams(tinyShape, values[:5])
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestNewRNN_InvalidShape(t *testing.T) {
	_, err := NewRNN(Shape{VocabSize: 0, EmbedSize: 1, HiddenSize: 1}, rand.New(rand.NewSource(1)))
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestRNN_GreedyExcludesPad(t *testing.T) {
	m := tinyModel(t)
	pad := tinyShape.VocabSize - 1

	// Make the pad index the best-scoring output everywhere.
	m.by.Value.Set(0, pad, 100)

	out, err := m.Greedy([]int{0, 1}, 6, pad)
	require.NoError(t, err)
	assert.Len(t, out, 6)
	for _, tok := range out {
		assert.NotEqual(t, pad, tok)
	}

	withPad, err := m.Greedy([]int{0, 1}, 3, -1)
	require.NoError(t, err)
	assert.Equal(t, []int{pad, pad, pad}, withPad)

	_, err = m.Greedy(nil, 3, pad)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestAdam_MinimizesQuadratic(t *testing.T) {
	p := newParam("w", mat.NewDense(1, 3, []float64{2, -3, 0.5}))
	opt := NewAdam([]*Param{p}, DefaultAdamConfig(0.1))

	for i := 0; i < 1000; i++ {
		opt.ZeroGrad()
		// d/dw of 0.5·|w|² is w.
		p.Grad.Copy(p.Value)
		opt.Step()
	}
	for _, v := range p.Value.RawRowView(0) {
		assert.InDelta(t, 0, v, 0.1)
	}
}

func TestAdam_ClipNorm(t *testing.T) {
	p := newParam("w", mat.NewDense(1, 2, nil))
	cfg := DefaultAdamConfig(0.01)
	cfg.ClipNorm = 1
	opt := NewAdam([]*Param{p}, cfg)

	p.Grad.SetRow(0, []float64{3, 4})
	norm := opt.Step()
	assert.InDelta(t, 5, norm, 1e-12)
	assert.InDelta(t, 1, GradNorm([]*Param{p}), 1e-12)

	p.Grad.SetRow(0, []float64{0.3, 0.4})
	opt.Step()
	assert.InDelta(t, 0.5, GradNorm([]*Param{p}), 1e-12, "small gradients are untouched")
}

func TestAdam_ZeroGradientLeavesParams(t *testing.T) {
	p := newParam("w", mat.NewDense(1, 2, []float64{1, 2}))
	opt := NewAdam([]*Param{p}, DefaultAdamConfig(0.1))
	opt.Step()
	assert.Equal(t, []float64{1, 2}, p.Value.RawRowView(0))
	assert.False(t, math.IsNaN(p.Value.At(0, 0)))
}
