package train

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// MaskedCrossEntropy scores one position of a batch. logits is batch×vocab and
// targets holds one index per row. Rows whose target equals ignore contribute
// nothing. It returns the summed loss over the remaining rows, how many rows
// counted, and the gradient of that sum with respect to logits scaled by
// scale (zero rows for ignored targets).
func MaskedCrossEntropy(logits *mat.Dense, targets []int, ignore int, scale float64) (sum float64, count int, grad *mat.Dense) {
	rows, cols := logits.Dims()
	grad = mat.NewDense(rows, cols, nil)

	for b := 0; b < rows; b++ {
		target := targets[b]
		if target == ignore {
			continue
		}
		row := logits.RawRowView(b)

		maxLogit := row[0]
		for _, v := range row[1:] {
			if v > maxLogit {
				maxLogit = v
			}
		}
		var sumExp float64
		for _, v := range row {
			sumExp += math.Exp(v - maxLogit)
		}
		logSumExp := maxLogit + math.Log(sumExp)

		sum += logSumExp - row[target]
		count++

		g := grad.RawRowView(b)
		for j, v := range row {
			g[j] = math.Exp(v-logSumExp) * scale
		}
		g[target] -= scale
	}
	return sum, count, grad
}

// Targets builds the per-position targets for inputs under mode. TargetNext
// shifts each row left by one and pads the final position; TargetIdentity
// returns the inputs themselves.
func Targets(inputs [][]int, mode string, pad int) [][]int {
	out := make([][]int, len(inputs))
	for b, row := range inputs {
		t := make([]int, len(row))
		switch {
		case len(row) == 0:
		case mode == TargetIdentity:
			copy(t, row)
		default:
			copy(t, row[1:])
			t[len(t)-1] = pad
		}
		out[b] = t
	}
	return out
}

// countTargets returns how many target positions are not ignore.
func countTargets(targets [][]int, ignore int) int {
	n := 0
	for _, row := range targets {
		for _, v := range row {
			if v != ignore {
				n++
			}
		}
	}
	return n
}

func column(targets [][]int, t int) []int {
	out := make([]int, len(targets))
	for b, row := range targets {
		out[b] = row[t]
	}
	return out
}
