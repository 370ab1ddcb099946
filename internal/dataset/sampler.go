package dataset

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Sampler draws mini-batch row indices.
type Sampler struct {
	rng *rand.Rand
}

// NewSampler returns a sampler backed by rng. A nil rng falls back to a
// fixed seed so runs stay reproducible.
func NewSampler(rng *rand.Rand) *Sampler {
	if rng == nil {
		rng = rand.New(rand.NewSource(42))
	}
	return &Sampler{rng: rng}
}

// Draw returns min(size, n) indices, each drawn independently and uniformly
// from [0, n). Indices may repeat within one draw.
func (s *Sampler) Draw(n, size int) []int {
	if n <= 0 || size <= 0 {
		return nil
	}
	if size > n {
		size = n
	}
	idx := make([]int, size)
	for i := range idx {
		idx[i] = s.rng.Intn(n)
	}
	return idx
}

// AppendBias returns a copy of data with a trailing column of ones.
func AppendBias(data mat.Matrix) *mat.Dense {
	r, c := data.Dims()
	out := mat.NewDense(r, c+1, nil)
	for i := 0; i < r; i++ {
		row := out.RawRowView(i)
		for j := 0; j < c; j++ {
			row[j] = data.At(i, j)
		}
		row[c] = 1
	}
	return out
}

// Gather builds the rows of data and labels selected by idx, appending the
// bias column to every row.
func Gather(data mat.Matrix, labels []int, idx []int) (*mat.Dense, []int) {
	_, c := data.Dims()
	inputs := mat.NewDense(len(idx), c+1, nil)
	out := make([]int, len(idx))
	for i, src := range idx {
		row := inputs.RawRowView(i)
		for j := 0; j < c; j++ {
			row[j] = data.At(src, j)
		}
		row[c] = 1
		out[i] = labels[src]
	}
	return inputs, out
}
