package dataset

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestSamplerDrawClampsAndStaysInRange(t *testing.T) {
	s := NewSampler(rand.New(rand.NewSource(1)))
	for _, tc := range []struct{ n, size, want int }{
		{10, 4, 4},
		{10, 10, 10},
		{3, 1024, 3},
		{0, 5, 0},
		{5, 0, 0},
	} {
		idx := s.Draw(tc.n, tc.size)
		assert.Len(t, idx, tc.want, "n=%d size=%d", tc.n, tc.size)
		for _, i := range idx {
			assert.True(t, i >= 0 && i < tc.n)
		}
	}
}

func TestSamplerDrawsWithReplacement(t *testing.T) {
	s := NewSampler(rand.New(rand.NewSource(2)))
	repeated := false
	for trial := 0; trial < 20 && !repeated; trial++ {
		seen := map[int]bool{}
		for _, i := range s.Draw(8, 8) {
			if seen[i] {
				repeated = true
			}
			seen[i] = true
		}
	}
	assert.True(t, repeated, "a without-replacement draw never repeats an index")
}

func TestSamplerDeterministic(t *testing.T) {
	a := NewSampler(rand.New(rand.NewSource(7)))
	b := NewSampler(rand.New(rand.NewSource(7)))
	assert.Equal(t, a.Draw(100, 16), b.Draw(100, 16))
	assert.NotNil(t, NewSampler(nil).Draw(3, 3))
}

func TestGatherAppendsBias(t *testing.T) {
	data := mat.NewDense(3, 2, []float64{
		1, 2,
		3, 4,
		5, 6,
	})
	inputs, labels := Gather(data, []int{0, 1, 2}, []int{2, 2, 0})
	want := mat.NewDense(3, 3, []float64{
		5, 6, 1,
		5, 6, 1,
		1, 2, 1,
	})
	assert.True(t, mat.Equal(want, inputs))
	assert.Equal(t, []int{2, 2, 0}, labels)

	biased := AppendBias(data)
	r, c := biased.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 3, c)
	assert.Equal(t, 1.0, biased.At(1, 2))
	assert.Equal(t, 4.0, biased.At(1, 1))
}
