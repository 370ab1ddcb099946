package dataset

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// BlobSpacing is the per-axis distance between consecutive blob centers.
const BlobSpacing = 10.0

// Blobs generates perClass Gaussian points around the center
// (k*BlobSpacing, ..., k*BlobSpacing) for every class k in [0, classes).
// Rows are grouped by class.
func Blobs(rng *rand.Rand, classes, perClass, dims int, spread float64) *Dataset {
	if classes <= 0 || perClass <= 0 || dims <= 0 {
		return &Dataset{}
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(42))
	}
	n := classes * perClass
	features := mat.NewDense(n, dims, nil)
	labels := make([]int, n)
	for k := 0; k < classes; k++ {
		center := float64(k) * BlobSpacing
		for p := 0; p < perClass; p++ {
			i := k*perClass + p
			row := features.RawRowView(i)
			for j := range row {
				row[j] = center + rng.NormFloat64()*spread
			}
			labels[i] = k
		}
	}
	return &Dataset{Features: features, Labels: labels}
}
