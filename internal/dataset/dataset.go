package dataset

import (
	"math/rand"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Dataset pairs an N×D feature matrix with N class labels.
type Dataset struct {
	Features *mat.Dense
	Labels   []int
}

// Len returns the number of samples.
func (d *Dataset) Len() int {
	if d == nil || d.Features == nil {
		return 0
	}
	r, _ := d.Features.Dims()
	return r
}

// Dims returns the feature dimensionality D.
func (d *Dataset) Dims() int {
	if d == nil || d.Features == nil {
		return 0
	}
	_, c := d.Features.Dims()
	return c
}

// Validate checks that features and labels line up.
func (d *Dataset) Validate() error {
	if d == nil || d.Features == nil {
		return errors.New("dataset: no features")
	}
	if d.Len() != len(d.Labels) {
		return errors.Errorf("dataset: %d rows but %d labels", d.Len(), len(d.Labels))
	}
	for i, l := range d.Labels {
		if l < 0 {
			return errors.Errorf("dataset: negative label %d at row %d", l, i)
		}
	}
	return nil
}

// Classes returns the number of distinct label values.
func (d *Dataset) Classes() int {
	return CountClasses(d.Labels)
}

// CountClasses returns the number of distinct values in labels.
func CountClasses(labels []int) int {
	seen := make(map[int]struct{}, 8)
	for _, l := range labels {
		seen[l] = struct{}{}
	}
	return len(seen)
}

// Split partitions d into a training and a test set. The split is
// stratified by label: about testFraction of each class goes to the test
// set, int(N*testFraction) rows in total, and every class keeps at least one
// training row. rng shuffles the rows; a nil rng takes the first rows of
// each class in input order.
func Split(d *Dataset, testFraction float64, rng *rand.Rand) (*Dataset, *Dataset, error) {
	if err := d.Validate(); err != nil {
		return nil, nil, err
	}
	if testFraction < 0 || testFraction >= 1 {
		return nil, nil, errors.Errorf("dataset: test fraction must be in [0, 1) (got %g)", testFraction)
	}

	byLabel := make(map[int][]int)
	for i, l := range d.Labels {
		byLabel[l] = append(byLabel[l], i)
	}
	labels := make([]int, 0, len(byLabel))
	for l := range byLabel {
		labels = append(labels, l)
	}
	sort.Ints(labels)

	quota := testQuota(labels, byLabel, d.Len(), testFraction)
	inTest := make([]bool, d.Len())
	for _, l := range labels {
		rows := byLabel[l]
		shuffle(rng, rows)
		for _, row := range rows[:quota[l]] {
			inTest[row] = true
		}
	}

	var trainIdx, testIdx []int
	for row, test := range inTest {
		if test {
			testIdx = append(testIdx, row)
		} else {
			trainIdx = append(trainIdx, row)
		}
	}
	shuffle(rng, trainIdx)
	shuffle(rng, testIdx)
	return subset(d, trainIdx), subset(d, testIdx), nil
}

// testQuota spreads int(n*fraction) test rows over the classes in
// proportion to their size. Leftover rows go to the classes with the
// largest fractional share, never taking a class's last row.
func testQuota(labels []int, byLabel map[int][]int, n int, fraction float64) map[int]int {
	quota := make(map[int]int, len(labels))
	share := make(map[int]float64, len(labels))
	left := int(float64(n) * fraction)
	for _, l := range labels {
		exact := float64(len(byLabel[l])) * fraction
		quota[l] = int(exact)
		share[l] = exact - float64(quota[l])
		left -= quota[l]
	}

	order := append([]int(nil), labels...)
	sort.SliceStable(order, func(i, j int) bool {
		return share[order[i]] > share[order[j]]
	})
	for _, l := range order {
		if left <= 0 {
			break
		}
		if quota[l] < len(byLabel[l])-1 {
			quota[l]++
			left--
		}
	}
	return quota
}

func shuffle(rng *rand.Rand, idx []int) {
	if rng == nil {
		return
	}
	rng.Shuffle(len(idx), func(i, j int) {
		idx[i], idx[j] = idx[j], idx[i]
	})
}

func subset(d *Dataset, idx []int) *Dataset {
	out := &Dataset{Labels: make([]int, len(idx))}
	if len(idx) == 0 {
		return out
	}
	out.Features = mat.NewDense(len(idx), d.Dims(), nil)
	for i, src := range idx {
		out.Features.SetRow(i, d.Features.RawRowView(src))
		out.Labels[i] = d.Labels[src]
	}
	return out
}
