package metrics

import "github.com/pkg/errors"

// Accuracy returns the fraction of predictions equal to the truth.
func Accuracy(pred, truth []int) (float64, error) {
	if len(pred) != len(truth) {
		return 0, errors.Errorf("accuracy: %d predictions for %d labels", len(pred), len(truth))
	}
	if len(pred) == 0 {
		return 0, nil
	}
	correct := 0
	for i := range pred {
		if pred[i] == truth[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(pred)), nil
}

// ConfusionMatrix counts (truth, prediction) pairs. Row is the true class,
// column the predicted one. Values outside [0, classes) are rejected.
func ConfusionMatrix(pred, truth []int, classes int) ([][]int, error) {
	if len(pred) != len(truth) {
		return nil, errors.Errorf("confusion matrix: %d predictions for %d labels", len(pred), len(truth))
	}
	out := make([][]int, classes)
	for i := range out {
		out[i] = make([]int, classes)
	}
	for i := range pred {
		p, y := pred[i], truth[i]
		if p < 0 || p >= classes || y < 0 || y >= classes {
			return nil, errors.Errorf("confusion matrix: pair (%d, %d) at %d outside [0, %d)", y, p, i, classes)
		}
		out[y][p]++
	}
	return out, nil
}
