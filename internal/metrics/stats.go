package metrics

import "time"

// Window accumulates step timing and loss between log lines.
type Window struct {
	samples  int
	compute  time.Duration
	steps    int
	lastLoss float64
}

// Record adds a new measurement to the window.
func (w *Window) Record(batchSize int, computeTime time.Duration, loss float64) {
	w.samples += batchSize
	w.compute += computeTime
	w.steps++
	w.lastLoss = loss
}

// Snapshot returns aggregated metrics and resets the window.
func (w *Window) Snapshot() Snapshot {
	snap := Snapshot{Steps: w.steps}
	if w.compute > 0 {
		snap.SamplesPerSec = float64(w.samples) / w.compute.Seconds()
	}
	if w.steps > 0 {
		snap.AvgComputeMS = (w.compute.Seconds() * 1000) / float64(w.steps)
	}
	snap.LastLoss = w.lastLoss

	w.samples = 0
	w.compute = 0
	w.steps = 0
	return snap
}

// Snapshot represents loggable metrics.
type Snapshot struct {
	Steps         int
	SamplesPerSec float64
	AvgComputeMS  float64
	LastLoss      float64
}
