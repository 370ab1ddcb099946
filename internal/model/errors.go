package model

import "github.com/pkg/errors"

var (
	// ErrDimensionMismatch reports incompatible data, label or weight shapes.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrNotTrained is returned by operations that need weights before Train
	// has run. It is also a dimension mismatch: an empty weight matrix
	// cannot multiply any data.
	ErrNotTrained = errors.Wrap(ErrDimensionMismatch, "classifier is not trained")

	ErrLabelOutOfRange = errors.New("label out of range")
	ErrEmptyDataset    = errors.New("empty dataset")
	ErrNegativeIters   = errors.New("max iterations must not be negative")
)
