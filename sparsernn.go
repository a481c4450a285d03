// Package sparsernn provides the numeric routines used to
// train sparse recurrent networks with iterative hard
// thresholding (IHT).
//
// The routines in this package operate on flat
// anyvec.Vectors.
// Shapes are tracked by the callers, typically through
// fastcell.Param.
//
// The fastcell sub-package implements the recurrent cells
// and the trainer sub-package implements the dense, IHT,
// and sparse-retraining schedule.
package sparsernn

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is returned for invalid training
	// hyper-parameters, such as sparsity factors outside
	// of [0, 1].
	ErrConfiguration = errors.New("invalid configuration")

	// ErrShapeMismatch is returned when two tensors which
	// must share a shape do not.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrDimensionMismatch is returned when data does not
	// fit the dimensions of a cell or classifier.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrNoSnapshot is returned when sparse retraining is
	// requested before any hard thresholding took place.
	ErrNoSnapshot = errors.New("no thresholded snapshot available")
)

// CheckSparsity makes sure that a sparsity factor is in
// the range [0, 1].
//
// The name is used in the error message.
func CheckSparsity(name string, s float64) error {
	if s < 0 || s > 1 || s != s {
		return fmt.Errorf("%w: %s sparsity must be between 0 and 1 (got %v)",
			ErrConfiguration, name, s)
	}
	return nil
}
