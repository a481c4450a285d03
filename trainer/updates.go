package trainer

import (
	"fmt"

	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/sparsernn"
	"github.com/unixpickle/sparsernn/fastcell"
)

// An Updater applies the sparsification operations to
// the matrices of a ParamSet.
//
// Each operation updates every matrix at once while
// holding the ParamSet's write lock.
type Updater struct {
	Params   *ParamSet
	Sparsity Sparsity

	// Counters for the number of times each operation
	// has been applied.
	HardThresholdCount int
	RetrainCount       int

	// snapshot stores the matrices as they were right
	// after the most recent hard thresholding.
	snapshot []anyvec.Vector
}

// NewUpdater creates an Updater with no snapshot.
func NewUpdater(params *ParamSet, s Sparsity) *Updater {
	return &Updater{Params: params, Sparsity: s}
}

// HasSnapshot returns true once ApplyHardThreshold has
// been called.
func (u *Updater) HasSnapshot() bool {
	return u.snapshot != nil
}

// ApplyHardThreshold thresholds the input matrices at
// sparsity W and the hidden matrices at sparsity U.
//
// The thresholded values become the support used by the
// next calls to ApplySparseRetrain.
func (u *Updater) ApplyHardThreshold() {
	u.Params.Update(func(params []*fastcell.Param) {
		matrices := params[:u.Params.NumW+u.Params.NumU]
		thresholded := make([]anyvec.Vector, len(matrices))
		for i, p := range matrices {
			s := u.Params.Sparsity(i, u.Sparsity)
			thresholded[i] = sparsernn.HardThreshold(p.Var.Vector, s)
		}
		for i, p := range matrices {
			p.Var.Vector.Set(thresholded[i])
		}
		u.snapshot = thresholded
	})
	u.HardThresholdCount++
}

// ApplySparseRetrain zeros every matrix entry outside of
// the support of the latest snapshot.
//
// It fails with sparsernn.ErrNoSnapshot if
// ApplyHardThreshold has never been called, and with
// sparsernn.ErrShapeMismatch if a matrix no longer matches
// its snapshot.
// If it fails, no parameter is modified.
func (u *Updater) ApplySparseRetrain() error {
	if u.snapshot == nil {
		return sparsernn.ErrNoSnapshot
	}
	var err error
	u.Params.Update(func(params []*fastcell.Param) {
		matrices := params[:u.Params.NumW+u.Params.NumU]
		retrained := make([]anyvec.Vector, len(matrices))
		for i, p := range matrices {
			retrained[i], err = sparsernn.CopySupport(u.snapshot[i], p.Var.Vector)
			if err != nil {
				err = fmt.Errorf("retrain %s: %w", p.Name, err)
				return
			}
		}
		for i, p := range matrices {
			p.Var.Vector.Set(retrained[i])
		}
	})
	if err == nil {
		u.RetrainCount++
	}
	return err
}
