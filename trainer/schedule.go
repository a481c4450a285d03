package trainer

import (
	"fmt"

	"github.com/unixpickle/sparsernn"
)

// A Phase is the stage of training that a step belongs
// to.
type Phase int

const (
	// Dense steps only run the optimizer.
	Dense Phase = iota

	// IHT steps hard threshold the matrices after the
	// optimizer step.
	IHT

	// SparseRetrain steps project the matrices back onto
	// the support of the last thresholding.
	SparseRetrain
)

func (p Phase) String() string {
	switch p {
	case Dense:
		return "Dense"
	case IHT:
		return "IHT"
	case SparseRetrain:
		return "SparseRetrain"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// PhaseAt determines the phase of step t in a run of
// totalBatches steps.
//
// The first third of the run is dense.
// In the middle third, every trimLevel-th step is an IHT
// step, and the other steps retrain sparsely once IHT has
// been entered.
// The last third retrains sparsely.
// Dense runs stay in the Dense phase throughout.
func PhaseAt(t, totalBatches, trimLevel int, ihtEntered, dense bool) Phase {
	if dense {
		return Dense
	}
	start, end := totalBatches/3, 2*totalBatches/3
	inMiddle := t >= start && t < end
	if inMiddle && t%trimLevel == 0 {
		return IHT
	} else if (ihtEntered && inMiddle) || t >= end {
		return SparseRetrain
	}
	return Dense
}

// A Schedule stores the constants that determine the
// phase of each step.
type Schedule struct {
	TotalBatches int
	TrimLevel    int
	Dense        bool
}

// PhaseAt is like the package-level PhaseAt.
func (s Schedule) PhaseAt(t int, ihtEntered bool) Phase {
	return PhaseAt(t, s.TotalBatches, s.TrimLevel, ihtEntered, s.Dense)
}

// RetrainStart returns the first step of the final,
// sparse-retraining third.
func (s Schedule) RetrainStart() int {
	return 2 * s.TotalBatches / 3
}

// Validate makes sure that a sparse run thresholds at
// least once before the final third, since sparse
// retraining needs a thresholded support.
func (s Schedule) Validate() error {
	if s.Dense {
		return nil
	}
	start, end := s.TotalBatches/3, s.RetrainStart()
	firstTrim := (start + s.TrimLevel - 1) / s.TrimLevel * s.TrimLevel
	if firstTrim >= end {
		return fmt.Errorf("%w: no thresholding step in [%d, %d) with trim level %d",
			sparsernn.ErrConfiguration, start, end, s.TrimLevel)
	}
	return nil
}
