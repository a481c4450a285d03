package trainer

// RunState tracks the progress of a training run.
type RunState struct {
	Epoch        int
	Step         int
	LearningRate float64

	// IHTEntered is set once the first hard thresholding
	// has been applied.
	IHTEntered bool

	// BestAcc is the best test accuracy of the compressed
	// model, and BestEpoch is the epoch it was observed at.
	// Before IHT is entered, they only describe the
	// latest epoch.
	BestAcc   float64
	BestEpoch int

	TrainLoss float64
	TrainAcc  float64
	TestLoss  float64
	TestAcc   float64

	// LearningRates records the learning rate used in
	// every epoch so far.
	LearningRates []float64

	provisional bool
	numBatches  int
}

// NewRunState creates the state of a run that starts with
// the given learning rate.
func NewRunState(learningRate float64) *RunState {
	return &RunState{LearningRate: learningRate, provisional: true}
}

// StartEpoch resets the per-epoch accumulators and decays
// the learning rate every decayStep epochs.
func (r *RunState) StartEpoch(epoch, decayStep int, decayRate float64) {
	r.Epoch = epoch
	if epoch%decayStep == 0 && epoch != 0 {
		r.LearningRate *= decayRate
	}
	r.LearningRates = append(r.LearningRates, r.LearningRate)
	r.TrainLoss = 0
	r.TrainAcc = 0
	r.numBatches = 0
}

// RecordBatch accumulates the loss and accuracy of a
// training batch.
func (r *RunState) RecordBatch(loss, acc float64) {
	r.TrainLoss += loss
	r.TrainAcc += acc
	r.numBatches++
}

// MeanTrain returns the average training loss and
// accuracy of the current epoch.
func (r *RunState) MeanTrain() (loss, acc float64) {
	if r.numBatches == 0 {
		return 0, 0
	}
	n := float64(r.numBatches)
	return r.TrainLoss / n, r.TrainAcc / n
}

// RecordTest stores the test metrics of the current epoch
// and updates the best accuracy.
//
// Until IHT is entered, the best accuracy is provisional
// and simply follows the latest epoch, since the accuracy
// of the dense model is not the metric of interest.
// The first epoch after IHT replaces it unconditionally,
// and later epochs replace it when they are at least as
// accurate.
func (r *RunState) RecordTest(loss, acc float64) {
	r.TestLoss = loss
	r.TestAcc = acc
	if !r.IHTEntered || r.provisional || r.BestAcc <= acc {
		r.BestAcc = acc
		r.BestEpoch = r.Epoch
		r.provisional = !r.IHTEntered
	}
}
