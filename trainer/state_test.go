package trainer

import (
	"math"
	"testing"
)

func TestRunStateDecay(t *testing.T) {
	state := NewRunState(0.1)
	for epoch := 0; epoch < 6; epoch++ {
		state.StartEpoch(epoch, 2, 0.5)
	}
	expected := []float64{0.1, 0.1, 0.05, 0.05, 0.025, 0.025}
	for i, x := range expected {
		if math.Abs(state.LearningRates[i]-x) > 1e-12 {
			t.Errorf("epoch %d: expected rate %v got %v", i, x, state.LearningRates[i])
		}
	}
}

func TestRunStateTrainMeans(t *testing.T) {
	state := NewRunState(0.1)
	state.StartEpoch(0, 1, 1)
	state.RecordBatch(2, 0.5)
	state.RecordBatch(4, 1)
	loss, acc := state.MeanTrain()
	if loss != 3 || acc != 0.75 {
		t.Errorf("unexpected means: %v, %v", loss, acc)
	}
	state.StartEpoch(1, 1, 1)
	if loss, acc := state.MeanTrain(); loss != 0 || acc != 0 {
		t.Errorf("accumulators were not reset: %v, %v", loss, acc)
	}
}

func TestRunStateBestAccuracy(t *testing.T) {
	state := NewRunState(0.1)
	steps := []struct {
		iht       bool
		acc       float64
		best      float64
		bestEpoch int
	}{
		// Before IHT, the best accuracy follows the latest
		// epoch, even when it goes down.
		{false, 0.9, 0.9, 0},
		{false, 0.7, 0.7, 1},

		// The first compressed epoch always counts.
		{true, 0.5, 0.5, 2},
		{true, 0.6, 0.6, 3},
		{true, 0.55, 0.6, 3},
		{true, 0.6, 0.6, 5},
		{true, 0.4, 0.6, 5},
	}
	for epoch, step := range steps {
		state.StartEpoch(epoch, 100, 1)
		state.IHTEntered = step.iht
		state.RecordTest(1, step.acc)
		if state.BestAcc != step.best || state.BestEpoch != step.bestEpoch {
			t.Errorf("epoch %d: expected best %v at %d got %v at %d", epoch, step.best,
				step.bestEpoch, state.BestAcc, state.BestEpoch)
		}
	}
}

func TestRunStateBestAccuracyDense(t *testing.T) {
	state := NewRunState(0.1)
	accs := []float64{0.3, 0.8, 0.6}
	for epoch, acc := range accs {
		state.StartEpoch(epoch, 100, 1)
		state.RecordTest(1, acc)
	}
	if state.BestAcc != 0.6 || state.BestEpoch != 2 {
		t.Errorf("expected the final epoch, got %v at %d", state.BestAcc, state.BestEpoch)
	}
}
