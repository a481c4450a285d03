package trainer

import (
	"errors"
	"math"
	"testing"

	"github.com/unixpickle/sparsernn"
	"github.com/unixpickle/sparsernn/fastcell"
)

func TestNewDataset(t *testing.T) {
	if _, err := NewDataset(make([]float64, 12), make([]float64, 4), 2, 2, 3, 2); err != nil {
		t.Fatal(err)
	}
	cases := [][2]int{{11, 4}, {12, 3}}
	for _, c := range cases {
		_, err := NewDataset(make([]float64, c[0]), make([]float64, c[1]), 2, 2, 3, 2)
		if !errors.Is(err, sparsernn.ErrShapeMismatch) {
			t.Errorf("sizes %v: expected ErrShapeMismatch but got %v", c, err)
		}
	}
}

func TestSyntheticSplitsShareClasses(t *testing.T) {
	task := NewSyntheticTask(newRand(5), 6, 4, 3)
	gen := newRand(6)
	train := task.Sample(gen, 30)
	test := task.Sample(gen, 30)

	// Classify each test sample by its nearest training
	// sample; this only works if both splits share the
	// class patterns.
	sampleSize := 6 * 4
	var correct int
	for i := 0; i < test.NumSamples; i++ {
		x := test.Features[i*sampleSize : (i+1)*sampleSize]
		best, bestDist := 0, math.Inf(1)
		for j := 0; j < train.NumSamples; j++ {
			y := train.Features[j*sampleSize : (j+1)*sampleSize]
			var dist float64
			for k := range x {
				dist += (x[k] - y[k]) * (x[k] - y[k])
			}
			if dist < bestDist {
				best, bestDist = j, dist
			}
		}
		if argmax(train.Labels[best*3:best*3+3]) == argmax(test.Labels[i*3:i*3+3]) {
			correct++
		}
	}
	if correct != test.NumSamples {
		t.Errorf("only %d/%d test samples match a training sample of their class",
			correct, test.NumSamples)
	}
}

func TestSyntheticGeneralizes(t *testing.T) {
	graph := testGraph(t, fastcell.FastRNN, fastcell.DefaultConfig(testInputDims, 6))
	train := testData(7, 20)
	test := testData(8, 40)
	for i := 0; i < 100; i++ {
		graph.Step(train.Features, train.Labels, 0.02)
	}
	if _, acc := graph.Evaluate(test); acc < 0.8 {
		t.Errorf("test accuracy %v is close to chance", acc)
	}
}
