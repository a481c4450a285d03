package trainer

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/unixpickle/sparsernn"
)

// A Dataset stores labeled sequences.
//
// Features is laid out as [NumSamples, TimeSteps,
// InputDims] and Labels as [NumSamples, NumClasses], both
// in row-major order.
// Labels are one-hot vectors.
type Dataset struct {
	Features []float64
	Labels   []float64

	NumSamples int
	TimeSteps  int
	InputDims  int
	NumClasses int
}

// NewDataset creates a Dataset and checks that the data
// matches the dimensions.
func NewDataset(features, labels []float64, numSamples, timeSteps, inputDims,
	numClasses int) (*Dataset, error) {
	if numSamples <= 0 || timeSteps <= 0 || inputDims <= 0 || numClasses <= 0 {
		return nil, fmt.Errorf("%w: dataset dimensions must be positive",
			sparsernn.ErrShapeMismatch)
	}
	if len(features) != numSamples*timeSteps*inputDims {
		return nil, fmt.Errorf("%w: %d features do not fit [%d, %d, %d]",
			sparsernn.ErrShapeMismatch, len(features), numSamples, timeSteps, inputDims)
	}
	if len(labels) != numSamples*numClasses {
		return nil, fmt.Errorf("%w: %d labels do not fit [%d, %d]",
			sparsernn.ErrShapeMismatch, len(labels), numSamples, numClasses)
	}
	return &Dataset{
		Features:   features,
		Labels:     labels,
		NumSamples: numSamples,
		TimeSteps:  timeSteps,
		InputDims:  inputDims,
		NumClasses: numClasses,
	}, nil
}

// Batch returns the features and labels of the samples in
// the range [start, end).
func (d *Dataset) Batch(start, end int) (features, labels []float64) {
	sampleSize := d.TimeSteps * d.InputDims
	return d.Features[start*sampleSize : end*sampleSize],
		d.Labels[start*d.NumClasses : end*d.NumClasses]
}

// A SyntheticTask generates learnable toy datasets.
//
// Each class has a fixed random pattern, and samples are
// noisy copies of their class pattern.
// Datasets sampled from the same task share patterns, so
// a model trained on one generalizes to the others.
type SyntheticTask struct {
	Patterns  [][]float64
	TimeSteps int
	InputDims int
	Noise     float64
}

// NewSyntheticTask draws a random ±1 pattern for every
// class.
func NewSyntheticTask(gen *rand.Rand, timeSteps, inputDims,
	numClasses int) *SyntheticTask {
	patterns := make([][]float64, numClasses)
	for i := range patterns {
		patterns[i] = make([]float64, timeSteps*inputDims)
		for j := range patterns[i] {
			patterns[i][j] = math.Copysign(1, gen.NormFloat64())
		}
	}
	return &SyntheticTask{
		Patterns:  patterns,
		TimeSteps: timeSteps,
		InputDims: inputDims,
		Noise:     0.3,
	}
}

// NumClasses returns the number of class patterns.
func (s *SyntheticTask) NumClasses() int {
	return len(s.Patterns)
}

// Sample generates a dataset with numSamples samples,
// cycling through the classes.
func (s *SyntheticTask) Sample(gen *rand.Rand, numSamples int) *Dataset {
	numClasses := s.NumClasses()
	sampleSize := s.TimeSteps * s.InputDims
	res := &Dataset{
		Features:   make([]float64, 0, numSamples*sampleSize),
		Labels:     make([]float64, numSamples*numClasses),
		NumSamples: numSamples,
		TimeSteps:  s.TimeSteps,
		InputDims:  s.InputDims,
		NumClasses: numClasses,
	}
	for i := 0; i < numSamples; i++ {
		class := i % numClasses
		for _, x := range s.Patterns[class] {
			res.Features = append(res.Features, x+s.Noise*gen.NormFloat64())
		}
		res.Labels[i*numClasses+class] = 1
	}
	return res
}
