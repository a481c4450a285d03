package trainer

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anynet/anyrnn"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/sparsernn"
	"github.com/unixpickle/sparsernn/fastcell"
	"github.com/unixpickle/sparsernn/lazyseq"
	"github.com/unixpickle/sparsernn/lazyseq/lazyrnn"
)

// A Graph is a recurrent classifier: a cell unrolled over
// every timestep, followed by a linear classifier on the
// final hidden state.
//
// It is trained with a softmax cross-entropy loss and the
// Adam optimizer.
type Graph struct {
	Creator    anyvec.Creator
	Cell       *fastcell.Cell
	Classifier *anynet.FC
	Params     *ParamSet
	Optimizer  anysgd.Transformer

	TimeSteps  int
	InputDims  int
	NumClasses int

	// Checkpoint, if non-zero, streams the sequences
	// through the cell and keeps only every Checkpoint-th
	// hidden state, recomputing the rest during
	// back-propagation.
	// Otherwise, every timestep is kept in memory.
	Checkpoint int
}

// NewGraph creates a Graph for the cell, inferring the
// sequence length and class count from the data.
//
// The classifier weights and biases are drawn from a
// normal distribution.
func NewGraph(cell *fastcell.Cell, data *Dataset) (*Graph, error) {
	if data.InputDims != cell.InputSize() {
		return nil, fmt.Errorf("%w: data has %d input dims but cell expects %d",
			sparsernn.ErrDimensionMismatch, data.InputDims, cell.InputSize())
	}
	c := cell.Creator
	classifier := anynet.NewFC(c, cell.OutputSize(), data.NumClasses)
	anyvec.Rand(classifier.Weights.Vector, anyvec.Normal, nil)
	anyvec.Rand(classifier.Biases.Vector, anyvec.Normal, nil)

	return &Graph{
		Creator:    c,
		Cell:       cell,
		Classifier: classifier,
		Params:     NewParamSet(cell, classifier),

		// Zero fields select the default Adam parameters.
		Optimizer: &anysgd.Adam{},

		TimeSteps:  data.TimeSteps,
		InputDims:  data.InputDims,
		NumClasses: data.NumClasses,
	}, nil
}

// CheckData makes sure that a dataset can be fed to the
// graph.
func (g *Graph) CheckData(d *Dataset) error {
	if d.TimeSteps != g.TimeSteps || d.InputDims != g.InputDims ||
		d.NumClasses != g.NumClasses {
		return fmt.Errorf("%w: data is [%d, %d] -> %d but graph is [%d, %d] -> %d",
			sparsernn.ErrDimensionMismatch, d.TimeSteps, d.InputDims, d.NumClasses,
			g.TimeSteps, g.InputDims, g.NumClasses)
	}
	return nil
}

// Step performs one optimizer step on a mini-batch and
// returns the batch loss and accuracy (measured before
// the step).
func (g *Graph) Step(features, labels []float64, lr float64) (loss, acc float64) {
	grad := anydiff.NewGrad(g.Params.Vars()...)
	g.Params.View(func([]*fastcell.Param) {
		lossRes, logProbs := g.forward(features, labels)
		lossRes.Propagate(sparsernn.FromFloat64s(g.Creator, []float64{1}), grad)
		loss = sparsernn.Float64s(lossRes.Output())[0]
		acc = accuracy(sparsernn.Float64s(logProbs), labels, g.NumClasses)
	})

	grad = g.Optimizer.Transform(grad)
	g.Params.Update(func([]*fastcell.Param) {
		scale := g.Creator.MakeNumeric(-lr)
		for v, vec := range grad {
			vec.Scale(scale)
			v.Vector.Add(vec)
		}
	})
	return
}

// Evaluate computes the loss and accuracy on an entire
// dataset in a single batch.
func (g *Graph) Evaluate(d *Dataset) (loss, acc float64) {
	g.Params.View(func([]*fastcell.Param) {
		lossRes, logProbs := g.forward(d.Features, d.Labels)
		loss = sparsernn.Float64s(lossRes.Output())[0]
		acc = accuracy(sparsernn.Float64s(logProbs), d.Labels, g.NumClasses)
	})
	return
}

// forward computes the mean cross-entropy loss and the
// log probabilities of every class.
func (g *Graph) forward(features, labels []float64) (anydiff.Res, anyvec.Vector) {
	n := len(labels) / g.NumClasses
	final := g.finalStates(features)
	logits := g.Classifier.Apply(final, n)
	logProbs := anydiff.LogSoftmax(logits, g.NumClasses)

	target := anydiff.NewConst(sparsernn.FromFloat64s(g.Creator, labels))
	loss := anydiff.Scale(
		anydiff.Sum(anydiff.Mul(logProbs, target)),
		g.Creator.MakeNumeric(-1/float64(n)),
	)
	return loss, logProbs.Output()
}

// finalStates runs the cell over every sequence and
// returns the packed final hidden states.
func (g *Graph) finalStates(features []float64) anydiff.Res {
	if g.Checkpoint <= 0 {
		return anyseq.Tail(anyrnn.Map(g.sequences(features), g.Cell))
	}
	in := lazyseq.Features(g.Creator, features, g.TimeSteps, g.InputDims)
	return lazyseq.Tail(lazyrnn.Checkpoint(g.Checkpoint, in, g.Cell))
}

// sequences converts packed features into a batch of
// sequences, one lane per sample.
func (g *Graph) sequences(features []float64) anyseq.Seq {
	sampleSize := g.TimeSteps * g.InputDims
	seqs := make([][]anyvec.Vector, len(features)/sampleSize)
	for i := range seqs {
		sample := features[i*sampleSize : (i+1)*sampleSize]
		for t := 0; t < g.TimeSteps; t++ {
			step := sample[t*g.InputDims : (t+1)*g.InputDims]
			seqs[i] = append(seqs[i], sparsernn.FromFloat64s(g.Creator, step))
		}
	}
	return anyseq.ConstSeqList(g.Creator, seqs)
}

// accuracy computes the fraction of rows where the
// prediction and the one-hot label share an argmax.
func accuracy(predictions, labels []float64, numClasses int) float64 {
	n := len(labels) / numClasses
	if n == 0 {
		return 0
	}
	var correct int
	for i := 0; i < n; i++ {
		row := i * numClasses
		if argmax(predictions[row:row+numClasses]) == argmax(labels[row:row+numClasses]) {
			correct++
		}
	}
	return float64(correct) / float64(n)
}

func argmax(values []float64) int {
	var res int
	for i, x := range values {
		if x > values[res] {
			res = i
		}
	}
	return res
}
