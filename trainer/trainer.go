// Package trainer trains FastRNN and FastGRNN classifiers
// with a three-phase schedule: dense training, iterative
// hard thresholding (IHT), and sparse retraining.
//
// A run of T steps trains densely for the first T/3
// steps.
// During the next T/3 steps, the weight matrices are hard
// thresholded every TrimLevel steps and projected back
// onto the thresholded support in between.
// The final T/3 steps keep training on that support.
package trainer

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/sparsernn"
	"github.com/unixpickle/sparsernn/fastcell"
)

// A Trainer runs the training schedule for a Graph.
type Trainer struct {
	Config   Config
	Graph    *Graph
	Updater  *Updater
	Schedule Schedule
	State    *RunState
	Log      *logrus.Logger

	Train *Dataset
	Test  *Dataset
}

// Result summarizes a finished run.
type Result struct {
	BestAcc   float64
	BestEpoch int
	FinalAcc  float64
	Size      Size

	// OutDir is the absolute path of the saved parameters.
	OutDir string
}

// New creates a Trainer for the cell.
//
// It fails if the configuration is invalid or if the
// datasets do not match each other or the cell.
func New(cell *fastcell.Cell, train, test *Dataset, cfg Config) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	graph, err := NewGraph(cell, train)
	if err != nil {
		return nil, err
	}
	if err := graph.CheckData(test); err != nil {
		return nil, err
	}
	graph.Checkpoint = cfg.Checkpoint

	numBatches := train.NumSamples / cfg.BatchSize
	if numBatches == 0 {
		return nil, fmt.Errorf("%w: batch size %d exceeds %d training samples",
			sparsernn.ErrConfiguration, cfg.BatchSize, train.NumSamples)
	}
	schedule := Schedule{
		TotalBatches: numBatches * cfg.Epochs,
		TrimLevel:    cfg.TrimLevel,
		Dense:        cfg.Sparsity.Dense(),
	}
	if err := schedule.Validate(); err != nil {
		return nil, err
	}

	log := logrus.New()
	if cfg.Output != nil {
		log.SetOutput(cfg.Output)
	}

	return &Trainer{
		Config:   cfg,
		Graph:    graph,
		Updater:  NewUpdater(graph.Params, cfg.Sparsity),
		Schedule: schedule,
		State:    NewRunState(cfg.LearningRate),
		Log:      log,
		Train:    train,
		Test:     test,
	}, nil
}

// NumBatches returns the number of mini-batches per
// epoch.
// Samples past the last full batch are never used.
func (t *Trainer) NumBatches() int {
	return t.Train.NumSamples / t.Config.BatchSize
}

// Run trains for the configured number of epochs, then
// logs the final metrics, appends to the results log, and
// saves the parameters.
//
// The context is checked before every step.
func (t *Trainer) Run(ctx context.Context) (*Result, error) {
	cfg := t.Config
	state := t.State
	numBatches := t.NumBatches()

	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		state.StartEpoch(epoch, cfg.DecayStep, cfg.DecayRate)
		t.Log.WithFields(logrus.Fields{
			"epoch":         epoch,
			"learning_rate": state.LearningRate,
		}).Info("epoch started")

		for j := 0; j < numBatches; j++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if state.Step == 0 {
				t.banner("Dense Training Phase Started")
			}
			features, labels := t.Train.Batch(j*cfg.BatchSize, (j+1)*cfg.BatchSize)
			loss, acc := t.Graph.Step(features, labels, state.LearningRate)
			state.RecordBatch(loss, acc)
			if err := t.sparsify(); err != nil {
				return nil, err
			}
			state.Step++
		}

		trainLoss, trainAcc := state.MeanTrain()
		testLoss, testAcc := t.Graph.Evaluate(t.Test)
		state.RecordTest(testLoss, testAcc)
		t.Log.WithFields(logrus.Fields{
			"epoch":      epoch,
			"train_loss": trainLoss,
			"train_acc":  trainAcc,
			"test_loss":  testLoss,
			"test_acc":   testAcc,
		}).Info("epoch complete")
	}

	return t.finish()
}

// sparsify applies the operation of the current step's
// phase.
func (t *Trainer) sparsify() error {
	state := t.State
	switch t.Schedule.PhaseAt(state.Step, state.IHTEntered) {
	case IHT:
		t.Updater.ApplyHardThreshold()
		if !state.IHTEntered {
			t.banner("IHT Phase Started")
		}
		state.IHTEntered = true
	case SparseRetrain:
		if err := t.Updater.ApplySparseRetrain(); err != nil {
			return fmt.Errorf("step %d: %w", state.Step, err)
		}
		if state.Step == t.Schedule.RetrainStart() {
			t.banner("Sparse Retraining Phase Started")
		}
	}
	return nil
}

func (t *Trainer) finish() (*Result, error) {
	state := t.State
	size := ModelSize(t.Graph.Params, t.Config.Sparsity)
	outDir, err := filepath.Abs(t.Config.OutDir)
	if err != nil {
		return nil, essentials.AddCtx("output directory", err)
	}
	res := &Result{
		BestAcc:   state.BestAcc,
		BestEpoch: state.BestEpoch,
		FinalAcc:  state.TestAcc,
		Size:      size,
		OutDir:    outDir,
	}

	t.Log.WithFields(logrus.Fields{
		"best_acc":   res.BestAcc,
		"best_epoch": res.BestEpoch + 1,
		"final_acc":  res.FinalAcc,
	}).Info("maximum test accuracy at compressed model size (including early stopping)")
	t.Log.WithFields(logrus.Fields{
		"non_zeros":  size.NonZero,
		"size_kb":    size.KB(),
		"has_sparse": size.HasSparse,
	}).Info("model size")

	if t.Config.DataDir != "" {
		line := fmt.Sprintf("MaxTestAcc: %v at Epoch(totalEpochs): %d(%d) "+
			"ModelSize: %v KB hasSparse: %v Param Directory: %s", res.BestAcc,
			res.BestEpoch+1, t.Config.Epochs, size.KB(), size.HasSparse, outDir)
		if err := AppendResult(t.Config.DataDir, t.Graph.Cell.Variant, line); err != nil {
			return nil, err
		}
	}

	if err := SaveParams(outDir, t.Graph.Params); err != nil {
		return nil, err
	}
	t.Log.WithField("dir", outDir).Info("saved model")

	return res, nil
}

func (t *Trainer) banner(msg string) {
	header := strings.Repeat("*", 20)
	t.Log.WithField("step", t.State.Step).Info(header + " " + msg + " " + header)
}
