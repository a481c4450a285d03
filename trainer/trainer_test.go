package trainer

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/unixpickle/sparsernn"
	"github.com/unixpickle/sparsernn/fastcell"
)

func testConfig(t *testing.T, s Sparsity, epochs int) (Config, *bytes.Buffer) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Sparsity = s
	cfg.BatchSize = 10
	cfg.Epochs = epochs
	cfg.OutDir = filepath.Join(t.TempDir(), "out")
	cfg.DataDir = t.TempDir()
	cfg.Output = &buf
	return cfg, &buf
}

func TestTrainerDense(t *testing.T) {
	cfg, log := testConfig(t, Sparsity{W: 1, U: 1}, 3)
	cell := testCell(t, fastcell.FastRNN, fastcell.DefaultConfig(testInputDims, 4))
	tr, err := New(cell, testData(1, 30), testData(2, 10), cfg)
	if err != nil {
		t.Fatal(err)
	}
	res, err := tr.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if tr.Updater.HardThresholdCount != 0 || tr.Updater.RetrainCount != 0 {
		t.Error("dense run applied sparsification")
	}
	if tr.State.Step != 9 {
		t.Errorf("expected 9 steps but got %d", tr.State.Step)
	}
	if res.BestEpoch != 2 || res.BestAcc != res.FinalAcc {
		t.Errorf("expected best to track the last epoch but got %v at %d",
			res.BestAcc, res.BestEpoch)
	}

	var total int
	for _, p := range tr.Graph.Params.Params() {
		total += p.Len()
	}
	if res.Size.HasSparse || res.Size.NonZero != total ||
		res.Size.Bytes != total*sparsernn.BytesPerValue {
		t.Errorf("unexpected size: %+v", res.Size)
	}

	if !strings.Contains(log.String(), "Dense Training Phase Started") {
		t.Error("missing dense banner")
	}
	if strings.Contains(log.String(), "IHT Phase Started") {
		t.Error("unexpected IHT banner")
	}

	for _, p := range tr.Graph.Params.Params() {
		if _, err := os.Stat(filepath.Join(res.OutDir, p.Name+".npy")); err != nil {
			t.Error(err)
		}
	}
	if !filepath.IsAbs(res.OutDir) {
		t.Errorf("output directory is not absolute: %s", res.OutDir)
	}

	lines := readLines(t, filepath.Join(cfg.DataDir, "FastRNNResults.txt"))
	if len(lines) != 1 {
		t.Fatalf("expected one result line but got %d", len(lines))
	}
	for _, part := range []string{"MaxTestAcc: ", "at Epoch(totalEpochs): 3(3)",
		"hasSparse: false", "Param Directory: " + res.OutDir} {
		if !strings.Contains(lines[0], part) {
			t.Errorf("result line %q is missing %q", lines[0], part)
		}
	}
}

func TestTrainerSparse(t *testing.T) {
	s := Sparsity{W: 0.3, U: 0.5}
	cfg, log := testConfig(t, s, 6)
	cfg.DecayStep = 2
	cfg.DecayRate = 0.5
	cell := testCell(t, fastcell.FastRNN, fastcell.DefaultConfig(testInputDims, 6))
	tr, err := New(cell, testData(1, 50), testData(2, 10), cfg)
	if err != nil {
		t.Fatal(err)
	}
	res, err := tr.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	// 30 steps: IHT at step 15, retraining on 16-29.
	if tr.Updater.HardThresholdCount != 1 {
		t.Errorf("expected 1 hard threshold but got %d", tr.Updater.HardThresholdCount)
	}
	if tr.Updater.RetrainCount != 14 {
		t.Errorf("expected 14 retrain steps but got %d", tr.Updater.RetrainCount)
	}
	if !tr.State.IHTEntered {
		t.Error("IHT phase was never entered")
	}

	rates := tr.State.LearningRates
	if len(rates) != 6 || math.Abs(rates[4]-cfg.LearningRate*0.25) > 1e-12 {
		t.Errorf("unexpected learning rates: %v", rates)
	}

	values := tr.Graph.Params.Values()
	for i, p := range tr.Graph.Params.Matrices() {
		expected := sparsernn.TargetNonZero(p.Len(), tr.Graph.Params.Sparsity(i, s))
		if actual := countNonZero(values[i]); actual != expected {
			t.Errorf("%s: expected %d non-zeros but got %d", p.Name, expected, actual)
		}
	}
	if !res.Size.HasSparse {
		t.Error("expected a sparse model")
	}
	if res.BestAcc < 0 || res.BestAcc > 1 || res.BestEpoch < 3 {
		t.Errorf("unexpected best accuracy %v at %d", res.BestAcc, res.BestEpoch)
	}

	for _, banner := range []string{"Dense Training Phase Started", "IHT Phase Started",
		"Sparse Retraining Phase Started"} {
		if strings.Count(log.String(), banner) != 1 {
			t.Errorf("expected banner %q exactly once", banner)
		}
	}
	lines := readLines(t, filepath.Join(cfg.DataDir, "FastRNNResults.txt"))
	if len(lines) != 1 || !strings.Contains(lines[0], "hasSparse: true") {
		t.Errorf("unexpected results log: %v", lines)
	}
}

func TestTrainerLowRank(t *testing.T) {
	cfg, _ := testConfig(t, Sparsity{W: 0.5, U: 0.4}, 6)
	cfg.DataDir = ""
	cfg.Checkpoint = 2
	cellCfg := fastcell.DefaultConfig(testInputDims, 6)
	cellCfg.WRank = 2
	cellCfg.URank = 3
	cell := testCell(t, fastcell.FastGRNN, cellCfg)
	tr, err := New(cell, testData(3, 50), testData(4, 10), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if tr.Graph.Checkpoint != 2 {
		t.Errorf("expected checkpoint interval 2 but got %d", tr.Graph.Checkpoint)
	}
	res, err := tr.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"W1", "W2", "U1", "U2", "Bg", "Bh", "zeta", "nu",
		"FC", "FCbias"} {
		if _, err := os.Stat(filepath.Join(res.OutDir, name+".npy")); err != nil {
			t.Error(err)
		}
	}
	matches, err := filepath.Glob(filepath.Join(cfg.OutDir, "..", "*Results.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Errorf("unexpected results log: %v", matches)
	}
}

func TestTrainerErrors(t *testing.T) {
	cell := testCell(t, fastcell.FastRNN, fastcell.DefaultConfig(testInputDims, 4))

	t.Run("Mismatch", func(t *testing.T) {
		cfg, _ := testConfig(t, Sparsity{W: 1, U: 1}, 1)
		test := NewSyntheticTask(newRand(2), testTimeSteps, testInputDims,
			testNumClasses+1).Sample(newRand(3), 10)
		_, err := New(cell, testData(1, 30), test, cfg)
		if !errors.Is(err, sparsernn.ErrDimensionMismatch) {
			t.Errorf("expected ErrDimensionMismatch but got %v", err)
		}
	})

	t.Run("SmallData", func(t *testing.T) {
		cfg, _ := testConfig(t, Sparsity{W: 1, U: 1}, 1)
		_, err := New(cell, testData(1, 5), testData(2, 5), cfg)
		if !errors.Is(err, sparsernn.ErrConfiguration) {
			t.Errorf("expected ErrConfiguration but got %v", err)
		}
	})

	t.Run("ShortSparseRun", func(t *testing.T) {
		cfg, _ := testConfig(t, Sparsity{W: 0.5, U: 0.5}, 2)
		_, err := New(cell, testData(1, 30), testData(2, 5), cfg)
		if !errors.Is(err, sparsernn.ErrConfiguration) {
			t.Errorf("expected ErrConfiguration but got %v", err)
		}
	})

	t.Run("BadSparsity", func(t *testing.T) {
		cfg, _ := testConfig(t, Sparsity{W: 1.5, U: 1}, 1)
		_, err := New(cell, testData(1, 30), testData(2, 5), cfg)
		if !errors.Is(err, sparsernn.ErrConfiguration) {
			t.Errorf("expected ErrConfiguration but got %v", err)
		}
	})

	t.Run("Canceled", func(t *testing.T) {
		cfg, _ := testConfig(t, Sparsity{W: 1, U: 1}, 1)
		tr, err := New(cell, testData(1, 30), testData(2, 5), cfg)
		if err != nil {
			t.Fatal(err)
		}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := tr.Run(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled but got %v", err)
		}
	})
}
