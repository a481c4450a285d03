// Command fasttrain trains a sparse FastRNN or FastGRNN
// classifier.
//
// Flags default to the FASTTRAIN_* environment variables,
// which may be set in a .env file in the working
// directory.
package main

import (
	"context"
	"errors"
	"flag"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/unixpickle/anyvec/anyvec64"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/sparsernn/fastcell"
	"github.com/unixpickle/sparsernn/trainer"
)

type options struct {
	Cell       string
	DataDir    string
	OutDir     string
	InitDir    string
	Synthetic  bool
	InputDims  int
	HiddenSize int
	WRank      int
	URank      int
	Gate       string
	Update     string

	SparsityW    float64
	SparsityU    float64
	LearningRate float64
	BatchSize    int
	Epochs       int
	DecayStep    int
	DecayRate    float64
	Checkpoint   int
}

func main() {
	// A missing .env file is not an error.
	godotenv.Load()

	defaults := trainer.DefaultConfig()
	var f options
	flag.StringVar(&f.Cell, "cell", envString("CELL", "FastGRNN"), "cell type (FastRNN or FastGRNN)")
	flag.StringVar(&f.DataDir, "data-dir", envString("DATA_DIR", ""),
		"directory with train.npy and test.npy")
	flag.StringVar(&f.OutDir, "out-dir", envString("OUT_DIR", ""),
		"parameter directory (default: timestamped directory in data dir)")
	flag.StringVar(&f.InitDir, "init-dir", envString("INIT_DIR", ""),
		"parameter directory of a previous run to start from")
	flag.IntVar(&f.Checkpoint, "checkpoint", envInt("CHECKPOINT", 0),
		"timesteps between saved hidden states (0 keeps every timestep)")
	flag.BoolVar(&f.Synthetic, "synthetic", envBool("SYNTHETIC", false),
		"train on a generated dataset")
	flag.IntVar(&f.InputDims, "input-dim", envInt("INPUT_DIM", 16), "input dimensions per timestep")
	flag.IntVar(&f.HiddenSize, "hidden-dim", envInt("HIDDEN_DIM", 16), "hidden state size")
	flag.IntVar(&f.WRank, "w-rank", envInt("W_RANK", 0), "rank of W (0 for full rank)")
	flag.IntVar(&f.URank, "u-rank", envInt("U_RANK", 0), "rank of U (0 for full rank)")
	flag.StringVar(&f.Gate, "gate-nl", envString("GATE_NL", "sigmoid"), "gate nonlinearity")
	flag.StringVar(&f.Update, "update-nl", envString("UPDATE_NL", "tanh"), "update nonlinearity")
	flag.Float64Var(&f.SparsityW, "s-w", envFloat("S_W", 1), "fraction of non-zeros in W")
	flag.Float64Var(&f.SparsityU, "s-u", envFloat("S_U", 1), "fraction of non-zeros in U")
	flag.Float64Var(&f.LearningRate, "lr", envFloat("LR", defaults.LearningRate), "learning rate")
	flag.IntVar(&f.BatchSize, "batch-size", envInt("BATCH_SIZE", defaults.BatchSize),
		"mini-batch size")
	flag.IntVar(&f.Epochs, "epochs", envInt("EPOCHS", defaults.Epochs), "number of epochs")
	flag.IntVar(&f.DecayStep, "decay-step", envInt("DECAY_STEP", defaults.DecayStep),
		"epochs between learning rate decays")
	flag.Float64Var(&f.DecayRate, "decay-rate", envFloat("DECAY_RATE", defaults.DecayRate),
		"learning rate decay factor")
	flag.Parse()

	if err := run(f); err != nil {
		essentials.Die(err)
	}
}

func run(f options) error {
	variant, err := fastcell.ParseVariant(f.Cell)
	if err != nil {
		return err
	}
	cellCfg := fastcell.DefaultConfig(f.InputDims, f.HiddenSize)
	cellCfg.WRank = f.WRank
	cellCfg.URank = f.URank
	if cellCfg.GateNonlinearity, err = fastcell.ParseNonlinearity(f.Gate); err != nil {
		return err
	}
	if cellCfg.UpdateNonlinearity, err = fastcell.ParseNonlinearity(f.Update); err != nil {
		return err
	}
	cell, err := fastcell.New(anyvec64.DefaultCreator{}, variant, cellCfg)
	if err != nil {
		return err
	}

	train, test, err := loadData(f)
	if err != nil {
		return err
	}

	cfg := trainer.DefaultConfig()
	cfg.Sparsity = trainer.Sparsity{W: f.SparsityW, U: f.SparsityU}
	cfg.LearningRate = f.LearningRate
	cfg.BatchSize = f.BatchSize
	cfg.Epochs = f.Epochs
	cfg.DecayStep = f.DecayStep
	cfg.DecayRate = f.DecayRate
	cfg.Checkpoint = f.Checkpoint
	cfg.DataDir = f.DataDir
	cfg.OutDir = f.OutDir
	if cfg.OutDir == "" {
		cfg.OutDir = defaultOutDir(f, variant)
	}
	cfg.Output = os.Stdout

	t, err := trainer.New(cell, train, test, cfg)
	if err != nil {
		return err
	}
	if f.InitDir != "" {
		if err := trainer.LoadParams(f.InitDir, t.Graph.Params); err != nil {
			return essentials.AddCtx("initial parameters", err)
		}
	}
	_, err = t.Run(context.Background())
	return err
}

func loadData(f options) (train, test *trainer.Dataset, err error) {
	if f.Synthetic {
		gen := rand.New(rand.NewSource(time.Now().UnixNano()))
		const timeSteps, numClasses = 8, 4
		task := trainer.NewSyntheticTask(gen, timeSteps, f.InputDims, numClasses)
		return task.Sample(gen, 1024), task.Sample(gen, 256), nil
	}
	if f.DataDir == "" {
		return nil, nil, errors.New("missing -data-dir (or use -synthetic)")
	}
	return trainer.LoadDatasets(f.DataDir, f.InputDims)
}

func defaultOutDir(f options, v fastcell.Variant) string {
	dir := f.DataDir
	if dir == "" {
		dir = "."
	}
	stamp := time.Now().Format("15-04-05_02-01-2006")
	return filepath.Join(dir, v.String()+"Results", stamp)
}

func envString(name, def string) string {
	if s, ok := os.LookupEnv("FASTTRAIN_" + name); ok {
		return s
	}
	return def
}

func envInt(name string, def int) int {
	if s, ok := os.LookupEnv("FASTTRAIN_" + name); ok {
		x, err := strconv.Atoi(s)
		if err != nil {
			essentials.Die(essentials.AddCtx("FASTTRAIN_"+name, err))
		}
		return x
	}
	return def
}

func envFloat(name string, def float64) float64 {
	if s, ok := os.LookupEnv("FASTTRAIN_" + name); ok {
		x, err := strconv.ParseFloat(s, 64)
		if err != nil {
			essentials.Die(essentials.AddCtx("FASTTRAIN_"+name, err))
		}
		return x
	}
	return def
}

func envBool(name string, def bool) bool {
	if s, ok := os.LookupEnv("FASTTRAIN_" + name); ok {
		x, err := strconv.ParseBool(s)
		if err != nil {
			essentials.Die(essentials.AddCtx("FASTTRAIN_"+name, err))
		}
		return x
	}
	return def
}
