package trainer

import (
	"fmt"
	"io"
	"math"

	"github.com/unixpickle/sparsernn"
)

// DefaultTrimLevel is the number of steps between hard
// thresholding operations in the IHT phase.
const DefaultTrimLevel = 15

// denseThreshold is the sparsity above which a factor is
// treated as fully dense.
const denseThreshold = 0.99

// Sparsity stores the fraction of non-zero entries to
// keep in the input matrices (W) and in the hidden
// matrices (U).
type Sparsity struct {
	W float64
	U float64
}

// Dense returns true if neither kind of matrix is
// sparsified, in which case the run never leaves the
// dense phase.
func (s Sparsity) Dense() bool {
	return s.W > denseThreshold && s.U > denseThreshold
}

// Validate makes sure both factors are in [0, 1].
func (s Sparsity) Validate() error {
	if err := sparsernn.CheckSparsity("W", s.W); err != nil {
		return err
	}
	return sparsernn.CheckSparsity("U", s.U)
}

// Config stores the hyper-parameters of a training run.
type Config struct {
	Sparsity Sparsity

	LearningRate float64
	BatchSize    int
	Epochs       int

	// The learning rate is multiplied by DecayRate at the
	// start of every DecayStep-th epoch (except epoch 0).
	DecayStep int
	DecayRate float64

	TrimLevel int

	// Checkpoint is the number of timesteps between
	// saved hidden states when unrolling the cell.
	// Zero keeps every timestep in memory.
	Checkpoint int

	// OutDir is the directory where the final parameters
	// are saved.
	OutDir string

	// DataDir is the directory of the results log.
	// If it is empty, no results log is written.
	DataDir string

	// Output receives the progress stream.
	// If nil, logrus' default output is used.
	Output io.Writer
}

// DefaultConfig returns a dense-training Config.
func DefaultConfig() Config {
	return Config{
		Sparsity:     Sparsity{W: 1, U: 1},
		LearningRate: 0.01,
		BatchSize:    64,
		Epochs:       300,
		DecayStep:    200,
		DecayRate:    0.1,
		TrimLevel:    DefaultTrimLevel,
	}
}

// Validate checks the hyper-parameters.
func (c *Config) Validate() error {
	if err := c.Sparsity.Validate(); err != nil {
		return err
	}
	switch {
	case !(c.LearningRate > 0) || math.IsInf(c.LearningRate, 1):
		return fmt.Errorf("%w: learning rate must be positive and finite (got %v)",
			sparsernn.ErrConfiguration, c.LearningRate)
	case !(c.DecayRate > 0) || math.IsInf(c.DecayRate, 1):
		return fmt.Errorf("%w: decay rate must be positive and finite (got %v)",
			sparsernn.ErrConfiguration, c.DecayRate)
	case c.BatchSize <= 0:
		return fmt.Errorf("%w: batch size must be positive", sparsernn.ErrConfiguration)
	case c.Epochs <= 0:
		return fmt.Errorf("%w: epoch count must be positive", sparsernn.ErrConfiguration)
	case c.DecayStep <= 0:
		return fmt.Errorf("%w: decay step must be positive", sparsernn.ErrConfiguration)
	case c.Checkpoint < 0:
		return fmt.Errorf("%w: negative checkpoint interval", sparsernn.ErrConfiguration)
	case c.TrimLevel <= 0:
		return fmt.Errorf("%w: trim level must be positive", sparsernn.ErrConfiguration)
	case c.OutDir == "":
		return fmt.Errorf("%w: missing output directory", sparsernn.ErrConfiguration)
	}
	return nil
}
