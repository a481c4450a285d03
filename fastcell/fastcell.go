// Package fastcell implements the FastRNN and FastGRNN
// recurrent cells as anyrnn.Blocks.
//
// Both cells add a residual connection to a simple RNN
// update, which makes them cheap enough for tiny devices
// while remaining easy to train.
// Their weight matrices may be factored into low-rank
// products to further reduce the model size.
package fastcell

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/sparsernn"
)

// Variant identifies a supported cell architecture.
type Variant int

const (
	FastRNN Variant = iota
	FastGRNN
)

// ParseVariant parses the name of a variant, as returned
// by Variant.String.
func ParseVariant(name string) (Variant, error) {
	switch name {
	case "FastRNN":
		return FastRNN, nil
	case "FastGRNN":
		return FastGRNN, nil
	}
	return 0, fmt.Errorf("%w: unknown cell type %q", sparsernn.ErrConfiguration, name)
}

// String returns the name of the variant.
func (v Variant) String() string {
	switch v {
	case FastRNN:
		return "FastRNN"
	case FastGRNN:
		return "FastGRNN"
	}
	return fmt.Sprintf("Variant(%d)", int(v))
}

// CellParamNames returns the names of the cell-specific
// parameters (i.e. everything except the weight
// matrices), in the order they appear in a Cell.
func (v Variant) CellParamNames() []string {
	switch v {
	case FastRNN:
		return []string{"B", "alpha", "beta"}
	case FastGRNN:
		return []string{"Bg", "Bh", "zeta", "nu"}
	}
	panic("unknown variant: " + v.String())
}

// ParamNames returns the names of every parameter for a
// cell with numW input matrices and numU hidden matrices.
func (v Variant) ParamNames(numW, numU int) []string {
	res := append(matrixNames("W", numW), matrixNames("U", numU)...)
	return append(res, v.CellParamNames()...)
}

func matrixNames(prefix string, count int) []string {
	if count == 1 {
		return []string{prefix}
	}
	var res []string
	for i := 1; i <= count; i++ {
		res = append(res, fmt.Sprintf("%s%d", prefix, i))
	}
	return res
}

// Config specifies the dimensions of a cell.
type Config struct {
	InputSize  int
	HiddenSize int

	// WRank and URank are the ranks of the low-rank
	// factorizations of W and U.
	// A rank of 0 means that the matrix is not factored.
	WRank int
	URank int

	GateNonlinearity   Nonlinearity
	UpdateNonlinearity Nonlinearity
}

// DefaultConfig creates a full-rank Config with the usual
// sigmoid gate and tanh update.
func DefaultConfig(inputSize, hiddenSize int) Config {
	return Config{
		InputSize:          inputSize,
		HiddenSize:         hiddenSize,
		GateNonlinearity:   Sigmoid,
		UpdateNonlinearity: Tanh,
	}
}

// Validate checks that the dimensions make sense.
func (c Config) Validate() error {
	if c.InputSize <= 0 || c.HiddenSize <= 0 {
		return fmt.Errorf("%w: input size %d and hidden size %d must be positive",
			sparsernn.ErrConfiguration, c.InputSize, c.HiddenSize)
	}
	if c.WRank < 0 || c.URank < 0 {
		return fmt.Errorf("%w: negative rank", sparsernn.ErrConfiguration)
	}
	return nil
}

// A Param is a named, shaped trainable variable.
//
// The variable's vector stores the entries in row-major
// order.
type Param struct {
	Name  string
	Shape []int
	Var   *anydiff.Var

	// Transposed indicates that the variable is stored
	// as the transpose of its persisted layout.
	Transposed bool
}

// Len returns the number of entries in the parameter.
func (p *Param) Len() int {
	res := 1
	for _, x := range p.Shape {
		res *= x
	}
	return res
}
