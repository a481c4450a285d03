package fastcell

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/sparsernn"
)

// Nonlinearity is an element-wise activation function.
type Nonlinearity int

const (
	Tanh Nonlinearity = iota
	Sigmoid
	ReLU
)

// ParseNonlinearity parses the name of a nonlinearity.
func ParseNonlinearity(name string) (Nonlinearity, error) {
	switch name {
	case "tanh":
		return Tanh, nil
	case "sigmoid":
		return Sigmoid, nil
	case "relu":
		return ReLU, nil
	}
	return 0, fmt.Errorf("%w: unknown nonlinearity %q", sparsernn.ErrConfiguration,
		name)
}

func (n Nonlinearity) String() string {
	switch n {
	case Tanh:
		return "tanh"
	case Sigmoid:
		return "sigmoid"
	case ReLU:
		return "relu"
	}
	return fmt.Sprintf("Nonlinearity(%d)", int(n))
}

// Apply applies the nonlinearity to every component.
func (n Nonlinearity) Apply(in anydiff.Res) anydiff.Res {
	switch n {
	case Tanh:
		return anydiff.Tanh(in)
	case Sigmoid:
		return anydiff.Sigmoid(in)
	case ReLU:
		return anydiff.ClipPos(in)
	}
	panic("unknown nonlinearity: " + n.String())
}
