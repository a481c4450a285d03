package fastcell

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet/anyrnn"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/sparsernn"
)

// Initial values for the cell-specific parameters.
const (
	initBias  = 1.0
	initAlpha = -3.0
	initBeta  = 3.0
	initZeta  = 1.0
	initNu    = -4.0

	initWeightScale = 0.1
)

// A Cell is a FastRNN or FastGRNN anyrnn.Block.
//
// With pre = x*W + h*U, the FastRNN update is
//
//	h' = sigmoid(alpha)*update(pre+B) + sigmoid(beta)*h
//
// and the FastGRNN update is
//
//	z  = gate(pre+Bg)
//	h' = z*h + (sigmoid(zeta)*(1-z)+sigmoid(nu))*update(pre+Bh)
//
// Params is ordered as follows: the input matrices (W or
// W1, W2), the hidden matrices (U or U1, U2), and then the
// parameters named by Variant.CellParamNames.
type Cell struct {
	Creator anyvec.Creator
	Variant Variant
	Config  Config
	Params  []*Param

	numW int
	numU int
}

// New creates a randomly initialized Cell.
func New(c anyvec.Creator, v Variant, cfg Config) (*Cell, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if v != FastRNN && v != FastGRNN {
		return nil, fmt.Errorf("%w: unsupported cell %s", sparsernn.ErrConfiguration, v)
	}

	res := &Cell{Creator: c, Variant: v, Config: cfg}

	wShapes := factorShapes(cfg.InputSize, cfg.HiddenSize, cfg.WRank)
	uShapes := factorShapes(cfg.HiddenSize, cfg.HiddenSize, cfg.URank)
	res.numW = len(wShapes)
	res.numU = len(uShapes)

	names := v.ParamNames(res.numW, res.numU)
	for i, shape := range append(wShapes, uShapes...) {
		res.Params = append(res.Params, randomParam(c, names[i], shape))
	}

	hidden := cfg.HiddenSize
	extraNames := names[res.numW+res.numU:]
	var extraInit []float64
	var extraSizes []int
	switch v {
	case FastRNN:
		extraInit = []float64{initBias, initAlpha, initBeta}
		extraSizes = []int{hidden, 1, 1}
	case FastGRNN:
		extraInit = []float64{initBias, initBias, initZeta, initNu}
		extraSizes = []int{hidden, hidden, 1, 1}
	}
	for i, name := range extraNames {
		res.Params = append(res.Params, constParam(c, name, []int{1, extraSizes[i]},
			extraInit[i]))
	}

	return res, nil
}

// InputSize returns the size of the input vectors.
func (c *Cell) InputSize() int {
	return c.Config.InputSize
}

// OutputSize returns the size of the hidden state, which
// is also the output of the cell.
func (c *Cell) OutputSize() int {
	return c.Config.HiddenSize
}

// NumWeightMatrices returns the number of input-to-hidden
// and hidden-to-hidden matrices.
// These matrices are the first parameters in c.Params.
func (c *Cell) NumWeightMatrices() (numW, numU int) {
	return c.numW, c.numU
}

// Parameters returns the variables of the cell, ordered
// the same way as c.Params.
func (c *Cell) Parameters() []*anydiff.Var {
	var res []*anydiff.Var
	for _, p := range c.Params {
		res = append(res, p.Var)
	}
	return res
}

// Start produces a zero start state with a batch size of
// n.
func (c *Cell) Start(n int) anyrnn.State {
	present := make(anyrnn.PresentMap, n)
	for i := range present {
		present[i] = true
	}
	return &State{
		Vector:     c.Creator.MakeVector(n * c.Config.HiddenSize),
		PresentMap: present,
	}
}

// PropagateStart does nothing, since the start state is
// constant.
func (c *Cell) PropagateStart(s anyrnn.StateGrad, g anydiff.Grad) {
}

// Step applies the cell for a single timestep.
func (c *Cell) Step(s anyrnn.State, in anyvec.Vector) anyrnn.Res {
	state := s.(*State)
	n := state.PresentMap.NumPresent()
	if in.Len() != n*c.Config.InputSize {
		panic(fmt.Sprintf("input size %d does not match batch %d of size %d",
			in.Len(), n, c.Config.InputSize))
	}
	res := &stepRes{
		InPool:     anydiff.NewVar(in),
		StatePool:  anydiff.NewVar(state.Vector),
		PresentMap: state.PresentMap,
		V:          anydiff.NewVarSet(c.Parameters()...),
	}
	res.Res = c.apply(res.InPool, res.StatePool, n)
	return res
}

func (c *Cell) apply(in, state anydiff.Res, n int) anydiff.Res {
	pre := anydiff.Add(
		project(in, n, c.Params[:c.numW]),
		project(state, n, c.Params[c.numW:c.numW+c.numU]),
	)
	extra := c.Params[c.numW+c.numU:]
	update := c.Config.UpdateNonlinearity

	switch c.Variant {
	case FastRNN:
		bias, alpha, beta := extra[0].Var, extra[1].Var, extra[2].Var
		candidate := update.Apply(anydiff.AddRepeated(pre, bias))
		return anydiff.Add(
			anydiff.ScaleRepeated(candidate, anydiff.Sigmoid(alpha)),
			anydiff.ScaleRepeated(state, anydiff.Sigmoid(beta)),
		)
	case FastGRNN:
		gateBias, updateBias := extra[0].Var, extra[1].Var
		zeta, nu := extra[2].Var, extra[3].Var
		gate := c.Config.GateNonlinearity.Apply(anydiff.AddRepeated(pre, gateBias))
		candidate := update.Apply(anydiff.AddRepeated(pre, updateBias))
		candScale := anydiff.AddRepeated(
			anydiff.ScaleRepeated(anydiff.Complement(gate), anydiff.Sigmoid(zeta)),
			anydiff.Sigmoid(nu),
		)
		return anydiff.Add(
			anydiff.Mul(gate, state),
			anydiff.Mul(candScale, candidate),
		)
	}
	panic("unknown variant: " + c.Variant.String())
}

// project multiplies a batch of row vectors by a chain of
// matrices.
func project(in anydiff.Res, n int, mats []*Param) anydiff.Res {
	out := in
	for _, m := range mats {
		prod := anydiff.MatMul(false, false,
			&anydiff.Matrix{Data: out, Rows: n, Cols: m.Shape[0]},
			&anydiff.Matrix{Data: m.Var, Rows: m.Shape[0], Cols: m.Shape[1]})
		out = prod.Data
	}
	return out
}

type stepRes struct {
	InPool     *anydiff.Var
	StatePool  *anydiff.Var
	Res        anydiff.Res
	PresentMap anyrnn.PresentMap
	V          anydiff.VarSet
}

func (s *stepRes) State() anyrnn.State {
	return &State{Vector: s.Res.Output(), PresentMap: s.PresentMap}
}

func (s *stepRes) Output() anyvec.Vector {
	return s.Res.Output()
}

func (s *stepRes) Vars() anydiff.VarSet {
	return s.V
}

func (s *stepRes) Propagate(u anyvec.Vector, sg anyrnn.StateGrad,
	g anydiff.Grad) (anyvec.Vector, anyrnn.StateGrad) {
	c := s.Res.Output().Creator()

	// The output and the new state are the same vector, so
	// their upstream gradients are summed.
	if u == nil {
		u = c.MakeVector(s.Res.Output().Len())
	}
	if sg != nil {
		u.Add(sg.(*StateGrad).Vector)
	}

	for _, pool := range []*anydiff.Var{s.InPool, s.StatePool} {
		g[pool] = c.MakeVector(pool.Vector.Len())
	}
	s.Res.Propagate(u, g)
	inDown := g[s.InPool]
	stateDown := g[s.StatePool]
	delete(g, s.InPool)
	delete(g, s.StatePool)

	return inDown, &StateGrad{Vector: stateDown, PresentMap: s.PresentMap}
}

// factorShapes computes the matrix shapes for a
// rows-by-cols matrix of the given rank.
func factorShapes(rows, cols, rank int) [][]int {
	if rank == 0 {
		return [][]int{{rows, cols}}
	}
	return [][]int{{rows, rank}, {rank, cols}}
}

func randomParam(c anyvec.Creator, name string, shape []int) *Param {
	vec := c.MakeVector(shape[0] * shape[1])
	anyvec.Rand(vec, anyvec.Normal, nil)
	vec.Scale(c.MakeNumeric(initWeightScale))
	return &Param{Name: name, Shape: shape, Var: anydiff.NewVar(vec)}
}

func constParam(c anyvec.Creator, name string, shape []int, value float64) *Param {
	data := make([]float64, shape[0]*shape[1])
	for i := range data {
		data[i] = value
	}
	return &Param{
		Name:  name,
		Shape: shape,
		Var:   anydiff.NewVar(sparsernn.FromFloat64s(c, data)),
	}
}
