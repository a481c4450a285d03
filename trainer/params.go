package trainer

import (
	"sync"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/sparsernn"
	"github.com/unixpickle/sparsernn/fastcell"
)

// A ParamSet is the ordered list of every trainable
// parameter in a model.
//
// The first NumW parameters are input matrices, the next
// NumU parameters are hidden matrices, and the rest are
// dense parameters (cell vectors and scalars, followed by
// the classifier).
//
// Updates go through Update and reads go through View.
type ParamSet struct {
	NumW int
	NumU int

	lock   sync.RWMutex
	params []*fastcell.Param
}

// NewParamSet creates a ParamSet for a cell and its
// classifier.
func NewParamSet(cell *fastcell.Cell, classifier *anynet.FC) *ParamSet {
	numW, numU := cell.NumWeightMatrices()
	params := append([]*fastcell.Param{}, cell.Params...)
	params = append(params,
		&fastcell.Param{
			Name:       "FC",
			Shape:      []int{classifier.InCount, classifier.OutCount},
			Var:        classifier.Weights,
			Transposed: true,
		},
		&fastcell.Param{
			Name:  "FCbias",
			Shape: []int{classifier.OutCount},
			Var:   classifier.Biases,
		},
	)
	return &ParamSet{NumW: numW, NumU: numU, params: params}
}

// Params returns every parameter.
func (p *ParamSet) Params() []*fastcell.Param {
	return p.params
}

// Vars returns the variables of every parameter.
func (p *ParamSet) Vars() []*anydiff.Var {
	res := make([]*anydiff.Var, len(p.params))
	for i, param := range p.params {
		res[i] = param.Var
	}
	return res
}

// Matrices returns the input and hidden matrices, which
// are the parameters subject to sparsification.
func (p *ParamSet) Matrices() []*fastcell.Param {
	return p.params[:p.NumW+p.NumU]
}

// Sparsity returns the sparsity factor that applies to
// the i-th parameter.
// Parameters outside of the matrix partition are always
// dense.
func (p *ParamSet) Sparsity(i int, s Sparsity) float64 {
	if i < p.NumW {
		return s.W
	} else if i < p.NumW+p.NumU {
		return s.U
	}
	return 1
}

// View calls f while holding a read lock, so that no
// update is applied while f runs.
func (p *ParamSet) View(f func(params []*fastcell.Param)) {
	p.lock.RLock()
	defer p.lock.RUnlock()
	f(p.params)
}

// Update calls f while holding the write lock, so that
// no reader observes a partially updated set.
func (p *ParamSet) Update(f func(params []*fastcell.Param)) {
	p.lock.Lock()
	defer p.lock.Unlock()
	f(p.params)
}

// Values copies the current value of every parameter.
func (p *ParamSet) Values() [][]float64 {
	var res [][]float64
	p.View(func(params []*fastcell.Param) {
		for _, param := range params {
			res = append(res, sparsernn.Float64s(param.Var.Vector))
		}
	})
	return res
}
