package trainer

import (
	"github.com/unixpickle/sparsernn"
	"github.com/unixpickle/sparsernn/fastcell"
)

// Size is the estimated on-device size of a model.
type Size struct {
	NonZero   int
	Bytes     int
	HasSparse bool
}

// KB returns the size in kilobytes.
func (s Size) KB() float64 {
	return float64(s.Bytes) / 1024
}

// ModelSize estimates the size of a model trained at the
// given sparsity.
//
// Input matrices are counted at sparsity s.W and hidden
// matrices at sparsity s.U.
// Every other parameter, including the classifier, is
// counted as dense.
func ModelSize(params *ParamSet, s Sparsity) Size {
	var total sparsernn.Count
	params.View(func(ps []*fastcell.Param) {
		for i, p := range ps {
			total = total.Add(sparsernn.CountNonZero(p.Var.Vector, params.Sparsity(i, s)))
		}
	})
	return Size{NonZero: total.NonZero, Bytes: total.Bytes, HasSparse: total.Sparse}
}
