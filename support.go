package sparsernn

import (
	"fmt"

	"github.com/unixpickle/anyvec"
)

// CopySupport produces a vector which equals src wherever
// ref is non-zero and is zero everywhere else.
//
// In other words, the result has the support of ref and
// the values of src.
func CopySupport(ref, src anyvec.Vector) (anyvec.Vector, error) {
	if ref.Len() != src.Len() {
		return nil, fmt.Errorf("%w: support has %d entries but source has %d",
			ErrShapeMismatch, ref.Len(), src.Len())
	}
	refData := Float64s(ref)
	res := Float64s(src)
	for i, x := range refData {
		if x == 0 {
			res[i] = 0
		}
	}
	return FromFloat64s(src.Creator(), res), nil
}
