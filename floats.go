package sparsernn

import (
	"fmt"

	"github.com/unixpickle/anyvec"
)

// Float64s copies the components of a vector into a
// []float64.
//
// The vector should use []float32 or []float64 as its
// numeric type.
// Other types are not supported.
func Float64s(v anyvec.Vector) []float64 {
	switch data := v.Data().(type) {
	case []float64:
		return append([]float64{}, data...)
	case []float32:
		res := make([]float64, len(data))
		for i, x := range data {
			res[i] = float64(x)
		}
		return res
	default:
		panic(fmt.Sprintf("unsupported anyvec.NumericList: %T", data))
	}
}

// FromFloat64s creates a vector with the given
// components.
func FromFloat64s(c anyvec.Creator, data []float64) anyvec.Vector {
	return c.MakeVectorData(c.MakeNumericList(data))
}
