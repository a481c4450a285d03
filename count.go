package sparsernn

import "github.com/unixpickle/anyvec"

// Sizes used to estimate the on-device footprint of a
// parameter.
//
// Dense parameters are stored as full arrays, costing
// BytesPerValue per entry, zero or not.
// Sparse parameters are stored as (index, value) pairs,
// costing BytesPerValue+BytesPerIndex per non-zero.
const (
	BytesPerValue = 4
	BytesPerIndex = 4
)

// A Count summarizes the size of one parameter.
type Count struct {
	// Elements is the total number of entries.
	Elements int

	// NonZero is the number of non-zero entries.
	// For sparse parameters, this is the target count
	// rather than the observed one.
	NonZero int

	// Bytes is the estimated storage size.
	Bytes int

	// Sparse is true if the parameter is sparsified.
	Sparse bool
}

// CountNonZero computes the Count for a parameter that is
// trained at sparsity s.
//
// If s >= 1, the parameter is treated as dense and the
// actual number of non-zero entries is counted.
// Otherwise, the a-priori target round(s*n) is used,
// regardless of the contents of v.
func CountNonZero(v anyvec.Vector, s float64) Count {
	res := Count{Elements: v.Len()}
	if s < 1 {
		res.Sparse = true
		res.NonZero = TargetNonZero(res.Elements, s)
		res.Bytes = res.NonZero * (BytesPerValue + BytesPerIndex)
		return res
	}
	for _, x := range Float64s(v) {
		if x != 0 {
			res.NonZero++
		}
	}
	res.Bytes = res.Elements * BytesPerValue
	return res
}

// Add adds two counts together.
//
// The result is sparse if either count is sparse.
func (c Count) Add(other Count) Count {
	return Count{
		Elements: c.Elements + other.Elements,
		NonZero:  c.NonZero + other.NonZero,
		Bytes:    c.Bytes + other.Bytes,
		Sparse:   c.Sparse || other.Sparse,
	}
}
