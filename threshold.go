package sparsernn

import (
	"math"
	"sort"

	"github.com/unixpickle/anyvec"
)

// HardThreshold zeros all but the largest-magnitude
// entries of v.
//
// The number of retained entries is round(s*v.Len()).
// Entries with equal magnitude are ranked by their index,
// so lower indices are kept first.
//
// If s >= 1, a copy of v is returned.
// The result never aliases v.
func HardThreshold(v anyvec.Vector, s float64) anyvec.Vector {
	if s >= 1 {
		return v.Copy()
	}
	data := Float64s(v)
	keep := TargetNonZero(len(data), s)

	order := make([]int, len(data))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return math.Abs(data[order[i]]) > math.Abs(data[order[j]])
	})

	res := make([]float64, len(data))
	for _, idx := range order[:keep] {
		res[idx] = data[idx]
	}
	return FromFloat64s(v.Creator(), res)
}

// TargetNonZero computes the number of entries that a
// tensor with n entries keeps at sparsity s.
func TargetNonZero(n int, s float64) int {
	if s <= 0 {
		return 0
	} else if s >= 1 {
		return n
	}
	k := int(math.Round(s * float64(n)))
	if k > n {
		return n
	}
	return k
}
