package lazyseq

import (
	"math/rand"
	"testing"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyvec"
)

// testSeqs creates a batch of random sequences which
// depend on one variable per timestep.
func testSeqs(c anyvec.Creator, inSize int, lengths ...int) anyseq.Seq {
	var seqs [][]anyvec.Vector
	for _, length := range lengths {
		var seq []anyvec.Vector
		for j := 0; j < length; j++ {
			vec := c.MakeVector(inSize)
			anyvec.Rand(vec, anyvec.Normal, nil)
			seq = append(seq, vec)
		}
		seqs = append(seqs, seq)
	}
	joined := anyseq.ConstSeqList(c, seqs)
	var batches []*anyseq.ResBatch
	for _, x := range joined.Output() {
		batches = append(batches, &anyseq.ResBatch{
			Packed:  anydiff.NewVar(x.Packed),
			Present: x.Present,
		})
	}
	return anyseq.ResSeq(c, batches)
}

// resGradient back-propagates a fixed random upstream
// vector through r.
func resGradient(r anydiff.Res) anydiff.Grad {
	gen := rand.New(rand.NewSource(1337))
	data := make([]float64, r.Output().Len())
	for i := range data {
		data[i] = gen.NormFloat64()
	}
	c := r.Output().Creator()
	grad := anydiff.NewGrad(r.Vars().Slice()...)
	r.Propagate(c.MakeVectorData(c.MakeNumericList(data)), grad)
	return grad
}

func vectorsClose(t *testing.T, name string, actual, expected anyvec.Vector) {
	if actual.Len() != expected.Len() {
		t.Errorf("%s: expected length %d got %d", name, expected.Len(), actual.Len())
		return
	}
	if actual.Len() == 0 {
		return
	}
	diff := actual.Copy()
	diff.Sub(expected)
	if anyvec.AbsMax(diff).(float64) > 1e-4 {
		t.Errorf("%s: expected %v got %v", name, expected.Data(), actual.Data())
	}
}

func gradientsClose(t *testing.T, actual, expected anydiff.Grad) {
	if len(actual) != len(expected) {
		t.Errorf("expected %d variables got %d", len(expected), len(actual))
	}
	for v, vec := range expected {
		if actual[v] == nil {
			t.Error("missing variable")
			continue
		}
		vectorsClose(t, "gradient", actual[v], vec)
	}
}
