package lazyseq

import (
	"sync"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyvec"
)

type tailRes struct {
	In      Seq
	Out     anyvec.Vector
	Lengths []int
	Size    int
	Steps   int
}

// Tail packs the last timestep of every sequence in the
// batch, reading seq one timestep at a time.
//
// Empty sequences are skipped.
// Every timestep must have the same vector size per
// present sequence.
func Tail(seq Seq) anydiff.Res {
	res := &tailRes{In: seq}

	var last *anyseq.Batch
	var outs []anyvec.Vector
	endSequences := func(next []bool) {
		for i, pres := range last.Present {
			if pres && !next[i] {
				res.Lengths[i] = res.Steps
				start, end := packedRange(last, i)
				outs[i] = last.Packed.Slice(start, end)
			}
		}
	}

	for batch := range seq.Forward() {
		if last == nil {
			res.Size = batch.Packed.Len() / batch.NumPresent()
			res.Lengths = make([]int, len(batch.Present))
			outs = make([]anyvec.Vector, len(batch.Present))
		} else {
			endSequences(batch.Present)
		}
		last = batch
		res.Steps++
	}
	if last == nil {
		return anydiff.NewConst(seq.Creator().MakeVector(0))
	}
	endSequences(make([]bool, len(last.Present)))

	var nonEmpty []anyvec.Vector
	for _, out := range outs {
		if out != nil {
			nonEmpty = append(nonEmpty, out)
		}
	}
	res.Out = seq.Creator().Concat(nonEmpty...)
	return res
}

func (t *tailRes) Output() anyvec.Vector {
	return t.Out
}

func (t *tailRes) Vars() anydiff.VarSet {
	return t.In.Vars()
}

func (t *tailRes) Propagate(u anyvec.Vector, g anydiff.Grad) {
	downstream := make(chan *anyseq.Batch, 1)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(downstream)

		perSeq := t.splitUpstream(u)
		for step := t.Steps - 1; step >= 0; step-- {
			batch := t.zeroBatch(step)
			for i, length := range t.Lengths {
				if length == step+1 {
					start, end := packedRange(batch, i)
					batch.Packed.Slice(start, end).Set(perSeq[i])
				}
			}
			downstream <- batch
		}
	}()

	t.In.Propagate(downstream, NewGrad(g))
	wg.Wait()
}

func (t *tailRes) splitUpstream(u anyvec.Vector) []anyvec.Vector {
	res := make([]anyvec.Vector, len(t.Lengths))
	var offset int
	for i, length := range t.Lengths {
		if length > 0 {
			res[i] = u.Slice(offset, offset+t.Size)
			offset += t.Size
		}
	}
	return res
}

func (t *tailRes) zeroBatch(step int) *anyseq.Batch {
	present := make([]bool, len(t.Lengths))
	var numPresent int
	for i, length := range t.Lengths {
		if length > step {
			present[i] = true
			numPresent++
		}
	}
	return &anyseq.Batch{
		Present: present,
		Packed:  t.In.Creator().MakeVector(numPresent * t.Size),
	}
}

// packedRange finds the range of a sequence's vector in
// a packed batch.
func packedRange(batch *anyseq.Batch, seqIdx int) (start, end int) {
	size := batch.Packed.Len() / batch.NumPresent()
	for _, pres := range batch.Present[:seqIdx] {
		if pres {
			start += size
		}
	}
	return start, start + size
}
