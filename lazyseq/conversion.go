package lazyseq

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyvec"
)

type lazySeq struct {
	Seq anyseq.Seq
	Out <-chan *anyseq.Batch
}

// Lazify wraps an in-memory anyseq.Seq.
func Lazify(seq anyseq.Seq) Rereader {
	return &lazySeq{Seq: seq, Out: sendAll(seq.Output())}
}

func (l *lazySeq) Creator() anyvec.Creator {
	return l.Seq.Creator()
}

func (l *lazySeq) Forward() <-chan *anyseq.Batch {
	return l.Out
}

func (l *lazySeq) Vars() anydiff.VarSet {
	return l.Seq.Vars()
}

func (l *lazySeq) Propagate(upstream <-chan *anyseq.Batch, grad Grad) {
	ups := receiveAll(upstream, len(l.Seq.Output()))
	grad.Use(func(g anydiff.Grad) {
		l.Seq.Propagate(ups, g)
	})
}

func (l *lazySeq) Reread(start, end int) <-chan *anyseq.Batch {
	return sendAll(l.Seq.Output()[start:end])
}

type eagerSeq struct {
	Seq  Seq
	Outs []*anyseq.Batch
	V    anydiff.VarSet
}

// Unlazify reads an unused Seq into memory.
func Unlazify(seq Seq) anyseq.Seq {
	var outs []*anyseq.Batch
	for out := range seq.Forward() {
		outs = append(outs, out)
	}
	return &eagerSeq{Seq: seq, Outs: outs, V: seq.Vars()}
}

func (e *eagerSeq) Creator() anyvec.Creator {
	return e.Seq.Creator()
}

func (e *eagerSeq) Output() []*anyseq.Batch {
	return e.Outs
}

func (e *eagerSeq) Vars() anydiff.VarSet {
	return e.V
}

func (e *eagerSeq) Propagate(upstream []*anyseq.Batch, g anydiff.Grad) {
	ch := make(chan *anyseq.Batch, len(upstream))
	for i := len(upstream) - 1; i >= 0; i-- {
		ch <- upstream[i]
	}
	close(ch)
	e.Seq.Propagate(ch, NewGrad(g))
}

func sendAll(batches []*anyseq.Batch) <-chan *anyseq.Batch {
	res := make(chan *anyseq.Batch, len(batches))
	for _, b := range batches {
		res <- b
	}
	close(res)
	return res
}

// receiveAll reads exactly n upstream batches, which
// arrive last-to-first, and returns them first-to-last.
func receiveAll(upstream <-chan *anyseq.Batch, n int) []*anyseq.Batch {
	res := make([]*anyseq.Batch, n)
	for i := n - 1; i >= 0; i-- {
		var ok bool
		res[i], ok = <-upstream
		if !ok {
			panic("not enough upstream batches")
		}
	}
	if _, ok := <-upstream; ok {
		panic("too many upstream batches")
	}
	return res
}
