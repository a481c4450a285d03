package lazyrnn

import (
	"sync"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anynet/anyrnn"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/sparsernn/lazyseq"
)

type bpttSeq struct {
	In    lazyseq.Seq
	Block anyrnn.Block
	Frag  *fragment

	vLock sync.Mutex
	v     anydiff.VarSet
}

// BPTT applies the block to the sequence with plain
// back-propagation through time.
//
// Outputs are produced as the input is read, but every
// step is kept until back-propagation.
func BPTT(in lazyseq.Seq, block anyrnn.Block) lazyseq.Seq {
	return &bpttSeq{
		In:    in,
		Block: block,
		Frag:  runFragment(in.Forward(), block, nil),
	}
}

func (b *bpttSeq) Creator() anyvec.Creator {
	return b.In.Creator()
}

func (b *bpttSeq) Forward() <-chan *anyseq.Batch {
	return b.Frag.forward
}

func (b *bpttSeq) Vars() anydiff.VarSet {
	b.vLock.Lock()
	defer b.vLock.Unlock()
	if b.v == nil {
		b.v = anydiff.MergeVarSets(b.Frag.Vars(), b.In.Vars())
	}
	return b.v
}

func (b *bpttSeq) Propagate(u <-chan *anyseq.Batch, grad lazyseq.Grad) {
	for range b.Frag.forward {
	}
	propagateWithInput(b.In, b.Block, grad, u, func(down chan<- *anyseq.Batch) anyrnn.StateGrad {
		return b.Frag.Propagate(down, u, nil, grad)
	})
}

// propagateWithInput runs a backward pass which produces
// input gradients, feeding them to the input sequence
// when it depends on any variable in grad.
//
// The forward pass must be finished before it is called.
func propagateWithInput(in lazyseq.Seq, block anyrnn.Block, grad lazyseq.Grad,
	u <-chan *anyseq.Batch, backward func(down chan<- *anyseq.Batch) anyrnn.StateGrad) {
	var downstream chan *anyseq.Batch
	grad.Use(func(g anydiff.Grad) {
		if g.Intersects(in.Vars()) {
			downstream = make(chan *anyseq.Batch, 1)
		}
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if downstream != nil {
			defer close(downstream)
		}
		if stateGrad := backward(downstream); stateGrad != nil {
			propagateStart(block, stateGrad, grad)
		}
		if _, ok := <-u; ok {
			panic("too many upstream batches")
		}
	}()

	if downstream != nil {
		in.Propagate(downstream, grad)
	}
	wg.Wait()
}
