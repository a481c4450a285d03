// Package lazyrnn runs anyrnn.Blocks over lazy
// sequences.
package lazyrnn

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anynet/anyrnn"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/sparsernn/lazyseq"
)

// A fragment is the result of running a block over a
// range of timesteps, starting from a known state.
//
// It keeps every step's result until it has been
// back-propagated through.
type fragment struct {
	forward <-chan *anyseq.Batch

	// Fields below are immutable once done is closed.
	done  <-chan struct{}
	reses []anyrnn.Res
	v     anydiff.VarSet
}

// runFragment applies the block to the inputs.
// If start is nil, the block's start state is used.
func runFragment(in <-chan *anyseq.Batch, block anyrnn.Block,
	start anyrnn.State) *fragment {
	out := make(chan *anyseq.Batch, 1)
	done := make(chan struct{})
	frag := &fragment{forward: out, done: done, v: anydiff.VarSet{}}

	go func() {
		defer close(done)
		defer close(out)
		state := start
		for batch := range in {
			if state == nil {
				state = block.Start(len(batch.Present))
			}
			if batch.NumPresent() != state.Present().NumPresent() {
				state = state.Reduce(batch.Present)
			}
			res := block.Step(state, batch.Packed)
			frag.reses = append(frag.reses, res)
			frag.v = anydiff.MergeVarSets(frag.v, res.Vars())
			state = res.State()
			out <- &anyseq.Batch{Packed: res.Output(), Present: state.Present()}
		}
	}()

	return frag
}

func (f *fragment) Vars() anydiff.VarSet {
	<-f.done
	return f.v
}

// Propagate back-propagates through the fragment.
//
// It reads one upstream batch per timestep, but leaves
// the upstream channel open.
// Input gradients are sent to down unless it is nil.
// The gradient of the fragment's start state is returned.
func (f *fragment) Propagate(down chan<- *anyseq.Batch, up <-chan *anyseq.Batch,
	stateUp anyrnn.StateGrad, grad lazyseq.Grad) anyrnn.StateGrad {
	for range f.forward {
	}
	<-f.done

	stateGrad := stateUp
	for i := len(f.reses) - 1; i >= 0; i-- {
		res := f.reses[i]
		pres := res.State().Present()
		if stateGrad != nil && stateGrad.Present().NumPresent() != pres.NumPresent() {
			stateGrad = stateGrad.Expand(pres)
		}
		upBatch, ok := <-up
		if !ok {
			panic("not enough upstream batches")
		}
		var inDown anyvec.Vector
		grad.Use(func(g anydiff.Grad) {
			inDown, stateGrad = res.Propagate(upBatch.Packed, stateGrad, g)
		})
		if down != nil {
			down <- &anyseq.Batch{Packed: inDown, Present: upBatch.Present}
		}
	}
	return stateGrad
}

// propagateStart passes a start-state gradient to the
// block, restoring sequences that ended early.
func propagateStart(block anyrnn.Block, stateGrad anyrnn.StateGrad, grad lazyseq.Grad) {
	numSeqs := len(stateGrad.Present())
	if stateGrad.Present().NumPresent() != numSeqs {
		all := make(anyrnn.PresentMap, numSeqs)
		for i := range all {
			all[i] = true
		}
		stateGrad = stateGrad.Expand(all)
	}
	grad.Use(func(g anydiff.Grad) {
		block.PropagateStart(stateGrad, g)
	})
}
