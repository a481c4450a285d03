package lazyrnn

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anynet/anyrnn"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/sparsernn/lazyseq"
)

type checkpointSeq struct {
	In       lazyseq.Rereader
	Block    anyrnn.Block
	Interval int

	out <-chan *anyseq.Batch

	// Fields below are immutable once done is closed.
	done     <-chan struct{}
	saved    []anyrnn.State
	v        anydiff.VarSet
	numSteps int
}

// Checkpoint applies the block to the sequence, saving
// only the hidden state of every interval-th timestep.
//
// Back-propagation recomputes one interval at a time
// from the saved states, so memory grows with
// T/interval + interval rather than T.
// An interval near sqrt(T) minimizes memory.
func Checkpoint(interval int, in lazyseq.Rereader, block anyrnn.Block) lazyseq.Seq {
	if interval < 1 {
		panic("invalid checkpoint interval")
	}
	out := make(chan *anyseq.Batch, 1)
	done := make(chan struct{})
	res := &checkpointSeq{
		In:       in,
		Block:    block,
		Interval: interval,
		out:      out,
		done:     done,
		v:        anydiff.VarSet{},
	}
	go res.forward(out, done)
	return res
}

func (c *checkpointSeq) Creator() anyvec.Creator {
	return c.In.Creator()
}

func (c *checkpointSeq) Forward() <-chan *anyseq.Batch {
	return c.out
}

func (c *checkpointSeq) Vars() anydiff.VarSet {
	<-c.done
	return c.v
}

func (c *checkpointSeq) Propagate(u <-chan *anyseq.Batch, grad lazyseq.Grad) {
	for range c.out {
	}
	<-c.done

	propagateWithInput(c.In, c.Block, grad, u, func(down chan<- *anyseq.Batch) anyrnn.StateGrad {
		var stateGrad anyrnn.StateGrad
		end := c.numSteps
		for i := len(c.saved) - 1; i >= 0; i-- {
			start := i * c.Interval
			frag := runFragment(c.In.Reread(start, end), c.Block, c.saved[i])
			stateGrad = frag.Propagate(down, u, stateGrad, grad)
			end = start
		}
		return stateGrad
	})
}

func (c *checkpointSeq) forward(out chan<- *anyseq.Batch, done chan<- struct{}) {
	defer close(out)
	defer close(done)
	var state anyrnn.State
	for batch := range c.In.Forward() {
		if state == nil {
			state = c.Block.Start(len(batch.Present))
		}
		if batch.NumPresent() != state.Present().NumPresent() {
			state = state.Reduce(batch.Present)
		}
		if c.numSteps%c.Interval == 0 {
			c.saved = append(c.saved, state)
		}
		c.numSteps++
		res := c.Block.Step(state, batch.Packed)
		c.v = anydiff.MergeVarSets(c.v, res.Vars())
		state = res.State()
		out <- &anyseq.Batch{Packed: res.Output(), Present: state.Present()}
	}
	c.v = anydiff.MergeVarSets(c.v, c.In.Vars())
}
