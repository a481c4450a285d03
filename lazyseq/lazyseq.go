// Package lazyseq streams sequences of differentiable
// vectors one timestep at a time.
//
// A lazy sequence never needs to hold every timestep in
// memory, which keeps the cost of long sequences and
// large evaluation batches bounded.
// The lazyrnn sub-package runs recurrent blocks over
// lazy sequences.
package lazyseq

import (
	"sync"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyvec"
)

// Seq is a lazily-evaluated sequence.
type Seq interface {
	// Creator returns the anyvec.Creator of the sequence.
	Creator() anyvec.Creator

	// Forward returns a channel of timesteps, starting
	// with the first one.
	// The channel is closed after the last timestep.
	//
	// The same channel is returned every time, and it may
	// not be used once Propagate has been called.
	Forward() <-chan *anyseq.Batch

	// Vars returns the variables upon which the sequence
	// depends.
	// It may block until Forward has been drained.
	Vars() anydiff.VarSet

	// Propagate performs back-propagation.
	//
	// The upstream channel is sent gradients from the
	// last timestep to the first, and the caller closes it
	// once every timestep has been sent.
	// Upstream vectors may be used as scratch space.
	Propagate(upstream <-chan *anyseq.Batch, grad Grad)
}

// A Rereader is a Seq which can re-produce any range of
// its timesteps.
type Rereader interface {
	Seq

	// Reread creates a channel which is sent the timesteps
	// in the range [start, end), then closed.
	Reread(start, end int) <-chan *anyseq.Batch
}

// Grad is a gradient which may be shared between the
// goroutines of a back-propagation.
type Grad interface {
	// Use calls f while no other call to Use is running.
	Use(f func(g anydiff.Grad))
}

type lockedGrad struct {
	lock sync.Mutex
	grad anydiff.Grad
}

// NewGrad wraps a raw gradient.
func NewGrad(g anydiff.Grad) Grad {
	return &lockedGrad{grad: g}
}

func (l *lockedGrad) Use(f func(g anydiff.Grad)) {
	l.lock.Lock()
	defer l.lock.Unlock()
	f(l.grad)
}
