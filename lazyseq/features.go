package lazyseq

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/sparsernn"
)

type featureSeq struct {
	C         anyvec.Creator
	Features  []float64
	Present   []bool
	TimeSteps int
	InputDims int
	Out       <-chan *anyseq.Batch
}

// Features creates a constant Rereader over packed
// features laid out as [n, timeSteps, inputDims].
//
// The vector for a timestep is only built when that
// timestep is read.
func Features(c anyvec.Creator, features []float64, timeSteps, inputDims int) Rereader {
	n := len(features) / (timeSteps * inputDims)
	res := &featureSeq{
		C:         c,
		Features:  features,
		Present:   make([]bool, n),
		TimeSteps: timeSteps,
		InputDims: inputDims,
	}
	for i := range res.Present {
		res.Present[i] = true
	}
	if n == 0 {
		res.Out = sendAll(nil)
	} else {
		res.Out = res.Reread(0, timeSteps)
	}
	return res
}

func (f *featureSeq) Creator() anyvec.Creator {
	return f.C
}

func (f *featureSeq) Forward() <-chan *anyseq.Batch {
	return f.Out
}

func (f *featureSeq) Vars() anydiff.VarSet {
	return anydiff.VarSet{}
}

func (f *featureSeq) Propagate(upstream <-chan *anyseq.Batch, grad Grad) {
	for range f.Out {
	}
	for range upstream {
	}
}

func (f *featureSeq) Reread(start, end int) <-chan *anyseq.Batch {
	res := make(chan *anyseq.Batch, 1)
	go func() {
		defer close(res)
		for t := start; t < end && t < f.TimeSteps; t++ {
			res <- f.timestep(t)
		}
	}()
	return res
}

func (f *featureSeq) timestep(t int) *anyseq.Batch {
	data := make([]float64, 0, len(f.Present)*f.InputDims)
	for i := range f.Present {
		offset := (i*f.TimeSteps + t) * f.InputDims
		data = append(data, f.Features[offset:offset+f.InputDims]...)
	}
	return &anyseq.Batch{
		Packed:  sparsernn.FromFloat64s(f.C, data),
		Present: f.Present,
	}
}
