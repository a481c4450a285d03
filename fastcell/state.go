package fastcell

import (
	"github.com/unixpickle/anynet/anyrnn"
	"github.com/unixpickle/anyvec"
)

// State is a batch of hidden states.
//
// Vector packs the hidden state of every present
// sequence, one after another.
type State struct {
	Vector     anyvec.Vector
	PresentMap anyrnn.PresentMap
}

// Present returns the present map.
func (s *State) Present() anyrnn.PresentMap {
	return s.PresentMap
}

// Reduce removes the states of sequences that are not
// present in p.
func (s *State) Reduce(p anyrnn.PresentMap) anyrnn.State {
	return &State{
		Vector:     reducePacked(s.Vector, s.PresentMap, p),
		PresentMap: p,
	}
}

// StateGrad is the upstream gradient of a State.
type StateGrad struct {
	Vector     anyvec.Vector
	PresentMap anyrnn.PresentMap
}

// Present returns the present map.
func (s *StateGrad) Present() anyrnn.PresentMap {
	return s.PresentMap
}

// Expand inserts zero gradients for sequences which are
// present in p but not in s.
func (s *StateGrad) Expand(p anyrnn.PresentMap) anyrnn.StateGrad {
	union := make(anyrnn.PresentMap, len(s.PresentMap))
	for i, pres := range s.PresentMap {
		union[i] = pres || p[i]
	}
	return &StateGrad{
		Vector:     expandPacked(s.Vector, s.PresentMap, union),
		PresentMap: union,
	}
}

func reducePacked(vec anyvec.Vector, present, subset anyrnn.PresentMap) anyvec.Vector {
	numPresent := present.NumPresent()
	if numPresent == 0 {
		return vec.Creator().MakeVector(0)
	}
	chunk := vec.Len() / numPresent

	var parts []anyvec.Vector
	var offset int
	for i, pres := range present {
		if !pres {
			if subset[i] {
				panic("absent sequence became present again")
			}
			continue
		}
		if subset[i] {
			parts = append(parts, vec.Slice(offset, offset+chunk))
		}
		offset += chunk
	}
	if len(parts) == 0 {
		return vec.Creator().MakeVector(0)
	}
	return vec.Creator().Concat(parts...)
}

func expandPacked(vec anyvec.Vector, present, union anyrnn.PresentMap) anyvec.Vector {
	numPresent := present.NumPresent()
	if numPresent == 0 {
		panic("cannot expand an empty gradient")
	}
	chunk := vec.Len() / numPresent
	c := vec.Creator()

	var parts []anyvec.Vector
	var offset int
	for i, pres := range union {
		if !pres {
			continue
		}
		if present[i] {
			parts = append(parts, vec.Slice(offset, offset+chunk))
			offset += chunk
		} else {
			parts = append(parts, c.MakeVector(chunk))
		}
	}
	return c.Concat(parts...)
}
