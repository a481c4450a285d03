package fastcell

import (
	"reflect"
	"testing"

	"github.com/unixpickle/anynet/anyrnn"
	"github.com/unixpickle/anyvec/anyvec64"
	"github.com/unixpickle/sparsernn"
)

func TestStateReduce(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	state := &State{
		Vector:     c.MakeVectorData([]float64{1, 2, 3, 4, 5, 6}),
		PresentMap: anyrnn.PresentMap{true, false, true, true},
	}
	reduced := state.Reduce(anyrnn.PresentMap{true, false, false, true}).(*State)
	if actual := sparsernn.Float64s(reduced.Vector); !reflect.DeepEqual(actual,
		[]float64{1, 2, 5, 6}) {
		t.Errorf("unexpected reduced vector: %v", actual)
	}
	if reduced.Present().NumPresent() != 2 {
		t.Errorf("unexpected present map: %v", reduced.Present())
	}
}

func TestStateGradExpand(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	grad := &StateGrad{
		Vector:     c.MakeVectorData([]float64{1, 2, 5, 6}),
		PresentMap: anyrnn.PresentMap{true, false, false, true},
	}
	expanded := grad.Expand(anyrnn.PresentMap{true, false, true, true}).(*StateGrad)
	expected := []float64{1, 2, 0, 0, 5, 6}
	if actual := sparsernn.Float64s(expanded.Vector); !reflect.DeepEqual(actual,
		expected) {
		t.Errorf("expected %v got %v", expected, actual)
	}
	if !reflect.DeepEqual(expanded.Present(), anyrnn.PresentMap{true, false, true,
		true}) {
		t.Errorf("unexpected present map: %v", expanded.Present())
	}
}
