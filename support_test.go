package sparsernn

import (
	"errors"
	"reflect"
	"testing"

	"github.com/unixpickle/anyvec/anyvec64"
)

func TestCopySupport(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	ref := c.MakeVectorData([]float64{0, 1, 0, -2, 3})
	src := c.MakeVectorData([]float64{5, 6, 7, 8, 0})

	res, err := CopySupport(ref, src)
	if err != nil {
		t.Fatal(err)
	}
	expected := []float64{0, 6, 0, 8, 0}
	if actual := Float64s(res); !reflect.DeepEqual(actual, expected) {
		t.Errorf("expected %v got %v", expected, actual)
	}
	if !reflect.DeepEqual(Float64s(src), []float64{5, 6, 7, 8, 0}) {
		t.Error("source was modified")
	}
}

func TestCopySupportThresholded(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	orig := c.MakeVectorData([]float64{0.1, -5, 3, 0.2, 4, -0.3})
	ref := HardThreshold(orig, 0.5)
	src := c.MakeVectorData([]float64{1, 2, 3, 4, 5, 6})
	res, err := CopySupport(ref, src)
	if err != nil {
		t.Fatal(err)
	}
	refData := Float64s(ref)
	for i, x := range Float64s(res) {
		if (refData[i] == 0) != (x == 0) {
			t.Errorf("support mismatch at %d", i)
		} else if x != 0 && x != float64(i+1) {
			t.Errorf("value mismatch at %d: %v", i, x)
		}
	}
}

func TestCopySupportMismatch(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	_, err := CopySupport(c.MakeVector(3), c.MakeVector(4))
	if !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch but got %v", err)
	}
}
