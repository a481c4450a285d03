package trainer

import (
	"math/rand"
	"testing"

	"github.com/unixpickle/anyvec/anyvec64"
	"github.com/unixpickle/sparsernn/fastcell"
)

const (
	testTimeSteps  = 4
	testInputDims  = 3
	testNumClasses = 2
)

func testCell(t *testing.T, v fastcell.Variant, cfg fastcell.Config) *fastcell.Cell {
	cell, err := fastcell.New(anyvec64.DefaultCreator{}, v, cfg)
	if err != nil {
		t.Fatal(err)
	}
	return cell
}

// testTask is shared by every test dataset, so that
// train and test splits come from the same classes.
var testTask = NewSyntheticTask(newRand(0), testTimeSteps, testInputDims,
	testNumClasses)

func testData(seed int64, n int) *Dataset {
	return testTask.Sample(newRand(seed), n)
}

func testGraph(t *testing.T, v fastcell.Variant, cfg fastcell.Config) *Graph {
	graph, err := NewGraph(testCell(t, v, cfg), testData(1, 20))
	if err != nil {
		t.Fatal(err)
	}
	return graph
}

func countNonZero(data []float64) int {
	var res int
	for _, x := range data {
		if x != 0 {
			res++
		}
	}
	return res
}

func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
