package trainer

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/sbinet/npyio"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/sparsernn"
	"gonum.org/v1/gonum/mat"
)

// LoadDatasets reads train.npy and test.npy from dir.
//
// Each file stores one sample per row: an integer label
// followed by TimeSteps*inputDims features.
// Labels are shifted so that the smallest label in
// either file becomes class 0.
func LoadDatasets(dir string, inputDims int) (train, test *Dataset, err error) {
	trainTable, err := readTable(filepath.Join(dir, "train.npy"))
	if err != nil {
		return nil, nil, err
	}
	testTable, err := readTable(filepath.Join(dir, "test.npy"))
	if err != nil {
		return nil, nil, err
	}

	_, trainCols := trainTable.Dims()
	if _, testCols := testTable.Dims(); testCols != trainCols {
		return nil, nil, fmt.Errorf("%w: train has %d columns but test has %d",
			sparsernn.ErrShapeMismatch, trainCols, testCols)
	}
	if inputDims <= 0 || (trainCols-1)%inputDims != 0 || trainCols < 2 {
		return nil, nil, fmt.Errorf("%w: %d feature columns are not a multiple of %d",
			sparsernn.ErrShapeMismatch, trainCols-1, inputDims)
	}
	timeSteps := (trainCols - 1) / inputDims

	minLabel, maxLabel := labelRange(trainTable)
	testMin, testMax := labelRange(testTable)
	minLabel = essentials.MinInt(minLabel, testMin)
	maxLabel = essentials.MaxInt(maxLabel, testMax)
	numClasses := maxLabel - minLabel + 1

	train, err = tableDataset(trainTable, timeSteps, inputDims, numClasses, minLabel)
	if err != nil {
		return nil, nil, essentials.AddCtx("train data", err)
	}
	test, err = tableDataset(testTable, timeSteps, inputDims, numClasses, minLabel)
	if err != nil {
		return nil, nil, essentials.AddCtx("test data", err)
	}
	return train, test, nil
}

func readTable(path string) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, essentials.AddCtx("load dataset", err)
	}
	defer f.Close()
	var res mat.Dense
	if err := npyio.Read(f, &res); err != nil {
		return nil, essentials.AddCtx("load "+path, err)
	}
	return &res, nil
}

func labelRange(table *mat.Dense) (min, max int) {
	rows, _ := table.Dims()
	for i := 0; i < rows; i++ {
		label := int(math.Round(table.At(i, 0)))
		if i == 0 || label < min {
			min = label
		}
		if i == 0 || label > max {
			max = label
		}
	}
	return
}

func tableDataset(table *mat.Dense, timeSteps, inputDims, numClasses,
	minLabel int) (*Dataset, error) {
	rows, cols := table.Dims()
	features := make([]float64, 0, rows*(cols-1))
	labels := make([]float64, rows*numClasses)
	for i := 0; i < rows; i++ {
		row := table.RawRowView(i)
		features = append(features, row[1:]...)
		class := int(math.Round(row[0])) - minLabel
		labels[i*numClasses+class] = 1
	}
	return NewDataset(features, labels, rows, timeSteps, inputDims, numClasses)
}
