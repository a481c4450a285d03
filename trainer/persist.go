package trainer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sbinet/npyio"
	"github.com/sourcegraph/conc/pool"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/sparsernn"
	"github.com/unixpickle/sparsernn/fastcell"
	"gonum.org/v1/gonum/mat"
)

// SaveParams writes every parameter to dir as a .npy
// file named after the parameter.
//
// Matrices are written as 2-D arrays in their persisted
// layout, other parameters as 1-D arrays.
func SaveParams(dir string, params *ParamSet) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return essentials.AddCtx("save parameters", err)
	}
	values := params.Values()

	p := pool.New().WithErrors()
	for i, param := range params.Params() {
		param, value := param, values[i]
		p.Go(func() error {
			path := filepath.Join(dir, param.Name+".npy")
			if err := writeParam(path, param, value); err != nil {
				return essentials.AddCtx("save "+param.Name, err)
			}
			return nil
		})
	}
	return p.Wait()
}

func writeParam(path string, param *fastcell.Param, value []float64) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()
	if len(param.Shape) != 2 {
		return npyio.Write(f, value)
	}
	return npyio.Write(f, paramMatrix(param, value))
}

// paramMatrix arranges the value of a 2-D parameter in
// its persisted layout.
func paramMatrix(param *fastcell.Param, value []float64) *mat.Dense {
	rows, cols := param.Shape[0], param.Shape[1]
	if !param.Transposed {
		return mat.NewDense(rows, cols, value)
	}
	stored := mat.NewDense(cols, rows, value)
	var res mat.Dense
	res.CloneFrom(stored.T())
	return &res
}

// LoadParam reads a parameter file written by SaveParams.
// It returns the values in the parameter's storage order.
func LoadParam(path string, param *fastcell.Param) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if len(param.Shape) != 2 {
		var res []float64
		if err := npyio.Read(f, &res); err != nil {
			return nil, essentials.AddCtx("load "+param.Name, err)
		}
		return res, nil
	}
	var m mat.Dense
	if err := npyio.Read(f, &m); err != nil {
		return nil, essentials.AddCtx("load "+param.Name, err)
	}
	res := &m
	if param.Transposed {
		res = &mat.Dense{}
		res.CloneFrom(m.T())
	}
	return res.RawMatrix().Data, nil
}

// LoadParams reads every parameter from a directory
// written by SaveParams and assigns the values to params.
//
// Nothing is assigned unless every file loads and matches
// the size of its parameter.
func LoadParams(dir string, params *ParamSet) error {
	ps := params.Params()
	values := make([][]float64, len(ps))

	p := pool.New().WithErrors()
	for i, param := range ps {
		i, param := i, param
		p.Go(func() error {
			value, err := LoadParam(filepath.Join(dir, param.Name+".npy"), param)
			if err != nil {
				return err
			}
			if len(value) != param.Len() {
				return fmt.Errorf("%w: %s has %d values but expected %d",
					sparsernn.ErrShapeMismatch, param.Name, len(value), param.Len())
			}
			values[i] = value
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return err
	}

	params.Update(func(ps []*fastcell.Param) {
		for i, param := range ps {
			c := param.Var.Vector.Creator()
			param.Var.Vector.Set(sparsernn.FromFloat64s(c, values[i]))
		}
	})
	return nil
}

// AppendResult appends a line to the results log of a
// cell variant in dataDir.
func AppendResult(dataDir string, v fastcell.Variant, line string) error {
	path := filepath.Join(dataDir, v.String()+"Results.txt")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return essentials.AddCtx("results log", err)
	}
	defer f.Close()
	if _, err := fmt.Fprintln(f, line); err != nil {
		return essentials.AddCtx("results log", err)
	}
	return nil
}
