package globimap

import "fmt"

// A Raster is a row-major grid of cells read from a Bitmap or a Sketch:
// Data[i*Cols+j] is the cell at (X+i, Y+j).
type Raster struct {
	X, Y       uint64
	Rows, Cols int
	Data       []float64
}

func newRaster(x, y uint64, rows, cols int) (*Raster, error) {
	if rows < 0 || cols < 0 {
		return nil, fmt.Errorf("globimap: raster of %d x %d cells", rows, cols)
	}
	return &Raster{X: x, Y: y, Rows: rows, Cols: cols, Data: make([]float64, rows*cols)}, nil
}

// At returns the cell at row i, column j.
func (r *Raster) At(i, j int) float64 { return r.Data[i*r.Cols+j] }

// Sum returns the sum of every cell.
func (r *Raster) Sum() float64 {
	var sum float64
	for _, v := range r.Data {
		sum += v
	}
	return sum
}
