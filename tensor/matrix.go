package tensor

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Matrix is a dense row-major float64 matrix backed by gonum.
type Matrix struct {
	d *mat.Dense
}

// New creates a matrix with the given dimensions.
//
// If data is nil the matrix is zero-filled; otherwise len(data) must
// equal rows*cols (data is used directly, not copied).
func New(rows, cols int, data []float64) *Matrix {
	if data != nil && len(data) != rows*cols {
		panic(&ShapeError{Op: "New", Want: Shape{rows, cols}, Got: Shape{len(data)}})
	}
	return &Matrix{d: mat.NewDense(rows, cols, data)}
}

// Zeros creates a zero-filled matrix.
func Zeros(rows, cols int) *Matrix {
	return New(rows, cols, nil)
}

// Rows returns the number of rows.
func (m *Matrix) Rows() int {
	r, _ := m.d.Dims()
	return r
}

// Cols returns the number of columns.
func (m *Matrix) Cols() int {
	_, c := m.d.Dims()
	return c
}

// Shape returns the matrix shape as [rows, cols].
func (m *Matrix) Shape() Shape {
	r, c := m.d.Dims()
	return Shape{r, c}
}

// At returns the element at (i, j).
func (m *Matrix) At(i, j int) float64 {
	return m.d.At(i, j)
}

// Set assigns the element at (i, j).
func (m *Matrix) Set(i, j int, v float64) {
	m.d.Set(i, j, v)
}

// Data returns the backing slice in row-major order.
//
// The slice aliases the matrix storage; writes through it are visible
// to every other view of the matrix. The optimizers rely on this for
// in-place parameter updates.
func (m *Matrix) Data() []float64 {
	return m.d.RawMatrix().Data
}

// Dense exposes the underlying gonum matrix.
func (m *Matrix) Dense() *mat.Dense {
	return m.d
}

// Clone returns a deep copy.
func (m *Matrix) Clone() *Matrix {
	var out mat.Dense
	out.CloneFrom(m.d)
	return &Matrix{d: &out}
}

// MatMul computes m @ o.
//
// [r, c] @ [c, k] = [r, k]. Panics with a ShapeError if the inner
// dimensions disagree.
func (m *Matrix) MatMul(o *Matrix) *Matrix {
	if m.Cols() != o.Rows() {
		panic(&ShapeError{Op: "MatMul", Want: Shape{m.Cols(), -1}, Got: o.Shape()})
	}
	var out mat.Dense
	out.Mul(m.d, o.d)
	return &Matrix{d: &out}
}

// TMul computes mᵀ @ o.
//
// [r, c]ᵀ @ [r, k] = [c, k]. Used for weight gradients (dW = dzᵀ @ x).
func (m *Matrix) TMul(o *Matrix) *Matrix {
	if m.Rows() != o.Rows() {
		panic(&ShapeError{Op: "TMul", Want: Shape{m.Rows(), -1}, Got: o.Shape()})
	}
	var out mat.Dense
	out.Mul(m.d.T(), o.d)
	return &Matrix{d: &out}
}

// MulT computes m @ oᵀ.
//
// [r, c] @ [k, c]ᵀ = [r, k]. Used for the dense forward pass (x @ Wᵀ).
func (m *Matrix) MulT(o *Matrix) *Matrix {
	if m.Cols() != o.Cols() {
		panic(&ShapeError{Op: "MulT", Want: Shape{-1, m.Cols()}, Got: o.Shape()})
	}
	var out mat.Dense
	out.Mul(m.d, o.d.T())
	return &Matrix{d: &out}
}

// Add returns m + o element-wise.
func (m *Matrix) Add(o *Matrix) *Matrix {
	m.mustMatch("Add", o)
	var out mat.Dense
	out.Add(m.d, o.d)
	return &Matrix{d: &out}
}

// Sub returns m - o element-wise.
func (m *Matrix) Sub(o *Matrix) *Matrix {
	m.mustMatch("Sub", o)
	var out mat.Dense
	out.Sub(m.d, o.d)
	return &Matrix{d: &out}
}

// MulElem returns the element-wise (Hadamard) product.
func (m *Matrix) MulElem(o *Matrix) *Matrix {
	m.mustMatch("MulElem", o)
	var out mat.Dense
	out.MulElem(m.d, o.d)
	return &Matrix{d: &out}
}

// Scale returns f * m.
func (m *Matrix) Scale(f float64) *Matrix {
	var out mat.Dense
	out.Scale(f, m.d)
	return &Matrix{d: &out}
}

// Apply returns a new matrix with fn applied to every element.
func (m *Matrix) Apply(fn func(v float64) float64) *Matrix {
	var out mat.Dense
	out.Apply(func(_, _ int, v float64) float64 { return fn(v) }, m.d)
	return &Matrix{d: &out}
}

// AddRow broadcasts a [1, c] row over every row of m and returns the sum.
//
// This is the bias add of a dense layer.
func (m *Matrix) AddRow(row *Matrix) *Matrix {
	if row.Rows() != 1 || row.Cols() != m.Cols() {
		panic(&ShapeError{Op: "AddRow", Want: Shape{1, m.Cols()}, Got: row.Shape()})
	}
	out := m.Clone()
	data := out.Data()
	r, c := out.Rows(), out.Cols()
	rowData := row.Data()
	for i := 0; i < r; i++ {
		base := i * c
		for j := 0; j < c; j++ {
			data[base+j] += rowData[j]
		}
	}
	return out
}

// ColSums returns a [1, c] matrix of per-column sums.
//
// This is the bias gradient of a dense layer.
func (m *Matrix) ColSums() *Matrix {
	r, c := m.Rows(), m.Cols()
	out := Zeros(1, c)
	sums := out.Data()
	data := m.Data()
	for i := 0; i < r; i++ {
		base := i * c
		for j := 0; j < c; j++ {
			sums[j] += data[base+j]
		}
	}
	return out
}

// TakeRows gathers the given rows, in order, into a new matrix.
//
// Used to assemble (possibly shuffled) mini-batches. Panics if an
// index is out of range.
func (m *Matrix) TakeRows(indices []int) *Matrix {
	r, c := m.Rows(), m.Cols()
	out := Zeros(len(indices), c)
	src := m.Data()
	dst := out.Data()
	for i, idx := range indices {
		if idx < 0 || idx >= r {
			panic(fmt.Sprintf("TakeRows: index %d out of range [0, %d)", idx, r))
		}
		copy(dst[i*c:(i+1)*c], src[idx*c:(idx+1)*c])
	}
	return out
}

// Row returns row i as a [1, c] matrix (copied).
func (m *Matrix) Row(i int) *Matrix {
	return m.TakeRows([]int{i})
}

// EqualApprox reports element-wise equality within tol.
func (m *Matrix) EqualApprox(o *Matrix, tol float64) bool {
	if !m.Shape().Equal(o.Shape()) {
		return false
	}
	return mat.EqualApprox(m.d, o.d, tol)
}

func (m *Matrix) mustMatch(op string, o *Matrix) {
	if !m.Shape().Equal(o.Shape()) {
		panic(&ShapeError{Op: op, Want: m.Shape(), Got: o.Shape()})
	}
}
