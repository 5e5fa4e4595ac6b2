// Copyright 2026 The Strata Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package data provides dataset containers and the preprocessing steps
// that turn raw samples into training-ready matrices.
//
// The usual pipeline for image data:
//
//	raw, _ := mnist.Load(dir)
//	x := data.Normalize(data.Flatten(raw.TrainImages), 255)
//	y, _ := data.OneHot(raw.TrainLabels, 10)
//	ds, _ := data.New(x, y)
package data

import (
	"fmt"

	"github.com/strata-ml/strata/internal/parallel"
	"github.com/strata-ml/strata/tensor"
)

// Grid holds raw fixed-size sample grids as loaded from a dataset
// source, before preprocessing. Pixel values are uint8 in [0, 255].
type Grid struct {
	Data []uint8 // row-major, sample-major: sample n at Data[n*H*W:]
	N    int     // sample count
	H    int     // grid height
	W    int     // grid width
}

// NewGrid wraps raw bytes as an N x H x W grid.
//
// len(raw) must equal n*h*w; a mismatch returns a wrapped
// tensor.ErrShapeMismatch.
func NewGrid(raw []uint8, n, h, w int) (*Grid, error) {
	if len(raw) != n*h*w {
		return nil, fmt.Errorf("grid %dx%dx%d needs %d bytes, got %d: %w",
			n, h, w, n*h*w, len(raw), tensor.ErrShapeMismatch)
	}
	return &Grid{Data: raw, N: n, H: h, W: w}, nil
}

// Flatten reshapes each sample grid into a flat row, preserving sample
// order: N x H x W becomes [N, H*W].
func Flatten(g *Grid) *tensor.Matrix {
	cols := g.H * g.W
	out := tensor.Zeros(g.N, cols)
	dst := out.Data()
	parallel.For(g.N, func(i int) {
		base := i * cols
		for j := 0; j < cols; j++ {
			dst[base+j] = float64(g.Data[base+j])
		}
	}, parallel.DefaultConfig())
	return out
}

// Normalize rescales every value into the unit interval by dividing by
// max (255 for uint8 image intensities). Returns a new matrix.
func Normalize(m *tensor.Matrix, max float64) *tensor.Matrix {
	out := m.Clone()
	dst := out.Data()
	parallel.For(len(dst), func(i int) {
		dst[i] /= max
	}, parallel.DefaultConfig())
	return out
}

// OneHot encodes integer class labels as one-hot rows: [len(labels),
// classes] with exactly one 1.0 per row.
//
// A label outside [0, classes) or an empty label slice is an error.
func OneHot(labels []int, classes int) (*tensor.Matrix, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("no labels to encode: %w", tensor.ErrShapeMismatch)
	}
	out := tensor.Zeros(len(labels), classes)
	dst := out.Data()
	for i, label := range labels {
		if label < 0 || label >= classes {
			return nil, fmt.Errorf("label %d at row %d out of range [0, %d)", label, i, classes)
		}
		dst[i*classes+label] = 1.0
	}
	return out, nil
}

// ArgMax decodes row i of m to the column index of its largest value.
func ArgMax(m *tensor.Matrix, i int) int {
	best := 0
	bestVal := m.At(i, 0)
	for j := 1; j < m.Cols(); j++ {
		if v := m.At(i, j); v > bestVal {
			best = j
			bestVal = v
		}
	}
	return best
}

// Dataset pairs features with labels, one row per sample.
type Dataset struct {
	X *tensor.Matrix // [n, features]
	Y *tensor.Matrix // [n, classes] one-hot, or [n, targets] for regression
}

// New creates a dataset, enforcing that X and Y agree on sample count.
func New(x, y *tensor.Matrix) (Dataset, error) {
	if x.Rows() != y.Rows() {
		return Dataset{}, fmt.Errorf("%d feature rows vs %d label rows: %w",
			x.Rows(), y.Rows(), tensor.ErrShapeMismatch)
	}
	return Dataset{X: x, Y: y}, nil
}

// Len returns the sample count.
func (d Dataset) Len() int {
	if d.X == nil {
		return 0
	}
	return d.X.Rows()
}

// Split holds out the trailing fraction of samples as a validation set
// and returns (train, validation). The split point is
// floor(n * (1 - ratio)). ratio must be in (0, 1) and must leave both
// sides non-empty; a ratio that would produce an empty side returns a
// wrapped tensor.ErrShapeMismatch.
func (d Dataset) Split(ratio float64) (Dataset, Dataset, error) {
	if ratio <= 0 || ratio >= 1 {
		return Dataset{}, Dataset{}, fmt.Errorf("split ratio %g outside (0, 1)", ratio)
	}
	n := d.Len()
	cut := int(float64(n) * (1.0 - ratio))
	if cut == 0 || cut == n {
		return Dataset{}, Dataset{}, fmt.Errorf("split ratio %g on %d samples leaves an empty side: %w",
			ratio, n, tensor.ErrShapeMismatch)
	}
	head := make([]int, cut)
	tail := make([]int, n-cut)
	for i := range head {
		head[i] = i
	}
	for i := range tail {
		tail[i] = cut + i
	}
	train := Dataset{X: d.X.TakeRows(head), Y: d.Y.TakeRows(head)}
	val := Dataset{X: d.X.TakeRows(tail), Y: d.Y.TakeRows(tail)}
	return train, val, nil
}
