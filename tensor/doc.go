// Copyright 2026 The Strata Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the 2D float64 matrix type used throughout
// Strata.
//
// Matrix is a thin wrapper around gonum's mat.Dense: all linear algebra
// (multiplication, transposed products, element-wise maps) is delegated
// to gonum. The wrapper adds the shape vocabulary the rest of the
// library speaks (Shape, ShapeError) and the handful of batch-oriented
// helpers the training loop needs (TakeRows, ColSums, AddRow).
//
// Matrices are row-major and samples are always rows: a batch of 32
// MNIST images is a [32, 784] matrix.
package tensor
