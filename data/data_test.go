package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata-ml/strata/tensor"
)

func TestNewGridSizeMismatch(t *testing.T) {
	_, err := NewGrid(make([]uint8, 10), 2, 3, 3)
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)
}

func TestFlattenPreservesOrder(t *testing.T) {
	g, err := NewGrid([]uint8{1, 2, 3, 4, 5, 6, 7, 8}, 2, 2, 2)
	require.NoError(t, err)

	m := Flatten(g)
	assert.Equal(t, tensor.Shape{2, 4}, m.Shape())
	assert.Equal(t, []float64{1, 2, 3, 4}, m.Data()[:4])
	assert.Equal(t, []float64{5, 6, 7, 8}, m.Data()[4:])
}

func TestNormalizeUnitInterval(t *testing.T) {
	m := tensor.New(1, 3, []float64{0, 128, 255})
	out := Normalize(m, 255)

	for _, v := range out.Data() {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
	assert.Equal(t, 1.0, out.At(0, 2))
	// Input untouched.
	assert.Equal(t, 255.0, m.At(0, 2))
}

func TestOneHot(t *testing.T) {
	m, err := OneHot([]int{0, 2, 1}, 3)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		ones := 0
		for j := 0; j < 3; j++ {
			switch m.At(i, j) {
			case 1.0:
				ones++
			case 0.0:
			default:
				t.Fatalf("unexpected value %v at (%d, %d)", m.At(i, j), i, j)
			}
		}
		assert.Equal(t, 1, ones, "row %d", i)
	}

	// ArgMax decodes back.
	assert.Equal(t, 0, ArgMax(m, 0))
	assert.Equal(t, 2, ArgMax(m, 1))
	assert.Equal(t, 1, ArgMax(m, 2))
}

func TestOneHotOutOfRange(t *testing.T) {
	_, err := OneHot([]int{0, 3}, 3)
	assert.Error(t, err)

	_, err = OneHot([]int{-1}, 3)
	assert.Error(t, err)
}

func TestOneHotEmpty(t *testing.T) {
	_, err := OneHot(nil, 3)
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)

	_, err = OneHot([]int{}, 10)
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)
}

func TestNewDatasetRowMismatch(t *testing.T) {
	_, err := New(tensor.Zeros(3, 2), tensor.Zeros(4, 2))
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)
}

func TestSplitTrailingHoldout(t *testing.T) {
	x := tensor.New(8, 1, []float64{0, 1, 2, 3, 4, 5, 6, 7})
	y := tensor.Zeros(8, 2)
	ds, err := New(x, y)
	require.NoError(t, err)

	train, val, err := ds.Split(0.25)
	require.NoError(t, err)
	assert.Equal(t, 6, train.Len())
	assert.Equal(t, 2, val.Len())
	assert.Equal(t, 6.0, val.X.At(0, 0))
	assert.Equal(t, 7.0, val.X.At(1, 0))
}

func TestSplitInvalidRatio(t *testing.T) {
	ds, err := New(tensor.Zeros(8, 1), tensor.Zeros(8, 2))
	require.NoError(t, err)

	for _, ratio := range []float64{0, -0.2, 1, 1.5} {
		_, _, err := ds.Split(ratio)
		assert.Error(t, err, "ratio %g", ratio)
	}
}

func TestSplitEmptySide(t *testing.T) {
	ds, err := New(tensor.Zeros(8, 1), tensor.Zeros(8, 2))
	require.NoError(t, err)

	// floor(8 * 0.05) = 0 training rows.
	_, _, err = ds.Split(0.95)
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)

	// A ratio below float resolution rounds the cut up to all 8 rows,
	// leaving no validation rows.
	_, _, err = ds.Split(1e-18)
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)
}

func TestMNISTShapedPipeline(t *testing.T) {
	// Downscaled version of the canonical 60000x28x28 pipeline: the
	// shapes transform the same way at any sample count.
	const n, h, w, classes = 64, 28, 28, 10

	raw := make([]uint8, n*h*w)
	for i := range raw {
		raw[i] = uint8(i % 256)
	}
	labels := make([]int, n)
	for i := range labels {
		labels[i] = i % classes
	}

	g, err := NewGrid(raw, n, h, w)
	require.NoError(t, err)

	x := Normalize(Flatten(g), 255)
	assert.Equal(t, tensor.Shape{n, 784}, x.Shape())
	for _, v := range x.Data() {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}

	y, err := OneHot(labels, classes)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{n, classes}, y.Shape())

	ds, err := New(x, y)
	require.NoError(t, err)
	assert.Equal(t, n, ds.Len())
}
