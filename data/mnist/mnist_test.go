package mnist

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeImages writes a synthetic IDX image file.
func writeImages(t *testing.T, path string, magic uint32, n, h, w int, pixels []uint8) {
	t.Helper()
	buf := make([]byte, 16+len(pixels))
	binary.BigEndian.PutUint32(buf[0:], magic)
	binary.BigEndian.PutUint32(buf[4:], uint32(n))
	binary.BigEndian.PutUint32(buf[8:], uint32(h))
	binary.BigEndian.PutUint32(buf[12:], uint32(w))
	copy(buf[16:], pixels)
	require.NoError(t, os.WriteFile(path, buf, 0o644))
}

// writeLabels writes a synthetic IDX label file.
func writeLabels(t *testing.T, path string, magic uint32, labels []uint8) {
	t.Helper()
	buf := make([]byte, 8+len(labels))
	binary.BigEndian.PutUint32(buf[0:], magic)
	binary.BigEndian.PutUint32(buf[4:], uint32(len(labels)))
	copy(buf[8:], labels)
	require.NoError(t, os.WriteFile(path, buf, 0o644))
}

func writeDataset(t *testing.T, dir string, trainN, testN int) {
	t.Helper()
	size := ImageSize * ImageSize
	trainPixels := make([]uint8, trainN*size)
	for i := range trainPixels {
		trainPixels[i] = uint8(i % 256)
	}
	trainLabels := make([]uint8, trainN)
	for i := range trainLabels {
		trainLabels[i] = uint8(i % Classes)
	}
	testPixels := make([]uint8, testN*size)
	testLabels := make([]uint8, testN)

	writeImages(t, filepath.Join(dir, "train-images-idx3-ubyte"), magicImages, trainN, ImageSize, ImageSize, trainPixels)
	writeLabels(t, filepath.Join(dir, "train-labels-idx1-ubyte"), magicLabels, trainLabels)
	writeImages(t, filepath.Join(dir, "t10k-images-idx3-ubyte"), magicImages, testN, ImageSize, ImageSize, testPixels)
	writeLabels(t, filepath.Join(dir, "t10k-labels-idx1-ubyte"), magicLabels, testLabels)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir, 12, 4)

	got, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 12, got.TrainImages.N)
	assert.Equal(t, ImageSize, got.TrainImages.H)
	assert.Equal(t, ImageSize, got.TrainImages.W)
	assert.Len(t, got.TrainLabels, 12)
	assert.Equal(t, 4, got.TestImages.N)
	assert.Len(t, got.TestLabels, 4)
	assert.Equal(t, 3, got.TrainLabels[3])
}

func TestLoadMissingDir(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestLoadBadMagic(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir, 2, 1)
	writeImages(t, filepath.Join(dir, "train-images-idx3-ubyte"), 1234, 2, ImageSize, ImageSize,
		make([]uint8, 2*ImageSize*ImageSize))

	_, err := Load(dir)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestLoadTruncatedPixels(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir, 2, 1)
	// Claim 5 images but provide pixels for 2.
	writeImages(t, filepath.Join(dir, "train-images-idx3-ubyte"), magicImages, 5, ImageSize, ImageSize,
		make([]uint8, 2*ImageSize*ImageSize))

	_, err := Load(dir)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestLoadCountMismatch(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir, 3, 1)
	writeLabels(t, filepath.Join(dir, "train-labels-idx1-ubyte"), magicLabels, []uint8{0, 1})

	_, err := Load(dir)
	assert.Error(t, err)
}
