// Copyright 2026 The Strata Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package mnist loads the MNIST handwritten-digit dataset from its
// official IDX binary files, downloading and caching them on demand.
package mnist

import (
	"compress/gzip"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/strata-ml/strata/data"
	"github.com/strata-ml/strata/tensor"
)

// ErrUnavailable reports that the dataset could not be fetched or
// parsed.
var ErrUnavailable = errors.New("mnist: dataset unavailable")

// Dataset shapes.
const (
	ImageSize = 28
	Classes   = 10

	magicImages = 2051
	magicLabels = 2049
)

// DefaultBaseURL hosts the gzipped IDX files.
const DefaultBaseURL = "https://storage.googleapis.com/cvdf-datasets/mnist"

var files = []string{
	"train-images-idx3-ubyte",
	"train-labels-idx1-ubyte",
	"t10k-images-idx3-ubyte",
	"t10k-labels-idx1-ubyte",
}

// Data holds both splits as raw grids and integer labels.
//
// The canonical shapes are 60000x28x28 train and 10000x28x28 test,
// pixel intensities 0-255, labels 0-9.
type Data struct {
	TrainImages *data.Grid
	TrainLabels []int
	TestImages  *data.Grid
	TestLabels  []int
}

// Fetch downloads any missing IDX files into dir, then loads them.
// Files already present are reused without a network round trip.
func Fetch(ctx context.Context, dir string) (*Data, error) {
	return FetchFrom(ctx, dir, DefaultBaseURL)
}

// FetchFrom is Fetch with an explicit mirror URL, for tests and
// offline mirrors.
func FetchFrom(ctx context.Context, dir, baseURL string) (*Data, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	for _, name := range files {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := download(ctx, baseURL+"/"+name+".gz", path); err != nil {
			return nil, fmt.Errorf("%w: fetch %s: %v", ErrUnavailable, name, err)
		}
	}
	return Load(dir)
}

// Load reads the four IDX files from dir.
func Load(dir string) (*Data, error) {
	trainImages, err := readImages(filepath.Join(dir, files[0]))
	if err != nil {
		return nil, err
	}
	trainLabels, err := readLabels(filepath.Join(dir, files[1]))
	if err != nil {
		return nil, err
	}
	testImages, err := readImages(filepath.Join(dir, files[2]))
	if err != nil {
		return nil, err
	}
	testLabels, err := readLabels(filepath.Join(dir, files[3]))
	if err != nil {
		return nil, err
	}

	if trainImages.N != len(trainLabels) {
		return nil, fmt.Errorf("train: %d images vs %d labels: %w",
			trainImages.N, len(trainLabels), tensor.ErrShapeMismatch)
	}
	if testImages.N != len(testLabels) {
		return nil, fmt.Errorf("test: %d images vs %d labels: %w",
			testImages.N, len(testLabels), tensor.ErrShapeMismatch)
	}

	return &Data{
		TrainImages: trainImages,
		TrainLabels: trainLabels,
		TestImages:  testImages,
		TestLabels:  testLabels,
	}, nil
}

// readImages parses an IDX image file.
//
// Layout: magic 2051, image count, row count, column count (uint32
// big-endian), then unsigned pixel bytes.
func readImages(path string) (*data.Grid, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer file.Close()

	var header [4]uint32
	for i := range header {
		if err := binary.Read(file, binary.BigEndian, &header[i]); err != nil {
			return nil, fmt.Errorf("%w: %s: short header: %v", ErrUnavailable, path, err)
		}
	}
	if header[0] != magicImages {
		return nil, fmt.Errorf("%w: %s: magic %d, want %d", ErrUnavailable, path, header[0], magicImages)
	}
	n, h, w := int(header[1]), int(header[2]), int(header[3])

	raw := make([]uint8, n*h*w)
	if _, err := io.ReadFull(file, raw); err != nil {
		return nil, fmt.Errorf("%w: %s: short pixel data: %v", ErrUnavailable, path, err)
	}
	return data.NewGrid(raw, n, h, w)
}

// readLabels parses an IDX label file.
//
// Layout: magic 2049, label count (uint32 big-endian), then unsigned
// label bytes 0-9.
func readLabels(path string) ([]int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer file.Close()

	var header [2]uint32
	for i := range header {
		if err := binary.Read(file, binary.BigEndian, &header[i]); err != nil {
			return nil, fmt.Errorf("%w: %s: short header: %v", ErrUnavailable, path, err)
		}
	}
	if header[0] != magicLabels {
		return nil, fmt.Errorf("%w: %s: magic %d, want %d", ErrUnavailable, path, header[0], magicLabels)
	}

	raw := make([]uint8, header[1])
	if _, err := io.ReadFull(file, raw); err != nil {
		return nil, fmt.Errorf("%w: %s: short label data: %v", ErrUnavailable, path, err)
	}
	labels := make([]int, len(raw))
	for i, b := range raw {
		labels[i] = int(b)
	}
	return labels, nil
}

// download fetches one gzipped IDX file and writes it decompressed.
func download(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		return err
	}
	defer gz.Close()

	tmp := path + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, gz); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
