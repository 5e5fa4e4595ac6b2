// Copyright 2026 The Strata Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package wine loads the UCI wine-quality dataset, a semicolon-
// separated CSV of 11 physicochemical measurements per wine plus an
// integer quality score.
package wine

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/strata-ml/strata/tensor"
)

// ErrUnavailable reports that the dataset could not be read or parsed.
var ErrUnavailable = errors.New("wine: dataset unavailable")

// Features is the number of measurement columns per sample.
const Features = 11

// Data holds the parsed dataset: one row of measurements and one
// quality score per wine.
type Data struct {
	X       *tensor.Matrix // [n, Features]
	Quality []int          // quality scores, typically 3-9
}

// Load parses a wine-quality CSV file.
//
// The expected layout is a header row followed by semicolon-separated
// rows of 11 float columns and a trailing integer quality column. A
// malformed row fails the whole load.
func Load(path string) (*Data, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = ';'
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%w: missing header or rows", ErrUnavailable)
	}
	records = records[1:] // header

	n := len(records)
	x := tensor.Zeros(n, Features)
	values := x.Data()
	quality := make([]int, n)

	for i, record := range records {
		if len(record) != Features+1 {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d",
				ErrUnavailable, i+1, len(record), Features+1)
		}
		for j := 0; j < Features; j++ {
			v, err := strconv.ParseFloat(record[j], 64)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d column %d: %v", ErrUnavailable, i+1, j, err)
			}
			values[i*Features+j] = v
		}
		q, err := strconv.Atoi(record[Features])
		if err != nil {
			return nil, fmt.Errorf("%w: row %d quality: %v", ErrUnavailable, i+1, err)
		}
		quality[i] = q
	}

	return &Data{X: x, Quality: quality}, nil
}
