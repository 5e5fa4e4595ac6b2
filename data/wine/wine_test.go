package wine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `"fixed acidity";"volatile acidity";"citric acid";"residual sugar";"chlorides";"free sulfur dioxide";"total sulfur dioxide";"density";"pH";"sulphates";"alcohol";"quality"
7.4;0.7;0;1.9;0.076;11;34;0.9978;3.51;0.56;9.4;5
7.8;0.88;0;2.6;0.098;25;67;0.9968;3.2;0.68;9.8;6
`

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "winequality.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	got, err := Load(writeCSV(t, sampleCSV))
	require.NoError(t, err)

	assert.Equal(t, 2, got.X.Rows())
	assert.Equal(t, Features, got.X.Cols())
	assert.Equal(t, []int{5, 6}, got.Quality)
	assert.InDelta(t, 7.4, got.X.At(0, 0), 1e-12)
	assert.InDelta(t, 9.8, got.X.At(1, 10), 1e-12)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.csv"))
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestLoadMalformedFloat(t *testing.T) {
	csv := "a;b;c;d;e;f;g;h;i;j;k;quality\n1;2;3;4;5;x;7;8;9;10;11;5\n"
	_, err := Load(writeCSV(t, csv))
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestLoadWrongColumnCount(t *testing.T) {
	csv := "a;b;quality\n1;2;5\n"
	_, err := Load(writeCSV(t, csv))
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestLoadEmpty(t *testing.T) {
	_, err := Load(writeCSV(t, "a;b;quality\n"))
	assert.ErrorIs(t, err, ErrUnavailable)
}
