package series

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `Date,Open,High,Low,Close,Volume
2018-01-05,60.1,61.0,59.8,60.9,100
2018-01-04,59.0,60.2,58.7,60.1,120
2018-01-03,58.5,59.4,58.0,59.2,90
`

func TestReadCSVReversesRows(t *testing.T) {
	values, err := ReadCSV(strings.NewReader(sample), "Close")
	require.NoError(t, err)
	assert.Equal(t, []float64{59.2, 60.1, 60.9}, values)
}

func TestReadCSVOtherColumn(t *testing.T) {
	values, err := ReadCSV(strings.NewReader(sample), "Open")
	require.NoError(t, err)
	assert.Equal(t, []float64{58.5, 59.0, 60.1}, values)
}

func TestReadCSVErrors(t *testing.T) {
	tests := map[string]struct {
		input  string
		column string
	}{
		"empty":          {"", "Close"},
		"missing column": {sample, "Adj Close"},
		"no rows":        {"Date,Close\n", "Close"},
		"bad value":      {"Date,Close\n2018-01-01,null\n", "Close"},
		"ragged row":     {"Date,Close\nd1,10\nd2\n", "Close"},
		"bare quote row": {"Date,Close\nd1,1\"0\n", "Close"},
		"bad header":     {"Da\"te,Close\nd1,10\n", "Close"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.input), tt.column)
			assert.ErrorIs(t, err, ErrData)
		})
	}
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "AIG.csv")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	values, err := LoadCSV(path, "Close")
	require.NoError(t, err)
	assert.Len(t, values, 3)

	_, err = LoadCSV(filepath.Join(t.TempDir(), "missing.csv"), "Close")
	assert.ErrorIs(t, err, ErrData)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSplit(t *testing.T) {
	values := make([]float64, 10)
	for i := range values {
		values[i] = float64(i)
	}

	train, test := Split(values, 0.2)
	assert.Equal(t, values[:8], train)
	assert.Equal(t, values[8:], test)

	train, test = Split(values, 0)
	assert.Len(t, train, 10)
	assert.Empty(t, test)

	train, test = Split(values, 1)
	assert.Empty(t, train)
	assert.Len(t, test, 10)
}
