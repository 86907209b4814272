package series

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// LoadCSV reads the named numeric column from a CSV file with a header row.
// Price exports list the newest row first, so the rows are returned in
// reverse file order to restore chronological order.
func LoadCSV(filename, column string) ([]float64, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w: %w", err, ErrData)
	}
	defer file.Close()

	values, err := ReadCSV(file, column)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return values, nil
}

// ReadCSV is LoadCSV over an arbitrary reader.
func ReadCSV(r io.Reader, column string) ([]float64, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("csv is empty: %w", ErrData)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w: %w", err, ErrData)
	}

	col := -1
	for i, name := range header {
		if strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")) == column {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("column %q not found in header %v: %w", column, header, ErrData)
	}

	var values []float64
	for row := 2; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row %d: %w: %w", row, err, ErrData)
		}

		val, err := strconv.ParseFloat(strings.TrimSpace(record[col]), 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %q at row %d: %v: %w", column, row, err, ErrData)
		}
		values = append(values, val)
	}

	if len(values) == 0 {
		return nil, fmt.Errorf("csv has no data rows: %w", ErrData)
	}

	for i, j := 0, len(values)-1; i < j; i, j = i+1, j-1 {
		values[i], values[j] = values[j], values[i]
	}
	return values, nil
}
