// Package dataset loads the dashboard's source tables into typed rows.
package dataset

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"
)

// ErrMissingColumns is returned when a source lacks a required column.
var ErrMissingColumns = errors.New("missing required columns")

// ReadFrame loads a CSV or XLSX file with every column typed as string.
// XLSX files are read from their first sheet.
func ReadFrame(path string) (dataframe.DataFrame, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		records, err := readXLSXRecords(path)
		if err != nil {
			return dataframe.DataFrame{}, err
		}
		return FrameFromRecords(records)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	b = bytes.TrimPrefix(b, []byte("\xef\xbb\xbf"))
	df := dataframe.ReadCSV(bytes.NewReader(b),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("parse %s: %w", filepath.Base(path), df.Err)
	}
	return df, nil
}

// FrameFromRecords builds a string-typed frame from a header row plus data rows.
// Short rows are padded with empty cells.
func FrameFromRecords(records [][]string) (dataframe.DataFrame, error) {
	if len(records) == 0 {
		return dataframe.DataFrame{}, errors.New("no header row")
	}
	width := len(records[0])
	for i, r := range records {
		if len(r) < width {
			padded := make([]string, width)
			copy(padded, r)
			records[i] = padded
		} else if len(r) > width {
			records[i] = r[:width]
		}
	}
	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("load records: %w", df.Err)
	}
	return df, nil
}

func readXLSXRecords(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("xlsx has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}

func requireColumns(df dataframe.DataFrame, cols ...string) error {
	have := map[string]bool{}
	for _, n := range df.Names() {
		have[n] = true
	}
	var missing []string
	for _, c := range cols {
		if !have[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return nil
}

func hasColumn(df dataframe.DataFrame, col string) bool {
	for _, n := range df.Names() {
		if n == col {
			return true
		}
	}
	return false
}

// stringCol returns the column values, or nil when the column is absent.
func stringCol(df dataframe.DataFrame, col string) []string {
	if !hasColumn(df, col) {
		return nil
	}
	recs := df.Col(col).Records()
	for i, s := range recs {
		s = strings.TrimSpace(s)
		if s == "NaN" || s == "NA" || s == "<nil>" {
			s = ""
		}
		recs[i] = s
	}
	return recs
}

// floatCol coerces the column to numbers; unparsable cells become NaN.
// An absent column yields n NaNs.
func floatCol(df dataframe.DataFrame, col string) []float64 {
	out := make([]float64, df.Nrow())
	recs := stringCol(df, col)
	for i := range out {
		if recs == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = ParseNumber(recs[i])
	}
	return out
}

// ParseNumber parses a numeric cell, tolerating thousands separators,
// surrounding spaces and a trailing percent sign. Anything else is NaN.
func ParseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
