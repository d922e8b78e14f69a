package series

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// CSV codec errors.
var (
	ErrMissingColumn  = errors.New("required column not found")
	ErrMalformedRow   = errors.New("malformed row")
	ErrColumnMismatch = errors.New("column length does not match series length")
)

// CSVOptions holds the column layout of a series CSV file.
type CSVOptions struct {
	TimestampColumn string // Optional on read; absent means a positional series.
	ValueColumn     string
	CategoryColumn  string // Optional on read.
	TimeLayout      string
	Delimiter       rune
}

// DefaultCSVOptions returns the default column layout.
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{
		TimestampColumn: "timestamp",
		ValueColumn:     "value",
		CategoryColumn:  "category",
		TimeLayout:      time.RFC3339,
		Delimiter:       ',',
	}
}

// Column is an extra numeric column written next to the series.
type Column struct {
	Name   string
	Values []float64
}

var missingTokens = map[string]struct{}{
	"": {}, "NA": {}, "NaN": {}, "nan": {}, "null": {}, "NULL": {},
}

// ReadCSV decodes a series from r. The first row must be a header.
func ReadCSV(r io.Reader, opts CSVOptions) (Series, error) {
	reader := csv.NewReader(r)
	reader.Comma = opts.Delimiter
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return Series{}, fmt.Errorf("read header: %w", err)
	}

	tsIdx, valueIdx, catIdx := -1, -1, -1

	for i, name := range header {
		switch strings.TrimSpace(name) {
		case opts.TimestampColumn:
			tsIdx = i
		case opts.ValueColumn:
			valueIdx = i
		case opts.CategoryColumn:
			catIdx = i
		}
	}

	if valueIdx < 0 {
		return Series{}, fmt.Errorf("%w: %q", ErrMissingColumn, opts.ValueColumn)
	}

	var samples []Sample

	for line := 2; ; line++ {
		record, readErr := reader.Read()
		if errors.Is(readErr, io.EOF) {
			break
		}

		if readErr != nil {
			return Series{}, fmt.Errorf("read line %d: %w", line, readErr)
		}

		sample, parseErr := parseRecord(record, tsIdx, valueIdx, catIdx, opts.TimeLayout)
		if parseErr != nil {
			return Series{}, fmt.Errorf("%w: line %d: %w", ErrMalformedRow, line, parseErr)
		}

		samples = append(samples, sample)
	}

	return Series{Samples: samples}, nil
}

func parseRecord(record []string, tsIdx, valueIdx, catIdx int, layout string) (Sample, error) {
	var sample Sample

	value, err := parseValue(field(record, valueIdx))
	if err != nil {
		return sample, err
	}

	sample.Value = value

	if tsIdx >= 0 {
		ts, tsErr := time.Parse(layout, field(record, tsIdx))
		if tsErr != nil {
			return sample, fmt.Errorf("parse timestamp: %w", tsErr)
		}

		sample.Timestamp = ts
	}

	if catIdx >= 0 {
		category, catErr := ParseCategory(field(record, catIdx))
		if catErr != nil {
			return sample, catErr
		}

		sample.Category = category
	}

	return sample, nil
}

func field(record []string, idx int) string {
	if idx >= len(record) {
		return ""
	}

	return strings.TrimSpace(strings.Trim(record[idx], "\""))
}

func parseValue(raw string) (float64, error) {
	if _, missing := missingTokens[raw]; missing {
		return math.NaN(), nil
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse value %q: %w", raw, err)
	}

	return value, nil
}

// WriteCSV encodes s to w. Missing values are written as empty fields; the
// timestamp column is omitted for positional series.
func WriteCSV(w io.Writer, s Series, opts CSVOptions, extra ...Column) error {
	for _, col := range extra {
		if len(col.Values) != s.Len() {
			return fmt.Errorf("%w: %s has %d values, series has %d", ErrColumnMismatch, col.Name, len(col.Values), s.Len())
		}
	}

	writer := csv.NewWriter(w)
	writer.Comma = opts.Delimiter

	withTimestamp := !s.Positional()

	header := make([]string, 0, 3+len(extra))
	if withTimestamp {
		header = append(header, opts.TimestampColumn)
	}

	header = append(header, opts.ValueColumn, opts.CategoryColumn)

	for _, col := range extra {
		header = append(header, col.Name)
	}

	err := writer.Write(header)
	if err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	row := make([]string, 0, len(header))

	for i, sample := range s.Samples {
		row = row[:0]

		if withTimestamp {
			row = append(row, sample.Timestamp.Format(opts.TimeLayout))
		}

		row = append(row, formatValue(sample.Value), sample.Category.String())

		for _, col := range extra {
			row = append(row, formatValue(col.Values[i]))
		}

		err = writer.Write(row)
		if err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}

	writer.Flush()

	return writer.Error()
}

func formatValue(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}

	return strconv.FormatFloat(v, 'f', -1, 64)
}
