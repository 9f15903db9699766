package market

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
)

var timeColumns = []string{"", "timestamp", "time", "date", "datetime", "index"}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ReadCSV parses a table whose first column is the time index. Identifier
// columns are dropped; blank and "nan" cells become NaN.
func ReadCSV(r io.Reader) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("%w: csv needs a time column and at least one value column", ErrMissingColumns)
	}
	if !isTimeColumn(header[0]) {
		return nil, fmt.Errorf("%w: first csv column %q is not a time index", ErrMissingColumns, header[0])
	}

	keep := make([]int, 0, len(header)-1)
	frame := &Frame{}
	for i, name := range header[1:] {
		if isIdentifier(name) {
			continue
		}
		keep = append(keep, i+1)
		frame.Columns = append(frame.Columns, Column{Name: strings.TrimSpace(name)})
	}

	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv line %d: %w", line, err)
		}

		ts, err := parseTime(record[0])
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		frame.Index = append(frame.Index, ts)

		for j, idx := range keep {
			v, err := parseValue(record[idx])
			if err != nil {
				return nil, fmt.Errorf("csv line %d column %q: %w", line, header[idx], err)
			}
			frame.Columns[j].Values = append(frame.Columns[j].Values, v)
		}
	}

	return frame, frame.Validate()
}

// WriteCSV writes frame with a leading RFC 3339 timestamp column.
func WriteCSV(w io.Writer, frame *Frame) error {
	if err := frame.Validate(); err != nil {
		return err
	}
	writer := csv.NewWriter(w)
	if err := writer.Write(append([]string{"timestamp"}, frame.Names()...)); err != nil {
		return err
	}

	record := make([]string, len(frame.Columns)+1)
	for i, ts := range frame.Index {
		record[0] = ts.UTC().Format(time.RFC3339)
		for j, c := range frame.Columns {
			record[j+1] = strconv.FormatFloat(c.Values[i], 'g', -1, 64)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func isTimeColumn(name string) bool {
	return lo.Contains(timeColumns, strings.ToLower(strings.TrimSpace(name)))
}

func isIdentifier(name string) bool {
	return lo.Contains(IdentifierColumns, strings.ToLower(strings.TrimSpace(name)))
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func parseValue(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "nan", "null", "none":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

// BarsFromFrame reads OHLCV bars for one symbol out of a frame. Columns may be
// bare ("close") or prefixed with the symbol ("eth_close"). Rows with a NaN
// close are skipped.
func BarsFromFrame(symbol string, frame *Frame) ([]Bar, error) {
	fields := []string{"open", "high", "low", CloseColumn, "volume"}
	cols := make([][]float64, len(fields))
	for i, field := range fields {
		values, ok := frame.Column(Prefix(symbol) + field)
		if !ok {
			values, ok = frame.Column(field)
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s has no %q column", ErrMissingColumns, symbol, field)
		}
		cols[i] = values
	}

	bars := make([]Bar, 0, frame.Len())
	for row, ts := range frame.Index {
		if math.IsNaN(cols[3][row]) {
			continue
		}
		bars = append(bars, Bar{
			Symbol: symbol,
			Time:   ts,
			Open:   cols[0][row],
			High:   cols[1][row],
			Low:    cols[2][row],
			Close:  cols[3][row],
			Volume: cols[4][row],
		})
	}
	return bars, nil
}
