// Package market provides the time-indexed feature tables the portfolio
// environment runs over, and the providers that build them: CSV files,
// the SQLite bar store and the technical-indicator pipeline.
package market

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
)

var (
	// ErrMissingColumns is returned when an asset lacks required columns.
	ErrMissingColumns = errors.New("market: missing columns")
	// ErrInvalidPrice is returned for NaN or non-positive close prices.
	ErrInvalidPrice = errors.New("market: invalid price")
	// ErrInsufficientData is returned when there are too few rows for the requested operation.
	ErrInsufficientData = errors.New("market: insufficient data")
	// ErrOutOfRange is returned for windows that fall outside the table.
	ErrOutOfRange = errors.New("market: window out of range")
)

// CloseColumn is the per-asset column used for realized returns.
const CloseColumn = "close"

// IdentifierColumns are non-numeric columns dropped before anything reaches the network.
var IdentifierColumns = []string{"asset_id", "symbol", "ticker"}

// Bar is one OHLCV candle.
type Bar struct {
	Symbol string    `json:"symbol"`
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Column is one named series.
type Column struct {
	Name   string
	Values []float64
}

// Frame is an ordered set of equally long columns sharing a time index.
type Frame struct {
	Index   []time.Time
	Columns []Column
}

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.Index) }

// Names returns the column names in order.
func (f *Frame) Names() []string {
	return lo.Map(f.Columns, func(c Column, _ int) string { return c.Name })
}

// Column looks up a column by name.
func (f *Frame) Column(name string) ([]float64, bool) {
	for _, c := range f.Columns {
		if c.Name == name {
			return c.Values, true
		}
	}
	return nil, false
}

// Validate checks that every column matches the index length and names are unique.
func (f *Frame) Validate() error {
	seen := make(map[string]struct{}, len(f.Columns))
	for _, c := range f.Columns {
		if len(c.Values) != len(f.Index) {
			return fmt.Errorf("market: column %q has %d rows, index has %d", c.Name, len(c.Values), len(f.Index))
		}
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("market: duplicate column %q", c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	return nil
}

// DropIdentifiers removes identifier columns such as asset_id.
func (f *Frame) DropIdentifiers() {
	f.Columns = lo.Filter(f.Columns, func(c Column, _ int) bool {
		return !lo.Contains(IdentifierColumns, strings.ToLower(c.Name))
	})
}

// AssetSet is the fixed, ordered list of assets. Its order defines the
// slicing of every flattened feature vector.
type AssetSet []string

// Validate rejects empty, blank or duplicate identifiers.
func (a AssetSet) Validate() error {
	if len(a) == 0 {
		return fmt.Errorf("%w: empty asset set", ErrMissingColumns)
	}
	if len(lo.Uniq(a)) != len(a) {
		return fmt.Errorf("market: duplicate asset in %v", []string(a))
	}
	for _, s := range a {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("market: blank asset identifier")
		}
	}
	return nil
}

// Prefix returns the column prefix of an asset ("eth" → "eth_").
func Prefix(asset string) string { return asset + "_" }

// owner returns the asset a column belongs to, preferring the longest
// matching prefix so "eth_usd_close" is not claimed by "eth".
func (a AssetSet) owner(column string) (string, bool) {
	best := ""
	for _, asset := range a {
		if strings.HasPrefix(column, Prefix(asset)) && len(asset) > len(best) {
			best = asset
		}
	}
	return best, best != ""
}
