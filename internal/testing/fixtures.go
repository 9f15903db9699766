package testing

import (
	"math"
	"testing"
	"time"

	"github.com/aristath/deepfolio/internal/market"
)

// Epoch is the timestamp of the first fixture row.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// NewBarFixtures returns n hourly bars drifting upward from base with a
// small oscillation, enough for every indicator to warm up when
// n >= market.MinFeatureBars.
func NewBarFixtures(symbol string, n int, base float64) []market.Bar {
	bars := make([]market.Bar, n)
	for i := range bars {
		c := base * (1 + 0.001*float64(i) + 0.01*math.Sin(float64(i)/3))
		bars[i] = market.Bar{
			Symbol: symbol,
			Time:   Epoch.Add(time.Duration(i) * time.Hour),
			Open:   c * 0.999,
			High:   c * 1.005,
			Low:    c * 0.995,
			Close:  c,
			Volume: 1000 + float64(i%7)*50,
		}
	}
	return bars
}

// NewCloseTable builds a one-feature table whose only column per asset is its
// close. Asset i's close at row r is closes(i, r).
func NewCloseTable(t *testing.T, assets market.AssetSet, rows int, closes func(asset, row int) float64) *market.Table {
	t.Helper()
	frame := &market.Frame{Index: make([]time.Time, rows)}
	for r := range frame.Index {
		frame.Index[r] = Epoch.Add(time.Duration(r) * time.Hour)
	}
	for a, asset := range assets {
		values := make([]float64, rows)
		for r := range values {
			values[r] = closes(a, r)
		}
		frame.Columns = append(frame.Columns, market.Column{Name: market.Prefix(asset) + market.CloseColumn, Values: values})
	}

	table, err := market.NewTable(frame, assets, 1)
	if err != nil {
		t.Fatalf("Failed to build fixture table: %v", err)
	}
	return table
}

// TrendAndWave closes: asset 0 rises linearly from 100, the others oscillate around 50.
func TrendAndWave(asset, row int) float64 {
	if asset == 0 {
		return 100 + float64(row)
	}
	return 50 + 3*math.Cos(float64(row)+float64(asset))
}
