package market

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syntheticBars produces a noisy trending series with strictly positive prices.
func syntheticBars(symbol string, n int, start time.Time, drift float64) []Bar {
	bars := make([]Bar, n)
	price := 100.0
	for i := range bars {
		wave := math.Sin(float64(i) / 5)
		open := price
		price *= 1 + drift + 0.01*wave
		bars[i] = Bar{
			Symbol: symbol,
			Time:   start.Add(time.Duration(i) * time.Hour),
			Open:   open,
			High:   math.Max(open, price) * 1.005,
			Low:    math.Min(open, price) * 0.995,
			Close:  price,
			Volume: 1000 + 100*math.Cos(float64(i)/3),
		}
	}
	return bars
}

func TestBuildAssetFeatures(t *testing.T) {
	bars := syntheticBars("btc", 120, t0, 0.001)
	frame, err := BuildAssetFeatures("btc", bars)
	require.NoError(t, err)

	assert.Equal(t, 120-FeatureLookback, frame.Len())
	require.Len(t, frame.Columns, NumAssetFeatures)
	assert.Len(t, AssetFeatureNames, NumAssetFeatures)
	assert.Equal(t, "btc_close", frame.Columns[0].Name)
	assert.Equal(t, "btc_volume_zscore", frame.Columns[NumAssetFeatures-1].Name)
	assert.Equal(t, bars[FeatureLookback].Time, frame.Index[0])

	for _, c := range frame.Columns {
		for i, v := range c.Values {
			assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "%s[%d] = %v", c.Name, i, v)
		}
	}

	closes, _ := frame.Column("btc_close")
	assert.Equal(t, bars[len(bars)-1].Close, closes[len(closes)-1])

	logRet, _ := frame.Column("btc_log_return")
	assert.InDelta(t, math.Log(bars[FeatureLookback].Close/bars[FeatureLookback-1].Close), logRet[0], 1e-12)

	atr, _ := frame.Column("btc_atr")
	for _, v := range atr {
		assert.Greater(t, v, 0.0)
	}

	rsi, _ := frame.Column("btc_rsi_14")
	for _, v := range rsi {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 100.0)
	}
}

func TestBuildAssetFeatures_SortsInput(t *testing.T) {
	bars := syntheticBars("eth", 90, t0, 0)
	reversed := make([]Bar, len(bars))
	for i, b := range bars {
		reversed[len(bars)-1-i] = b
	}

	a, err := BuildAssetFeatures("eth", bars)
	require.NoError(t, err)
	b, err := BuildAssetFeatures("eth", reversed)
	require.NoError(t, err)
	assert.Equal(t, a.Index, b.Index)
	assert.Equal(t, a.Columns[0].Values, b.Columns[0].Values)
}

func TestBuildAssetFeatures_Errors(t *testing.T) {
	_, err := BuildAssetFeatures("btc", syntheticBars("btc", MinFeatureBars-1, t0, 0))
	assert.ErrorIs(t, err, ErrInsufficientData)

	bars := syntheticBars("btc", 100, t0, 0)
	bars[50].Close = -1
	_, err = BuildAssetFeatures("btc", bars)
	assert.ErrorIs(t, err, ErrInvalidPrice)
}

type fakeSource map[string][]Bar

func (f fakeSource) List(_ context.Context, symbol string, _, _ time.Time) ([]Bar, error) {
	bars, ok := f[symbol]
	if !ok {
		return nil, fmt.Errorf("unknown symbol %s", symbol)
	}
	return bars, nil
}

func TestBuildFrame_AlignsOnCommonTimestamps(t *testing.T) {
	src := fakeSource{
		"btc": syntheticBars("btc", 120, t0, 0.001),
		// Starts ten hours later, so the shared range is shorter.
		"eth": syntheticBars("eth", 120, t0.Add(10*time.Hour), 0.0005),
	}

	frame, err := BuildFrame(context.Background(), src, AssetSet{"eth", "btc"}, time.Time{}, time.Time{})
	require.NoError(t, err)

	assert.Equal(t, 110-FeatureLookback, frame.Len())
	assert.Len(t, frame.Columns, 2*NumAssetFeatures)
	assert.Equal(t, "eth_close", frame.Columns[0].Name)
	assert.Equal(t, "btc_close", frame.Columns[NumAssetFeatures].Name)
	assert.Equal(t, t0.Add(time.Duration(10+FeatureLookback)*time.Hour), frame.Index[0])

	table, err := NewTable(frame, AssetSet{"eth", "btc"}, NumAssetFeatures)
	require.NoError(t, err)
	assert.Equal(t, frame.Len(), table.Len())
}

func TestBuildTable_PropagatesSourceErrors(t *testing.T) {
	src := fakeSource{"btc": syntheticBars("btc", 100, t0, 0)}
	_, err := BuildTable(context.Background(), src, AssetSet{"btc", "sol"}, time.Time{}, time.Time{})
	assert.Error(t, err)

	far := fakeSource{
		"btc": syntheticBars("btc", 100, t0, 0),
		"eth": syntheticBars("eth", 100, t0.Add(1000*time.Hour), 0),
	}
	_, err = BuildTable(context.Background(), far, AssetSet{"btc", "eth"}, time.Time{}, time.Time{})
	assert.ErrorIs(t, err, ErrInsufficientData)
}
