package market

import (
	"fmt"
	"math"
	"slices"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"
)

// AssetFeatureNames lists the engineered per-asset features in column order.
var AssetFeatureNames = []string{
	"close",
	"open_div_atr", "high_div_atr", "low_div_atr", "close_div_atr", "volume_div_atr",
	"log_return", "rsi_14", "atr", "bbp", "cci_37", "mfi_37",
	"body_size_norm_atr", "body_vs_avg_body", "macd", "sma_10_div_atr",
	"adx_14", "volume_zscore",
}

// NumAssetFeatures is len(AssetFeatureNames).
const NumAssetFeatures = 18

// FeatureLookback is the number of leading bars without a defined value for
// every indicator; they are dropped from the output.
const FeatureLookback = 37

// MinFeatureBars is the minimum input length BuildAssetFeatures accepts.
const MinFeatureBars = 2 * FeatureLookback

const (
	atrPeriod    = 14
	rsiPeriod    = 14
	adxPeriod    = 14
	longPeriod   = 37
	bandPeriod   = 20
	smaPeriod    = 10
	avgWindow    = 20
	featureGuard = 1e-9
)

// BuildAssetFeatures computes the engineered feature set for one asset.
// Bars are sorted by time; output columns are named "<symbol>_<feature>".
func BuildAssetFeatures(symbol string, bars []Bar) (*Frame, error) {
	if len(bars) < MinFeatureBars {
		return nil, fmt.Errorf("%w: %s has %d bars, need %d", ErrInsufficientData, symbol, len(bars), MinFeatureBars)
	}
	bars = slices.Clone(bars)
	slices.SortFunc(bars, func(a, b Bar) int { return a.Time.Compare(b.Time) })

	n := len(bars)
	open := make([]float64, n)
	high := make([]float64, n)
	low := make([]float64, n)
	closes := make([]float64, n)
	volume := make([]float64, n)
	body := make([]float64, n)
	for i, b := range bars {
		if math.IsNaN(b.Close) || b.Close <= 0 {
			return nil, fmt.Errorf("%w: %s close at %s is %v", ErrInvalidPrice, symbol, b.Time, b.Close)
		}
		open[i], high[i], low[i], closes[i], volume[i] = b.Open, b.High, b.Low, b.Close, b.Volume
		body[i] = math.Abs(b.Close - b.Open)
	}

	atr := talib.Atr(high, low, closes, atrPeriod)
	rsi := talib.Rsi(closes, rsiPeriod)
	upper, _, lower := talib.BBands(closes, bandPeriod, 2, 2, talib.SMA)
	cci := talib.Cci(high, low, closes, longPeriod)
	mfi := talib.Mfi(high, low, closes, volume, longPeriod)
	macd, _, _ := talib.Macd(closes, 12, 26, 9)
	sma := talib.Sma(closes, smaPeriod)
	adx := talib.Adx(high, low, closes, adxPeriod)

	div := func(v, by float64) float64 { return v / (by + featureGuard) }

	rows := n - FeatureLookback
	frame := &Frame{}
	cols := make([][]float64, NumAssetFeatures)
	for j := range cols {
		cols[j] = make([]float64, rows)
	}

	for r := 0; r < rows; r++ {
		i := r + FeatureLookback
		frame.Index = append(frame.Index, bars[i].Time)

		volMean, volStd := stat.MeanStdDev(volume[i-avgWindow+1:i+1], nil)
		bodyMean := stat.Mean(body[i-avgWindow+1:i+1], nil)

		values := [NumAssetFeatures]float64{
			closes[i],
			div(open[i], atr[i]),
			div(high[i], atr[i]),
			div(low[i], atr[i]),
			div(closes[i], atr[i]),
			div(volume[i], atr[i]),
			math.Log(closes[i] / closes[i-1]),
			rsi[i],
			atr[i],
			div(closes[i]-lower[i], upper[i]-lower[i]),
			cci[i],
			mfi[i],
			div(body[i], atr[i]),
			div(body[i], bodyMean),
			macd[i],
			div(sma[i], atr[i]),
			adx[i],
			div(volume[i]-volMean, volStd),
		}
		for j, v := range values {
			cols[j][r] = v
		}
	}

	for j, name := range AssetFeatureNames {
		frame.Columns = append(frame.Columns, Column{Name: Prefix(symbol) + name, Values: cols[j]})
	}
	return frame, nil
}
