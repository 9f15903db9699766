package market

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/samber/lo"
)

// BuildFrame computes the engineered features of every asset and joins them
// on the timestamps all assets share. Columns follow asset order.
func BuildFrame(ctx context.Context, src BarSource, assets AssetSet, from, to time.Time) (*Frame, error) {
	if err := assets.Validate(); err != nil {
		return nil, err
	}

	perAsset := make([]*Frame, len(assets))
	var common []int64
	for i, asset := range assets {
		bars, err := src.List(ctx, asset, from, to)
		if err != nil {
			return nil, fmt.Errorf("failed to load bars for %s: %w", asset, err)
		}
		frame, err := BuildAssetFeatures(asset, bars)
		if err != nil {
			return nil, err
		}
		perAsset[i] = frame

		stamps := lo.Map(frame.Index, func(ts time.Time, _ int) int64 { return ts.Unix() })
		if i == 0 {
			common = stamps
		} else {
			common = lo.Intersect(common, stamps)
		}
	}
	slices.Sort(common)
	if len(common) == 0 {
		return nil, fmt.Errorf("%w: assets %v share no timestamps", ErrInsufficientData, []string(assets))
	}

	out := &Frame{
		Index: lo.Map(common, func(s int64, _ int) time.Time { return time.Unix(s, 0).UTC() }),
	}
	for _, frame := range perAsset {
		rowOf := lo.SliceToMapI(frame.Index, func(ts time.Time, i int) (int64, int) { return ts.Unix(), i })
		for _, c := range frame.Columns {
			values := lo.Map(common, func(s int64, _ int) float64 { return c.Values[rowOf[s]] })
			out.Columns = append(out.Columns, Column{Name: c.Name, Values: values})
		}
	}
	return out, nil
}

// BuildTable is BuildFrame followed by NewTable with the engineered feature width.
func BuildTable(ctx context.Context, src BarSource, assets AssetSet, from, to time.Time) (*Table, error) {
	frame, err := BuildFrame(ctx, src, assets, from, to)
	if err != nil {
		return nil, err
	}
	return NewTable(frame, assets, NumAssetFeatures)
}
