package market

import (
	"fmt"
	"math"
	"time"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/mat"
)

// Table is an immutable, validated feature table. Rows are timesteps;
// feature columns are laid out asset-major in AssetSet order.
type Table struct {
	assets           AssetSet
	featuresPerAsset int
	index            []time.Time
	names            []string
	features         *mat.Dense // rows × assets·featuresPerAsset
	closes           *mat.Dense // rows × assets
}

// NewTable selects, for every asset, the columns prefixed "<asset>_" in frame
// order. Each asset must have exactly featuresPerAsset of them, one being
// "<asset>_close". Non-finite features are replaced by zero; a close that is
// NaN, infinite or not positive is an error.
func NewTable(frame *Frame, assets AssetSet, featuresPerAsset int) (*Table, error) {
	if err := assets.Validate(); err != nil {
		return nil, err
	}
	if err := frame.Validate(); err != nil {
		return nil, err
	}
	if featuresPerAsset < 1 {
		return nil, fmt.Errorf("%w: features per asset must be positive", ErrMissingColumns)
	}
	rows := frame.Len()
	if rows == 0 {
		return nil, fmt.Errorf("%w: empty frame", ErrInsufficientData)
	}

	grouped := make(map[string][]Column, len(assets))
	for _, c := range frame.Columns {
		if asset, ok := assets.owner(c.Name); ok {
			grouped[asset] = append(grouped[asset], c)
		}
	}

	width := len(assets) * featuresPerAsset
	t := &Table{
		assets:           append(AssetSet(nil), assets...),
		featuresPerAsset: featuresPerAsset,
		index:            append([]time.Time(nil), frame.Index...),
		names:            make([]string, 0, width),
		features:         mat.NewDense(rows, width, nil),
		closes:           mat.NewDense(rows, len(assets), nil),
	}

	for a, asset := range assets {
		cols := grouped[asset]
		if len(cols) != featuresPerAsset {
			return nil, fmt.Errorf("%w: asset %s has %d feature columns, want %d",
				ErrMissingColumns, asset, len(cols), featuresPerAsset)
		}

		closeName := Prefix(asset) + CloseColumn
		closeFound := false
		for j, c := range cols {
			t.names = append(t.names, c.Name)
			col := a*featuresPerAsset + j
			if c.Name == closeName {
				closeFound = true
				for i, p := range c.Values {
					if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
						return nil, fmt.Errorf("%w: %s at row %d is %v", ErrInvalidPrice, closeName, i, p)
					}
					t.closes.Set(i, a, p)
				}
			}
			for i, v := range c.Values {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					v = 0
				}
				t.features.Set(i, col, v)
			}
		}
		if !closeFound {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumns, closeName)
		}
	}

	return t, nil
}

// TableFromFrame is NewTable with the per-asset width taken from the number
// of columns the first asset owns.
func TableFromFrame(frame *Frame, assets AssetSet) (*Table, error) {
	if err := assets.Validate(); err != nil {
		return nil, err
	}
	width := lo.CountBy(frame.Columns, func(c Column) bool {
		owner, ok := assets.owner(c.Name)
		return ok && owner == assets[0]
	})
	return NewTable(frame, assets, width)
}

// Len returns the number of timesteps.
func (t *Table) Len() int { return len(t.index) }

// Assets returns a copy of the asset set.
func (t *Table) Assets() AssetSet { return append(AssetSet(nil), t.assets...) }

// NumAssets returns the asset count.
func (t *Table) NumAssets() int { return len(t.assets) }

// FeaturesPerAsset returns the per-asset feature count.
func (t *Table) FeaturesPerAsset() int { return t.featuresPerAsset }

// NumFeatures returns the flattened per-timestep width.
func (t *Table) NumFeatures() int { return len(t.assets) * t.featuresPerAsset }

// FeatureNames returns the column names in flattened order.
func (t *Table) FeatureNames() []string { return append([]string(nil), t.names...) }

// Time returns the timestamp of row i.
func (t *Table) Time(i int) time.Time { return t.index[i] }

// Window returns a copy of rows [start, start+size).
func (t *Table) Window(start, size int) (*mat.Dense, error) {
	if size < 1 || start < 0 || start+size > t.Len() {
		return nil, fmt.Errorf("%w: rows [%d,%d) of %d", ErrOutOfRange, start, start+size, t.Len())
	}
	return mat.DenseCopyOf(t.features.Slice(start, start+size, 0, t.NumFeatures())), nil
}

// Closes returns a copy of the close prices at row i, in asset order.
func (t *Table) Closes(i int) []float64 {
	return mat.Row(nil, i, t.closes)
}
