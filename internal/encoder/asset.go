package encoder

import (
	"fmt"
	"math/rand/v2"

	"github.com/aristath/deepfolio/internal/config"
	"github.com/aristath/deepfolio/internal/nn"
	"gonum.org/v1/gonum/mat"
)

// AssetEncoder maps one asset's (sequence_length × num_features_per_asset)
// window to an lstm_units2-wide embedding. One instance is shared by every
// asset in the set.
type AssetEncoder struct {
	seqLen   int
	features int
	dropout  float64

	conv1 *nn.Conv1D
	conv2 *nn.Conv1D
	lstm1 *nn.LSTM
	lstm2 *nn.LSTM
	norm  *nn.LayerNorm
}

// NewAssetEncoder initializes the convolutional and recurrent stages from rng.
func NewAssetEncoder(cfg config.NetworkConfig, rng *rand.Rand) *AssetEncoder {
	return &AssetEncoder{
		seqLen:   cfg.SequenceLength,
		features: cfg.NumFeaturesPerAsset,
		dropout:  cfg.Dropout,
		conv1:    nn.NewConv1D(rng, cfg.NumFeaturesPerAsset, cfg.CNNFilters1, cfg.KernelSize, nn.ReLU),
		conv2:    nn.NewConv1D(rng, cfg.CNNFilters1, cfg.CNNFilters2, cfg.KernelSize, nn.ReLU),
		lstm1:    nn.NewLSTM(rng, cfg.CNNFilters2, cfg.LSTMUnits1),
		lstm2:    nn.NewLSTM(rng, cfg.LSTMUnits1, cfg.LSTMUnits2),
		norm:     nn.NewLayerNorm(cfg.LSTMUnits2),
	}
}

// Forward encodes one window.
func (e *AssetEncoder) Forward(window mat.Matrix, mode nn.Mode) ([]float64, error) {
	if r, c := window.Dims(); r != e.seqLen || c != e.features {
		return nil, fmt.Errorf("%w: asset window is %dx%d, want %dx%d",
			ErrShapeMismatch, r, c, e.seqLen, e.features)
	}

	x := e.conv1.Forward(window)
	mode.Dropout(x, e.dropout)
	x = e.conv2.Forward(x)
	mode.Dropout(x, e.dropout)
	x = e.lstm1.Sequence(x)
	mode.Dropout(x, e.dropout)
	x = e.lstm2.Final(x)
	mode.Dropout(x, e.dropout)
	x = e.norm.Forward(x)

	return x.RawRowView(0), nil
}

// OutputDim is the embedding width.
func (e *AssetEncoder) OutputDim() int { return e.lstm2.Units }

// NumParams counts trainable weights.
func (e *AssetEncoder) NumParams() int {
	return e.conv1.NumParams() + e.conv2.NumParams() +
		e.lstm1.NumParams() + e.lstm2.NumParams() + e.norm.NumParams()
}
