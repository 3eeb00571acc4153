package metric

import (
	"github.com/sugarme/gotch"
	ts "github.com/sugarme/gotch/tensor"
)

// NOTE: reduction: none = 0; mean = 1; sum = 2.
// ref. https://pytorch.org/docs/master/nn.functional.html#torch.nn.functional.nll_loss
const (
	reductionNone int64 = 0
	ignoreIndex   int64 = -100
)

// CrossEntropy computes sparse softmax cross entropy between logits
// [B C H W] and class indices target [B H W] (int64), averaged over pixels.
func CrossEntropy(logits, target *ts.Tensor) *ts.Tensor {
	return WeightedCrossEntropy(logits, target, nil)
}

// WeightedCrossEntropy computes sparse softmax cross entropy between logits
// [B C H W] and class indices target [B H W] (int64). Each pixel loss is
// scaled by the weight of its target class, then averaged over all pixels.
// If classWeights is nil, pixels are weighted equally. Targets outside
// [0, C) contribute zero loss.
func WeightedCrossEntropy(logits, target, classWeights *ts.Tensor) *ts.Tensor {
	classes := logits.MustSize()[1]
	over := target.MustGe(ts.IntScalar(classes), false)
	invalid := target.MustLt(ts.IntScalar(0), false).MustLogicalOr(over, true)
	over.MustDrop()
	safe := target.MustMaskedFill(invalid, ts.IntScalar(ignoreIndex), false)

	logp := logits.MustLogSoftmax(1, logits.DType(), false)
	pixLoss := logp.MustNllLoss2d(safe, ts.NewTensor(), reductionNone, ignoreIndex, true).MustView([]int64{-1}, true)
	safe.MustDrop()

	if classWeights != nil {
		// ignored pixels already have zero loss, any valid index will do.
		idx := target.MustMaskedFill(invalid, ts.IntScalar(0), false)
		flat := idx.MustView([]int64{-1}, true)
		w := classWeights.MustTotype(pixLoss.DType(), false)
		pixWeights := w.MustIndexSelect(0, flat, true)
		flat.MustDrop()
		pixLoss = pixLoss.MustMul(pixWeights, true)
		pixWeights.MustDrop()
	}
	invalid.MustDrop()

	return pixLoss.MustMean(pixLoss.DType(), true)
}

// Argmax returns predicted class indices [B H W] from logits [B C H W].
func Argmax(logits *ts.Tensor) *ts.Tensor {
	return logits.MustArgmax([]int64{1}, false, false)
}

// WeightsTensor converts class weights to a 1-D float tensor on device.
func WeightsTensor(weights []float64, device gotch.Device) *ts.Tensor {
	vals := make([]float32, len(weights))
	for i, w := range weights {
		vals[i] = float32(w)
	}

	return ts.MustOfSlice(vals).MustTo(device, true)
}
