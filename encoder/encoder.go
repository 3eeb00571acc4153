package encoder

import (
	ts "github.com/sugarme/gotch/tensor"
)

// Encoder is encoder interface for a image segmentation model.
type Encoder interface {
	// ForwardAll returns feature maps ordered from highest to lowest resolution.
	ForwardAll(x *ts.Tensor, train bool) []*ts.Tensor
	// Channels returns the channel count of each feature map from ForwardAll.
	Channels() []int64
}
