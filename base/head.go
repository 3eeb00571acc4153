package base

import (
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"
)

// SegmentationHead upsamples decoder features 2x and projects them to class
// logits.
type SegmentationHead struct {
	up *nn.ConvTranspose2D
}

// NewSegmentationHead creates new SegmentationHead.
func NewSegmentationHead(p *nn.Path, cIn, classes int64) *SegmentationHead {
	return &SegmentationHead{ConvTranspose2x(p, cIn, classes)}
}

// ForwardT implements ts.ModuleT for SegmentationHead.
func (h *SegmentationHead) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	return h.up.Forward(x)
}
