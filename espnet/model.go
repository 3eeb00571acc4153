package espnet

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/espnet/base"
	"github.com/sugarme/espnet/encoder"
)

// Config holds ESPNet hyper-parameters.
type Config struct {
	Classes int64 // number of output classes, background included
	P       int   // residual ESP blocks at 1/4 resolution
	Q       int   // residual ESP blocks at 1/8 resolution
}

// DefaultConfig returns ESPNet config with 20 classes, p=2 and q=8.
func DefaultConfig() Config {
	return Config{Classes: 20, P: 2, Q: 8}
}

// ESPNet is an efficient spatial pyramid network for semantic segmentation.
// Ref: https://arxiv.org/abs/1803.06815
type ESPNet struct {
	encoder encoder.Encoder
	decoder *Decoder
	segHead *base.SegmentationHead
	classes int64
}

// New creates ESPNet.
func New(p *nn.Path, cfg Config) (*ESPNet, error) {
	if cfg.Classes < 5 {
		return nil, errors.Errorf("ESPNet needs at least 5 classes. Got %v", cfg.Classes)
	}

	enc, err := encoder.NewESPNetEncoder(p.Sub("encoder"), cfg.P, cfg.Q)
	if err != nil {
		return nil, errors.Wrap(err, "building encoder")
	}
	dec, err := NewDecoder(p.Sub("decoder"), enc.Channels(), cfg.Classes)
	if err != nil {
		return nil, errors.Wrap(err, "building decoder")
	}
	head := base.NewSegmentationHead(p.Sub("classifier"), cfg.Classes, cfg.Classes)

	return &ESPNet{
		encoder: enc,
		decoder: dec,
		segHead: head,
		classes: cfg.Classes,
	}, nil
}

// Classes returns number of output classes.
func (n *ESPNet) Classes() int64 {
	return n.classes
}

// Validate checks that an input of given shape can go through the network:
// [B 3 H W] with H and W multiples of 8.
func Validate(shape []int64) error {
	if len(shape) != 4 {
		return errors.Errorf("expected input of shape [B 3 H W]. Got %v", shape)
	}
	if shape[1] != 3 {
		return errors.Errorf("expected 3 input channels. Got %v", shape[1])
	}
	if shape[2]%8 != 0 || shape[3]%8 != 0 {
		return errors.Errorf("input height and width must be multiples of 8. Got %vx%v", shape[2], shape[3])
	}

	return nil
}

// ForwardT implements ts.ModuleT for ESPNet. It returns logits of shape
// [B classes H W].
func (n *ESPNet) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	if err := Validate(x.MustSize()); err != nil {
		panic(fmt.Sprintf("ESPNet: %v", err))
	}

	features := n.encoder.ForwardAll(x, train)
	out := n.decoder.ForwardFeatures(features, train)
	logits := n.segHead.ForwardT(out, train)

	for _, f := range features {
		f.MustDrop()
	}
	out.MustDrop()

	return logits
}
