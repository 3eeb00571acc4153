package espnet

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/espnet/base"
)

// Decoder is the ESPNet decoder. It fuses the 3 encoder levels bottom-up and
// upsamples back to half the input resolution.
type Decoder struct {
	proj3 *nn.Conv2D
	bn3   *nn.BatchNorm
	up3   *nn.ConvTranspose2D

	proj2  *nn.Conv2D
	br2    *nn.SequentialT
	fuse2  *base.ESPBlock
	up2    *nn.ConvTranspose2D
	upBr2  *nn.SequentialT
	merge1 *nn.SequentialT
}

// NewDecoder creates Decoder for encoder features with given channels.
func NewDecoder(p *nn.Path, encoderChannels []int64, classes int64) (*Decoder, error) {
	if len(encoderChannels) != 3 {
		return nil, errors.Errorf("expected 3 encoder levels. Got %v", len(encoderChannels))
	}
	c1, c2, c3 := encoderChannels[0], encoderChannels[1], encoderChannels[2]

	fuse2, err := base.NewDilatedParallelResidualBlockB(p.Sub("fuse2"), 2*classes, classes, false)
	if err != nil {
		return nil, errors.Wrap(err, "decoder")
	}

	return &Decoder{
		proj3:  base.C(p.Sub("proj3"), c3, classes, 1, 1),
		bn3:    base.BN(p.Sub("bn3"), classes),
		up3:    base.ConvTranspose2x(p.Sub("up3"), classes, classes),
		proj2:  base.C(p.Sub("proj2"), c2, classes, 1, 1),
		br2:    base.BR(p.Sub("br2"), 2*classes),
		fuse2:  fuse2,
		up2:    base.ConvTranspose2x(p.Sub("up2"), classes, classes),
		upBr2:  base.BR(p.Sub("up2_br"), classes),
		merge1: base.CBR(p.Sub("merge1"), classes+c1, classes, 3, 1),
	}, nil
}

// ForwardFeatures forwards through encoder features.
func (d *Decoder) ForwardFeatures(features []*ts.Tensor, train bool) *ts.Tensor {
	if len(features) != 3 {
		panic(fmt.Sprintf("Expected features of 3 tensors. Got %v", len(features)))
	}
	level1, level2, level3 := features[0], features[1], features[2]

	p3 := d.proj3.ForwardT(level3, train) // [B C H/8 W/8]
	bn3 := d.bn3.ForwardT(p3, train)
	p3.MustDrop()
	l3 := d.up3.Forward(bn3) // [B C H/4 W/4]
	bn3.MustDrop()

	l2 := d.proj2.ForwardT(level2, train) // [B C H/4 W/4]
	cat2 := base.Cat(l2, l3)
	l2.MustDrop()
	l3.MustDrop()
	comb := d.br2.ForwardT(cat2, train) // [B 2C H/4 W/4]
	cat2.MustDrop()
	fused := d.fuse2.ForwardT(comb, train) // [B C H/4 W/4]
	comb.MustDrop()
	up := d.up2.Forward(fused) // [B C H/2 W/2]
	fused.MustDrop()
	upBr := d.upBr2.ForwardT(up, train)
	up.MustDrop()

	cat1 := base.Cat(upBr, level1)
	upBr.MustDrop()
	out := d.merge1.ForwardT(cat1, train) // [B C H/2 W/2]
	cat1.MustDrop()

	return out
}
