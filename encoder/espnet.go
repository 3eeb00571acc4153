package encoder

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/espnet/base"
)

const (
	level1Out  int64 = 16 // CBR output before concatenating the input projection
	level2Down int64 = 64
	level3Down int64 = 128
	imageChans int64 = 3
)

// ESPNetEncoder is the ESPNet encoder. It yields 3 feature maps at 1/2, 1/4
// and 1/8 of the input resolution.
type ESPNetEncoder struct {
	level1    *nn.SequentialT
	proj1     *base.InputProjection
	level1Cat *nn.SequentialT

	down2     *base.ESPBlock
	blocks2   []*base.ESPBlock
	proj2     *base.InputProjection
	level2Cat *nn.SequentialT

	down3     *base.ESPBlock
	blocks3   []*base.ESPBlock
	level3Cat *nn.SequentialT
}

// NewESPNetEncoder creates ESPNetEncoder with p residual blocks at level 2
// and q residual blocks at level 3.
func NewESPNetEncoder(path *nn.Path, p, q int) (*ESPNetEncoder, error) {
	if p < 0 || q < 0 {
		return nil, errors.Errorf("block counts must be non-negative. Got p=%v, q=%v", p, q)
	}

	c1 := level1Out + imageChans
	c2 := 2*level2Down + imageChans
	c3 := 2 * level3Down

	down2, err := base.NewDownSamplerB(path.Sub("level2_0"), c1, level2Down)
	if err != nil {
		return nil, err
	}
	blocks2, err := residualBlocks(path.Sub("level2"), level2Down, p)
	if err != nil {
		return nil, err
	}
	down3, err := base.NewDownSamplerB(path.Sub("level3_0"), c2, level3Down)
	if err != nil {
		return nil, err
	}
	blocks3, err := residualBlocks(path.Sub("level3"), level3Down, q)
	if err != nil {
		return nil, err
	}

	return &ESPNetEncoder{
		level1:    base.CBR(path.Sub("level1"), imageChans, level1Out, 3, 2),
		proj1:     base.NewInputProjectionA(1),
		level1Cat: base.BR(path.Sub("br1"), c1),
		down2:     down2,
		blocks2:   blocks2,
		proj2:     base.NewInputProjectionA(2),
		level2Cat: base.BR(path.Sub("br2"), c2),
		down3:     down3,
		blocks3:   blocks3,
		level3Cat: base.BR(path.Sub("br3"), c3),
	}, nil
}

func residualBlocks(p *nn.Path, c int64, cnt int) ([]*base.ESPBlock, error) {
	var blocks []*base.ESPBlock
	for i := 0; i < cnt; i++ {
		b, err := base.NewDilatedParallelResidualBlockB(p.Sub(fmt.Sprint(i)), c, c, true)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}

	return blocks, nil
}

// forwardBlocks runs x through blocks. An empty stack returns a copy of x.
func forwardBlocks(blocks []*base.ESPBlock, x *ts.Tensor, train bool) *ts.Tensor {
	out := x.MustShallowClone()
	for _, b := range blocks {
		next := b.ForwardT(out, train)
		out.MustDrop()
		out = next
	}

	return out
}

// Channels implements Encoder interface for ESPNetEncoder.
func (e *ESPNetEncoder) Channels() []int64 {
	return []int64{
		level1Out + imageChans,
		2*level2Down + imageChans,
		2 * level3Down,
	}
}

// ForwardAll implements Encoder interface for ESPNetEncoder.
func (e *ESPNetEncoder) ForwardAll(x *ts.Tensor, train bool) []*ts.Tensor {
	// E.g. x [B 3 416 512]
	out0 := e.level1.ForwardT(x, train) // [B  16 208 256]
	inp1 := e.proj1.ForwardT(x, train)  // [B   3 208 256]
	cat1 := base.Cat(out0, inp1)
	out0.MustDrop()
	inp1.MustDrop()
	level1 := e.level1Cat.ForwardT(cat1, train) // [B  19 208 256]
	cat1.MustDrop()

	out10 := e.down2.ForwardT(level1, train)       // [B  64 104 128]
	out1 := forwardBlocks(e.blocks2, out10, train) // [B  64 104 128]
	inp2 := e.proj2.ForwardT(x, train)             // [B   3 104 128]
	cat2 := base.Cat(out1, out10, inp2)
	out1.MustDrop()
	out10.MustDrop()
	inp2.MustDrop()
	level2 := e.level2Cat.ForwardT(cat2, train) // [B 131 104 128]
	cat2.MustDrop()

	out20 := e.down3.ForwardT(level2, train)       // [B 128  52  64]
	out2 := forwardBlocks(e.blocks3, out20, train) // [B 128  52  64]
	cat3 := base.Cat(out20, out2)
	out20.MustDrop()
	out2.MustDrop()
	level3 := e.level3Cat.ForwardT(cat3, train) // [B 256  52  64]
	cat3.MustDrop()

	return []*ts.Tensor{level1, level2, level3}
}
