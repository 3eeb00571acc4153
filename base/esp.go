package base

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"
)

// dilations of the parallel branches in an ESP block.
var dilations = []int64{1, 2, 4, 8, 16}

// ESPBlock is the efficient spatial pyramid block:
// reduce -> split -> transform (dilated convs) -> merge (hierarchical fusion).
// Ref. https://arxiv.org/abs/1803.06815
type ESPBlock struct {
	reduce   *nn.Conv2D
	branches []*nn.Conv2D
	add      bool
	br       *nn.SequentialT
}

// branchWidths splits nOut channels into 5 branches. The first (d=1) branch
// takes what remains after the 4 equal ones.
func branchWidths(nOut int64) (n, n1 int64, err error) {
	n = nOut / 5
	n1 = nOut - 4*n
	if n < 1 {
		return 0, 0, errors.Errorf("ESP block needs at least 5 output channels. Got %v", nOut)
	}

	return n, n1, nil
}

func newESPBlock(p *nn.Path, reduce *nn.Conv2D, n, n1, nOut int64, add bool) *ESPBlock {
	var branches []*nn.Conv2D
	for i, d := range dilations {
		cOut := n
		if i == 0 {
			cOut = n1
		}
		branches = append(branches, CDilated(p.Sub(fmt.Sprintf("d%v", d)), n, cOut, 3, 1, d))
	}

	return &ESPBlock{
		reduce:   reduce,
		branches: branches,
		add:      add,
		br:       BR(p.Sub("br"), nOut),
	}
}

// NewDownSamplerB creates an ESP block whose reduce step is a strided 3x3
// convolution. Output has half the input height and width.
func NewDownSamplerB(p *nn.Path, cIn, nOut int64) (*ESPBlock, error) {
	n, n1, err := branchWidths(nOut)
	if err != nil {
		return nil, errors.Wrap(err, "down sampler")
	}
	reduce := C(p.Sub("c1"), cIn, n, 3, 2)

	return newESPBlock(p, reduce, n, n1, nOut, false), nil
}

// NewDilatedParallelResidualBlockB creates an ESP block with a 1x1 reduce
// step. If add is true, input is added to the merged branches and cIn must
// equal nOut.
func NewDilatedParallelResidualBlockB(p *nn.Path, cIn, nOut int64, add bool) (*ESPBlock, error) {
	n, n1, err := branchWidths(nOut)
	if err != nil {
		return nil, errors.Wrap(err, "residual block")
	}
	if add && cIn != nOut {
		return nil, errors.Errorf("residual block: input channels (%v) must equal output channels (%v)", cIn, nOut)
	}
	reduce := C(p.Sub("c1"), cIn, n, 1, 1)

	return newESPBlock(p, reduce, n, n1, nOut, add), nil
}

// ForwardT implements ts.ModuleT for ESPBlock.
func (b *ESPBlock) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	reduced := b.reduce.ForwardT(x, train)

	// hierarchical fusion for de-gridding: add_k = add_{k-1} + d_k
	outs := []*ts.Tensor{b.branches[0].ForwardT(reduced, train)}
	var sum *ts.Tensor
	for _, branch := range b.branches[1:] {
		d := branch.ForwardT(reduced, train)
		if sum == nil {
			sum = d
		} else {
			sum = sum.MustAdd(d, false)
			d.MustDrop()
		}
		outs = append(outs, sum)
	}
	reduced.MustDrop()

	combine := Cat(outs...)
	for _, o := range outs {
		o.MustDrop()
	}
	if b.add {
		combine = combine.MustAdd(x, true)
	}

	out := b.br.ForwardT(combine, train)
	combine.MustDrop()

	return out
}

// InputProjection projects the input image down to the spatial size of a
// feature map with a pyramid of 3x3 stride-2 average poolings.
type InputProjection struct {
	samplingTimes int
}

// NewInputProjectionA creates an InputProjection that halves height and width
// samplingTimes times.
func NewInputProjectionA(samplingTimes int) *InputProjection {
	return &InputProjection{samplingTimes}
}

// ForwardT implements ts.ModuleT for InputProjection.
func (m *InputProjection) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	out := x.MustDetach(false)
	for i := 0; i < m.samplingTimes; i++ {
		pooled := avgPoolSame(out)
		out.MustDrop()
		out = pooled
	}

	return out
}

// avgPoolSame is a 3x3 stride 2 average pooling with `same` padding.
// Padded cells are left out of the mean: window sums are divided by the
// number of valid cells in each window.
func avgPoolSame(x *ts.Tensor) *ts.Tensor {
	ksize := []int64{3, 3}
	stride := []int64{2, 2}
	padding := []int64{1, 1}

	size := x.MustSize()
	ones := ts.MustOnes([]int64{1, 1, size[2], size[3]}, x.DType(), x.MustDevice())
	// divisorOverride = 1 turns the pooling into a window sum.
	sum := x.MustAvgPool2d(ksize, stride, padding, false, true, []int64{1}, false)
	count := ones.MustAvgPool2d(ksize, stride, padding, false, true, []int64{1}, true)
	out := sum.MustDiv(count, true)
	count.MustDrop()

	return out
}
