package base

import (
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"
)

// bnConfig uses eps 1e-3 and a running-average decay of 0.99 (libtorch
// momentum is the complement of the decay).
func bnConfig() *nn.BatchNormConfig {
	config := nn.DefaultBatchNormConfig()
	config.Eps = 0.001
	config.Momentum = 0.01

	return config
}

// Conv2dNoBias creates Conv2D with no bias.
func Conv2dNoBias(p *nn.Path, cIn, cOut, ksize, padding, stride int64) *nn.Conv2D {
	config := nn.DefaultConv2DConfig()
	config.Bias = false
	config.Stride = []int64{stride, stride}
	config.Padding = []int64{padding, padding}

	return nn.NewConv2D(p, cIn, cOut, ksize, config)
}

// C creates a convolution with no bias and `same` padding.
func C(p *nn.Path, cIn, cOut, ksize, stride int64) *nn.Conv2D {
	return Conv2dNoBias(p, cIn, cOut, ksize, (ksize-1)/2, stride)
}

// CDilated creates a dilated convolution with no bias. Padding grows with the
// dilation rate so that spatial size is kept at stride 1.
func CDilated(p *nn.Path, cIn, cOut, ksize, stride, d int64) *nn.Conv2D {
	pad := ((ksize - 1) / 2) * d
	config := nn.DefaultConv2DConfig()
	config.Bias = false
	config.Stride = []int64{stride, stride}
	config.Padding = []int64{pad, pad}
	config.Dilation = []int64{d, d}

	return nn.NewConv2D(p, cIn, cOut, ksize, config)
}

// BN creates a batch norm layer with ESPNet settings.
func BN(p *nn.Path, c int64) *nn.BatchNorm {
	return nn.BatchNorm2D(p, c, bnConfig())
}

// BR creates a SequentialT of batch norm and ReLU activation.
func BR(p *nn.Path, c int64) *nn.SequentialT {
	seq := nn.SeqT()
	seq.Add(BN(p.Sub("bn"), c))
	seq.AddFn(nn.NewFunc(func(xs *ts.Tensor) *ts.Tensor {
		return xs.MustRelu(false)
	}))

	return seq
}

// CBR creates a SequentialT composing of Conv2D No bias, batch norm and a ReLU activation.
func CBR(p *nn.Path, cIn, cOut, ksize, stride int64) *nn.SequentialT {
	seq := nn.SeqT()
	seq.Add(C(p.Sub("conv"), cIn, cOut, ksize, stride))
	seq.Add(BN(p.Sub("bn"), cOut))
	seq.AddFn(nn.NewFunc(func(xs *ts.Tensor) *ts.Tensor {
		return xs.MustRelu(false)
	}))

	return seq
}

// ConvTranspose2x creates a kernel 2, stride 2 transposed convolution with no
// bias. It doubles height and width.
func ConvTranspose2x(p *nn.Path, cIn, cOut int64) *nn.ConvTranspose2D {
	config := &nn.ConvTranspose2DConfig{
		Stride:        []int64{2, 2},
		Padding:       []int64{0, 0},
		OutputPadding: []int64{0, 0},
		Dilation:      []int64{1, 1},
		Groups:        1,
		Bias:          false,
		WsInit:        nn.NewKaimingUniformInit(),
	}

	return nn.NewConvTranspose2D(p, cIn, cOut, []int64{2, 2}, config)
}

// Cat concatenates tensors along channel dimension.
func Cat(xs ...*ts.Tensor) *ts.Tensor {
	tensors := make([]ts.Tensor, len(xs))
	for i, x := range xs {
		tensors[i] = *x
	}

	return ts.MustCat(tensors, 1)
}
