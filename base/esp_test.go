package base_test

import (
	"reflect"
	"testing"

	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/espnet/base"
)

func TestDownSamplerB(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	down, err := base.NewDownSamplerB(vs.Root(), 19, 64)
	if err != nil {
		t.Fatal(err)
	}

	x := ts.MustRand([]int64{2, 19, 16, 24}, gotch.Float, gotch.CPU)
	out := down.ForwardT(x, true)
	want := []int64{2, 64, 8, 12}
	if got := out.MustSize(); !reflect.DeepEqual(want, got) {
		t.Errorf("Want: %v\nGot: %v\n", want, got)
	}
	x.MustDrop()
	out.MustDrop()
}

func TestResidualBlockKeepsShape(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	// 128 = 4*25 + 28: branches of uneven width
	block, err := base.NewDilatedParallelResidualBlockB(vs.Root(), 128, 128, true)
	if err != nil {
		t.Fatal(err)
	}

	x := ts.MustRand([]int64{1, 128, 8, 8}, gotch.Float, gotch.CPU)
	out := block.ForwardT(x, false)
	if got := out.MustSize(); !reflect.DeepEqual(x.MustSize(), got) {
		t.Errorf("Want: %v\nGot: %v\n", x.MustSize(), got)
	}
	x.MustDrop()
	out.MustDrop()
}

func TestResidualBlockChannelMismatch(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	_, err := base.NewDilatedParallelResidualBlockB(vs.Root(), 40, 20, true)
	if err == nil {
		t.Errorf("Expected error for residual block with 40 -> 20 channels.")
	}

	_, err = base.NewDilatedParallelResidualBlockB(vs.Root(), 40, 20, false)
	if err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestESPBlockTooNarrow(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	_, err := base.NewDownSamplerB(vs.Root(), 3, 4)
	if err == nil {
		t.Errorf("Expected error for 4 output channels.")
	}
}

func TestInputProjectionA(t *testing.T) {
	proj := base.NewInputProjectionA(2)
	x := ts.MustRand([]int64{1, 3, 32, 40}, gotch.Float, gotch.CPU)
	out := proj.ForwardT(x, false)
	want := []int64{1, 3, 8, 10}
	if got := out.MustSize(); !reflect.DeepEqual(want, got) {
		t.Errorf("Want: %v\nGot: %v\n", want, got)
	}
	x.MustDrop()
	out.MustDrop()
}

// Padded cells must not pull the mean down: a constant image stays constant.
func TestInputProjectionExcludesPadding(t *testing.T) {
	proj := base.NewInputProjectionA(1)
	x := ts.MustOnes([]int64{1, 3, 6, 6}, gotch.Float, gotch.CPU)
	out := proj.ForwardT(x, false)
	for _, v := range out.Float64Values() {
		if v < 0.9999 || v > 1.0001 {
			t.Fatalf("Want 1.0 everywhere, got %v\n", v)
		}
	}
	x.MustDrop()
	out.MustDrop()
}

func TestConvTranspose2x(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	up := base.ConvTranspose2x(vs.Root(), 4, 6)
	x := ts.MustRand([]int64{1, 4, 5, 7}, gotch.Float, gotch.CPU)
	out := up.Forward(x)
	want := []int64{1, 6, 10, 14}
	if got := out.MustSize(); !reflect.DeepEqual(want, got) {
		t.Errorf("Want: %v\nGot: %v\n", want, got)
	}
	x.MustDrop()
	out.MustDrop()
}

func TestCDilatedKeepsSize(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	conv := base.CDilated(vs.Root(), 2, 3, 3, 1, 16)
	x := ts.MustRand([]int64{1, 2, 9, 11}, gotch.Float, gotch.CPU)
	out := conv.ForwardT(x, false)
	want := []int64{1, 3, 9, 11}
	if got := out.MustSize(); !reflect.DeepEqual(want, got) {
		t.Errorf("Want: %v\nGot: %v\n", want, got)
	}
	x.MustDrop()
	out.MustDrop()
}
