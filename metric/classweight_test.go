package metric_test

import (
	"math"
	"reflect"
	"testing"

	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/espnet/metric"
)

func TestClassHistogram(t *testing.T) {
	h := metric.NewClassHistogram(3)
	h.AddValues([]int64{0, 0, 1, 1})
	label := ts.MustOfSlice([]int64{0, 2, 9, -1})
	h.Add(label)
	label.MustDrop()

	// 9 clips to class 2, -1 clips to class 0
	wantPixels := []float64{4, 2, 2}
	if !reflect.DeepEqual(wantPixels, h.Pixels) {
		t.Errorf("Want pixels: %v\nGot: %v\n", wantPixels, h.Pixels)
	}
	wantInst := []int{2, 1, 1}
	if !reflect.DeepEqual(wantInst, h.Instances) {
		t.Errorf("Want instances: %v\nGot: %v\n", wantInst, h.Instances)
	}
	if h.Images != 2 {
		t.Errorf("Want 2 images. Got %v\n", h.Images)
	}
	if !reflect.DeepEqual([]int{0, 1, 2}, h.Present()) {
		t.Errorf("Got present: %v\n", h.Present())
	}
}

func TestClassWeights(t *testing.T) {
	weights, err := metric.ClassWeights([]float64{3, 1, 0}, metric.DefaultNormVal)
	if err != nil {
		t.Fatal(err)
	}

	want := []float64{
		1 / math.Log(0.75+1.02),
		1 / math.Log(0.25+1.02),
		1 / math.Log(1.02),
	}
	for i := range want {
		if !almostEqual(want[i], weights[i]) {
			t.Errorf("class %v - want: %0.4f, got: %0.4f\n", i, want[i], weights[i])
		}
	}
	// rare classes weigh more
	if !(weights[2] > weights[1] && weights[1] > weights[0]) {
		t.Errorf("Expected weights ordered by rarity. Got %v\n", weights)
	}
}

func TestClassWeightsErrors(t *testing.T) {
	if _, err := metric.ClassWeights(nil, metric.DefaultNormVal); err == nil {
		t.Errorf("Expected error for empty histogram.")
	}
	if _, err := metric.ClassWeights([]float64{0, 0}, metric.DefaultNormVal); err == nil {
		t.Errorf("Expected error for histogram with no pixels.")
	}
	if _, err := metric.ClassWeights([]float64{1, 2}, 1.0); err == nil {
		t.Errorf("Expected error for normVal <= 1.")
	}
}
