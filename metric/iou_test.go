package metric_test

import (
	"testing"

	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/espnet/metric"
)

func TestMeanIoU(t *testing.T) {
	pslice := []int64{1, 0, 0, 1, 0, 0, 1, 0, 0}
	tslice := []int64{1, 0, 0, 1, 1, 0, 1, 0, 0}

	pred := ts.MustOfSlice(pslice).MustView([]int64{1, 3, 3}, true)
	target := ts.MustOfSlice(tslice).MustView([]int64{1, 3, 3}, true)

	m := metric.NewMeanIoU(2)
	m.Update(pred, target)

	// class 0: tp=5, fp=1, fn=0 -> 5/6
	// class 1: tp=3, fp=0, fn=1 -> 3/4
	want := (5.0/6.0 + 3.0/4.0) / 2
	if got := m.Result(); !almostEqual(got, want) {
		t.Errorf("Want: %0.4f\nGot: %0.4f\n", want, got)
	}
	pred.MustDrop()
	target.MustDrop()
}

func TestMeanIoUSkipsAbsentClasses(t *testing.T) {
	m := metric.NewMeanIoU(4)
	m.UpdateValues([]int64{0, 1}, []int64{0, 1})
	if got := m.Result(); !almostEqual(got, 1.0) {
		t.Errorf("Want: 1.0\nGot: %0.4f\n", got)
	}
}

func TestMeanIoUStreamingAndReset(t *testing.T) {
	m := metric.NewMeanIoU(2)
	m.UpdateValues([]int64{0}, []int64{0})
	m.UpdateValues([]int64{0}, []int64{1})
	// class 0: 1/2, class 1: 0/1
	if got := m.Result(); !almostEqual(got, 0.25) {
		t.Errorf("Want: 0.25\nGot: %0.4f\n", got)
	}
	if got := m.ConfusionMatrix().At(1, 0); got != 1 {
		t.Errorf("Want confusion[1][0] = 1. Got %v\n", got)
	}

	m.Reset()
	if got := m.Result(); got != 0 {
		t.Errorf("Want 0 after reset. Got %v\n", got)
	}
}

func TestMeanIoUIgnoresOutOfRange(t *testing.T) {
	m := metric.NewMeanIoU(2)
	m.UpdateValues([]int64{1, 0}, []int64{1, 7})
	if got := m.Result(); !almostEqual(got, 1.0) {
		t.Errorf("Want: 1.0\nGot: %0.4f\n", got)
	}
}
