package metric

import (
	"math"

	"github.com/pkg/errors"
	ts "github.com/sugarme/gotch/tensor"
	"gonum.org/v1/gonum/floats"
)

// DefaultNormVal is the ENet class weighting constant.
const DefaultNormVal = 1.02

// ClassHistogram accumulates class statistics over label maps.
type ClassHistogram struct {
	classes int
	// Pixels is number of pixels per class.
	Pixels []float64
	// Instances is number of label maps containing each class.
	Instances []int
	// Images is number of label maps added.
	Images int
}

// NewClassHistogram creates ClassHistogram for given number of classes.
func NewClassHistogram(classes int) *ClassHistogram {
	return &ClassHistogram{
		classes:   classes,
		Pixels:    make([]float64, classes),
		Instances: make([]int, classes),
	}
}

// bin maps a label value to its histogram bin. Out-of-range values fall into
// the edge bins.
func (h *ClassHistogram) bin(v int64) int {
	switch {
	case v < 0:
		return 0
	case v >= int64(h.classes):
		return h.classes - 1
	default:
		return int(v)
	}
}

// AddValues adds one label map given as flat class indices.
func (h *ClassHistogram) AddValues(labels []int64) {
	seen := make([]bool, h.classes)
	for _, v := range labels {
		b := h.bin(v)
		h.Pixels[b]++
		seen[b] = true
	}
	for c, ok := range seen {
		if ok {
			h.Instances[c]++
		}
	}
	h.Images++
}

// Add adds one label map tensor (any shape, integer values).
func (h *ClassHistogram) Add(label *ts.Tensor) {
	h.AddValues(label.Int64Values())
}

// Present returns classes found in at least one label map.
func (h *ClassHistogram) Present() []int {
	var classes []int
	for c, n := range h.Instances {
		if n > 0 {
			classes = append(classes, c)
		}
	}

	return classes
}

// Weights returns class weights from the pixel histogram.
func (h *ClassHistogram) Weights(normVal float64) ([]float64, error) {
	return ClassWeights(h.Pixels, normVal)
}

// ClassWeights computes ENet class weights: w = 1/ln(p + normVal) where p is
// the class pixel frequency.
// Ref. https://arxiv.org/abs/1606.02147
func ClassWeights(hist []float64, normVal float64) ([]float64, error) {
	if len(hist) == 0 {
		return nil, errors.New("empty class histogram")
	}
	if normVal <= 1 {
		return nil, errors.Errorf("normVal must be greater than 1. Got %v", normVal)
	}
	total := floats.Sum(hist)
	if total <= 0 {
		return nil, errors.New("class histogram has no pixels")
	}

	norm := make([]float64, len(hist))
	copy(norm, hist)
	floats.Scale(1/total, norm)
	floats.AddConst(normVal, norm)

	weights := make([]float64, len(norm))
	for i, v := range norm {
		weights[i] = 1 / math.Log(v)
	}

	return weights, nil
}
