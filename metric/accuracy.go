package metric

import (
	ts "github.com/sugarme/gotch/tensor"
)

// Accuracy is a streaming pixel accuracy. With class weights, each pixel
// counts with the weight of its target class.
type Accuracy struct {
	weights []float64
	correct float64
	total   float64
}

// NewAccuracy creates an unweighted Accuracy.
func NewAccuracy() *Accuracy {
	return &Accuracy{}
}

// NewWeightedAccuracy creates an Accuracy weighted by target class.
func NewWeightedAccuracy(classWeights []float64) *Accuracy {
	return &Accuracy{weights: classWeights}
}

func (a *Accuracy) weight(target int64) float64 {
	if a.weights == nil {
		return 1
	}
	if target < 0 || target >= int64(len(a.weights)) {
		return 0
	}

	return a.weights[target]
}

// UpdateValues accumulates flat predicted and target class indices.
func (a *Accuracy) UpdateValues(pred, target []int64) {
	for i, t := range target {
		w := a.weight(t)
		if pred[i] == t {
			a.correct += w
		}
		a.total += w
	}
}

// Update accumulates predicted class indices and targets of the same shape.
func (a *Accuracy) Update(pred, target *ts.Tensor) {
	a.UpdateValues(pred.Int64Values(), target.Int64Values())
}

// Result returns accuracy so far.
func (a *Accuracy) Result() float64 {
	if a.total == 0 {
		return 0
	}

	return a.correct / a.total
}

// Reset clears accumulated state.
func (a *Accuracy) Reset() {
	a.correct = 0
	a.total = 0
}
