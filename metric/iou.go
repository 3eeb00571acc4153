package metric

import (
	ts "github.com/sugarme/gotch/tensor"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// MeanIoU is a streaming mean intersection-over-union metric. It accumulates
// a confusion matrix (rows: target, cols: prediction) across updates.
type MeanIoU struct {
	classes int
	cm      *mat.Dense
}

// NewMeanIoU creates MeanIoU for given number of classes.
func NewMeanIoU(classes int) *MeanIoU {
	return &MeanIoU{
		classes: classes,
		cm:      mat.NewDense(classes, classes, nil),
	}
}

// UpdateValues accumulates flat predicted and target class indices.
// Pairs with a value outside [0, classes) are skipped.
func (m *MeanIoU) UpdateValues(pred, target []int64) {
	n := int64(m.classes)
	for i := range target {
		p, t := pred[i], target[i]
		if p < 0 || p >= n || t < 0 || t >= n {
			continue
		}
		m.cm.Set(int(t), int(p), m.cm.At(int(t), int(p))+1)
	}
}

// Update accumulates predicted class indices and targets of the same shape.
func (m *MeanIoU) Update(pred, target *ts.Tensor) {
	m.UpdateValues(pred.Int64Values(), target.Int64Values())
}

// Result returns mean IoU over classes that appear in targets or predictions.
func (m *MeanIoU) Result() float64 {
	var (
		sum   float64
		count int
	)
	row := make([]float64, m.classes)
	col := make([]float64, m.classes)
	for c := 0; c < m.classes; c++ {
		tp := m.cm.At(c, c)
		mat.Row(row, c, m.cm)
		mat.Col(col, c, m.cm)
		denom := floats.Sum(row) + floats.Sum(col) - tp
		if denom == 0 {
			continue
		}
		sum += tp / denom
		count++
	}
	if count == 0 {
		return 0
	}

	return sum / float64(count)
}

// ConfusionMatrix returns a copy of the accumulated confusion matrix.
func (m *MeanIoU) ConfusionMatrix() *mat.Dense {
	return mat.DenseCopyOf(m.cm)
}

// Reset clears accumulated state.
func (m *MeanIoU) Reset() {
	m.cm.Zero()
}
