package train

import (
	"fmt"
	"log"

	"github.com/pkg/errors"

	"github.com/sugarme/espnet/dutil"
	"github.com/sugarme/espnet/metric"
)

// LabeledDataset is a dutil.Dataset whose label maps can be loaded alone.
type LabeledDataset interface {
	dutil.Dataset
	LabelValues(idx int) ([]int64, error)
}

// ClassWeights runs a pass over all label maps of ds and returns the class
// histogram and ENet class weights.
func ClassWeights(ds LabeledDataset, classes int, normVal float64) (*metric.ClassHistogram, []float64, error) {
	hist := metric.NewClassHistogram(classes)
	log.Printf("Processing class weights over %v samples...\n", ds.Len())
	for i := 0; i < ds.Len(); i++ {
		labels, err := ds.LabelValues(i)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "class weights: sample %v", i)
		}
		hist.AddValues(labels)
	}

	weights, err := hist.Weights(normVal)
	if err != nil {
		return nil, nil, errors.Wrap(err, "class weights")
	}

	return hist, weights, nil
}

// logInstances prints number of images containing each class.
func logInstances(hist *metric.ClassHistogram) {
	log.Printf("Number of images containing given class:\n")
	for c, n := range hist.Instances {
		if n == 0 {
			continue
		}
		fmt.Printf("class %3d\t images: %6d\t pixels: %10.0f\n", c, n, hist.Pixels[c])
	}
}
