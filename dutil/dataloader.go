package dutil

import (
	"reflect"

	"github.com/pkg/errors"
)

// DataLoader iterates a Dataset batch by batch.
type DataLoader struct {
	dataset Dataset
	sampler *BatchSampler
	current int
}

// NewDataLoader creates DataLoader.
func NewDataLoader(ds Dataset, s *BatchSampler) (*DataLoader, error) {
	if ds == nil {
		return nil, errors.New("nil dataset")
	}
	if s == nil {
		return nil, errors.New("nil sampler")
	}

	return &DataLoader{dataset: ds, sampler: s}, nil
}

// HasNext reports whether there is a batch left.
func (dl *DataLoader) HasNext() bool {
	return dl.current < dl.sampler.Len()
}

// Next returns next batch as a slice of the dataset item type, e.g.
// []Sample for a Dataset whose Item returns Sample.
func (dl *DataLoader) Next() (interface{}, error) {
	if !dl.HasNext() {
		return nil, errors.New("no batch left. Call Reset to start over")
	}
	indices := dl.sampler.Batches()[dl.current]
	dl.current++

	batch := reflect.MakeSlice(reflect.SliceOf(dl.dataset.DType()), 0, len(indices))
	for _, idx := range indices {
		item, err := dl.dataset.Item(idx)
		if err != nil {
			return nil, errors.Wrapf(err, "loading item %v", idx)
		}
		batch = reflect.Append(batch, reflect.ValueOf(item))
	}

	return batch.Interface(), nil
}

// Reset resamples and rewinds to first batch.
func (dl *DataLoader) Reset() {
	dl.sampler.Reset()
	dl.current = 0
}

// Len returns number of batches per pass.
func (dl *DataLoader) Len() int {
	return dl.sampler.Len()
}
