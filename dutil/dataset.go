package dutil

import (
	"reflect"
)

// Dataset is a collection of indexable samples.
type Dataset interface {
	// Len returns number of samples.
	Len() int
	// Item returns sample at index idx.
	Item(idx int) (interface{}, error)
	// DType returns type of sample returned by Item.
	DType() reflect.Type
}
