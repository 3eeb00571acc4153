package dutil

import (
	"math/rand"
	"time"

	"github.com/pkg/errors"
)

// BatchSampler splits dataset indices into batches.
type BatchSampler struct {
	n         int
	batchSize int
	dropLast  bool
	shuffle   bool
	rnd       *rand.Rand
	batches   [][]int
}

// NewBatchSampler creates BatchSampler for n samples. If dropLast is true, a
// trailing batch smaller than batchSize is discarded. If shuffle is true,
// indices are shuffled on creation and on every Reset.
func NewBatchSampler(n, batchSize int, dropLast, shuffle bool) (*BatchSampler, error) {
	if batchSize <= 0 {
		return nil, errors.Errorf("batch size must be positive. Got %v", batchSize)
	}
	if n < 0 {
		return nil, errors.Errorf("number of samples must be non-negative. Got %v", n)
	}

	s := &BatchSampler{
		n:         n,
		batchSize: batchSize,
		dropLast:  dropLast,
		shuffle:   shuffle,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	s.Reset()

	return s, nil
}

// Seed reseeds the shuffle source and resamples batches.
func (s *BatchSampler) Seed(seed int64) {
	s.rnd = rand.New(rand.NewSource(seed))
	s.Reset()
}

// Reset resamples batches.
func (s *BatchSampler) Reset() {
	var indices []int
	if s.shuffle {
		indices = s.rnd.Perm(s.n)
	} else {
		indices = make([]int, s.n)
		for i := range indices {
			indices[i] = i
		}
	}

	var batches [][]int
	for start := 0; start < s.n; start += s.batchSize {
		end := start + s.batchSize
		if end > s.n {
			if s.dropLast {
				break
			}
			end = s.n
		}
		batches = append(batches, indices[start:end])
	}
	s.batches = batches
}

// Batches returns current batches of indices.
func (s *BatchSampler) Batches() [][]int {
	return s.batches
}

// Len returns number of batches.
func (s *BatchSampler) Len() int {
	return len(s.batches)
}
