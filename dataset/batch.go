package dataset

import (
	"math/rand"

	"github.com/gorgonia/dbn/errs"
	"github.com/gorgonia/dbn/internal/linalg"
	"gorgonia.org/tensor"
)

// Batcher hands out fixed-size column batches of a nodes × samples matrix.
// A trailing partial batch is never returned.
type Batcher struct {
	src     *tensor.Dense
	size    int
	order   []int
	pos     int
	shuffle bool
	r       *rand.Rand
}

// NewBatcher creates a batcher over src. If shuffle is set the column order is
// permuted with a generator seeded by seed, and again on every Reset.
func NewBatcher(src *tensor.Dense, size int, seed int64, shuffle bool) (*Batcher, error) {
	_, samples := linalg.Dims(src)
	if size <= 0 {
		return nil, errs.Configf("batch size must be positive, got %d", size)
	}
	if size > samples {
		return nil, errs.Configf("batch size %d is larger than the %d samples", size, samples)
	}
	b := &Batcher{
		src:     src,
		size:    size,
		order:   make([]int, samples),
		shuffle: shuffle,
		r:       rand.New(rand.NewSource(seed)),
	}
	for i := range b.order {
		b.order[i] = i
	}
	b.Reset()
	return b, nil
}

// Len is the number of full batches per pass.
func (b *Batcher) Len() int { return len(b.order) / b.size }

// Size is the number of columns per batch.
func (b *Batcher) Size() int { return b.size }

// Reset starts a new pass over the data.
func (b *Batcher) Reset() {
	b.pos = 0
	if !b.shuffle {
		return
	}
	for i := range b.order {
		j := b.r.Intn(i + 1)
		b.order[i], b.order[j] = b.order[j], b.order[i]
	}
}

// Next copies the next batch into dst. It returns false once fewer than a
// full batch of columns remain.
func (b *Batcher) Next(dst *tensor.Dense) (bool, error) {
	if b.pos+b.size > len(b.order) {
		return false, nil
	}
	if err := linalg.Gather(dst, b.src, b.order[b.pos:b.pos+b.size]); err != nil {
		return false, err
	}
	b.pos += b.size
	return true, nil
}
