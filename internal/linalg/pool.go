package linalg

import (
	"sync"

	"gorgonia.org/tensor"
)

type shape struct{ rows, cols int }

var (
	scratchLock sync.Mutex
	scratchPool = make(map[shape]*sync.Pool)
)

func scratchFor(s shape) *sync.Pool {
	scratchLock.Lock()
	defer scratchLock.Unlock()
	if p, ok := scratchPool[s]; ok {
		return p
	}
	p := &sync.Pool{
		New: func() interface{} {
			return tensor.New(tensor.WithShape(s.rows, s.cols), tensor.Of(tensor.Float32))
		},
	}
	scratchPool[s] = p
	return p
}

// Borrow returns a rows × cols scratch matrix. Its contents are undefined.
// The caller must have checked the size with Alloc beforehand.
func Borrow(rows, cols int) *tensor.Dense {
	return scratchFor(shape{rows, cols}).Get().(*tensor.Dense)
}

// Return hands a matrix obtained from Borrow back to the pool.
func Return(m *tensor.Dense) {
	if m == nil {
		return
	}
	rows, cols := Dims(m)
	scratchFor(shape{rows, cols}).Put(m)
}
