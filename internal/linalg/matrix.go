// Package linalg is the dense float32 matrix substrate of the trainer. All
// matrices are row-major *tensor.Dense values; layer matrices are laid out as
// (unit, batch column).
package linalg

import (
	"github.com/c2h5oh/datasize"
	"github.com/chewxy/math32"
	"github.com/gorgonia/dbn/errs"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
	"gorgonia.org/tensor/native"
	"gorgonia.org/vecf32"
)

// MaxBytes is the largest single matrix Alloc will create.
var MaxBytes = 1 * datasize.GB

const float32Size = 4

// Alloc allocates a zeroed rows × cols float32 matrix.
func Alloc(rows, cols int) (*tensor.Dense, error) {
	if rows <= 0 || cols <= 0 {
		return nil, errs.Configf("cannot allocate a %dx%d matrix", rows, cols)
	}
	if err := checkBytes(rows, cols); err != nil {
		return nil, err
	}
	return tensor.New(tensor.WithShape(rows, cols), tensor.Of(tensor.Float32)), nil
}

// Vector allocates a zeroed float32 vector of length n.
func Vector(n int) (*tensor.Dense, error) {
	if n <= 0 {
		return nil, errs.Configf("cannot allocate a vector of length %d", n)
	}
	if err := checkBytes(n, 1); err != nil {
		return nil, err
	}
	return tensor.New(tensor.WithShape(n), tensor.Of(tensor.Float32)), nil
}

func checkBytes(rows, cols int) error {
	const maxInt = int(^uint(0) >> 1)
	if rows > maxInt/cols/float32Size {
		return errs.Resourcef("%dx%d matrix overflows the address space", rows, cols)
	}
	need := datasize.ByteSize(rows * cols * float32Size)
	if need > MaxBytes {
		return errs.Resourcef("%dx%d matrix needs %s, limit is %s", rows, cols, need.HumanReadable(), MaxBytes.HumanReadable())
	}
	return nil
}

// Dims returns the rows and columns of m. A vector is treated as a column.
func Dims(m *tensor.Dense) (rows, cols int) {
	s := m.Shape()
	switch len(s) {
	case 1:
		return s[0], 1
	case 2:
		return s[0], s[1]
	}
	return m.Shape().TotalSize(), 1
}

// Data returns the backing slice of m.
func Data(m *tensor.Dense) []float32 { return m.Data().([]float32) }

// SameShape reports whether a and b have identical dimensions.
func SameShape(a, b *tensor.Dense) bool {
	ar, ac := Dims(a)
	br, bc := Dims(b)
	return ar == br && ac == bc
}

// IsFloat32 reports whether m holds float32 values.
func IsFloat32(m *tensor.Dense) bool { return m.Dtype() == tensor.Float32 }

// Copy copies src into dst. Both must have the same shape.
func Copy(dst, src *tensor.Dense) error {
	if !SameShape(dst, src) {
		return errs.Configf("cannot copy %v into %v", src.Shape(), dst.Shape())
	}
	copy(Data(dst), Data(src))
	return nil
}

// Clone returns a deep copy of m.
func Clone(m *tensor.Dense) *tensor.Dense { return m.Clone().(*tensor.Dense) }

func rowsOf(m *tensor.Dense) ([][]float32, error) {
	if len(m.Shape()) != 2 {
		return nil, errs.Configf("expected a matrix, got shape %v", m.Shape())
	}
	return native.MatrixF32(m)
}

// Mul computes dst = a · b.
func Mul(dst, a, b *tensor.Dense) error {
	m, k := Dims(a)
	k2, n := Dims(b)
	dm, dn := Dims(dst)
	if k != k2 || dm != m || dn != n {
		return errs.Configf("cannot multiply %v by %v into %v", a.Shape(), b.Shape(), dst.Shape())
	}
	return matMul(dst, a, b)
}

// MulTransA computes dst = aᵀ · b.
func MulTransA(dst, a, b *tensor.Dense) error {
	m, k := Dims(a)
	m2, n := Dims(b)
	dk, dn := Dims(dst)
	if m != m2 || dk != k || dn != n {
		return errs.Configf("cannot multiply transpose of %v by %v into %v", a.Shape(), b.Shape(), dst.Shape())
	}
	at, err := transposed(a)
	if err != nil {
		return err
	}
	return matMul(dst, at, b)
}

// MulTransB computes dst = a · bᵀ.
func MulTransB(dst, a, b *tensor.Dense) error {
	m, n := Dims(a)
	q, n2 := Dims(b)
	dm, dq := Dims(dst)
	if n != n2 || dm != m || dq != q {
		return errs.Configf("cannot multiply %v by transpose of %v into %v", a.Shape(), b.Shape(), dst.Shape())
	}
	bt, err := transposed(b)
	if err != nil {
		return err
	}
	return matMul(dst, a, bt)
}

// matMul overwrites dst. Whatever dst held before, NaN included, is discarded.
func matMul(dst, a, b *tensor.Dense) error {
	if _, err := a.MatMul(b, tensor.WithReuse(dst)); err != nil {
		return errs.Configf("matmul of %v and %v into %v: %v", a.Shape(), b.Shape(), dst.Shape(), err)
	}
	return nil
}

// transposed returns a transposed view of m that shares its backing data.
// m itself keeps its layout, so it may be read concurrently.
func transposed(m *tensor.Dense) (*tensor.Dense, error) {
	if len(m.Shape()) != 2 {
		return nil, errs.Configf("expected a matrix, got shape %v", m.Shape())
	}
	rows, cols := Dims(m)
	v := tensor.New(tensor.WithShape(rows, cols), tensor.WithBacking(Data(m)))
	if err := v.T(); err != nil {
		return nil, errs.Configf("transposing %v: %v", m.Shape(), err)
	}
	return v, nil
}

// ScaledDiff computes dst = alpha·(dst - b).
func ScaledDiff(dst, b *tensor.Dense, alpha float32) error {
	if !SameShape(dst, b) {
		return errs.Configf("cannot subtract %v from %v", b.Shape(), dst.Shape())
	}
	if _, err := dst.Sub(b, tensor.UseUnsafe()); err != nil {
		return errors.Wrapf(err, "subtracting %v", b.Shape())
	}
	if _, err := dst.MulScalar(alpha, true, tensor.UseUnsafe()); err != nil {
		return errors.Wrapf(err, "scaling by %v", alpha)
	}
	return nil
}

// AddColumn adds the vector v to every column of dst.
func AddColumn(dst, v *tensor.Dense) error {
	rows, _ := Dims(dst)
	if vr, vc := Dims(v); vr != rows || vc != 1 {
		return errs.Configf("cannot broadcast %v over %v", v.Shape(), dst.Shape())
	}
	D, err := rowsOf(dst)
	if err != nil {
		return err
	}
	for i, b := range Data(v) {
		vecf32.Trans(D[i], b)
	}
	return nil
}

// RowMeans computes dst = beta·dst + alpha·mean(m, columns). dst must be a
// vector with one entry per row of m. With beta == 0 the old contents of dst
// are not read.
func RowMeans(dst, m *tensor.Dense, alpha, beta float32) error {
	rows, cols := Dims(m)
	if dr, dc := Dims(dst); dr != rows || dc != 1 {
		return errs.Configf("cannot reduce %v into %v", m.Shape(), dst.Shape())
	}
	M, err := rowsOf(m)
	if err != nil {
		return err
	}
	d := Data(dst)
	inv := 1 / float32(cols)
	for i, row := range M {
		mean := alpha * vecf32.Sum(row) * inv
		if beta == 0 {
			d[i] = mean
			continue
		}
		d[i] = beta*d[i] + mean
	}
	return nil
}

// MinMax returns the smallest and largest entries of m.
func MinMax(m *tensor.Dense) (min, max float32) {
	d := Data(m)
	return vecf32.MinOf(d), vecf32.MaxOf(d)
}

// Finite reports whether every entry of m is neither NaN nor infinite.
func Finite(m *tensor.Dense) bool {
	for _, v := range Data(m) {
		if math32.IsNaN(v) || math32.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Gather copies the columns cols of src, in order, into dst.
func Gather(dst, src *tensor.Dense, cols []int) error {
	rows, n := Dims(src)
	dr, dc := Dims(dst)
	if dr != rows || dc != len(cols) {
		return errs.Configf("cannot gather %d columns of %v into %v", len(cols), src.Shape(), dst.Shape())
	}
	S, err := rowsOf(src)
	if err != nil {
		return err
	}
	D, err := rowsOf(dst)
	if err != nil {
		return err
	}
	for j, c := range cols {
		if c < 0 || c >= n {
			return errs.Configf("column %d out of range [0, %d)", c, n)
		}
		for i := range D {
			D[i][j] = S[i][c]
		}
	}
	return nil
}

// Transpose returns a new matrix holding mᵀ.
func Transpose(m *tensor.Dense) (*tensor.Dense, error) {
	rows, cols := Dims(m)
	if err := checkBytes(cols, rows); err != nil {
		return nil, err
	}
	retVal := Clone(m)
	if err := retVal.T(); err != nil {
		return nil, errs.Configf("transposing %v: %v", m.Shape(), err)
	}
	if err := retVal.Transpose(); err != nil {
		return nil, errors.Wrapf(err, "transposing %v", m.Shape())
	}
	return retVal, nil
}
