// Package linsolve provides the dense linear-system backends used by the
// constrained-dynamics solvers. A Backend exposes a set of decompositions
// selected by Method; backends missing a decomposition are routed through an
// explicit fallback table instead of failing outright.
package linsolve

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/blas"
	lapackimpl "gonum.org/v1/gonum/lapack/gonum"
	"gonum.org/v1/gonum/mat"
)

// Method selects the dense decomposition used to solve A·x = b.
type Method uint8

const (
	// PartialPivLU is Gaussian elimination with partial pivoting, the
	// fastest of the three on well-conditioned systems.
	PartialPivLU Method = iota
	// HouseholderQR trades speed for unconditional stability.
	HouseholderQR
	// ColPivHouseholderQR adds column pivoting, the most robust choice
	// near rank deficiency.
	ColPivHouseholderQR

	numMethods
)

func (m Method) String() string {
	switch m {
	case PartialPivLU:
		return "partial-piv-lu"
	case HouseholderQR:
		return "householder-qr"
	case ColPivHouseholderQR:
		return "colpiv-householder-qr"
	}
	return fmt.Sprintf("method(%d)", uint8(m))
}

var (
	// ErrUnknownMethod reports a Method value outside the known set.
	ErrUnknownMethod = errors.New("linsolve: unknown decomposition method")
	// ErrUnsupported reports a decomposition the backend lacks, with no
	// usable fallback.
	ErrUnsupported = errors.New("linsolve: decomposition not supported by backend")
	// ErrShape reports mismatched system dimensions.
	ErrShape = errors.New("linsolve: dimension mismatch")
	// ErrSingular reports an exactly singular system.
	ErrSingular = errors.New("linsolve: matrix is singular")
)

// Backend solves square dense systems with a selectable decomposition.
// Implementations keep their factorization storage between calls, so steady
// state solving does not allocate.
type Backend interface {
	Name() string
	Supports(m Method) bool
	// Solve computes x from A·x = b into dst. A must be square and dst, b
	// must match its dimension.
	Solve(dst *mat.VecDense, a mat.Matrix, b mat.Vector, m Method) error
}

// fallbacks substitutes stand-in decompositions on backends that lack one.
var fallbacks = map[Method]Method{
	PartialPivLU:        HouseholderQR,
	ColPivHouseholderQR: HouseholderQR,
}

// Resolve returns the method backend b should run for a request of m,
// consulting the fallback table when b lacks the decomposition.
func Resolve(b Backend, m Method) (Method, error) {
	if m >= numMethods {
		return 0, ErrUnknownMethod
	}
	if b.Supports(m) {
		return m, nil
	}
	if sub, ok := fallbacks[m]; ok && b.Supports(sub) {
		return sub, nil
	}
	return 0, fmt.Errorf("%w: %s on %q", ErrUnsupported, m, b.Name())
}

// Dense is the full-featured backend: partial-pivot LU and Householder QR
// from gonum/mat, column-pivoted QR through the LAPACK routines. The zero
// value is ready to use; do not share one Dense between goroutines.
type Dense struct {
	lu  mat.LU
	qr  mat.QR
	piv colPivQR
}

func (d *Dense) Name() string { return "dense" }

func (d *Dense) Supports(m Method) bool { return m < numMethods }

func (d *Dense) Solve(dst *mat.VecDense, a mat.Matrix, b mat.Vector, m Method) error {
	if err := checkShape(dst, a, b); err != nil {
		return err
	}
	switch m {
	case PartialPivLU:
		d.lu.Factorize(a)
		return d.lu.SolveVecTo(dst, false, b)
	case HouseholderQR:
		d.qr.Factorize(a)
		return d.qr.SolveVecTo(dst, false, b)
	case ColPivHouseholderQR:
		return d.piv.solve(dst, a, b)
	}
	return ErrUnknownMethod
}

// Reduced is the fallback math backend: Householder QR only, mirroring
// builds without the full decomposition set. Requests for other methods
// resolve onto QR through the fallback table.
type Reduced struct {
	qr mat.QR
}

func (r *Reduced) Name() string { return "reduced" }

func (r *Reduced) Supports(m Method) bool { return m == HouseholderQR }

func (r *Reduced) Solve(dst *mat.VecDense, a mat.Matrix, b mat.Vector, m Method) error {
	if m != HouseholderQR {
		if m >= numMethods {
			return ErrUnknownMethod
		}
		return fmt.Errorf("%w: %s on %q", ErrUnsupported, m, r.Name())
	}
	if err := checkShape(dst, a, b); err != nil {
		return err
	}
	r.qr.Factorize(a)
	return r.qr.SolveVecTo(dst, false, b)
}

func checkShape(dst *mat.VecDense, a mat.Matrix, b mat.Vector) error {
	r, c := a.Dims()
	if r != c || b.Len() != r || dst.Len() != c {
		return ErrShape
	}
	return nil
}

// colPivQR runs the LAPACK column-pivoted QR solve, keeping its buffers
// between calls. gonum/mat has no pivoted QR, so this goes through the raw
// routine interface.
type colPivQR struct {
	impl lapackimpl.Implementation
	a    []float64
	tau  []float64
	jpvt []int
	rhs  []float64
	work []float64
}

func (p *colPivQR) solve(dst *mat.VecDense, a mat.Matrix, b mat.Vector) error {
	n, _ := a.Dims()
	p.grow(n)

	// row-major copy; the factorization overwrites it
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			p.a[i*n+j] = a.At(i, j)
		}
	}
	for j := range p.jpvt[:n] {
		p.jpvt[j] = -1
	}
	for i := 0; i < n; i++ {
		p.rhs[i] = b.AtVec(i)
	}

	var query [1]float64
	p.impl.Dgeqp3(n, n, p.a, n, p.jpvt, p.tau, query[:], -1)
	p.workAtLeast(int(query[0]))
	p.impl.Dgeqp3(n, n, p.a, n, p.jpvt[:n], p.tau[:n], p.work, len(p.work))

	p.impl.Dormqr(blas.Left, blas.Trans, n, 1, n, p.a, n, p.tau[:n], p.rhs, 1, query[:], -1)
	p.workAtLeast(int(query[0]))
	p.impl.Dormqr(blas.Left, blas.Trans, n, 1, n, p.a, n, p.tau[:n], p.rhs, 1, p.work, len(p.work))

	if ok := p.impl.Dtrtrs(blas.Upper, blas.NoTrans, blas.NonUnit, n, 1, p.a, n, p.rhs, 1); !ok {
		return ErrSingular
	}
	// undo the column permutation: position j held original column jpvt[j]
	for j := 0; j < n; j++ {
		dst.SetVec(p.jpvt[j], p.rhs[j])
	}
	return nil
}

func (p *colPivQR) grow(n int) {
	if cap(p.a) < n*n {
		p.a = make([]float64, n*n)
		p.tau = make([]float64, n)
		p.jpvt = make([]int, n)
		p.rhs = make([]float64, n)
	}
	p.a = p.a[:n*n]
	p.tau = p.tau[:n]
	p.jpvt = p.jpvt[:n]
	p.rhs = p.rhs[:n]
}

func (p *colPivQR) workAtLeast(n int) {
	if n < 1 {
		n = 1
	}
	if cap(p.work) < n {
		p.work = make([]float64, n)
	}
	p.work = p.work[:n]
}
