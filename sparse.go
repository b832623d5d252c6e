package armature

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// SparseFactorizeLTL factorizes the joint-space inertia matrix in place as
// H = LᵀL, storing the lower-triangular factor L in the lower triangle of
// h. Only entries coupling degrees of freedom along the same branch of the
// tree are touched, so the cost grows with the tree depth rather than with
// DoF².
func (m *Model) SparseFactorizeLTL(h *mat.Dense) {
	for k := m.dof - 1; k >= 0; k-- {
		h.Set(k, k, math.Sqrt(h.At(k, k)))
		for i := m.lambdaQ[k]; i != -1; i = m.lambdaQ[i] {
			h.Set(k, i, h.At(k, i)/h.At(k, k))
		}
		for i := m.lambdaQ[k]; i != -1; i = m.lambdaQ[i] {
			for j := i; j != -1; j = m.lambdaQ[j] {
				h.Set(i, j, h.At(i, j)-h.At(k, i)*h.At(k, j))
			}
		}
	}
}

// SparseSolveLTx solves Lᵀx = b in place, with L a factor produced by
// SparseFactorizeLTL. x holds b on entry and the solution on return.
func (m *Model) SparseSolveLTx(l *mat.Dense, x []float64) {
	for i := m.dof - 1; i >= 0; i-- {
		x[i] /= l.At(i, i)
		for j := m.lambdaQ[i]; j != -1; j = m.lambdaQ[j] {
			x[j] -= l.At(i, j) * x[i]
		}
	}
}

// SparseSolveLx solves Lx = b in place, with L a factor produced by
// SparseFactorizeLTL. x holds b on entry and the solution on return.
func (m *Model) SparseSolveLx(l *mat.Dense, x []float64) {
	for i := 0; i < m.dof; i++ {
		for j := m.lambdaQ[i]; j != -1; j = m.lambdaQ[j] {
			x[i] -= l.At(i, j) * x[j]
		}
		x[i] /= l.At(i, i)
	}
}
