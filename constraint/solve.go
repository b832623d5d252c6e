package constraint

import (
	"github.com/akmonengine/armature"
	"github.com/akmonengine/armature/linsolve"
	"gonum.org/v1/gonum/mat"
)

// solveDirect assembles and solves the saddle-point system
//
//	[[H, Gᵀ], [G, 0]] · x = [rhs; target]
//
// with the configured decomposition, splitting x into the generalized
// solution and the per-row multipliers. The multiplier block is negated so
// that positive lambda pushes along the constraint direction.
func (s *Set) solveDirect(rhs, target, out, lambda []float64) error {
	d, n := s.dof, s.rows
	method, err := linsolve.Resolve(s.Backend, s.Method)
	if err != nil {
		return err
	}
	s.kktA.Zero()
	for i := 0; i < d; i++ {
		for j := 0; j < d; j++ {
			s.kktA.Set(i, j, s.H.At(i, j))
		}
	}
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			v := s.G.At(i, j)
			s.kktA.Set(d+i, j, v)
			s.kktA.Set(j, d+i, v)
		}
	}
	for i := 0; i < d; i++ {
		s.kktB.SetVec(i, rhs[i])
	}
	for i := 0; i < n; i++ {
		s.kktB.SetVec(d+i, target[i])
	}
	if err := s.Backend.Solve(s.kktX, s.kktA, s.kktB, method); err != nil {
		return err
	}
	for i := 0; i < d; i++ {
		out[i] = s.kktX.AtVec(i)
	}
	for i := 0; i < n; i++ {
		lambda[i] = -s.kktX.AtVec(d + i)
	}
	return nil
}

// solveRangeSpace solves the same system through the sparse LᵀL
// factorization of H induced by the kinematic tree: Gᵀ and rhs are pushed
// into factor coordinates, the row-count-sized Schur complement K = YᵀY is
// solved for lambda by Cholesky, and the generalized solution is recovered
// by substitution. H itself is preserved; the factorization works on a
// copy.
func (s *Set) solveRangeSpace(m *armature.Model, rhs, target, out, lambda []float64) error {
	d, n := s.dof, s.rows
	s.hFac.Copy(s.H)
	m.SparseFactorizeLTL(s.hFac)

	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			s.rsCol[j] = s.G.At(i, j)
		}
		m.SparseSolveLTx(s.hFac, s.rsCol)
		for j := 0; j < d; j++ {
			s.rsY.Set(j, i, s.rsCol[j])
		}
	}
	copy(s.rsZ, rhs)
	m.SparseSolveLTx(s.hFac, s.rsZ)

	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sum := 0.0
			for k := 0; k < d; k++ {
				sum += s.rsY.At(k, i) * s.rsY.At(k, j)
			}
			s.rsK.SetSym(i, j, sum)
		}
		dot := 0.0
		for k := 0; k < d; k++ {
			dot += s.rsY.At(k, i) * s.rsZ[k]
		}
		s.rsA.SetVec(i, target[i]-dot)
	}
	if ok := s.chol.Factorize(s.rsK); !ok {
		return ErrFactorization
	}
	if err := s.chol.SolveVecTo(s.rsL, s.rsA); err != nil {
		if _, cond := err.(mat.Condition); !cond {
			return ErrFactorization
		}
	}
	for i := 0; i < n; i++ {
		lambda[i] = s.rsL.AtVec(i)
	}
	for j := 0; j < d; j++ {
		sum := rhs[j]
		for i := 0; i < n; i++ {
			sum += s.G.At(i, j) * lambda[i]
		}
		out[j] = sum
	}
	m.SparseSolveLTx(s.hFac, out)
	m.SparseSolveLx(s.hFac, out)
	return nil
}

// solveNullSpace splits the velocity space through a QR factorization of
// Gᵀ into an orthonormal range basis Y and null basis Z, solves the
// row-count-sized system G·Y·qy = target, projects the dynamics through Z
// for the complementary component, and recovers lambda from the
// force-balance residual (G·Y)ᵀ·lambda = Yᵀ(H·out − rhs).
func (s *Set) solveNullSpace(rhs, target, out, lambda []float64) error {
	d, n := s.dof, s.rows
	if n > d {
		return ErrDimension
	}
	method, err := linsolve.Resolve(s.Backend, s.Method)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			s.nsGT.Set(j, i, s.G.At(i, j))
		}
	}
	s.nsQR.Factorize(s.nsGT)
	s.nsQR.QTo(s.nsQ)
	y := s.nsQ.Slice(0, d, 0, n)

	s.nsGY.Mul(s.G, y)
	for i := 0; i < n; i++ {
		s.nsRhsN.SetVec(i, target[i])
	}
	if err := s.Backend.Solve(s.nsQy, s.nsGY, s.nsRhsN, method); err != nil {
		return err
	}

	s.nsD1.MulVec(y, s.nsQy)
	if zc := d - n; zc > 0 {
		z := s.nsQ.Slice(0, d, n, d)
		s.nsD2.MulVec(s.H, s.nsD1)
		for j := 0; j < d; j++ {
			s.nsD2.SetVec(j, rhs[j]-s.nsD2.AtVec(j))
		}
		s.nsRhsZ.MulVec(z.T(), s.nsD2)
		s.nsHZ.Mul(s.H, z)
		for i := 0; i < zc; i++ {
			for j := i; j < zc; j++ {
				sum := 0.0
				for k := 0; k < d; k++ {
					sum += s.nsQ.At(k, n+i) * s.nsHZ.At(k, j)
				}
				s.nsZHZ.SetSym(i, j, sum)
			}
		}
		if ok := s.chol.Factorize(s.nsZHZ); !ok {
			return ErrFactorization
		}
		if err := s.chol.SolveVecTo(s.nsQz, s.nsRhsZ); err != nil {
			if _, cond := err.(mat.Condition); !cond {
				return ErrFactorization
			}
		}
		s.nsD2.MulVec(z, s.nsQz)
		for j := 0; j < d; j++ {
			out[j] = s.nsD1.AtVec(j) + s.nsD2.AtVec(j)
		}
	} else {
		for j := 0; j < d; j++ {
			out[j] = s.nsD1.AtVec(j)
		}
	}

	for j := 0; j < d; j++ {
		s.nsD1.SetVec(j, out[j])
	}
	s.nsD2.MulVec(s.H, s.nsD1)
	for j := 0; j < d; j++ {
		s.nsD2.SetVec(j, s.nsD2.AtVec(j)-rhs[j])
	}
	s.nsRhsN.MulVec(y.T(), s.nsD2)
	if err := s.Backend.Solve(s.nsQy, s.nsGY.T(), s.nsRhsN, method); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		lambda[i] = s.nsQy.AtVec(i)
	}
	return nil
}
