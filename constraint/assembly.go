package constraint

import (
	"math"

	"github.com/akmonengine/armature"
	"github.com/akmonengine/armature/linsolve"
	"github.com/go-gl/mathgl/mgl64"
)

// AssemblePosition drives q onto the constraint manifold in place by
// iterating a weighted least-squares correction
//
//	[[W, Gᵀ], [G, 0]] · [d; mu] = [0; −e]
//
// where W = diag(weights). Ordinary coordinates take the step directly;
// spherical joints convert their three-component step into a quaternion
// update and renormalize. Iteration stops once both the error norm and the
// step norm fall below tol, or after maxIter steps; the return value
// reports convergence and q holds the best iterate either way.
func (s *Set) AssemblePosition(m *armature.Model, q, weights []float64, tol float64, maxIter int) (bool, error) {
	if !s.bound {
		return false, ErrNotBound
	}
	if s.dof != m.DoF() || len(q) != m.QSize() || len(weights) != s.dof {
		return false, ErrDimension
	}
	method, err := linsolve.Resolve(s.Backend, s.Method)
	if err != nil {
		return false, err
	}

	s.positionErrorsInto(m, q, s.asmE, true)
	if norm(s.asmE) < tol {
		return true, nil
	}

	d, n := s.dof, s.rows
	s.kktA.Zero()
	for i := 0; i < d; i++ {
		s.kktA.Set(i, i, weights[i])
	}
	for it := 0; it < maxIter; it++ {
		s.jacobianInto(m, q, s.G, true)
		for i := 0; i < n; i++ {
			for j := 0; j < d; j++ {
				v := s.G.At(i, j)
				s.kktA.Set(d+i, j, v)
				s.kktA.Set(j, d+i, v)
			}
		}
		for i := 0; i < d; i++ {
			s.kktB.SetVec(i, 0)
		}
		for i := 0; i < n; i++ {
			s.kktB.SetVec(d+i, -s.asmE[i])
		}
		if err := s.Backend.Solve(s.kktX, s.kktA, s.kktB, method); err != nil {
			return false, err
		}
		for i := 0; i < d; i++ {
			s.asmD[i] = s.kktX.AtVec(i)
		}
		applyConfigurationStep(m, q, s.asmD)
		s.positionErrorsInto(m, q, s.asmE, true)
		if norm(s.asmE) < tol && norm(s.asmD) < tol {
			return true, nil
		}
	}
	return false, nil
}

// AssembleVelocity projects qdotInit onto the velocity constraint manifold
// in a single weighted least-squares solve
//
//	[[W, Gᵀ], [G, 0]] · [v; mu] = [W·qdotInit; 0]
//
// writing the admissible velocity closest to qdotInit (in the weighted
// norm) to qdot.
func (s *Set) AssembleVelocity(m *armature.Model, q, qdotInit, weights, qdot []float64) error {
	if !s.bound {
		return ErrNotBound
	}
	if s.dof != m.DoF() || len(q) != m.QSize() ||
		len(qdotInit) != s.dof || len(weights) != s.dof || len(qdot) != s.dof {
		return ErrDimension
	}
	method, err := linsolve.Resolve(s.Backend, s.Method)
	if err != nil {
		return err
	}

	s.jacobianInto(m, q, s.G, true)
	d, n := s.dof, s.rows
	s.kktA.Zero()
	for i := 0; i < d; i++ {
		s.kktA.Set(i, i, weights[i])
		s.kktB.SetVec(i, weights[i]*qdotInit[i])
	}
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			v := s.G.At(i, j)
			s.kktA.Set(d+i, j, v)
			s.kktA.Set(j, d+i, v)
		}
		s.kktB.SetVec(d+i, 0)
	}
	if err := s.Backend.Solve(s.kktX, s.kktA, s.kktB, method); err != nil {
		return err
	}
	for i := 0; i < d; i++ {
		qdot[i] = s.kktX.AtVec(i)
	}
	return nil
}

// applyConfigurationStep adds a velocity-space step to the configuration.
// Spherical joints map their angular step through the quaternion rate and
// renormalize; everything else adds componentwise.
func applyConfigurationStep(m *armature.Model, q, d []float64) {
	for i := 1; i < m.NumBodies(); i++ {
		j := m.BodyJoint(i)
		qi := m.JointQIndex(i)
		if j.Type == armature.JointSpherical {
			// The step components are successor-frame angular rates, so
			// they enter the quaternion rate from the right.
			quat := m.Quaternion(i, q)
			omega := mgl64.Quat{V: mgl64.Vec3{d[qi], d[qi+1], d[qi+2]}}
			quat = quat.Add(quat.Mul(omega).Scale(0.5)).Normalize()
			m.SetQuaternion(i, quat, q)
			continue
		}
		for k := 0; k < j.DoF(); k++ {
			q[qi+k] += d[qi+k]
		}
	}
}

func norm(x []float64) float64 {
	sum := 0.0
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum)
}
