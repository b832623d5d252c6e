package constraint

import (
	"github.com/akmonengine/armature"
	"github.com/akmonengine/armature/spatial"
)

// ForwardDynamicsDirect computes constrained joint accelerations and the
// per-row constraint forces by assembling the system variables and solving
// the full saddle-point system. Results land in qddot and Force.
func (s *Set) ForwardDynamicsDirect(m *armature.Model, q, qdot, tau []float64, fext []spatial.Vector, qddot []float64) error {
	if err := s.prepareForward(m, q, qdot, tau, fext, qddot); err != nil {
		return err
	}
	return s.solveDirect(s.rhs, s.Gamma, qddot, s.Force)
}

// ForwardDynamicsRangeSpaceSparse computes constrained joint accelerations
// through the sparse factorization of H, fastest when the row count is
// small against the degrees of freedom.
func (s *Set) ForwardDynamicsRangeSpaceSparse(m *armature.Model, q, qdot, tau []float64, fext []spatial.Vector, qddot []float64) error {
	if err := s.prepareForward(m, q, qdot, tau, fext, qddot); err != nil {
		return err
	}
	return s.solveRangeSpace(m, s.rhs, s.Gamma, qddot, s.Force)
}

// ForwardDynamicsNullSpace computes constrained joint accelerations through
// the orthonormal range/null split of Gᵀ. It requires the row count not to
// exceed the degrees of freedom.
func (s *Set) ForwardDynamicsNullSpace(m *armature.Model, q, qdot, tau []float64, fext []spatial.Vector, qddot []float64) error {
	if err := s.prepareForward(m, q, qdot, tau, fext, qddot); err != nil {
		return err
	}
	return s.solveNullSpace(s.rhs, s.Gamma, qddot, s.Force)
}

func (s *Set) prepareForward(m *armature.Model, q, qdot, tau []float64, fext []spatial.Vector, qddot []float64) error {
	if err := s.ComputeSystemVariables(m, q, qdot, tau, fext); err != nil {
		return err
	}
	if len(qddot) != s.dof {
		return ErrDimension
	}
	for i := range s.rhs {
		s.rhs[i] = tau[i] - s.C[i]
	}
	return nil
}
