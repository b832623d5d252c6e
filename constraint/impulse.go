package constraint

import (
	"github.com/akmonengine/armature"
)

// ImpulsesDirect resolves an instantaneous impact through the saddle-point
// system: given pre-impact velocities it computes post-impact velocities
// meeting the per-row VPlus targets, writing them to qdotPlus and the
// per-row impulses to Impulse. Velocity-dependent dynamics terms play no
// part; only the mass matrix and Jacobian at q enter.
func (s *Set) ImpulsesDirect(m *armature.Model, q, qdotMinus, qdotPlus []float64) error {
	if err := s.prepareImpulse(m, q, qdotMinus, qdotPlus); err != nil {
		return err
	}
	return s.solveDirect(s.rhs, s.VPlus, qdotPlus, s.Impulse)
}

// ImpulsesRangeSpaceSparse resolves an instantaneous impact through the
// sparse factorization of H.
func (s *Set) ImpulsesRangeSpaceSparse(m *armature.Model, q, qdotMinus, qdotPlus []float64) error {
	if err := s.prepareImpulse(m, q, qdotMinus, qdotPlus); err != nil {
		return err
	}
	return s.solveRangeSpace(m, s.rhs, s.VPlus, qdotPlus, s.Impulse)
}

// ImpulsesNullSpace resolves an instantaneous impact through the range/null
// split of Gᵀ.
func (s *Set) ImpulsesNullSpace(m *armature.Model, q, qdotMinus, qdotPlus []float64) error {
	if err := s.prepareImpulse(m, q, qdotMinus, qdotPlus); err != nil {
		return err
	}
	return s.solveNullSpace(s.rhs, s.VPlus, qdotPlus, s.Impulse)
}

// prepareImpulse refreshes position kinematics, assembles H and G at q,
// and loads the momentum H·qdotMinus as the solve right-hand side.
func (s *Set) prepareImpulse(m *armature.Model, q, qdotMinus, qdotPlus []float64) error {
	if !s.bound {
		return ErrNotBound
	}
	if s.dof != m.DoF() || len(q) != m.QSize() || len(qdotMinus) != s.dof || len(qdotPlus) != s.dof {
		return ErrDimension
	}
	m.UpdateKinematicsCustom(q, nil, nil)
	m.JointSpaceInertia(q, s.H, false)
	s.jacobianInto(m, q, s.G, false)
	for i := 0; i < s.dof; i++ {
		sum := 0.0
		for j := 0; j < s.dof; j++ {
			sum += s.H.At(i, j) * qdotMinus[j]
		}
		s.rhs[i] = sum
	}
	return nil
}
