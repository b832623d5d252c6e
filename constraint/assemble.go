package constraint

import (
	"fmt"

	"github.com/akmonengine/armature"
	"github.com/akmonengine/armature/spatial"
	"gonum.org/v1/gonum/mat"
)

// ComputeSystemVariables assembles everything the constrained equations of
// motion need at (q, qdot): the joint-space inertia matrix H, bias vector
// C, stacked Jacobian G, position and velocity errors, and the bias
// acceleration Gamma including any stabilization feedback. fext may be nil
// or hold one base-frame spatial force per body.
//
// The model's kinematic state is left refreshed through the acceleration
// stage with zero joint accelerations.
func (s *Set) ComputeSystemVariables(m *armature.Model, q, qdot, tau []float64, fext []spatial.Vector) error {
	if !s.bound {
		return ErrNotBound
	}
	if err := s.checkState(m, q, qdot, tau, fext); err != nil {
		return err
	}

	m.NonlinearEffects(q, qdot, fext, s.C)
	m.JointSpaceInertia(q, s.H, false)
	s.jacobianInto(m, q, s.G, false)
	s.positionErrorsInto(m, q, s.Err, false)
	s.velocityErrorsInto(m, q, qdot, s.ErrD, false)

	// Bias accelerations come from the zero-qddot acceleration state.
	m.UpdateKinematicsCustom(nil, nil, s.zeroDof)
	for _, c := range s.entries {
		c.gamma(m, q, qdot, s.G, s.Gamma)
		bg := c.Stabilization()
		if !bg.Enabled {
			continue
		}
		if bg.TimeConstant <= 0 {
			return fmt.Errorf("constraint: nonpositive stabilization time constant on %q", c.Name())
		}
		velGain, posGain := bg.gains()
		for r := c.FirstRow(); r < c.FirstRow()+c.Rows(); r++ {
			s.Gamma[r] -= velGain*s.ErrD[r] + posGain*s.Err[r]
		}
	}
	return nil
}

func (s *Set) jacobianInto(m *armature.Model, q []float64, g *mat.Dense, refresh bool) {
	if refresh {
		m.UpdateKinematicsCustom(q, nil, nil)
	}
	g.Zero()
	for _, c := range s.entries {
		c.jacobian(m, q, g)
	}
}

func (s *Set) positionErrorsInto(m *armature.Model, q []float64, dst []float64, refresh bool) {
	if refresh {
		m.UpdateKinematicsCustom(q, nil, nil)
	}
	for _, c := range s.entries {
		c.positionError(m, q, dst)
	}
}

// velocityErrorsInto reassembles G first: velocity errors are measured
// through the Jacobian rows at the evaluated configuration.
func (s *Set) velocityErrorsInto(m *armature.Model, q, qdot []float64, dst []float64, refresh bool) {
	s.jacobianInto(m, q, s.G, refresh)
	for _, c := range s.entries {
		c.velocityError(m, q, qdot, s.G, dst)
	}
}

// Jacobian assembles the stacked constraint Jacobian into G. With refresh
// false the current kinematic state is used as is.
func (s *Set) Jacobian(m *armature.Model, q []float64, refresh bool) error {
	if !s.bound {
		return ErrNotBound
	}
	if s.dof != m.DoF() || len(q) != m.QSize() {
		return ErrDimension
	}
	s.jacobianInto(m, q, s.G, refresh)
	return nil
}

// PositionErrors computes the per-row position errors into Err.
func (s *Set) PositionErrors(m *armature.Model, q []float64, refresh bool) error {
	if !s.bound {
		return ErrNotBound
	}
	if s.dof != m.DoF() || len(q) != m.QSize() {
		return ErrDimension
	}
	s.positionErrorsInto(m, q, s.Err, refresh)
	return nil
}

// VelocityErrors computes the per-row velocity errors into ErrD,
// reassembling G on the way.
func (s *Set) VelocityErrors(m *armature.Model, q, qdot []float64, refresh bool) error {
	if !s.bound {
		return ErrNotBound
	}
	if s.dof != m.DoF() || len(q) != m.QSize() || len(qdot) != s.dof {
		return ErrDimension
	}
	s.velocityErrorsInto(m, q, qdot, s.ErrD, refresh)
	return nil
}
