package constraint

import (
	"github.com/akmonengine/armature"
	"github.com/akmonengine/armature/linsolve"
	"github.com/akmonengine/armature/spatial"
)

// ForwardDynamicsKokkevis computes constrained accelerations for a set of
// pure contact constraints by probing the system response to unit test
// forces, after Kokkevis and Metaxas. One articulated-body pass per
// constraint row builds the contact-space operator K mapping normal force
// magnitudes to normal accelerations; solving K·f = a for the accelerations
// that cancel the unconstrained motion yields the contact forces, and a
// final pass under those forces yields qddot. Force holds f afterwards.
//
// Sets holding anything but contact constraints are rejected with
// ErrNotContact. For many simultaneous contacts the Lagrangian drivers are
// cheaper; this method shines when contacts are few and the model is large.
func (s *Set) ForwardDynamicsKokkevis(m *armature.Model, q, qdot, tau, qddot []float64) error {
	if !s.bound {
		return ErrNotBound
	}
	if len(s.contacts) != len(s.entries) {
		return ErrNotContact
	}
	if s.dof != m.DoF() || len(q) != m.QSize() ||
		len(qdot) != s.dof || len(tau) != s.dof || len(qddot) != s.dof {
		return ErrDimension
	}
	method, err := linsolve.Resolve(s.Backend, s.Method)
	if err != nil {
		return err
	}

	// Unconstrained accelerations. The articulated quantities stay on the
	// model for the test-force responses and the final pass.
	m.ForwardDynamics(q, qdot, tau, nil, s.qddot0)
	m.UpdateKinematicsCustom(nil, nil, s.qddot0)
	for _, c := range s.contacts {
		a := m.PointAcceleration(c.Body, c.Point)
		base := m.BodyToBase(c.Body, c.Point)
		for j, normal := range c.Normals {
			r := c.firstRow + j
			s.pa0[r] = a
			s.fT[r] = spatial.Vector{Angular: base.Cross(normal), Linear: normal}
			s.kokA.SetVec(r, -normal.Dot(a))
		}
	}

	// One row of K per test force: how every constrained point's normal
	// acceleration reacts to a unit force along this row's normal. K is
	// symmetric, so filling by rows or columns comes to the same thing.
	for _, c := range s.contacts {
		movable := m.MovableAncestor(c.Body)
		for j := range c.Normals {
			r := c.firstRow + j
			m.AccelerationDeltas(movable, s.fT[r], s.qddotT)
			for i := range s.qddotT {
				s.qddotT[i] += s.qddot0[i]
			}
			m.UpdateKinematicsCustom(nil, nil, s.qddotT)
			for _, ck := range s.contacts {
				at := m.PointAcceleration(ck.Body, ck.Point)
				for k, nk := range ck.Normals {
					rk := ck.firstRow + k
					s.kokK.Set(r, rk, nk.Dot(at.Sub(s.pa0[rk])))
				}
			}
		}
	}

	if err := s.Backend.Solve(s.kokF, s.kokK, s.kokA, method); err != nil {
		return err
	}

	clear(s.fExt)
	for _, c := range s.contacts {
		movable := m.MovableAncestor(c.Body)
		for j := range c.Normals {
			r := c.firstRow + j
			f := s.kokF.AtVec(r)
			s.Force[r] = f
			s.fExt[movable] = s.fExt[movable].Add(s.fT[r].Scale(f))
		}
	}
	m.ForwardDynamicsApplyForces(tau, s.fExt, qddot)
	return nil
}
