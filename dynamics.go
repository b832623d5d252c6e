package armature

import (
	"gonum.org/v1/gonum/mat"

	"github.com/akmonengine/armature/spatial"
)

// JointSpaceInertia computes the joint-space inertia matrix with the
// composite rigid-body algorithm and writes it into dst, which must be
// DoF×DoF. When refresh is true the position kinematics are recomputed
// from q first; otherwise the current body transforms are used.
func (m *Model) JointSpaceInertia(q []float64, dst *mat.Dense, refresh bool) {
	if refresh {
		m.UpdateKinematicsCustom(q, nil, nil)
	}
	n := len(m.joints)
	for i := 1; i < n; i++ {
		m.ic[i] = m.inertia[i]
	}
	dst.Zero()
	for i := n - 1; i >= 1; i-- {
		if p := m.lambda[i]; p != 0 {
			m.ic[p] = m.ic[p].Add(m.xLambda[i].ApplyTransposeInertia(m.ic[i]))
		}
		jt := m.joints[i]
		for k := 0; k < jt.DoF(); k++ {
			f := m.ic[i].Apply(m.jointAxis(i, k))
			for l := 0; l < jt.DoF(); l++ {
				dst.Set(jt.qIndex+l, jt.qIndex+k, m.jointAxis(i, l).Dot(f))
			}
			j := i
			for m.lambda[j] != 0 {
				f = m.xLambda[j].ApplyTranspose(f)
				j = m.lambda[j]
				aj := m.joints[j]
				for l := 0; l < aj.DoF(); l++ {
					h := m.jointAxis(j, l).Dot(f)
					dst.Set(jt.qIndex+k, aj.qIndex+l, h)
					dst.Set(aj.qIndex+l, jt.qIndex+k, h)
				}
			}
		}
	}
}

// NonlinearEffects computes the generalized bias forces: Coriolis,
// centrifugal and gravitational loads minus the contribution of external
// forces. fext may be nil; otherwise it holds one base-frame spatial force
// per movable body, indexed by body ID. The result is written into dst
// (length DoF). Position and velocity kinematics are refreshed from q and
// qdot as a side effect.
func (m *Model) NonlinearEffects(q, qdot []float64, fext []spatial.Vector, dst []float64) {
	aBase := spatial.Vector{Linear: m.Gravity.Mul(-1)}
	n := len(m.joints)
	for i := 1; i < n; i++ {
		m.jcalc(i, q)
		p := m.lambda[i]
		m.xBase[i] = m.xLambda[i].Mul(m.xBase[p])
		vJ := m.jointMotion(i, qdot)
		if p == 0 {
			m.v[i] = vJ
			m.c[i] = spatial.Vector{}
			m.da[i] = m.xLambda[i].Apply(aBase)
		} else {
			m.v[i] = m.xLambda[i].Apply(m.v[p]).Add(vJ)
			m.c[i] = m.v[i].CrossM(vJ)
			m.da[i] = m.xLambda[i].Apply(m.da[p]).Add(m.c[i])
		}
		m.f[i] = m.inertia[i].Apply(m.da[i]).Add(m.v[i].CrossF(m.inertia[i].Apply(m.v[i])))
		if fext != nil && !fext[i].IsZero() {
			m.f[i] = m.f[i].Sub(m.xBase[i].ApplyAdjoint(fext[i]))
		}
	}
	for i := n - 1; i >= 1; i-- {
		jt := m.joints[i]
		switch jt.Type {
		case JointRevolute, JointPrismatic:
			dst[jt.qIndex] = m.s[i].Dot(m.f[i])
		case JointSpherical:
			dst[jt.qIndex] = m.f[i].Angular[0]
			dst[jt.qIndex+1] = m.f[i].Angular[1]
			dst[jt.qIndex+2] = m.f[i].Angular[2]
		}
		if p := m.lambda[i]; p != 0 {
			m.f[p] = m.f[p].Add(m.xLambda[i].ApplyTranspose(m.f[i]))
		}
	}
}
