package armature

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/akmonengine/armature/spatial"
)

// ForwardDynamics computes the joint accelerations for the given state and
// generalized forces with the articulated-body algorithm and writes them
// into qddot (length DoF). fext may be nil; otherwise it holds one
// base-frame spatial force per movable body, indexed by body ID.
//
// The articulated quantities left on the model are reused by
// ForwardDynamicsApplyForces and AccelerationDeltas. Body accelerations
// carry the gravity offset afterwards; refresh with UpdateKinematicsCustom
// before reading point accelerations.
func (m *Model) ForwardDynamics(q, qdot, tau []float64, fext []spatial.Vector, qddot []float64) {
	n := len(m.joints)
	aBase := spatial.Vector{Linear: m.Gravity.Mul(-1)}

	for i := 1; i < n; i++ {
		m.jcalc(i, q)
		p := m.lambda[i]
		m.xBase[i] = m.xLambda[i].Mul(m.xBase[p])
		vJ := m.jointMotion(i, qdot)
		m.v[i] = m.xLambda[i].Apply(m.v[p]).Add(vJ)
		m.c[i] = m.v[i].CrossM(vJ)
		m.ia[i] = m.inertia[i].ToBlocks()
		m.pa[i] = m.v[i].CrossF(m.inertia[i].Apply(m.v[i]))
		if fext != nil && !fext[i].IsZero() {
			m.pa[i] = m.pa[i].Sub(m.xBase[i].ApplyAdjoint(fext[i]))
		}
	}

	for i := n - 1; i >= 1; i-- {
		p := m.lambda[i]
		jt := m.joints[i]
		switch jt.Type {
		case JointRevolute, JointPrismatic:
			m.jU[i] = m.ia[i].Apply(m.s[i])
			m.jd[i] = m.s[i].Dot(m.jU[i])
			m.ju[i] = tau[jt.qIndex] - m.s[i].Dot(m.pa[i])
			if p != 0 {
				ia := m.ia[i].Sub(spatial.Outer(m.jU[i], m.jU[i]).Scale(1 / m.jd[i]))
				pa := m.pa[i].Add(ia.Apply(m.c[i])).Add(m.jU[i].Scale(m.ju[i] / m.jd[i]))
				m.ia[p] = m.ia[p].Add(ia.TransformTranspose(m.xLambda[i]))
				m.pa[p] = m.pa[p].Add(m.xLambda[i].ApplyTranspose(pa))
			}
		case JointSpherical:
			for k := 0; k < 3; k++ {
				m.jU3[i][k] = spatial.Vector{Angular: m.ia[i].A.Col(k), Linear: m.ia[i].C.Col(k)}
			}
			m.jDinv[i] = m.ia[i].A.Inv()
			m.ju3[i] = mgl64.Vec3{tau[jt.qIndex], tau[jt.qIndex+1], tau[jt.qIndex+2]}.Sub(m.pa[i].Angular)
			if p != 0 {
				ia := m.ia[i]
				for l := 0; l < 3; l++ {
					var w spatial.Vector
					for k := 0; k < 3; k++ {
						w = w.Add(m.jU3[i][k].Scale(m.jDinv[i].At(k, l)))
					}
					ia = ia.Sub(spatial.Outer(w, m.jU3[i][l]))
				}
				t := m.jDinv[i].Mul3x1(m.ju3[i])
				pa := m.pa[i].Add(ia.Apply(m.c[i]))
				for k := 0; k < 3; k++ {
					pa = pa.Add(m.jU3[i][k].Scale(t[k]))
				}
				m.ia[p] = m.ia[p].Add(ia.TransformTranspose(m.xLambda[i]))
				m.pa[p] = m.pa[p].Add(m.xLambda[i].ApplyTranspose(pa))
			}
		}
	}

	m.abaForward(aBase, qddot)
}

// abaForward runs the acceleration recursion of the articulated-body
// algorithm. aBase is the gravity-offset base acceleration.
func (m *Model) abaForward(aBase spatial.Vector, qddot []float64) {
	for i := 1; i < len(m.joints); i++ {
		p := m.lambda[i]
		ap := m.a[p]
		if p == 0 {
			ap = aBase
		}
		ai := m.xLambda[i].Apply(ap).Add(m.c[i])
		jt := m.joints[i]
		switch jt.Type {
		case JointRevolute, JointPrismatic:
			qddot[jt.qIndex] = (m.ju[i] - m.jU[i].Dot(ai)) / m.jd[i]
			ai = ai.Add(m.s[i].Scale(qddot[jt.qIndex]))
		case JointSpherical:
			r := m.ju3[i].Sub(mgl64.Vec3{m.jU3[i][0].Dot(ai), m.jU3[i][1].Dot(ai), m.jU3[i][2].Dot(ai)})
			qdd := m.jDinv[i].Mul3x1(r)
			qddot[jt.qIndex] = qdd[0]
			qddot[jt.qIndex+1] = qdd[1]
			qddot[jt.qIndex+2] = qdd[2]
			ai = ai.Add(spatial.Vector{Angular: qdd})
		}
		m.a[i] = ai
	}
}

// ForwardDynamicsApplyForces repeats the articulated-body sweep with a new
// set of external forces, reusing the joint transforms, body twists and
// the articulated quantities U and D left by the last ForwardDynamics
// call. Those depend only on the configuration, so the result is exact.
func (m *Model) ForwardDynamicsApplyForces(tau []float64, fext []spatial.Vector, qddot []float64) {
	n := len(m.joints)
	aBase := spatial.Vector{Linear: m.Gravity.Mul(-1)}

	for i := 1; i < n; i++ {
		m.ia[i] = m.inertia[i].ToBlocks()
		m.pa[i] = m.v[i].CrossF(m.inertia[i].Apply(m.v[i]))
		if fext != nil && !fext[i].IsZero() {
			m.pa[i] = m.pa[i].Sub(m.xBase[i].ApplyAdjoint(fext[i]))
		}
	}

	for i := n - 1; i >= 1; i-- {
		p := m.lambda[i]
		jt := m.joints[i]
		switch jt.Type {
		case JointRevolute, JointPrismatic:
			m.ju[i] = tau[jt.qIndex] - m.s[i].Dot(m.pa[i])
			if p != 0 {
				ia := m.ia[i].Sub(spatial.Outer(m.jU[i], m.jU[i]).Scale(1 / m.jd[i]))
				pa := m.pa[i].Add(ia.Apply(m.c[i])).Add(m.jU[i].Scale(m.ju[i] / m.jd[i]))
				m.ia[p] = m.ia[p].Add(ia.TransformTranspose(m.xLambda[i]))
				m.pa[p] = m.pa[p].Add(m.xLambda[i].ApplyTranspose(pa))
			}
		case JointSpherical:
			m.ju3[i] = mgl64.Vec3{tau[jt.qIndex], tau[jt.qIndex+1], tau[jt.qIndex+2]}.Sub(m.pa[i].Angular)
			if p != 0 {
				ia := m.ia[i]
				for l := 0; l < 3; l++ {
					var w spatial.Vector
					for k := 0; k < 3; k++ {
						w = w.Add(m.jU3[i][k].Scale(m.jDinv[i].At(k, l)))
					}
					ia = ia.Sub(spatial.Outer(w, m.jU3[i][l]))
				}
				t := m.jDinv[i].Mul3x1(m.ju3[i])
				pa := m.pa[i].Add(ia.Apply(m.c[i]))
				for k := 0; k < 3; k++ {
					pa = pa.Add(m.jU3[i][k].Scale(t[k]))
				}
				m.ia[p] = m.ia[p].Add(ia.TransformTranspose(m.xLambda[i]))
				m.pa[p] = m.pa[p].Add(m.xLambda[i].ApplyTranspose(pa))
			}
		}
	}

	m.abaForward(aBase, qddot)
}

// AccelerationDeltas computes the change of the joint accelerations caused
// by a single test force applied to one body, reusing the articulated
// quantities left by the last ForwardDynamics call. The force is given in
// base coordinates; the response is written into qddotT (length DoF).
func (m *Model) AccelerationDeltas(body int, f spatial.Vector, qddotT []float64) {
	n := len(m.joints)
	for i := 0; i < n; i++ {
		m.dpa[i] = spatial.Vector{}
		m.da[i] = spatial.Vector{}
		m.du[i] = 0
		m.du3[i] = mgl64.Vec3{}
	}
	m.dpa[body] = m.xBase[body].ApplyAdjoint(f).Scale(-1)

	for i := body; i != 0; i = m.lambda[i] {
		p := m.lambda[i]
		jt := m.joints[i]
		switch jt.Type {
		case JointRevolute, JointPrismatic:
			m.du[i] = -m.s[i].Dot(m.dpa[i])
			if p != 0 {
				m.dpa[p] = m.dpa[p].Add(m.xLambda[i].ApplyTranspose(
					m.dpa[i].Add(m.jU[i].Scale(m.du[i] / m.jd[i]))))
			}
		case JointSpherical:
			m.du3[i] = m.dpa[i].Angular.Mul(-1)
			if p != 0 {
				t := m.jDinv[i].Mul3x1(m.du3[i])
				d := m.dpa[i]
				for k := 0; k < 3; k++ {
					d = d.Add(m.jU3[i][k].Scale(t[k]))
				}
				m.dpa[p] = m.dpa[p].Add(m.xLambda[i].ApplyTranspose(d))
			}
		}
	}

	for i := 1; i < n; i++ {
		xa := m.xLambda[i].Apply(m.da[m.lambda[i]])
		jt := m.joints[i]
		switch jt.Type {
		case JointRevolute, JointPrismatic:
			qddotT[jt.qIndex] = (m.du[i] - m.jU[i].Dot(xa)) / m.jd[i]
			m.da[i] = xa.Add(m.s[i].Scale(qddotT[jt.qIndex]))
		case JointSpherical:
			r := m.du3[i].Sub(mgl64.Vec3{m.jU3[i][0].Dot(xa), m.jU3[i][1].Dot(xa), m.jU3[i][2].Dot(xa)})
			qdd := m.jDinv[i].Mul3x1(r)
			qddotT[jt.qIndex] = qdd[0]
			qddotT[jt.qIndex+1] = qdd[1]
			qddotT[jt.qIndex+2] = qdd[2]
			m.da[i] = xa.Add(spatial.Vector{Angular: qdd})
		}
	}
}
