package armature

import (
	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/mat"

	"github.com/akmonengine/armature/spatial"
)

// jcalc refreshes the joint transform and, for 1-DoF joints, the motion
// subspace of body i from the configuration vector.
func (m *Model) jcalc(i int, q []float64) {
	j := m.joints[i]
	switch j.Type {
	case JointRevolute:
		m.xLambda[i] = spatial.AxisRotation(q[j.qIndex], j.Axis).Mul(m.xT[i])
		m.s[i] = spatial.Vector{Angular: j.Axis}
	case JointPrismatic:
		m.xLambda[i] = spatial.Translation(j.Axis.Mul(q[j.qIndex])).Mul(m.xT[i])
		m.s[i] = spatial.Vector{Linear: j.Axis}
	case JointSpherical:
		E := m.Quaternion(i, q).Mat4().Mat3().Transpose()
		m.xLambda[i] = spatial.Rotation(E).Mul(m.xT[i])
	}
}

// jointMotion returns S·w for body i's joint, w being a velocity or
// acceleration vector.
func (m *Model) jointMotion(i int, w []float64) spatial.Vector {
	j := m.joints[i]
	switch j.Type {
	case JointRevolute, JointPrismatic:
		return m.s[i].Scale(w[j.qIndex])
	case JointSpherical:
		return spatial.Vector{Angular: mgl64.Vec3{w[j.qIndex], w[j.qIndex+1], w[j.qIndex+2]}}
	}
	return spatial.Vector{}
}

// jointAxis returns the k-th motion-subspace column of body j's joint in
// body coordinates.
func (m *Model) jointAxis(j, k int) spatial.Vector {
	jt := m.joints[j]
	switch jt.Type {
	case JointRevolute, JointPrismatic:
		return m.s[j]
	case JointSpherical:
		var a mgl64.Vec3
		a[k] = 1
		return spatial.Vector{Angular: a}
	}
	return spatial.Vector{}
}

// UpdateKinematicsCustom refreshes selected kinematic stages: body
// transforms from q, body twists from qdot, body accelerations from qddot.
// A nil slice skips its stage; later stages rely on earlier ones being
// current from this or a previous call.
func (m *Model) UpdateKinematicsCustom(q, qdot, qddot []float64) {
	if q != nil {
		for i := 1; i < len(m.joints); i++ {
			m.jcalc(i, q)
			m.xBase[i] = m.xLambda[i].Mul(m.xBase[m.lambda[i]])
		}
	}
	if qdot != nil {
		for i := 1; i < len(m.joints); i++ {
			vJ := m.jointMotion(i, qdot)
			m.v[i] = m.xLambda[i].Apply(m.v[m.lambda[i]]).Add(vJ)
			m.c[i] = m.v[i].CrossM(vJ)
		}
	}
	if qddot != nil {
		for i := 1; i < len(m.joints); i++ {
			m.a[i] = m.xLambda[i].Apply(m.a[m.lambda[i]]).Add(m.c[i]).Add(m.jointMotion(i, qddot))
		}
	}
}

// UpdateKinematics refreshes all kinematic stages.
func (m *Model) UpdateKinematics(q, qdot, qddot []float64) {
	m.UpdateKinematicsCustom(q, qdot, qddot)
}

// BodyToBase converts a point from body coordinates to base coordinates.
func (m *Model) BodyToBase(id int, p mgl64.Vec3) mgl64.Vec3 {
	return m.BaseTransform(id).InverseTransformPoint(p)
}

// BaseToBody converts a point from base coordinates to body coordinates.
func (m *Model) BaseToBody(id int, p mgl64.Vec3) mgl64.Vec3 {
	return m.BaseTransform(id).TransformPoint(p)
}

// resolvePoint maps a possibly fixed body and a point in its frame to the
// movable reference body and the same point in that body's frame.
func (m *Model) resolvePoint(id int, p mgl64.Vec3) (int, mgl64.Vec3) {
	if !m.IsFixedBody(id) {
		return id, p
	}
	base := m.BodyToBase(id, p)
	ref := m.fixed[id-fixedBodyBase].parent
	return ref, m.BaseToBody(ref, base)
}

// pointTransform maps body-ref spatial vectors to a base-aligned frame at
// the given point (point in reference-body coordinates).
func (m *Model) pointTransform(ref int, p mgl64.Vec3) spatial.Transform {
	return spatial.NewTransform(m.xBase[ref].E.Transpose(), p)
}

// PointVelocity6D returns the spatial velocity of a body point, expressed
// in a base-aligned frame at the point. Kinematics must be current through
// the velocity stage.
func (m *Model) PointVelocity6D(id int, p mgl64.Vec3) spatial.Vector {
	ref, rp := m.resolvePoint(id, p)
	return m.pointTransform(ref, rp).Apply(m.v[ref])
}

// PointVelocity returns the base-frame linear velocity of a body point.
func (m *Model) PointVelocity(id int, p mgl64.Vec3) mgl64.Vec3 {
	return m.PointVelocity6D(id, p).Linear
}

// PointAcceleration6D returns the spatial acceleration of a body point in
// a base-aligned frame at the point, including the velocity-product term.
// Kinematics must be current through the acceleration stage.
func (m *Model) PointAcceleration6D(id int, p mgl64.Vec3) spatial.Vector {
	ref, rp := m.resolvePoint(id, p)
	x := m.pointTransform(ref, rp)
	pv := x.Apply(m.v[ref])
	pa := x.Apply(m.a[ref])
	pa.Linear = pa.Linear.Add(pv.Angular.Cross(pv.Linear))
	return pa
}

// PointAcceleration returns the base-frame linear acceleration of a body
// point.
func (m *Model) PointAcceleration(id int, p mgl64.Vec3) mgl64.Vec3 {
	return m.PointAcceleration6D(id, p).Linear
}

// PointJacobian writes the 3×DoF Jacobian mapping qdot to the point's
// base-frame linear velocity into dst. Only columns on the body's support
// chain are written; the caller zeroes dst beforehand.
func (m *Model) PointJacobian(id int, p mgl64.Vec3, dst *mat.Dense) {
	ref, rp := m.resolvePoint(id, p)
	pt := spatial.Translation(m.BodyToBase(ref, rp))
	for j := ref; j != 0; j = m.lambda[j] {
		inv := m.xBase[j].Inverse()
		jt := m.joints[j]
		for k := 0; k < jt.DoF(); k++ {
			col := pt.Apply(inv.Apply(m.jointAxis(j, k)))
			dst.Set(0, jt.qIndex+k, col.Linear[0])
			dst.Set(1, jt.qIndex+k, col.Linear[1])
			dst.Set(2, jt.qIndex+k, col.Linear[2])
		}
	}
}

// PointJacobian6D writes the 6×DoF Jacobian mapping qdot to the point's
// spatial velocity (angular rows first) into dst. Only columns on the
// body's support chain are written; the caller zeroes dst beforehand.
func (m *Model) PointJacobian6D(id int, p mgl64.Vec3, dst *mat.Dense) {
	ref, rp := m.resolvePoint(id, p)
	pt := spatial.Translation(m.BodyToBase(ref, rp))
	for j := ref; j != 0; j = m.lambda[j] {
		inv := m.xBase[j].Inverse()
		jt := m.joints[j]
		for k := 0; k < jt.DoF(); k++ {
			col := pt.Apply(inv.Apply(m.jointAxis(j, k)))
			for r := 0; r < 3; r++ {
				dst.Set(r, jt.qIndex+k, col.Angular[r])
				dst.Set(r+3, jt.qIndex+k, col.Linear[r])
			}
		}
	}
}
