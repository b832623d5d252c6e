// Package armature implements rigid-body dynamics for articulated systems:
// kinematic-tree models, recursive kinematics, and the joint-space dynamics
// algorithms (composite rigid-body, recursive Newton-Euler, articulated
// body) that the constraint package builds on.
package armature

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/akmonengine/armature/spatial"
)

// Fixed bodies carry no degrees of freedom and are addressed by IDs offset
// with this discriminant.
const fixedBodyBase = 1 << 30

// JointType enumerates the supported joint models.
type JointType uint8

const (
	JointFixed JointType = iota
	JointRevolute
	JointPrismatic
	JointSpherical
)

// Joint describes how a body moves relative to its parent.
type Joint struct {
	Type JointType
	// Axis is the rotation or translation axis in the successor body
	// frame. Only 1-DoF joint types use it.
	Axis mgl64.Vec3
}

// RevoluteJoint rotates about the given axis of the successor frame.
func RevoluteJoint(axis mgl64.Vec3) Joint {
	return Joint{Type: JointRevolute, Axis: axis.Normalize()}
}

// PrismaticJoint translates along the given axis of the successor frame.
func PrismaticJoint(axis mgl64.Vec3) Joint {
	return Joint{Type: JointPrismatic, Axis: axis.Normalize()}
}

// SphericalJoint rotates freely, parameterized by a unit quaternion. Its
// three velocity coordinates are the angular velocity in the successor
// frame; the quaternion W component is stored in the tail of q.
func SphericalJoint() Joint {
	return Joint{Type: JointSpherical}
}

// FixedJoint welds the body to its parent. The body is merged into its
// movable parent and allocates no degrees of freedom.
func FixedJoint() Joint {
	return Joint{Type: JointFixed}
}

// DoF returns the joint's velocity-space dimension.
func (j Joint) DoF() int {
	switch j.Type {
	case JointRevolute, JointPrismatic:
		return 1
	case JointSpherical:
		return 3
	}
	return 0
}

// Body holds a rigid body's mass properties: mass, center of mass in body
// coordinates, and rotational inertia about the center of mass.
type Body struct {
	Mass         float64
	CenterOfMass mgl64.Vec3
	Inertia      mgl64.Mat3
}

type joint struct {
	Joint
	qIndex int
	wIndex int
}

type fixedBody struct {
	parent    int
	transform spatial.Transform
	name      string
}

// Model is a kinematic tree of rigid bodies. Index 0 is the immobile base.
// Build it once with AddBody; the dynamics and kinematics methods then work
// on caller-provided q, qdot, tau slices sized QSize and DoF.
//
// A Model carries mutable computation state and must not be shared between
// goroutines.
type Model struct {
	Gravity mgl64.Vec3

	dof   int
	qSize int

	lambda  []int
	lambdaQ []int
	joints  []joint
	xT      []spatial.Transform
	inertia []spatial.Inertia
	names   []string
	nameID  map[string]int
	fixed   []fixedBody

	// kinematic state, refreshed by the UpdateKinematics family
	xLambda []spatial.Transform
	xBase   []spatial.Transform
	v       []spatial.Vector
	c       []spatial.Vector
	a       []spatial.Vector
	s       []spatial.Vector

	// articulated-body state, reused by the constrained-dynamics passes
	ia    []spatial.Matrix
	pa    []spatial.Vector
	jU    []spatial.Vector
	jd    []float64
	ju    []float64
	jU3   [][3]spatial.Vector
	jDinv []mgl64.Mat3
	ju3   []mgl64.Vec3

	// algorithm scratch
	ic  []spatial.Inertia
	f   []spatial.Vector
	dpa []spatial.Vector
	da  []spatial.Vector
	du  []float64
	du3 []mgl64.Vec3
}

// New creates an empty model with the given gravity vector in base
// coordinates.
func New(gravity mgl64.Vec3) *Model {
	m := &Model{
		Gravity: gravity,
		nameID:  map[string]int{"ROOT": 0},
	}
	m.lambda = append(m.lambda, 0)
	m.joints = append(m.joints, joint{Joint: Joint{Type: JointFixed}, qIndex: -1, wIndex: -1})
	m.xT = append(m.xT, spatial.Identity())
	m.inertia = append(m.inertia, spatial.Inertia{})
	m.names = append(m.names, "ROOT")
	m.appendStateSlot()
	return m
}

func (m *Model) appendStateSlot() {
	m.xLambda = append(m.xLambda, spatial.Identity())
	m.xBase = append(m.xBase, spatial.Identity())
	m.v = append(m.v, spatial.Vector{})
	m.c = append(m.c, spatial.Vector{})
	m.a = append(m.a, spatial.Vector{})
	m.s = append(m.s, spatial.Vector{})
	m.ia = append(m.ia, spatial.Matrix{})
	m.pa = append(m.pa, spatial.Vector{})
	m.jU = append(m.jU, spatial.Vector{})
	m.jd = append(m.jd, 0)
	m.ju = append(m.ju, 0)
	m.jU3 = append(m.jU3, [3]spatial.Vector{})
	m.jDinv = append(m.jDinv, mgl64.Mat3{})
	m.ju3 = append(m.ju3, mgl64.Vec3{})
	m.ic = append(m.ic, spatial.Inertia{})
	m.f = append(m.f, spatial.Vector{})
	m.dpa = append(m.dpa, spatial.Vector{})
	m.da = append(m.da, spatial.Vector{})
	m.du = append(m.du, 0)
	m.du3 = append(m.du3, mgl64.Vec3{})
}

// AddBody appends a body connected to parent through joint j. The placement
// transform maps the parent body frame to the joint frame. Fixed joints do
// not allocate degrees of freedom: the body's inertia is merged into its
// movable parent and the returned ID carries the fixed-body discriminant.
func (m *Model) AddBody(parent int, placement spatial.Transform, j Joint, b Body, name string) int {
	if m.IsFixedBody(parent) {
		fb := m.fixed[parent-fixedBodyBase]
		placement = placement.Mul(fb.transform)
		parent = fb.parent
	}
	if parent < 0 || parent >= len(m.joints) {
		panic("armature: AddBody with unknown parent")
	}
	in := spatial.NewInertia(b.Mass, b.CenterOfMass, b.Inertia)

	if j.Type == JointFixed {
		m.inertia[parent] = m.inertia[parent].Add(placement.ApplyTransposeInertia(in))
		m.fixed = append(m.fixed, fixedBody{parent: parent, transform: placement, name: name})
		id := fixedBodyBase + len(m.fixed) - 1
		if name != "" {
			m.nameID[name] = id
		}
		return id
	}

	id := len(m.joints)
	prev := -1
	if parent != 0 {
		pj := m.joints[parent]
		prev = pj.qIndex + pj.DoF() - 1
	}
	for k := 0; k < j.DoF(); k++ {
		if k == 0 {
			m.lambdaQ = append(m.lambdaQ, prev)
		} else {
			m.lambdaQ = append(m.lambdaQ, m.dof+k-1)
		}
	}
	m.lambda = append(m.lambda, parent)
	m.joints = append(m.joints, joint{Joint: j, qIndex: m.dof, wIndex: -1})
	m.xT = append(m.xT, placement)
	m.inertia = append(m.inertia, in)
	m.names = append(m.names, name)
	m.appendStateSlot()
	m.dof += j.DoF()

	// quaternion W components live in the tail of q; reassign the slots
	// whenever the tree grows
	m.qSize = m.dof
	for i := range m.joints {
		if m.joints[i].Type == JointSpherical {
			m.joints[i].wIndex = m.qSize
			m.qSize++
		}
	}

	if name != "" {
		m.nameID[name] = id
	}
	return id
}

// DoF returns the velocity-space dimension of the model.
func (m *Model) DoF() int { return m.dof }

// QSize returns the configuration-vector length. It exceeds DoF by one per
// spherical joint.
func (m *Model) QSize() int { return m.qSize }

// NumBodies returns the number of movable bodies including the base.
func (m *Model) NumBodies() int { return len(m.joints) }

// IsFixedBody reports whether id addresses a merged fixed body.
func (m *Model) IsFixedBody(id int) bool {
	return id >= fixedBodyBase && id-fixedBodyBase < len(m.fixed)
}

// MovableAncestor resolves any body ID to the nearest movable body: fixed
// bodies map to the movable parent they were merged into, movable bodies
// (and the base) map to themselves.
func (m *Model) MovableAncestor(id int) int {
	if m.IsFixedBody(id) {
		return m.fixed[id-fixedBodyBase].parent
	}
	return id
}

// Parent returns the parent body of a movable body.
func (m *Model) Parent(id int) int { return m.lambda[id] }

// BodyID looks a body up by name.
func (m *Model) BodyID(name string) (int, bool) {
	id, ok := m.nameID[name]
	return id, ok
}

// BodyName returns the name given at AddBody.
func (m *Model) BodyName(id int) string {
	if m.IsFixedBody(id) {
		return m.fixed[id-fixedBodyBase].name
	}
	return m.names[id]
}

// BodyJoint returns the joint connecting a movable body to its parent.
func (m *Model) BodyJoint(id int) Joint { return m.joints[id].Joint }

// JointQIndex returns the first generalized-coordinate index of a movable
// body's joint.
func (m *Model) JointQIndex(id int) int { return m.joints[id].qIndex }

// BaseTransform returns the transform from base coordinates into the
// body's frame, as of the last kinematics refresh.
func (m *Model) BaseTransform(id int) spatial.Transform {
	if m.IsFixedBody(id) {
		fb := m.fixed[id-fixedBodyBase]
		return fb.transform.Mul(m.xBase[fb.parent])
	}
	return m.xBase[id]
}

// WorldOrientation returns the rotation mapping base coordinates into body
// coordinates, as of the last kinematics refresh.
func (m *Model) WorldOrientation(id int) mgl64.Mat3 {
	return m.BaseTransform(id).E
}

// Quaternion reads a spherical joint's orientation from q.
func (m *Model) Quaternion(id int, q []float64) mgl64.Quat {
	j := m.joints[id]
	if j.Type != JointSpherical {
		panic("armature: Quaternion on a non-spherical joint")
	}
	return mgl64.Quat{
		W: q[j.wIndex],
		V: mgl64.Vec3{q[j.qIndex], q[j.qIndex+1], q[j.qIndex+2]},
	}
}

// SetQuaternion stores a spherical joint's orientation into q.
func (m *Model) SetQuaternion(id int, quat mgl64.Quat, q []float64) {
	j := m.joints[id]
	if j.Type != JointSpherical {
		panic("armature: SetQuaternion on a non-spherical joint")
	}
	q[j.qIndex] = quat.V[0]
	q[j.qIndex+1] = quat.V[1]
	q[j.qIndex+2] = quat.V[2]
	q[j.wIndex] = quat.W
}
