package constraint

import (
	"github.com/akmonengine/armature"
	"github.com/akmonengine/armature/spatial"
	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/mat"
)

// Contact pins a point fixed on a body against the world along one or more
// normal directions. Every normal occupies its own row; all rows share the
// point's Jacobian, which is computed once per assembly.
//
// With PositionLevel set, position error is the gap between the point and
// GroundPoint measured along each normal; otherwise it reports zero and
// the constraint acts on velocities and accelerations only. Velocity error
// is always the point velocity along each normal.
type Contact struct {
	Body          int
	Point         mgl64.Vec3
	Normals       []mgl64.Vec3
	GroundPoint   mgl64.Vec3
	PositionLevel bool

	name     string
	firstRow int
	stab     Baumgarte

	jac *mat.Dense
}

func (c *Contact) Kind() Kind    { return KindContact }
func (c *Contact) Name() string  { return c.name }
func (c *Contact) Rows() int     { return len(c.Normals) }
func (c *Contact) FirstRow() int { return c.firstRow }

func (c *Contact) Stabilization() *Baumgarte { return &c.stab }

func (c *Contact) bind(m *armature.Model) error {
	c.jac = mat.NewDense(3, m.DoF(), nil)
	return nil
}

func (c *Contact) jacobian(m *armature.Model, q []float64, g *mat.Dense) {
	c.jac.Zero()
	m.PointJacobian(c.Body, c.Point, c.jac)
	dof := m.DoF()
	for i, n := range c.Normals {
		row := c.firstRow + i
		for j := 0; j < dof; j++ {
			g.Set(row, j, n[0]*c.jac.At(0, j)+n[1]*c.jac.At(1, j)+n[2]*c.jac.At(2, j))
		}
	}
}

func (c *Contact) positionError(m *armature.Model, q []float64, dst []float64) {
	if !c.PositionLevel {
		for i := range c.Normals {
			dst[c.firstRow+i] = 0
		}
		return
	}
	gap := m.BodyToBase(c.Body, c.Point).Sub(c.GroundPoint)
	for i, n := range c.Normals {
		dst[c.firstRow+i] = n.Dot(gap)
	}
}

func (c *Contact) velocityError(m *armature.Model, q, qdot []float64, g *mat.Dense, dst []float64) {
	dof := m.DoF()
	for i := range c.Normals {
		row := c.firstRow + i
		sum := 0.0
		for j := 0; j < dof; j++ {
			sum += g.At(row, j) * qdot[j]
		}
		dst[row] = sum
	}
}

// gamma reads the point acceleration from the zero-qddot kinematic state
// prepared by the assembler.
func (c *Contact) gamma(m *armature.Model, q, qdot []float64, g *mat.Dense, dst []float64) {
	accel := m.PointAcceleration(c.Body, c.Point)
	for i, n := range c.Normals {
		dst[c.firstRow+i] = -n.Dot(accel)
	}
}

// testForces fills, for each normal row, the base-frame spatial force of a
// unit force along that normal acting at the contact point.
func (c *Contact) testForces(m *armature.Model, dst []spatial.Vector) {
	p := m.BodyToBase(c.Body, c.Point)
	for i, n := range c.Normals {
		dst[c.firstRow+i] = spatial.Vector{Angular: p.Cross(n), Linear: n}
	}
}
