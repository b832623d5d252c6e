package constraint

import (
	"github.com/akmonengine/armature"
	"github.com/akmonengine/armature/spatial"
	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/mat"
)

// Loop closes a kinematic chain: a frame fixed on a predecessor body is
// pinned to a frame fixed on a successor body along a chosen set of axes.
// Axes are expressed in the predecessor-side frame; a full six-axis set
// welds the frames together, fewer axes leave the complementary relative
// motion free.
//
// Position error uses the small-angle rotation vector between the two
// frames together with the frame-coordinate translation gap, so it is
// meaningful only near the constraint manifold.
type Loop struct {
	Predecessor int
	Successor   int
	PredFrame   spatial.Transform
	SuccFrame   spatial.Transform
	Axes        []LoopAxis

	name     string
	firstRow int
	stab     Baumgarte

	jacP, jacS *mat.Dense
}

func (l *Loop) Kind() Kind    { return KindLoop }
func (l *Loop) Name() string  { return l.name }
func (l *Loop) Rows() int     { return len(l.Axes) }
func (l *Loop) FirstRow() int { return l.firstRow }

func (l *Loop) Stabilization() *Baumgarte { return &l.stab }

func (l *Loop) bind(m *armature.Model) error {
	l.jacP = mat.NewDense(6, m.DoF(), nil)
	l.jacS = mat.NewDense(6, m.DoF(), nil)
	return nil
}

// frameRotation returns the base-from-frame rotation of a constraint frame
// at the current configuration.
func frameRotation(m *armature.Model, body int, frame spatial.Transform) mgl64.Mat3 {
	return m.WorldOrientation(body).Transpose().Mul3(frame.E.Transpose())
}

// baseAxis expresses a frame-coordinate axis in base coordinates.
func baseAxis(rot mgl64.Mat3, a spatial.Vector) spatial.Vector {
	return spatial.Vector{Angular: rot.Mul3x1(a.Angular), Linear: rot.Mul3x1(a.Linear)}
}

func (l *Loop) jacobian(m *armature.Model, q []float64, g *mat.Dense) {
	l.jacP.Zero()
	l.jacS.Zero()
	m.PointJacobian6D(l.Predecessor, l.PredFrame.R, l.jacP)
	m.PointJacobian6D(l.Successor, l.SuccFrame.R, l.jacS)
	rotP := frameRotation(m, l.Predecessor, l.PredFrame)
	dof := m.DoF()
	for i, ax := range l.Axes {
		a := baseAxis(rotP, ax.Axis)
		row := l.firstRow + i
		for j := 0; j < dof; j++ {
			sum := 0.0
			for r := 0; r < 3; r++ {
				sum += a.Angular[r] * (l.jacS.At(r, j) - l.jacP.At(r, j))
				sum += a.Linear[r] * (l.jacS.At(r+3, j) - l.jacP.At(r+3, j))
			}
			g.Set(row, j, sum)
		}
	}
}

func (l *Loop) positionError(m *armature.Model, q []float64, dst []float64) {
	rotP := frameRotation(m, l.Predecessor, l.PredFrame)
	rotS := frameRotation(m, l.Successor, l.SuccFrame)
	posP := m.BodyToBase(l.Predecessor, l.PredFrame.R)
	posS := m.BodyToBase(l.Successor, l.SuccFrame.R)

	// Relative rotation between the frames, linearized into a rotation
	// vector; the translation gap is measured in predecessor-frame
	// coordinates.
	rotPS := rotS.Transpose().Mul3(rotP)
	d := spatial.Vector{
		Angular: mgl64.Vec3{
			-0.5 * (rotPS.At(1, 2) - rotPS.At(2, 1)),
			-0.5 * (rotPS.At(2, 0) - rotPS.At(0, 2)),
			-0.5 * (rotPS.At(0, 1) - rotPS.At(1, 0)),
		},
		Linear: rotP.Transpose().Mul3x1(posS.Sub(posP)),
	}
	for i, ax := range l.Axes {
		if ax.PositionLevel {
			dst[l.firstRow+i] = ax.Axis.Dot(d)
		} else {
			dst[l.firstRow+i] = 0
		}
	}
}

func (l *Loop) velocityError(m *armature.Model, q, qdot []float64, g *mat.Dense, dst []float64) {
	dof := m.DoF()
	for i, ax := range l.Axes {
		row := l.firstRow + i
		if !ax.VelocityLevel {
			dst[row] = 0
			continue
		}
		sum := 0.0
		for j := 0; j < dof; j++ {
			sum += g.At(row, j) * qdot[j]
		}
		dst[row] = sum
	}
}

// gamma reads point kinematics from the zero-qddot state prepared by the
// assembler: the bias term collects the relative frame acceleration along
// each axis plus the axis drift against the relative velocity.
func (l *Loop) gamma(m *armature.Model, q, qdot []float64, g *mat.Dense, dst []float64) {
	rotP := frameRotation(m, l.Predecessor, l.PredFrame)
	velP := m.PointVelocity6D(l.Predecessor, l.PredFrame.R)
	velS := m.PointVelocity6D(l.Successor, l.SuccFrame.R)
	accP := m.PointAcceleration6D(l.Predecessor, l.PredFrame.R)
	accS := m.PointAcceleration6D(l.Successor, l.SuccFrame.R)
	dVel := velS.Sub(velP)
	dAcc := accS.Sub(accP)
	for i, ax := range l.Axes {
		a := baseAxis(rotP, ax.Axis)
		aDot := velP.CrossM(a)
		dst[l.firstRow+i] = -a.Dot(dAcc) - aDot.Dot(dVel)
	}
}
