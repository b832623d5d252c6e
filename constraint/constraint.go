// Package constraint couples an armature.Model with kinematic constraints:
// contact points, closed loops and user-defined equations registered into
// one contiguously indexed set, solved together with the equations of
// motion through direct, range-space or null-space strategies.
package constraint

import (
	"errors"
	"math"

	"github.com/akmonengine/armature"
	"github.com/akmonengine/armature/spatial"
	"gonum.org/v1/gonum/mat"
)

// Kind tags the family a constraint row belongs to.
type Kind int

const (
	KindContact Kind = iota
	KindLoop
	KindCustom
)

func (k Kind) String() string {
	switch k {
	case KindContact:
		return "contact"
	case KindLoop:
		return "loop"
	case KindCustom:
		return "custom"
	}
	return "unknown"
}

var (
	// ErrBound is returned when a bound set is mutated or bound again.
	ErrBound = errors.New("constraint: set already bound")

	// ErrNotBound is returned when a set is solved before Bind.
	ErrNotBound = errors.New("constraint: set not bound")

	// ErrDimension is returned when supplied vectors or matrices do not
	// match the bound model's sizes, or when a registration carries no
	// rows.
	ErrDimension = errors.New("constraint: dimension mismatch")

	// ErrNotContact is returned by the per-contact solver when the set
	// holds loop or custom constraints.
	ErrNotContact = errors.New("constraint: set holds non-contact constraints")

	// ErrFactorization is returned when a positive-definite factorization
	// fails, typically on a redundant or rank-deficient constraint system.
	ErrFactorization = errors.New("constraint: factorization failed")
)

// mergeTol is the distance under which two registration calls are treated
// as addressing the same contact point or loop frame.
var mergeTol = 100 * (math.Nextafter(1, 2) - 1)

// Baumgarte configures drift-correction feedback for a constraint. When
// enabled, the assembler biases the constraint acceleration toward zero
// position and velocity error at a rate set by the time constant; smaller
// constants correct faster but stiffen the system. The time constant must
// be positive while enabled.
type Baumgarte struct {
	Enabled      bool
	TimeConstant float64
}

func (b Baumgarte) gains() (vel, pos float64) {
	return 2 / b.TimeConstant, 1 / (b.TimeConstant * b.TimeConstant)
}

// LoopAxis is one constrained direction of a loop constraint, expressed in
// the predecessor-side frame. PositionLevel and VelocityLevel select which
// error terms the axis reports; an axis with both false still constrains
// accelerations.
type LoopAxis struct {
	Axis          spatial.Vector
	PositionLevel bool
	VelocityLevel bool
}

// Constraint is one registered entry of a Set, occupying the contiguous
// row range [FirstRow, FirstRow+Rows). Concrete types are Contact, Loop
// and the wrapper around a user Custom; select with a type switch when an
// operation needs kind-specific data.
type Constraint interface {
	Kind() Kind
	Name() string
	Rows() int
	FirstRow() int

	// Stabilization exposes the constraint's Baumgarte settings for
	// inspection and adjustment.
	Stabilization() *Baumgarte

	bind(m *armature.Model) error
	jacobian(m *armature.Model, q []float64, g *mat.Dense)
	positionError(m *armature.Model, q []float64, dst []float64)
	velocityError(m *armature.Model, q, qdot []float64, g *mat.Dense, dst []float64)
	gamma(m *armature.Model, q, qdot []float64, g *mat.Dense, dst []float64)
}
