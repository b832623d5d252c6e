package constraint

import (
	"github.com/akmonengine/armature"
	"gonum.org/v1/gonum/mat"
)

// Custom is a user-defined constraint. Methods receive views sized to the
// constraint's own rows: g is a Rows×DoF block of the system Jacobian and
// dst has Rows elements. The model's kinematic state is current when each
// method runs (through the acceleration stage for Gamma); implementations
// must not refresh it themselves.
type Custom interface {
	// Rows returns the number of scalar constraint equations.
	Rows() int

	// Bind prepares any model-sized workspace. It runs once, from
	// Set.Bind.
	Bind(m *armature.Model) error

	// Jacobian fills g with the constraint's rows.
	Jacobian(m *armature.Model, q []float64, g *mat.Dense)

	// PositionError fills dst with the position-level errors.
	PositionError(m *armature.Model, q []float64, dst []float64)

	// VelocityError fills dst with the velocity-level errors; g holds the
	// constraint's freshly assembled Jacobian rows.
	VelocityError(m *armature.Model, q, qdot []float64, g mat.Matrix, dst []float64)

	// Gamma fills dst with the bias acceleration term.
	Gamma(m *armature.Model, q, qdot []float64, g mat.Matrix, dst []float64)
}

// customEntry adapts a Custom into the set's internal constraint surface,
// translating global rows into constraint-local views.
type customEntry struct {
	impl     Custom
	name     string
	rows     int
	firstRow int
	stab     Baumgarte
}

func (c *customEntry) Kind() Kind    { return KindCustom }
func (c *customEntry) Name() string  { return c.name }
func (c *customEntry) Rows() int     { return c.rows }
func (c *customEntry) FirstRow() int { return c.firstRow }

func (c *customEntry) Stabilization() *Baumgarte { return &c.stab }

func (c *customEntry) bind(m *armature.Model) error { return c.impl.Bind(m) }

func (c *customEntry) block(g *mat.Dense, dof int) *mat.Dense {
	return g.Slice(c.firstRow, c.firstRow+c.rows, 0, dof).(*mat.Dense)
}

func (c *customEntry) jacobian(m *armature.Model, q []float64, g *mat.Dense) {
	c.impl.Jacobian(m, q, c.block(g, m.DoF()))
}

func (c *customEntry) positionError(m *armature.Model, q []float64, dst []float64) {
	c.impl.PositionError(m, q, dst[c.firstRow:c.firstRow+c.rows])
}

func (c *customEntry) velocityError(m *armature.Model, q, qdot []float64, g *mat.Dense, dst []float64) {
	c.impl.VelocityError(m, q, qdot, c.block(g, m.DoF()), dst[c.firstRow:c.firstRow+c.rows])
}

func (c *customEntry) gamma(m *armature.Model, q, qdot []float64, g *mat.Dense, dst []float64) {
	c.impl.Gamma(m, q, qdot, c.block(g, m.DoF()), dst[c.firstRow:c.firstRow+c.rows])
}
