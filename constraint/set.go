package constraint

import (
	"fmt"
	"math"

	"github.com/akmonengine/armature"
	"github.com/akmonengine/armature/linsolve"
	"github.com/akmonengine/armature/spatial"
	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/mat"
)

// Set collects constraints into one contiguous row-indexed system and owns
// the workspace for solving it against a bound model.
//
// A set starts unbound: registration calls append constraints and grow the
// per-row arrays. Bind freezes the topology against a model and allocates
// every solver buffer once; afterwards registration fails with ErrBound
// and the solving entry points become usable. Steady-state solving does
// not grow any buffer.
type Set struct {
	// Method selects the dense decomposition used by the direct solver,
	// the assembly solvers, the per-contact force solve and the
	// null-space projection steps. Backend carries it out, substituting
	// per the linsolve fallback table when it lacks the requested
	// decomposition.
	Method  linsolve.Method
	Backend linsolve.Backend

	// Per-row bookkeeping, indexed by global row and fixed at Bind.
	Names []string
	Kinds []Kind

	// Per-row state. Err, ErrD, Force and Impulse are written by the
	// assembler and drivers; VPlus holds the caller's target constraint
	// velocities for the impulse drivers (zero for a plastic impact).
	Err     []float64
	ErrD    []float64
	Force   []float64
	Impulse []float64
	VPlus   []float64

	// System variables, allocated by Bind and filled by
	// ComputeSystemVariables.
	H     *mat.Dense
	C     []float64
	G     *mat.Dense
	Gamma []float64

	entries  []Constraint
	contacts []*Contact
	loops    []*Loop

	bound bool
	rows  int
	dof   int

	// Saddle-point workspace shared by the direct solver and the
	// assembly solvers.
	kktA *mat.Dense
	kktB *mat.VecDense
	kktX *mat.VecDense

	rhs     []float64
	zeroDof []float64
	asmE    []float64
	asmD    []float64

	// Range-space workspace.
	hFac  *mat.Dense
	rsY   *mat.Dense
	rsCol []float64
	rsZ   []float64
	rsK   *mat.SymDense
	rsA   *mat.VecDense
	rsL   *mat.VecDense
	chol  mat.Cholesky

	// Null-space workspace, present only while rows <= dof.
	nsGT   *mat.Dense
	nsQ    *mat.Dense
	nsQR   mat.QR
	nsGY   *mat.Dense
	nsD1   *mat.VecDense
	nsD2   *mat.VecDense
	nsQy   *mat.VecDense
	nsRhsN *mat.VecDense
	nsHZ   *mat.Dense
	nsZHZ  *mat.SymDense
	nsQz   *mat.VecDense
	nsRhsZ *mat.VecDense

	// Per-contact solver workspace.
	fT     []spatial.Vector
	pa0    []mgl64.Vec3
	kokK   *mat.Dense
	kokA   *mat.VecDense
	kokF   *mat.VecDense
	qddot0 []float64
	qddotT []float64
	fExt   []spatial.Vector
}

// NewSet returns an empty constraint set solving through the column-pivoted
// QR decomposition on the full dense backend.
func NewSet() *Set {
	return &Set{Method: linsolve.ColPivHouseholderQR, Backend: &linsolve.Dense{}}
}

// Size returns the total number of constraint rows.
func (s *Set) Size() int { return s.rows }

// Bound reports whether Bind has run.
func (s *Set) Bound() bool { return s.bound }

// Constraints returns the registered constraints in registration order.
// The slice is shared with the set; do not reorder it.
func (s *Set) Constraints() []Constraint { return s.entries }

func (s *Set) appendRows(k Kind, name string, n int) {
	for i := 0; i < n; i++ {
		s.Kinds = append(s.Kinds, k)
		s.Names = append(s.Names, name)
		s.Err = append(s.Err, 0)
		s.ErrD = append(s.ErrD, 0)
		s.Force = append(s.Force, 0)
		s.Impulse = append(s.Impulse, 0)
		s.VPlus = append(s.VPlus, 0)
	}
	s.rows += n
}

// AddContact registers one normal direction at a body-fixed point and
// returns the index of the row it occupies. With merge set, the row joins
// the most recently added contact when that contact pins the same point on
// the same body, sharing its point Jacobian instead of creating a second
// constraint.
func (s *Set) AddContact(body int, point, normal mgl64.Vec3, name string, merge bool) (int, error) {
	return s.addContact(body, point, []mgl64.Vec3{normal}, name, merge)
}

// AddContactGroup registers one contact with several normal directions at
// a body-fixed point and returns the index of its last row. No merging is
// attempted.
func (s *Set) AddContactGroup(body int, point mgl64.Vec3, normals []mgl64.Vec3, name string) (int, error) {
	return s.addContact(body, point, normals, name, false)
}

func (s *Set) addContact(body int, point mgl64.Vec3, normals []mgl64.Vec3, name string, merge bool) (int, error) {
	if s.bound {
		return 0, ErrBound
	}
	if len(normals) == 0 {
		return 0, ErrDimension
	}
	if merge && len(s.contacts) > 0 {
		last := s.contacts[len(s.contacts)-1]
		if last.Body == body && point.Sub(last.Point).Len() < mergeTol {
			last.Normals = append(last.Normals, normals...)
			s.appendRows(KindContact, name, len(normals))
			return s.rows - 1, nil
		}
	}
	c := &Contact{
		Body:     body,
		Point:    point,
		Normals:  append([]mgl64.Vec3(nil), normals...),
		name:     name,
		firstRow: s.rows,
	}
	s.entries = append(s.entries, c)
	s.contacts = append(s.contacts, c)
	s.appendRows(KindContact, name, len(normals))
	return s.rows - 1, nil
}

// AddLoop registers one constrained axis between a frame on a predecessor
// body and a frame on a successor body, returning the index of the row it
// occupies. With merge set, the axis joins the most recently added loop
// when the body pair and both frames coincide within numerical tolerance.
// stab replaces the target loop's stabilization settings either way.
func (s *Set) AddLoop(pred, succ int, predFrame, succFrame spatial.Transform, axis LoopAxis, stab Baumgarte, name string, merge bool) (int, error) {
	return s.addLoop(pred, succ, predFrame, succFrame, []LoopAxis{axis}, stab, name, merge)
}

// AddLoopGroup registers one loop constraint with several axes and returns
// the index of its last row. No merging is attempted.
func (s *Set) AddLoopGroup(pred, succ int, predFrame, succFrame spatial.Transform, axes []LoopAxis, stab Baumgarte, name string) (int, error) {
	return s.addLoop(pred, succ, predFrame, succFrame, axes, stab, name, false)
}

func (s *Set) addLoop(pred, succ int, predFrame, succFrame spatial.Transform, axes []LoopAxis, stab Baumgarte, name string, merge bool) (int, error) {
	if s.bound {
		return 0, ErrBound
	}
	if len(axes) == 0 {
		return 0, ErrDimension
	}
	if stab.Enabled && stab.TimeConstant <= 0 {
		return 0, fmt.Errorf("constraint: nonpositive stabilization time constant for %q", name)
	}
	var target *Loop
	if merge && len(s.loops) > 0 {
		last := s.loops[len(s.loops)-1]
		if last.Predecessor == pred && last.Successor == succ &&
			sameFrame(last.PredFrame, predFrame) && sameFrame(last.SuccFrame, succFrame) {
			target = last
		}
	}
	if target != nil {
		target.Axes = append(target.Axes, axes...)
	} else {
		target = &Loop{
			Predecessor: pred,
			Successor:   succ,
			PredFrame:   predFrame,
			SuccFrame:   succFrame,
			Axes:        append([]LoopAxis(nil), axes...),
			name:        name,
			firstRow:    s.rows,
		}
		s.entries = append(s.entries, target)
		s.loops = append(s.loops, target)
	}
	target.stab = stab
	s.appendRows(KindLoop, name, len(axes))
	return s.rows - 1, nil
}

func sameFrame(a, b spatial.Transform) bool {
	for i := 0; i < 9; i++ {
		if math.Abs(a.E[i]-b.E[i]) > mergeTol {
			return false
		}
	}
	for i := 0; i < 3; i++ {
		if math.Abs(a.R[i]-b.R[i]) > mergeTol {
			return false
		}
	}
	return true
}

// AddCustom registers a user-defined constraint and returns the index of
// its last row.
func (s *Set) AddCustom(impl Custom, stab Baumgarte, name string) (int, error) {
	if s.bound {
		return 0, ErrBound
	}
	rows := impl.Rows()
	if rows <= 0 {
		return 0, ErrDimension
	}
	if stab.Enabled && stab.TimeConstant <= 0 {
		return 0, fmt.Errorf("constraint: nonpositive stabilization time constant for %q", name)
	}
	e := &customEntry{impl: impl, name: name, rows: rows, firstRow: s.rows, stab: stab}
	s.entries = append(s.entries, e)
	s.appendRows(KindCustom, name, rows)
	return s.rows - 1, nil
}

// Bind freezes the set against a model: every constraint's bind hook runs,
// then each solver buffer is sized once for the model's degrees of freedom
// and the set's row count. Binding twice or binding an empty set fails.
func (s *Set) Bind(m *armature.Model) error {
	if s.bound {
		return ErrBound
	}
	if s.rows == 0 {
		return fmt.Errorf("constraint: bind on empty set")
	}
	for _, c := range s.entries {
		if err := c.bind(m); err != nil {
			return err
		}
	}
	d := m.DoF()
	n := s.rows
	s.dof = d

	s.H = mat.NewDense(d, d, nil)
	s.C = make([]float64, d)
	s.G = mat.NewDense(n, d, nil)
	s.Gamma = make([]float64, n)

	s.kktA = mat.NewDense(d+n, d+n, nil)
	s.kktB = mat.NewVecDense(d+n, nil)
	s.kktX = mat.NewVecDense(d+n, nil)

	s.rhs = make([]float64, d)
	s.zeroDof = make([]float64, d)
	s.asmE = make([]float64, n)
	s.asmD = make([]float64, d)

	s.hFac = mat.NewDense(d, d, nil)
	s.rsY = mat.NewDense(d, n, nil)
	s.rsCol = make([]float64, d)
	s.rsZ = make([]float64, d)
	s.rsK = mat.NewSymDense(n, nil)
	s.rsA = mat.NewVecDense(n, nil)
	s.rsL = mat.NewVecDense(n, nil)

	if n <= d {
		s.nsGT = mat.NewDense(d, n, nil)
		s.nsQ = mat.NewDense(d, d, nil)
		s.nsGY = mat.NewDense(n, n, nil)
		s.nsD1 = mat.NewVecDense(d, nil)
		s.nsD2 = mat.NewVecDense(d, nil)
		s.nsQy = mat.NewVecDense(n, nil)
		s.nsRhsN = mat.NewVecDense(n, nil)
		if zc := d - n; zc > 0 {
			s.nsHZ = mat.NewDense(d, zc, nil)
			s.nsZHZ = mat.NewSymDense(zc, nil)
			s.nsQz = mat.NewVecDense(zc, nil)
			s.nsRhsZ = mat.NewVecDense(zc, nil)
		}
	}

	s.fT = make([]spatial.Vector, n)
	s.pa0 = make([]mgl64.Vec3, n)
	s.kokK = mat.NewDense(n, n, nil)
	s.kokA = mat.NewVecDense(n, nil)
	s.kokF = mat.NewVecDense(n, nil)
	s.qddot0 = make([]float64, d)
	s.qddotT = make([]float64, d)
	s.fExt = make([]spatial.Vector, m.NumBodies())

	s.bound = true
	return nil
}

// Clear zeroes accumulated numeric state for reuse across timesteps,
// leaving registration order, row assignments and buffer shapes intact.
// VPlus targets are preserved.
func (s *Set) Clear() {
	clear(s.Err)
	clear(s.ErrD)
	clear(s.Force)
	clear(s.Impulse)
	if !s.bound {
		return
	}
	s.H.Zero()
	clear(s.C)
	s.G.Zero()
	clear(s.Gamma)
	s.kktA.Zero()
	s.kktB.Zero()
	s.kktX.Zero()
	clear(s.rhs)
	clear(s.asmE)
	clear(s.asmD)
	s.hFac.Zero()
	s.rsY.Zero()
	clear(s.rsCol)
	clear(s.rsZ)
	s.rsK.Zero()
	s.rsA.Zero()
	s.rsL.Zero()
	if s.nsGT != nil {
		s.nsGT.Zero()
		s.nsQ.Zero()
		s.nsGY.Zero()
		s.nsD1.Zero()
		s.nsD2.Zero()
		s.nsQy.Zero()
		s.nsRhsN.Zero()
	}
	if s.nsHZ != nil {
		s.nsHZ.Zero()
		s.nsZHZ.Zero()
		s.nsQz.Zero()
		s.nsRhsZ.Zero()
	}
	clear(s.fT)
	clear(s.pa0)
	s.kokK.Zero()
	s.kokA.Zero()
	s.kokF.Zero()
	clear(s.qddot0)
	clear(s.qddotT)
	clear(s.fExt)
}

// checkState validates the caller-supplied state vectors against the bound
// model.
func (s *Set) checkState(m *armature.Model, q, qdot, tau []float64, fext []spatial.Vector) error {
	if s.dof != m.DoF() {
		return ErrDimension
	}
	if len(q) != m.QSize() || len(qdot) != s.dof || len(tau) != s.dof {
		return ErrDimension
	}
	if fext != nil && len(fext) != m.NumBodies() {
		return ErrDimension
	}
	return nil
}
