// Package manip binds the op a gesture edits, evaluates the frame it lives
// in and writes translations back in the op's authored precision.
package manip

import (
	"log"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/mogaika/xformedit/config"
	"github.com/mogaika/xformedit/usd"
	"github.com/mogaika/xformedit/xform"
)

var ErrOpNotFound = errors.New("no matching xform op")

// Manipulator edits one op of a prim's stack at a fixed time.
type Manipulator struct {
	prim  usd.Prim
	ops   []xform.Op
	reset bool
	index int
	time  usd.TimeCode
}

func (m *Manipulator) Prim() usd.Prim         { return m.prim }
func (m *Manipulator) Ops() []xform.Op        { return m.ops }
func (m *Manipulator) Op() xform.Op           { return m.ops[m.index] }
func (m *Manipulator) Index() int             { return m.index }
func (m *Manipulator) ResetsXformStack() bool { return m.reset }
func (m *Manipulator) Time() usd.TimeCode     { return m.time }
func (m *Manipulator) SetTime(t usd.TimeCode) { m.time = t }

func load(prim usd.Prim, t usd.TimeCode, match func(op xform.Op) bool) (*Manipulator, error) {
	ops, reset, err := xform.New(prim).GetOrderedXformOps()
	if err != nil {
		return nil, err
	}
	for i, op := range ops {
		if match(op) {
			return &Manipulator{prim: prim, ops: ops, reset: reset, index: i, time: t}, nil
		}
	}
	return nil, ErrOpNotFound
}

// Bind finds the first translate op with suffix. Without a suffix a prim
// that has no plain translate falls back to its first transform op, whose
// matrix carries the translation.
func Bind(prim usd.Prim, suffix string, t usd.TimeCode) (*Manipulator, error) {
	m, err := load(prim, t, func(op xform.Op) bool {
		return op.OpType() == xform.OpTranslate && !op.IsInverse() && op.Suffix() == suffix
	})
	if errors.Cause(err) == ErrOpNotFound && suffix == "" {
		m, err = load(prim, t, func(op xform.Op) bool {
			return op.OpType() == xform.OpTransform && !op.IsInverse()
		})
	}
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to bind %v on %v", xform.OpAttrName(xform.OpTranslate, suffix), prim.Path())
	}
	if config.DebugManipulators() {
		log.Printf("[manip] bound %v[%d] %v on %v", m.Op().Name(), m.index, m.Op().Precision(), prim.Path())
	}
	return m, nil
}

// BindOp rebinds to the op whose order token is opName.
func BindOp(prim usd.Prim, opName string, t usd.TimeCode) (*Manipulator, error) {
	m, err := load(prim, t, func(op xform.Op) bool { return op.Name() == opName })
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to bind %v on %v", opName, prim.Path())
	}
	return m, nil
}

// Translation reads the op's translation. An op without a value reads as zero.
func (m *Manipulator) Translation() (mgl64.Vec3, error) {
	op := m.Op()
	v, ok := op.Get(m.time)
	if !ok {
		return mgl64.Vec3{}, nil
	}
	switch op.OpType() {
	case xform.OpTranslate:
		if vec, ok := xform.AsVec3d(v); ok {
			return vec, nil
		}
	case xform.OpTransform:
		if mat, ok := v.(mgl64.Mat4); ok {
			return mat.Col(3).Vec3(), nil
		}
	default:
		return mgl64.Vec3{}, errors.Errorf("%v does not carry a translation", op.Name())
	}
	return mgl64.Vec3{}, errors.Errorf("%v: unexpected value %T", op.Name(), v)
}

// SetTranslation writes v in the op's authored form: a 3-vector of the
// op's precision, or only the translation column of a matrix.
func (m *Manipulator) SetTranslation(v mgl64.Vec3) error {
	op := m.Op()
	switch op.OpType() {
	case xform.OpTranslate:
		return op.Set(xform.Vec3InPrecision(v, op.Precision()), m.time)
	case xform.OpTransform:
		mat := mgl64.Ident4()
		if cur, ok := op.Get(m.time); ok {
			if cm, ok := cur.(mgl64.Mat4); ok {
				mat = cm
			}
		}
		mat.SetCol(3, mgl64.Vec4{v[0], v[1], v[2], mat.At(3, 3)})
		return op.Set(mat, m.time)
	}
	return errors.Errorf("%v does not carry a translation", op.Name())
}

// ApplyPreTransformDelta adds delta to the current translation.
func (m *Manipulator) ApplyPreTransformDelta(delta mgl64.Vec3) error {
	cur, err := m.Translation()
	if err != nil {
		return err
	}
	if config.DebugManipulators() {
		log.Printf("[manip] %v: %v + %v", m.Op().Name(), cur, delta)
	}
	return m.SetTranslation(cur.Add(delta))
}

// Frame composes the whole stack, the edited op included.
func (m *Manipulator) Frame() (mgl64.Mat4, error) {
	return EvaluateCoordinateFrameForIndex(m.ops, len(m.ops), m.time)
}
