package command

import (
	"log"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/mogaika/xformedit/config"
	"github.com/mogaika/xformedit/manip"
	"github.com/mogaika/xformedit/simd"
	"github.com/mogaika/xformedit/usd"
	"github.com/mogaika/xformedit/utils"
)

// Tolerance under which undo of a bound op leaves the value alone.
const Tolerance = 1e-5

// deltaFunc turns a target position into the amount to add to the op's
// current translation, given the frame of the whole stack.
type deltaFunc func(frame *simd.Frame, current, target mgl64.Vec3) mgl64.Vec3

var deltas = [...]deltaFunc{
	manip.PreTransform: func(frame *simd.Frame, current, target mgl64.Vec3) mgl64.Vec3 {
		diff := simd.Set4d(target[0], target[1], target[2], 1)
		return simd.Sub4d(diff, frame.Translation()).Vec3()
	},
	manip.PostTransform: func(frame *simd.Frame, current, target mgl64.Vec3) mgl64.Vec3 {
		diff := simd.Sub4d(simd.Set4d(target[0], target[1], target[2], 0), frame.Translation())
		diff = simd.Select4d([4]bool{true, true, true, false}, diff, simd.Zero4d())
		return simd.Rotate4d(diff, frame).Vec3()
	},
	manip.World: func(frame *simd.Frame, current, target mgl64.Vec3) mgl64.Vec3 {
		diff := simd.Set4d(target[0], target[1], target[2], 1)
		return simd.Sub4d(diff, simd.Set4d(current[0], current[1], current[2], 0)).Vec3()
	},
	manip.Transform: func(frame *simd.Frame, current, target mgl64.Vec3) mgl64.Vec3 {
		return target.Sub(current)
	},
}

// Translate moves a translate op, or sets a pivot, of one prim. It binds
// or creates its op on construction and remembers the edit target active
// then; every later write goes there.
type Translate struct {
	item   Item
	kind   Kind
	opName string
	time   usd.TimeCode
	state  State
	err    error

	previous mgl64.Vec3
	current  mgl64.Vec3
	applied  bool

	created bool
	record  manip.CreationRecord
	scope   usd.EditTarget
}

// NewTranslateCommand binds the prim's first translate op at t, creating a
// double translate at the head of the stack when there is none.
func NewTranslateCommand(item Item, t usd.TimeCode) *Translate {
	return newTranslate(item, KindTranslate, t, nil)
}

// NewTranslateCommandWithValue is NewTranslateCommand with the value the
// gesture starts from. Nothing is written until Apply.
func NewTranslateCommandWithValue(item Item, t usd.TimeCode, initial mgl64.Vec3) *Translate {
	return newTranslate(item, KindTranslate, t, &initial)
}

func NewRotatePivotTranslateCommand(item Item, t usd.TimeCode) *Translate {
	return newTranslate(item, KindRotatePivot, t, nil)
}

func NewScalePivotTranslateCommand(item Item, t usd.TimeCode) *Translate {
	return newTranslate(item, KindScalePivot, t, nil)
}

// New builds the command for kind.
func New(item Item, kind Kind, t usd.TimeCode) *Translate {
	return newTranslate(item, kind, t, nil)
}

func newTranslate(item Item, kind Kind, t usd.TimeCode, initial *mgl64.Vec3) *Translate {
	c := &Translate{item: item, kind: kind, time: t}
	if err := c.bind(); err != nil {
		log.Printf("[command] %v %v: %v", kind, item, err)
		c.state = StateFailed
		c.err = err
		return c
	}
	if initial != nil {
		c.current = *initial
	}
	return c
}

func (c *Translate) bindOrCreate() (*manip.Binding, error) {
	prim := c.item.Prim()
	if c.item.Stage == nil || !prim.IsValid() {
		return nil, errors.Wrapf(usd.ErrInvalidPrim, "%v", c.item)
	}
	if c.kind == KindTranslate {
		return manip.BindOrCreate(prim, "", c.time)
	}
	return manip.BindOrCreatePivot(prim, c.kind.String(), c.time)
}

func (c *Translate) bind() error {
	b, err := c.bindOrCreate()
	if err != nil {
		return err
	}
	c.opName = b.Op().Name()
	c.time = b.Time()
	c.scope = b.Scope
	c.created = b.Created
	c.record = b.Record
	if b.Created {
		c.state = StateCreated
	} else {
		c.state = StateBound
		if c.previous, err = b.Translation(); err != nil {
			return err
		}
	}
	c.current = c.previous
	if config.DebugManipulators() {
		log.Printf("[command] %v %v bound %s", c.kind, c.item, utils.SDump(b.Record, c.previous, c.time))
	}
	return nil
}

func (c *Translate) Item() Item                { return c.item }
func (c *Translate) Kind() Kind                { return c.kind }
func (c *Translate) State() State              { return c.state }
func (c *Translate) Err() error                { return c.err }
func (c *Translate) OpName() string            { return c.opName }
func (c *Translate) TimeCode() usd.TimeCode    { return c.time }
func (c *Translate) Created() bool             { return c.created }
func (c *Translate) CreatedOrderAttr() bool    { return c.created && c.record.OrderAttr }
func (c *Translate) Scope() usd.EditTarget     { return c.scope }
func (c *Translate) PreviousValue() mgl64.Vec3 { return c.previous }
func (c *Translate) CurrentValue() mgl64.Vec3  { return c.current }
func (c *Translate) Applied() bool             { return c.applied }

// edit runs fn against a fresh binding of the command's op with the
// captured edit target active.
func (c *Translate) edit(fn func(m *manip.Manipulator) error) error {
	prim := c.item.Prim()
	return c.item.Stage.WithEditTarget(c.scope, func() error {
		m, err := manip.BindOp(prim, c.opName, c.time)
		if err != nil {
			return err
		}
		return fn(m)
	})
}

// Apply moves the op so that target is reached in space. Pivots are set to
// target directly whatever the space. On failure nothing changes.
func (c *Translate) Apply(target mgl64.Vec3, space manip.Space) error {
	switch c.state {
	case StateFailed, StateUnbound:
		return errors.Wrapf(ErrNotBound, "%v", c.item)
	case StateUndone:
		return errors.Wrapf(ErrUndone, "%v", c.item)
	}
	if !space.IsValid() {
		return errors.Errorf("invalid space %v", space)
	}

	var value mgl64.Vec3
	err := c.edit(func(m *manip.Manipulator) error {
		current, err := m.Translation()
		if err != nil {
			return err
		}
		var delta mgl64.Vec3
		if c.kind == KindTranslate {
			mat, err := m.Frame()
			if err != nil {
				return err
			}
			frame := simd.FrameFromMat4(mat)
			delta = deltas[space](&frame, current, target)
		} else {
			delta = target.Sub(current)
		}
		if err := m.ApplyPreTransformDelta(delta); err != nil {
			return err
		}
		value, err = m.Translation()
		return err
	})
	if err != nil {
		log.Printf("[command] %v %v apply %v in %v: %v", c.kind, c.item, target, space, err)
		return err
	}

	c.current = value
	c.applied = true
	c.state = StateEdited
	if config.DebugManipulators() {
		log.Printf("[command] %v %v %v -> %v", c.kind, c.item, space, value)
	}
	return nil
}

func (c *Translate) Translate(x, y, z float64, space manip.Space) bool {
	return c.Apply(mgl64.Vec3{x, y, z}, space) == nil
}

func isClose(a, b mgl64.Vec3) bool {
	for i := range a {
		if math.Abs(a[i]-b[i]) >= Tolerance {
			return false
		}
	}
	return true
}

// Undo removes a created op outright, or writes the previous value back
// in the op's own precision.
func (c *Translate) Undo() {
	switch c.state {
	case StateFailed, StateUnbound, StateUndone:
		return
	}
	c.state = StateUndone

	if c.created {
		manip.RemoveCreatedOperation(c.scope, c.item.Prim(), c.record)
		return
	}
	if isClose(c.current, c.previous) {
		return
	}
	err := c.edit(func(m *manip.Manipulator) error {
		return m.SetTranslation(c.previous)
	})
	if err != nil {
		log.Printf("[command] %v %v undo: %v", c.kind, c.item, err)
	}
}

// Redo writes the last applied value again. A created op that undo removed
// is created anew first. Without a prior undo Redo does nothing.
func (c *Translate) Redo() {
	if c.state != StateUndone {
		return
	}

	if c.created {
		var b *manip.Binding
		err := c.item.Stage.WithEditTarget(c.scope, func() error {
			var err error
			b, err = c.bindOrCreate()
			return err
		})
		if err != nil {
			log.Printf("[command] %v %v redo: %v", c.kind, c.item, err)
			return
		}
		c.opName = b.Op().Name()
		c.record = b.Record
		c.created = b.Created
		c.state = StateCreated
	} else {
		c.state = StateBound
	}
	if !c.applied {
		return
	}

	if !c.created && isClose(c.current, c.previous) {
		c.state = StateEdited
		return
	}
	err := c.edit(func(m *manip.Manipulator) error {
		return m.SetTranslation(c.current)
	})
	if err != nil {
		log.Printf("[command] %v %v redo: %v", c.kind, c.item, err)
		return
	}
	c.state = StateEdited
}
