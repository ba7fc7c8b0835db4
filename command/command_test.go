package command

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/xformedit/manip"
	"github.com/mogaika/xformedit/sdf"
	"github.com/mogaika/xformedit/usd"
	"github.com/mogaika/xformedit/xform"
)

const cubePath = sdf.Path("/World/Cube")

func newItem(t *testing.T) (Item, xform.Xformable) {
	s := usd.NewInMemory()
	prim, err := s.DefinePrim(cubePath, "Xform")
	require.NoError(t, err)
	return Item{Stage: s, Path: cubePath}, xform.New(prim)
}

func export(t *testing.T, l *sdf.Layer) string {
	out, err := l.ExportToString()
	require.NoError(t, err)
	return out
}

// addStack authors translate (double) then rotateZ (float) with an order.
func addStack(t *testing.T, xf xform.Xformable, tr mgl64.Vec3, angle float32) (xform.Op, xform.Op) {
	top, err := xf.AddTranslateOp(xform.PrecisionDouble, "")
	require.NoError(t, err)
	require.NoError(t, top.Set(tr, usd.DefaultTime()))
	rop, err := xf.AddXformOp(xform.OpRotateZ, xform.PrecisionFloat, "", false)
	require.NoError(t, err)
	require.NoError(t, rop.Set(angle, usd.DefaultTime()))
	require.NoError(t, xf.SetXformOpOrder([]xform.Op{top, rop}, false))
	return top, rop
}

func value(t *testing.T, op xform.Op, tc usd.TimeCode) any {
	v, ok := op.Get(tc)
	require.True(t, ok, "%v has no value at %v", op.Name(), tc)
	return v
}

func TestCreationRoundTrip(t *testing.T) {
	item, xf := newItem(t)
	before := export(t, item.Stage.RootLayer())

	cmd := NewTranslateCommand(item, usd.At(24))
	require.Equal(t, StateCreated, cmd.State())
	assert.True(t, cmd.Created())
	assert.True(t, cmd.CreatedOrderAttr())
	assert.True(t, cmd.TimeCode().IsDefault(), "a new op is authored at default time")

	tokens, err := xf.OrderTokens()
	require.NoError(t, err)
	assert.Equal(t, []string{"xformOp:translate"}, tokens)

	require.True(t, cmd.Translate(1, 2, 3, manip.Transform))
	ops, _, err := xf.GetOrderedXformOps()
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, mgl64.Vec3{1, 2, 3}, value(t, ops[0], usd.DefaultTime()))
	assert.Equal(t, mgl64.Vec3{1, 2, 3}, cmd.CurrentValue())

	cmd.Undo()
	assert.Equal(t, StateUndone, cmd.State())
	assert.Equal(t, before, export(t, item.Stage.RootLayer()))
	assert.False(t, xf.OrderAttr().IsValid())
	ops, _, err = xf.GetOrderedXformOps()
	require.NoError(t, err)
	assert.Empty(t, ops)
}

func TestCreationKeepsExistingOrder(t *testing.T) {
	item, xf := newItem(t)
	scale, err := xf.AddXformOp(xform.OpScale, xform.PrecisionFloat, "", false)
	require.NoError(t, err)
	require.NoError(t, scale.Set(mgl32.Vec3{2, 2, 2}, usd.DefaultTime()))
	require.NoError(t, xf.SetXformOpOrder([]xform.Op{scale}, false))
	before := export(t, item.Stage.RootLayer())

	cmd := NewTranslateCommand(item, usd.DefaultTime())
	assert.True(t, cmd.Created())
	assert.False(t, cmd.CreatedOrderAttr())
	tokens, _ := xf.OrderTokens()
	assert.Equal(t, []string{"xformOp:translate", "xformOp:scale"}, tokens)

	require.NoError(t, cmd.Apply(mgl64.Vec3{0, 1, 0}, manip.PreTransform))
	cmd.Undo()
	assert.Equal(t, before, export(t, item.Stage.RootLayer()))
}

func TestUndoKeepsExistingInverse(t *testing.T) {
	item, xf := newItem(t)
	op, err := xf.AddTranslateOp(xform.PrecisionDouble, "")
	require.NoError(t, err)
	require.NoError(t, op.Set(mgl64.Vec3{1, 0, 0}, usd.DefaultTime()))
	inv, err := xf.AddXformOp(xform.OpTranslate, xform.PrecisionDouble, "", true)
	require.NoError(t, err)
	require.NoError(t, xf.SetXformOpOrder([]xform.Op{inv}, false))
	before := export(t, item.Stage.RootLayer())

	cmd := NewTranslateCommand(item, usd.DefaultTime())
	require.True(t, cmd.Created())
	tokens, _ := xf.OrderTokens()
	assert.Equal(t, []string{"xformOp:translate", "!invert!xformOp:translate"}, tokens)

	require.True(t, cmd.Translate(3, 0, 0, manip.Transform))
	cmd.Undo()
	tokens, _ = xf.OrderTokens()
	assert.Equal(t, []string{"!invert!xformOp:translate"}, tokens)
	assert.Equal(t, before, export(t, item.Stage.RootLayer()))
}

func TestUndoAfterAttributeRemoved(t *testing.T) {
	item, xf := newItem(t)
	scale, err := xf.AddXformOp(xform.OpScale, xform.PrecisionFloat, "", false)
	require.NoError(t, err)
	require.NoError(t, scale.Set(mgl32.Vec3{2, 2, 2}, usd.DefaultTime()))
	require.NoError(t, xf.SetXformOpOrder([]xform.Op{scale}, false))

	cmd := NewTranslateCommand(item, usd.DefaultTime())
	require.True(t, cmd.Created())
	require.True(t, cmd.Translate(1, 0, 0, manip.Transform))

	// someone else deletes the op attribute before undo
	ps := item.Stage.RootLayer().PrimSpec(cubePath)
	require.True(t, ps.RemoveProperty(ps.Attribute("xformOp:translate")))

	cmd.Undo()
	tokens, err := xf.OrderTokens()
	require.NoError(t, err)
	assert.Equal(t, []string{"xformOp:scale"}, tokens)
	ops, _, err := xf.GetOrderedXformOps()
	require.NoError(t, err)
	assert.Len(t, ops, 1)

	again := NewTranslateCommand(item, usd.DefaultTime())
	require.Equal(t, StateCreated, again.State())
	assert.True(t, again.Translate(0, 2, 0, manip.Transform))
}

func TestBoundRoundTrip(t *testing.T) {
	item, xf := newItem(t)
	top, rop := addStack(t, xf, mgl64.Vec3{0, 0, 0}, 30)
	before := export(t, item.Stage.RootLayer())

	cmd := NewTranslateCommand(item, usd.DefaultTime())
	require.Equal(t, StateBound, cmd.State())
	assert.False(t, cmd.Created())
	assert.Equal(t, mgl64.Vec3{}, cmd.PreviousValue())

	require.True(t, cmd.Translate(5, 0, 0, manip.Transform))
	assert.Equal(t, mgl64.Vec3{5, 0, 0}, value(t, top, usd.DefaultTime()))
	require.True(t, cmd.Translate(7, 1, 0, manip.Transform))
	assert.Equal(t, mgl64.Vec3{7, 1, 0}, value(t, top, usd.DefaultTime()))
	assert.Equal(t, StateEdited, cmd.State())

	cmd.Undo()
	assert.Equal(t, mgl64.Vec3{0, 0, 0}, value(t, top, usd.DefaultTime()), "undo goes back to the value before the command")
	assert.Equal(t, float32(30), value(t, rop, usd.DefaultTime()))
	tokens, _ := xf.OrderTokens()
	assert.Equal(t, []string{"xformOp:translate", "xformOp:rotateZ"}, tokens)
	assert.Equal(t, before, export(t, item.Stage.RootLayer()))
}

func TestUndoTolerance(t *testing.T) {
	tests := []struct {
		delta    float64
		expected mgl64.Vec3
	}{
		{1e-6, mgl64.Vec3{1e-6, 0, 0}},
		{1e-4, mgl64.Vec3{0, 0, 0}},
	}
	for _, test := range tests {
		item, xf := newItem(t)
		top, _ := addStack(t, xf, mgl64.Vec3{}, 0)

		cmd := NewTranslateCommand(item, usd.DefaultTime())
		require.True(t, cmd.Translate(test.delta, 0, 0, manip.Transform))
		cmd.Undo()
		if v := value(t, top, usd.DefaultTime()); v != test.expected {
			t.Errorf("undo after moving by %v left %v; expected %v", test.delta, v, test.expected)
		}
	}
}

func TestUndoKeepsPrecision(t *testing.T) {
	tests := []struct {
		precision xform.Precision
		initial   any
		vt        sdf.ValueType
	}{
		{xform.PrecisionFloat, mgl32.Vec3{1, 2, 3}, sdf.TypeFloat3},
		{xform.PrecisionHalf, sdf.NewVec3h(1, 2, 3), sdf.TypeHalf3},
		{xform.PrecisionDouble, mgl64.Vec3{1, 2, 3}, sdf.TypeDouble3},
	}
	for _, test := range tests {
		item, xf := newItem(t)
		op, err := xf.AddTranslateOp(test.precision, "")
		require.NoError(t, err)
		require.NoError(t, op.Set(test.initial, usd.DefaultTime()))
		require.NoError(t, xf.SetXformOpOrder([]xform.Op{op}, false))

		cmd := NewTranslateCommand(item, usd.DefaultTime())
		require.True(t, cmd.Translate(4, 5, 6, manip.World))
		assert.Equal(t, test.vt, op.Attr().TypeName())

		cmd.Undo()
		assert.Equal(t, test.vt, op.Attr().TypeName())
		assert.Equal(t, test.initial, value(t, op, usd.DefaultTime()), "%v", test.precision)
	}
}

func TestSpacesAgreeAtIdentityFrame(t *testing.T) {
	for _, space := range []manip.Space{manip.PreTransform, manip.PostTransform, manip.World, manip.Transform} {
		item, xf := newItem(t)
		top, _ := addStack(t, xf, mgl64.Vec3{}, 0)

		cmd := NewTranslateCommand(item, usd.DefaultTime())
		require.True(t, cmd.Translate(1, 2, 3, space), "%v", space)
		v := value(t, top, usd.DefaultTime()).(mgl64.Vec3)
		assert.True(t, v.ApproxEqual(mgl64.Vec3{1, 2, 3}), "%v: %v", space, v)
	}
}

func TestSpacesInRotatedFrame(t *testing.T) {
	tests := []struct {
		space    manip.Space
		expected mgl64.Vec3
	}{
		{manip.PreTransform, mgl64.Vec3{3, 0, 0}},
		{manip.PostTransform, mgl64.Vec3{1, 2, 0}},
		{manip.World, mgl64.Vec3{3, 0, 0}},
		{manip.Transform, mgl64.Vec3{3, 0, 0}},
	}
	for _, test := range tests {
		item, xf := newItem(t)
		top, _ := addStack(t, xf, mgl64.Vec3{1, 0, 0}, 90)

		cmd := NewTranslateCommand(item, usd.DefaultTime())
		require.NoError(t, cmd.Apply(mgl64.Vec3{3, 0, 0}, test.space))
		v := value(t, top, usd.DefaultTime()).(mgl64.Vec3)
		assert.True(t, v.ApproxEqualThreshold(test.expected, 1e-9), "%v: %v", test.space, v)
		assert.True(t, cmd.CurrentValue().ApproxEqualThreshold(test.expected, 1e-9))
	}
}

func TestMatrixOpTranslation(t *testing.T) {
	item, xf := newItem(t)
	op, err := xf.AddXformOp(xform.OpTransform, xform.PrecisionDouble, "", false)
	require.NoError(t, err)
	mat := mgl64.HomogRotate3DX(mgl64.DegToRad(45))
	mat.SetCol(3, mgl64.Vec4{1, 1, 1, 1})
	require.NoError(t, op.Set(mat, usd.DefaultTime()))
	require.NoError(t, xf.SetXformOpOrder([]xform.Op{op}, false))

	cmd := NewTranslateCommand(item, usd.DefaultTime())
	require.False(t, cmd.Created())
	assert.Equal(t, "xformOp:transform", cmd.OpName())
	require.True(t, cmd.Translate(2, 3, 4, manip.Transform))
	moved := value(t, op, usd.DefaultTime()).(mgl64.Mat4)
	assert.Equal(t, mgl64.Vec3{2, 3, 4}, moved.Col(3).Vec3())
	assert.Equal(t, mat.Mat3(), moved.Mat3())

	cmd.Undo()
	assert.Equal(t, mat, value(t, op, usd.DefaultTime()))
}

func TestSampledOp(t *testing.T) {
	item, xf := newItem(t)
	op, err := xf.AddTranslateOp(xform.PrecisionDouble, "")
	require.NoError(t, err)
	require.NoError(t, op.Set(mgl64.Vec3{0, 0, 0}, usd.At(0)))
	require.NoError(t, op.Set(mgl64.Vec3{10, 0, 0}, usd.At(10)))
	require.NoError(t, xf.SetXformOpOrder([]xform.Op{op}, false))

	cmd := NewTranslateCommand(item, usd.At(5))
	assert.Equal(t, usd.At(5), cmd.TimeCode())
	assert.Equal(t, mgl64.Vec3{5, 0, 0}, cmd.PreviousValue())

	require.True(t, cmd.Translate(5, 5, 0, manip.Transform))
	assert.Equal(t, 3, op.NumTimeSamples())
	cmd.Undo()
	assert.Equal(t, mgl64.Vec3{5, 0, 0}, value(t, op, usd.At(5)))
	assert.Equal(t, mgl64.Vec3{10, 0, 0}, value(t, op, usd.At(10)))
}

func TestCapturedScope(t *testing.T) {
	item, xf := newItem(t)
	top, _ := addStack(t, xf, mgl64.Vec3{}, 0)
	before := export(t, item.Stage.RootLayer())

	cmd := NewTranslateCommand(item, usd.DefaultTime())
	require.NoError(t, item.Stage.SetEditTarget(usd.NewEditTarget(item.Stage.SessionLayer())))

	require.True(t, cmd.Translate(1, 1, 1, manip.Transform))
	assert.True(t, item.Stage.SessionLayer().IsEmpty(), "writes go to the target captured at construction")
	assert.Equal(t, mgl64.Vec3{1, 1, 1}, value(t, top, usd.DefaultTime()))
	assert.Equal(t, item.Stage.SessionLayer(), item.Stage.EditTarget().Layer())

	cmd.Undo()
	assert.True(t, item.Stage.SessionLayer().IsEmpty())
	assert.Equal(t, before, export(t, item.Stage.RootLayer()))
}

func TestCreatedInSessionLayer(t *testing.T) {
	item, xf := newItem(t)
	addStack(t, xf, mgl64.Vec3{}, 0)
	require.NoError(t, xf.OrderAttr().Set([]string{"xformOp:rotateZ"}, usd.DefaultTime()))
	root := export(t, item.Stage.RootLayer())

	require.NoError(t, item.Stage.SetEditTarget(usd.NewEditTarget(item.Stage.SessionLayer())))
	cmd := NewTranslateCommand(item, usd.DefaultTime())
	require.True(t, cmd.Created())
	assert.True(t, cmd.CreatedOrderAttr(), "the session layer had no order of its own")
	require.NoError(t, item.Stage.SetEditTarget(usd.NewEditTarget(item.Stage.RootLayer())))

	require.True(t, cmd.Translate(0, 0, 9, manip.Transform))
	assert.Equal(t, root, export(t, item.Stage.RootLayer()))

	cmd.Undo()
	assert.True(t, item.Stage.SessionLayer().IsEmpty())
	assert.Equal(t, root, export(t, item.Stage.RootLayer()))
}

func TestFailedApplyChangesNothing(t *testing.T) {
	item, xf := newItem(t)
	top, err := xf.AddTranslateOp(xform.PrecisionDouble, "")
	require.NoError(t, err)
	require.NoError(t, top.Set(mgl64.Vec3{1, 1, 1}, usd.DefaultTime()))
	mat, err := xf.AddXformOp(xform.OpTransform, xform.PrecisionDouble, "", false)
	require.NoError(t, err)
	require.NoError(t, mat.Set(mgl64.Mat4{}, usd.DefaultTime()))
	inv, err := xf.AddXformOp(xform.OpTransform, xform.PrecisionDouble, "", true)
	require.NoError(t, err)
	require.NoError(t, xf.SetXformOpOrder([]xform.Op{top, mat, inv}, false))
	before := export(t, item.Stage.RootLayer())

	cmd := NewTranslateCommand(item, usd.DefaultTime())
	require.Equal(t, StateBound, cmd.State())
	assert.False(t, cmd.Translate(2, 2, 2, manip.PreTransform), "singular frame")
	assert.Equal(t, StateBound, cmd.State())
	assert.Equal(t, mgl64.Vec3{1, 1, 1}, cmd.CurrentValue())
	assert.Equal(t, before, export(t, item.Stage.RootLayer()))

	assert.Error(t, cmd.Apply(mgl64.Vec3{}, manip.Space(9)))
}

func TestFailedConstruction(t *testing.T) {
	s := usd.NewInMemory()
	cmd := NewTranslateCommand(Item{Stage: s, Path: "/Missing"}, usd.DefaultTime())
	assert.Equal(t, StateFailed, cmd.State())
	assert.Error(t, cmd.Err())
	assert.False(t, cmd.Translate(1, 2, 3, manip.World))
	cmd.Undo()
	cmd.Redo()
	assert.Equal(t, StateFailed, cmd.State())
	assert.True(t, s.RootLayer().IsEmpty())
}

func TestRedo(t *testing.T) {
	item, xf := newItem(t)
	before := export(t, item.Stage.RootLayer())

	cmd := NewTranslateCommand(item, usd.DefaultTime())
	require.True(t, cmd.Translate(1, 2, 3, manip.Transform))
	applied := export(t, item.Stage.RootLayer())

	cmd.Redo()
	assert.Equal(t, StateEdited, cmd.State(), "redo without undo does nothing")

	cmd.Undo()
	assert.Equal(t, before, export(t, item.Stage.RootLayer()))
	assert.Error(t, cmd.Apply(mgl64.Vec3{}, manip.World))

	cmd.Redo()
	assert.Equal(t, StateEdited, cmd.State())
	assert.Equal(t, applied, export(t, item.Stage.RootLayer()))

	cmd.Undo()
	assert.Equal(t, before, export(t, item.Stage.RootLayer()))
	assert.False(t, xf.OrderAttr().IsValid())
}

func TestRedoBound(t *testing.T) {
	item, xf := newItem(t)
	top, _ := addStack(t, xf, mgl64.Vec3{}, 0)

	cmd := NewTranslateCommand(item, usd.DefaultTime())
	require.True(t, cmd.Translate(5, 0, 0, manip.Transform))
	cmd.Undo()
	assert.Equal(t, mgl64.Vec3{}, value(t, top, usd.DefaultTime()))
	cmd.Redo()
	assert.Equal(t, mgl64.Vec3{5, 0, 0}, value(t, top, usd.DefaultTime()))
	require.True(t, cmd.Translate(6, 0, 0, manip.Transform), "a redone gesture keeps going")
}

func TestWithValue(t *testing.T) {
	item, xf := newItem(t)
	top, _ := addStack(t, xf, mgl64.Vec3{1, 0, 0}, 0)

	cmd := NewTranslateCommandWithValue(item, usd.DefaultTime(), mgl64.Vec3{4, 4, 4})
	assert.Equal(t, mgl64.Vec3{1, 0, 0}, cmd.PreviousValue())
	assert.Equal(t, mgl64.Vec3{4, 4, 4}, cmd.CurrentValue())
	assert.Equal(t, mgl64.Vec3{1, 0, 0}, value(t, top, usd.DefaultTime()), "nothing written before apply")

	cmd.Undo()
	assert.Equal(t, mgl64.Vec3{1, 0, 0}, value(t, top, usd.DefaultTime()))
}

func TestPivotCommands(t *testing.T) {
	item, xf := newItem(t)
	addStack(t, xf, mgl64.Vec3{}, 90)
	before := export(t, item.Stage.RootLayer())

	cmd := NewRotatePivotTranslateCommand(item, usd.DefaultTime())
	require.Equal(t, StateCreated, cmd.State())
	assert.Equal(t, "xformOp:translate:rotatePivot", cmd.OpName())
	require.True(t, cmd.Translate(1, 0, 0, manip.PostTransform))

	pivot, err := manip.Bind(item.Prim(), xform.RotatePivot, usd.DefaultTime())
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, value(t, pivot.Op(), usd.DefaultTime()))
	tokens, _ := xf.OrderTokens()
	assert.Equal(t, []string{
		"xformOp:translate",
		"xformOp:translate:rotatePivot",
		"xformOp:rotateZ",
		"!invert!xformOp:translate:rotatePivot",
	}, tokens)

	cmd.Undo()
	assert.Equal(t, before, export(t, item.Stage.RootLayer()))

	// a second gesture on an existing pivot restores its value
	first := NewScalePivotTranslateCommand(item, usd.DefaultTime())
	require.True(t, first.Translate(0, 1, 0, manip.World))
	second := NewScalePivotTranslateCommand(item, usd.DefaultTime())
	require.Equal(t, StateBound, second.State())
	assert.Equal(t, mgl64.Vec3{0, 1, 0}, second.PreviousValue())
	require.True(t, second.Translate(0, 0, 2, manip.World))
	second.Undo()
	sp, err := manip.Bind(item.Prim(), xform.ScalePivot, usd.DefaultTime())
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, value(t, sp.Op(), usd.DefaultTime()))
}

func TestParseKind(t *testing.T) {
	for _, k := range []Kind{KindTranslate, KindRotatePivot, KindScalePivot} {
		parsed, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}
	_, err := ParseKind("rotate")
	assert.Error(t, err)
}
